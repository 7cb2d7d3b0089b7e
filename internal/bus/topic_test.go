package bus

import (
	"errors"
	"testing"
)

func TestParseTopic_Query(t *testing.T) {
	topic, err := ParseTopic("kontur/k8s/host/query/10.0.0.5/get_k8s_state/abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Kind != KindQuery {
		t.Errorf("expected query kind, got %s", topic.Kind)
	}
	if topic.Namespace != "kontur" {
		t.Errorf("expected namespace kontur, got %s", topic.Namespace)
	}
	if topic.Host != "10.0.0.5" {
		t.Errorf("expected host 10.0.0.5, got %s", topic.Host)
	}
	if topic.Task != "get_k8s_state" {
		t.Errorf("expected task get_k8s_state, got %s", topic.Task)
	}
	if topic.RequestID != "abc123" {
		t.Errorf("expected request id abc123, got %s", topic.RequestID)
	}
}

func TestParseTopic_Respond(t *testing.T) {
	topic, err := ParseTopic("kontur/k8s/host/respond/api/10.0.0.5/get_k8s_state/abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Kind != KindRespond {
		t.Errorf("expected respond kind, got %s", topic.Kind)
	}
	if topic.Host != "api" {
		t.Errorf("expected host api, got %s", topic.Host)
	}
	// The request id is always the last segment.
	if topic.RequestID != "abc123" {
		t.Errorf("expected request id abc123, got %s", topic.RequestID)
	}
	if topic.Task != "get_k8s_state" {
		t.Errorf("expected task get_k8s_state, got %s", topic.Task)
	}
}

func TestParseTopic_TaskNew(t *testing.T) {
	topic, err := ParseTopic("kontur/task/new/550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Kind != KindTaskNew {
		t.Errorf("expected taskNew kind, got %s", topic.Kind)
	}
	if topic.StorageID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("unexpected storage id %s", topic.StorageID)
	}
}

func TestParseTopic_Event(t *testing.T) {
	topic, err := ParseTopic("kontur/cli/event/create_pvc/sess42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Kind != KindEvent {
		t.Errorf("expected event kind, got %s", topic.Kind)
	}
	if topic.Task != "create_pvc" {
		t.Errorf("expected task create_pvc, got %s", topic.Task)
	}
	if topic.SessionID != "sess42" {
		t.Errorf("expected session sess42, got %s", topic.SessionID)
	}
}

func TestParseTopic_FailsClosed(t *testing.T) {
	malformed := []string{
		"",
		"kontur",
		"kontur/k8s/host",
		"kontur/k8s/host/query/10.0.0.5",             // too short
		"kontur/k8s/host/query/10.0.0.5/task/id/etc", // too long
		"kontur/k8s/host/respond/api/id",             // too short
		"kontur/task/new",                            // missing storage id
		"kontur/task/new/a/b",                        // too long
		"kontur/cli/event/task",                      // missing session id
		"kontur/unknown/shape/here",
		"kontur//host/query/a/b/c", // empty segment
	}

	for _, raw := range malformed {
		if _, err := ParseTopic(raw); !errors.Is(err, ErrMalformedTopic) {
			t.Errorf("ParseTopic(%q): expected ErrMalformedTopic, got %v", raw, err)
		}
	}
}

func TestTopicBuilders_RoundTrip(t *testing.T) {
	cases := []string{
		QueryTopic("ns", "192.168.1.7", "create_pv", "r1"),
		RespondTopic("ns", "192.168.1.7", "create_pv", "r1"),
		TaskNewTopic("ns", "row-1"),
		EventTopic("ns", "create_pvc", "s1"),
	}
	for _, raw := range cases {
		if _, err := ParseTopic(raw); err != nil {
			t.Errorf("built topic %q does not parse: %v", raw, err)
		}
	}
}

func TestRoutingKey(t *testing.T) {
	key := routingKey("ns/k8s/host/query/10.0.0.5/t/r")
	if key != "ns.k8s.host.query.10.0.0.5.t.r" {
		t.Errorf("unexpected routing key %s", key)
	}
}
