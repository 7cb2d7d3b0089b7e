package flows

import (
	"context"
	"testing"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/rpc"
)

func newClusters(exchange *fakeExchange, gate *fakeGate, sched *fakeSched) *Clusters {
	return NewClusters(ClustersConfig{
		Auth:   &fakeAuth{},
		Hosts:  &fakeHosts{},
		Gate:   gate,
		Sched:  sched,
		Remote: exchange,
	})
}

func TestClusters_GetStateReturnsReplyData(t *testing.T) {
	exchange := newFakeExchange()
	exchange.replies[taskGetState] = okReply("nodes", []any{"node-1", "node-2"})
	c := newClusters(exchange, &fakeGate{}, &fakeSched{})

	res := c.GetState(context.Background(), caller, "ws1")

	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || len(data["nodes"].([]any)) != 2 {
		t.Errorf("expected reply data passed through, got %v", res.Data)
	}
	if exchange.calls[0].host != "10.0.0.5" {
		t.Errorf("query must go to the master host, got %s", exchange.calls[0].host)
	}
}

func TestClusters_GetStateTimeout(t *testing.T) {
	exchange := newFakeExchange()
	exchange.errs[taskGetState] = rpc.ErrTimeout
	c := newClusters(exchange, &fakeGate{}, &fakeSched{})

	res := c.GetState(context.Background(), caller, "ws1")
	if res.Code != 500 {
		t.Fatalf("expected 500 on timeout, got %d", res.Code)
	}
}

func TestClusters_GetStateNoMasterHost(t *testing.T) {
	c := NewClusters(ClustersConfig{
		Auth:   &fakeAuth{},
		Hosts:  &fakeHosts{missing: true},
		Gate:   &fakeGate{},
		Sched:  &fakeSched{},
		Remote: newFakeExchange(),
	})

	res := c.GetState(context.Background(), caller, "ws1")
	if res.Code != 404 {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestClusters_GetStateRemoteErrorCodePassedThrough(t *testing.T) {
	exchange := newFakeExchange()
	exchange.replies[taskGetState] = statusReply(503)
	c := newClusters(exchange, &fakeGate{}, &fakeSched{})

	res := c.GetState(context.Background(), caller, "ws1")
	if res.Code != 503 {
		t.Fatalf("expected remote status passed through, got %d", res.Code)
	}
}

func TestClusters_ScheduleCreate(t *testing.T) {
	sched := &fakeSched{}
	c := newClusters(newFakeExchange(), &fakeGate{}, sched)

	res := c.ScheduleCreate(context.Background(), caller, ClusterRequest{
		WorkspaceID: "ws1", Nodes: 3,
	})

	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0].taskType != domain.TaskCreateK8SCluster {
		t.Fatalf("expected one CREATE-K8S-CLUSTER task, got %v", sched.scheduled)
	}
}

func TestClusters_ScheduleCreateBusyWorkspace(t *testing.T) {
	sched := &fakeSched{}
	c := newClusters(newFakeExchange(), &fakeGate{busy: true}, sched)

	res := c.ScheduleCreate(context.Background(), caller, ClusterRequest{
		WorkspaceID: "ws1", Nodes: 3,
	})

	if res.Code != 425 {
		t.Fatalf("expected 425, got %d", res.Code)
	}
	if len(sched.scheduled) != 0 {
		t.Error("no task may be scheduled while the workspace is busy")
	}
}
