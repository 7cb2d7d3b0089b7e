package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Kontur/internal/bus"
)

// fakeBus captures published messages instead of talking to a broker.
type fakeBus struct {
	mu        sync.Mutex
	published []publishedMsg
	notify    chan publishedMsg
}

type publishedMsg struct {
	topic   string
	payload map[string]any
}

func newFakeBus() *fakeBus {
	return &fakeBus{notify: make(chan publishedMsg, 16)}
}

func (f *fakeBus) Publish(_ context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	msg := publishedMsg{topic: topic, payload: m}
	f.mu.Lock()
	f.published = append(f.published, msg)
	f.mu.Unlock()
	f.notify <- msg
	return nil
}

func (f *fakeBus) Namespace() string { return "test" }

// reply delivers a respond-topic message to the correlator for the
// given query, as a remote host would.
func reply(t *testing.T, c *Correlator, query publishedMsg, data map[string]any) bool {
	t.Helper()

	qt, err := bus.ParseTopic(query.topic)
	if err != nil {
		t.Fatalf("published query topic is malformed: %v", err)
	}

	respondTopic := bus.RespondTopic("test", qt.Host, qt.Task, qt.RequestID)
	rt, err := bus.ParseTopic(respondTopic)
	if err != nil {
		t.Fatalf("respond topic is malformed: %v", err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return c.Consume(rt, payload)
}

func TestNewTopicID_ExcludesReservedCharacters(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := bus.NewTopicID()
		if strings.ContainsAny(id, "$@") {
			t.Fatalf("id %q contains a reserved character", id)
		}
		if len(id) == 0 {
			t.Fatal("empty id")
		}
	}
}

func TestExchange_ResolvesOnMatchingReply(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	type result struct {
		reply *Reply
		err   error
	}
	done := make(chan result, 1)

	go func() {
		r, err := c.Exchange(context.Background(), "10.0.0.5", "get_k8s_state", map[string]any{"ns": "usr"}, 5*time.Second)
		done <- result{r, err}
	}()

	query := <-fb.notify
	if !strings.HasPrefix(query.topic, "test/k8s/host/query/10.0.0.5/get_k8s_state/") {
		t.Fatalf("unexpected query topic %q", query.topic)
	}
	if query.payload["queryTarget"] != "api" {
		t.Error("payload should carry queryTarget:api")
	}
	if query.payload["ns"] != "usr" {
		t.Error("payload should carry caller fields")
	}

	if !reply(t, c, query, map[string]any{"status": float64(200), "nodes": float64(3)}) {
		t.Error("matching reply should be consumed")
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.reply.Status() != 200 {
		t.Errorf("expected status 200, got %d", res.reply.Status())
	}
	if res.reply.Data["nodes"] != float64(3) {
		t.Error("reply data should be the parsed payload")
	}
	if c.PendingCount() != 0 {
		t.Error("pending table should be empty after resolution")
	}
}

func TestExchange_TimesOutWithoutReply(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	_, err := c.Exchange(context.Background(), "10.0.0.5", "get_k8s_state", nil, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if c.PendingCount() != 0 {
		t.Error("pending table should not contain the id after timeout")
	}
}

func TestExchange_LateReplyIsNoOp(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	_, err := c.Exchange(context.Background(), "10.0.0.5", "get_k8s_state", nil, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	query := fb.published[0]
	if reply(t, c, query, map[string]any{"status": float64(200)}) {
		t.Error("late reply should not be consumed as expected")
	}
	if c.PendingCount() != 0 {
		t.Error("late reply must not change state")
	}
}

func TestExchange_DuplicateReplyResolvesOnce(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	done := make(chan *Reply, 1)
	go func() {
		r, _ := c.Exchange(context.Background(), "10.0.0.5", "get_k8s_state", nil, time.Second)
		done <- r
	}()

	query := <-fb.notify
	reply(t, c, query, map[string]any{"status": float64(200), "seq": float64(1)})

	r := <-done
	if r == nil || r.Data["seq"] != float64(1) {
		t.Fatal("first reply should resolve the exchange")
	}

	// Second reply for the same id arrives after resolution.
	if reply(t, c, query, map[string]any{"status": float64(200), "seq": float64(2)}) {
		t.Error("duplicate reply should be a no-op")
	}
}

func TestExchange_ContextCancelRemovesEntry(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Exchange(ctx, "10.0.0.5", "get_k8s_state", nil, time.Minute)
		done <- err
	}()

	<-fb.notify
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.PendingCount() != 0 {
		t.Error("cancel must remove the pending entry")
	}
}

func TestExchange_UnparsableReplyKeepsWaiting(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	done := make(chan error, 1)
	go func() {
		_, err := c.Exchange(context.Background(), "10.0.0.5", "get_k8s_state", nil, 100*time.Millisecond)
		done <- err
	}()

	query := <-fb.notify
	qt, _ := bus.ParseTopic(query.topic)
	rt, _ := bus.ParseTopic(bus.RespondTopic("test", qt.Host, qt.Task, qt.RequestID))

	// Malformed payload: consumed (matched a pending id) but dropped.
	if !c.Consume(rt, []byte("{not json")) {
		t.Error("malformed reply for a pending id should still be consumed")
	}

	if err := <-done; !errors.Is(err, ErrTimeout) {
		t.Fatalf("exchange should time out after dropped reply, got %v", err)
	}
}

func TestCollect_AccumulatesInArrivalOrder(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	col, err := c.Collect(context.Background(), "broadcast", "get_volumes", nil)
	if err != nil {
		t.Fatal(err)
	}

	query := <-fb.notify
	for i := 1; i <= 3; i++ {
		if !reply(t, c, query, map[string]any{"status": float64(200), "seq": float64(i)}) {
			t.Fatalf("reply %d should be consumed", i)
		}
	}

	replies := col.Replies()
	if len(replies) != 3 {
		t.Fatalf("expected 3 replies, got %d", len(replies))
	}
	for i, r := range replies {
		if r.Data["seq"] != float64(i+1) {
			t.Errorf("reply %d out of order: %v", i, r.Data["seq"])
		}
	}

	col.Close()
	if c.PendingCount() != 0 {
		t.Error("close should remove the collector entry")
	}
	if reply(t, c, query, map[string]any{"seq": float64(4)}) {
		t.Error("reply after close should be a no-op")
	}
	if len(col.Replies()) != 3 {
		t.Error("replies after close must not grow")
	}
}

func TestExchange_PendingTableIsBounded(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb, MaxPending: 1})

	col, err := c.Collect(context.Background(), "broadcast", "get_volumes", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer col.Close()

	_, err = c.Exchange(context.Background(), "10.0.0.5", "get_k8s_state", nil, 10*time.Millisecond)
	if !errors.Is(err, ErrTooManyPending) {
		t.Fatalf("expected ErrTooManyPending, got %v", err)
	}
}

func TestExchange_ConcurrentExchangesGetDistinctIDs(t *testing.T) {
	fb := newFakeBus()
	c := New(Config{Transport: fb})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Exchange(context.Background(), "10.0.0.5", "ping", nil, 20*time.Millisecond)
		}()
	}

	ids := make(map[string]bool)
	for i := 0; i < n; i++ {
		msg := <-fb.notify
		qt, err := bus.ParseTopic(msg.topic)
		if err != nil {
			t.Fatal(err)
		}
		if ids[qt.RequestID] {
			t.Fatalf("request id %s issued twice", qt.RequestID)
		}
		ids[qt.RequestID] = true
	}
	wg.Wait()
}
