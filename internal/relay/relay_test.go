package relay

import (
	"context"
	"testing"

	"github.com/shaiso/Kontur/internal/bus"
)

func TestRelay_EmitInfoForwardsUnchanged(t *testing.T) {
	r := New(nil)
	s := r.Connect("s1")

	r.Emit("s1", KindInfo, Event{"step": "CREATE_PV"})

	ev := <-s.Events()
	if ev["step"] != "CREATE_PV" {
		t.Errorf("expected step CREATE_PV, got %v", ev["step"])
	}
	if _, tagged := ev["error"]; tagged {
		t.Error("info event must not carry the error flag")
	}
}

func TestRelay_EmitErrorAddsFlag(t *testing.T) {
	r := New(nil)
	s := r.Connect("s1")

	r.Emit("s1", KindError, Event{"step": "CREATE_PVC"})

	ev := <-s.Events()
	if ev["error"] != true {
		t.Error("error event must carry error:true")
	}
	if ev["step"] != "CREATE_PVC" {
		t.Error("error event must keep original fields")
	}
}

func TestRelay_UnknownKindDisconnects(t *testing.T) {
	r := New(nil)
	s := r.Connect("s1")

	r.Emit("s1", "shutdown", Event{})

	if _, open := <-s.Events(); open {
		t.Error("session channel should be closed")
	}
	if r.Count() != 0 {
		t.Error("session should be removed from the registry")
	}
}

func TestRelay_UnknownSessionIgnored(t *testing.T) {
	r := New(nil)
	// Must not panic or register anything.
	r.Emit("ghost", KindInfo, Event{"step": "X"})
	if r.Count() != 0 {
		t.Error("emit to unknown session must not create one")
	}
}

func TestRelay_ReconnectReplacesSession(t *testing.T) {
	r := New(nil)
	old := r.Connect("s1")
	fresh := r.Connect("s1")

	if _, open := <-old.Events(); open {
		t.Error("old session channel should be closed on reconnect")
	}

	r.Emit("s1", KindInfo, Event{"step": "Y"})
	if ev := <-fresh.Events(); ev["step"] != "Y" {
		t.Error("fresh session should receive events")
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 session, got %d", r.Count())
	}
}

func TestRelay_HandleEvent(t *testing.T) {
	r := New(nil)
	s := r.Connect("sess42")

	topic, err := bus.ParseTopic("kontur/cli/event/create_pvc/sess42")
	if err != nil {
		t.Fatal(err)
	}

	r.HandleEvent(context.Background(), topic, []byte(`{"kind":"error","step":"CREATE_PVC","message":"quota exceeded"}`))

	ev := <-s.Events()
	if ev["error"] != true {
		t.Error("kind=error payload should set the error flag")
	}
	if ev["task"] != "create_pvc" {
		t.Errorf("event should carry the topic task, got %v", ev["task"])
	}
	if ev["message"] != "quota exceeded" {
		t.Error("event should carry payload fields")
	}
}
