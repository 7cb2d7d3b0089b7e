package flows

import (
	"context"
	"testing"

	"github.com/shaiso/Kontur/internal/domain"
)

type fakePurger struct {
	purged []string
}

func (f *fakePurger) DeleteByTarget(_ context.Context, _ domain.TargetKind, targetID string) error {
	f.purged = append(f.purged, targetID)
	return nil
}

func TestWorkspaces_ScheduleDeprovisionResources(t *testing.T) {
	sched := &fakeSched{}
	w := NewWorkspaces(WorkspacesConfig{
		Auth:     &fakeAuth{},
		Gate:     &fakeGate{},
		Sched:    sched,
		Bindings: newFakeBindings(),
		Tasks:    &fakePurger{},
	})

	res := w.ScheduleDeprovisionResources(context.Background(), caller, "ws1")

	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	got := sched.scheduled[0]
	if got.taskType != domain.TaskDeprovisionWorkspace || got.target != domain.TargetWorkspace {
		t.Errorf("unexpected task: %+v", got)
	}
}

func TestWorkspaces_ScheduleDeprovisionOrganizationTargetsOrg(t *testing.T) {
	sched := &fakeSched{}
	w := NewWorkspaces(WorkspacesConfig{
		Auth:     &fakeAuth{},
		Gate:     &fakeGate{},
		Sched:    sched,
		Bindings: newFakeBindings(),
		Tasks:    &fakePurger{},
	})

	res := w.ScheduleDeprovisionOrganization(context.Background(), caller, "org1")

	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	got := sched.scheduled[0]
	if got.taskType != domain.TaskDeprovisionOrg || got.target != domain.TargetOrganization {
		t.Errorf("unexpected task: %+v", got)
	}
}

func TestWorkspaces_PurgeRemovesTasksAndBindings(t *testing.T) {
	bindings := newFakeBindings()
	bindings.add("ws1", "data", "web")
	purger := &fakePurger{}
	w := NewWorkspaces(WorkspacesConfig{
		Auth:     &fakeAuth{},
		Gate:     &fakeGate{},
		Sched:    &fakeSched{},
		Bindings: bindings,
		Tasks:    purger,
	})

	if err := w.Purge(context.Background(), "ws1"); err != nil {
		t.Fatal(err)
	}
	if len(purger.purged) != 1 || purger.purged[0] != "ws1" {
		t.Errorf("task log must be purged, got %v", purger.purged)
	}
	if n, _ := bindings.CountByWorkspace(context.Background(), "ws1"); n != 0 {
		t.Errorf("bindings must be purged, got %d", n)
	}
}
