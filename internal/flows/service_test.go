package flows

import (
	"context"
	"testing"

	"github.com/shaiso/Kontur/internal/domain"
)

func TestServices_ScheduleProvisionServiceCarriesFlags(t *testing.T) {
	sched := &fakeSched{}
	s := NewServices(ServicesConfig{Auth: &fakeAuth{}, Gate: &fakeGate{}, Sched: sched})

	res := s.ScheduleProvisionService(context.Background(), caller, ServiceRequest{
		WorkspaceID: "ws1", Name: "pg", Flags: []string{"managed"},
	})

	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	got := sched.scheduled[0]
	if got.taskType != domain.TaskProvisionService {
		t.Errorf("expected PROVISION-SERVICE, got %s", got.taskType)
	}
	if len(got.steps) != 1 || len(got.steps[0].Flags) != 1 || got.steps[0].Flags[0] != "managed" {
		t.Errorf("flags must be recorded on the first step, got %+v", got.steps)
	}
}

func TestServices_ScheduleDeployImage(t *testing.T) {
	sched := &fakeSched{}
	s := NewServices(ServicesConfig{Auth: &fakeAuth{}, Gate: &fakeGate{}, Sched: sched})

	res := s.ScheduleDeployImage(context.Background(), caller, ImageRequest{
		WorkspaceID: "ws1", Image: "nginx:1.27",
	})

	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	got := sched.scheduled[0]
	if got.taskType != domain.TaskDeployImage || got.steps[0].Params["image"] != "nginx:1.27" {
		t.Errorf("unexpected task: %+v", got)
	}
}

func TestServices_PermissionDeniedSchedulesNothing(t *testing.T) {
	sched := &fakeSched{}
	s := NewServices(ServicesConfig{Auth: &fakeAuth{deny: true}, Gate: &fakeGate{}, Sched: sched})

	res := s.ScheduleProvisionRoute(context.Background(), caller, RouteRequest{
		WorkspaceID: "ws1", Domain: "app.example.com",
	})

	if res.Code != 403 {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if len(sched.scheduled) != 0 {
		t.Error("nothing may be scheduled without permission")
	}
}
