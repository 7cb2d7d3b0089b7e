package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/domain"
)

func TestReaper_SweepExpiresStalePending(t *testing.T) {
	repo := &fakeRepo{}
	repo.tasks = append(repo.tasks,
		domain.Task{
			ID:        uuid.New(),
			TaskID:    "stale1",
			Type:      domain.TaskProvisionVolume,
			Target:    domain.TargetWorkspace,
			TargetID:  "ws1",
			Status:    domain.TaskStatusPending,
			CreatedAt: time.Now().Add(-2 * time.Hour),
		},
		domain.Task{
			ID:        uuid.New(),
			TaskID:    "fresh1",
			Type:      domain.TaskProvisionVolume,
			Target:    domain.TargetWorkspace,
			TargetID:  "ws1",
			Status:    domain.TaskStatusPending,
			CreatedAt: time.Now(),
		},
	)

	reaper := NewReaper(repo, nil)
	reaper.Sweep(context.Background())

	if repo.tasks[0].Status != domain.TaskStatusError {
		t.Errorf("stale task should be ERROR, got %s", repo.tasks[0].Status)
	}
	if n := len(repo.tasks[0].Steps); n != 1 || repo.tasks[0].Steps[0].Step != "EXPIRED" {
		t.Errorf("stale task should carry an EXPIRED step, got %v", repo.tasks[0].Steps)
	}
	if repo.tasks[1].Status != domain.TaskStatusPending {
		t.Errorf("fresh task must stay PENDING, got %s", repo.tasks[1].Status)
	}
}

func TestReaper_SweepSkipsProgressedTasks(t *testing.T) {
	repo := &fakeRepo{}
	id := uuid.New()
	repo.tasks = append(repo.tasks, domain.Task{
		ID:        id,
		TaskID:    "raced",
		Type:      domain.TaskBindVolume,
		Target:    domain.TargetWorkspace,
		TargetID:  "ws1",
		Status:    domain.TaskStatusPending,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})

	// An agent takes the task between the listing and the update.
	repo.tasks[0].Status = domain.TaskStatusInProgress

	reaper := NewReaper(repo, nil)
	reaper.Sweep(context.Background())

	if repo.tasks[0].Status != domain.TaskStatusInProgress {
		t.Errorf("progressed task must not be expired, got %s", repo.tasks[0].Status)
	}
	if len(repo.tasks[0].Steps) != 0 {
		t.Errorf("no steps should be appended to a progressed task")
	}
}
