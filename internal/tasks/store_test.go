package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/domain"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	tasks []domain.Task
}

func (f *fakeRepo) Create(_ context.Context, task *domain.Task) error {
	f.tasks = append(f.tasks, *task)
	return nil
}

func (f *fakeRepo) ListByTarget(_ context.Context, target domain.TargetKind, targetID string, limit int) ([]domain.Task, error) {
	// Newest first, as the DB query does.
	var out []domain.Task
	for i := len(f.tasks) - 1; i >= 0 && len(out) < limit; i-- {
		t := f.tasks[i]
		if t.Target == target && t.TargetID == targetID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListStalePending(_ context.Context, olderThanMinutes, limit int) ([]domain.Task, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	var out []domain.Task
	for _, t := range f.tasks {
		if t.Status == domain.TaskStatusPending && t.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.TaskStatus) error {
	for i := range f.tasks {
		if f.tasks[i].ID == id && f.tasks[i].Status == from {
			f.tasks[i].Status = to
			return nil
		}
	}
	return errors.New("status mismatch")
}

func (f *fakeRepo) AppendStep(_ context.Context, id uuid.UUID, step domain.StepRecord) error {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Steps = append(f.tasks[i].Steps, step)
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) CountActiveByTarget(_ context.Context, target domain.TargetKind, targetID string) (int, error) {
	count := 0
	for _, t := range f.tasks {
		if t.Target == target && t.TargetID == targetID && !t.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

// fakeNotifier records published topics.
type fakeNotifier struct {
	topics []string
}

func (f *fakeNotifier) Publish(_ context.Context, topic string, _ any) error {
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeNotifier) Namespace() string { return "test" }

func TestStore_ScheduleCreatesPendingTask(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	store := NewStore(StoreConfig{Repo: repo, Notifier: notifier})

	steps := []domain.StepRecord{
		domain.InfoStep("SCHEDULED", map[string]any{"name": "data", "size": "10Gi"}),
	}
	task, err := store.Schedule(context.Background(), domain.TaskProvisionVolume, domain.TargetWorkspace, "ws1", steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.Status != domain.TaskStatusPending {
		t.Errorf("expected PENDING, got %s", task.Status)
	}
	if task.TaskID == "" || strings.ContainsAny(task.TaskID, "$@") {
		t.Errorf("public task id %q must be topic-safe", task.TaskID)
	}
	if len(repo.tasks) != 1 {
		t.Fatal("task should be persisted")
	}

	// Notification is keyed by the storage row id, not the public id.
	if len(notifier.topics) != 1 {
		t.Fatal("a new-task notification should be published")
	}
	want := "test/task/new/" + task.ID.String()
	if notifier.topics[0] != want {
		t.Errorf("expected topic %s, got %s", want, notifier.topics[0])
	}
}

func TestStore_ListReturnsChronologicalOrder(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(StoreConfig{Repo: repo, Notifier: &fakeNotifier{}})

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		repo.tasks = append(repo.tasks, domain.Task{
			ID:        uuid.New(),
			TaskID:    "t" + string(rune('a'+i)),
			Type:      domain.TaskProvisionVolume,
			Target:    domain.TargetWorkspace,
			TargetID:  "ws1",
			Status:    domain.TaskStatusDone,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	views, err := store.List(context.Background(), domain.TargetWorkspace, "ws1")
	if err != nil {
		t.Fatal(err)
	}

	// Only the last 10, oldest of them first.
	if len(views) != 10 {
		t.Fatalf("expected 10 views, got %d", len(views))
	}
	for i := 1; i < len(views); i++ {
		if views[i].CreatedAt.Before(views[i-1].CreatedAt) {
			t.Fatal("views must be in chronological order")
		}
	}
	if views[0].TaskID != "tc" {
		t.Errorf("expected oldest listed task tc, got %s", views[0].TaskID)
	}
}

func TestStore_HasActive(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(StoreConfig{Repo: repo, Notifier: &fakeNotifier{}})

	busy, err := store.HasActive(context.Background(), domain.TargetWorkspace, "ws1")
	if err != nil || busy {
		t.Fatalf("fresh target should not be busy (busy=%v err=%v)", busy, err)
	}

	_, _ = store.Schedule(context.Background(), domain.TaskBindVolume, domain.TargetWorkspace, "ws1", nil)

	busy, err = store.HasActive(context.Background(), domain.TargetWorkspace, "ws1")
	if err != nil || !busy {
		t.Fatalf("target with a PENDING task should be busy (busy=%v err=%v)", busy, err)
	}
}
