package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/domain"
)

type fakeTasks struct {
	task   domain.Task
	steps  []domain.StepRecord
	status []domain.TaskStatus
}

func (f *fakeTasks) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	if id != f.task.ID {
		return nil, errors.New("not found")
	}
	t := f.task
	return &t, nil
}

func (f *fakeTasks) UpdateStatus(_ context.Context, _ uuid.UUID, from, to domain.TaskStatus) error {
	if f.task.Status != from {
		return errors.New("status mismatch")
	}
	f.task.Status = to
	f.status = append(f.status, to)
	return nil
}

func (f *fakeTasks) AppendStep(_ context.Context, _ uuid.UUID, step domain.StepRecord) error {
	f.steps = append(f.steps, step)
	return nil
}

type published struct {
	topic   string
	payload any
}

type fakeNotifier struct {
	messages []published
}

func (f *fakeNotifier) Publish(_ context.Context, topic string, payload any) error {
	f.messages = append(f.messages, published{topic, payload})
	return nil
}

func (f *fakeNotifier) Namespace() string { return "test" }

func pendingTask(taskType domain.TaskType, params map[string]any) domain.Task {
	return domain.Task{
		ID:     uuid.New(),
		TaskID: "abc123",
		Type:   taskType,
		Status: domain.TaskStatusPending,
		Steps:  []domain.StepRecord{domain.InfoStep("SCHEDULED", params)},
	}
}

func TestRunner_SuccessfulTask(t *testing.T) {
	registry := NewRegistry()
	var executed []map[string]any
	registry.Register("create_pv", ActionFunc(func(_ context.Context, params map[string]any) (map[string]any, error) {
		executed = append(executed, params)
		return map[string]any{"pv": "data"}, nil
	}))

	tasks := &fakeTasks{task: pendingTask(domain.TaskProvisionVolume, map[string]any{
		"name": "data", "size": "10Gi", "session": "sess1",
	})}
	notifier := &fakeNotifier{}
	runner := NewRunner(registry, tasks, notifier, nil)

	taskCopy := tasks.task
	runner.Run(context.Background(), &taskCopy)

	if len(executed) != 1 || executed[0]["name"] != "data" {
		t.Fatalf("action must run with the scheduled params, got %v", executed)
	}
	if tasks.task.Status != domain.TaskStatusDone {
		t.Errorf("expected DONE, got %s", tasks.task.Status)
	}
	// Status must move forward: IN_PROGRESS then DONE.
	if len(tasks.status) != 2 || tasks.status[0] != domain.TaskStatusInProgress || tasks.status[1] != domain.TaskStatusDone {
		t.Errorf("unexpected status sequence: %v", tasks.status)
	}
	if len(tasks.steps) != 1 || tasks.steps[0].Step != "CREATE_PV" || tasks.steps[0].Kind != domain.StepInfo {
		t.Errorf("expected one CREATE_PV info step, got %v", tasks.steps)
	}

	// Progress event plus the closing event, addressed to the session.
	if len(notifier.messages) != 2 {
		t.Fatalf("expected 2 session events, got %d", len(notifier.messages))
	}
	for _, m := range notifier.messages {
		if !strings.HasSuffix(m.topic, "/sess1") {
			t.Errorf("event must target the caller session, got %s", m.topic)
		}
	}
	last := notifier.messages[1].payload.(map[string]any)
	if last["kind"] != "done" {
		t.Errorf("final event must close the session, got %v", last["kind"])
	}
}

func TestRunner_FailingActionMarksTaskError(t *testing.T) {
	registry := NewRegistry()
	registry.Register("create_pv", ActionFunc(func(context.Context, map[string]any) (map[string]any, error) {
		return nil, errors.New("quota exceeded")
	}))

	tasks := &fakeTasks{task: pendingTask(domain.TaskProvisionVolume, map[string]any{
		"name": "data", "session": "sess1",
	})}
	notifier := &fakeNotifier{}
	runner := NewRunner(registry, tasks, notifier, nil)

	taskCopy := tasks.task
	runner.Run(context.Background(), &taskCopy)

	if tasks.task.Status != domain.TaskStatusError {
		t.Fatalf("expected ERROR, got %s", tasks.task.Status)
	}
	if len(tasks.steps) != 1 || tasks.steps[0].Kind != domain.StepError {
		t.Fatalf("expected an ERROR step, got %v", tasks.steps)
	}
	if tasks.steps[0].Params["error"] != "quota exceeded" {
		t.Errorf("error step must carry the cause, got %v", tasks.steps[0].Params)
	}

	event := notifier.messages[len(notifier.messages)-1].payload.(map[string]any)
	if event["kind"] != "error" {
		t.Errorf("failure must emit an error event, got %v", event["kind"])
	}
	if event["message"] != "quota exceeded" {
		t.Errorf("error event must carry the cause message, got %v", event["message"])
	}
}

func TestRunner_ClaimedTaskIsSkipped(t *testing.T) {
	registry := NewRegistry()
	registry.Register("create_pv", ActionFunc(func(context.Context, map[string]any) (map[string]any, error) {
		t.Fatal("no action may run for a claimed task")
		return nil, nil
	}))

	tasks := &fakeTasks{task: pendingTask(domain.TaskProvisionVolume, nil)}
	tasks.task.Status = domain.TaskStatusInProgress

	runner := NewRunner(registry, tasks, &fakeNotifier{}, nil)
	taskCopy := tasks.task
	taskCopy.Status = domain.TaskStatusPending
	runner.Run(context.Background(), &taskCopy)

	if len(tasks.steps) != 0 {
		t.Error("no steps may be appended to a claimed task")
	}
}

func TestRunner_NoSessionMeansNoEvents(t *testing.T) {
	registry := NewRegistry()
	registry.Register("create_pv", ActionFunc(func(context.Context, map[string]any) (map[string]any, error) {
		return nil, nil
	}))

	tasks := &fakeTasks{task: pendingTask(domain.TaskProvisionVolume, map[string]any{"name": "data"})}
	notifier := &fakeNotifier{}
	runner := NewRunner(registry, tasks, notifier, nil)

	taskCopy := tasks.task
	runner.Run(context.Background(), &taskCopy)

	if len(notifier.messages) != 0 {
		t.Errorf("no events expected without a session, got %d", len(notifier.messages))
	}
}

func TestPlan_CoversEveryTaskType(t *testing.T) {
	types := []domain.TaskType{
		domain.TaskCreateK8SCluster, domain.TaskUpdateK8SCluster,
		domain.TaskProvisionVolume, domain.TaskDeprovisionVolume,
		domain.TaskBindVolume, domain.TaskUnbindVolume,
		domain.TaskProvisionService, domain.TaskDeprovisionService,
		domain.TaskProvisionApp, domain.TaskDeprovisionApp,
		domain.TaskProvisionRoute, domain.TaskDeprovisionRoute,
		domain.TaskDeployImage, domain.TaskDeleteImage,
		domain.TaskDeprovisionWorkspace, domain.TaskDeprovisionOrg,
	}
	for _, taskType := range types {
		steps, err := plan(taskType)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", taskType, err)
		}
		if len(steps) == 0 {
			t.Errorf("%s: empty plan", taskType)
		}
	}

	if _, err := plan(domain.TaskType("NOPE")); !errors.Is(err, ErrUnknownTaskType) {
		t.Errorf("expected ErrUnknownTaskType, got %v", err)
	}
}

func TestRegistry_UnknownAction(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get("missing"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestDeploymentName(t *testing.T) {
	cases := map[string]string{
		"nginx":                    "nginx",
		"nginx:1.27":               "nginx",
		"registry.io/team/web:1.2": "web",
	}
	for image, want := range cases {
		if got := deploymentName(image); got != want {
			t.Errorf("%s: expected %s, got %s", image, want, got)
		}
	}
}
