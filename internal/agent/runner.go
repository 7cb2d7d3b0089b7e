package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// TaskSource — хранилище задач (реализуется repo.TaskRepo).
type TaskSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TaskStatus) error
	AppendStep(ctx context.Context, id uuid.UUID, step domain.StepRecord) error
}

// Notifier — публикация событий выполнения в сессию клиента.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) error
	Namespace() string
}

// plan возвращает последовательность действий для типа задачи.
func plan(t domain.TaskType) ([]string, error) {
	switch t {
	case domain.TaskCreateK8SCluster:
		return []string{"provision_cluster"}, nil
	case domain.TaskUpdateK8SCluster:
		return []string{"update_cluster"}, nil
	case domain.TaskProvisionVolume:
		return []string{"create_pv"}, nil
	case domain.TaskDeprovisionVolume:
		return []string{"delete_pv"}, nil
	case domain.TaskBindVolume:
		return []string{"create_pvc"}, nil
	case domain.TaskUnbindVolume:
		return []string{"delete_pvc"}, nil
	case domain.TaskProvisionService, domain.TaskProvisionApp:
		return []string{"create_namespace"}, nil
	case domain.TaskDeprovisionService, domain.TaskDeprovisionApp:
		return []string{"delete_namespace"}, nil
	case domain.TaskProvisionRoute:
		return []string{"create_ingress"}, nil
	case domain.TaskDeprovisionRoute:
		return []string{"delete_ingress"}, nil
	case domain.TaskDeployImage:
		return []string{"deploy_image"}, nil
	case domain.TaskDeleteImage:
		return []string{"delete_image"}, nil
	case domain.TaskDeprovisionWorkspace, domain.TaskDeprovisionOrg:
		return []string{"delete_namespace"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, t)
	}
}

// Runner исполняет одну задачу: переводит её в IN_PROGRESS, гонит
// план действий с записью шагов и закрывает DONE либо ERROR.
type Runner struct {
	registry *Registry
	tasks    TaskSource
	notifier Notifier
	logger   *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(registry *Registry, tasks TaskSource, notifier Notifier, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
	}
}

// Run исполняет задачу. Захват — через переход PENDING → IN_PROGRESS:
// если он не удался, задачу забрал другой агент.
func (r *Runner) Run(ctx context.Context, task *domain.Task) {
	logger := telemetry.WithTaskID(r.logger, task.TaskID).With("type", task.Type)

	if err := r.tasks.UpdateStatus(ctx, task.ID, domain.TaskStatusPending, domain.TaskStatusInProgress); err != nil {
		logger.Debug("task already claimed", "error", err)
		return
	}

	var params map[string]any
	session := ""
	if first := task.FirstStep(); first != nil {
		params = first.Params
		session = getString(params, "session", "")
	}

	steps, err := plan(task.Type)
	if err != nil {
		r.fail(ctx, task, session, "PLAN", err)
		return
	}

	for _, actionName := range steps {
		stepName := strings.ToUpper(actionName)

		action, err := r.registry.Get(actionName)
		if err != nil {
			r.fail(ctx, task, session, stepName, err)
			return
		}

		outputs, err := action.Execute(ctx, params)
		if err != nil {
			r.fail(ctx, task, session, stepName, err)
			return
		}

		if err := r.tasks.AppendStep(ctx, task.ID, domain.InfoStep(stepName, outputs)); err != nil {
			logger.Error("failed to append step", "step", stepName, "error", err)
		}
		r.emit(ctx, task, session, relayKindInfo, map[string]any{"step": stepName})
	}

	if err := r.tasks.UpdateStatus(ctx, task.ID, domain.TaskStatusInProgress, domain.TaskStatusDone); err != nil {
		logger.Error("failed to finish task", "error", err)
		return
	}
	logger.Info("task done")

	// Финальное событие закрывает сессию на стороне relay.
	r.emit(ctx, task, session, "done", map[string]any{"task_id": task.TaskID})
}

// fail закрывает задачу с ошибкой и уведомляет сессию.
func (r *Runner) fail(ctx context.Context, task *domain.Task, session, stepName string, cause error) {
	r.logger.Warn("task failed",
		"task_id", task.TaskID,
		"step", stepName,
		"error", cause,
	)

	step := domain.ErrorStep(stepName, map[string]any{"error": cause.Error()})
	if err := r.tasks.AppendStep(ctx, task.ID, step); err != nil {
		r.logger.Error("failed to append error step", "task_id", task.TaskID, "error", err)
	}
	if err := r.tasks.UpdateStatus(ctx, task.ID, domain.TaskStatusInProgress, domain.TaskStatusError); err != nil {
		r.logger.Error("failed to mark task as failed", "task_id", task.TaskID, "error", err)
	}

	// Ключ message: поле error в событии зарезервировано под флаг,
	// который добавляет ретранслятор.
	r.emit(ctx, task, session, relayKindError, map[string]any{
		"step":    stepName,
		"message": cause.Error(),
	})
}

// Виды событий сессии.
const (
	relayKindInfo  = "info"
	relayKindError = "error"
)

// emit публикует событие выполнения в сессию клиента (если она есть).
func (r *Runner) emit(ctx context.Context, task *domain.Task, session, kind string, body map[string]any) {
	if session == "" {
		return
	}
	event := map[string]any{"kind": kind}
	for k, v := range body {
		event[k] = v
	}
	topic := bus.EventTopic(r.notifier.Namespace(), string(task.Type), session)
	if err := r.notifier.Publish(ctx, topic, event); err != nil {
		r.logger.Warn("failed to publish session event", "task_id", task.TaskID, "error", err)
	}
}
