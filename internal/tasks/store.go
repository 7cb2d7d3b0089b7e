package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// Repository — хранилище задач (реализуется repo.TaskRepo).
type Repository interface {
	Create(ctx context.Context, task *domain.Task) error
	ListByTarget(ctx context.Context, target domain.TargetKind, targetID string, limit int) ([]domain.Task, error)
	ListStalePending(ctx context.Context, olderThanMinutes, limit int) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TaskStatus) error
	AppendStep(ctx context.Context, id uuid.UUID, step domain.StepRecord) error
	CountActiveByTarget(ctx context.Context, target domain.TargetKind, targetID string) (int, error)
}

// Notifier — шина для уведомления агентов о новой работе
// (реализуется bus.Transport).
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) error
	Namespace() string
}

// Store — durable-очередь provisioning-задач.
type Store struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

// StoreConfig — конфигурация Store.
type StoreConfig struct {
	Repo     Repository
	Notifier Notifier
	Logger   *slog.Logger
}

// NewStore создаёт Store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:     cfg.Repo,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Schedule создаёт задачу в статусе PENDING и уведомляет агентов.
//
// Публичный идентификатор тянется тем же генератором, что и
// корреляционные идентификаторы; уникальность в хранилище
// обеспечивает первичный ключ. Уведомление ключуется строкой БД,
// а не публичным идентификатором.
func (s *Store) Schedule(ctx context.Context, taskType domain.TaskType, target domain.TargetKind, targetID string, initialSteps []domain.StepRecord) (*domain.Task, error) {
	now := time.Now()
	task := &domain.Task{
		ID:        uuid.New(),
		TaskID:    bus.NewTopicID(),
		Type:      taskType,
		Target:    target,
		TargetID:  targetID,
		Status:    domain.TaskStatusPending,
		Steps:     initialSteps,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	telemetry.ScheduledTasks.WithLabelValues(string(taskType)).Inc()

	topic := bus.TaskNewTopic(s.notifier.Namespace(), task.ID.String())
	if err := s.notifier.Publish(ctx, topic, nil); err != nil {
		// Задача уже в БД; агент подхватит её при следующем уведомлении.
		s.logger.Warn("failed to publish task notification",
			"task_id", task.TaskID,
			"error", err,
		)
	}

	s.logger.Info("task scheduled",
		"task_id", task.TaskID,
		"type", taskType,
		"target", target,
		"target_id", targetID,
	)
	return task, nil
}

// List возвращает последние задачи цели в хронологическом порядке,
// спроецированные для отображения.
func (s *Store) List(ctx context.Context, target domain.TargetKind, targetID string) ([]View, error) {
	tasks, err := s.repo.ListByTarget(ctx, target, targetID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	// БД отдаёт новые первыми; проекция — в хронологическом порядке.
	views := make([]View, 0, len(tasks))
	for i := len(tasks) - 1; i >= 0; i-- {
		views = append(views, project(&tasks[i]))
	}
	return views, nil
}

// HasActive сообщает, есть ли у цели незавершённые задачи
// (busy-check для precondition-цепочек оркестраторов).
func (s *Store) HasActive(ctx context.Context, target domain.TargetKind, targetID string) (bool, error) {
	count, err := s.repo.CountActiveByTarget(ctx, target, targetID)
	if err != nil {
		return false, fmt.Errorf("count active tasks: %w", err)
	}
	return count > 0, nil
}
