package tasks

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Kontur/internal/domain"
)

// Параметры уборки по умолчанию.
const (
	// reaperSchedule — расписание прохода.
	reaperSchedule = "@every 10m"

	// staleAfterMinutes — возраст PENDING-задачи, после которого она
	// считается потерянной (агент так и не взял её в работу).
	staleAfterMinutes = 60

	// reaperBatchSize — задач за один проход.
	reaperBatchSize = 100
)

// Reaper закрывает задачи, застрявшие в PENDING.
//
// Уведомление о новой задаче — fire-and-forget: если все агенты были
// офлайн, задача может остаться невзятой навсегда. Reaper переводит
// такие задачи в ERROR с финальной записью журнала.
type Reaper struct {
	repo   Repository
	logger *slog.Logger
	cron   *cron.Cron
}

// NewReaper создаёт Reaper.
func NewReaper(repo Repository, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		repo:   repo,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start запускает периодическую уборку.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(reaperSchedule, func() {
		r.Sweep(context.Background())
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("task reaper started", "schedule", reaperSchedule)
	return nil
}

// Stop останавливает уборку.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("task reaper stopped")
}

// Sweep выполняет один проход уборки.
func (r *Reaper) Sweep(ctx context.Context) {
	stale, err := r.repo.ListStalePending(ctx, staleAfterMinutes, reaperBatchSize)
	if err != nil {
		r.logger.Error("failed to list stale tasks", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	r.logger.Warn("reaping stale pending tasks", "count", len(stale))

	for i := range stale {
		task := &stale[i]

		if err := r.repo.UpdateStatus(ctx, task.ID, domain.TaskStatusPending, domain.TaskStatusError); err != nil {
			// Агент успел взять задачу между выборкой и обновлением.
			r.logger.Debug("stale task already progressed", "task_id", task.TaskID, "error", err)
			continue
		}

		step := domain.ErrorStep("EXPIRED", map[string]any{
			"reason": "no agent picked up the task",
		})
		if err := r.repo.AppendStep(ctx, task.ID, step); err != nil {
			r.logger.Error("failed to append expiry step", "task_id", task.TaskID, "error", err)
		}

		r.logger.Warn("task expired", "task_id", task.TaskID, "type", task.Type)
	}
}
