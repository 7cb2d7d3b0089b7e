package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Kontur/internal/domain"
)

// TaskRepo — репозиторий provisioning-задач.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create создаёт новую задачу.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	stepsJSON, err := json.Marshal(task.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		INSERT INTO tasks (id, task_id, type, target, target_id, status, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		task.ID,
		task.TaskID,
		task.Type,
		task.Target,
		task.TargetID,
		task.Status,
		stepsJSON,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID возвращает задачу по ключу хранения.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, task_id, type, target, target_id, status, steps, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`
	return r.scanTask(r.pool.QueryRow(ctx, query, id))
}

// GetByTaskID возвращает задачу по публичному идентификатору.
func (r *TaskRepo) GetByTaskID(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `
		SELECT id, task_id, type, target, target_id, status, steps, created_at, updated_at
		FROM tasks
		WHERE task_id = $1
	`
	return r.scanTask(r.pool.QueryRow(ctx, query, taskID))
}

// ListByTarget возвращает последние limit задач цели, новые первыми.
func (r *TaskRepo) ListByTarget(ctx context.Context, target domain.TargetKind, targetID string, limit int) ([]domain.Task, error) {
	query := `
		SELECT id, task_id, type, target, target_id, status, steps, created_at, updated_at
		FROM tasks
		WHERE target = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, target, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks by target: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateStatus переводит задачу из from в to.
//
// Переход проверяется и в домене, и в SQL (WHERE по текущему статусу):
// конкурирующее обновление не может отбросить статус назад.
func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TaskStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidState, from, to)
	}

	query := `
		UPDATE tasks
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`
	result, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// AppendStep дописывает запись в журнал шагов задачи.
func (r *TaskRepo) AppendStep(ctx context.Context, id uuid.UUID, step domain.StepRecord) error {
	stepJSON, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("marshal step: %w", err)
	}

	query := `
		UPDATE tasks
		SET steps = steps || $2::jsonb, updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, stepJSON)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveByTarget возвращает количество незавершённых задач цели.
func (r *TaskRepo) CountActiveByTarget(ctx context.Context, target domain.TargetKind, targetID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE target = $1 AND target_id = $2 AND status IN ('PENDING', 'IN_PROGRESS')
	`, target, targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active tasks: %w", err)
	}
	return count, nil
}

// ListStalePending возвращает задачи, застрявшие в PENDING дольше
// cutoff (для reaper'а).
func (r *TaskRepo) ListStalePending(ctx context.Context, olderThanMinutes int, limit int) ([]domain.Task, error) {
	query := `
		SELECT id, task_id, type, target, target_id, status, steps, created_at, updated_at
		FROM tasks
		WHERE status = 'PENDING' AND created_at < now() - make_interval(mins => $1)
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, olderThanMinutes, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// DeleteByTarget удаляет задачи цели (каскадный снос workspace/организации).
func (r *TaskRepo) DeleteByTarget(ctx context.Context, target domain.TargetKind, targetID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM tasks WHERE target = $1 AND target_id = $2
	`, target, targetID)
	if err != nil {
		return fmt.Errorf("delete tasks by target: %w", err)
	}
	return nil
}

// scanTask читает задачу из строки результата.
func (r *TaskRepo) scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var stepsJSON []byte

	err := row.Scan(
		&task.ID,
		&task.TaskID,
		&task.Type,
		&task.Target,
		&task.TargetID,
		&task.Status,
		&stepsJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if stepsJSON != nil {
		if err := json.Unmarshal(stepsJSON, &task.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
	}

	return &task, nil
}
