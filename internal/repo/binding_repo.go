package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Kontur/internal/domain"
)

// BindingRepo — репозиторий привязок томов.
type BindingRepo struct {
	pool *pgxpool.Pool
}

// NewBindingRepo создаёт новый BindingRepo.
func NewBindingRepo(pool *pgxpool.Pool) *BindingRepo {
	return &BindingRepo{pool: pool}
}

// Create создаёт привязку. Уникальность (workspace, volume, target)
// обеспечивается ограничением БД.
func (r *BindingRepo) Create(ctx context.Context, b *domain.VolumeBinding) error {
	query := `
		INSERT INTO volume_bindings (id, workspace_id, volume_name, target, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, b.ID, b.WorkspaceID, b.VolumeName, b.Target, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert binding: %w", err)
	}
	return nil
}

// Delete удаляет привязку.
func (r *BindingRepo) Delete(ctx context.Context, workspaceID, volumeName, target string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM volume_bindings
		WHERE workspace_id = $1 AND volume_name = $2 AND target = $3
	`, workspaceID, volumeName, target)
	if err != nil {
		return fmt.Errorf("delete binding: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists проверяет, существует ли привязка тома к цели.
func (r *BindingRepo) Exists(ctx context.Context, workspaceID, volumeName, target string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM volume_bindings
			WHERE workspace_id = $1 AND volume_name = $2 AND target = $3
		)
	`, workspaceID, volumeName, target).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check binding exists: %w", err)
	}
	return exists, nil
}

// CountByWorkspace возвращает количество привязок workspace.
func (r *BindingRepo) CountByWorkspace(ctx context.Context, workspaceID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM volume_bindings WHERE workspace_id = $1
	`, workspaceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bindings: %w", err)
	}
	return count, nil
}

// ListByWorkspace возвращает привязки workspace.
func (r *BindingRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.VolumeBinding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workspace_id, volume_name, target, created_at
		FROM volume_bindings
		WHERE workspace_id = $1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []domain.VolumeBinding
	for rows.Next() {
		var b domain.VolumeBinding
		if err := rows.Scan(&b.ID, &b.WorkspaceID, &b.VolumeName, &b.Target, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// DeleteByWorkspace удаляет все привязки workspace (каскадный снос).
func (r *BindingRepo) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM volume_bindings WHERE workspace_id = $1
	`, workspaceID)
	if err != nil {
		return fmt.Errorf("delete bindings by workspace: %w", err)
	}
	return nil
}
