package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Kontur/internal/domain"
)

// HostRepo — репозиторий хостов.
//
// Оркестраторы только читают записи хостов для разрешения целевого
// адреса; запись принадлежит слою хранения ресурсов.
type HostRepo struct {
	pool *pgxpool.Pool
}

// NewHostRepo создаёт новый HostRepo.
func NewHostRepo(pool *pgxpool.Pool) *HostRepo {
	return &HostRepo{pool: pool}
}

// GetMaster возвращает master-хост workspace.
func (r *HostRepo) GetMaster(ctx context.Context, workspaceID string) (*domain.Host, error) {
	query := `
		SELECT id, workspace_id, ip, role, created_at
		FROM hosts
		WHERE workspace_id = $1 AND role = 'master'
		LIMIT 1
	`
	return r.scanHost(r.pool.QueryRow(ctx, query, workspaceID))
}

// ListByWorkspace возвращает хосты workspace.
func (r *HostRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Host, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workspace_id, ip, role, created_at
		FROM hosts
		WHERE workspace_id = $1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []domain.Host
	for rows.Next() {
		h, err := r.scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, *h)
	}
	return hosts, rows.Err()
}

// scanHost читает хост из строки результата.
func (r *HostRepo) scanHost(row pgx.Row) (*domain.Host, error) {
	var h domain.Host
	err := row.Scan(&h.ID, &h.WorkspaceID, &h.IP, &h.Role, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan host: %w", err)
	}
	return &h, nil
}
