package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessRepo — репозиторий прав доступа.
//
// Аутентификацию выполняет внешний шлюз; здесь проверяется только
// владение: может ли аккаунт управлять workspace'ом или организацией.
// Запись грантов принадлежит биллингу.
type AccessRepo struct {
	pool *pgxpool.Pool
}

// NewAccessRepo создаёт новый AccessRepo.
func NewAccessRepo(pool *pgxpool.Pool) *AccessRepo {
	return &AccessRepo{pool: pool}
}

// CanManage сообщает, есть ли у аккаунта грант на цель.
func (r *AccessRepo) CanManage(ctx context.Context, accountID, targetID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_grants
			WHERE account_id = $1 AND target_id = $2
		)
	`, accountID, targetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check access: %w", err)
	}
	return exists, nil
}
