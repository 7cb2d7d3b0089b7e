package flows

import (
	"context"
	"time"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/rpc"
)

// Caller — контекст вызывающего, который фасад передаёт в каждую
// операцию оркестратора.
type Caller struct {
	// AccountID — учётная запись, от имени которой выполняется вызов.
	AccountID string

	// SessionID — сессия клиента для out-of-band событий (может быть
	// пустой, если клиент не подписан на события).
	SessionID string
}

// Authorizer — внешний предикат прав: может ли учётная запись
// управлять целью (workspace или организацией).
type Authorizer interface {
	CanManage(ctx context.Context, accountID, targetID string) (bool, error)
}

// HostResolver отдаёт master-хост workspace'а для адресации
// удалённых вызовов (реализуется repo.HostRepo).
type HostResolver interface {
	GetMaster(ctx context.Context, workspaceID string) (*domain.Host, error)
}

// BindingStore — хранилище привязок томов (реализуется repo.BindingRepo).
type BindingStore interface {
	Create(ctx context.Context, b *domain.VolumeBinding) error
	Delete(ctx context.Context, workspaceID, volumeName, target string) error
	Exists(ctx context.Context, workspaceID, volumeName, target string) (bool, error)
	CountByWorkspace(ctx context.Context, workspaceID string) (int, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.VolumeBinding, error)
	DeleteByWorkspace(ctx context.Context, workspaceID string) error
}

// TaskGate — проверка занятости цели (реализуется tasks.Store).
type TaskGate interface {
	HasActive(ctx context.Context, target domain.TargetKind, targetID string) (bool, error)
}

// Scheduler ставит долгие задачи в очередь (реализуется tasks.Store).
type Scheduler interface {
	Schedule(ctx context.Context, taskType domain.TaskType, target domain.TargetKind, targetID string, initialSteps []domain.StepRecord) (*domain.Task, error)
}

// TaskPurger удаляет журнал задач цели при каскадном сносе
// (реализуется repo.TaskRepo).
type TaskPurger interface {
	DeleteByTarget(ctx context.Context, target domain.TargetKind, targetID string) error
}

// Exchanger — коррелированный запрос к удалённому хосту
// (реализуется rpc.Correlator). Нулевой timeout — значение по
// умолчанию корреляторa.
type Exchanger interface {
	Exchange(ctx context.Context, targetHost, taskName string, payload map[string]any, timeout time.Duration) (*rpc.Reply, error)
}
