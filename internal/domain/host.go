package domain

import (
	"time"

	"github.com/google/uuid"
)

// HostRole — роль хоста в кластере workspace.
type HostRole string

const (
	// HostRoleMaster — control-plane узел; адресат корреляционных запросов.
	HostRoleMaster HostRole = "master"

	// HostRoleWorker — рабочий узел.
	HostRoleWorker HostRole = "worker"
)

// Host — запись хоста, на котором работает агент.
//
// Оркестраторы только читают эти записи (для разрешения целевого IP);
// владеет ими слой хранения ресурсов.
type Host struct {
	// ID — ключ хранения.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — workspace, которому принадлежит хост.
	WorkspaceID string `json:"workspace_id"`

	// IP — адрес хоста, сегмент query-топика.
	IP string `json:"ip"`

	// Role — master или worker.
	Role HostRole `json:"role"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}
