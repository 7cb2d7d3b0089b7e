package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxBindingsPerWorkspace — предел одновременных привязок томов
// на один workspace.
const MaxBindingsPerWorkspace = 20

// VolumeBinding — привязка тома к цели внутри workspace.
//
// Один и тот же том не может быть привязан к одной цели дважды.
type VolumeBinding struct {
	// ID — ключ хранения.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — workspace, которому принадлежит привязка.
	WorkspaceID string `json:"workspace_id"`

	// VolumeName — имя тома.
	VolumeName string `json:"volume_name"`

	// Target — цель привязки (имя сервиса или приложения).
	Target string `json:"target"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}
