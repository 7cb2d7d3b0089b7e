package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskType — тип provisioning-задачи.
type TaskType string

// Типы задач.
const (
	TaskCreateK8SCluster      TaskType = "CREATE-K8S-CLUSTER"
	TaskUpdateK8SCluster      TaskType = "UPDATE-K8S-CLUSTER"
	TaskProvisionVolume       TaskType = "PROVISION-VOLUME"
	TaskDeprovisionVolume     TaskType = "DEPROVISION-VOLUME"
	TaskBindVolume            TaskType = "BIND-VOLUME"
	TaskUnbindVolume          TaskType = "UNBIND-VOLUME"
	TaskProvisionService      TaskType = "PROVISION-SERVICE"
	TaskDeprovisionService    TaskType = "DEPROVISION-SERVICE"
	TaskProvisionApp          TaskType = "PROVISION-APPLICATION"
	TaskDeprovisionApp        TaskType = "DEPROVISION-APPLICATION"
	TaskProvisionRoute        TaskType = "PROVISION-ROUTE"
	TaskDeprovisionRoute      TaskType = "DEPROVISION-ROUTE"
	TaskDeployImage           TaskType = "DEPLOY-IMAGE"
	TaskDeleteImage           TaskType = "DELETE-IMAGE"
	TaskDeprovisionWorkspace  TaskType = "DEPROVISION-WORKSPACE-RESOURCES"
	TaskDeprovisionOrg        TaskType = "DEPROVISION-ORGANIZATION"
)

// Label возвращает человекочитаемое название типа задачи.
func (t TaskType) Label() string {
	switch t {
	case TaskCreateK8SCluster:
		return "Create Kubernetes cluster"
	case TaskUpdateK8SCluster:
		return "Update Kubernetes cluster"
	case TaskProvisionVolume:
		return "Provision volume"
	case TaskDeprovisionVolume:
		return "Deprovision volume"
	case TaskBindVolume:
		return "Bind volume"
	case TaskUnbindVolume:
		return "Unbind volume"
	case TaskProvisionService:
		return "Provision service"
	case TaskDeprovisionService:
		return "Deprovision service"
	case TaskProvisionApp:
		return "Provision application"
	case TaskDeprovisionApp:
		return "Deprovision application"
	case TaskProvisionRoute:
		return "Provision route"
	case TaskDeprovisionRoute:
		return "Deprovision route"
	case TaskDeployImage:
		return "Deploy image"
	case TaskDeleteImage:
		return "Delete image"
	case TaskDeprovisionWorkspace:
		return "Deprovision workspace resources"
	case TaskDeprovisionOrg:
		return "Deprovision organization"
	default:
		return string(t)
	}
}

// TargetKind — вид ресурса, к которому привязана задача.
type TargetKind string

const (
	// TargetWorkspace — задача относится к workspace.
	TargetWorkspace TargetKind = "workspace"

	// TargetOrganization — задача относится к организации.
	TargetOrganization TargetKind = "organization"
)

// Task — одна persisted provisioning-задача.
//
// Создаётся оркестратором через Store.Schedule; выполняется агентом
// на удалённом хосте, который обновляет статус и дописывает шаги
// во внеполосном режиме. Задачи не удаляются, кроме каскадного
// сноса workspace/организации.
type Task struct {
	// ID — ключ хранения (строка БД).
	ID uuid.UUID `json:"id"`

	// TaskID — публичный корреляционный идентификатор.
	TaskID string `json:"task_id"`

	// Type — тип задачи.
	Type TaskType `json:"type"`

	// Target/TargetID — полиморфная ссылка на ресурс.
	Target   TargetKind `json:"target"`
	TargetID string     `json:"target_id"`

	// Status — текущий статус. Движется только вперёд:
	// PENDING → IN_PROGRESS → {DONE, ERROR}.
	Status TaskStatus `json:"status"`

	// Steps — упорядоченный append-only журнал шагов.
	// Первая запись фиксирует входные параметры операции.
	Steps []StepRecord `json:"steps"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения статуса или журнала.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinished возвращает true, если задача завершена.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// FirstStep возвращает первую запись журнала (входные параметры)
// или nil, если журнал пуст.
func (t *Task) FirstStep() *StepRecord {
	if len(t.Steps) == 0 {
		return nil
	}
	return &t.Steps[0]
}
