package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/Kontur/internal/domain"
)

// listLimit — размер страницы журнала задач.
const listLimit = 10

// View — read-side проекция задачи для отображения.
// Чистая презентационная логика, без конкурентных забот.
type View struct {
	TaskID    string              `json:"task_id"`
	Type      domain.TaskType     `json:"type"`
	Label     string              `json:"label"`
	Details   string              `json:"details"`
	Status    domain.TaskStatus   `json:"status"`
	Steps     []domain.StepRecord `json:"steps"`
	CreatedAt time.Time           `json:"created_at"`
}

// project строит View из задачи.
//
// Журнал шагов усечён по статусу: PENDING/IN_PROGRESS/DONE показывают
// только первую запись; ERROR дополнительно сохраняет ERROR-записи.
func project(t *domain.Task) View {
	return View{
		TaskID:    t.TaskID,
		Type:      t.Type,
		Label:     t.Type.Label(),
		Details:   details(t),
		Status:    t.Status,
		Steps:     truncateSteps(t),
		CreatedAt: t.CreatedAt,
	}
}

// truncateSteps возвращает усечённый журнал согласно статусу.
func truncateSteps(t *domain.Task) []domain.StepRecord {
	if len(t.Steps) == 0 {
		return nil
	}

	out := []domain.StepRecord{t.Steps[0]}
	if t.Status != domain.TaskStatusError {
		return out
	}

	for _, s := range t.Steps[1:] {
		if s.Kind == domain.StepError {
			out = append(out, s)
		}
	}
	return out
}

// details собирает строку деталей из параметров и флагов первой записи.
func details(t *domain.Task) string {
	first := t.FirstStep()
	if first == nil {
		return ""
	}
	params := first.Params

	var d string
	switch t.Type {
	case domain.TaskBindVolume, domain.TaskUnbindVolume:
		d = fmt.Sprintf("volume %s → %s", str(params, "name"), str(params, "target"))
	case domain.TaskProvisionVolume:
		d = fmt.Sprintf("volume %s (%s)", str(params, "name"), str(params, "size"))
	case domain.TaskDeprovisionVolume:
		d = fmt.Sprintf("volume %s", str(params, "name"))
	case domain.TaskCreateK8SCluster, domain.TaskUpdateK8SCluster:
		d = fmt.Sprintf("nodes=%s", str(params, "nodes"))
	case domain.TaskProvisionService, domain.TaskDeprovisionService:
		d = fmt.Sprintf("service %s", str(params, "name"))
	case domain.TaskProvisionApp, domain.TaskDeprovisionApp:
		d = fmt.Sprintf("application %s", str(params, "name"))
	case domain.TaskProvisionRoute, domain.TaskDeprovisionRoute:
		d = fmt.Sprintf("route %s", str(params, "domain"))
	case domain.TaskDeployImage, domain.TaskDeleteImage:
		d = str(params, "image")
	default:
		d = str(params, "name")
	}

	if len(first.Flags) > 0 {
		d = strings.TrimSpace(d + " [" + strings.Join(first.Flags, ",") + "]")
	}
	return d
}

// str достаёт строковый параметр (пустая строка, если нет).
func str(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	switch v := params[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}
