package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/repo"
)

// Шаги PVC-конечного автомата.
const (
	stepCheckNameFree = "CHECK_NAME_FREE"
	stepCreatePV      = "CREATE_PV"
	stepCreatePVC     = "CREATE_PVC"
	stepRollbackPV    = "ROLLBACK_PV_DELETE"
	stepCheckNotInUse = "CHECK_NOT_IN_USE"
	stepDeletePVC     = "DELETE_PVC"
	stepDeletePV      = "DELETE_PV"
	stepRecreatePVC   = "RECREATE_PVC"
)

// stepScheduled — первая запись журнала поставленной задачи;
// её параметры фиксируют вход операции.
const stepScheduled = "SCHEDULED"

// Имена задач агента.
const (
	taskGetResources  = "get_k8s_resources"
	taskCheckPVCInUse = "check_pvc_in_use"
	taskCreatePV      = "create_pv"
	taskCreatePVC     = "create_pvc"
	taskDeletePV      = "delete_pv"
	taskDeletePVC     = "delete_pvc"
)

// Volumes — оркестратор операций над томами и PVC.
type Volumes struct {
	auth     Authorizer
	hosts    HostResolver
	bindings BindingStore
	gate     TaskGate
	sched    Scheduler
	remote   Exchanger
	logger   *slog.Logger
}

// VolumesConfig — конфигурация Volumes.
type VolumesConfig struct {
	Auth     Authorizer
	Hosts    HostResolver
	Bindings BindingStore
	Gate     TaskGate
	Sched    Scheduler
	Remote   Exchanger
	Logger   *slog.Logger
}

// NewVolumes создаёт Volumes.
func NewVolumes(cfg VolumesConfig) *Volumes {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Volumes{
		auth:     cfg.Auth,
		hosts:    cfg.Hosts,
		bindings: cfg.Bindings,
		gate:     cfg.Gate,
		sched:    cfg.Sched,
		remote:   cfg.Remote,
		logger:   logger,
	}
}

// pvcName строит имя claim'а из пользовательского имени.
func pvcName(name string) string {
	return fmt.Sprintf("usr-%s-pvc", name)
}

// CreatePVCRequest — вход CreatePVC.
type CreatePVCRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Namespace   string `json:"ns"`
	Name        string `json:"name"`
	VolumeName  string `json:"volume_name"`
	PVCSize     string `json:"pvc_size"`
}

// CreatePVC создаёт persistent volume и claim поверх него.
//
// CHECK_NAME_FREE → CREATE_PV → CREATE_PVC. Отказ CREATE_PVC
// откатывает созданный PV (ROLLBACK_PV_DELETE); отказ самого отката
// логируется, вызывающему возвращается исходный код.
func (v *Volumes) CreatePVC(ctx context.Context, caller Caller, req CreatePVCRequest) Result {
	if res := runChecks(ctx,
		notBusy(v.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(v.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	host, res := resolveMaster(ctx, v.hosts, req.WorkspaceID)
	if res != nil {
		return *res
	}

	pvc := pvcName(req.Name)
	logger := v.logger.With("workspace_id", req.WorkspaceID, "pvc", pvc)

	reply, err := v.remote.Exchange(ctx, host, taskGetResources, map[string]any{
		"resource":  "pvc",
		"namespace": req.Namespace,
	}, 0)
	if res := checkReply(reply, err); res != nil {
		logger.Warn("pvc flow step failed", "step", stepCheckNameFree, "code", res.Code)
		return *res
	}
	if hasResource(reply.Data, pvc) {
		return Fail(http.StatusConflict)
	}

	reply, err = v.remote.Exchange(ctx, host, taskCreatePV, map[string]any{
		"name":   req.Name,
		"volume": req.VolumeName,
		"size":   req.PVCSize,
	}, 0)
	if res := checkReply(reply, err); res != nil {
		logger.Warn("pvc flow step failed", "step", stepCreatePV, "code", res.Code)
		return *res
	}

	reply, err = v.remote.Exchange(ctx, host, taskCreatePVC, map[string]any{
		"name":      pvc,
		"namespace": req.Namespace,
		"pv":        req.Name,
		"size":      req.PVCSize,
	}, 0)
	if res := checkReply(reply, err); res != nil {
		logger.Warn("pvc flow step failed", "step", stepCreatePVC, "code", res.Code)

		rbReply, rbErr := v.remote.Exchange(ctx, host, taskDeletePV, map[string]any{
			"name": req.Name,
		}, 0)
		if rb := checkReply(rbReply, rbErr); rb != nil {
			logger.Error("pv rollback failed, pv may be orphaned",
				"step", stepRollbackPV, "code", rb.Code)
		}
		return *res
	}

	return OKData(reply.Data["mountPath"])
}

// DeletePVCRequest — вход DeletePVC.
type DeletePVCRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Namespace   string `json:"ns"`
	Name        string `json:"name"`
}

// DeletePVC удаляет claim и его persistent volume.
//
// CHECK_NOT_IN_USE → DELETE_PVC → DELETE_PV. Отказ DELETE_PV после
// успешного DELETE_PVC пересоздаёт claim (RECREATE_PVC, best effort),
// чтобы частичное удаление не оставило ресурсы в полуразобранном
// состоянии; вызывающему возвращается исходный код.
func (v *Volumes) DeletePVC(ctx context.Context, caller Caller, req DeletePVCRequest) Result {
	if res := runChecks(ctx,
		notBusy(v.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(v.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	host, res := resolveMaster(ctx, v.hosts, req.WorkspaceID)
	if res != nil {
		return *res
	}

	pvc := pvcName(req.Name)
	logger := v.logger.With("workspace_id", req.WorkspaceID, "pvc", pvc)

	reply, err := v.remote.Exchange(ctx, host, taskCheckPVCInUse, map[string]any{
		"name":      pvc,
		"namespace": req.Namespace,
	}, 0)
	if res := checkReply(reply, err); res != nil {
		logger.Warn("pvc flow step failed", "step", stepCheckNotInUse, "code", res.Code)
		return *res
	}
	if inUse, _ := reply.Data["in_use"].(bool); inUse {
		return Fail(http.StatusConflict)
	}

	// Агент возвращает spec удалённого claim'а — он нужен для
	// пересоздания, если удаление PV не удастся.
	delReply, err := v.remote.Exchange(ctx, host, taskDeletePVC, map[string]any{
		"name":      pvc,
		"namespace": req.Namespace,
	}, 0)
	if res := checkReply(delReply, err); res != nil {
		logger.Warn("pvc flow step failed", "step", stepDeletePVC, "code", res.Code)
		return *res
	}

	reply, err = v.remote.Exchange(ctx, host, taskDeletePV, map[string]any{
		"name": req.Name,
	}, 0)
	if res := checkReply(reply, err); res != nil {
		logger.Warn("pvc flow step failed", "step", stepDeletePV, "code", res.Code)

		rbReply, rbErr := v.remote.Exchange(ctx, host, taskCreatePVC, map[string]any{
			"name":      pvc,
			"namespace": req.Namespace,
			"spec":      delReply.Data["spec"],
		}, 0)
		if rb := checkReply(rbReply, rbErr); rb != nil {
			logger.Error("pvc recreate failed, claim is lost",
				"step", stepRecreatePVC, "code", rb.Code)
		}
		return *res
	}

	return OK()
}

// BindVolumeRequest — вход bind/unbind операций.
type BindVolumeRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Target      string `json:"target"`
}

// ScheduleBindVolume ставит задачу привязки тома.
//
// Повторная привязка того же тома к той же цели — 409; превышение
// предела привязок workspace'а — 410. Запись привязки создаётся до
// постановки задачи и снимается, если постановка не удалась.
func (v *Volumes) ScheduleBindVolume(ctx context.Context, caller Caller, req BindVolumeRequest) Result {
	if res := runChecks(ctx,
		notBusy(v.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(v.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	exists, err := v.bindings.Exists(ctx, req.WorkspaceID, req.Name, req.Target)
	if err != nil {
		return Fail(http.StatusInternalServerError)
	}
	if exists {
		return Fail(http.StatusConflict)
	}

	count, err := v.bindings.CountByWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return Fail(http.StatusInternalServerError)
	}
	if count >= domain.MaxBindingsPerWorkspace {
		return Fail(http.StatusGone)
	}

	binding := &domain.VolumeBinding{
		ID:          uuid.New(),
		WorkspaceID: req.WorkspaceID,
		VolumeName:  req.Name,
		Target:      req.Target,
		CreatedAt:   time.Now(),
	}
	if err := v.bindings.Create(ctx, binding); err != nil {
		// Уникальный индекс закрывает гонку двух одновременных bind'ов.
		if errors.Is(err, repo.ErrAlreadyExists) {
			return Fail(http.StatusConflict)
		}
		return Fail(http.StatusInternalServerError)
	}

	step := scheduledStep(caller, map[string]any{
		"name":   req.Name,
		"target": req.Target,
	})
	if _, err := v.sched.Schedule(ctx, domain.TaskBindVolume, domain.TargetWorkspace, req.WorkspaceID, []domain.StepRecord{step}); err != nil {
		if delErr := v.bindings.Delete(ctx, req.WorkspaceID, req.Name, req.Target); delErr != nil {
			v.logger.Error("failed to remove binding after schedule failure",
				"workspace_id", req.WorkspaceID, "volume", req.Name, "error", delErr)
		}
		return Fail(http.StatusInternalServerError)
	}

	return OK()
}

// ScheduleUnbindVolume ставит задачу отвязки тома.
func (v *Volumes) ScheduleUnbindVolume(ctx context.Context, caller Caller, req BindVolumeRequest) Result {
	if res := runChecks(ctx,
		notBusy(v.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(v.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	exists, err := v.bindings.Exists(ctx, req.WorkspaceID, req.Name, req.Target)
	if err != nil {
		return Fail(http.StatusInternalServerError)
	}
	if !exists {
		return Fail(http.StatusNotFound)
	}

	if err := v.bindings.Delete(ctx, req.WorkspaceID, req.Name, req.Target); err != nil {
		return Fail(http.StatusInternalServerError)
	}

	step := scheduledStep(caller, map[string]any{
		"name":   req.Name,
		"target": req.Target,
	})
	if _, err := v.sched.Schedule(ctx, domain.TaskUnbindVolume, domain.TargetWorkspace, req.WorkspaceID, []domain.StepRecord{step}); err != nil {
		// Возвращаем запись на место: задача не поставлена, том
		// по-прежнему привязан.
		if rbErr := v.bindings.Create(ctx, &domain.VolumeBinding{
			ID:          uuid.New(),
			WorkspaceID: req.WorkspaceID,
			VolumeName:  req.Name,
			Target:      req.Target,
			CreatedAt:   time.Now(),
		}); rbErr != nil {
			v.logger.Error("failed to restore binding after schedule failure",
				"workspace_id", req.WorkspaceID, "volume", req.Name, "error", rbErr)
		}
		return Fail(http.StatusInternalServerError)
	}

	return OK()
}

// ProvisionVolumeRequest — вход ScheduleProvision/DeprovisionVolume.
type ProvisionVolumeRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Size        string `json:"size"`
}

// ScheduleProvisionVolume ставит задачу создания тома.
func (v *Volumes) ScheduleProvisionVolume(ctx context.Context, caller Caller, req ProvisionVolumeRequest) Result {
	if res := runChecks(ctx,
		notBusy(v.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(v.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	step := scheduledStep(caller, map[string]any{
		"name": req.Name,
		"size": req.Size,
	})
	if _, err := v.sched.Schedule(ctx, domain.TaskProvisionVolume, domain.TargetWorkspace, req.WorkspaceID, []domain.StepRecord{step}); err != nil {
		return Fail(http.StatusInternalServerError)
	}
	return OK()
}

// ScheduleDeprovisionVolume ставит задачу удаления тома.
// Привязанный том удалить нельзя — сначала unbind.
func (v *Volumes) ScheduleDeprovisionVolume(ctx context.Context, caller Caller, req ProvisionVolumeRequest) Result {
	if res := runChecks(ctx,
		notBusy(v.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(v.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	bound, err := v.volumeBound(ctx, req.WorkspaceID, req.Name)
	if err != nil {
		return Fail(http.StatusInternalServerError)
	}
	if bound {
		return Fail(http.StatusConflict)
	}

	step := scheduledStep(caller, map[string]any{
		"name": req.Name,
	})
	if _, err := v.sched.Schedule(ctx, domain.TaskDeprovisionVolume, domain.TargetWorkspace, req.WorkspaceID, []domain.StepRecord{step}); err != nil {
		return Fail(http.StatusInternalServerError)
	}
	return OK()
}

// volumeBound сообщает, есть ли у тома хотя бы одна привязка.
func (v *Volumes) volumeBound(ctx context.Context, workspaceID, name string) (bool, error) {
	list, err := v.bindings.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	for _, b := range list {
		if b.VolumeName == name {
			return true, nil
		}
	}
	return false, nil
}

// hasResource проверяет, содержит ли ответ get_k8s_resources ресурс
// с данным именем.
func hasResource(data map[string]any, name string) bool {
	resources, ok := data["resources"].([]any)
	if !ok {
		return false
	}
	for _, r := range resources {
		if s, ok := r.(string); ok && s == name {
			return true
		}
	}
	return false
}
