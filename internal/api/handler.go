package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/flows"
	"github.com/shaiso/Kontur/internal/relay"
	"github.com/shaiso/Kontur/internal/tasks"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// Заголовки вызывающего, проставляемые внешним шлюзом.
const (
	headerAccount = "X-Account-Id"
	headerSession = "X-Session-Id"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	volumes    *flows.Volumes
	clusters   *flows.Clusters
	services   *flows.Services
	workspaces *flows.Workspaces
	store      *tasks.Store
	relay      *relay.Relay
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Volumes    *flows.Volumes
	Clusters   *flows.Clusters
	Services   *flows.Services
	Workspaces *flows.Workspaces
	Store      *tasks.Store
	Relay      *relay.Relay
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		volumes:    cfg.Volumes,
		clusters:   cfg.Clusters,
		services:   cfg.Services,
		workspaces: cfg.Workspaces,
		store:      cfg.Store,
		relay:      cfg.Relay,
		logger:     logger,
	}
}

// caller собирает контекст вызывающего из заголовков шлюза.
func caller(r *http.Request) flows.Caller {
	return flows.Caller{
		AccountID: r.Header.Get(headerAccount),
		SessionID: r.Header.Get(headerSession),
	}
}

// decode разбирает JSON-тело запроса.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// --- Tasks ---

// ListTasks возвращает журнал задач workspace'а.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := h.store.List(r.Context(), domain.TargetWorkspace, r.PathValue("id"))
	if err != nil {
		telemetry.FromContext(r.Context()).Error("failed to list tasks", "error", err)
		Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
		return
	}
	Success(w, views)
}

// --- Clusters ---

// GetState возвращает состояние кластера workspace'а.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	Result(w, h.clusters.GetState(r.Context(), caller(r), r.PathValue("id")))
}

// GetKubeconfig возвращает kubeconfig кластера.
func (h *Handler) GetKubeconfig(w http.ResponseWriter, r *http.Request) {
	Result(w, h.clusters.GetConfig(r.Context(), caller(r), r.PathValue("id")))
}

// CreateCluster ставит задачу создания кластера.
func (h *Handler) CreateCluster(w http.ResponseWriter, r *http.Request) {
	var req flows.ClusterRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.clusters.ScheduleCreate(r.Context(), caller(r), req))
}

// UpdateCluster ставит задачу изменения кластера.
func (h *Handler) UpdateCluster(w http.ResponseWriter, r *http.Request) {
	var req flows.ClusterRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.clusters.ScheduleUpdate(r.Context(), caller(r), req))
}

// --- PVC ---

// CreatePVC создаёт persistent volume и claim.
func (h *Handler) CreatePVC(w http.ResponseWriter, r *http.Request) {
	var req flows.CreatePVCRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.volumes.CreatePVC(r.Context(), caller(r), req))
}

// DeletePVC удаляет claim и его volume. Namespace приходит
// query-параметром ns.
func (h *Handler) DeletePVC(w http.ResponseWriter, r *http.Request) {
	req := flows.DeletePVCRequest{
		WorkspaceID: r.PathValue("id"),
		Namespace:   r.URL.Query().Get("ns"),
		Name:        r.PathValue("name"),
	}
	Result(w, h.volumes.DeletePVC(r.Context(), caller(r), req))
}

// --- Volumes ---

// ProvisionVolume ставит задачу создания тома.
func (h *Handler) ProvisionVolume(w http.ResponseWriter, r *http.Request) {
	var req flows.ProvisionVolumeRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.volumes.ScheduleProvisionVolume(r.Context(), caller(r), req))
}

// DeprovisionVolume ставит задачу удаления тома.
func (h *Handler) DeprovisionVolume(w http.ResponseWriter, r *http.Request) {
	req := flows.ProvisionVolumeRequest{
		WorkspaceID: r.PathValue("id"),
		Name:        r.PathValue("name"),
	}
	Result(w, h.volumes.ScheduleDeprovisionVolume(r.Context(), caller(r), req))
}

// BindVolume ставит задачу привязки тома.
func (h *Handler) BindVolume(w http.ResponseWriter, r *http.Request) {
	var req flows.BindVolumeRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	req.Name = r.PathValue("name")
	Result(w, h.volumes.ScheduleBindVolume(r.Context(), caller(r), req))
}

// UnbindVolume ставит задачу отвязки тома.
func (h *Handler) UnbindVolume(w http.ResponseWriter, r *http.Request) {
	var req flows.BindVolumeRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	req.Name = r.PathValue("name")
	Result(w, h.volumes.ScheduleUnbindVolume(r.Context(), caller(r), req))
}

// --- Services / applications / routes / images ---

// ProvisionService ставит задачу создания сервиса.
func (h *Handler) ProvisionService(w http.ResponseWriter, r *http.Request) {
	var req flows.ServiceRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.services.ScheduleProvisionService(r.Context(), caller(r), req))
}

// DeprovisionService ставит задачу удаления сервиса.
func (h *Handler) DeprovisionService(w http.ResponseWriter, r *http.Request) {
	req := flows.ServiceRequest{
		WorkspaceID: r.PathValue("id"),
		Name:        r.PathValue("name"),
	}
	Result(w, h.services.ScheduleDeprovisionService(r.Context(), caller(r), req))
}

// ProvisionApplication ставит задачу создания приложения.
func (h *Handler) ProvisionApplication(w http.ResponseWriter, r *http.Request) {
	var req flows.ServiceRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.services.ScheduleProvisionApplication(r.Context(), caller(r), req))
}

// DeprovisionApplication ставит задачу удаления приложения.
func (h *Handler) DeprovisionApplication(w http.ResponseWriter, r *http.Request) {
	req := flows.ServiceRequest{
		WorkspaceID: r.PathValue("id"),
		Name:        r.PathValue("name"),
	}
	Result(w, h.services.ScheduleDeprovisionApplication(r.Context(), caller(r), req))
}

// ProvisionRoute ставит задачу создания маршрута.
func (h *Handler) ProvisionRoute(w http.ResponseWriter, r *http.Request) {
	var req flows.RouteRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.services.ScheduleProvisionRoute(r.Context(), caller(r), req))
}

// DeprovisionRoute ставит задачу удаления маршрута.
func (h *Handler) DeprovisionRoute(w http.ResponseWriter, r *http.Request) {
	req := flows.RouteRequest{
		WorkspaceID: r.PathValue("id"),
		Domain:      r.PathValue("domain"),
	}
	Result(w, h.services.ScheduleDeprovisionRoute(r.Context(), caller(r), req))
}

// DeployImage ставит задачу выката образа.
func (h *Handler) DeployImage(w http.ResponseWriter, r *http.Request) {
	var req flows.ImageRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.services.ScheduleDeployImage(r.Context(), caller(r), req))
}

// DeleteImage ставит задачу удаления образа. Образ приходит в теле:
// имя образа содержит слэши и не годится в сегмент пути.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var req flows.ImageRequest
	if !decode(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("id")
	Result(w, h.services.ScheduleDeleteImage(r.Context(), caller(r), req))
}

// --- Teardown ---

// DeprovisionWorkspace ставит задачу сноса ресурсов workspace'а.
func (h *Handler) DeprovisionWorkspace(w http.ResponseWriter, r *http.Request) {
	Result(w, h.workspaces.ScheduleDeprovisionResources(r.Context(), caller(r), r.PathValue("id")))
}

// DeprovisionOrganization ставит задачу сноса организации.
func (h *Handler) DeprovisionOrganization(w http.ResponseWriter, r *http.Request) {
	Result(w, h.workspaces.ScheduleDeprovisionOrganization(r.Context(), caller(r), r.PathValue("id")))
}

// PurgeWorkspaceRecords удаляет журнал задач и привязки workspace'а
// после завершения сноса.
func (h *Handler) PurgeWorkspaceRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.workspaces.Purge(r.Context(), r.PathValue("id")); err != nil {
		h.logger.Error("failed to purge workspace records", "error", err)
		Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
