package flows

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// Имена задач агента для кластерных запросов.
const (
	taskGetState  = "get_k8s_state"
	taskGetConfig = "get_k8s_config"
)

// stateQueryTimeout — таймаут синхронных запросов состояния кластера;
// сбор состояния на хосте дороже точечных операций.
const stateQueryTimeout = 5 * time.Second

// Clusters — оркестратор операций над Kubernetes-кластерами.
type Clusters struct {
	auth   Authorizer
	hosts  HostResolver
	gate   TaskGate
	sched  Scheduler
	remote Exchanger
	logger *slog.Logger
}

// ClustersConfig — конфигурация Clusters.
type ClustersConfig struct {
	Auth   Authorizer
	Hosts  HostResolver
	Gate   TaskGate
	Sched  Scheduler
	Remote Exchanger
	Logger *slog.Logger
}

// NewClusters создаёт Clusters.
func NewClusters(cfg ClustersConfig) *Clusters {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Clusters{
		auth:   cfg.Auth,
		hosts:  cfg.Hosts,
		gate:   cfg.Gate,
		sched:  cfg.Sched,
		remote: cfg.Remote,
		logger: logger,
	}
}

// ClusterRequest — вход ScheduleCreate/ScheduleUpdate.
type ClusterRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Nodes       int    `json:"nodes"`
}

// ScheduleCreate ставит задачу создания кластера.
func (c *Clusters) ScheduleCreate(ctx context.Context, caller Caller, req ClusterRequest) Result {
	return c.schedule(ctx, caller, domain.TaskCreateK8SCluster, req)
}

// ScheduleUpdate ставит задачу изменения кластера.
func (c *Clusters) ScheduleUpdate(ctx context.Context, caller Caller, req ClusterRequest) Result {
	return c.schedule(ctx, caller, domain.TaskUpdateK8SCluster, req)
}

func (c *Clusters) schedule(ctx context.Context, caller Caller, taskType domain.TaskType, req ClusterRequest) Result {
	if res := runChecks(ctx,
		notBusy(c.gate, domain.TargetWorkspace, req.WorkspaceID),
		permitted(c.auth, caller, req.WorkspaceID),
	); res != nil {
		return *res
	}

	step := scheduledStep(caller, map[string]any{
		"nodes": req.Nodes,
	})
	if _, err := c.sched.Schedule(ctx, taskType, domain.TargetWorkspace, req.WorkspaceID, []domain.StepRecord{step}); err != nil {
		return Fail(http.StatusInternalServerError)
	}
	return OK()
}

// GetState возвращает текущее состояние кластера workspace'а.
// Это read-only запрос: проверка занятости не нужна.
func (c *Clusters) GetState(ctx context.Context, caller Caller, workspaceID string) Result {
	return c.query(ctx, caller, workspaceID, taskGetState)
}

// GetConfig возвращает kubeconfig кластера workspace'а.
func (c *Clusters) GetConfig(ctx context.Context, caller Caller, workspaceID string) Result {
	return c.query(ctx, caller, workspaceID, taskGetConfig)
}

func (c *Clusters) query(ctx context.Context, caller Caller, workspaceID, taskName string) Result {
	if res := runChecks(ctx,
		permitted(c.auth, caller, workspaceID),
	); res != nil {
		return *res
	}

	host, res := resolveMaster(ctx, c.hosts, workspaceID)
	if res != nil {
		return *res
	}

	reply, err := c.remote.Exchange(ctx, host, taskName, nil, stateQueryTimeout)
	if res := checkReply(reply, err); res != nil {
		telemetry.WithWorkspaceID(c.logger, workspaceID).Warn("cluster query failed",
			"task", taskName, "code", res.Code)
		return *res
	}
	return OKData(reply.Data)
}
