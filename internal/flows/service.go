package flows

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shaiso/Kontur/internal/domain"
)

// Services — оркестратор сервисов, приложений, маршрутов и образов.
// Все операции долгие и идут через очередь задач.
type Services struct {
	auth   Authorizer
	gate   TaskGate
	sched  Scheduler
	logger *slog.Logger
}

// ServicesConfig — конфигурация Services.
type ServicesConfig struct {
	Auth   Authorizer
	Gate   TaskGate
	Sched  Scheduler
	Logger *slog.Logger
}

// NewServices создаёт Services.
func NewServices(cfg ServicesConfig) *Services {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{
		auth:   cfg.Auth,
		gate:   cfg.Gate,
		sched:  cfg.Sched,
		logger: logger,
	}
}

// ServiceRequest — вход операций над сервисами и приложениями.
type ServiceRequest struct {
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Flags       []string `json:"flags,omitempty"`
}

// ScheduleProvisionService ставит задачу создания сервиса.
func (s *Services) ScheduleProvisionService(ctx context.Context, caller Caller, req ServiceRequest) Result {
	return s.schedule(ctx, caller, domain.TaskProvisionService, req.WorkspaceID,
		map[string]any{"name": req.Name}, req.Flags)
}

// ScheduleDeprovisionService ставит задачу удаления сервиса.
func (s *Services) ScheduleDeprovisionService(ctx context.Context, caller Caller, req ServiceRequest) Result {
	return s.schedule(ctx, caller, domain.TaskDeprovisionService, req.WorkspaceID,
		map[string]any{"name": req.Name}, req.Flags)
}

// ScheduleProvisionApplication ставит задачу создания приложения.
func (s *Services) ScheduleProvisionApplication(ctx context.Context, caller Caller, req ServiceRequest) Result {
	return s.schedule(ctx, caller, domain.TaskProvisionApp, req.WorkspaceID,
		map[string]any{"name": req.Name}, req.Flags)
}

// ScheduleDeprovisionApplication ставит задачу удаления приложения.
func (s *Services) ScheduleDeprovisionApplication(ctx context.Context, caller Caller, req ServiceRequest) Result {
	return s.schedule(ctx, caller, domain.TaskDeprovisionApp, req.WorkspaceID,
		map[string]any{"name": req.Name}, req.Flags)
}

// RouteRequest — вход операций над маршрутами.
type RouteRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Domain      string `json:"domain"`
}

// ScheduleProvisionRoute ставит задачу создания маршрута.
func (s *Services) ScheduleProvisionRoute(ctx context.Context, caller Caller, req RouteRequest) Result {
	return s.schedule(ctx, caller, domain.TaskProvisionRoute, req.WorkspaceID,
		map[string]any{"domain": req.Domain}, nil)
}

// ScheduleDeprovisionRoute ставит задачу удаления маршрута.
func (s *Services) ScheduleDeprovisionRoute(ctx context.Context, caller Caller, req RouteRequest) Result {
	return s.schedule(ctx, caller, domain.TaskDeprovisionRoute, req.WorkspaceID,
		map[string]any{"domain": req.Domain}, nil)
}

// ImageRequest — вход операций над образами.
type ImageRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Image       string `json:"image"`
}

// ScheduleDeployImage ставит задачу выката образа.
func (s *Services) ScheduleDeployImage(ctx context.Context, caller Caller, req ImageRequest) Result {
	return s.schedule(ctx, caller, domain.TaskDeployImage, req.WorkspaceID,
		map[string]any{"image": req.Image}, nil)
}

// ScheduleDeleteImage ставит задачу удаления образа.
func (s *Services) ScheduleDeleteImage(ctx context.Context, caller Caller, req ImageRequest) Result {
	return s.schedule(ctx, caller, domain.TaskDeleteImage, req.WorkspaceID,
		map[string]any{"image": req.Image}, nil)
}

func (s *Services) schedule(ctx context.Context, caller Caller, taskType domain.TaskType, workspaceID string, params map[string]any, flags []string) Result {
	if res := runChecks(ctx,
		notBusy(s.gate, domain.TargetWorkspace, workspaceID),
		permitted(s.auth, caller, workspaceID),
	); res != nil {
		return *res
	}

	step := scheduledStep(caller, params)
	step.Flags = flags
	if _, err := s.sched.Schedule(ctx, taskType, domain.TargetWorkspace, workspaceID, []domain.StepRecord{step}); err != nil {
		return Fail(http.StatusInternalServerError)
	}
	return OK()
}
