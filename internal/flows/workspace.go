package flows

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shaiso/Kontur/internal/domain"
)

// Workspaces — оркестратор каскадного сноса workspace'ов и организаций.
type Workspaces struct {
	auth     Authorizer
	gate     TaskGate
	sched    Scheduler
	bindings BindingStore
	tasks    TaskPurger
	logger   *slog.Logger
}

// WorkspacesConfig — конфигурация Workspaces.
type WorkspacesConfig struct {
	Auth     Authorizer
	Gate     TaskGate
	Sched    Scheduler
	Bindings BindingStore
	Tasks    TaskPurger
	Logger   *slog.Logger
}

// NewWorkspaces создаёт Workspaces.
func NewWorkspaces(cfg WorkspacesConfig) *Workspaces {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspaces{
		auth:     cfg.Auth,
		gate:     cfg.Gate,
		sched:    cfg.Sched,
		bindings: cfg.Bindings,
		tasks:    cfg.Tasks,
		logger:   logger,
	}
}

// ScheduleDeprovisionResources ставит задачу сноса ресурсов workspace'а.
func (w *Workspaces) ScheduleDeprovisionResources(ctx context.Context, caller Caller, workspaceID string) Result {
	if res := runChecks(ctx,
		notBusy(w.gate, domain.TargetWorkspace, workspaceID),
		permitted(w.auth, caller, workspaceID),
	); res != nil {
		return *res
	}

	step := scheduledStep(caller, map[string]any{
		"name": workspaceID,
	})
	if _, err := w.sched.Schedule(ctx, domain.TaskDeprovisionWorkspace, domain.TargetWorkspace, workspaceID, []domain.StepRecord{step}); err != nil {
		return Fail(http.StatusInternalServerError)
	}
	return OK()
}

// ScheduleDeprovisionOrganization ставит задачу сноса организации.
// Права проверяются на самой организации.
func (w *Workspaces) ScheduleDeprovisionOrganization(ctx context.Context, caller Caller, orgID string) Result {
	if res := runChecks(ctx,
		notBusy(w.gate, domain.TargetOrganization, orgID),
		permitted(w.auth, caller, orgID),
	); res != nil {
		return *res
	}

	step := scheduledStep(caller, map[string]any{
		"name": orgID,
	})
	if _, err := w.sched.Schedule(ctx, domain.TaskDeprovisionOrg, domain.TargetOrganization, orgID, []domain.StepRecord{step}); err != nil {
		return Fail(http.StatusInternalServerError)
	}
	return OK()
}

// Purge удаляет журнал задач и привязки workspace'а после завершения
// сноса. Единственный путь, по которому задачи пропадают из журнала.
func (w *Workspaces) Purge(ctx context.Context, workspaceID string) error {
	if err := w.tasks.DeleteByTarget(ctx, domain.TargetWorkspace, workspaceID); err != nil {
		return fmt.Errorf("purge tasks: %w", err)
	}
	if err := w.bindings.DeleteByWorkspace(ctx, workspaceID); err != nil {
		return fmt.Errorf("purge bindings: %w", err)
	}
	w.logger.Info("workspace records purged", "workspace_id", workspaceID)
	return nil
}
