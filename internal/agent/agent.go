package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// Agent — обработчик запросов и задач на удалённом хосте.
//
// Очередь агента получает query-сообщения всех хостов namespace'а;
// чужие отбрасываются по сегменту host топика.
type Agent struct {
	host      string
	transport *bus.Transport
	registry  *Registry
	tasks     TaskSource
	runner    *Runner

	logger *slog.Logger
	wg     sync.WaitGroup
}

// Config — конфигурация Agent.
type Config struct {
	// Host — адрес этого хоста, как его знает control plane.
	Host string

	Transport *bus.Transport
	Registry  *Registry
	Tasks     TaskSource

	Logger *slog.Logger
}

// New создаёт Agent и регистрирует его обработчики на транспорте.
func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{
		host:      cfg.Host,
		transport: cfg.Transport,
		registry:  cfg.Registry,
		tasks:     cfg.Tasks,
		runner:    NewRunner(cfg.Registry, cfg.Tasks, cfg.Transport, logger),
		logger:    logger,
	}

	ns := cfg.Transport.Namespace()
	cfg.Transport.HandleFunc(ns+"/k8s/host/query/", a.handleQuery)
	cfg.Transport.HandleFunc(ns+"/task/new/", a.handleTaskNew)
	return a
}

// Wait дожидается завершения запущенных задач.
func (a *Agent) Wait() {
	a.wg.Wait()
}

// handleQuery исполняет синхронный запрос и публикует ответ в
// respond-топик с тем же requestId.
func (a *Agent) handleQuery(ctx context.Context, topic bus.Topic, payload []byte) {
	if topic.Host != a.host {
		return
	}

	logger := telemetry.WithRequestID(a.logger, topic.RequestID).With("task", topic.Task)

	var params map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &params); err != nil {
			logger.Warn("dropping unparsable query", "error", err)
			return
		}
	}
	delete(params, "queryTarget")

	response := a.execute(ctx, topic.Task, params, logger)

	respond := bus.RespondTopic(a.transport.Namespace(), a.host, topic.Task, topic.RequestID)
	if err := a.transport.Publish(ctx, respond, response); err != nil {
		logger.Error("failed to publish response", "error", err)
	}
}

// execute запускает действие и сворачивает исход в {status, ...}.
func (a *Agent) execute(ctx context.Context, name string, params map[string]any, logger *slog.Logger) map[string]any {
	action, err := a.registry.Get(name)
	if err != nil {
		logger.Warn("unknown query task")
		return map[string]any{
			"status": http.StatusNotImplemented,
			"error":  err.Error(),
		}
	}

	outputs, err := action.Execute(ctx, params)
	if err != nil {
		logger.Warn("query failed", "error", err)
		return map[string]any{
			"status": http.StatusInternalServerError,
			"error":  err.Error(),
		}
	}

	response := map[string]any{"status": http.StatusOK}
	for k, v := range outputs {
		response[k] = v
	}
	return response
}

// handleTaskNew забирает задачу из хранилища и исполняет её в фоне.
func (a *Agent) handleTaskNew(ctx context.Context, topic bus.Topic, _ []byte) {
	id, err := uuid.Parse(topic.StorageID)
	if err != nil {
		a.logger.Warn("dropping task notification with bad id", "storage_id", topic.StorageID)
		return
	}

	task, err := a.tasks.GetByID(ctx, id)
	if err != nil {
		a.logger.Warn("failed to load task", "storage_id", topic.StorageID, "error", err)
		return
	}
	if task.Status != domain.TaskStatusPending {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runner.Run(ctx, task)
	}()
}
