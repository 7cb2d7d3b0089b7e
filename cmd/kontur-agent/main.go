// Kontur Agent — исполнитель provisioning-операций на хосте.
//
// Агент:
//   - Отвечает на синхронные query-запросы control plane
//     (состояние кластера, kubeconfig, точечные операции с PV/PVC)
//   - Забирает задачи из durable-журнала по уведомлению шины
//   - Выполняет шаги через Kubernetes API и хостовые скрипты
//   - Публикует события выполнения в сессию клиента
//
// Агенты работают по одному на master-хост workspace'а.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Kontur/internal/agent"
	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/repo"
	"github.com/shaiso/Kontur/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting kontur-agent")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	host := os.Getenv("AGENT_HOST")
	if host == "" {
		logger.Error("AGENT_HOST is required")
		os.Exit(1)
	}

	// DB pool: журнал задач общий с control plane
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	taskRepo := repo.NewTaskRepo(pool)

	// Шина
	conn, err := bus.Dial(bus.URL(), logger)
	if err != nil {
		logger.Error("failed to connect to message bus", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("message bus connected")

	ns := bus.Namespace()
	queue, err := bus.SetupAgentTopology(conn, ns, host)
	if err != nil {
		logger.Error("failed to setup bus topology", "error", err)
		os.Exit(1)
	}

	transport := bus.NewTransport(conn, ns, queue, logger)

	// Kubernetes client
	k8s, err := agent.NewK8SClient(os.Getenv("KUBECONFIG"))
	if err != nil {
		logger.Error("failed to create kubernetes client", "error", err)
		os.Exit(1)
	}

	registry := agent.DefaultRegistry(k8s, agent.ScriptConfig{
		ProvisionCluster: os.Getenv("PROVISION_CLUSTER_SCRIPT"),
		UpdateCluster:    os.Getenv("UPDATE_CLUSTER_SCRIPT"),
	})

	a := agent.New(agent.Config{
		Host:      host,
		Transport: transport,
		Registry:  registry,
		Tasks:     taskRepo,
		Logger:    logger,
	})

	go func() {
		if err := transport.Start(ctx); err != nil {
			logger.Error("bus transport stopped", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("AGENT_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Дожидаемся выполняющихся задач
	transport.Stop()
	a.Wait()
	logger.Info("kontur-agent stopped")
}
