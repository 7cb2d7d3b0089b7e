// Kontur API — control plane provisioning-операций.
//
// API:
//   - Принимает HTTP-запросы от внешнего шлюза (аккаунт и сессия
//     приходят заголовками)
//   - Выполняет синхронные операции через корреляционные обмены
//     с хостовыми агентами
//   - Ставит асинхронные задачи в durable-журнал и уведомляет агентов
//   - Ретранслирует события выполнения в SSE-потоки клиентов
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Kontur/internal/api"
	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/flows"
	"github.com/shaiso/Kontur/internal/relay"
	"github.com/shaiso/Kontur/internal/repo"
	"github.com/shaiso/Kontur/internal/rpc"
	"github.com/shaiso/Kontur/internal/tasks"
	"github.com/shaiso/Kontur/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_api_http_requests_total",
		Help: "Total HTTP requests handled by kontur_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting kontur-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	taskRepo := repo.NewTaskRepo(pool)
	bindingRepo := repo.NewBindingRepo(pool)
	hostRepo := repo.NewHostRepo(pool)
	accessRepo := repo.NewAccessRepo(pool)

	// Шина: подключение, топология, транспорт
	conn, err := bus.Dial(bus.URL(), logger)
	if err != nil {
		logger.Error("failed to connect to message bus", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("message bus connected")

	ns := bus.Namespace()
	queue, err := bus.SetupAPITopology(conn, ns)
	if err != nil {
		logger.Error("failed to setup bus topology", "error", err)
		os.Exit(1)
	}

	transport := bus.NewTransport(conn, ns, queue, logger)

	// Корреляция синхронных обменов: respond-сообщения перехватываются
	// до общих обработчиков.
	correlator := rpc.New(rpc.Config{
		Transport: transport,
		Logger:    logger,
	})
	transport.SetResponder(correlator)

	// Ретранслятор событий выполнения в клиентские сессии
	rel := relay.New(logger)
	transport.HandleFunc(ns+"/cli/event/", rel.HandleEvent)

	// Durable-журнал задач + reaper зависших PENDING
	store := tasks.NewStore(tasks.StoreConfig{
		Repo:     taskRepo,
		Notifier: transport,
		Logger:   logger,
	})

	reaper := tasks.NewReaper(taskRepo, logger)
	if err := reaper.Start(); err != nil {
		logger.Error("failed to start task reaper", "error", err)
		os.Exit(1)
	}
	defer reaper.Stop()

	// Оркестраторы
	volumes := flows.NewVolumes(flows.VolumesConfig{
		Auth:     accessRepo,
		Hosts:    hostRepo,
		Bindings: bindingRepo,
		Gate:     store,
		Sched:    store,
		Remote:   correlator,
		Logger:   logger,
	})
	clusters := flows.NewClusters(flows.ClustersConfig{
		Auth:   accessRepo,
		Hosts:  hostRepo,
		Gate:   store,
		Sched:  store,
		Remote: correlator,
		Logger: logger,
	})
	services := flows.NewServices(flows.ServicesConfig{
		Auth:   accessRepo,
		Gate:   store,
		Sched:  store,
		Logger: logger,
	})
	workspaces := flows.NewWorkspaces(flows.WorkspacesConfig{
		Auth:     accessRepo,
		Gate:     store,
		Sched:    store,
		Bindings: bindingRepo,
		Tasks:    taskRepo,
		Logger:   logger,
	})

	// HTTP handler
	handler := api.NewHandler(api.Config{
		Volumes:    volumes,
		Clusters:   clusters,
		Services:   services,
		Workspaces: workspaces,
		Store:      store,
		Relay:      rel,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	// Потребление шины: ответы хостов и события выполнения
	go func() {
		if err := transport.Start(ctx); err != nil {
			logger.Error("bus transport stopped", "error", err)
			cancel()
		}
	}()

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	transport.Stop()
	logger.Info("stopped")
}
