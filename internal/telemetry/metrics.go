package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики шины и корреляции запросов.
var (
	// PendingExchanges — количество незавершённых обменов запрос/ответ.
	PendingExchanges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kontur_rpc_pending_exchanges",
		Help: "Number of outstanding request/response exchanges",
	})

	// ExchangeTimeouts — количество обменов, завершившихся по таймауту.
	ExchangeTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_rpc_exchange_timeouts_total",
		Help: "Total exchanges that timed out waiting for a reply",
	})

	// LateReplies — ответы, пришедшие после завершения обмена.
	LateReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_rpc_late_replies_total",
		Help: "Replies that arrived after the exchange was already settled",
	})

	// DroppedReplies — ответы, отброшенные из-за переполнения collect-буфера.
	DroppedReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_rpc_dropped_replies_total",
		Help: "Collect-mode replies dropped because the accumulator was full",
	})

	// PublishedMessages — сообщения, опубликованные в шину.
	PublishedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_bus_published_total",
		Help: "Messages published to the bus",
	})

	// DroppedPublishes — публикации, пропущенные из-за отсутствия соединения.
	DroppedPublishes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_bus_dropped_publishes_total",
		Help: "Publishes skipped because the bus connection was offline",
	})

	// MalformedTopics — входящие сообщения с некорректным топиком.
	MalformedTopics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontur_bus_malformed_topics_total",
		Help: "Inbound messages dropped due to an unparsable topic",
	})

	// ScheduledTasks — созданные provisioning-задачи по типам.
	ScheduledTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kontur_tasks_scheduled_total",
		Help: "Provisioning tasks scheduled, by task type",
	}, []string{"type"})

	// RelaySessions — количество подключённых клиентских сессий.
	RelaySessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kontur_relay_sessions",
		Help: "Connected client sessions in the event relay",
	})
)
