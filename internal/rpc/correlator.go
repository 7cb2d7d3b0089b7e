package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// Значения конфигурации по умолчанию.
const (
	// DefaultTimeout — таймаут обмена, если вызывающий не задал свой.
	DefaultTimeout = 3 * time.Second

	// DefaultMaxPending — предел одновременных незавершённых обменов.
	DefaultMaxPending = 4096
)

// Publisher — транспортная зависимость Correlator'а.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Namespace() string
}

// Reply — один ответ удалённого хоста.
type Reply struct {
	// Segments — сегменты топика ответа.
	Segments []string

	// Data — разобранная полезная нагрузка.
	Data map[string]any
}

// Status возвращает числовой код статуса из полезной нагрузки (0, если нет).
func (r *Reply) Status() int {
	v, ok := r.Data["status"]
	if !ok {
		return 0
	}
	// JSON-числа декодируются в float64.
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

// Correlator сопоставляет ответы хостов с ожидающими вызывающими.
//
// Реализует bus.Responder: входящие respond-сообщения с известным
// requestId потребляются здесь и не доходят до общих обработчиков.
type Correlator struct {
	pub     Publisher
	pending *pendingTable
	timeout time.Duration
	logger  *slog.Logger
}

// Config — конфигурация Correlator.
type Config struct {
	// Transport — шина для публикации запросов.
	Transport Publisher

	// DefaultTimeout — таймаут по умолчанию (default: 3s).
	DefaultTimeout time.Duration

	// MaxPending — предел одновременных обменов (default: 4096).
	MaxPending int

	// Logger
	Logger *slog.Logger
}

// New создаёт Correlator.
func New(cfg Config) *Correlator {
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxPending := cfg.MaxPending
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Correlator{
		pub:     cfg.Transport,
		pending: newPendingTable(maxPending),
		timeout: timeout,
		logger:  logger,
	}
}

// Exchange выполняет один корреляционный обмен с хостом.
//
// Публикует запрос в query-топик и ждёт первый подходящий ответ.
// timeout <= 0 — таймаут по умолчанию. Отмена контекста снимает
// обмен так же, как таймаут.
func (c *Correlator) Exchange(ctx context.Context, targetHost, taskName string, payload map[string]any, timeout time.Duration) (*Reply, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	e, err := c.register(modeRespond, targetHost, taskName)
	if err != nil {
		return nil, err
	}

	if err := c.publishQuery(ctx, e, payload); err != nil {
		c.pending.take(e.id)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-e.ch:
		return r, nil

	case <-timer.C:
		if c.pending.take(e.id) == nil {
			// Ответ выиграл гонку с таймером — отдаём его.
			return <-e.ch, nil
		}
		telemetry.ExchangeTimeouts.Inc()
		c.logger.Warn("exchange timed out",
			"host", targetHost,
			"task", taskName,
			"request_id", e.id,
			"timeout", timeout,
		)
		return nil, fmt.Errorf("%w: %s/%s", ErrTimeout, targetHost, taskName)

	case <-ctx.Done():
		if c.pending.take(e.id) == nil {
			return <-e.ch, nil
		}
		return nil, ctx.Err()
	}
}

// Collect начинает широковещательный обмен с накоплением ответов.
//
// Ответы копятся в порядке прибытия, пока вызывающий не закроет
// Collector. Таймаута нет: время жизни определяет вызывающий.
func (c *Correlator) Collect(ctx context.Context, targetHost, taskName string, payload map[string]any) (*Collector, error) {
	e, err := c.register(modeCollect, targetHost, taskName)
	if err != nil {
		return nil, err
	}

	if err := c.publishQuery(ctx, e, payload); err != nil {
		c.pending.take(e.id)
		return nil, err
	}

	return &Collector{c: c, e: e}, nil
}

// PendingCount возвращает количество незавершённых обменов.
func (c *Correlator) PendingCount() int {
	return c.pending.len()
}

// register регистрирует новый обмен, перетягивая идентификатор
// при коллизии с уже зарегистрированным.
func (c *Correlator) register(mode exchangeMode, host, task string) (*pendingExchange, error) {
	for {
		e := &pendingExchange{
			id:        bus.NewTopicID(),
			mode:      mode,
			host:      host,
			task:      task,
			createdAt: time.Now(),
			ch:        make(chan *Reply, 1),
		}

		switch err := c.pending.register(e); err {
		case nil:
			return e, nil
		case errDuplicateID:
			continue
		default:
			return nil, err
		}
	}
}

// publishQuery публикует запрос в query-топик.
// В полезную нагрузку добавляется queryTarget:"api" — адрес для ответа.
func (c *Correlator) publishQuery(ctx context.Context, e *pendingExchange, payload map[string]any) error {
	body := map[string]any{"queryTarget": "api"}
	for k, v := range payload {
		body[k] = v
	}

	topic := bus.QueryTopic(c.pub.Namespace(), e.host, e.task, e.id)
	if err := c.pub.Publish(ctx, topic, body); err != nil {
		return fmt.Errorf("publish query: %w", err)
	}

	c.logger.Debug("query published",
		"host", e.host,
		"task", e.task,
		"request_id", e.id,
	)
	return nil
}

// Consume реализует bus.Responder.
//
// Возвращает true, если сообщение соответствует незавершённому обмену
// (даже если его нагрузка не разобралась — такие логируются и
// отбрасываются, обмен продолжает ждать до таймаута).
func (c *Correlator) Consume(topic bus.Topic, payload []byte) bool {
	if topic.Kind != bus.KindRespond {
		return false
	}

	if c.pending.get(topic.RequestID) == nil {
		// Поздний или чужой ответ — no-op.
		telemetry.LateReplies.Inc()
		c.logger.Debug("reply for unknown request id", "request_id", topic.RequestID)
		return false
	}

	data := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &data); err != nil {
			c.logger.Warn("dropping unparsable reply",
				"request_id", topic.RequestID,
				"error", err,
			)
			return true
		}
	}

	reply := &Reply{Segments: topic.Segments, Data: data}

	// Collect-режим: накапливаем без изъятия.
	if e := c.pending.get(topic.RequestID); e != nil && e.mode == modeCollect {
		e.append(reply)
		return true
	}

	// Respond-режим: атомарное изъятие — ровно один победитель.
	e := c.pending.take(topic.RequestID)
	if e == nil {
		telemetry.LateReplies.Inc()
		return true
	}
	e.ch <- reply
	return true
}

// Collector — ручка незавершённого collect-обмена.
type Collector struct {
	c *Correlator
	e *pendingExchange
}

// RequestID возвращает идентификатор обмена.
func (col *Collector) RequestID() string {
	return col.e.id
}

// Replies возвращает снимок накопленных ответов в порядке прибытия.
func (col *Collector) Replies() []*Reply {
	return col.e.snapshot()
}

// Close снимает обмен с регистрации. Ответы после закрытия — no-op.
func (col *Collector) Close() {
	col.c.pending.take(col.e.id)
}
