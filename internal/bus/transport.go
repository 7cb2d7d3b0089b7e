package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Kontur/internal/telemetry"
)

// Envelope — конверт сообщения шины.
//
// Исходная строка топика передаётся внутри конверта: routing key AMQP
// теряет границы сегментов для хостов с точками в адресе.
type Envelope struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Topic — топик в исходном `/`-разделённом виде.
	Topic string `json:"topic"`

	// Payload — полезная нагрузка (JSON).
	Payload json.RawMessage `json:"payload,omitempty"`

	// Timestamp — время публикации.
	Timestamp time.Time `json:"timestamp"`
}

// Handler — обработчик входящего сообщения.
type Handler func(ctx context.Context, topic Topic, payload []byte)

// Responder перехватывает входящие сообщения до общих обработчиков.
// Возвращает true, если сообщение соответствует ожидаемому ответу
// и не должно передаваться дальше.
type Responder interface {
	Consume(topic Topic, payload []byte) bool
}

// Transport — публикация и диспетчеризация сообщений шины.
//
// Publish — fire-and-forget: при отсутствии соединения публикация
// логируется и пропускается, ошибки не возвращается.
//
// Входящие сообщения сначала предлагаются Responder'у (ожидаемые
// ответы на корреляционные запросы), затем общим обработчикам
// по префиксу топика.
type Transport struct {
	conn   *Connection
	ns     string
	queue  string
	logger *slog.Logger

	mu        sync.RWMutex
	responder Responder
	handlers  []handlerEntry

	cancelFunc context.CancelFunc
}

type handlerEntry struct {
	prefix  string
	handler Handler
}

// NewTransport создаёт Transport поверх готовой топологии.
func NewTransport(conn *Connection, ns, queue string, logger *slog.Logger) *Transport {
	return &Transport{
		conn:   conn,
		ns:     ns,
		queue:  queue,
		logger: logger,
	}
}

// Namespace возвращает namespace топиков.
func (t *Transport) Namespace() string {
	return t.ns
}

// Online сообщает, есть ли сейчас соединение с брокером.
func (t *Transport) Online() bool {
	return t.conn.Online()
}

// SetResponder устанавливает перехватчик ожидаемых ответов.
func (t *Transport) SetResponder(r Responder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responder = r
}

// HandleFunc регистрирует обработчик для топиков с данным префиксом.
func (t *Transport) HandleFunc(prefix string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handlerEntry{prefix: prefix, handler: h})
}

// Publish публикует сообщение в топик.
//
// Доставка не гарантируется. При offline — no-op с записью в лог.
func (t *Transport) Publish(ctx context.Context, topic string, payload any) error {
	if !t.conn.Online() {
		t.logger.Warn("bus offline, publish skipped", "topic", topic)
		telemetry.DroppedPublishes.Inc()
		return nil
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}

	env := Envelope{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   raw,
		Timestamp: time.Now(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ch := t.conn.Channel()
	if ch == nil {
		t.logger.Warn("bus channel lost, publish skipped", "topic", topic)
		telemetry.DroppedPublishes.Inc()
		return nil
	}

	err = ch.PublishWithContext(
		ctx,
		ExchangeBus,
		routingKey(topic),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   env.ID,
			Timestamp:   env.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	telemetry.PublishedMessages.Inc()
	t.logger.Debug("published message", "topic", topic, "message_id", env.ID)
	return nil
}

// Start запускает цикл потребления входящих сообщений.
// Блокируется до отмены контекста.
func (t *Transport) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	t.cancelFunc = cancel

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := t.setupConsume()
		if err != nil {
			t.logger.Error("failed to setup consume", "queue", t.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.conn.ReconnectNotify():
				t.logger.Info("reconnected, restarting consumer", "queue", t.queue)
				continue
			}
		}

		t.logger.Info("bus consumer started", "queue", t.queue)

		if err := t.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", t.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// Stop останавливает потребление.
func (t *Transport) Stop() {
	if t.cancelFunc != nil {
		t.cancelFunc()
	}
}

// setupConsume настраивает канал и начинает потребление.
func (t *Transport) setupConsume() (<-chan amqp.Delivery, error) {
	ch := t.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(32, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		t.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала доставки.
func (t *Transport) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			t.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery разбирает и диспетчеризует одно сообщение.
//
// Сообщения шины — телеметрия, а не единицы работы: любое сообщение
// подтверждается, некорректные отбрасываются с записью в лог.
func (t *Transport) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	defer raw.Ack(false)

	var env Envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		t.logger.Error("failed to unmarshal envelope", "queue", t.queue, "error", err)
		telemetry.MalformedTopics.Inc()
		return
	}

	topic, err := ParseTopic(env.Topic)
	if err != nil {
		t.logger.Warn("dropping message with malformed topic", "topic", env.Topic, "error", err)
		telemetry.MalformedTopics.Inc()
		return
	}

	// Ожидаемые ответы имеют приоритет над общими обработчиками.
	t.mu.RLock()
	responder := t.responder
	handlers := t.handlers
	t.mu.RUnlock()

	if responder != nil && responder.Consume(topic, env.Payload) {
		return
	}

	for _, e := range handlers {
		if strings.HasPrefix(topic.Raw, e.prefix) {
			e.handler(ctx, topic, env.Payload)
			return
		}
	}

	t.logger.Debug("no handler for topic", "topic", topic.Raw)
}
