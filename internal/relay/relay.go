// Package relay маршрутизирует внеполосные события прогресса к
// подключённым клиентским сессиям, независимо от пути запрос/ответ.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shaiso/Kontur/internal/bus"
	"github.com/shaiso/Kontur/internal/telemetry"
)

// Виды событий.
const (
	KindInfo  = "info"
	KindError = "error"
)

// Event — одно событие для клиентской сессии.
type Event map[string]any

// Session — подключённая клиентская сессия.
type Session struct {
	id string
	ch chan Event

	once sync.Once
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string {
	return s.id
}

// Events возвращает канал событий сессии.
// Канал закрывается при отключении сессии.
func (s *Session) Events() <-chan Event {
	return s.ch
}

// close закрывает канал сессии ровно один раз.
func (s *Session) close() {
	s.once.Do(func() { close(s.ch) })
}

// Relay — реестр живых клиентских сессий.
//
// Создаётся один на процесс; удалённая сторона может продолжать
// публиковать события после ухода клиента — такие события молча
// игнорируются.
type Relay struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New создаёт Relay.
func New(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Connect регистрирует сессию. Повторное подключение с тем же
// идентификатором отключает предыдущую сессию.
func (r *Relay) Connect(id string) *Session {
	s := &Session{id: id, ch: make(chan Event, 64)}

	r.mu.Lock()
	if old, exists := r.sessions[id]; exists {
		old.close()
	} else {
		telemetry.RelaySessions.Inc()
	}
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Debug("session connected", "session_id", id)
	return s
}

// Disconnect снимает сессию с регистрации и закрывает её канал.
func (r *Relay) Disconnect(id string) {
	r.mu.Lock()
	s, exists := r.sessions[id]
	if exists {
		delete(r.sessions, id)
		telemetry.RelaySessions.Dec()
	}
	r.mu.Unlock()

	if exists {
		s.close()
		r.logger.Debug("session disconnected", "session_id", id)
	}
}

// Count возвращает количество подключённых сессий.
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Emit доставляет событие сессии.
//
//   - kind "info"  — событие пересылается как есть;
//   - kind "error" — событие пересылается с флагом error:true;
//   - любой другой kind — сессия отключается;
//   - неизвестная сессия — событие игнорируется.
func (r *Relay) Emit(sessionID, kind string, event Event) {
	r.mu.Lock()
	s, exists := r.sessions[sessionID]
	r.mu.Unlock()

	if !exists {
		return
	}

	switch kind {
	case KindInfo:
		// как есть
	case KindError:
		tagged := make(Event, len(event)+1)
		for k, v := range event {
			tagged[k] = v
		}
		tagged["error"] = true
		event = tagged
	default:
		r.logger.Warn("unknown event kind, disconnecting session",
			"session_id", sessionID,
			"kind", kind,
		)
		r.Disconnect(sessionID)
		return
	}

	// Медленный клиент не должен блокировать шину.
	select {
	case s.ch <- event:
	default:
		r.logger.Warn("session event buffer full, dropping event", "session_id", sessionID)
	}
}

// HandleEvent — обработчик event-топиков шины
// (`<ns>/cli/event/<task>/<sessionId>`).
//
// Нагрузка — JSON-объект с опциональным полем kind (default: info).
func (r *Relay) HandleEvent(_ context.Context, topic bus.Topic, payload []byte) {
	var body map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			r.logger.Warn("dropping unparsable session event",
				"session_id", topic.SessionID,
				"error", err,
			)
			return
		}
	}

	kind := KindInfo
	if k, ok := body["kind"].(string); ok && k != "" {
		kind = k
		delete(body, "kind")
	}

	event := Event{"task": topic.Task}
	for k, v := range body {
		event[k] = v
	}

	r.Emit(topic.SessionID, kind, event)
}
