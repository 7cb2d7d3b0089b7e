package bus

import (
	"errors"
	"fmt"
	"strings"
)

// Виды топиков.
const (
	KindQuery   = "query"   // <ns>/k8s/host/query/<host>/<task>/<requestId>
	KindRespond = "respond" // <ns>/k8s/host/respond/<target>/<...>/<requestId>
	KindTaskNew = "taskNew" // <ns>/task/new/<storageId>
	KindEvent   = "event"   // <ns>/cli/event/<task>/<sessionId>
)

// Ошибки разбора топиков.
var (
	// ErrMalformedTopic — топик не соответствует ни одной известной схеме.
	ErrMalformedTopic = errors.New("malformed topic")
)

// Topic — разобранный топик шины.
//
// Разбор строгий: неизвестная схема, пустые сегменты или неверное
// количество сегментов — ошибка. Сообщения с невалидным топиком
// отбрасываются транспортом (fail closed), а не индексируются вслепую.
type Topic struct {
	Raw      string
	Segments []string

	Namespace string
	Kind      string

	// Host — целевой хост (query) или адресат ответа (respond, всегда "api").
	Host string

	// Task — имя удалённой операции (query/respond/event).
	Task string

	// RequestID — корреляционный идентификатор (query/respond).
	RequestID string

	// StorageID — ключ строки задачи в БД (taskNew).
	StorageID string

	// SessionID — идентификатор клиентской сессии (event).
	SessionID string
}

// ParseTopic разбирает строку топика.
func ParseTopic(raw string) (Topic, error) {
	segs := strings.Split(raw, "/")
	for _, s := range segs {
		if s == "" {
			return Topic{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedTopic, raw)
		}
	}

	t := Topic{Raw: raw, Segments: segs}
	if len(segs) < 4 {
		return Topic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, raw)
	}
	t.Namespace = segs[0]

	switch {
	case segs[1] == "k8s" && segs[2] == "host" && segs[3] == KindQuery:
		if len(segs) != 7 {
			return Topic{}, fmt.Errorf("%w: query topic needs 7 segments, got %d", ErrMalformedTopic, len(segs))
		}
		t.Kind = KindQuery
		t.Host = segs[4]
		t.Task = segs[5]
		t.RequestID = segs[6]

	case segs[1] == "k8s" && segs[2] == "host" && segs[3] == KindRespond:
		// requestId — всегда последний сегмент; середина свободная,
		// но минимум адресат + task + requestId после префикса.
		if len(segs) < 7 {
			return Topic{}, fmt.Errorf("%w: respond topic needs at least 7 segments, got %d", ErrMalformedTopic, len(segs))
		}
		t.Kind = KindRespond
		t.Host = segs[4]
		t.Task = segs[len(segs)-2]
		t.RequestID = segs[len(segs)-1]

	case segs[1] == "task" && segs[2] == "new":
		if len(segs) != 4 {
			return Topic{}, fmt.Errorf("%w: task topic needs 4 segments, got %d", ErrMalformedTopic, len(segs))
		}
		t.Kind = KindTaskNew
		t.StorageID = segs[3]

	case segs[1] == "cli" && segs[2] == "event":
		if len(segs) != 5 {
			return Topic{}, fmt.Errorf("%w: event topic needs 5 segments, got %d", ErrMalformedTopic, len(segs))
		}
		t.Kind = KindEvent
		t.Task = segs[3]
		t.SessionID = segs[4]

	default:
		return Topic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, raw)
	}

	return t, nil
}

// QueryTopic строит топик запроса к хосту.
func QueryTopic(ns, host, task, requestID string) string {
	return fmt.Sprintf("%s/k8s/host/query/%s/%s/%s", ns, host, task, requestID)
}

// RespondTopic строит топик ответа хоста.
func RespondTopic(ns, host, task, requestID string) string {
	return fmt.Sprintf("%s/k8s/host/respond/api/%s/%s/%s", ns, host, task, requestID)
}

// TaskNewTopic строит топик уведомления о новой задаче.
func TaskNewTopic(ns, storageID string) string {
	return fmt.Sprintf("%s/task/new/%s", ns, storageID)
}

// EventTopic строит топик внеполосного события для клиентской сессии.
func EventTopic(ns, task, sessionID string) string {
	return fmt.Sprintf("%s/cli/event/%s/%s", ns, task, sessionID)
}

// routingKey отображает топик в AMQP routing key.
// Сегменты хостов с точками (IPv4) при этом дробятся — для маршрутизации
// это не важно, привязки используют wildcard `#`.
func routingKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}
