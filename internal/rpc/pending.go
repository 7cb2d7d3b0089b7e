package rpc

import (
	"sync"
	"time"

	"github.com/shaiso/Kontur/internal/telemetry"
)

// exchangeMode — режим разрешения обмена.
type exchangeMode int

const (
	// modeRespond — разрешение первым подходящим ответом.
	modeRespond exchangeMode = iota

	// modeCollect — накопление всех ответов до явного закрытия.
	modeCollect
)

// maxCollected — предел накопления ответов в collect-режиме.
// Лишние ответы отбрасываются, а не копятся без границы.
const maxCollected = 1024

// pendingExchange — один незавершённый обмен.
type pendingExchange struct {
	id        string
	mode      exchangeMode
	host      string
	task      string
	createdAt time.Time

	// ch — канал разрешения respond-режима (ёмкость 1: владелец
	// записи после take пишет без блокировки).
	ch chan *Reply

	// Накопитель collect-режима.
	mu      sync.Mutex
	replies []*Reply
	dropped int
}

// append добавляет ответ в накопитель collect-режима.
func (e *pendingExchange) append(r *Reply) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.replies) >= maxCollected {
		e.dropped++
		telemetry.DroppedReplies.Inc()
		return
	}
	e.replies = append(e.replies, r)
}

// snapshot возвращает копию накопленных ответов в порядке прибытия.
func (e *pendingExchange) snapshot() []*Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Reply, len(e.replies))
	copy(out, e.replies)
	return out
}

// pendingTable — таблица незавершённых обменов.
//
// Все операции сериализованы одним мьютексом: take — единственная
// точка удаления, поэтому ответ и таймаут не могут "выиграть" один
// и тот же обмен одновременно.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingExchange
	max     int
}

func newPendingTable(max int) *pendingTable {
	return &pendingTable{
		entries: make(map[string]*pendingExchange),
		max:     max,
	}
}

// register добавляет обмен в таблицу.
// Идентификатор не может повторять ни один уже зарегистрированный.
func (t *pendingTable) register(e *pendingExchange) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.max {
		return ErrTooManyPending
	}
	if _, exists := t.entries[e.id]; exists {
		return errDuplicateID
	}

	t.entries[e.id] = e
	telemetry.PendingExchanges.Inc()
	return nil
}

// take атомарно изымает обмен из таблицы.
// Возвращает nil, если обмен уже изъят — вызывающий проиграл гонку.
func (t *pendingTable) take(id string) *pendingExchange {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.entries[id]
	if !exists {
		return nil
	}
	delete(t.entries, id)
	telemetry.PendingExchanges.Dec()
	return e
}

// get возвращает обмен без изъятия (collect-режим).
func (t *pendingTable) get(id string) *pendingExchange {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id]
}

// len возвращает количество незавершённых обменов.
func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
