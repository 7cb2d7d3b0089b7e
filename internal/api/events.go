package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamEvents отдаёт события сессии клиенту как server-sent events.
//
// Сессия живёт, пока открыт запрос; повторное подключение с тем же
// идентификатором заменяет предыдущую сессию. Поток закрывается
// relay'ем (финальное событие задачи) или самим клиентом.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if sessionID == "" {
		BadRequest(w, "session id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, ErrCodeInternalError, "streaming unsupported")
		return
	}

	session := h.relay.Connect(sessionID)
	defer h.relay.Disconnect(sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-session.Events():
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("failed to marshal session event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
