package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"clipforge/internal/logging"
)

const (
	defaultKeepAlive = 15 * time.Second
	eventsBuffer     = 128
)

// eventsHandler streams notification envelopes as Server-Sent Events. Each
// event is named after the envelope type and carries the envelope JSON.
func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Hub == nil {
			WriteError(w, http.StatusServiceUnavailable, "event stream is not configured", "UNAVAILABLE")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}
		keepAlive := cfg.KeepAlive
		if keepAlive <= 0 {
			keepAlive = defaultKeepAlive
		}

		sessionID := r.URL.Query().Get("sessionId")
		sub := cfg.Hub.Subscribe(sessionID, eventsBuffer)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		logger := logging.WithContext(r.Context(), cfg.Logger)
		logger.Debug("event stream opened", logging.String(logging.FieldSessionID, sessionID))

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				logger.Debug("event stream closed", logging.Uint64("dropped", sub.Dropped()))
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case env, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := json.Marshal(env)
				if err != nil {
					logger.Warn("event encode failed", logging.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", env.ID, env.Type, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
