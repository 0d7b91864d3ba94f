package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/media/convert"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/trigger"
)

// maxBodyBytes bounds request bodies; every body here is a small JSON object.
const maxBodyBytes = 1 << 20

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))
		r.Get("/status", statusHandler(cfg))
		r.Get("/events", eventsHandler(cfg))

		r.Get("/sessions", listSessionsHandler(cfg))
		r.Post("/sessions", startSessionHandler(cfg))
		r.Get("/sessions/{id}", getSessionHandler(cfg))
		r.Delete("/sessions/{id}", deleteSessionHandler(cfg))
		r.Post("/sessions/{id}/end", endSessionHandler(cfg))
		r.Post("/sessions/{id}/triggers", triggerHandler(cfg))
		r.Get("/sessions/{id}/items", sessionItemsHandler(cfg))

		r.Get("/queue", listQueueHandler(cfg))
		r.Get("/queue/stats", queueStatsHandler(cfg))
		r.Post("/queue/retry-failed", retryAllHandler(cfg))
		r.Delete("/queue/completed", clearCompletedHandler(cfg))
		r.Get("/queue/{id}", getQueueItemHandler(cfg))
		r.Post("/queue/{id}/end", endClipHandler(cfg))
		r.Post("/queue/{id}/cancel", cancelClipHandler(cfg))
		r.Post("/queue/{id}/retry", retryHandler(cfg))

		r.Get("/trigger-configs/{workflow}", getTriggerConfigHandler(cfg))
		r.Put("/trigger-configs/{workflow}", putTriggerConfigHandler(cfg))

		r.Get("/clips/{id}", getClipHandler(cfg))
		r.Post("/clips/{id}/export", exportClipHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}
		health, err := cfg.Store.CheckHealth(r.Context())
		resp.DBOK = err == nil && health.DatabaseReadable && health.IntegrityCheck
		if !resp.DBOK {
			resp.Status = "degraded"
			if err != nil {
				resp.Detail = err.Error()
			} else {
				resp.Detail = health.Error
			}
			WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Status != nil {
			WriteJSON(w, http.StatusOK, cfg.Status(r.Context()))
			return
		}
		status := DaemonStatus{
			Running:      true,
			PID:          os.Getpid(),
			QueueDBPath:  cfg.Store.Path(),
			ActiveClips:  []ActiveClip{},
			Dependencies: []DependencyStatus{},
		}
		if cfg.Workflow != nil {
			status.Workflow = FromStatusSummary(cfg.Workflow.Status(r.Context()))
		}
		if cfg.AutoClip != nil {
			status.ActiveClips = FromActiveClips(cfg.AutoClip.Active())
		}
		if cfg.Hub != nil {
			status.Subscribers = cfg.Hub.Subscribers()
		}
		WriteJSON(w, http.StatusOK, status)
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := cfg.Store.ListSessions(r.Context())
		if err != nil {
			writeInternal(w, r, cfg, "list sessions", err)
			return
		}
		resp := SessionListResponse{Sessions: make([]Session, 0, len(sessions))}
		for _, s := range sessions {
			resp.Sessions = append(resp.Sessions, FromSession(s))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func startSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		session, err := cfg.AutoClip.StartSession(r.Context(), strings.TrimSpace(req.ID), strings.TrimSpace(req.Workflow), strings.TrimSpace(req.SourcePath))
		if err != nil {
			writeDomainError(w, r, cfg, "start session", err)
			return
		}
		WriteJSON(w, http.StatusCreated, FromSession(session))
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := cfg.Store.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeInternal(w, r, cfg, "get session", err)
			return
		}
		if session == nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, FromSession(session))
	}
}

func deleteSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := cfg.AutoClip.DeleteSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeInternal(w, r, cfg, "delete session", err)
			return
		}
		if !removed {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func endSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		session, err := cfg.Store.GetSession(r.Context(), id)
		if err != nil {
			writeInternal(w, r, cfg, "get session", err)
			return
		}
		if session == nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		writeEnded(w, cfg.AutoClip.EndSession(r.Context(), id))
	}
}

func triggerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req trigger.Request
		if !decodeBody(w, r, &req) {
			return
		}
		ev, err := trigger.FromRequest(id, req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TRIGGER")
			return
		}
		session, err := cfg.Store.GetSession(r.Context(), id)
		if err != nil {
			writeInternal(w, r, cfg, "get session", err)
			return
		}
		if session == nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		item := cfg.AutoClip.HandleTrigger(r.Context(), ev)
		if item == nil {
			WriteJSON(w, http.StatusOK, TriggerResponse{Accepted: false})
			return
		}
		dto := FromQueueItem(item)
		WriteJSON(w, http.StatusCreated, TriggerResponse{Accepted: true, Item: &dto})
	}
}

func sessionItemsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := cfg.Store.ListBySession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeInternal(w, r, cfg, "list session items", err)
			return
		}
		WriteJSON(w, http.StatusOK, QueueListResponse{Items: FromQueueItems(items)})
	}
}

func listQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statuses []queue.Status
		for _, raw := range r.URL.Query()["status"] {
			for _, part := range strings.Split(raw, ",") {
				if strings.TrimSpace(part) == "" {
					continue
				}
				status, ok := queue.ParseStatus(part)
				if !ok {
					WriteError(w, http.StatusBadRequest, "unknown status "+part, "INVALID_STATUS")
					return
				}
				statuses = append(statuses, status)
			}
		}
		items, err := cfg.Store.List(r.Context(), statuses...)
		if err != nil {
			writeInternal(w, r, cfg, "list queue", err)
			return
		}
		WriteJSON(w, http.StatusOK, QueueListResponse{Items: FromQueueItems(items)})
	}
}

func queueStatsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := cfg.Store.Stats(r.Context())
		if err != nil {
			writeInternal(w, r, cfg, "queue stats", err)
			return
		}
		WriteJSON(w, http.StatusOK, QueueStatsResponse{Counts: FromQueueStats(stats)})
	}
}

func retryAllHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := cfg.Workflow.RetryAllFailed(r.Context())
		if err != nil {
			writeInternal(w, r, cfg, "retry failed items", err)
			return
		}
		WriteJSON(w, http.StatusOK, CountResponse{Count: count})
	}
}

func clearCompletedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := cfg.Store.ClearCompleted(r.Context())
		if err != nil {
			writeInternal(w, r, cfg, "clear completed", err)
			return
		}
		WriteJSON(w, http.StatusOK, CountResponse{Count: count})
	}
}

func getQueueItemHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := loadItem(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, FromQueueItem(item))
	}
}

func endClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EndClipRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}
		item, ok := loadItem(w, r, cfg)
		if !ok {
			return
		}
		if item.Status != queue.StatusRecording {
			WriteError(w, http.StatusConflict, "item is "+string(item.Status)+", not RECORDING", "INVALID_TRANSITION")
			return
		}
		writeEnded(w, cfg.AutoClip.EndClip(r.Context(), item.ID, req.T1))
	}
}

func cancelClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := loadItem(w, r, cfg)
		if !ok {
			return
		}
		if item.Status == queue.StatusCompleted {
			WriteError(w, http.StatusConflict, "completed items cannot be cancelled", "INVALID_TRANSITION")
			return
		}
		if !cfg.AutoClip.CancelClip(r.Context(), item.ID) {
			WriteError(w, http.StatusConflict, "item could not be cancelled", "INVALID_TRANSITION")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func retryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := cfg.Workflow.Retry(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, cfg, "retry", err)
			return
		}
		WriteJSON(w, http.StatusOK, FromQueueItem(item))
	}
}

func getTriggerConfigHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowName := chi.URLParam(r, "workflow")
		WriteJSON(w, http.StatusOK, FromTriggerConfig(cfg.AutoClip.Config(r.Context(), workflowName)))
	}
}

func putTriggerConfigHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowName := chi.URLParam(r, "workflow")
		var req TriggerConfig
		if !decodeBody(w, r, &req) {
			return
		}
		if req.AutoClipDuration < 0 || req.CooldownSeconds < 0 {
			WriteError(w, http.StatusBadRequest, "durations must be zero or positive", "INVALID_CONFIG")
			return
		}
		if _, err := cfg.Store.UpsertTriggerConfig(r.Context(), ToTriggerConfig(workflowName, req)); err != nil {
			writeInternal(w, r, cfg, "upsert trigger config", err)
			return
		}
		updated, err := cfg.AutoClip.ReloadConfig(r.Context(), workflowName)
		if err != nil {
			writeInternal(w, r, cfg, "reload trigger config", err)
			return
		}
		WriteJSON(w, http.StatusOK, FromTriggerConfig(updated))
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, ok := loadClip(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, FromClip(clip))
	}
}

func exportClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Optimizer == nil {
			WriteError(w, http.StatusServiceUnavailable, "export is not configured", "UNAVAILABLE")
			return
		}
		var req ExportRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.Platforms) == 0 {
			WriteError(w, http.StatusBadRequest, "at least one platform is required", "INVALID_REQUEST")
			return
		}
		clip, ok := loadClip(w, r, cfg)
		if !ok {
			return
		}
		outputDir := cfg.ExportDir
		if outputDir == "" {
			outputDir = filepath.Join(filepath.Dir(clip.Path), "exports")
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			writeInternal(w, r, cfg, "create export directory", err)
			return
		}
		outcomes, _ := cfg.Optimizer.ExportAll(r.Context(), exportBase(clip, req, outputDir), req.Platforms)
		WriteJSON(w, http.StatusOK, ExportResponse{ClipID: clip.ID, Results: FromExportOutcomes(outcomes)})
	}
}

func loadItem(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*queue.Item, bool) {
	item, err := cfg.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeInternal(w, r, cfg, "get item", err)
		return nil, false
	}
	if item == nil {
		WriteError(w, http.StatusNotFound, "queue item not found", "NOT_FOUND")
		return nil, false
	}
	return item, true
}

func loadClip(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*queue.Clip, bool) {
	clip, err := cfg.Store.GetClip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeInternal(w, r, cfg, "get clip", err)
		return nil, false
	}
	if clip == nil {
		WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
		return nil, false
	}
	return clip, true
}

func writeEnded(w http.ResponseWriter, item *queue.Item) {
	if item == nil {
		WriteJSON(w, http.StatusOK, EndResponse{Ended: false})
		return
	}
	dto := FromQueueItem(item)
	WriteJSON(w, http.StatusOK, EndResponse{Ended: true, Item: &dto})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, false)
}

// decodeOptionalBody accepts an empty body and leaves dst untouched.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "INVALID_REQUEST")
		return false
	}
	return true
}

func exportBase(clip *queue.Clip, req ExportRequest, outputDir string) export.Request {
	return export.Request{
		ClipPath:  clip.Path,
		Format:    req.Format,
		Quality:   req.Quality,
		Watermark: req.Watermark,
		OutputDir: outputDir,
	}
}

// writeDomainError maps queue sentinels and service markers to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, cfg ServerConfig, op string, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound), errors.Is(err, services.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, queue.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, services.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
	case convert.KindOf(err) != "":
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), string(convert.KindOf(err)))
	default:
		writeInternal(w, r, cfg, op, err)
	}
}

func writeInternal(w http.ResponseWriter, r *http.Request, cfg ServerConfig, op string, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), cfg.Logger), "api request failed", "api_error",
		logging.String("op", op),
		logging.String("path", r.URL.Path),
		logging.Error(err),
	)
	WriteError(w, http.StatusInternalServerError, op+" failed", "INTERNAL_ERROR")
}
