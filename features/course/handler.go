package course

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"studyrag/backend/internal/apperr"
	"studyrag/backend/internal/middleware"
	"studyrag/backend/internal/pipeline"
)

const heartbeatInterval = 30 * time.Second

// EventSource delivers live embedding updates for a course.
type EventSource interface {
	Subscribe(ctx context.Context, courseID string, handler func(pipeline.EmbeddingUpdate)) func()
}

type Handler struct {
	service *Service
	events  EventSource
}

func NewHandler(service *Service, events EventSource) *Handler {
	return &Handler{service: service, events: events}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"course_code"`
		Title       string `json:"course_title"`
		Description string `json:"course_description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "course_code is required", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "course_title is required", http.StatusBadRequest)
		return
	}

	c := &Course{Code: req.Code, Title: req.Title, Description: req.Description}
	if err := h.service.Create(r.Context(), c); err != nil {
		if errors.Is(err, ErrDuplicateCourse) {
			h.writeError(r.Context(), w, "DUPLICATE_COURSE", "You cannot create the same course twice", http.StatusConflict)
			return
		}
		slog.Error("operation failed", "error", err, "course_code", req.Code)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": c})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("operation failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if courses == nil {
		courses = []Course{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": courses})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": c})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RegisterDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []DocumentInput `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Documents) == 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "documents is required", http.StatusBadRequest)
		return
	}
	for _, d := range req.Documents {
		if d.FileURL == "" {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "file_url is required", http.StatusBadRequest)
			return
		}
	}

	docs, err := h.service.RegisterDocuments(r.Context(), r.PathValue("id"), req.Documents)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": docs, "count": len(docs)})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": docs})
}

func (h *Handler) RetryDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Retry(r.Context(), r.PathValue("id"), r.PathValue("docID"))
	if err != nil {
		if errors.Is(err, errNotInCourse) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found in course", http.StatusNotFound)
			return
		}
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": doc})
}

// EmbeddingEvents streams live pipeline progress for a course over SSE.
// The connection stays open until the client goes away; a heartbeat keeps
// intermediaries from closing it.
func (h *Handler) EmbeddingEvents(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if _, err := h.service.Get(r.Context(), courseID); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	events := make(chan pipeline.EmbeddingUpdate, 16)
	unsubscribe := h.events.Subscribe(ctx, courseID, func(update pipeline.EmbeddingUpdate) {
		select {
		case events <- update:
		default:
			// Slow client; progress is a live signal, dropping is fine.
		}
	})
	defer unsubscribe()

	writeSSE(w, flusher, map[string]interface{}{"type": "connected", "courseId": courseID})

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(w, flusher, map[string]interface{}{"type": "heartbeat"})
		case update := <-events:
			writeSSE(w, flusher, map[string]interface{}{
				"type":     "update",
				"courseId": update.CourseID,
				"docId":    update.DocID,
				"status":   update.Status,
				"stage":    update.Stage,
				"progress": update.Progress,
				"error":    update.Error,
			})
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal sse event", "error", err)
		return
	}
	if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		h.writeError(ctx, w, "NOT_FOUND", "Course not found", http.StatusNotFound)
		return
	}
	slog.Error("operation failed", "error", err)
	h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
