package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"studyrag/backend/internal/apperr"
	"studyrag/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.History(r.Context(), r.PathValue("courseID"))
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"messages": messages,
			"total":    len(messages),
		},
	})
}

// Send streams the assistant's answer over SSE: one "token" event per
// chunk, a final "done" event carrying the full answer, or an "error"
// event if generation fails after the stream has started.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseID")

	var req struct {
		Message string `json:"message"`
		Mode    string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "message is required", http.StatusBadRequest)
		return
	}
	if req.Mode != ModeAcademic && req.Mode != ModeCasual {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "mode must be academic or casual", http.StatusBadRequest)
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

	full, err := h.service.Respond(r.Context(), courseID, req.Mode, req.Message, func(token string) error {
		return writeSSE(w, flusher, map[string]interface{}{"type": "token", "content": token})
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "chat response failed", "error", err, "course_id", courseID)
		_ = writeSSE(w, flusher, map[string]interface{}{
			"type":    "error",
			"message": "Failed to generate response. Please try again.",
		})
		return
	}

	_ = writeSSE(w, flusher, map[string]interface{}{"type": "done", "content": full})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
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
