package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"studyrag/backend/internal/middleware"
)

type CourseCounter interface {
	CountCourses(ctx context.Context) (int, error)
	CountDocuments(ctx context.Context) (int, error)
	CountFailedDocuments(ctx context.Context) (int, error)
}

type ChatCounter interface {
	CountMessages(ctx context.Context) (int, error)
}

type Handler struct {
	courses CourseCounter
	chats   ChatCounter
}

func NewHandler(courses CourseCounter, chats ChatCounter) *Handler {
	return &Handler{courses: courses, chats: chats}
}

type StatsResponse struct {
	Courses         int `json:"courses"`
	Documents       int `json:"documents"`
	FailedDocuments int `json:"failed_documents"`
	ChatMessages    int `json:"chat_messages"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	cCount, err := h.courses.CountCourses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count courses", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count courses", http.StatusInternalServerError)
		return
	}

	dCount, err := h.courses.CountDocuments(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count documents", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count documents", http.StatusInternalServerError)
		return
	}

	fCount, err := h.courses.CountFailedDocuments(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count failed documents", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count failed documents", http.StatusInternalServerError)
		return
	}

	mCount, err := h.chats.CountMessages(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chat messages", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count chat messages", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Courses:         cCount,
		Documents:       dCount,
		FailedDocuments: fCount,
		ChatMessages:    mCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
