// Package worker consumes embedding jobs from the queue and drives the
// pipeline, owning document status and retry bookkeeping.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"studyrag/backend/internal/middleware"
	"studyrag/backend/internal/pipeline"
)

// A single document can be large and may need OCR, so the deadline is
// generous. The queue redelivers anything that blows past it.
const processTimeout = 10 * time.Minute

type EmbedConsumer struct {
	processor   Processor
	statuses    DocStatusUpdater
	events      EventEmitter
	maxAttempts int
}

func NewEmbedConsumer(p Processor, s DocStatusUpdater, e EventEmitter, maxAttempts int) *EmbedConsumer {
	return &EmbedConsumer{
		processor:   p,
		statuses:    s,
		events:      e,
		maxAttempts: maxAttempts,
	}
}

func (c *EmbedConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload EmbedJobPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	if payload.CourseID == "" || payload.DocID == "" || payload.FileURL == "" {
		slog.Error("missing required fields, dropping", "course_id", payload.CourseID, "doc_id", payload.DocID)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	slog.InfoContext(ctx, "embedding job started", "doc_id", payload.DocID, "course_id", payload.CourseID, "attempt", m.Attempts)

	c.emit(ctx, payload, pipeline.EmbeddingUpdate{Status: pipeline.StatusActive, Progress: 0})

	jobCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	err := c.processor.Process(jobCtx, pipeline.Job{
		CourseID: payload.CourseID,
		DocID:    payload.DocID,
		FileURL:  payload.FileURL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "embedding job failed", "error", err, "doc_id", payload.DocID, "attempt", m.Attempts)

		if int(m.Attempts) >= c.maxAttempts {
			// Exhausted: record the failure and drop the message. Anything
			// short of the last attempt keeps the document PENDING so the
			// redelivery picks up from the checkpoint.
			if markErr := c.statuses.MarkFailed(ctx, payload.DocID, err.Error()); markErr != nil {
				slog.ErrorContext(ctx, "failed to mark document failed", "error", markErr, "doc_id", payload.DocID)
			}
			c.emit(ctx, payload, pipeline.EmbeddingUpdate{Status: pipeline.StatusFailed, Error: err.Error()})
			return nil
		}
		return err // Retry
	}

	if err := c.statuses.MarkSuccess(ctx, payload.DocID); err != nil {
		slog.ErrorContext(ctx, "failed to mark document success", "error", err, "doc_id", payload.DocID)
	}
	c.emit(ctx, payload, pipeline.EmbeddingUpdate{Status: pipeline.StatusCompleted, Progress: 100})

	slog.InfoContext(ctx, "embedding job completed", "doc_id", payload.DocID, "course_id", payload.CourseID)
	return nil
}

func (c *EmbedConsumer) emit(ctx context.Context, payload EmbedJobPayload, update pipeline.EmbeddingUpdate) {
	update.CourseID = payload.CourseID
	update.DocID = payload.DocID
	if err := c.events.Emit(ctx, update); err != nil {
		slog.WarnContext(ctx, "failed to publish lifecycle event", "error", err, "doc_id", payload.DocID)
	}
}
