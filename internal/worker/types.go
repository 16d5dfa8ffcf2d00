package worker

import (
	"context"

	"studyrag/backend/internal/pipeline"
)

// EmbedJobPayload is the message published when a course document is
// registered or retried.
type EmbedJobPayload struct {
	CourseID string `json:"course_id"`
	DocID    string `json:"doc_id"`
	FileURL  string `json:"file_url"`

	CorrelationID string `json:"correlation_id"`
}

type Processor interface {
	Process(ctx context.Context, job pipeline.Job) error
}

type DocStatusUpdater interface {
	MarkSuccess(ctx context.Context, docID string) error
	MarkFailed(ctx context.Context, docID, reason string) error
}

type EventEmitter interface {
	Emit(ctx context.Context, update pipeline.EmbeddingUpdate) error
}
