package pipeline

// Stages and statuses carried on progress events. Frontend clients key off
// these values, so they stay stable.
const (
	StageOCR       = "ocr"
	StageEmbedding = "embedding"

	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// EmbeddingUpdate is the progress event published while a document moves
// through the pipeline.
type EmbeddingUpdate struct {
	CourseID string `json:"courseId"`
	DocID    string `json:"docId"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}
