package config

import "fmt"

const (
	// TopicEmbedding is the NSQ topic carrying document embedding jobs.
	TopicEmbedding = "embedding.task"

	// ChannelWorker is the NSQ channel the embedding worker consumes on.
	ChannelWorker = "worker"
)

// EmbeddingEventsChannel is the Redis pub/sub channel carrying progress
// updates for one course's documents. Events on it are best-effort hints;
// authoritative status lives in the course_docs table.
func EmbeddingEventsChannel(courseID string) string {
	return fmt.Sprintf("course:%s:embeddings", courseID)
}
