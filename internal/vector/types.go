package vector

import (
	"fmt"

	"github.com/google/uuid"
)

// Chunk is one unit of embedded course material headed for, or retrieved
// from, the vector store.
type Chunk struct {
	// Key identifies the chunk within its course, "{docID}_chunk_{index}".
	Key      string
	DocID    string
	Index    int
	Content  string
	Metadata map[string]interface{}
	Vector   []float32
}

// SearchResult is a chunk returned from a similarity query.
type SearchResult struct {
	Content  string
	DocID    string
	Key      string
	Distance float32
}

// ChunkKey builds the stable per-course identity of a chunk.
func ChunkKey(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// ObjectID derives the deterministic store object id for a chunk key.
// Re-importing the same chunk overwrites the same object, which makes
// replays of partially processed documents idempotent.
func ObjectID(chunkKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkKey)).String()
}
