package document

import (
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// ChunkSize is the target passage length in characters.
	ChunkSize = 1000
	// ChunkOverlap carries trailing context into the next chunk.
	ChunkOverlap = 200
)

// Split cuts normalized records into overlapping passages, preferring
// paragraph boundaries, then lines, then spaces, then raw characters.
// Chunk boundaries are a pure function of the input text: re-splitting the
// same content always reproduces the same sequence, which the embedding
// checkpoint relies on.
func Split(docs []schema.Document) ([]schema.Document, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(ChunkSize),
		textsplitter.WithChunkOverlap(ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)
	return textsplitter.SplitDocuments(splitter, docs)
}
