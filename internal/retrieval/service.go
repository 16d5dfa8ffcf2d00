// Package retrieval turns a student's question into grounded course
// material context for the chat prompt.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studyrag/backend/internal/middleware"
	"studyrag/backend/internal/vector"
)

// NoContextSentinel is what the prompt receives when the course has no
// material matching the query.
const NoContextSentinel = "No relevant course materials found."

const DefaultTopK = 5

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Query(ctx context.Context, courseID string, queryVector []float32, topK int) ([]vector.SearchResult, error)
}

// Refiner produces a single completion; retrieval uses it to rewrite
// follow-up questions into standalone queries.
type Refiner interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	embedder Embedder
	store    VectorStore
	refiner  Refiner
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, r Refiner, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, refiner: r, logger: l}
}

const refinePromptTmpl = `
Given the following conversation history and a follow-up question, rephrase the follow-up question to be a standalone search query.
The query will be used to search a vector database for relevant course materials.

Rules:
1. Incorporate relevant context from the history (e.g. "it", "that") into the query.
2. Keep it concise and focused on keywords.
3. Do NOT answer the question.
4. Do NOT add "search for" or "query".
5. If the question is unrelated to the history, return it as is.

Chat History:
%s

Follow-up Question:
%s

Standalone Search Query:
`

// RefineQuery rewrites a follow-up question into a standalone search query
// using the conversation so far. With no history the question already
// stands alone; a refinement failure falls back to the original question
// rather than failing the chat turn.
func (s *Service) RefineQuery(ctx context.Context, chatHistory, currentQuery string) string {
	if strings.TrimSpace(chatHistory) == "" {
		return currentQuery
	}

	prompt := fmt.Sprintf(refinePromptTmpl, chatHistory, currentQuery)
	refined, err := s.refiner.Generate(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "failed to refine query, using original", "error", err)
		return currentQuery
	}

	refined = strings.TrimSpace(refined)
	if refined == "" {
		return currentQuery
	}
	return refined
}

// RetrieveContext embeds the query, pulls the topK nearest chunks of the
// course and formats them as attributed sources for the prompt.
func (s *Service) RetrieveContext(ctx context.Context, courseID, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", err
	}

	results, err := s.store.Query(ctx, courseID, queryVector, topK)
	if err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			CourseID:      courseID,
			Query:         query,
			NumResults:    len(results),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}

	if len(results) == 0 {
		return NoContextSentinel, nil
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Source %d]\n%s", i+1, r.Content)
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}
