// Package gemini wraps the Google generative AI client behind the small
// interfaces the pipeline and chat layers consume.
package gemini

import (
	"context"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studyrag/backend/internal/apperr"
)

const providerName = "GoogleAI"

type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(client *genai.Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, apperr.NewExternalAPIError("failed to embed text", providerName, err)
	}
	if res.Embedding == nil {
		return nil, nil
	}
	return res.Embedding.Values, nil
}

// EmbedDocuments embeds a batch of texts in one round trip. The returned
// slice is positional: vectors[i] belongs to texts[i], and a missing or
// empty vector at a position means the provider returned nothing usable
// for that text.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, apperr.NewExternalAPIError("failed to embed documents", providerName, err)
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if i >= len(vectors) || emb == nil {
			continue
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
