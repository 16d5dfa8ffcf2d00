// Package pipeline turns a registered course document into embedded chunks
// in the vector store, reporting progress along the way.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/schema"

	"studyrag/backend/internal/apperr"
	"studyrag/backend/internal/document"
	"studyrag/backend/internal/text"
	"studyrag/backend/internal/vector"
)

const (
	batchSize       = 20
	interBatchDelay = 100 * time.Millisecond
	maxRetries      = 2 // attempts per provider call = maxRetries + 1
	retryInterval   = time.Second
)

// Job identifies one document to embed.
type Job struct {
	CourseID string
	DocID    string
	FileURL  string
}

type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) (*document.Result, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, pdfPath, sourceURL string, onProgress func(percent int)) []schema.Document
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	EnsureCollection(ctx context.Context, courseID string) error
	ExistingKeys(ctx context.Context, courseID string, keys []string) (map[string]bool, error)
	Add(ctx context.Context, courseID string, chunks []vector.Chunk) error
}

type EventEmitter interface {
	Emit(ctx context.Context, update EmbeddingUpdate) error
}

type Processor struct {
	fetcher  Fetcher
	ocr      TextExtractor
	embedder Embedder
	store    VectorStore
	events   EventEmitter
}

func NewProcessor(fetcher Fetcher, ocr TextExtractor, embedder Embedder, store VectorStore, events EventEmitter) *Processor {
	return &Processor{fetcher: fetcher, ocr: ocr, embedder: embedder, store: store, events: events}
}

// Process runs the full pipeline for one document: fetch, extract (with an
// OCR rescue for scanned PDFs), normalize, chunk, embed in batches and
// import into the course's collection. Chunks already present in the store
// are skipped, so re-running a partially finished job only pays for the
// remainder. Errors are returned as-is; the caller owns retry and status
// bookkeeping.
func (p *Processor) Process(ctx context.Context, job Job) error {
	res, err := p.fetcher.Fetch(ctx, job.FileURL)
	if err != nil {
		return err
	}
	defer res.Close()

	docs := res.Documents
	if res.NeedsOCR {
		slog.InfoContext(ctx, "no extractable text, falling back to ocr", "doc_id", job.DocID, "url", job.FileURL)
		docs = p.ocr.Extract(ctx, res.LocalPath, job.FileURL, func(percent int) {
			p.emitProgress(ctx, job, StageOCR, percent)
		})
		if document.NeedsOCR(docs) {
			return apperr.NewDocumentProcessingError("No text could be extracted from this document, even with OCR")
		}
	}

	docs = text.CleanDocuments(docs)
	chunks, err := document.Split(docs)
	if err != nil {
		return fmt.Errorf("split document: %w", err)
	}
	if len(chunks) == 0 {
		return apperr.NewDocumentProcessingError("Document contains no embeddable content")
	}

	if err := p.store.EnsureCollection(ctx, job.CourseID); err != nil {
		return fmt.Errorf("ensure course collection: %w", err)
	}

	records := make([]vector.Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Chunk{
			Key:      vector.ChunkKey(job.DocID, i),
			DocID:    job.DocID,
			Index:    i,
			Content:  c.PageContent,
			Metadata: c.Metadata,
		}
	}

	total := len(records)
	processed := 0
	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)
		batch := records[start:end]

		if err := p.processBatch(ctx, job, batch); err != nil {
			return err
		}

		processed += len(batch)
		p.emitProgress(ctx, job, StageEmbedding, percentOf(processed, total))

		if end < total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}
	}

	slog.InfoContext(ctx, "document embedded", "doc_id", job.DocID, "chunks", total)
	return nil
}

func (p *Processor) processBatch(ctx context.Context, job Job, batch []vector.Chunk) error {
	pending := p.filterCheckpointed(ctx, job.CourseID, batch)
	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.Content
	}

	var vectors [][]float32
	err := p.retry(ctx, func() error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedDocuments(ctx, texts)
		return embedErr
	})
	if err != nil {
		return err
	}

	embedded := make([]vector.Chunk, 0, len(pending))
	for i, c := range pending {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			slog.WarnContext(ctx, "no embedding returned for chunk, skipping", "chunk_key", c.Key)
			continue
		}
		c.Vector = vectors[i]
		embedded = append(embedded, c)
	}
	if len(embedded) == 0 {
		return nil
	}

	return p.retry(ctx, func() error {
		return p.store.Add(ctx, job.CourseID, embedded)
	})
}

// filterCheckpointed drops chunks the store already holds. A lookup failure
// keeps the whole batch: embedding a chunk twice is idempotent, losing one
// is not.
func (p *Processor) filterCheckpointed(ctx context.Context, courseID string, batch []vector.Chunk) []vector.Chunk {
	keys := make([]string, len(batch))
	for i, c := range batch {
		keys[i] = c.Key
	}

	existing, err := p.store.ExistingKeys(ctx, courseID, keys)
	if err != nil {
		slog.WarnContext(ctx, "checkpoint lookup failed, reprocessing batch", "error", err)
		return batch
	}
	if len(existing) == 0 {
		return batch
	}

	pending := make([]vector.Chunk, 0, len(batch))
	for _, c := range batch {
		if !existing[c.Key] {
			pending = append(pending, c)
		}
	}
	return pending
}

func (p *Processor) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
}

// emitProgress publishes a progress event. Delivery is best effort: a dead
// event bus must not fail the document.
func (p *Processor) emitProgress(ctx context.Context, job Job, stage string, percent int) {
	update := EmbeddingUpdate{
		CourseID: job.CourseID,
		DocID:    job.DocID,
		Status:   StatusActive,
		Stage:    stage,
		Progress: percent,
	}
	if err := p.events.Emit(ctx, update); err != nil {
		slog.WarnContext(ctx, "failed to publish progress event", "error", err, "stage", stage)
	}
}

func percentOf(processed, total int) int {
	return int(math.Round(float64(processed) / float64(total) * 100))
}
