package pipeline_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tmc/langchaingo/schema"

	"studyrag/backend/internal/document"
	"studyrag/backend/internal/pipeline"
	"studyrag/backend/internal/vector"
)

// Mocks

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) Fetch(ctx context.Context, fileURL string) (*document.Result, error) {
	args := m.Called(ctx, fileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Result), args.Error(1)
}

type MockTextExtractor struct{ mock.Mock }

func (m *MockTextExtractor) Extract(ctx context.Context, pdfPath, sourceURL string, onProgress func(percent int)) []schema.Document {
	args := m.Called(ctx, pdfPath, sourceURL, onProgress)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]schema.Document)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockVectorStore struct{ mock.Mock }

func (m *MockVectorStore) EnsureCollection(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

func (m *MockVectorStore) ExistingKeys(ctx context.Context, courseID string, keys []string) (map[string]bool, error) {
	args := m.Called(ctx, courseID, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockVectorStore) Add(ctx context.Context, courseID string, chunks []vector.Chunk) error {
	args := m.Called(ctx, courseID, chunks)
	return args.Error(0)
}

type MockEventEmitter struct {
	mock.Mock
	Updates []pipeline.EmbeddingUpdate
}

func (m *MockEventEmitter) Emit(ctx context.Context, update pipeline.EmbeddingUpdate) error {
	m.Updates = append(m.Updates, update)
	args := m.Called(ctx, update)
	return args.Error(0)
}
