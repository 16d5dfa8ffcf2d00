package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"studyrag/backend/internal/pipeline"
)

// Mocks

type MockProcessor struct{ mock.Mock }

func (m *MockProcessor) Process(ctx context.Context, job pipeline.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockStatusUpdater struct{ mock.Mock }

func (m *MockStatusUpdater) MarkSuccess(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockStatusUpdater) MarkFailed(ctx context.Context, docID, reason string) error {
	args := m.Called(ctx, docID, reason)
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
