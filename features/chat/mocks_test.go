package chat_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"studyrag/backend/features/chat"
	"studyrag/backend/features/course"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) ListMessages(ctx context.Context, courseID string) ([]chat.Message, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chat.Message), args.Error(1)
}

func (m *MockRepo) SaveExchange(ctx context.Context, courseID, userMessage, assistantMessage string) error {
	args := m.Called(ctx, courseID, userMessage, assistantMessage)
	return args.Error(0)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) RefineQuery(ctx context.Context, chatHistory, currentQuery string) string {
	args := m.Called(ctx, chatHistory, currentQuery)
	return args.String(0)
}

func (m *MockRetriever) RetrieveContext(ctx context.Context, courseID, query string, topK int) (string, error) {
	args := m.Called(ctx, courseID, query, topK)
	return args.String(0), args.Error(1)
}

// MockGenerator replays a fixed token sequence through onToken.
type MockGenerator struct {
	mock.Mock
	Tokens []string

	// Prompt records what the service asked the model to answer.
	Prompt string
}

func (m *MockGenerator) Stream(ctx context.Context, prompt string, onToken func(token string) error) error {
	m.Prompt = prompt
	args := m.Called(ctx, prompt)
	if err := args.Error(0); err != nil {
		return err
	}
	for _, tok := range m.Tokens {
		if err := onToken(tok); err != nil {
			return err
		}
	}
	return nil
}

type MockCourseReader struct {
	mock.Mock
}

func (m *MockCourseReader) Get(ctx context.Context, id string) (*course.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*course.Course), args.Error(1)
}
