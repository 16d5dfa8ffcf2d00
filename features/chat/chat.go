// Package chat orchestrates retrieval-augmented conversations over a
// course's embedded material and persists the transcript.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studyrag/backend/features/course"
)

// Message roles as stored in the transcript.
const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

// Answer modes.
const (
	ModeAcademic = "academic"
	ModeCasual   = "casual"
)

// retrieveTopK is how many source chunks back each answer.
const retrieveTopK = 5

type Message struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	ListMessages(ctx context.Context, courseID string) ([]Message, error)
	SaveExchange(ctx context.Context, courseID, userMessage, assistantMessage string) error
}

// Retriever covers the query-side retrieval operations.
type Retriever interface {
	RefineQuery(ctx context.Context, chatHistory, currentQuery string) string
	RetrieveContext(ctx context.Context, courseID, query string, topK int) (string, error)
}

// Generator streams the model's answer token by token.
type Generator interface {
	Stream(ctx context.Context, prompt string, onToken func(token string) error) error
}

type CourseReader interface {
	Get(ctx context.Context, id string) (*course.Course, error)
}

type Service struct {
	repo      Repository
	retriever Retriever
	generator Generator
	courses   CourseReader
}

func NewService(repo Repository, retriever Retriever, generator Generator, courses CourseReader) *Service {
	return &Service{repo: repo, retriever: retriever, generator: generator, courses: courses}
}

func (s *Service) History(ctx context.Context, courseID string) ([]Message, error) {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, courseID)
}

// Respond runs one chat turn: compact history, refine the question into a
// search query, retrieve context, build the prompt and stream the answer
// through onToken. The exchange is persisted only after a fully streamed
// answer; a mid-stream failure leaves the transcript untouched.
func (s *Service) Respond(ctx context.Context, courseID, mode, userMessage string, onToken func(token string) error) (string, error) {
	c, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return "", err
	}

	messages, err := s.repo.ListMessages(ctx, courseID)
	if err != nil {
		return "", err
	}
	history := CompactHistory(messages, KeepRecentCount)

	refined := s.retriever.RefineQuery(ctx, history, userMessage)
	materialContext, err := s.retriever.RetrieveContext(ctx, courseID, refined, retrieveTopK)
	if err != nil {
		return "", err
	}

	prompt := buildPrompt(mode, materialContext, history, userMessage, c)

	var full strings.Builder
	err = s.generator.Stream(ctx, prompt, func(token string) error {
		full.WriteString(token)
		return onToken(token)
	})
	if err != nil {
		return "", err
	}

	answer := full.String()
	if err := s.repo.SaveExchange(ctx, courseID, userMessage, answer); err != nil {
		return answer, fmt.Errorf("save chat exchange: %w", err)
	}
	return answer, nil
}

// buildPrompt assembles the full generation prompt. Pure string assembly,
// no provider calls.
func buildPrompt(mode, materialContext, chatHistory, userQuery string, c *course.Course) string {
	modePrompt := casualModePrompt
	if mode == ModeAcademic {
		modePrompt = academicModePrompt
	}

	historyBlock := ""
	if chatHistory != "" {
		historyBlock = fmt.Sprintf("CHAT HISTORY:\n%s\n", chatHistory)
	}

	return fmt.Sprintf(`
%s

%s

COURSE INFORMATION:

COURSE CODE: %s
COURSE TITLE: %s
COURSE DESCRIPTION: %s

COURSE MATERIALS CONTEXT:
%s

%s
STUDENT QUESTION:
%s

Now respond as Jules following all mode rules, staying strictly within the course scope and also be conversational and not sound AI-ish.
`, baseSystemPrompt, modePrompt, c.Code, c.Title, c.Description, materialContext, historyBlock, userQuery)
}
