// Package course owns course and document registration: persistence,
// embedding job dispatch and vector collection lifecycle.
package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyrag/backend/internal/config"
	"studyrag/backend/internal/middleware"
	"studyrag/backend/internal/pipeline"
	"studyrag/backend/internal/worker"
)

// Embedding status of a document. PENDING covers everything between
// registration and a terminal outcome; the live progress stream carries
// the in-between.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

var ErrDuplicateCourse = errors.New("course code already exists")

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"course_code"`
	Title       string    `json:"course_title"`
	Description string    `json:"course_description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Document struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	FileURL         string    `json:"file_url"`
	FileName        string    `json:"file_name,omitempty"`
	EmbeddingStatus string    `json:"embedding_status"`
	EmbeddingError  string    `json:"embedding_error,omitempty"`
	JobID           string    `json:"job_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Repository interface {
	SaveCourse(ctx context.Context, c *Course) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	DeleteCourse(ctx context.Context, id string) error

	SaveDocument(ctx context.Context, d *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, courseID string) ([]Document, error)
	SetJobID(ctx context.Context, docID, jobID string) error
	ResetForRetry(ctx context.Context, docID, jobID string) error
	CountCourses(ctx context.Context) (int, error)
	CountDocuments(ctx context.Context) (int, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// VectorCleaner drops a course's collection from the vector store.
type VectorCleaner interface {
	DeleteCollection(ctx context.Context, courseID string) error
}

// ProgressEmitter broadcasts lifecycle hints onto the event bus.
type ProgressEmitter interface {
	Emit(ctx context.Context, update pipeline.EmbeddingUpdate) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	vectors VectorCleaner
	events  ProgressEmitter
}

func NewService(repo Repository, pub EventPublisher, vectors VectorCleaner, events ProgressEmitter) *Service {
	return &Service{repo: repo, pub: pub, vectors: vectors, events: events}
}

func (s *Service) Create(ctx context.Context, c *Course) error {
	c.Code = strings.TrimSpace(c.Code)

	exists, err := s.repo.ExistsByCode(ctx, c.Code)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateCourse
	}

	return s.repo.SaveCourse(ctx, c)
}

func (s *Service) Get(ctx context.Context, id string) (*Course, error) {
	return s.repo.GetCourse(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Course, error) {
	return s.repo.ListCourses(ctx)
}

// DocumentInput is one file to register for embedding.
type DocumentInput struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}

// RegisterDocuments stores the documents as PENDING and enqueues one
// embedding job per document. A publish failure is logged, not returned:
// the document stays PENDING and a retry re-enqueues it.
func (s *Service) RegisterDocuments(ctx context.Context, courseID string, inputs []DocumentInput) ([]Document, error) {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(inputs))
	for _, in := range inputs {
		doc := &Document{
			CourseID:        courseID,
			FileURL:         in.FileURL,
			FileName:        in.FileName,
			EmbeddingStatus: StatusPending,
		}
		if err := s.repo.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("save document: %w", err)
		}

		s.enqueue(ctx, doc)
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *Service) ListDocuments(ctx context.Context, courseID string) ([]Document, error) {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListDocuments(ctx, courseID)
}

// Retry resets a failed or stuck document to PENDING and enqueues a fresh
// job. Chunks already in the vector store are skipped by the pipeline's
// checkpoint, so a retry only pays for the missing remainder.
func (s *Service) Retry(ctx context.Context, courseID, docID string) (*Document, error) {
	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.CourseID != courseID {
		return nil, fmt.Errorf("document %s: %w", docID, errNotInCourse)
	}

	jobID := newJobID()
	if err := s.repo.ResetForRetry(ctx, docID, jobID); err != nil {
		return nil, err
	}
	doc.EmbeddingStatus = StatusPending
	doc.EmbeddingError = ""
	doc.JobID = jobID

	s.publish(ctx, doc)
	return doc, nil
}

// Delete removes the course, its documents and its vector collection. The
// collection goes first; a failure there is logged and suppressed so a
// half-deleted course can be deleted again.
func (s *Service) Delete(ctx context.Context, courseID string) error {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}

	if err := s.vectors.DeleteCollection(ctx, courseID); err != nil {
		slog.WarnContext(ctx, "failed to delete course collection, continuing", "error", err, "course_id", courseID)
	}

	return s.repo.DeleteCourse(ctx, courseID)
}

func (s *Service) enqueue(ctx context.Context, doc *Document) {
	jobID := newJobID()
	if err := s.repo.SetJobID(ctx, doc.ID, jobID); err != nil {
		slog.WarnContext(ctx, "failed to record job id", "error", err, "doc_id", doc.ID)
	}
	doc.JobID = jobID
	s.publish(ctx, doc)
}

func (s *Service) publish(ctx context.Context, doc *Document) {
	payload, _ := json.Marshal(worker.EmbedJobPayload{
		CourseID:      doc.CourseID,
		DocID:         doc.ID,
		FileURL:       doc.FileURL,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicEmbedding, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish embedding job", "error", err, "doc_id", doc.ID)
		return
	}
	slog.InfoContext(ctx, "published embedding job", "doc_id", doc.ID, "course_id", doc.CourseID)

	if err := s.events.Emit(ctx, pipeline.EmbeddingUpdate{
		CourseID: doc.CourseID,
		DocID:    doc.ID,
		Status:   pipeline.StatusWaiting,
	}); err != nil {
		slog.WarnContext(ctx, "failed to emit waiting event", "error", err, "doc_id", doc.ID)
	}
}

var errNotInCourse = errors.New("document does not belong to course")

func newJobID() string { return uuid.NewString() }
