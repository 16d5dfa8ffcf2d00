package course_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"studyrag/backend/features/course"
	"studyrag/backend/internal/apperr"
)

func TestPostgresRepo_SaveCourse(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := course.NewPostgresRepo(db)

	c := &course.Course{Code: "CS101", Title: "Intro to CS", Description: "Basics"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses (course_code, course_title, course_description) VALUES ($1, $2, $3) RETURNING id, created_at")).
		WithArgs("CS101", "Intro to CS", "Basics").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("c1", time.Now()))

	err = repo.SaveCourse(context.Background(), c)
	assert.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
}

func TestPostgresRepo_ExistsByCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := course.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM courses WHERE course_code = $1)")).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByCode(context.Background(), "CS101")
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestPostgresRepo_GetCourse(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := course.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "course_code", "course_title", "course_description", "created_at"}).
			AddRow("c1", "CS101", "Intro to CS", nil, time.Now())
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_code, course_title, course_description, created_at FROM courses WHERE id = $1")).
			WithArgs("c1").
			WillReturnRows(rows)

		c, err := repo.GetCourse(context.Background(), "c1")
		assert.NoError(t, err)
		assert.Equal(t, "CS101", c.Code)
		assert.Empty(t, c.Description)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_code, course_title, course_description, created_at FROM courses WHERE id = $1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id", "course_code", "course_title", "course_description", "created_at"}))

		_, err := repo.GetCourse(context.Background(), "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestPostgresRepo_SaveDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := course.NewPostgresRepo(db)

	d := &course.Document{
		CourseID:        "c1",
		FileURL:         "https://files.example/notes.pdf",
		FileName:        "notes.pdf",
		EmbeddingStatus: course.StatusPending,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_docs (course_id, file_url, file_name, embedding_status) VALUES ($1, $2, $3, $4) RETURNING id, created_at")).
		WithArgs("c1", d.FileURL, "notes.pdf", course.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("d1", time.Now()))

	err = repo.SaveDocument(context.Background(), d)
	assert.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
}

func TestPostgresRepo_ListDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := course.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "file_url", "file_name", "embedding_status", "embedding_error", "job_id", "created_at"}).
		AddRow("d1", "c1", "https://files.example/a.pdf", "a.pdf", course.StatusSuccess, nil, "job-1", time.Now()).
		AddRow("d2", "c1", "https://files.example/b.pdf", "b.pdf", course.StatusFailed, "no text extracted", "job-2", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, file_url, file_name, embedding_status, embedding_error, job_id, created_at FROM course_docs WHERE course_id = $1 ORDER BY created_at ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	docs, err := repo.ListDocuments(context.Background(), "c1")
	assert.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, course.StatusSuccess, docs[0].EmbeddingStatus)
	assert.Equal(t, "no text extracted", docs[1].EmbeddingError)
}

func TestPostgresRepo_StatusTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := course.NewPostgresRepo(db)

	t.Run("MarkSuccess", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE course_docs SET embedding_status = $1, embedding_error = NULL, updated_at = NOW() WHERE id = $2")).
			WithArgs(course.StatusSuccess, "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkSuccess(context.Background(), "d1"))
	})

	t.Run("MarkFailed", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE course_docs SET embedding_status = $1, embedding_error = $2, updated_at = NOW() WHERE id = $3")).
			WithArgs(course.StatusFailed, "boom", "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkFailed(context.Background(), "d1", "boom"))
	})

	t.Run("ResetForRetry", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE course_docs SET embedding_status = $1, embedding_error = NULL, job_id = $2, updated_at = NOW() WHERE id = $3")).
			WithArgs(course.StatusPending, "job-9", "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.ResetForRetry(context.Background(), "d1", "job-9"))
	})
}
