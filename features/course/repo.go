package course

import (
	"context"
	"database/sql"
	"errors"

	"studyrag/backend/internal/apperr"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) SaveCourse(ctx context.Context, c *Course) error {
	query := `INSERT INTO courses (course_code, course_title, course_description) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, c.Code, c.Title, c.Description).Scan(&c.ID, &c.CreatedAt)
}

func (r *PostgresRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE course_code = $1)`
	err := r.db.QueryRowContext(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) GetCourse(ctx context.Context, id string) (*Course, error) {
	c := &Course{}
	var description sql.NullString
	query := `SELECT id, course_code, course_title, course_description, created_at FROM courses WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Code, &c.Title, &description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	return c, nil
}

func (r *PostgresRepo) ListCourses(ctx context.Context) ([]Course, error) {
	query := `SELECT id, course_code, course_title, course_description, created_at FROM courses ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		var description sql.NullString
		if err := rows.Scan(&c.ID, &c.Code, &c.Title, &description, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Description = description.String
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *PostgresRepo) DeleteCourse(ctx context.Context, id string) error {
	// course_docs and chat_messages cascade
	query := `DELETE FROM courses WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) SaveDocument(ctx context.Context, d *Document) error {
	query := `INSERT INTO course_docs (course_id, file_url, file_name, embedding_status) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, d.CourseID, d.FileURL, d.FileName, d.EmbeddingStatus).Scan(&d.ID, &d.CreatedAt)
}

func (r *PostgresRepo) GetDocument(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	var embErr, jobID sql.NullString
	query := `SELECT id, course_id, file_url, file_name, embedding_status, embedding_error, job_id, created_at FROM course_docs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.CourseID, &d.FileURL, &d.FileName, &d.EmbeddingStatus, &embErr, &jobID, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.EmbeddingError = embErr.String
	d.JobID = jobID.String
	return d, nil
}

func (r *PostgresRepo) ListDocuments(ctx context.Context, courseID string) ([]Document, error) {
	query := `SELECT id, course_id, file_url, file_name, embedding_status, embedding_error, job_id, created_at FROM course_docs WHERE course_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var embErr, jobID sql.NullString
		if err := rows.Scan(&d.ID, &d.CourseID, &d.FileURL, &d.FileName, &d.EmbeddingStatus, &embErr, &jobID, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.EmbeddingError = embErr.String
		d.JobID = jobID.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) SetJobID(ctx context.Context, docID, jobID string) error {
	query := `UPDATE course_docs SET job_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, jobID, docID)
	return err
}

func (r *PostgresRepo) ResetForRetry(ctx context.Context, docID, jobID string) error {
	query := `UPDATE course_docs SET embedding_status = $1, embedding_error = NULL, job_id = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, StatusPending, jobID, docID)
	return err
}

// MarkSuccess and MarkFailed are the worker's status transitions.

func (r *PostgresRepo) MarkSuccess(ctx context.Context, docID string) error {
	query := `UPDATE course_docs SET embedding_status = $1, embedding_error = NULL, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, StatusSuccess, docID)
	return err
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, docID, reason string) error {
	query := `UPDATE course_docs SET embedding_status = $1, embedding_error = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, StatusFailed, reason, docID)
	return err
}

func (r *PostgresRepo) CountCourses(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_docs`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountFailedDocuments(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_docs WHERE embedding_status = $1`, StatusFailed).Scan(&count)
	return count, err
}
