package chat

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListMessages(ctx context.Context, courseID string) ([]Message, error) {
	query := `SELECT id, course_id, role, message, created_at FROM chat_messages WHERE course_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Role, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *PostgresRepo) CountMessages(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&count)
	return count, err
}

// SaveExchange stores the user turn and the assistant turn atomically so
// the transcript never holds half a turn.
func (r *PostgresRepo) SaveExchange(ctx context.Context, courseID, userMessage, assistantMessage string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO chat_messages (course_id, role, message) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, query, courseID, RoleUser, userMessage); err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, courseID, RoleAssistant, assistantMessage); err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	return tx.Commit()
}
