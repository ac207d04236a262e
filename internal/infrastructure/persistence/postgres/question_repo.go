package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/community"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestionRepository implements community.QuestionRepository for PostgreSQL.
type QuestionRepository struct {
	conn *Connection
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(conn *Connection) *QuestionRepository {
	return &QuestionRepository{conn: conn}
}

// Save persists a question.
func (r *QuestionRepository) Save(ctx context.Context, q *community.Question) error {
	query := `
		INSERT INTO questions (id, user_id, course_id, title, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		q.ID,
		string(q.UserID),
		string(q.CourseID),
		q.Title,
		q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}

	return nil
}

// CountSince returns the number of questions created at or after since.
func (r *QuestionRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE created_at >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}
