package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELEASE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ReleaseRepository implements release.Repository for PostgreSQL.
type ReleaseRepository struct {
	conn *Connection
}

// NewReleaseRepository creates a new ReleaseRepository.
func NewReleaseRepository(conn *Connection) *ReleaseRepository {
	return &ReleaseRepository{conn: conn}
}

// SaveBatch persists all records inside one transaction: either the whole
// schedule materializes or none of it does.
func (r *ReleaseRepository) SaveBatch(ctx context.Context, records []*release.Record) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO release_records (
			id, cohort_id, lesson_id, course_id, week_number, release_at, released, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(query,
				rec.ID,
				string(rec.CohortID),
				string(rec.LessonID),
				string(rec.CourseID),
				rec.WeekNumber,
				rec.ReleaseAt,
				rec.Released,
				rec.CreatedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range records {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to insert release record: %w", err)
			}
		}
		return nil
	})
}

// GetByLesson returns the record for a (cohort, lesson) pair.
// Duplicate records can exist after a schedule re-run; the earliest
// materialized record wins.
func (r *ReleaseRepository) GetByLesson(ctx context.Context, cohortID shared.CohortID, lessonID shared.LessonID) (*release.Record, error) {
	query := `
		SELECT id, cohort_id, lesson_id, course_id, week_number, release_at, released, created_at
		FROM release_records
		WHERE cohort_id = $1 AND lesson_id = $2
		ORDER BY created_at ASC
		LIMIT 1
	`

	row := r.conn.QueryRow(ctx, query, string(cohortID), string(lessonID))
	rec, err := scanReleaseRecord(row)
	if IsNoRows(err) {
		return nil, shared.ErrReleaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByCohort returns all records of a cohort ordered by week number.
func (r *ReleaseRepository) GetByCohort(ctx context.Context, cohortID shared.CohortID) ([]*release.Record, error) {
	query := `
		SELECT id, cohort_id, lesson_id, course_id, week_number, release_at, released, created_at
		FROM release_records
		WHERE cohort_id = $1
		ORDER BY week_number ASC, release_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(cohortID))
	if err != nil {
		return nil, fmt.Errorf("failed to query release records: %w", err)
	}
	defer rows.Close()

	var records []*release.Record
	for rows.Next() {
		rec, err := scanReleaseRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// MarkReleased flips the advisory flag on records whose unlock instant
// has passed. Returns the number of flipped records.
func (r *ReleaseRepository) MarkReleased(ctx context.Context, now time.Time) (int, error) {
	result, err := r.conn.Exec(ctx,
		`UPDATE release_records SET released = TRUE WHERE released = FALSE AND release_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark released records: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// scanReleaseRecord scans a single release record from a row.
func scanReleaseRecord(row pgx.Row) (*release.Record, error) {
	var rec release.Record

	err := row.Scan(
		&rec.ID,
		&rec.CohortID,
		&rec.LessonID,
		&rec.CourseID,
		&rec.WeekNumber,
		&rec.ReleaseAt,
		&rec.Released,
		&rec.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan release record: %w", err)
	}

	return &rec, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LessonRepository implements release.LessonRepository for PostgreSQL.
type LessonRepository struct {
	conn *Connection
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(conn *Connection) *LessonRepository {
	return &LessonRepository{conn: conn}
}

// GetByCourse returns all lessons of a course in week/order sequence.
func (r *LessonRepository) GetByCourse(ctx context.Context, courseID shared.CourseID) ([]release.Lesson, error) {
	query := `
		SELECT id, course_id, title, week_number, order_in_week
		FROM lessons
		WHERE course_id = $1
		ORDER BY week_number ASC, order_in_week ASC
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// CountByCourse returns the number of lessons in a course.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM lessons WHERE course_id = $1`,
		string(courseID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

// GetByCourseWeek returns the lessons of one week of a course.
func (r *LessonRepository) GetByCourseWeek(ctx context.Context, courseID shared.CourseID, week int) ([]release.Lesson, error) {
	query := `
		SELECT id, course_id, title, week_number, order_in_week
		FROM lessons
		WHERE course_id = $1 AND week_number = $2
		ORDER BY order_in_week ASC
	`

	rows, err := r.conn.Query(ctx, query, string(courseID), week)
	if err != nil {
		return nil, fmt.Errorf("failed to query week lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// scanLessons scans lessons from rows.
func scanLessons(rows pgx.Rows) ([]release.Lesson, error) {
	var lessons []release.Lesson
	for rows.Next() {
		var l release.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.WeekNumber, &l.OrderInWeek); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}
