package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Get returns the progress record for a (user, lesson) pair.
func (r *ProgressRepository) Get(ctx context.Context, userID shared.UserID, lessonID shared.LessonID) (*progress.LessonProgress, error) {
	query := `
		SELECT user_id, lesson_id, course_id, completed, watched_percentage, completed_at, last_watched_at
		FROM lesson_progress
		WHERE user_id = $1 AND lesson_id = $2
	`

	var p progress.LessonProgress
	err := r.conn.QueryRow(ctx, query, string(userID), string(lessonID)).Scan(
		&p.UserID,
		&p.LessonID,
		&p.CourseID,
		&p.Completed,
		&p.WatchedPercentage,
		&p.CompletedAt,
		&p.LastWatchedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
	}

	return &p, nil
}

// Save upserts a progress record keyed by (user, lesson).
// Completion is monotonic at the storage level too: a concurrent writer
// cannot flip a completed row back to incomplete.
func (r *ProgressRepository) Save(ctx context.Context, p *progress.LessonProgress) error {
	query := `
		INSERT INTO lesson_progress (
			user_id, lesson_id, course_id, completed, watched_percentage, completed_at, last_watched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed = lesson_progress.completed OR EXCLUDED.completed,
			watched_percentage = GREATEST(lesson_progress.watched_percentage, EXCLUDED.watched_percentage),
			completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
			last_watched_at = EXCLUDED.last_watched_at
	`

	_, err := r.conn.Exec(ctx, query,
		string(p.UserID),
		string(p.LessonID),
		string(p.CourseID),
		p.Completed,
		p.WatchedPercentage,
		p.CompletedAt,
		p.LastWatchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save lesson progress: %w", err)
	}

	return nil
}

// GetCompletionsByUser returns the completion timestamps of a user within
// a course, oldest first.
func (r *ProgressRepository) GetCompletionsByUser(ctx context.Context, userID shared.UserID, courseID shared.CourseID) ([]time.Time, error) {
	query := `
		SELECT completed_at
		FROM lesson_progress
		WHERE user_id = $1 AND course_id = $2 AND completed = TRUE AND completed_at IS NOT NULL
		ORDER BY completed_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(userID), string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var completions []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, at)
	}

	return completions, rows.Err()
}

// CompletedLessonIDs returns the set of lessons the user has completed in a course.
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (map[shared.LessonID]bool, error) {
	query := `
		SELECT lesson_id
		FROM lesson_progress
		WHERE user_id = $1 AND course_id = $2 AND completed = TRUE
	`

	rows, err := r.conn.Query(ctx, query, string(userID), string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to query completed lessons: %w", err)
	}
	defer rows.Close()

	completed := make(map[shared.LessonID]bool)
	for rows.Next() {
		var id shared.LessonID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lesson id: %w", err)
		}
		completed[id] = true
	}

	return completed, rows.Err()
}

// CountCompletedByCohort returns the total number of completed lesson
// records across all active members of a cohort.
func (r *ProgressRepository) CountCompletedByCohort(ctx context.Context, cohortID shared.CohortID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM lesson_progress lp
		JOIN enrollments e ON e.user_id = lp.user_id AND e.course_id = lp.course_id
		WHERE e.cohort_id = $1 AND e.status = 'active' AND lp.completed = TRUE
	`

	var count int
	err := r.conn.QueryRow(ctx, query, string(cohortID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cohort completions: %w", err)
	}
	return count, nil
}

// CountDistinctCompletersSince returns the number of distinct users with a
// completion at or after the given instant.
func (r *ProgressRepository) CountDistinctCompletersSince(ctx context.Context, since time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM lesson_progress
		WHERE completed = TRUE AND completed_at >= $1
	`

	var count int
	err := r.conn.QueryRow(ctx, query, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completers: %w", err)
	}
	return count, nil
}

// CompletedLessonsByMember returns, per cohort member, the set of completed
// lesson IDs restricted to the given lessons.
func (r *ProgressRepository) CompletedLessonsByMember(ctx context.Context, cohortID shared.CohortID, lessons []shared.LessonID) (map[shared.UserID]map[shared.LessonID]bool, error) {
	byMember := make(map[shared.UserID]map[shared.LessonID]bool)
	if len(lessons) == 0 {
		return byMember, nil
	}

	lessonIDs := make([]string, 0, len(lessons))
	for _, id := range lessons {
		lessonIDs = append(lessonIDs, string(id))
	}

	query := `
		SELECT lp.user_id, lp.lesson_id
		FROM lesson_progress lp
		JOIN enrollments e ON e.user_id = lp.user_id AND e.cohort_id = $1
		WHERE e.status = 'active' AND lp.completed = TRUE AND lp.lesson_id = ANY($2)
	`

	rows, err := r.conn.Query(ctx, query, string(cohortID), lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query member completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID shared.UserID
		var lessonID shared.LessonID
		if err := rows.Scan(&userID, &lessonID); err != nil {
			return nil, fmt.Errorf("failed to scan member completion: %w", err)
		}
		if byMember[userID] == nil {
			byMember[userID] = make(map[shared.LessonID]bool)
		}
		byMember[userID][lessonID] = true
	}

	return byMember, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements progress.EnrollmentRepository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Save persists a new enrollment.
func (r *EnrollmentRepository) Save(ctx context.Context, e *progress.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, user_id, course_id, cohort_id, status, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		e.ID,
		string(e.UserID),
		string(e.CourseID),
		string(e.CohortID),
		string(e.Status),
		e.EnrolledAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEnrollmentExists
		}
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

// GetByUserAndCohort returns a user's enrollment in a cohort.
func (r *EnrollmentRepository) GetByUserAndCohort(ctx context.Context, userID shared.UserID, cohortID shared.CohortID) (*progress.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, cohort_id, status, enrolled_at
		FROM enrollments
		WHERE user_id = $1 AND cohort_id = $2
	`

	var e progress.Enrollment
	err := r.conn.QueryRow(ctx, query, string(userID), string(cohortID)).Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&e.CohortID,
		&e.Status,
		&e.EnrolledAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return &e, nil
}

// ActiveMembers returns the user IDs actively enrolled in a cohort.
func (r *EnrollmentRepository) ActiveMembers(ctx context.Context, cohortID shared.CohortID) ([]shared.UserID, error) {
	query := `
		SELECT user_id
		FROM enrollments
		WHERE cohort_id = $1 AND status = 'active'
		ORDER BY enrolled_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(cohortID))
	if err != nil {
		return nil, fmt.Errorf("failed to query active members: %w", err)
	}
	defer rows.Close()

	var members []shared.UserID
	for rows.Next() {
		var id shared.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, id)
	}

	return members, rows.Err()
}

// CountActiveMembers returns the number of active members of a cohort.
func (r *EnrollmentRepository) CountActiveMembers(ctx context.Context, cohortID shared.CohortID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE cohort_id = $1 AND status = 'active'`,
		string(cohortID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active members: %w", err)
	}
	return count, nil
}
