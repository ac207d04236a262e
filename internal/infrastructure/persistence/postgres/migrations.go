package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: COHORTS
// Pricing lives inside the cohort row; coupons are a JSONB array owned by
// the cohort, rewritten atomically under a row lock on redemption.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS cohorts (
	id UUID PRIMARY KEY,
	course_id VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	start_date TIMESTAMP WITH TIME ZONE NOT NULL,
	end_date TIMESTAMP WITH TIME ZONE NOT NULL,
	max_students INTEGER NOT NULL,
	current_students INTEGER NOT NULL DEFAULT 0,
	cancelled BOOLEAN NOT NULL DEFAULT FALSE,
	release_hour INTEGER NOT NULL DEFAULT 8,
	base_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
	special_offer NUMERIC(12, 2) NOT NULL DEFAULT 0,
	currency CHAR(3) NOT NULL DEFAULT 'USD',
	is_free BOOLEAN NOT NULL DEFAULT FALSE,
	tier VARCHAR(50) NOT NULL DEFAULT 'standard',
	early_bird JSONB,
	coupons JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT cohorts_dates_check CHECK (start_date < end_date),
	CONSTRAINT cohorts_capacity_check CHECK (max_students > 0)
);

CREATE INDEX IF NOT EXISTS idx_cohorts_course_id ON cohorts(course_id);
CREATE INDEX IF NOT EXISTS idx_cohorts_start_date ON cohorts(start_date);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: LESSONS AND RELEASE RECORDS
// Release records are deliberately NOT unique per (cohort, lesson):
// scheduling is not idempotent and re-invocation materializes duplicates.
// Reads take the earliest record for the pair.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS lessons (
	id VARCHAR(255) PRIMARY KEY,
	course_id VARCHAR(255) NOT NULL,
	title VARCHAR(500) NOT NULL DEFAULT '',
	week_number INTEGER NOT NULL,
	order_in_week INTEGER NOT NULL DEFAULT 0,

	CONSTRAINT lessons_week_check CHECK (week_number >= 1)
);

CREATE INDEX IF NOT EXISTS idx_lessons_course_week ON lessons(course_id, week_number, order_in_week);

CREATE TABLE IF NOT EXISTS release_records (
	id UUID PRIMARY KEY,
	cohort_id UUID NOT NULL REFERENCES cohorts(id) ON DELETE CASCADE,
	lesson_id VARCHAR(255) NOT NULL,
	course_id VARCHAR(255) NOT NULL,
	week_number INTEGER NOT NULL,
	release_at TIMESTAMP WITH TIME ZONE NOT NULL,
	released BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_release_records_cohort_lesson ON release_records(cohort_id, lesson_id);
CREATE INDEX IF NOT EXISTS idx_release_records_pending ON release_records(release_at) WHERE released = FALSE;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: PROGRESS, ENROLLMENTS, QUESTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS lesson_progress (
	user_id VARCHAR(255) NOT NULL,
	lesson_id VARCHAR(255) NOT NULL,
	course_id VARCHAR(255) NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	watched_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	completed_at TIMESTAMP WITH TIME ZONE,
	last_watched_at TIMESTAMP WITH TIME ZONE NOT NULL,

	PRIMARY KEY (user_id, lesson_id),
	CONSTRAINT lesson_progress_pct_check CHECK (watched_percentage >= 0 AND watched_percentage <= 100)
);

CREATE INDEX IF NOT EXISTS idx_lesson_progress_user_course ON lesson_progress(user_id, course_id);
CREATE INDEX IF NOT EXISTS idx_lesson_progress_completed_at ON lesson_progress(completed_at) WHERE completed = TRUE;

CREATE TABLE IF NOT EXISTS enrollments (
	id UUID PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	course_id VARCHAR(255) NOT NULL,
	cohort_id UUID NOT NULL REFERENCES cohorts(id) ON DELETE CASCADE,
	status VARCHAR(50) NOT NULL DEFAULT 'active',
	enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT enrollments_user_cohort_unique UNIQUE (user_id, cohort_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_cohort_status ON enrollments(cohort_id, status);

CREATE TABLE IF NOT EXISTS questions (
	id UUID PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	course_id VARCHAR(255) NOT NULL,
	title VARCHAR(500) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);
`

