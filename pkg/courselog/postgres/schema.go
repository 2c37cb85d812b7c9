// Package postgres provides the PostgreSQL-backed implementation of
// [courselog.Store].
//
// All operations share a single [pgxpool.Pool]. [Migrate] creates the schema
// idempotently (CREATE TABLE IF NOT EXISTS) and is safe to run on every
// application start.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.InsertTranscript(ctx, seg)
//	_ = store.InsertHint(ctx, hint)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCourses = `
CREATE TABLE IF NOT EXISTS courses (
    id         TEXT         PRIMARY KEY,
    title      TEXT         NOT NULL DEFAULT '',
    meeting_id TEXT         NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_courses_meeting_id
    ON courses (meeting_id);
`

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    id         BIGSERIAL    PRIMARY KEY,
    course_id  TEXT         NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
    timestamp  TEXT         NOT NULL,
    text       TEXT         NOT NULL,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_course_id
    ON transcripts (course_id);
`

const ddlTeacherHints = `
CREATE TABLE IF NOT EXISTS teacher_hints (
    id              BIGSERIAL    PRIMARY KEY,
    course_id       TEXT         NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
    timestamp       TEXT         NOT NULL,
    hint_text       TEXT         NOT NULL,
    hint_type       TEXT         NOT NULL,
    related_concept TEXT         NOT NULL DEFAULT '',
    slide_page      INTEGER,
    confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_teacher_hints_course_id
    ON teacher_hints (course_id);

CREATE INDEX IF NOT EXISTS idx_teacher_hints_course_type
    ON teacher_hints (course_id, hint_type);
`

const ddlSlides = `
CREATE TABLE IF NOT EXISTS slides (
    id             TEXT         PRIMARY KEY,
    course_id      TEXT         NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
    filename       TEXT         NOT NULL,
    total_pages    INTEGER      NOT NULL DEFAULT 0,
    extracted_text TEXT         NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_slides_course_id
    ON slides (course_id);
`

const ddlQuizzes = `
CREATE TABLE IF NOT EXISTS quizzes (
    id             TEXT         PRIMARY KEY,
    course_id      TEXT         NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
    scope_id       TEXT         NOT NULL DEFAULT '',
    questions_json JSONB        NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_quizzes_course_id
    ON quizzes (course_id);
`

// Migrate creates or ensures all required tables and indexes exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlCourses,
		ddlTranscripts,
		ddlTeacherHints,
		ddlSlides,
		ddlQuizzes,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
