package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courseai/courseai/pkg/courselog"
)

// ErrNotFound aliases [courselog.ErrNotFound] for callers of this package.
var ErrNotFound = courselog.ErrNotFound

// Compile-time interface check.
var _ courselog.Store = (*Store)(nil)

// Store is the PostgreSQL-backed implementation of [courselog.Store]. It holds
// a single [pgxpool.Pool]; all methods are safe for concurrent use, and writes
// from independent course sessions never contend (each row references a single
// course_id).
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn,
// verifies connectivity, and runs [Migrate] to ensure all tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("courselog store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("courselog store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("courselog store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("courselog store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertTranscript implements [courselog.HintWriter].
func (s *Store) InsertTranscript(ctx context.Context, seg courselog.TranscriptSegment) error {
	const q = `
		INSERT INTO transcripts (course_id, timestamp, text, confidence)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, q, seg.CourseID, seg.Timestamp, seg.Text, seg.Confidence)
	if err != nil {
		return fmt.Errorf("courselog store: insert transcript: %w", err)
	}
	return nil
}

// InsertHint implements [courselog.HintWriter].
func (s *Store) InsertHint(ctx context.Context, hint courselog.TeacherHint) error {
	const q = `
		INSERT INTO teacher_hints
		    (course_id, timestamp, hint_text, hint_type, related_concept, slide_page, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		hint.CourseID,
		hint.Timestamp,
		hint.HintText,
		string(hint.HintType),
		hint.RelatedConcept,
		hint.SlidePage,
		hint.Confidence,
	)
	if err != nil {
		return fmt.Errorf("courselog store: insert hint: %w", err)
	}
	return nil
}

// CreateCourse implements [courselog.Store].
func (s *Store) CreateCourse(ctx context.Context, course courselog.Course) error {
	const q = `
		INSERT INTO courses (id, title, meeting_id)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, q, course.ID, course.Title, course.MeetingID)
	if err != nil {
		return fmt.Errorf("courselog store: create course: %w", err)
	}
	return nil
}

// GetCourse implements [courselog.Store]. Returns [ErrNotFound] when no course
// with the given id exists.
func (s *Store) GetCourse(ctx context.Context, id string) (*courselog.Course, error) {
	const q = `
		SELECT id, title, meeting_id, created_at
		FROM   courses
		WHERE  id = $1`

	var c courselog.Course
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Title, &c.MeetingID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: course %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("courselog store: get course: %w", err)
	}
	return &c, nil
}

// ListCourses implements [courselog.Store].
func (s *Store) ListCourses(ctx context.Context) ([]courselog.Course, error) {
	const q = `
		SELECT id, title, meeting_id, created_at
		FROM   courses
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("courselog store: list courses: %w", err)
	}
	courses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (courselog.Course, error) {
		var c courselog.Course
		err := row.Scan(&c.ID, &c.Title, &c.MeetingID, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("courselog store: scan courses: %w", err)
	}
	if courses == nil {
		courses = []courselog.Course{}
	}
	return courses, nil
}

// DeleteCourse implements [courselog.Store]. Transcripts, hints and slides of
// the course are removed by the ON DELETE CASCADE constraints.
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("courselog store: delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: course %q", ErrNotFound, id)
	}
	return nil
}

// ListTranscripts implements [courselog.Store].
func (s *Store) ListTranscripts(ctx context.Context, courseID string) ([]courselog.TranscriptSegment, error) {
	const q = `
		SELECT course_id, timestamp, text, confidence
		FROM   transcripts
		WHERE  course_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("courselog store: list transcripts: %w", err)
	}
	segs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (courselog.TranscriptSegment, error) {
		var t courselog.TranscriptSegment
		err := row.Scan(&t.CourseID, &t.Timestamp, &t.Text, &t.Confidence)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("courselog store: scan transcripts: %w", err)
	}
	if segs == nil {
		segs = []courselog.TranscriptSegment{}
	}
	return segs, nil
}

// ListHints implements [courselog.Store].
func (s *Store) ListHints(ctx context.Context, courseID string) ([]courselog.TeacherHint, error) {
	const q = `
		SELECT course_id, timestamp, hint_text, hint_type, related_concept, slide_page, confidence
		FROM   teacher_hints
		WHERE  course_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("courselog store: list hints: %w", err)
	}
	hints, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (courselog.TeacherHint, error) {
		var (
			h        courselog.TeacherHint
			hintType string
		)
		err := row.Scan(&h.CourseID, &h.Timestamp, &h.HintText, &hintType,
			&h.RelatedConcept, &h.SlidePage, &h.Confidence)
		h.HintType = courselog.HintType(hintType)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("courselog store: scan hints: %w", err)
	}
	if hints == nil {
		hints = []courselog.TeacherHint{}
	}
	return hints, nil
}

// InsertSlide implements [courselog.Store].
func (s *Store) InsertSlide(ctx context.Context, slide courselog.Slide) error {
	const q = `
		INSERT INTO slides (id, course_id, filename, total_pages, extracted_text)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q,
		slide.ID, slide.CourseID, slide.Filename, slide.TotalPages, slide.ExtractedText)
	if err != nil {
		return fmt.Errorf("courselog store: insert slide: %w", err)
	}
	return nil
}

// ListSlides implements [courselog.Store].
func (s *Store) ListSlides(ctx context.Context, courseID string) ([]courselog.Slide, error) {
	const q = `
		SELECT id, course_id, filename, total_pages, extracted_text, created_at
		FROM   slides
		WHERE  course_id = $1
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("courselog store: list slides: %w", err)
	}
	slides, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (courselog.Slide, error) {
		var sl courselog.Slide
		err := row.Scan(&sl.ID, &sl.CourseID, &sl.Filename, &sl.TotalPages, &sl.ExtractedText, &sl.CreatedAt)
		return sl, err
	})
	if err != nil {
		return nil, fmt.Errorf("courselog store: scan slides: %w", err)
	}
	if slides == nil {
		slides = []courselog.Slide{}
	}
	return slides, nil
}

// InsertQuiz implements [courselog.Store].
func (s *Store) InsertQuiz(ctx context.Context, quiz courselog.Quiz) error {
	const q = `
		INSERT INTO quizzes (id, course_id, scope_id, questions_json)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, q, quiz.ID, quiz.CourseID, quiz.ScopeID, quiz.QuestionsJSON)
	if err != nil {
		return fmt.Errorf("courselog store: insert quiz: %w", err)
	}
	return nil
}

// GetQuiz implements [courselog.Store]. Returns [ErrNotFound] when no quiz
// with the given id exists.
func (s *Store) GetQuiz(ctx context.Context, id string) (*courselog.Quiz, error) {
	const q = `
		SELECT id, course_id, scope_id, questions_json, created_at
		FROM   quizzes
		WHERE  id = $1`

	var quiz courselog.Quiz
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&quiz.ID, &quiz.CourseID, &quiz.ScopeID, &quiz.QuestionsJSON, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: quiz %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("courselog store: get quiz: %w", err)
	}
	return &quiz, nil
}
