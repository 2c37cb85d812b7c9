// Package courselog defines the persistence types and store interfaces for
// captured course sessions: transcript segments, teacher hints, course rows,
// and uploaded slide decks.
//
// The live transcription pipeline only ever appends ([HintWriter]); the HTTP
// CRUD layer additionally reads ([Store]). Splitting the two keeps the
// pipeline's persistence surface as small as the degrade-gracefully contract
// requires: an append either succeeds or returns an error the pipeline logs
// and moves past.
//
// Implementations must be safe for concurrent use. Writes from independent
// course sessions must not contend with each other.
package courselog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by store reads when a requested row does not exist.
var ErrNotFound = errors.New("courselog: not found")

// HintWriter is the append-only persistence gateway consumed by the session
// pipeline. Both operations are scoped to the segment's/hint's CourseID.
type HintWriter interface {
	// InsertTranscript appends a finalised transcript segment.
	InsertTranscript(ctx context.Context, seg TranscriptSegment) error

	// InsertHint appends a teacher hint derived from a finalised segment.
	InsertHint(ctx context.Context, hint TeacherHint) error
}

// Store is the full persistence surface: the pipeline's append operations plus
// the reads used by the HTTP CRUD layer.
type Store interface {
	HintWriter

	// CreateCourse inserts a new course row.
	CreateCourse(ctx context.Context, course Course) error

	// GetCourse returns the course with the given id.
	GetCourse(ctx context.Context, id string) (*Course, error)

	// ListCourses returns all courses, newest first.
	ListCourses(ctx context.Context) ([]Course, error)

	// DeleteCourse removes a course and, by cascade, all of its transcripts,
	// hints and slides.
	DeleteCourse(ctx context.Context, id string) error

	// ListTranscripts returns a course's transcript segments in timestamp order.
	ListTranscripts(ctx context.Context, courseID string) ([]TranscriptSegment, error)

	// ListHints returns a course's teacher hints in timestamp order.
	ListHints(ctx context.Context, courseID string) ([]TeacherHint, error)

	// InsertSlide stores an uploaded slide deck with its extracted text.
	InsertSlide(ctx context.Context, slide Slide) error

	// ListSlides returns a course's slide decks, newest first.
	ListSlides(ctx context.Context, courseID string) ([]Slide, error)

	// InsertQuiz stores a generated quiz.
	InsertQuiz(ctx context.Context, quiz Quiz) error

	// GetQuiz returns the quiz with the given id.
	GetQuiz(ctx context.Context, id string) (*Quiz, error)
}

// NewCourseID generates a course identifier from a meeting id, e.g.
// "course_20260312T093000_ab12cd34". The meeting id is truncated to its first
// eight characters.
func NewCourseID(meetingID string) string {
	short := meetingID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("course_%s_%s", time.Now().Format("20060102150405"), short)
}

// NewSlideID generates a unique slide record identifier.
func NewSlideID() string {
	return "slide_" + uuid.NewString()
}

// NewQuizID generates a unique quiz identifier.
func NewQuizID() string {
	return "quiz_" + uuid.NewString()
}
