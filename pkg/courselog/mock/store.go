package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/courseai/courseai/pkg/courselog"
)

// Store is an in-memory implementation of [courselog.Store] for HTTP-layer
// tests. It embeds [Writer] for the append operations, so write failures can
// be injected the same way.
type Store struct {
	Writer

	mu      sync.Mutex
	courses map[string]courselog.Course
	slides  []courselog.Slide
	quizzes map[string]courselog.Quiz

	// Err, if non-nil, is returned by every course, slide and quiz operation.
	Err error
}

// Compile-time interface check.
var _ courselog.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		courses: make(map[string]courselog.Course),
		quizzes: make(map[string]courselog.Quiz),
	}
}

// Ping reports Err, so the store doubles as a readiness-check target.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

// CreateCourse stores the course row.
func (s *Store) CreateCourse(_ context.Context, course courselog.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.courses[course.ID]; ok {
		return fmt.Errorf("mock store: duplicate course %q", course.ID)
	}
	s.courses[course.ID] = course
	return nil
}

// GetCourse returns the stored course or [courselog.ErrNotFound].
func (s *Store) GetCourse(_ context.Context, id string) (*courselog.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: course %q", courselog.ErrNotFound, id)
	}
	return &c, nil
}

// ListCourses returns all stored courses, newest first.
func (s *Store) ListCourses(_ context.Context) ([]courselog.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]courselog.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteCourse removes the course and everything recorded against it.
func (s *Store) DeleteCourse(_ context.Context, id string) error {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return s.Err
	}
	if _, ok := s.courses[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: course %q", courselog.ErrNotFound, id)
	}
	delete(s.courses, id)
	var slides []courselog.Slide
	for _, sl := range s.slides {
		if sl.CourseID != id {
			slides = append(slides, sl)
		}
	}
	s.slides = slides
	for qid, q := range s.quizzes {
		if q.CourseID == id {
			delete(s.quizzes, qid)
		}
	}
	s.mu.Unlock()

	s.Writer.mu.Lock()
	defer s.Writer.mu.Unlock()
	var segs []courselog.TranscriptSegment
	for _, seg := range s.Writer.Transcripts {
		if seg.CourseID != id {
			segs = append(segs, seg)
		}
	}
	s.Writer.Transcripts = segs
	var hints []courselog.TeacherHint
	for _, h := range s.Writer.Hints {
		if h.CourseID != id {
			hints = append(hints, h)
		}
	}
	s.Writer.Hints = hints
	return nil
}

// ListTranscripts returns the recorded segments for a course, in insert order.
func (s *Store) ListTranscripts(_ context.Context, courseID string) ([]courselog.TranscriptSegment, error) {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	s.mu.Unlock()

	s.Writer.mu.Lock()
	defer s.Writer.mu.Unlock()
	var out []courselog.TranscriptSegment
	for _, seg := range s.Writer.Transcripts {
		if seg.CourseID == courseID {
			out = append(out, seg)
		}
	}
	return out, nil
}

// ListHints returns the recorded hints for a course, in insert order.
func (s *Store) ListHints(_ context.Context, courseID string) ([]courselog.TeacherHint, error) {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	s.mu.Unlock()

	s.Writer.mu.Lock()
	defer s.Writer.mu.Unlock()
	var out []courselog.TeacherHint
	for _, h := range s.Writer.Hints {
		if h.CourseID == courseID {
			out = append(out, h)
		}
	}
	return out, nil
}

// InsertSlide records the slide deck.
func (s *Store) InsertSlide(_ context.Context, slide courselog.Slide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.slides = append(s.slides, slide)
	return nil
}

// ListSlides returns the recorded slide decks for a course, newest first.
func (s *Store) ListSlides(_ context.Context, courseID string) ([]courselog.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []courselog.Slide
	for i := len(s.slides) - 1; i >= 0; i-- {
		if s.slides[i].CourseID == courseID {
			out = append(out, s.slides[i])
		}
	}
	return out, nil
}

// InsertQuiz records the quiz.
func (s *Store) InsertQuiz(_ context.Context, quiz courselog.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

// GetQuiz returns the stored quiz or [courselog.ErrNotFound].
func (s *Store) GetQuiz(_ context.Context, id string) (*courselog.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	q, ok := s.quizzes[id]
	if !ok {
		return nil, fmt.Errorf("%w: quiz %q", courselog.ErrNotFound, id)
	}
	return &q, nil
}
