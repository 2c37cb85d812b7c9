package courselog

import "time"

// HintType classifies a teacher hint into one of the fixed taxonomy categories.
type HintType string

const (
	// HintExam marks content the teacher says will appear on an exam.
	HintExam HintType = "exam"

	// HintImportant marks content the teacher emphasises as important.
	HintImportant HintType = "important"

	// HintAttention marks content the teacher asks students to pay attention to.
	HintAttention HintType = "attention"

	// HintCommonMistake marks content the teacher flags as a frequent error.
	HintCommonMistake HintType = "common_mistake"

	// HintReminder marks content the teacher asks students to remember or review.
	HintReminder HintType = "reminder"
)

// IsValid reports whether h is one of the five taxonomy categories.
func (h HintType) IsValid() bool {
	switch h {
	case HintExam, HintImportant, HintAttention, HintCommonMistake, HintReminder:
		return true
	}
	return false
}

// TranscriptSegment is one finalised speech-recognition result for a course
// session. Interim results are never persisted, so every stored segment has
// been committed by the recognition backend.
type TranscriptSegment struct {
	// CourseID identifies the course session this segment belongs to.
	CourseID string

	// Timestamp is the elapsed time since session start, formatted "HH:MM:SS".
	Timestamp string

	// Text is the recognised speech content.
	Text string

	// Confidence is the recognition confidence in [0.0, 1.0].
	Confidence float64
}

// TeacherHint is a classified and enriched emphasis cue derived from exactly
// one final transcript segment. Immutable once written.
type TeacherHint struct {
	// CourseID identifies the course session this hint belongs to.
	CourseID string

	// Timestamp matches the triggering segment's timestamp ("HH:MM:SS").
	Timestamp string

	// HintText is the verbatim transcript text that triggered the match.
	HintText string

	// HintType is the taxonomy category the text matched.
	HintType HintType

	// RelatedConcept is the LLM-inferred concept label, or the fallback
	// sentinel when enrichment failed.
	RelatedConcept string

	// SlidePage is the slide page the hint refers to, when the enrichment
	// supplied one. Nil otherwise.
	SlidePage *int

	// Confidence is the enrichment confidence in [0.0, 1.0].
	Confidence float64
}

// Course is a recorded lecture session.
type Course struct {
	// ID is the opaque course session identifier (e.g. "course_20260312_ab12cd34").
	ID string

	// Title is the human-readable course title.
	Title string

	// MeetingID is the identifier of the live meeting the course was captured from.
	MeetingID string

	// CreatedAt is when the course row was created.
	CreatedAt time.Time
}

// Slide is an uploaded slide deck with its extracted text.
type Slide struct {
	// ID is the slide record identifier.
	ID string

	// CourseID identifies the owning course.
	CourseID string

	// Filename is the original upload filename.
	Filename string

	// TotalPages is the page (or slide) count of the document.
	TotalPages int

	// ExtractedText is the full extracted text, with per-page separators.
	ExtractedText string

	// CreatedAt is when the slide row was created.
	CreatedAt time.Time
}

// Quiz is a generated question set for a course, stored as the raw question
// list JSON the generator produced.
type Quiz struct {
	// ID is the quiz identifier (e.g. "quiz_ab12cd34ef56").
	ID string

	// CourseID identifies the owning course.
	CourseID string

	// ScopeID names the content scope the quiz was generated for.
	ScopeID string

	// QuestionsJSON is the generated question list, JSON-encoded.
	QuestionsJSON []byte

	// CreatedAt is when the quiz row was created.
	CreatedAt time.Time
}
