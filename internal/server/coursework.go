package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/courseai/courseai/internal/coursework"
	"github.com/courseai/courseai/pkg/courselog"
)

// courseContent gathers a course's slide text and timestamped transcript text
// for the LLM flows.
func (s *Server) courseContent(ctx context.Context, courseID string) (slidesText, transcriptText string, err error) {
	decks, err := s.cfg.Store.ListSlides(ctx, courseID)
	if err != nil {
		return "", "", err
	}
	var slideParts []string
	for _, d := range decks {
		if d.ExtractedText != "" {
			slideParts = append(slideParts, d.ExtractedText)
		}
	}

	segs, err := s.cfg.Store.ListTranscripts(ctx, courseID)
	if err != nil {
		return "", "", err
	}
	var lines []string
	for _, seg := range segs {
		lines = append(lines, fmt.Sprintf("[%s] %s", seg.Timestamp, seg.Text))
	}

	return strings.Join(slideParts, "\n\n"), strings.Join(lines, "\n"), nil
}

// courseworkAvailable responds 503 and returns false when no LLM is configured.
func (s *Server) courseworkAvailable(w http.ResponseWriter) bool {
	if s.cfg.Coursework == nil {
		s.respondError(w, http.StatusServiceUnavailable, "LLM 服務未初始化")
		return false
	}
	return true
}

func (s *Server) handleAnalyzeCourse(w http.ResponseWriter, r *http.Request) {
	if !s.courseworkAvailable(w) {
		return
	}
	courseID := r.PathValue("course_id")
	if _, err := s.cfg.Store.GetCourse(r.Context(), courseID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	slidesText, transcriptText, err := s.courseContent(r.Context(), courseID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	summary, err := s.cfg.Coursework.AnalyzeCourse(r.Context(), slidesText, transcriptText)
	if err != nil {
		s.log.Error("course analysis failed", "course_id", courseID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "課程分析失敗: "+err.Error())
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"summary": summary,
		"status":  "completed",
	})
}

func (s *Server) handleSuggestQuizScopes(w http.ResponseWriter, r *http.Request) {
	if !s.courseworkAvailable(w) {
		return
	}
	courseID := r.PathValue("course_id")
	if _, err := s.cfg.Store.GetCourse(r.Context(), courseID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	slidesText, transcriptText, err := s.courseContent(r.Context(), courseID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	scopes, err := s.cfg.Coursework.SuggestQuizScopes(r.Context(), slidesText, transcriptText)
	if err != nil {
		s.log.Error("scope suggestion failed", "course_id", courseID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "範圍分析失敗: "+err.Error())
		return
	}

	defaultScope := ""
	if len(scopes) > 0 {
		defaultScope = scopes[0].ScopeID
	}
	s.respond(w, http.StatusOK, map[string]any{
		"suggested_scopes": scopes,
		"default_scope":    defaultScope,
		"recommendation":   "建議先複習「老師說會考的部分」",
	})
}

// quizGenerateRequest is the POST /api/v1/quiz/generate body.
type quizGenerateRequest struct {
	CourseID      string                   `json:"course_id"`
	ScopeID       string                   `json:"scope_id"`
	QuestionTypes coursework.QuestionTypes `json:"question_types"`
	Difficulty    string                   `json:"difficulty"`
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	if !s.courseworkAvailable(w) {
		return
	}
	var req quizGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := s.cfg.Store.GetCourse(r.Context(), req.CourseID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	slidesText, transcriptText, err := s.courseContent(r.Context(), req.CourseID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	content := strings.TrimSpace(slidesText + "\n\n" + transcriptText)
	if content == "" {
		s.respondError(w, http.StatusBadRequest, "沒有可用的內容，請先上傳講義或進行轉錄")
		return
	}

	questions, err := s.cfg.Coursework.GenerateQuestions(r.Context(), content, req.QuestionTypes, req.Difficulty)
	if err != nil {
		s.log.Error("question generation failed", "course_id", req.CourseID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "題目生成失敗: "+err.Error())
		return
	}

	questionsJSON, err := coursework.MarshalQuestions(questions)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	quiz := courselog.Quiz{
		ID:            courselog.NewQuizID(),
		CourseID:      req.CourseID,
		ScopeID:       req.ScopeID,
		QuestionsJSON: questionsJSON,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.cfg.Store.InsertQuiz(r.Context(), quiz); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.log.Info("quiz generated",
		"course_id", req.CourseID,
		"quiz_id", quiz.ID,
		"questions", len(questions))
	s.respond(w, http.StatusOK, map[string]any{
		"quiz_id":    quiz.ID,
		"questions":  questions,
		"created_at": quiz.CreatedAt,
	})
}

// gradeRequest is the POST /api/v1/quiz/grade body.
type gradeRequest struct {
	QuestionText string   `json:"question_text"`
	ModelAnswer  string   `json:"model_answer"`
	UserAnswer   string   `json:"user_answer"`
	Criteria     []string `json:"criteria"`
}

func (s *Server) handleGradeAnswer(w http.ResponseWriter, r *http.Request) {
	if !s.courseworkAvailable(w) {
		return
	}
	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.QuestionText == "" || req.UserAnswer == "" {
		s.respondError(w, http.StatusBadRequest, "question_text and user_answer are required")
		return
	}

	result, err := s.cfg.Coursework.GradeShortAnswer(r.Context(), req.QuestionText, req.ModelAnswer, req.UserAnswer, req.Criteria)
	if err != nil {
		s.log.Error("grading failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "批改失敗: "+err.Error())
		return
	}
	s.respond(w, http.StatusOK, result)
}
