package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/courseai/courseai/internal/slides"
	"github.com/courseai/courseai/pkg/courselog"
)

// createCourseRequest is the POST /api/v1/courses body.
type createCourseRequest struct {
	CourseName string `json:"course_name"`
	MeetingID  string `json:"meeting_id"`
	MeetingURL string `json:"meeting_url"`
}

// createCourseResponse mirrors the original capture client's contract.
type createCourseResponse struct {
	CourseID  string    `json:"course_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MeetingID == "" {
		s.respondError(w, http.StatusBadRequest, "meeting_id is required")
		return
	}

	course := courselog.Course{
		ID:        courselog.NewCourseID(req.MeetingID),
		Title:     req.CourseName,
		MeetingID: req.MeetingID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cfg.Store.CreateCourse(r.Context(), course); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.log.Info("course created", "course_id", course.ID, "meeting_id", req.MeetingID)
	s.respond(w, http.StatusCreated, createCourseResponse{
		CourseID:  course.ID,
		Status:    "recording",
		CreatedAt: course.CreatedAt,
	})
}

// courseResponse is one course row in list/get responses.
type courseResponse struct {
	ID         string    `json:"id"`
	CourseName string    `json:"course_name"`
	MeetingID  string    `json:"meeting_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCourseResponse(c courselog.Course) courseResponse {
	return courseResponse{
		ID:         c.ID,
		CourseName: c.Title,
		MeetingID:  c.MeetingID,
		CreatedAt:  c.CreatedAt,
	}
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.cfg.Store.ListCourses(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, toCourseResponse(c))
	}
	s.respond(w, http.StatusOK, map[string]any{
		"courses": out,
		"total":   len(out),
	})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.cfg.Store.GetCourse(r.Context(), r.PathValue("course_id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respond(w, http.StatusOK, toCourseResponse(*course))
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("course_id")
	if err := s.cfg.Store.DeleteCourse(r.Context(), courseID); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.log.Info("course deleted", "course_id", courseID)
	w.WriteHeader(http.StatusNoContent)
}

// transcriptResponse is one segment row.
type transcriptResponse struct {
	Timestamp  string  `json:"timestamp"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("course_id")
	if _, err := s.cfg.Store.GetCourse(r.Context(), courseID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	segs, err := s.cfg.Store.ListTranscripts(r.Context(), courseID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	out := make([]transcriptResponse, 0, len(segs))
	for _, seg := range segs {
		out = append(out, transcriptResponse{
			Timestamp:  seg.Timestamp,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		})
	}
	s.respond(w, http.StatusOK, map[string]any{
		"transcripts": out,
		"total":       len(out),
	})
}

// hintResponse is one teacher hint row.
type hintResponse struct {
	Timestamp      string  `json:"timestamp"`
	HintText       string  `json:"hint_text"`
	HintType       string  `json:"hint_type"`
	RelatedConcept string  `json:"related_concept"`
	SlidePage      *int    `json:"slide_page"`
	Confidence     float64 `json:"confidence"`
}

func (s *Server) handleListHints(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("course_id")
	if _, err := s.cfg.Store.GetCourse(r.Context(), courseID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	hints, err := s.cfg.Store.ListHints(r.Context(), courseID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	filter := r.URL.Query().Get("hint_type")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer in [1, 100]")
			return
		}
		limit = n
	}

	byType := make(map[string]int)
	out := make([]hintResponse, 0, len(hints))
	for _, h := range hints {
		byType[string(h.HintType)]++
		if filter != "" && string(h.HintType) != filter {
			continue
		}
		if len(out) >= limit {
			continue
		}
		out = append(out, hintResponse{
			Timestamp:      h.Timestamp,
			HintText:       h.HintText,
			HintType:       string(h.HintType),
			RelatedConcept: h.RelatedConcept,
			SlidePage:      h.SlidePage,
			Confidence:     h.Confidence,
		})
	}
	s.respond(w, http.StatusOK, map[string]any{
		"hints":   out,
		"total":   len(out),
		"by_type": byType,
	})
}

// slideUploadResponse mirrors the original upload contract.
type slideUploadResponse struct {
	FileID               string `json:"file_id"`
	Filename             string `json:"filename"`
	Pages                int    `json:"pages"`
	ExtractedTextPreview string `json:"extracted_text_preview"`
	Status               string `json:"status"`
}

func (s *Server) handleUploadSlides(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("course_id")
	if _, err := s.cfg.Store.GetCourse(r.Context(), courseID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if !slides.IsSupported(header.Filename) {
		s.respondError(w, http.StatusBadRequest, "unsupported file format: "+header.Filename)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds upload size limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	doc, err := s.cfg.Slides.Process(content, header.Filename)
	if err != nil {
		s.log.Warn("slide processing failed", "filename", header.Filename, "error", err)
		s.respondError(w, http.StatusUnprocessableEntity, "file processing failed: "+err.Error())
		return
	}

	if _, err := s.cfg.Slides.Save(content, header.Filename); err != nil {
		s.log.Error("slide save failed", "filename", header.Filename, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slide := courselog.Slide{
		ID:            courselog.NewSlideID(),
		CourseID:      courseID,
		Filename:      doc.Filename,
		TotalPages:    doc.TotalPages,
		ExtractedText: doc.ExtractedText,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.cfg.Store.InsertSlide(r.Context(), slide); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.log.Info("slides uploaded",
		"course_id", courseID,
		"filename", doc.Filename,
		"pages", doc.TotalPages)
	s.respond(w, http.StatusOK, slideUploadResponse{
		FileID:               slide.ID,
		Filename:             slide.Filename,
		Pages:                slide.TotalPages,
		ExtractedTextPreview: preview(slide.ExtractedText, 200),
		Status:               "processed",
	})
}

// preview returns the first n runes of s.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
