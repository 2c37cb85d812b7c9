package server_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/courseai/courseai/internal/coursework"
	"github.com/courseai/courseai/internal/hint"
	"github.com/courseai/courseai/internal/server"
	"github.com/courseai/courseai/internal/slides"
	"github.com/courseai/courseai/pkg/courselog"
	logmock "github.com/courseai/courseai/pkg/courselog/mock"
	"github.com/courseai/courseai/pkg/provider/llm"
	llmmock "github.com/courseai/courseai/pkg/provider/llm/mock"
	recmock "github.com/courseai/courseai/pkg/recognize/mock"
)

// fixture bundles a running test server with its injected doubles.
type fixture struct {
	store    *logmock.Store
	rec      *recmock.Recognizer
	provider *llmmock.Provider
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := logmock.NewStore()
	rec := &recmock.Recognizer{}
	provider := &llmmock.Provider{}
	log := slog.New(slog.DiscardHandler)

	proc, err := slides.NewProcessor(t.TempDir())
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	s, err := server.New(server.Config{
		Store:      store,
		Recognizer: rec,
		Backend:    "mock",
		SampleRate: 16000,
		Language:   "zh-TW",
		Enricher:   hint.NewEnricher(provider, log),
		Coursework: coursework.NewService(provider, log),
		Slides:     proc,
		Log:        log,
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{store: store, rec: rec, provider: provider, srv: srv}
}

// postJSON POSTs body as JSON and decodes the response into out (if non-nil).
func (f *fixture) postJSON(t *testing.T, path string, body any, out any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func (f *fixture) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

// seedCourse inserts a course directly into the store.
func (f *fixture) seedCourse(t *testing.T, id string) {
	t.Helper()
	err := f.store.CreateCourse(t.Context(), courselog.Course{ID: id, Title: "資料結構", MeetingID: "meet-1"})
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
}

func TestCreateCourse(t *testing.T) {
	f := newFixture(t)

	var created struct {
		CourseID string `json:"course_id"`
		Status   string `json:"status"`
	}
	resp := f.postJSON(t, "/api/v1/courses", map[string]string{
		"course_name": "資料結構",
		"meeting_id":  "abc-defg-hij",
	}, &created)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if created.Status != "recording" {
		t.Errorf("status = %q, want recording", created.Status)
	}
	if !strings.HasPrefix(created.CourseID, "course_") {
		t.Errorf("course_id = %q, want course_ prefix", created.CourseID)
	}

	var got struct {
		CourseName string `json:"course_name"`
		MeetingID  string `json:"meeting_id"`
	}
	resp = f.getJSON(t, "/api/v1/courses/"+created.CourseID, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	if got.CourseName != "資料結構" || got.MeetingID != "abc-defg-hij" {
		t.Errorf("course = %+v", got)
	}
}

func TestCreateCourse_MissingMeetingID(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/api/v1/courses", map[string]string{"course_name": "x"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetCourse_NotFound(t *testing.T) {
	f := newFixture(t)
	resp := f.getJSON(t, "/api/v1/courses/course_missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteCourse(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")

	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/api/v1/courses/course_1", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp = f.getJSON(t, "/api/v1/courses/course_1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestListHints_FilterAndCounts(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")

	hints := []courselog.TeacherHint{
		{CourseID: "course_1", Timestamp: "00:01:00", HintText: "這個會考", HintType: courselog.HintExam, RelatedConcept: "二元樹", Confidence: 0.9},
		{CourseID: "course_1", Timestamp: "00:02:00", HintText: "這很重要", HintType: courselog.HintImportant, RelatedConcept: "走訪", Confidence: 0.8},
		{CourseID: "course_1", Timestamp: "00:03:00", HintText: "考試重點", HintType: courselog.HintExam, RelatedConcept: "堆疊", Confidence: 0.7},
	}
	for _, h := range hints {
		if err := f.store.InsertHint(t.Context(), h); err != nil {
			t.Fatalf("seed hint: %v", err)
		}
	}

	var got struct {
		Hints  []map[string]any `json:"hints"`
		Total  int              `json:"total"`
		ByType map[string]int   `json:"by_type"`
	}
	resp := f.getJSON(t, "/api/v1/courses/course_1/hints?hint_type=exam", &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got.Total != 2 {
		t.Errorf("total = %d, want 2", got.Total)
	}
	if got.ByType["exam"] != 2 || got.ByType["important"] != 1 {
		t.Errorf("by_type = %v", got.ByType)
	}
	for _, h := range got.Hints {
		if h["hint_type"] != "exam" {
			t.Errorf("unfiltered hint in response: %v", h)
		}
	}
}

func TestListTranscripts(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")
	segs := []courselog.TranscriptSegment{
		{CourseID: "course_1", Timestamp: "00:00:05", Text: "今天講二元樹", Confidence: 0.92},
		{CourseID: "course_1", Timestamp: "00:00:10", Text: "先看定義", Confidence: 0.88},
	}
	for _, seg := range segs {
		if err := f.store.InsertTranscript(t.Context(), seg); err != nil {
			t.Fatalf("seed transcript: %v", err)
		}
	}

	var got struct {
		Transcripts []map[string]any `json:"transcripts"`
		Total       int              `json:"total"`
	}
	resp := f.getJSON(t, "/api/v1/courses/course_1/transcripts", &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got.Total != 2 {
		t.Errorf("total = %d, want 2", got.Total)
	}
	if got.Transcripts[0]["text"] != "今天講二元樹" {
		t.Errorf("first segment = %v", got.Transcripts[0])
	}
}

// uploadFile POSTs a multipart upload with one "file" field.
func (f *fixture) uploadFile(t *testing.T, path, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(f.srv.URL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func buildPptx(t *testing.T, slideTexts ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i, text := range slideTexts {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		xml := `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
		if _, err := fw.Write([]byte(xml)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUploadSlides(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")

	resp := f.uploadFile(t, "/api/v1/courses/course_1/slides", "deck.pptx", buildPptx(t, "二元樹定義", "走訪方式"))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var got struct {
		FileID   string `json:"file_id"`
		Filename string `json:"filename"`
		Pages    int    `json:"pages"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Pages != 2 {
		t.Errorf("pages = %d, want 2", got.Pages)
	}
	if got.Status != "processed" {
		t.Errorf("status = %q, want processed", got.Status)
	}

	stored, err := f.store.ListSlides(t.Context(), "course_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored slides = %d, want 1", len(stored))
	}
	if !strings.Contains(stored[0].ExtractedText, "二元樹定義") {
		t.Errorf("extracted text = %q", stored[0].ExtractedText)
	}
}

func TestUploadSlides_UnsupportedFormat(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")

	resp := f.uploadFile(t, "/api/v1/courses/course_1/slides", "notes.txt", []byte("plain text"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadSlides_CourseNotFound(t *testing.T) {
	f := newFixture(t)
	resp := f.uploadFile(t, "/api/v1/courses/missing/slides", "deck.pptx", buildPptx(t, "x"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGenerateQuiz(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")
	if err := f.store.InsertTranscript(t.Context(), courselog.TranscriptSegment{
		CourseID: "course_1", Timestamp: "00:01:00", Text: "二元樹每個節點最多兩個子節點", Confidence: 0.9,
	}); err != nil {
		t.Fatal(err)
	}

	f.provider.CompleteResponse = &llm.CompletionResponse{Content: `[
		{"question_id": "q1", "type": "multiple_choice", "question_text": "二元樹每個節點最多幾個子節點?",
		 "options": ["1", "2", "3", "4"], "correct_answer": "2", "explanation": "定義", "difficulty": "medium"}
	]`}

	var got struct {
		QuizID    string                `json:"quiz_id"`
		Questions []coursework.Question `json:"questions"`
	}
	resp := f.postJSON(t, "/api/v1/quiz/generate", map[string]any{
		"course_id": "course_1",
		"scope_id":  "scope_1",
		"question_types": map[string]int{
			"multiple_choice": 1,
		},
		"difficulty": "medium",
	}, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(got.Questions) != 1 || got.Questions[0].QuestionID != "q1" {
		t.Errorf("questions = %+v", got.Questions)
	}

	quiz, err := f.store.GetQuiz(t.Context(), got.QuizID)
	if err != nil {
		t.Fatalf("quiz not stored: %v", err)
	}
	if quiz.ScopeID != "scope_1" {
		t.Errorf("scope_id = %q, want scope_1", quiz.ScopeID)
	}
}

func TestGenerateQuiz_NoContent(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")

	resp := f.postJSON(t, "/api/v1/quiz/generate", map[string]any{
		"course_id":      "course_1",
		"scope_id":       "scope_1",
		"question_types": map[string]int{"multiple_choice": 1},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGradeAnswer(t *testing.T) {
	f := newFixture(t)
	f.provider.CompleteResponse = &llm.CompletionResponse{
		Content: `{"score": 80, "feedback": "大致正確", "improvement_suggestions": ["補充走訪順序"]}`,
	}

	var got coursework.GradeResult
	resp := f.postJSON(t, "/api/v1/quiz/grade", map[string]any{
		"question_text": "什麼是二元樹?",
		"model_answer":  "每個節點最多兩個子節點",
		"user_answer":   "節點最多兩個子節點的樹",
	}, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got.Score != 80 {
		t.Errorf("score = %d, want 80", got.Score)
	}
}

func TestAnalyzeCourse(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "course_1")
	if err := f.store.InsertTranscript(t.Context(), courselog.TranscriptSegment{
		CourseID: "course_1", Timestamp: "00:01:00", Text: "二元樹定義", Confidence: 0.9,
	}); err != nil {
		t.Fatal(err)
	}
	f.provider.CompleteResponse = &llm.CompletionResponse{Content: `{
		"key_points": [{"title": "二元樹定義", "content": "每個節點最多兩個子節點", "slide_page": 3, "transcript_timestamps": ["00:01:00"]}],
		"concepts": ["二元樹"],
		"formulas": []
	}`}

	var got struct {
		Summary coursework.Summary `json:"summary"`
		Status  string             `json:"status"`
	}
	resp := f.postJSON(t, "/api/v1/courses/course_1/analyze", map[string]any{}, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if len(got.Summary.KeyPoints) != 1 || got.Summary.KeyPoints[0].Title != "二元樹定義" {
		t.Errorf("summary = %+v", got.Summary)
	}
}

// newFixtureWithoutRecognizer builds a server with no speech backend and no
// LLM flows, as a binary started with a bare config would run.
func newFixtureWithoutRecognizer(t *testing.T) *fixture {
	t.Helper()

	store := logmock.NewStore()
	log := slog.New(slog.DiscardHandler)
	proc, err := slides.NewProcessor(t.TempDir())
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	s, err := server.New(server.Config{
		Store:    store,
		Enricher: hint.NewEnricher(nil, log),
		Slides:   proc,
		Log:      log,
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{store: store, srv: srv}
}

func TestCourseworkUnavailable(t *testing.T) {
	f := newFixtureWithoutRecognizer(t)
	f.seedCourse(t, "course_1")

	resp := f.postJSON(t, "/api/v1/courses/course_1/analyze", map[string]any{}, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := f.getJSON(t, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
