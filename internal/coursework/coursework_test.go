package coursework

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/courseai/courseai/pkg/provider/llm"
	llmmock "github.com/courseai/courseai/pkg/provider/llm/mock"
)

func newTestService(content string) (*Service, *llmmock.Provider) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: content},
	}
	return NewService(provider, slog.New(slog.DiscardHandler)), provider
}

func TestAnalyzeCourse(t *testing.T) {
	reply := `以下是分析結果：
{
  "key_points": [
    {"title": "二元樹定義", "content": "每個節點最多有兩個子節點", "slide_page": 3, "transcript_timestamps": ["00:05:23"]}
  ],
  "concepts": ["二元樹", "走訪"],
  "formulas": ["T(n) = 2T(n/2) + O(1)"]
}`
	svc, provider := newTestService(reply)

	summary, err := svc.AnalyzeCourse(context.Background(), "講義文字", "轉錄文字")
	if err != nil {
		t.Fatalf("AnalyzeCourse: %v", err)
	}
	if len(summary.KeyPoints) != 1 {
		t.Fatalf("got %d key points, want 1", len(summary.KeyPoints))
	}
	kp := summary.KeyPoints[0]
	if kp.Title != "二元樹定義" {
		t.Errorf("Title = %q", kp.Title)
	}
	if kp.SlidePage == nil || *kp.SlidePage != 3 {
		t.Errorf("SlidePage = %v, want 3", kp.SlidePage)
	}
	if len(summary.Concepts) != 2 || len(summary.Formulas) != 1 {
		t.Errorf("concepts = %v, formulas = %v", summary.Concepts, summary.Formulas)
	}

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Req.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", calls[0].Req.Temperature)
	}
}

func TestAnalyzeCourseTruncatesContent(t *testing.T) {
	svc, provider := newTestService(`{"key_points": [], "concepts": [], "formulas": []}`)

	long := strings.Repeat("課", 5000)
	if _, err := svc.AnalyzeCourse(context.Background(), long, ""); err != nil {
		t.Fatalf("AnalyzeCourse: %v", err)
	}

	prompt := provider.Calls()[0].Req.Messages[0].Content
	if got := strings.Count(prompt, "課"); got != 3000 {
		t.Errorf("prompt carries %d content runes, want 3000", got)
	}
}

func TestSuggestQuizScopes(t *testing.T) {
	reply := `[
  {"scope_id": "scope_1", "label": "整堂課程", "description": "全部", "estimated_questions": 15, "coverage": "all"},
  {"scope_id": "scope_2", "label": "3.1 二元樹", "description": "定義與性質", "slide_pages": [3, 4], "estimated_questions": 8, "coverage": "section"}
]`
	svc, _ := newTestService(reply)

	scopes, err := svc.SuggestQuizScopes(context.Background(), "講義", "轉錄")
	if err != nil {
		t.Fatalf("SuggestQuizScopes: %v", err)
	}
	if len(scopes) != 2 {
		t.Fatalf("got %d scopes, want 2", len(scopes))
	}
	if scopes[0].Coverage != "all" || scopes[1].Coverage != "section" {
		t.Errorf("coverages = %q, %q", scopes[0].Coverage, scopes[1].Coverage)
	}
	if len(scopes[1].SlidePages) != 2 {
		t.Errorf("SlidePages = %v", scopes[1].SlidePages)
	}
}

func TestGenerateQuestions(t *testing.T) {
	reply := `[
  {"question_id": "q1", "type": "multiple_choice", "question_text": "二元樹每個節點最多幾個子節點？",
   "options": ["一個", "兩個", "三個", "不限"], "correct_answer": "兩個",
   "explanation": "依定義每個節點最多兩個子節點", "difficulty": "easy"}
]`
	svc, provider := newTestService(reply)

	questions, err := svc.GenerateQuestions(context.Background(), "課程內容",
		QuestionTypes{MultipleChoice: 1}, "easy")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.Type != "multiple_choice" || len(q.Options) != 4 {
		t.Errorf("question = %+v", q)
	}

	req := provider.Calls()[0].Req
	if req.Temperature != 0.7 || req.MaxTokens != 3000 {
		t.Errorf("Temperature = %v, MaxTokens = %d", req.Temperature, req.MaxTokens)
	}
	if !strings.Contains(req.Messages[0].Content, "生成 1 題") {
		t.Error("prompt missing total question count")
	}
}

func TestGenerateQuestionsRejectsEmptyRequest(t *testing.T) {
	svc, _ := newTestService("[]")
	if _, err := svc.GenerateQuestions(context.Background(), "內容", QuestionTypes{}, "medium"); err == nil {
		t.Fatal("expected error for zero requested questions")
	}
}

func TestGradeShortAnswer(t *testing.T) {
	reply := `{"score": 85, "feedback": "涵蓋了關鍵概念，但缺少範例", "improvement_suggestions": ["補充實際範例"]}`
	svc, provider := newTestService(reply)

	result, err := svc.GradeShortAnswer(context.Background(),
		"什麼是二元樹？", "每個節點最多有兩個子節點的樹", "節點最多兩個子節點", []string{"定義正確", "邏輯清晰"})
	if err != nil {
		t.Fatalf("GradeShortAnswer: %v", err)
	}
	if result.Score != 85 {
		t.Errorf("Score = %d, want 85", result.Score)
	}
	if len(result.ImprovementSuggestions) != 1 {
		t.Errorf("suggestions = %v", result.ImprovementSuggestions)
	}

	req := provider.Calls()[0].Req
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
	if !strings.Contains(req.Messages[0].Content, "定義正確, 邏輯清晰") {
		t.Error("prompt missing joined evaluation criteria")
	}
}

func TestFlowsPropagateProviderErrors(t *testing.T) {
	provider := &llmmock.Provider{CompleteErr: errors.New("timeout")}
	svc := NewService(provider, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if _, err := svc.AnalyzeCourse(ctx, "a", "b"); err == nil {
		t.Error("AnalyzeCourse swallowed provider error")
	}
	if _, err := svc.SuggestQuizScopes(ctx, "a", "b"); err == nil {
		t.Error("SuggestQuizScopes swallowed provider error")
	}
	if _, err := svc.GenerateQuestions(ctx, "a", QuestionTypes{ShortAnswer: 1}, ""); err == nil {
		t.Error("GenerateQuestions swallowed provider error")
	}
	if _, err := svc.GradeShortAnswer(ctx, "q", "m", "u", nil); err == nil {
		t.Error("GradeShortAnswer swallowed provider error")
	}
}
