// Package coursework generates course study material from captured content:
// key-point summaries, quiz scope suggestions, question sets, and short-answer
// grading. All flows are single-shot LLM completions whose replies are parsed
// with the tolerant JSON extraction in internal/llmtext.
//
// Unlike hint enrichment these flows are user-initiated requests, so failures
// surface as errors instead of degrading to fallbacks.
package coursework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/courseai/courseai/internal/llmtext"
	"github.com/courseai/courseai/pkg/provider/llm"
)

// Content length caps, in runes, applied before prompting so a long lecture
// cannot blow the model's context window.
const (
	analyzeContentCap = 3000
	scopesContentCap  = 2000
)

// KeyPoint is one extracted course highlight.
type KeyPoint struct {
	Title                string   `json:"title"`
	Content              string   `json:"content"`
	SlidePage            *int     `json:"slide_page"`
	TranscriptTimestamps []string `json:"transcript_timestamps"`
}

// Summary is the course analysis result.
type Summary struct {
	KeyPoints []KeyPoint `json:"key_points"`
	Concepts  []string   `json:"concepts"`
	Formulas  []string   `json:"formulas"`
}

// QuizScope is one suggested question generation scope.
type QuizScope struct {
	ScopeID              string   `json:"scope_id"`
	Label                string   `json:"label"`
	Description          string   `json:"description"`
	SlidePages           []int    `json:"slide_pages,omitempty"`
	TranscriptTimestamps []string `json:"transcript_timestamps,omitempty"`
	EstimatedQuestions   int      `json:"estimated_questions"`
	Coverage             string   `json:"coverage"`
}

// QuestionTypes sets how many questions of each kind to generate.
type QuestionTypes struct {
	MultipleChoice int `json:"multiple_choice"`
	FillInBlank    int `json:"fill_in_blank"`
	ShortAnswer    int `json:"short_answer"`
}

// Total returns the combined question count.
func (qt QuestionTypes) Total() int {
	return qt.MultipleChoice + qt.FillInBlank + qt.ShortAnswer
}

// Question is one generated quiz question.
type Question struct {
	QuestionID     string   `json:"question_id"`
	Type           string   `json:"type"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswer  string   `json:"correct_answer"`
	Explanation    string   `json:"explanation"`
	SlideReference *int     `json:"slide_reference,omitempty"`
	VideoTimestamp string   `json:"video_timestamp,omitempty"`
	Difficulty     string   `json:"difficulty"`
}

// GradeResult is the LLM's grading of one short answer.
type GradeResult struct {
	Score                  int      `json:"score"`
	Feedback               string   `json:"feedback"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
}

// Service runs the coursework LLM flows.
type Service struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewService creates a Service on top of the given LLM provider.
func NewService(provider llm.Provider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{provider: provider, log: log}
}

// AnalyzeCourse extracts key points, concepts, and formulas from the combined
// slide and transcript text of a course.
func (s *Service) AnalyzeCourse(ctx context.Context, slidesText, transcriptText string) (*Summary, error) {
	prompt := fmt.Sprintf(`分析以下課程內容，生成重點摘要。

講義內容：
%s

課堂語音轉錄：
%s

請完成以下任務：
1. 提取 3-5 個核心重點，每個重點包含標題和詳細說明
2. 識別重要概念（關鍵詞）
3. 提取公式或重要定理

請以 JSON 格式回傳，格式如下：
{
  "key_points": [
    {
      "title": "重點標題",
      "content": "詳細說明",
      "slide_page": 頁碼或null,
      "transcript_timestamps": ["時間戳記"]
    }
  ],
  "concepts": ["概念1", "概念2"],
  "formulas": ["公式1", "公式2"]
}`, truncate(slidesText, analyzeContentCap), truncate(transcriptText, analyzeContentCap))

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("coursework: analyze course: %w", err)
	}

	var summary Summary
	if err := llmtext.ExtractObject(resp.Content, &summary); err != nil {
		return nil, fmt.Errorf("coursework: parse analysis reply: %w", err)
	}
	return &summary, nil
}

// SuggestQuizScopes asks the LLM to propose question generation scopes based
// on the course structure and what the teacher emphasised.
func (s *Service) SuggestQuizScopes(ctx context.Context, slidesText, transcriptText string) ([]QuizScope, error) {
	prompt := fmt.Sprintf(`分析以下課程內容，建議可以出題的範圍。

講義內容：
%s

課堂語音轉錄：
%s

請識別：
1. 講義的章節結構（依據標題、編號）
2. 老師特別強調的內容
3. 每個範圍適合出幾題

請以 JSON 陣列格式回傳，格式如下：
[
  {
    "scope_id": "scope_1",
    "label": "整堂課程",
    "description": "涵蓋本次課程所有內容",
    "estimated_questions": 15,
    "coverage": "all"
  },
  {
    "scope_id": "scope_2",
    "label": "章節名稱",
    "description": "章節說明",
    "slide_pages": [頁碼列表],
    "estimated_questions": 8,
    "coverage": "section"
  }
]`, truncate(slidesText, scopesContentCap), truncate(transcriptText, scopesContentCap))

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("coursework: suggest quiz scopes: %w", err)
	}

	var scopes []QuizScope
	if err := llmtext.ExtractArray(resp.Content, &scopes); err != nil {
		return nil, fmt.Errorf("coursework: parse scopes reply: %w", err)
	}
	return scopes, nil
}

// GenerateQuestions produces a question set over the given course content.
func (s *Service) GenerateQuestions(ctx context.Context, content string, types QuestionTypes, difficulty string) ([]Question, error) {
	if types.Total() == 0 {
		return nil, fmt.Errorf("coursework: no question types requested")
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	prompt := fmt.Sprintf(`根據以下課程內容，生成 %d 題測驗題目。

課程內容：
%s

題型要求：
- 選擇題：%d 題
- 填充題：%d 題
- 簡答題：%d 題

難度：%s

每題需包含：
1. 題目文字
2. 選項（選擇題）
3. 正確答案
4. 詳細解析

請以 JSON 陣列格式回傳，格式如下：
[
  {
    "question_id": "q1",
    "type": "multiple_choice",
    "question_text": "題目文字",
    "options": ["選項A", "選項B", "選項C", "選項D"],
    "correct_answer": "選項A",
    "explanation": "詳細解析",
    "difficulty": "easy"
  }
]`, types.Total(), truncate(content, analyzeContentCap),
		types.MultipleChoice, types.FillInBlank, types.ShortAnswer, difficulty)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   3000,
	})
	if err != nil {
		return nil, fmt.Errorf("coursework: generate questions: %w", err)
	}

	var questions []Question
	if err := llmtext.ExtractArray(resp.Content, &questions); err != nil {
		return nil, fmt.Errorf("coursework: parse questions reply: %w", err)
	}
	return questions, nil
}

// GradeShortAnswer grades one short answer against the model answer and
// evaluation criteria.
func (s *Service) GradeShortAnswer(ctx context.Context, questionText, modelAnswer, userAnswer string, criteria []string) (*GradeResult, error) {
	prompt := fmt.Sprintf(`請批改以下簡答題。

題目：%s
標準答案：%s
評分標準：%s
學生答案：%s

請評估：
1. 答案是否涵蓋關鍵概念
2. 邏輯是否清晰
3. 是否有錯誤或不完整的地方

請以 JSON 格式回傳：
{
  "score": 分數（0-100）,
  "feedback": "詳細回饋",
  "improvement_suggestions": ["改進建議1", "改進建議2"]
}`, questionText, modelAnswer, strings.Join(criteria, ", "), userAnswer)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("coursework: grade short answer: %w", err)
	}

	var result GradeResult
	if err := llmtext.ExtractObject(resp.Content, &result); err != nil {
		return nil, fmt.Errorf("coursework: parse grading reply: %w", err)
	}
	return &result, nil
}

// MarshalQuestions encodes a question list for quiz persistence.
func MarshalQuestions(questions []Question) ([]byte, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("coursework: marshal questions: %w", err)
	}
	return data, nil
}

// truncate clips s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
