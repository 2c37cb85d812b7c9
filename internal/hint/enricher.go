package hint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courseai/courseai/internal/llmtext"
	"github.com/courseai/courseai/pkg/provider/llm"
)

const (
	// fallbackConcept is reported when the LLM reply cannot be interpreted.
	fallbackConcept = "未知概念"

	// parseFailConfidence is used when the LLM replied but the reply carried
	// no usable JSON.
	parseFailConfidence = 0.5

	// callFailConfidence is used when the LLM call itself failed.
	callFailConfidence = 0.3

	enrichTemperature = 0.3
	enrichMaxTokens   = 100

	// enrichTimeout bounds one enrichment call so a slow model cannot stall
	// the finals pipeline indefinitely.
	enrichTimeout = 10 * time.Second
)

// Analysis is the enrichment result for one detected hint.
type Analysis struct {
	// Concept is the course concept the hint refers to.
	Concept string

	// SlidePage is the related slide page if the model named one.
	SlidePage *int

	// Confidence is the model's self-reported confidence in [0, 1], or a
	// fallback value when the reply was unusable.
	Confidence float64
}

// Enricher asks an LLM which concept a detected hint phrase refers to.
// Enrichment never fails: any LLM or parse problem degrades to a fallback
// Analysis so the hint is still recorded and broadcast.
type Enricher struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewEnricher creates an Enricher on top of the given LLM provider.
func NewEnricher(provider llm.Provider, log *slog.Logger) *Enricher {
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{provider: provider, log: log}
}

// analysisPayload mirrors the JSON shape the prompt requests.
type analysisPayload struct {
	Concept    string   `json:"concept"`
	SlidePage  *int     `json:"slide_page"`
	Confidence *float64 `json:"confidence"`
}

// Analyze enriches one hint phrase. hintContext carries surrounding
// transcript text and may be empty.
func (e *Enricher) Analyze(ctx context.Context, hintText, timestamp, hintContext string) Analysis {
	if e.provider == nil {
		return Analysis{Concept: fallbackConcept, Confidence: callFailConfidence}
	}

	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: buildPrompt(hintText, timestamp, hintContext)},
		},
		Temperature: enrichTemperature,
		MaxTokens:   enrichMaxTokens,
	})
	if err != nil || resp == nil {
		e.log.Error("hint enrichment call failed",
			"error", err,
			"hint_text", hintText)
		return Analysis{Concept: fallbackConcept, Confidence: callFailConfidence}
	}

	var payload analysisPayload
	if err := llmtext.ExtractObject(resp.Content, &payload); err != nil {
		e.log.Warn("hint enrichment reply not parseable",
			"error", err,
			"reply", resp.Content)
		return Analysis{Concept: fallbackConcept, Confidence: parseFailConfidence}
	}

	out := Analysis{
		Concept:    payload.Concept,
		SlidePage:  payload.SlidePage,
		Confidence: parseFailConfidence,
	}
	if out.Concept == "" {
		out.Concept = fallbackConcept
	}
	if payload.Confidence != nil {
		out.Confidence = *payload.Confidence
	}
	return out
}

func buildPrompt(hintText, timestamp, hintContext string) string {
	contextLine := ""
	if hintContext != "" {
		contextLine = fmt.Sprintf("上下文：%s\n", hintContext)
	}
	return fmt.Sprintf(`分析以下老師的提示語，識別相關概念。

提示語：%s
時間點：%s
%s
請簡短回答（不超過50字）：
1. 這個提示與哪個概念相關？
2. 信心分數（0-1）

請以簡短的 JSON 格式回傳：
{"concept": "概念名稱", "confidence": 0.9}`, hintText, timestamp, contextLine)
}
