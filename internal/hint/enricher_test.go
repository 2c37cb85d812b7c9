package hint

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/courseai/courseai/pkg/provider/llm"
	llmmock "github.com/courseai/courseai/pkg/provider/llm/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAnalyzeEmbeddedJSON(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "分析如下：\n{\"concept\": \"二元樹\", \"confidence\": 0.9}\n以上。",
		},
	}
	e := NewEnricher(provider, discardLogger())

	got := e.Analyze(context.Background(), "這個會考", "00:05:12", "")
	if got.Concept != "二元樹" {
		t.Errorf("Concept = %q, want 二元樹", got.Concept)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", got.Confidence)
	}
	if got.SlidePage != nil {
		t.Errorf("SlidePage = %v, want nil", *got.SlidePage)
	}
}

func TestAnalyzeSlidePage(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"concept": "排序", "slide_page": 12, "confidence": 0.8}`,
		},
	}
	e := NewEnricher(provider, discardLogger())

	got := e.Analyze(context.Background(), "這裡很重要", "00:10:00", "")
	if got.SlidePage == nil || *got.SlidePage != 12 {
		t.Fatalf("SlidePage = %v, want 12", got.SlidePage)
	}
}

func TestAnalyzeUnparseableReply(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "抱歉，我不確定這個提示的意思。",
		},
	}
	e := NewEnricher(provider, discardLogger())

	got := e.Analyze(context.Background(), "這個會考", "00:05:12", "")
	if got.Concept != "未知概念" {
		t.Errorf("Concept = %q, want 未知概念", got.Concept)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
}

func TestAnalyzeCallFailure(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteErr: errors.New("connection refused"),
	}
	e := NewEnricher(provider, discardLogger())

	got := e.Analyze(context.Background(), "這個會考", "00:05:12", "")
	if got.Concept != "未知概念" {
		t.Errorf("Concept = %q, want 未知概念", got.Concept)
	}
	if got.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", got.Confidence)
	}
	if got.SlidePage != nil {
		t.Errorf("SlidePage = %v, want nil", *got.SlidePage)
	}
}

func TestAnalyzeMissingConcept(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"confidence": 0.7}`,
		},
	}
	e := NewEnricher(provider, discardLogger())

	got := e.Analyze(context.Background(), "記得複習", "00:20:00", "")
	if got.Concept != "未知概念" {
		t.Errorf("Concept = %q, want 未知概念", got.Concept)
	}
	if got.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}
}

func TestAnalyzePromptContents(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"concept": "圖論", "confidence": 0.9}`,
		},
	}
	e := NewEnricher(provider, discardLogger())

	e.Analyze(context.Background(), "這個會考", "00:05:12", "我們剛講完最短路徑")

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d Complete calls, want 1", len(calls))
	}
	req := calls[0].Req
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
	if req.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want 100", req.MaxTokens)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(req.Messages))
	}
	prompt := req.Messages[0].Content
	for _, want := range []string{"這個會考", "00:05:12", "我們剛講完最短路徑", `"concept"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
