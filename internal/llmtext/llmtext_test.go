package llmtext

import (
	"errors"
	"testing"
)

type conceptPayload struct {
	Concept    string  `json:"concept"`
	Confidence float64 `json:"confidence"`
}

func TestExtractObjectStrict(t *testing.T) {
	var got conceptPayload
	err := ExtractObject(`{"concept": "二元樹", "confidence": 0.9}`, &got)
	if err != nil {
		t.Fatalf("ExtractObject: %v", err)
	}
	if got.Concept != "二元樹" || got.Confidence != 0.9 {
		t.Errorf("got %+v", got)
	}
}

func TestExtractObjectEmbedded(t *testing.T) {
	raw := "好的，以下是分析結果：\n```json\n{\"concept\": \"遞迴\", \"confidence\": 0.8}\n```\n希望有幫助！"
	var got conceptPayload
	if err := ExtractObject(raw, &got); err != nil {
		t.Fatalf("ExtractObject: %v", err)
	}
	if got.Concept != "遞迴" {
		t.Errorf("concept = %q, want 遞迴", got.Concept)
	}
}

func TestExtractObjectNoJSON(t *testing.T) {
	var got conceptPayload
	err := ExtractObject("抱歉，我無法回答這個問題。", &got)
	if !errors.Is(err, ErrNoJSON) {
		t.Fatalf("err = %v, want ErrNoJSON", err)
	}
}

func TestExtractObjectMalformedEmbedded(t *testing.T) {
	var got conceptPayload
	err := ExtractObject(`result: {"concept": "x", }`, &got)
	if err == nil {
		t.Fatal("expected error for malformed embedded JSON")
	}
	if errors.Is(err, ErrNoJSON) {
		t.Fatalf("err = ErrNoJSON, want parse error")
	}
}

func TestExtractArrayEmbedded(t *testing.T) {
	raw := "以下為建議範圍：[{\"scope_id\": \"scope_1\"}, {\"scope_id\": \"scope_2\"}] 完畢"
	var got []map[string]any
	if err := ExtractArray(raw, &got); err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d elements, want 2", len(got))
	}
	if got[1]["scope_id"] != "scope_2" {
		t.Errorf("second element = %v", got[1])
	}
}

func TestExtractArrayNoJSON(t *testing.T) {
	var got []string
	if err := ExtractArray("no brackets here", &got); !errors.Is(err, ErrNoJSON) {
		t.Fatalf("err = %v, want ErrNoJSON", err)
	}
}
