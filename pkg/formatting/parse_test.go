package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/loom/pkg/formatting"
)

type readiness struct {
	Score     int      `json:"score"`
	Rationale string   `json:"rationale"`
	Gaps      []string `json:"gaps"`
}

func TestParseDirectJSON(t *testing.T) {
	content := `{"score": 85, "rationale": "solid", "gaps": ["edge cases"]}`

	result, err := formatting.Parse[readiness](content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.Score != 85 {
		t.Errorf("score: got %d, want 85", result.Score)
	}
	if len(result.Gaps) != 1 {
		t.Errorf("gaps: got %d, want 1", len(result.Gaps))
	}
}

func TestParseMarkdownFence(t *testing.T) {
	content := "Here is the assessment:\n```json\n{\"score\": 72, \"rationale\": \"needs work\"}\n```\nLet me know."

	result, err := formatting.Parse[readiness](content)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if result.Score != 72 {
		t.Errorf("score: got %d, want 72", result.Score)
	}
}

func TestParseBareFence(t *testing.T) {
	content := "```\n{\"score\": 50}\n```"

	result, err := formatting.Parse[readiness](content)
	if err != nil {
		t.Fatalf("parse bare fence: %v", err)
	}
	if result.Score != 50 {
		t.Errorf("score: got %d, want 50", result.Score)
	}
}

func TestParseSurroundingWhitespace(t *testing.T) {
	content := "\n\n  {\"score\": 90}  \n"

	result, err := formatting.Parse[readiness](content)
	if err != nil {
		t.Fatalf("parse with whitespace: %v", err)
	}
	if result.Score != 90 {
		t.Errorf("score: got %d, want 90", result.Score)
	}
}

func TestParseFailure(t *testing.T) {
	_, err := formatting.Parse[readiness]("the model refused to answer")
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Errorf("expected ErrParseFailed, got %v", err)
	}

	_, err = formatting.Parse[readiness]("```json\nnot json either\n```")
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Errorf("expected ErrParseFailed for bad fence, got %v", err)
	}
}
