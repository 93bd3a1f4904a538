package model

import (
	"testing"

	"google.golang.org/genai"
)

func TestThoughtText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "first consider parity", Thought: true},
				{Text: "The proof follows."},
			}},
		}},
	}
	if got := thoughtText(resp); got != "first consider parity" {
		t.Errorf("thoughtText = %q", got)
	}
	if got := thoughtText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("thoughtText on empty response = %q", got)
	}
}
