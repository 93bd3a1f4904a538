package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// anthropicTestServer captures the decoded request into got and replies with
// a canned thinking-plus-text response.
func anthropicTestServer(t *testing.T, got *anthropicRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{
				{Type: "thinking", Thinking: "consider induction on n"},
				{Type: "text", Text: "Proof sketch."},
			},
			Model: "claude-test",
			Usage: anthropicUsage{InputTokens: 10, OutputTokens: 20},
		})
	}))
}

func TestAnthropicThinkingEnabled(t *testing.T) {
	var got anthropicRequest
	srv := anthropicTestServer(t, &got)
	defer srv.Close()

	client, err := NewAnthropic(Options{
		Provider: "claude",
		APIKey:   "test-key",
		Model:    "claude-test",
		BaseURL:  srv.URL,
		Thinking: true,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Invoke(context.Background(), Request{Prompt: "Prove P.", Thinking: true})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got.Thinking == nil || got.Thinking.Type != "enabled" {
		t.Errorf("request thinking = %+v, want enabled", got.Thinking)
	}
	if got.MaxTokens < anthropicThinkingBudget {
		t.Errorf("max_tokens = %d, leaves no room for the thinking budget", got.MaxTokens)
	}
	if resp.Thinking != "consider induction on n" {
		t.Errorf("response thinking = %q", resp.Thinking)
	}
	if resp.Text != "Proof sketch." {
		t.Errorf("response text = %q", resp.Text)
	}
}

func TestAnthropicProviderDisablesThinking(t *testing.T) {
	var got anthropicRequest
	srv := anthropicTestServer(t, &got)
	defer srv.Close()

	client, err := NewAnthropic(Options{
		Provider:    "claude",
		APIKey:      "test-key",
		Model:       "claude-test",
		BaseURL:     srv.URL,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	// The stage asks for thinking but the provider config turns it off.
	if _, err := client.Invoke(context.Background(), Request{Prompt: "Prove P.", Thinking: true}); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got.Thinking != nil {
		t.Errorf("request thinking = %+v, want none", got.Thinking)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", got.Temperature)
	}
}
