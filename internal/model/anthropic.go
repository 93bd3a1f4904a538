package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
	// Thinking budget when extended thinking is requested.
	anthropicThinkingBudget = 8192
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Thinking  *thinkingParams    `json:"thinking,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type thinkingParams struct {
	Type         string `json:"type"` // must be "enabled"
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
	Usage   anthropicUsage     `json:"usage"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Anthropic is a client for the Anthropic messages API.
type Anthropic struct {
	httpClient *http.Client
	opts       Options
	baseURL    string
}

// NewAnthropic creates an Anthropic client.
func NewAnthropic(opts Options) (*Anthropic, error) {
	if opts.APIKey == "" {
		return nil, Unsupported(opts.Provider, fmt.Errorf("no API key configured"))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &Anthropic{
		httpClient: &http.Client{Timeout: timeout},
		opts:       opts,
		baseURL:    baseURL,
	}, nil
}

func (a *Anthropic) Name() string { return a.opts.Provider }

// Invoke implements Client.
func (a *Anthropic) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, Permanent(a.opts.Provider, fmt.Errorf("empty prompt"))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.opts.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	payload := anthropicRequest{
		Model:     a.opts.Model,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		System:    req.System,
		MaxTokens: maxTokens,
	}
	if req.Thinking && a.opts.Thinking {
		// Thinking budget must leave room for the answer itself.
		if payload.MaxTokens < anthropicThinkingBudget+2048 {
			payload.MaxTokens = anthropicThinkingBudget + 2048
		}
		payload.Thinking = &thinkingParams{Type: "enabled", BudgetTokens: anthropicThinkingBudget}
	} else {
		temp := req.Temperature
		if temp == 0 {
			temp = a.opts.Temperature
		}
		if temp > 0 {
			payload.Temperature = &temp
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Permanent(a.opts.Provider, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(a.opts.Provider, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("x-api-key", a.opts.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, Transient(a.opts.Provider, err)
		}
		return nil, Transient(a.opts.Provider, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 300))
		if classifyStatus(resp.StatusCode) == KindTransient {
			return nil, Transient(a.opts.Provider, err)
		}
		return nil, Permanent(a.opts.Provider, err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, Permanent(a.opts.Provider, fmt.Errorf("parse response: %w", err))
	}
	if apiResp.Error != nil {
		return nil, Permanent(a.opts.Provider, fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message))
	}

	var text, thinking string
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "thinking":
			thinking += block.Thinking
		}
	}
	if text == "" {
		return nil, Permanent(a.opts.Provider, fmt.Errorf("no text block in response"))
	}

	return &Response{
		Text:       text,
		Thinking:   thinking,
		Model:      apiResp.Model,
		LatencyMs:  time.Since(start).Milliseconds(),
		TokensUsed: apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
