package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Gemini is a client for the Google Gemini API.
type Gemini struct {
	client  *genai.Client
	opts    Options
	timeout time.Duration
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, Unsupported(opts.Provider, fmt.Errorf("no API key configured"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, Permanent(opts.Provider, fmt.Errorf("create gemini client: %w", err))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gemini{client: client, opts: opts, timeout: timeout}, nil
}

func (g *Gemini) Name() string { return g.opts.Provider }

// Invoke implements Client.
func (g *Gemini) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, Permanent(g.opts.Provider, fmt.Errorf("empty prompt"))
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	} else if g.opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(g.opts.Temperature)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	} else if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Thinking && g.opts.Thinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, g.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, Permanent(g.opts.Provider, fmt.Errorf("empty response"))
	}

	out := &Response{
		Text:      text,
		Thinking:  thoughtText(resp),
		Model:     g.opts.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// thoughtText concatenates the thought parts of a response. Text() returns
// only the answer parts, so the reasoning trace has to be collected here.
func thoughtText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Thought {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

func (g *Gemini) classify(err error) *CallError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(g.opts.Provider, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if classifyStatus(apiErr.Code) == KindTransient {
			return Transient(g.opts.Provider, err)
		}
		return Permanent(g.opts.Provider, err)
	}
	return Transient(g.opts.Provider, err)
}
