package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Options configures a provider client.
type Options struct {
	Provider    string // short name used in logs and history, e.g. "gpt", "grok"
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	// Thinking allows extended reasoning on this provider. Requests that ask
	// for thinking are served plain when the provider disables it.
	Thinking bool
}

// OpenAICompat is a chat-completion client for any OpenAI-compatible API.
// It serves the GPT, Grok, DeepSeek, and Aristotle providers, which differ
// only in base URL and model name.
type OpenAICompat struct {
	client  *openai.Client
	opts    Options
	timeout time.Duration
}

// NewOpenAICompat creates a client for an OpenAI-compatible endpoint.
func NewOpenAICompat(opts Options) (*OpenAICompat, error) {
	if opts.APIKey == "" {
		return nil, Unsupported(opts.Provider, fmt.Errorf("no API key configured"))
	}
	cc := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cc.BaseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAICompat{
		client:  openai.NewClientWithConfig(cc),
		opts:    opts,
		timeout: timeout,
	}, nil
}

func (c *OpenAICompat) Name() string { return c.opts.Provider }

// Invoke implements Client.
func (c *OpenAICompat) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, Permanent(c.opts.Provider, fmt.Errorf("empty prompt"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:    c.opts.Model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		apiReq.Temperature = req.Temperature
	} else if c.opts.Temperature > 0 {
		apiReq.Temperature = c.opts.Temperature
	}
	if req.MaxTokens > 0 {
		apiReq.MaxCompletionTokens = req.MaxTokens
	} else if c.opts.MaxTokens > 0 {
		apiReq.MaxCompletionTokens = c.opts.MaxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, Permanent(c.opts.Provider, fmt.Errorf("no choices returned"))
	}

	return &Response{
		Text:       resp.Choices[0].Message.Content,
		Thinking:   resp.Choices[0].Message.ReasoningContent,
		Model:      resp.Model,
		LatencyMs:  time.Since(start).Milliseconds(),
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// classify maps a go-openai error to the CallError taxonomy.
func (c *OpenAICompat) classify(err error) *CallError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(c.opts.Provider, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if classifyStatus(apiErr.HTTPStatusCode) == KindTransient {
			return Transient(c.opts.Provider, err)
		}
		return Permanent(c.opts.Provider, err)
	}
	// Connection-level failures are worth a retry.
	return Transient(c.opts.Provider, err)
}
