package model

import (
	"context"
	"fmt"
	"strings"
)

// Static is an offline client that returns canned text. It backs the
// --offline dry-run mode, where the pipeline wiring is exercised without
// reaching any external service.
type Static struct {
	Provider string
	// Responses maps a substring of the prompt to a canned reply; the first
	// match wins. Fallback is returned when nothing matches.
	Responses map[string]string
	Fallback  string
}

func (s *Static) Name() string { return s.Provider }

// Invoke implements Client.
func (s *Static) Invoke(_ context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, Permanent(s.Provider, fmt.Errorf("empty prompt"))
	}
	text := s.Fallback
	for needle, reply := range s.Responses {
		if needle != "" && strings.Contains(req.Prompt, needle) {
			text = reply
			break
		}
	}
	if text == "" {
		text = "offline response"
	}
	return &Response{
		Text:  text,
		Model: s.Provider,
	}, nil
}
