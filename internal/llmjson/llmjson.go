// Package llmjson coerces raw LLM chat-completion responses into typed
// Go values. Every response in the specification MUST be parseable after
// stripping a leading ```json fence and a trailing ```; shape mismatches
// degrade to the caller's documented fallback rather than failing the
// request.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoChoices is returned when a chat-completion envelope carries no
// message content to parse.
var ErrNoChoices = errors.New("llmjson: response has no choices")

// ChatCompletion is the minimal shape of an OpenAI-style chat completion
// response that every C/E/K caller needs.
type ChatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractContent pulls the first choice's message content out of a raw
// chat-completion response body.
func ExtractContent(body []byte) (string, error) {
	var cc ChatCompletion
	if err := json.Unmarshal(body, &cc); err != nil {
		return "", err
	}
	if len(cc.Choices) == 0 {
		return "", ErrNoChoices
	}
	return cc.Choices[0].Message.Content, nil
}

// StripFence removes a leading ```json / ``` fence and a trailing ```
// from a model response, defensively, as called out in the specification
// ("Every response MUST be parseable after stripping a leading ```json?
// fence and trailing ```").
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimPrefix(s, "JSON")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseObject unmarshals a (possibly fenced) JSON object from content
// into dst, retrying once with fence-stripping if the first attempt
// fails on the raw string.
func ParseObject(content string, dst interface{}) error {
	if err := json.Unmarshal([]byte(content), dst); err == nil {
		return nil
	}
	stripped := StripFence(content)
	return json.Unmarshal([]byte(stripped), dst)
}
