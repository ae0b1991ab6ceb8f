// Package llm abstracts the inference transport. The engine only deals
// with the Client interface; the concrete implementation is a locally
// hosted Ollama server.
package llm

import (
	"context"
	"time"
)

// Role constants for transport messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn handed to the transport.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the input to a Stream or Complete call.
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
}

// ChatResponse is the result of a non-streaming completion.
type ChatResponse struct {
	Content   string        `json:"content"`
	Reasoning string        `json:"reasoning,omitempty"`
	Model     string        `json:"model,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Fragment types emitted by a streaming transport.
const (
	FragmentDelta    = "delta"    // user-facing generated text
	FragmentThinking = "thinking" // model-internal rationale text
	FragmentDone     = "done"
	FragmentError    = "error"
)

// Fragment is one raw piece of a streaming completion. The transport
// tags each fragment as content ("delta") or reasoning ("thinking").
type Fragment struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	Error    string        `json:"error,omitempty"`
	Response *ChatResponse `json:"response,omitempty"` // set when Type == "done"
}

// Client is the interface all inference providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Stream sends a request and returns an ordered channel of
	// fragments. The channel is closed after a "done" or "error"
	// fragment, or when ctx is cancelled.
	Stream(ctx context.Context, req ChatRequest) (<-chan Fragment, error)

	// Name returns the provider name (e.g., "ollama").
	Name() string
}
