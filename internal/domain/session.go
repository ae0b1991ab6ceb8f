package domain

import "time"

// Role classifies a message in the conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleError     = "error"
)

// FunctionCallRecord is a resolved function invocation attached to an
// assistant message. Result and Error are mutually exclusive.
type FunctionCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Message is a single turn in a conversation. Content and Reasoning are
// append-only while a round is streaming and immutable once finalized.
type Message struct {
	ID            string               `json:"id"`
	Role          string               `json:"role"`
	Content       string               `json:"content"`
	Reasoning     string               `json:"reasoning,omitempty"`
	FunctionCalls []FunctionCallRecord `json:"functionCalls,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ChatSession is the conversation state for one session id. It is
// exclusively owned by the engine's session manager.
type ChatSession struct {
	ID            string    `json:"id"`
	SystemPrompt  string    `json:"systemPrompt"`
	History       []Message `json:"history,omitempty"`
	ActiveRoundID string    `json:"activeRoundId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
