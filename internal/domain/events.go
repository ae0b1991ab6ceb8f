package domain

// RoundState tracks where a generation round is in its lifecycle.
type RoundState string

const (
	RoundIdle         RoundState = "idle"
	RoundStreaming    RoundState = "streaming"
	RoundAwaitingTool RoundState = "awaiting_tool"
	RoundComplete     RoundState = "complete"
	RoundErrored      RoundState = "errored"
	RoundCancelled    RoundState = "cancelled"
)

// StreamEvent types.
const (
	EventChunk        = "chunk"
	EventFunctionCall = "functionCall"
	EventError        = "error"
	EventComplete     = "complete"
)

// Chunk channels.
const (
	ChannelContent   = "content"
	ChannelReasoning = "reasoning"
)

// StreamEvent is one element of the ordered event stream a consumer
// observes for a round. Exactly one payload group is set, keyed by Type.
// Complete or Error is always the terminal event of a round.
type StreamEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	RoundID   string `json:"roundId"`

	// Type == EventChunk
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`

	// Type == EventFunctionCall
	Call *FunctionCallRecord `json:"call,omitempty"`

	// Type == EventError
	Message string `json:"message,omitempty"`
}
