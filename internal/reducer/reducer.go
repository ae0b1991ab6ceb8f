// Package reducer folds a round's stream events into the assistant
// message a client would render. Consumers feed it every event they
// receive; the reducer ignores events from other rounds, so a client
// can keep one instance per session and swap it on each new round.
// Cancelling a round is signalled with Invalidate, which also drops
// the round's own events from then on.
package reducer

import (
	"time"

	"github.com/google/uuid"

	"github.com/quillmail/quill/internal/domain"
)

// Reducer accumulates one in-flight assistant message for a round.
// It is not safe for concurrent use.
type Reducer struct {
	roundID string
	msg     domain.Message
	frozen  bool
	invalid bool
}

// New returns a reducer for the given round id. Events carrying any
// other round id are dropped.
func New(roundID string) *Reducer {
	return &Reducer{
		roundID: roundID,
		msg: domain.Message{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Timestamp: time.Now(),
		},
	}
}

// Apply folds one event into the message. It reports whether the
// event was consumed; stale-round events and events after a terminal
// event return false and leave the message untouched.
func (r *Reducer) Apply(evt domain.StreamEvent) bool {
	if evt.RoundID != r.roundID || r.frozen || r.invalid {
		return false
	}

	switch evt.Type {
	case domain.EventChunk:
		switch evt.Channel {
		case domain.ChannelReasoning:
			r.msg.Reasoning += evt.Text
		default:
			r.msg.Content += evt.Text
		}
	case domain.EventFunctionCall:
		if evt.Call != nil {
			r.msg.FunctionCalls = append(r.msg.FunctionCalls, *evt.Call)
		}
	case domain.EventError:
		r.msg = domain.Message{
			ID:        r.msg.ID,
			Role:      domain.RoleError,
			Content:   evt.Message,
			Timestamp: time.Now(),
		}
		r.frozen = true
	case domain.EventComplete:
		r.frozen = true
	default:
		return false
	}
	return true
}

// Invalidate marks the reducer's own round as cancelled. Every later
// Apply returns false, so buffered events that drain after a cancel
// never touch the message. Done stays false: cancellation is not a
// terminal event.
func (r *Reducer) Invalidate() {
	r.invalid = true
}

// Done reports whether a terminal event has been applied. A round
// whose event channel closed without Done turning true was cancelled.
func (r *Reducer) Done() bool {
	return r.frozen
}

// Message returns a snapshot of the accumulated message.
func (r *Reducer) Message() domain.Message {
	m := r.msg
	if len(r.msg.FunctionCalls) > 0 {
		m.FunctionCalls = make([]domain.FunctionCallRecord, len(r.msg.FunctionCalls))
		copy(m.FunctionCalls, r.msg.FunctionCalls)
	}
	return m
}
