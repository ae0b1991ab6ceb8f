package engine

import "errors"

var (
	// ErrRoundActive is returned by Send while a round is streaming or
	// awaiting a tool for the same session.
	ErrRoundActive = errors.New("a round is already active for this session")

	// ErrSessionNotFound is returned for operations on unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrToolTimeout marks a function execution that exceeded the
	// configured bound.
	ErrToolTimeout = errors.New("tool execution timed out")
)
