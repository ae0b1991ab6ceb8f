// Package engine is the streaming tool-calling chat engine: it owns
// per-session conversation state, drives generation rounds against the
// inference transport, detects function directives in the token stream,
// executes them against the registry, and emits ordered typed events.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillmail/quill/internal/domain"
	"github.com/quillmail/quill/internal/llm"
	"github.com/quillmail/quill/internal/logging"
	"github.com/quillmail/quill/internal/prompt"
	"github.com/quillmail/quill/internal/registry"
)

// Persister stores finalized conversation state. Implementations must
// tolerate best-effort use: the engine logs and continues on error.
type Persister interface {
	SaveSession(s *domain.ChatSession) error
	AppendMessage(sessionID string, m domain.Message) error
	LoadSession(id string) (*domain.ChatSession, error)
	DeleteSession(id string) error
}

// Config controls engine behavior.
type Config struct {
	Provider    string // inference provider name, resolved via the llm registry
	Model       string
	BasePrompt  string // prepended to every session's system prompt
	Temperature *float64
	MaxTokens   int

	// ContextBudget bounds the total size in bytes of history sent to
	// the transport. Oldest non-system messages are dropped first.
	// Zero means unlimited.
	ContextBudget int

	// ToolTimeout bounds a single function execution.
	ToolTimeout time.Duration

	// MaxTurns caps transport requests per round so a model that keeps
	// requesting functions cannot loop forever.
	MaxTurns int
}

const (
	defaultToolTimeout = 30 * time.Second
	defaultMaxTurns    = 5
)

// Engine is the session manager and round orchestrator.
type Engine struct {
	cfg       Config
	providers *llm.Registry
	funcs     *registry.Registry
	persist   Persister
	log       *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session pairs conversation data with runtime round state.
type session struct {
	data   *domain.ChatSession
	state  domain.RoundState
	cancel context.CancelFunc
}

// New creates an engine. persist may be nil for memory-only operation.
func New(cfg Config, providers *llm.Registry, funcs *registry.Registry, persist Persister, log *logging.Logger) *Engine {
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	return &Engine{
		cfg:       cfg,
		providers: providers,
		funcs:     funcs,
		persist:   persist,
		log:       log.Sub("engine"),
		sessions:  make(map[string]*session),
	}
}

// Functions returns the registered definitions and the composed system
// prompt they produce.
func (e *Engine) Functions() ([]registry.Definition, string) {
	defs := e.funcs.List()
	return defs, prompt.Compose(e.cfg.BasePrompt, defs)
}

// GetOrCreateSession returns the session for id, creating it on first
// use. systemPrompt extends the engine's base prompt for this session.
func (e *Engine) GetOrCreateSession(id, systemPrompt string) *domain.ChatSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getOrCreateLocked(id, systemPrompt).data
}

func (e *Engine) getOrCreateLocked(id, systemPrompt string) *session {
	if s, ok := e.sessions[id]; ok {
		return s
	}

	if e.persist != nil {
		if stored, err := e.persist.LoadSession(id); err != nil {
			e.log.Warn().Err(err).Str("sessionId", id).Msg("loading persisted session failed")
		} else if stored != nil {
			s := &session{data: stored, state: domain.RoundIdle}
			e.sessions[id] = s
			return s
		}
	}

	data := &domain.ChatSession{
		ID:           id,
		SystemPrompt: systemPrompt,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s := &session{data: data, state: domain.RoundIdle}
	e.sessions[id] = s

	if e.persist != nil {
		if err := e.persist.SaveSession(data); err != nil {
			e.log.Warn().Err(err).Str("sessionId", id).Msg("persisting session failed")
		}
	}

	e.log.Debug().Str("sessionId", id).Msg("session created")
	return s
}

// State returns the current round state for a session.
func (e *Engine) State(id string) (domain.RoundState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	return s.state, nil
}

// Cancel aborts the active round for a session, if any. The round id is
// invalidated; no further events for it are emitted.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Teardown cancels any active round and destroys the session, including
// persisted history. A session recreated with the same id starts empty.
func (e *Engine) Teardown(id string) error {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if ok {
		if s.cancel != nil {
			s.cancel()
		}
		delete(e.sessions, id)
	}
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.DeleteSession(id); err != nil {
			e.log.Warn().Err(err).Str("sessionId", id).Msg("deleting persisted session failed")
		}
	}
	return nil
}

// Round is a handle on one active generation round. Events is closed
// after the terminal Complete/Error event, or without one if the round
// was cancelled.
type Round struct {
	ID        string
	SessionID string
	Events    <-chan domain.StreamEvent
}

// Send starts a round for the given user text. It is fire-and-forget:
// results arrive on the returned round's event channel. Send is
// rejected while a round is active for the session.
func (e *Engine) Send(ctx context.Context, sessionID, userText string, enableTools bool) (*Round, error) {
	e.mu.Lock()
	s := e.getOrCreateLocked(sessionID, "")
	if s.state == domain.RoundStreaming || s.state == domain.RoundAwaitingTool {
		e.mu.Unlock()
		return nil, ErrRoundActive
	}

	userMsg := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   userText,
		Timestamp: time.Now(),
	}
	s.data.History = append(s.data.History, userMsg)
	s.data.UpdatedAt = time.Now()

	roundID := uuid.New().String()
	s.data.ActiveRoundID = roundID
	s.state = domain.RoundStreaming

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	e.mu.Unlock()

	e.persistMessage(sessionID, userMsg)

	events := make(chan domain.StreamEvent, 64)
	r := &round{
		engine:      e,
		session:     s,
		sessionID:   sessionID,
		roundID:     roundID,
		enableTools: enableTools,
		events:      events,
	}
	// Releasing the child context after run returns keeps long-lived
	// parents (a server's signal context) from accumulating registrations
	// across rounds.
	go func() {
		r.run(runCtx)
		cancel()
	}()

	e.log.Info().
		Str("sessionId", sessionID).
		Str("roundId", roundID).
		Bool("tools", enableTools).
		Int("historyLen", len(s.data.History)).
		Msg("round started")

	return &Round{ID: roundID, SessionID: sessionID, Events: events}, nil
}

func (e *Engine) persistMessage(sessionID string, m domain.Message) {
	if e.persist == nil {
		return
	}
	if err := e.persist.AppendMessage(sessionID, m); err != nil {
		e.log.Warn().Err(err).Str("sessionId", sessionID).Msg("persisting message failed")
	}
}

// setState transitions a session's round state under the engine lock.
func (e *Engine) setState(s *session, st domain.RoundState) {
	e.mu.Lock()
	s.state = st
	if st == domain.RoundComplete || st == domain.RoundErrored || st == domain.RoundCancelled {
		s.data.ActiveRoundID = ""
		s.cancel = nil
	}
	e.mu.Unlock()
}

// appendHistory appends messages to a session's history under the lock
// and persists them.
func (e *Engine) appendHistory(s *session, sessionID string, msgs ...domain.Message) {
	e.mu.Lock()
	s.data.History = append(s.data.History, msgs...)
	s.data.UpdatedAt = time.Now()
	e.mu.Unlock()
	for _, m := range msgs {
		e.persistMessage(sessionID, m)
	}
}
