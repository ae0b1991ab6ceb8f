package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillmail/quill/internal/directive"
	"github.com/quillmail/quill/internal/domain"
	"github.com/quillmail/quill/internal/llm"
	"github.com/quillmail/quill/internal/logging"
	"github.com/quillmail/quill/internal/prompt"
)

// round drives one Send call: one or more transport turns, directive
// detection, tool execution, and event emission. Events for a round are
// produced strictly in order by this single goroutine.
type round struct {
	engine      *Engine
	session     *session
	sessionID   string
	roundID     string
	enableTools bool
	events      chan domain.StreamEvent
}

func (r *round) run(ctx context.Context) {
	defer close(r.events)

	e := r.engine
	log := e.log.Sub("round." + r.roundID[:8])

	client, err := e.providers.Resolve(e.cfg.Provider)
	if err != nil {
		r.fail(ctx, log, err.Error())
		return
	}

	system := r.systemPrompt()

	// In-flight assistant message, append-only while streaming.
	asm := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Timestamp: time.Now(),
	}

	for turn := 0; turn < e.cfg.MaxTurns; turn++ {
		req := llm.ChatRequest{
			Model:       e.cfg.Model,
			System:      system,
			Messages:    r.transportHistory(),
			Temperature: e.cfg.Temperature,
			MaxTokens:   e.cfg.MaxTokens,
		}

		frags, err := client.Stream(ctx, req)
		if err != nil {
			r.fail(ctx, log, fmt.Sprintf("transport: %v", err))
			return
		}

		calls, ok := r.consumeTurn(ctx, log, frags, &asm)
		if !ok {
			// Errored or cancelled; consumeTurn already finalized.
			return
		}

		if len(calls) == 0 {
			r.finalize(ctx, &asm)
			return
		}

		// The model asked for functions this turn: record what it said,
		// fold the results in, and start a continuation turn.
		var toolMsgs []domain.Message
		for _, rec := range calls {
			toolMsgs = append(toolMsgs, domain.Message{
				ID:        uuid.New().String(),
				Role:      domain.RoleTool,
				Content:   formatResult(rec),
				Timestamp: time.Now(),
			})
		}
		snapshot := asm
		e.appendHistory(r.session, r.sessionID, append([]domain.Message{snapshot}, toolMsgs...)...)

		// The continuation turn streams into a fresh assistant message.
		asm = domain.Message{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Timestamp: time.Now(),
		}
	}

	// Turn cap reached; end the round normally with what accumulated.
	log.Warn().Int("maxTurns", e.cfg.MaxTurns).Msg("turn cap reached, ending round")
	r.finalize(ctx, &asm)
}

// consumeTurn reads one transport stream to completion, emitting chunk
// events and executing directives as they are detected. It returns the
// resolved calls for this turn, and false if the round terminated.
func (r *round) consumeTurn(ctx context.Context, log *logging.Logger, frags <-chan llm.Fragment, asm *domain.Message) ([]domain.FunctionCallRecord, bool) {
	parser := directive.NewParser()
	var resolved []domain.FunctionCallRecord

	for {
		select {
		case <-ctx.Done():
			r.cancelled(log)
			return nil, false
		case frag, open := <-frags:
			if !open {
				// Natural end of stream: anything still held by the
				// parser is plain content.
				if tail := parser.Flush(); tail != "" {
					asm.Content += tail
					if !r.emitChunk(ctx, domain.ChannelContent, tail) {
						r.cancelled(log)
						return nil, false
					}
				}
				return resolved, true
			}

			switch frag.Type {
			case llm.FragmentThinking:
				asm.Reasoning += frag.Text
				if !r.emitChunk(ctx, domain.ChannelReasoning, frag.Text) {
					r.cancelled(log)
					return nil, false
				}

			case llm.FragmentDelta:
				if !r.enableTools {
					asm.Content += frag.Text
					if !r.emitChunk(ctx, domain.ChannelContent, frag.Text) {
						r.cancelled(log)
						return nil, false
					}
					continue
				}

				segs, perrs := parser.Feed(frag.Text)
				for _, perr := range perrs {
					log.Warn().Err(perr).Msg("malformed directive treated as content")
				}
				// Segments replay the stream in order: text before a
				// directive is delivered before its functionCall event,
				// text after it waits until the call resolves.
				for _, seg := range segs {
					if seg.Call == nil {
						asm.Content += seg.Text
						if !r.emitChunk(ctx, domain.ChannelContent, seg.Text) {
							r.cancelled(log)
							return nil, false
						}
						continue
					}
					rec, ok := r.resolveCall(ctx, log, *seg.Call)
					if !ok {
						r.cancelled(log)
						return nil, false
					}
					asm.FunctionCalls = append(asm.FunctionCalls, rec)
					resolved = append(resolved, rec)
				}

			case llm.FragmentError:
				r.fail(ctx, log, frag.Error)
				return nil, false

			case llm.FragmentDone:
				// Totals are already accumulated from deltas.
			}
		}
	}
}

// resolveCall executes one directive while content delivery is paused,
// then emits the functionCall event.
func (r *round) resolveCall(ctx context.Context, log *logging.Logger, call directive.Call) (domain.FunctionCallRecord, bool) {
	r.engine.setState(r.session, domain.RoundAwaitingTool)
	rec := r.engine.execute(ctx, call)
	r.engine.setState(r.session, domain.RoundStreaming)

	if rec.Error != "" {
		log.Warn().Str("function", rec.Name).Str("error", rec.Error).Msg("function call failed")
	} else {
		log.Debug().Str("function", rec.Name).Msg("function call resolved")
	}

	ok := r.emit(ctx, domain.StreamEvent{
		Type:      domain.EventFunctionCall,
		SessionID: r.sessionID,
		RoundID:   r.roundID,
		Call:      &rec,
	})
	return rec, ok
}

// systemPrompt combines the engine base prompt, the session's own
// prompt, and (when tools are enabled) the composed function catalog.
func (r *round) systemPrompt() string {
	e := r.engine

	e.mu.Lock()
	sessionPrompt := r.session.data.SystemPrompt
	e.mu.Unlock()

	base := e.cfg.BasePrompt
	if sessionPrompt != "" {
		if base != "" {
			base = base + "\n\n" + sessionPrompt
		} else {
			base = sessionPrompt
		}
	}
	if !r.enableTools {
		return base
	}
	return prompt.Compose(base, e.funcs.List())
}

// transportHistory converts the session history to transport messages,
// applying the context budget. Error-role messages are render artifacts
// and are not replayed to the model.
func (r *round) transportHistory() []llm.Message {
	e := r.engine

	e.mu.Lock()
	history := make([]domain.Message, len(r.session.data.History))
	copy(history, r.session.data.History)
	e.mu.Unlock()

	history = truncateToBudget(history, e.cfg.ContextBudget)

	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case domain.RoleAssistant:
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		case domain.RoleTool:
			// Folded back as user input so the model can react to it.
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: m.Content})
		}
	}
	return msgs
}

// finalize ends the round normally: the assistant message is frozen,
// appended to history, and Complete is emitted as the terminal event.
func (r *round) finalize(ctx context.Context, asm *domain.Message) {
	if asm.Content != "" || asm.Reasoning != "" || len(asm.FunctionCalls) > 0 {
		r.engine.appendHistory(r.session, r.sessionID, *asm)
	}
	r.engine.setState(r.session, domain.RoundComplete)

	r.emit(ctx, domain.StreamEvent{
		Type:      domain.EventComplete,
		SessionID: r.sessionID,
		RoundID:   r.roundID,
	})

	r.engine.log.Info().
		Str("sessionId", r.sessionID).
		Str("roundId", r.roundID).
		Msg("round complete")
}

// fail ends the round as Errored: an error-role message is recorded and
// Error is emitted as the terminal event.
func (r *round) fail(ctx context.Context, log *logging.Logger, message string) {
	errMsg := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleError,
		Content:   message,
		Timestamp: time.Now(),
	}
	r.engine.appendHistory(r.session, r.sessionID, errMsg)
	r.engine.setState(r.session, domain.RoundErrored)

	r.emit(ctx, domain.StreamEvent{
		Type:      domain.EventError,
		SessionID: r.sessionID,
		RoundID:   r.roundID,
		Message:   message,
	})

	log.Error().Str("sessionId", r.sessionID).Str("error", message).Msg("round errored")
}

// cancelled ends the round without a terminal event: the round id is
// already invalid and consumers discard anything tagged with it.
func (r *round) cancelled(log *logging.Logger) {
	r.engine.setState(r.session, domain.RoundCancelled)
	log.Info().Str("sessionId", r.sessionID).Msg("round cancelled")
}

// emit delivers an event in order, aborting if the round is cancelled.
// The explicit Err check keeps a cancelled round from racing a ready
// channel: once cancellation is observable, nothing more is enqueued.
func (r *round) emit(ctx context.Context, evt domain.StreamEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *round) emitChunk(ctx context.Context, channel, text string) bool {
	return r.emit(ctx, domain.StreamEvent{
		Type:      domain.EventChunk,
		SessionID: r.sessionID,
		RoundID:   r.roundID,
		Channel:   channel,
		Text:      text,
	})
}

// formatResult renders a resolved call for the model's context.
func formatResult(rec domain.FunctionCallRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Result of %s:\n", rec.Name)
	if rec.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", rec.Error)
	} else {
		fmt.Fprintf(&b, "%v\n", rec.Result)
	}
	return b.String()
}
