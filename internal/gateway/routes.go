package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/quillmail/quill/internal/engine"
)

// safeConfigPrefixes lists config path prefixes that can be read and
// written via RPC. All other paths are denied by default (allowlist).
var safeConfigPrefixes = []string{
	"gateway.port",
	"gateway.bind",
	"gateway.customBindHost",
	"gateway.controlUi",
	"logging",
	"session",
	"tools",
	"inference.model",
	"inference.temperature",
}

func isAllowedConfigPath(key string) bool {
	for _, prefix := range safeConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("config.get", s.rpcConfigGet)
	s.Handle("config.set", s.rpcConfigSet)
	s.Handle("session.open", s.rpcSessionOpen)
	s.Handle("session.reset", s.rpcSessionReset)
	s.Handle("chat.send", s.rpcChatSend)
	s.Handle("chat.cancel", s.rpcChatCancel)
	s.Handle("functions.list", s.rpcFunctionsList)
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	})
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "access denied for config path: "+p.Key)
		return
	}

	s.mu.RLock()
	raw := s.configRaw
	s.mu.RUnlock()

	path, err := parseConfigPathForRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	val, ok := getValueAtPathRPC(raw, path)
	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

type configSetParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) rpcConfigSet(rc *RequestContext) {
	var p configSetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "cannot modify config path: "+p.Key)
		return
	}

	path, err := parseConfigPathForRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	setValueAtPathRPC(s.configRaw, path, p.Value)
	s.mu.Unlock()

	rc.Respond(map[string]any{"key": p.Key, "value": p.Value})
}

type sessionOpenParams struct {
	SessionID    string `json:"sessionId,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// rpcSessionOpen creates or resumes a chat session. When no sessionId is
// given the connection id is used, so each client gets its own session by
// default.
func (s *Server) rpcSessionOpen(rc *RequestContext) {
	if s.engine == nil {
		rc.RespondError("unavailable", "chat engine not configured")
		return
	}

	var p sessionOpenParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.SessionID == "" {
		p.SessionID = rc.Client.ConnID
	}

	sess := s.engine.GetOrCreateSession(p.SessionID, p.SystemPrompt)
	rc.Respond(map[string]any{
		"sessionId":    sess.ID,
		"messageCount": len(sess.History),
		"createdAt":    sess.CreatedAt,
	})
}

type sessionResetParams struct {
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Server) rpcSessionReset(rc *RequestContext) {
	if s.engine == nil {
		rc.RespondError("unavailable", "chat engine not configured")
		return
	}

	var p sessionResetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.SessionID == "" {
		p.SessionID = rc.Client.ConnID
	}

	if err := s.engine.Teardown(p.SessionID); err != nil {
		rc.RespondError("internal_error", err.Error())
		return
	}
	rc.Respond(map[string]any{"sessionId": p.SessionID, "reset": true})
}

type chatSendParams struct {
	Message     string `json:"message"`
	SessionID   string `json:"sessionId,omitempty"`
	EnableTools *bool  `json:"enableTools,omitempty"`
}

// rpcChatSend starts a generation round. The response acknowledges the
// round immediately; chunks, function calls and the terminal outcome
// arrive as chat.* events tagged with the session and round ids.
func (s *Server) rpcChatSend(rc *RequestContext) {
	if s.engine == nil {
		rc.RespondError("unavailable", "chat engine not configured")
		return
	}

	var p chatSendParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Message == "" {
		rc.RespondError("invalid_params", "message is required")
		return
	}
	if p.SessionID == "" {
		p.SessionID = rc.Client.ConnID
	}
	enableTools := p.EnableTools == nil || *p.EnableTools

	round, err := s.engine.Send(context.Background(), p.SessionID, p.Message, enableTools)
	if err != nil {
		if errors.Is(err, engine.ErrRoundActive) {
			rc.RespondError("round_active", "a round is already in progress for this session")
			return
		}
		rc.RespondError("internal_error", err.Error())
		return
	}

	rc.Respond(map[string]any{
		"sessionId": round.SessionID,
		"roundId":   round.ID,
	})

	go s.forwardRound(rc.Client, round)
}

// forwardRound relays a round's event stream to the client. A cancelled
// round closes the channel without a terminal event, which simply ends
// the loop.
func (s *Server) forwardRound(client *Client, round *engine.Round) {
	for evt := range round.Events {
		name := "chat." + evt.Type
		if err := client.SendEvent(name, evt, s.eventSeq.Add(1)); err != nil {
			s.log.Warn().Err(err).
				Str("roundId", round.ID).
				Str("event", name).
				Msg("dropping round event, client send failed")
			if errors.Is(err, ErrClientClosed) {
				s.engine.Cancel(round.SessionID)
				return
			}
		}
	}
}

type chatCancelParams struct {
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Server) rpcChatCancel(rc *RequestContext) {
	if s.engine == nil {
		rc.RespondError("unavailable", "chat engine not configured")
		return
	}

	var p chatCancelParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.SessionID == "" {
		p.SessionID = rc.Client.ConnID
	}

	if err := s.engine.Cancel(p.SessionID); err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			rc.RespondError("not_found", "unknown session: "+p.SessionID)
			return
		}
		rc.RespondError("internal_error", err.Error())
		return
	}
	rc.Respond(map[string]any{"sessionId": p.SessionID, "cancelled": true})
}

func (s *Server) rpcFunctionsList(rc *RequestContext) {
	if s.engine == nil {
		rc.RespondError("unavailable", "chat engine not configured")
		return
	}

	defs, systemPrompt := s.engine.Functions()
	rc.Respond(map[string]any{
		"functions":    defs,
		"systemPrompt": systemPrompt,
	})
}

// Helpers that mirror config.ParseConfigPath / GetValueAtPath without importing config
// to avoid circular dependencies — they operate on raw maps only.

func parseConfigPathForRPC(raw string) ([]string, error) {
	if raw == "" {
		return nil, ErrEmptyConfigPath
	}
	var parts []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '.' {
			if i == start {
				return nil, ErrEmptyConfigPath
			}
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	return parts, nil
}

func getValueAtPathRPC(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setValueAtPathRPC(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}
