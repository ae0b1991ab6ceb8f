package store

import (
	"sync"

	"github.com/quillmail/quill/internal/domain"
)

// Memory is an in-process session store. It exists for tests and for
// running without a configured database path.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*domain.ChatSession)}
}

func (m *Memory) SaveSession(s *domain.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[s.ID]
	if !ok {
		cp := *s
		cp.History = append([]domain.Message(nil), s.History...)
		m.sessions[s.ID] = &cp
		return nil
	}
	existing.SystemPrompt = s.SystemPrompt
	existing.UpdatedAt = s.UpdatedAt
	return nil
}

func (m *Memory) AppendMessage(sessionID string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &domain.ChatSession{ID: sessionID}
		m.sessions[sessionID] = s
	}
	s.History = append(s.History, msg)
	return nil
}

func (m *Memory) LoadSession(id string) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.History = append([]domain.Message(nil), s.History...)
	return &cp, nil
}

func (m *Memory) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
