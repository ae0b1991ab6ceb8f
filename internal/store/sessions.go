package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillmail/quill/internal/domain"
)

// SaveSession upserts the session row. Messages are written separately
// via AppendMessage so streaming rounds only ever insert.
func (db *DB) SaveSession(s *domain.ChatSession) error {
	_, err := db.sql.Exec(`
		INSERT INTO sessions (id, system_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			system_prompt = excluded.system_prompt,
			updated_at = excluded.updated_at
	`, s.ID, s.SystemPrompt, s.CreatedAt.UTC().Format(time.RFC3339), s.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	return nil
}

// AppendMessage inserts a finalized message for the session.
func (db *DB) AppendMessage(sessionID string, m domain.Message) error {
	var calls any
	if len(m.FunctionCalls) > 0 {
		data, err := json.Marshal(m.FunctionCalls)
		if err != nil {
			return fmt.Errorf("encoding function calls: %w", err)
		}
		calls = string(data)
	}

	_, err := db.sql.Exec(`
		INSERT INTO messages (message_id, session_id, role, content, reasoning, function_calls, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, sessionID, m.Role, m.Content, m.Reasoning, calls, m.Timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("appending message to %s: %w", sessionID, err)
	}
	return nil
}

// LoadSession reads a session and its full transcript. Returns
// (nil, nil) when the id has never been saved.
func (db *DB) LoadSession(id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	var created, updated string
	err := db.sql.QueryRow(`
		SELECT id, system_prompt, created_at, updated_at FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.SystemPrompt, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, created)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updated)

	rows, err := db.sql.Query(`
		SELECT message_id, role, content, reasoning, function_calls, timestamp
		FROM messages WHERE session_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("loading messages for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Message
		var calls sql.NullString
		var ts string
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Reasoning, &calls, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if calls.Valid {
			if err := json.Unmarshal([]byte(calls.String), &m.FunctionCalls); err != nil {
				return nil, fmt.Errorf("decoding function calls: %w", err)
			}
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, ts)
		s.History = append(s.History, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages for %s: %w", id, err)
	}

	return &s, nil
}

// DeleteSession removes the session and, via cascade, its messages.
func (db *DB) DeleteSession(id string) error {
	if _, err := db.sql.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}
