package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmail/quill/internal/domain"
	"github.com/quillmail/quill/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	sess := &domain.ChatSession{
		ID:           "s1",
		SystemPrompt: "You handle mail.",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.SaveSession(sess))

	require.NoError(t, db.AppendMessage("s1", domain.Message{
		ID: "m1", Role: domain.RoleUser, Content: "any mail from alice?", Timestamp: now,
	}))
	require.NoError(t, db.AppendMessage("s1", domain.Message{
		ID:        "m2",
		Role:      domain.RoleAssistant,
		Content:   "One unread message.",
		Reasoning: "searching first",
		FunctionCalls: []domain.FunctionCallRecord{
			{Name: "search_mail", Arguments: map[string]any{"query": "from:alice"}, Result: "1 hit"},
		},
		Timestamp: now,
	}))

	got, err := db.LoadSession("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "You handle mail.", got.SystemPrompt)
	assert.Equal(t, now, got.CreatedAt)

	require.Len(t, got.History, 2)
	assert.Equal(t, domain.RoleUser, got.History[0].Role)
	assert.Equal(t, "searching first", got.History[1].Reasoning)
	require.Len(t, got.History[1].FunctionCalls, 1)
	call := got.History[1].FunctionCalls[0]
	assert.Equal(t, "search_mail", call.Name)
	assert.Equal(t, map[string]any{"query": "from:alice"}, call.Arguments)
	assert.Equal(t, "1 hit", call.Result)
}

func TestLoadUnknownSession(t *testing.T) {
	db := openTestDB(t)

	got, err := db.LoadSession("never-saved")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveSessionUpserts(t *testing.T) {
	db := openTestDB(t)

	sess := &domain.ChatSession{ID: "s1", SystemPrompt: "v1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, db.SaveSession(sess))

	sess.SystemPrompt = "v2"
	require.NoError(t, db.SaveSession(sess))

	got, err := db.LoadSession("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.SystemPrompt)
}

func TestDeleteSessionCascades(t *testing.T) {
	db := openTestDB(t)

	sess := &domain.ChatSession{ID: "s1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, db.SaveSession(sess))
	require.NoError(t, db.AppendMessage("s1", domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi", Timestamp: time.Now()}))

	require.NoError(t, db.DeleteSession("s1"))

	got, err := db.LoadSession("s1")
	require.NoError(t, err)
	assert.Nil(t, got, "a deleted session id loads as never-seen")

	var count int
	require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM messages WHERE session_id = 's1'").Scan(&count))
	assert.Zero(t, count, "messages are removed with their session")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.SaveSession(&domain.ChatSession{ID: "s1", SystemPrompt: "p"}))
	require.NoError(t, m.AppendMessage("s1", domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi"}))

	got, err := m.LoadSession("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.History, 1)

	// The returned copy is detached from the store.
	got.History[0].Content = "mutated"
	again, err := m.LoadSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "hi", again.History[0].Content)

	require.NoError(t, m.DeleteSession("s1"))
	gone, err := m.LoadSession("s1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
