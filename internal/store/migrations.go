package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions and messages",
		SQL: `
			CREATE TABLE sessions (
				id            TEXT PRIMARY KEY,
				system_prompt TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE messages (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				message_id     TEXT NOT NULL,
				session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				role           TEXT NOT NULL,
				content        TEXT NOT NULL,
				reasoning      TEXT NOT NULL DEFAULT '',
				function_calls TEXT,
				timestamp      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_session ON messages (session_id, id);
		`,
	},
}
