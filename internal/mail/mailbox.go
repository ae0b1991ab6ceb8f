// Package mail is the mailbox subsystem the chat functions call
// through. The engine never sees a backend directly, only the Mailbox
// interface behind the registry functions.
package mail

import (
	"context"
	"time"
)

// Summary is one row of a search result.
type Summary struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	Seen    bool      `json:"seen"`
	Snippet string    `json:"snippet,omitempty"`
}

// Email is a fully fetched message.
type Email struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	Body    string    `json:"body"`
}

// Mailbox abstracts a mail account. Implementations connect lazily so
// an unconfigured backend only fails when a function actually runs.
type Mailbox interface {
	// Search finds messages matching query. Supported query forms are
	// backend specific; the IMAP backend understands "FROM addr",
	// "SUBJECT text", "UNSEEN", "SEEN", and free text.
	Search(ctx context.Context, query string, limit int) ([]Summary, error)

	// Read fetches a single message by the id a Search returned.
	Read(ctx context.Context, id string) (*Email, error)

	// Mailboxes lists folder names in the account.
	Mailboxes(ctx context.Context) ([]string, error)
}
