package mail

import (
	"context"
	"errors"
	netmail "net/mail"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmail/quill/internal/registry"
)

type fakeMailbox struct {
	searchQuery string
	searchLimit int
	summaries   []Summary
	email       *Email
	err         error
}

func (f *fakeMailbox) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	f.searchQuery = query
	f.searchLimit = limit
	return f.summaries, f.err
}

func (f *fakeMailbox) Read(ctx context.Context, id string) (*Email, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.email, nil
}

func (f *fakeMailbox) Mailboxes(ctx context.Context) ([]string, error) {
	return []string{"INBOX", "Sent"}, f.err
}

func TestRegisterFunctions(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterFunctions(reg, &fakeMailbox{}))

	var names []string
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"list_mailboxes", "read_mail", "search_mail"}, names)
}

func TestSearchMailFunction(t *testing.T) {
	fake := &fakeMailbox{summaries: []Summary{
		{ID: "3", From: "alice@example.com", Subject: "lunch", Date: time.Now()},
	}}
	reg := registry.New()
	require.NoError(t, RegisterFunctions(reg, fake))

	result, err := reg.Invoke(context.Background(), "search_mail", map[string]any{
		"query": "FROM alice@example.com",
		"limit": 5.0,
	})
	require.NoError(t, err)

	assert.Equal(t, "FROM alice@example.com", fake.searchQuery)
	assert.Equal(t, 5, fake.searchLimit)
	summaries, ok := result.([]Summary)
	require.True(t, ok)
	require.Len(t, summaries, 1)
	assert.Equal(t, "lunch", summaries[0].Subject)
}

func TestSearchMailEmptyResultIsNotNil(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterFunctions(reg, &fakeMailbox{}))

	result, err := reg.Invoke(context.Background(), "search_mail", map[string]any{"query": "UNSEEN"})
	require.NoError(t, err)
	summaries, ok := result.([]Summary)
	require.True(t, ok)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestReadMailFunction(t *testing.T) {
	fake := &fakeMailbox{email: &Email{ID: "7", Subject: "receipt", Body: "total $12"}}
	reg := registry.New()
	require.NoError(t, RegisterFunctions(reg, fake))

	result, err := reg.Invoke(context.Background(), "read_mail", map[string]any{"id": "7"})
	require.NoError(t, err)
	email, ok := result.(*Email)
	require.True(t, ok)
	assert.Equal(t, "receipt", email.Subject)
}

func TestBackendErrorsPropagate(t *testing.T) {
	fake := &fakeMailbox{err: errors.New("connection refused")}
	reg := registry.New()
	require.NoError(t, RegisterFunctions(reg, fake))

	_, err := reg.Invoke(context.Background(), "search_mail", map[string]any{"query": "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestParseCriteria(t *testing.T) {
	c := parseCriteria("FROM bob@example.com")
	assert.Equal(t, "bob@example.com", c.Header.Get("From"))

	c = parseCriteria("SUBJECT quarterly report")
	assert.Equal(t, "quarterly report", c.Header.Get("Subject"))

	c = parseCriteria("UNSEEN")
	assert.Equal(t, []string{imap.SeenFlag}, c.WithoutFlags)

	c = parseCriteria("seen")
	assert.Equal(t, []string{imap.SeenFlag}, c.WithFlags)

	c = parseCriteria("invoice 2024")
	assert.Equal(t, []string{"invoice 2024"}, c.Text)
}

func TestExtractTextBodyQuotedPrintable(t *testing.T) {
	raw := "Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9 tomorrow?\r\n"

	msg, err := netmail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	body, err := extractTextBody(msg)
	require.NoError(t, err)
	assert.Equal(t, "café tomorrow?\r\n", body)
}

func TestExtractTextBodyMultipart(t *testing.T) {
	raw := "Content-Type: multipart/alternative; boundary=b1\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"\r\n" +
		"binary\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"the text part\r\n" +
		"--b1--\r\n"

	msg, err := netmail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	body, err := extractTextBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "the text part")
}
