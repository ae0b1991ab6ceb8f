package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/quillmail/quill/internal/logging"
)

// IMAPConfig holds credentials for a generic IMAP account.
type IMAPConfig struct {
	Host     string
	Port     int
	Email    string
	Password string
	Mailbox  string // selected folder, default INBOX
}

// IMAP is a Mailbox over a plain IMAP account. Each operation dials a
// fresh connection; IMAP servers drop idle sessions aggressively and a
// chat round only touches the account a handful of times.
type IMAP struct {
	cfg IMAPConfig
	log *logging.Logger
}

// NewIMAP returns an IMAP mailbox. It does not connect.
func NewIMAP(cfg IMAPConfig, log *logging.Logger) *IMAP {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAP{cfg: cfg, log: log.Sub("imap")}
}

func (m *IMAP) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	m.log.Debug().Str("addr", addr).Msg("dialing imap")

	c, err := client.DialTLS(addr, &tls.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if err := c.Login(m.cfg.Email, m.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func (m *IMAP) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	c, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(m.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", m.cfg.Mailbox, err)
	}

	seqs, err := c.Search(parseCriteria(query))
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(seqs) == 0 {
		return nil, nil
	}
	if len(seqs) > limit {
		seqs = seqs[len(seqs)-limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqs...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags}

	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var fetched []*imap.Message
	for msg := range messages {
		fetched = append(fetched, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching search results: %w", err)
	}

	// Newest first.
	results := make([]Summary, 0, len(fetched))
	for i := len(fetched) - 1; i >= 0; i-- {
		results = append(results, summarize(fetched[i]))
	}
	return results, nil
}

func (m *IMAP) Read(ctx context.Context, id string) (*Email, error) {
	seq, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("message id %q is not a sequence number", id)
	}

	c, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(m.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", m.cfg.Mailbox, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(seq))

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching message %d: %w", seq, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", seq)
	}

	email := &Email{
		ID:      id,
		Subject: msg.Envelope.Subject,
		Date:    msg.Envelope.Date,
	}
	if len(msg.Envelope.From) > 0 {
		email.From = msg.Envelope.From[0].Address()
	}
	for _, addr := range msg.Envelope.To {
		email.To = append(email.To, addr.Address())
	}

	for _, literal := range msg.Body {
		if literal == nil {
			continue
		}
		parsed, err := netmail.ReadMessage(literal)
		if err != nil {
			m.log.Warn().Err(err).Msg("unparseable message body")
			continue
		}
		body, err := extractTextBody(parsed)
		if err != nil {
			m.log.Warn().Err(err).Msg("extracting message body")
			continue
		}
		email.Body = body
		break
	}
	return email, nil
}

func (m *IMAP) Mailboxes(ctx context.Context) ([]string, error) {
	c, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	boxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", boxes)
	}()

	var names []string
	for b := range boxes {
		names = append(names, b.Name)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}
	return names, nil
}

// parseCriteria maps the supported query forms onto IMAP search
// criteria. Anything unrecognized becomes a full-text search.
func parseCriteria(query string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	upper := strings.ToUpper(query)

	switch {
	case strings.HasPrefix(upper, "FROM "):
		criteria.Header.Set("From", strings.TrimSpace(query[len("FROM "):]))
	case strings.HasPrefix(upper, "SUBJECT "):
		criteria.Header.Set("Subject", strings.TrimSpace(query[len("SUBJECT "):]))
	case upper == "UNSEEN":
		criteria.WithoutFlags = []string{imap.SeenFlag}
	case upper == "SEEN":
		criteria.WithFlags = []string{imap.SeenFlag}
	default:
		criteria.Text = []string{query}
	}
	return criteria
}

func summarize(msg *imap.Message) Summary {
	s := Summary{
		ID:      strconv.FormatUint(uint64(msg.SeqNum), 10),
		Subject: msg.Envelope.Subject,
		Date:    msg.Envelope.Date,
	}
	if len(msg.Envelope.From) > 0 {
		s.From = msg.Envelope.From[0].Address()
	}
	for _, f := range msg.Flags {
		if f == imap.SeenFlag {
			s.Seen = true
			break
		}
	}
	return s
}

func extractTextBody(msg *netmail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			partType, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			if strings.HasPrefix(partType, "text/") {
				body, err := io.ReadAll(p)
				if err != nil {
					continue
				}
				return string(body), nil
			}
		}
		return "", fmt.Errorf("no text part in multipart message")
	}

	if strings.HasPrefix(mediaType, "text/") {
		reader := msg.Body
		if msg.Header.Get("Content-Transfer-Encoding") == "quoted-printable" {
			reader = quotedprintable.NewReader(msg.Body)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	return "", fmt.Errorf("unsupported content type: %s", mediaType)
}
