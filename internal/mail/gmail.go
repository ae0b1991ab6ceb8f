package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/quillmail/quill/internal/logging"
)

// GmailConfig points at the OAuth credential files. The token file is
// produced by a one-time interactive flow; see the auth command.
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
}

// Gmail is a Mailbox over the Gmail API.
type Gmail struct {
	svc *gmail.Service
	log *logging.Logger
}

// NewGmail builds a Gmail mailbox from stored OAuth credentials.
func NewGmail(ctx context.Context, cfg GmailConfig, log *logging.Logger) (*Gmail, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading gmail credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing gmail credentials: %w", err)
	}

	token, err := TokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("no auth token at %s, run 'quill auth gmail' first: %w", cfg.TokenFile, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &Gmail{svc: svc, log: log.Sub("gmail")}, nil
}

func (g *Gmail) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	call := g.svc.Users.Messages.List("me").MaxResults(int64(limit)).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing gmail messages: %w", err)
	}

	var results []Summary
	for _, ref := range list.Messages {
		detail, err := g.svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").MetadataHeaders("From", "Subject", "Date").Context(ctx).Do()
		if err != nil {
			g.log.Warn().Err(err).Str("messageId", ref.Id).Msg("fetching message metadata failed")
			continue
		}

		s := Summary{ID: ref.Id, Snippet: detail.Snippet, Seen: true}
		for _, label := range detail.LabelIds {
			if label == "UNREAD" {
				s.Seen = false
			}
		}
		for _, h := range detail.Payload.Headers {
			switch h.Name {
			case "From":
				s.From = h.Value
			case "Subject":
				s.Subject = h.Value
			case "Date":
				if t, err := netmailParseDate(h.Value); err == nil {
					s.Date = t
				}
			}
		}
		results = append(results, s)
	}
	return results, nil
}

func (g *Gmail) Read(ctx context.Context, id string) (*Email, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading gmail message %s: %w", id, err)
	}

	email := &Email{ID: id}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			email.From = h.Value
		case "To":
			email.To = strings.Split(h.Value, ", ")
		case "Subject":
			email.Subject = h.Value
		case "Date":
			if t, err := netmailParseDate(h.Value); err == nil {
				email.Date = t
			}
		}
	}
	email.Body = extractPartBody(msg.Payload)
	return email, nil
}

func (g *Gmail) Mailboxes(ctx context.Context) ([]string, error) {
	list, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing gmail labels: %w", err)
	}
	names := make([]string, 0, len(list.Labels))
	for _, l := range list.Labels {
		names = append(names, l.Name)
	}
	return names, nil
}

// extractPartBody walks the MIME tree for the first text part.
func extractPartBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if strings.HasPrefix(payload.MimeType, "text/") && payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}
	for _, part := range payload.Parts {
		if body := extractPartBody(part); body != "" {
			return body
		}
	}
	return ""
}

func netmailParseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %s", value)
}

// TokenFromFile loads a cached OAuth token.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// SaveToken caches an OAuth token with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("caching oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Authorize runs the interactive OAuth exchange and caches the token.
// promptFn receives the URL to visit and returns the pasted code.
func Authorize(ctx context.Context, cfg GmailConfig, promptFn func(authURL string) (string, error)) error {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return fmt.Errorf("reading gmail credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return fmt.Errorf("parsing gmail credentials: %w", err)
	}

	code, err := promptFn(oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	if err != nil {
		return err
	}
	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return SaveToken(cfg.TokenFile, token)
}
