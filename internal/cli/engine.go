package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/quillmail/quill/internal/config"
	"github.com/quillmail/quill/internal/engine"
	"github.com/quillmail/quill/internal/llm"
	"github.com/quillmail/quill/internal/mail"
	"github.com/quillmail/quill/internal/registry"
	"github.com/quillmail/quill/internal/store"
)

// gmailConfig maps mail settings to the Gmail backend, caching the
// OAuth token under the credentials dir when no path is configured.
func gmailConfig(cfg config.Config) mail.GmailConfig {
	tokenFile := cfg.Mail.Gmail.TokenFile
	if tokenFile == "" {
		tokenFile = filepath.Join(paths.Credentials, "gmail-token.json")
	}
	return mail.GmailConfig{
		CredentialsFile: cfg.Mail.Gmail.CredentialsFile,
		TokenFile:       tokenFile,
	}
}

// buildEngine wires the chat engine from config: inference provider,
// function registry (builtins plus the configured mail backend), and
// session persistence. The returned cleanup closes the store.
func buildEngine(ctx context.Context, cfg config.Config) (*engine.Engine, func(), error) {
	providers := llm.NewRegistry(log)
	if cfg.Inference.Provider == "" {
		cfg.Inference.Provider = "ollama"
	}
	switch cfg.Inference.Provider {
	case "ollama":
		providers.Register("ollama", llm.NewOllamaClient(cfg.Inference.BaseURL, cfg.Inference.Model))
		providers.SetFallback("ollama")
	default:
		return nil, nil, fmt.Errorf("unknown inference provider: %s", cfg.Inference.Provider)
	}

	funcs := registry.New()
	if err := registry.RegisterBuiltins(funcs); err != nil {
		return nil, nil, err
	}

	var mailbox mail.Mailbox
	switch cfg.Mail.Backend {
	case "", "none":
	case "imap":
		mailbox = mail.NewIMAP(mail.IMAPConfig{
			Host:     cfg.Mail.IMAP.Host,
			Port:     cfg.Mail.IMAP.Port,
			Email:    cfg.Mail.IMAP.Email,
			Password: cfg.Mail.IMAP.Password,
			Mailbox:  cfg.Mail.IMAP.Mailbox,
		}, log)
	case "gmail":
		gm, err := mail.NewGmail(ctx, gmailConfig(cfg), log)
		if err != nil {
			return nil, nil, fmt.Errorf("gmail backend: %w", err)
		}
		mailbox = gm
	default:
		return nil, nil, fmt.Errorf("unknown mail backend: %s", cfg.Mail.Backend)
	}
	if mailbox != nil {
		if err := mail.RegisterFunctions(funcs, mailbox); err != nil {
			return nil, nil, err
		}
		log.Info().Str("backend", cfg.Mail.Backend).Msg("mail functions registered")
	}

	var persist engine.Persister
	cleanup := func() {}
	if cfg.Session.Store == "sqlite" {
		db, err := store.Open(paths.Sessions(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session store: %w", err)
		}
		persist = db
		cleanup = func() { db.Close() }
		log.Info().Str("path", paths.Sessions()).Msg("using SQLite session store")
	} else {
		persist = store.NewMemory()
		log.Info().Msg("using in-memory session store")
	}

	eng := engine.New(engine.Config{
		Provider:      cfg.Inference.Provider,
		Model:         cfg.Inference.Model,
		BasePrompt:    cfg.Inference.BasePrompt,
		Temperature:   cfg.Inference.Temperature,
		MaxTokens:     cfg.Inference.MaxTokens,
		ContextBudget: cfg.Session.ContextBudget,
		ToolTimeout:   time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
		MaxTurns:      cfg.Tools.MaxTurns,
	}, providers, funcs, persist, log)

	return eng, cleanup, nil
}
