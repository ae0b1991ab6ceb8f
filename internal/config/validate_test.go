package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()

	cfg.Gateway.Port = -1
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "gateway.port")

	cfg.Gateway.Port = 70000
	issues = Validate(&cfg)
	assert.NotEmpty(t, issues)
}

func TestValidate_ValidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = 0
	assert.Empty(t, Validate(&cfg))

	cfg.Gateway.Port = 65535
	assert.Empty(t, Validate(&cfg))

	cfg.Gateway.Port = 8080
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidBind(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Bind = "invalid"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "gateway.bind")
}

func TestValidate_ValidBinds(t *testing.T) {
	for _, bind := range []string{"auto", "lan", "loopback", "custom", ""} {
		cfg := Defaults()
		cfg.Gateway.Bind = bind
		assert.Empty(t, Validate(&cfg), "bind %q should be valid", bind)
	}
}

func TestValidate_InvalidAuthMode(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Auth.Mode = "magic"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "gateway.auth.mode")
}

func TestValidate_TLSRequiresPaths(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.TLS.Enabled = true
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "gateway.tls")

	cfg.Gateway.TLS.CertPath = "/etc/quill/cert.pem"
	cfg.Gateway.TLS.KeyPath = "/etc/quill/key.pem"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Inference.Provider = "openai"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "inference.provider")
}

func TestValidate_Temperature(t *testing.T) {
	cfg := Defaults()
	temp := 3.5
	cfg.Inference.Temperature = &temp
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "inference.temperature")

	temp = 0.7
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_NegativeToolTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Tools.TimeoutSeconds = -1
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "tools.timeoutSeconds")
}

func TestValidate_InvalidStore(t *testing.T) {
	cfg := Defaults()
	cfg.Session.Store = "postgres"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "session.store")
}

func TestValidate_NegativeContextBudget(t *testing.T) {
	cfg := Defaults()
	cfg.Session.ContextBudget = -100
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "session.contextBudget")
}

func TestValidate_IMAPMissingFields(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "imap"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)

	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.Contains(t, paths, "mail.imap.host")
	assert.Contains(t, paths, "mail.imap.email")
}

func TestValidate_IMAPComplete(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "imap"
	cfg.Mail.IMAP.Host = "imap.mail.me.com"
	cfg.Mail.IMAP.Email = "me@icloud.com"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_GmailRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "gmail"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "mail.gmail.credentialsFile")
}

func TestValidate_InvalidMailBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "pop3"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "mail.backend")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "logging.level")
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"silent", "fatal", "error", "warn", "info", "debug", "trace", ""} {
		cfg := Defaults()
		cfg.Logging.Level = level
		assert.Empty(t, Validate(&cfg), "level %q should be valid", level)
	}
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "gateway.port", Message: "out of range"}
	assert.Equal(t, "gateway.port: out of range", issue.String())
}
