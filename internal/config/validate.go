package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Inference validation
	validProviders := []string{"ollama"}
	if cfg.Inference.Provider != "" && !slices.Contains(validProviders, cfg.Inference.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "inference.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Inference.Provider),
		})
	}
	if cfg.Inference.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "inference.maxTokens",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Inference.MaxTokens),
		})
	}
	if cfg.Inference.Temperature != nil && (*cfg.Inference.Temperature < 0 || *cfg.Inference.Temperature > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "inference.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", *cfg.Inference.Temperature),
		})
	}

	// Tools validation
	if cfg.Tools.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "tools.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Tools.TimeoutSeconds),
		})
	}
	if cfg.Tools.MaxTurns < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "tools.maxTurns",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Tools.MaxTurns),
		})
	}

	// Session validation
	validStores := []string{"sqlite", "memory"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}
	if cfg.Session.ContextBudget < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.contextBudget",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.ContextBudget),
		})
	}

	// Mail validation
	validBackends := []string{"none", "imap", "gmail"}
	if cfg.Mail.Backend != "" && !slices.Contains(validBackends, cfg.Mail.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "mail.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Mail.Backend),
		})
	}
	if cfg.Mail.Backend == "imap" {
		if cfg.Mail.IMAP.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "mail.imap.host",
				Message: "host is required",
			})
		}
		if cfg.Mail.IMAP.Email == "" {
			issues = append(issues, ValidationIssue{
				Path:    "mail.imap.email",
				Message: "email is required",
			})
		}
		if cfg.Mail.IMAP.Port < 0 || cfg.Mail.IMAP.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "mail.imap.port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Mail.IMAP.Port),
			})
		}
	}
	if cfg.Mail.Backend == "gmail" && cfg.Mail.Gmail.CredentialsFile == "" {
		issues = append(issues, ValidationIssue{
			Path:    "mail.gmail.credentialsFile",
			Message: "credentialsFile is required",
		})
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	validAuthModes := []string{"token", "password"}
	if cfg.Gateway.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Gateway.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Gateway.Auth.Mode),
		})
	}

	if cfg.Gateway.TLS.Enabled {
		if cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "gateway.tls",
				Message: "certPath and keyPath are required when TLS is enabled",
			})
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
