package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillmail/quill/internal/config"
	"github.com/quillmail/quill/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show quill status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Quill %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			// Inference config
			provider := cfg.Inference.Provider
			if provider == "" {
				provider = "ollama"
			}
			model := cfg.Inference.Model
			if model == "" {
				model = "(not set)"
			}
			fmt.Printf("Model:   provider=%s model=%s url=%s\n",
				provider, model, cfg.Inference.BaseURL)

			// Tools config
			toolsEnabled := cfg.Tools.Enabled == nil || *cfg.Tools.Enabled
			fmt.Printf("Tools:   enabled=%v timeout=%ds maxTurns=%d\n",
				toolsEnabled, cfg.Tools.TimeoutSeconds, cfg.Tools.MaxTurns)

			// Session config
			store := cfg.Session.Store
			if store == "" {
				store = "sqlite"
			}
			fmt.Printf("Session: store=%s contextBudget=%d\n", store, cfg.Session.ContextBudget)

			// Mail backend
			backend := cfg.Mail.Backend
			switch backend {
			case "imap":
				fmt.Printf("Mail:    imap host=%s email=%s\n", cfg.Mail.IMAP.Host, cfg.Mail.IMAP.Email)
			case "gmail":
				fmt.Printf("Mail:    gmail credentials=%s\n", cfg.Mail.Gmail.CredentialsFile)
			default:
				fmt.Println("Mail:    (not configured)")
			}

			// Gateway config
			port := cfg.Gateway.Port
			if port == 0 {
				port = 18990
			}
			bind := cfg.Gateway.Bind
			if bind == "" {
				bind = "loopback"
			}
			fmt.Printf("Gateway: port=%d bind=%s auth=%s tls=%v\n",
				port, bind, cfg.Gateway.Auth.Mode, cfg.Gateway.TLS.Enabled)

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
