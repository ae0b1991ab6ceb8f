package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillmail/quill/internal/config"
	"github.com/quillmail/quill/internal/mail"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage mail backend credentials",
	}

	cmd.AddCommand(newAuthGmailCmd())
	return cmd
}

// newAuthGmailCmd runs the interactive OAuth flow for the Gmail backend
// and caches the token next to the credentials file.
func newAuthGmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gmail",
		Short: "Authorize Gmail access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cfg.Mail.Gmail.CredentialsFile == "" {
				return fmt.Errorf("mail.gmail.credentialsFile is not configured")
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			err = mail.Authorize(cmd.Context(), gmailConfig(cfg), func(authURL string) (string, error) {
				fmt.Printf("Open this URL in your browser, then paste the code here:\n\n  %s\n\nCode: ", authURL)
				reader := bufio.NewReader(os.Stdin)
				code, err := reader.ReadString('\n')
				if err != nil {
					return "", err
				}
				return strings.TrimSpace(code), nil
			})
			if err != nil {
				return err
			}

			fmt.Println("Gmail authorized.")
			return nil
		},
	}
}
