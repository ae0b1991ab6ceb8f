package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quillmail/quill/internal/config"
	"github.com/quillmail/quill/internal/domain"
	"github.com/quillmail/quill/internal/engine"
	"github.com/quillmail/quill/internal/reducer"
)

func newChatCmd() *cobra.Command {
	var (
		sessionID     string
		noTools       bool
		showReasoning bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message and stream the assistant's reply",
		Long:  "Send a single message, or start an interactive session when no message is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, cleanup, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			enableTools := cfg.Tools.Enabled == nil || *cfg.Tools.Enabled
			if noTools {
				enableTools = false
			}

			// Cancel the in-flight round if the user interrupts
			go func() {
				<-ctx.Done()
				eng.Cancel(sessionID)
			}()

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			if len(args) > 0 {
				return streamRound(ctx, eng, sessionID, strings.Join(args, " "), enableTools, showReasoning, out, errOut)
			}

			// Interactive: one round per line until EOF or interrupt.
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}
				if err := streamRound(ctx, eng, sessionID, line, enableTools, showReasoning, out, errOut); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					fmt.Fprintf(errOut, "error: %v\n", err)
				}
			}
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "cli", "session id to continue")
	cmd.Flags().BoolVar(&noTools, "no-tools", false, "disable function calling for this round")
	cmd.Flags().BoolVar(&showReasoning, "show-reasoning", false, "print model reasoning to stderr")

	return cmd
}

// streamRound sends one message and prints the event stream until the
// round's channel closes. A reducer keyed to the round gates every
// event: stale ids and anything draining after an interrupt are
// discarded before they reach the terminal.
func streamRound(ctx context.Context, eng *engine.Engine, sessionID, message string, enableTools, showReasoning bool, out, errOut io.Writer) error {
	round, err := eng.Send(ctx, sessionID, message, enableTools)
	if err != nil {
		return err
	}

	red := reducer.New(round.ID)
	for evt := range round.Events {
		if ctx.Err() != nil {
			red.Invalidate()
		}
		if !red.Apply(evt) {
			continue
		}
		switch evt.Type {
		case domain.EventChunk:
			if evt.Channel == domain.ChannelReasoning {
				if showReasoning {
					fmt.Fprint(errOut, evt.Text)
				}
				continue
			}
			fmt.Fprint(out, evt.Text)
		case domain.EventFunctionCall:
			if evt.Call.Error != "" {
				fmt.Fprintf(errOut, "\n[%s: %s]\n", evt.Call.Name, evt.Call.Error)
			} else {
				fmt.Fprintf(errOut, "\n[called %s]\n", evt.Call.Name)
			}
		case domain.EventError:
			fmt.Fprintln(out)
			return fmt.Errorf("round failed: %s", red.Message().Content)
		case domain.EventComplete:
			fmt.Fprintln(out)
		}
	}
	if !red.Done() && ctx.Err() != nil {
		fmt.Fprintln(out)
	}
	return nil
}
