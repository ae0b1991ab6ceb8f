package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillmail/quill/internal/config"
)

func newFunctionsCmd() *cobra.Command {
	var showPrompt bool

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the functions the model can call",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			eng, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			defs, systemPrompt := eng.Functions()
			if showPrompt {
				fmt.Println(systemPrompt)
				return nil
			}

			for _, def := range defs {
				fmt.Printf("%s\n  %s\n", def.Name, def.Description)
				required := make(map[string]bool, len(def.Required))
				for _, r := range def.Required {
					required[r] = true
				}
				names := make([]string, 0, len(def.Parameters))
				for name := range def.Parameters {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					p := def.Parameters[name]
					var notes []string
					if required[name] {
						notes = append(notes, "required")
					}
					if len(p.Enum) > 0 {
						notes = append(notes, "one of "+strings.Join(p.Enum, ", "))
					}
					suffix := ""
					if len(notes) > 0 {
						suffix = " (" + strings.Join(notes, "; ") + ")"
					}
					fmt.Printf("    %s %s%s: %s\n", name, p.Type, suffix, p.Description)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "print the composed system prompt instead")
	return cmd
}
