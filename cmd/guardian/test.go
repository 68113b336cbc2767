package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/budget"
	"github.com/guardianhq/guardian/internal/pipeline"
	"github.com/guardianhq/guardian/internal/policy"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <command>",
		Short: "Dry-run a Bash command through the decision pipeline",
		Long: `test fabricates a Bash request for the given command and runs it through
the pipeline without writing an audit entry or triggering the kill switch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd := resolveCwd()
			pol, err := policy.Load(cwd)
			if err != nil {
				return err
			}

			command := strings.Join(args, " ")
			eng := pipeline.New(pol)
			eng.Tracker = &budget.Tracker{} // dry run, don't consume the session budget
			eng.Stderr = cmd.ErrOrStderr()

			res := eng.Evaluate(&pipeline.Request{
				Tool:  pipeline.ToolBash,
				Input: map[string]any{"command": command},
				Cwd:   cwd,
			})

			if res.Allowed {
				cmd.Printf("allow  %s\n", command)
				if res.Source == pipeline.SourceAllowlist {
					cmd.Println("       (allowlisted)")
				}
				return nil
			}

			cmd.Printf("deny   %s\n", command)
			cmd.Printf("       source: %s, severity: %s\n", res.Source, res.Severity)
			if res.Reason != "" {
				cmd.Printf("       reason: %s\n", res.Reason)
			}
			if res.Pattern != "" {
				cmd.Printf("       pattern: %s\n", res.Pattern)
			}
			return fmt.Errorf("command would be denied")
		},
	}
}
