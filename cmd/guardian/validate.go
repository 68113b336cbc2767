package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/hook"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the hook adapter: read one request on stdin, decide on stdout",
		Long: `validate is the entry point the agent runtime invokes as its pre-tool-use
hook. It reads one JSON request from stdin and writes the decision to
stdout. The adapter is fail-open: internal faults degrade to allow with a
note on stderr. A qualifying violation terminates the process with the
kill-switch exit code after the audit entry is written.`,
		Run: func(cmd *cobra.Command, args []string) {
			runner := hook.NewRunner()
			runner.Cwd = resolveCwd()
			if code := runner.Run(); code != 0 {
				os.Exit(code)
			}
		},
	}
}
