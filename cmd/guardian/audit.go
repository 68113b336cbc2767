package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/audit"
	"github.com/guardianhq/guardian/internal/policy"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit chain",
	}
	cmd.AddCommand(newAuditVerifyCmd())
	cmd.AddCommand(newAuditSummaryCmd())
	return cmd
}

func auditPath(cwd string) (string, error) {
	pol, err := policy.Load(cwd)
	if err != nil {
		return "", err
	}
	return audit.NewWriter(cwd, pol.Policy.Audit).Path(), nil
}

func newAuditVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the integrity of the audit hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditPath(resolveCwd())
			if err != nil {
				return err
			}

			res, err := audit.Verify(path)
			if err != nil {
				return fmt.Errorf("verify %s: %w", path, err)
			}
			if !res.Valid {
				return fmt.Errorf("%s: chain broken at entry %d", path, res.BrokenAt)
			}
			cmd.Printf("%s: chain valid (%d entries)\n", path, res.Entries)
			return nil
		},
	}
}

func newAuditSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Tally recorded decisions by outcome, tool, and severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditPath(resolveCwd())
			if err != nil {
				return err
			}

			s, err := audit.Summarize(path)
			if err != nil {
				return fmt.Errorf("summarize %s: %w", path, err)
			}

			cmd.Printf("%d decisions: %d allowed, %d denied\n", s.Total, s.Allowed, s.Denied)
			printCounts(cmd, "by tool", s.ByTool)
			printCounts(cmd, "by severity", s.BySeverity)
			if s.Skipped > 0 {
				cmd.Printf("%d unparseable lines skipped\n", s.Skipped)
			}
			return nil
		},
	}
}

func printCounts(cmd *cobra.Command, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cmd.Printf("%s:\n", label)
	for _, k := range keys {
		cmd.Printf("  %-12s %d\n", k, counts[k])
	}
}
