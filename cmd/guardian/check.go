package main

import (
	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/policy"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the policy and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd := resolveCwd()
			pol, err := policy.Load(cwd)
			if err != nil {
				return err
			}
			p := pol.Policy

			cmd.Printf("policy:  %s\n", policy.Path(cwd))
			cmd.Printf("mode:    %s\n", p.Mode)
			cmd.Printf("blocklist: %d command, %d file, %d secret, %d network patterns\n",
				len(p.Blocklist.Commands), len(p.Blocklist.FilePatterns),
				len(p.Blocklist.SecretPatterns), len(p.Blocklist.Network))
			cmd.Printf("allowlist: %d commands, %d paths, %d domains\n",
				len(p.Allowlist.Commands), len(p.Allowlist.Paths), len(p.Allowlist.Domains))
			cmd.Printf("scope:   %d allowed, %d denied paths, outside cwd: %v\n",
				len(p.Scope.AllowedPaths), len(p.Scope.DeniedPaths), p.Scope.AllowOutsideCwd)

			if p.Budget.Enabled {
				cmd.Printf("budget:  max actions %d", p.Budget.MaxActionsPerSession)
				if p.Budget.SessionLimitUSD != nil {
					cmd.Printf(", limit $%.2f", *p.Budget.SessionLimitUSD)
				}
				cmd.Printf(", on breach: %s\n", p.Budget.ActionOnBreach)
			} else {
				cmd.Println("budget:  disabled")
			}

			if p.Audit.Enabled {
				cmd.Printf("audit:   %s (%s, rotate %s at %d MB)\n",
					p.Audit.Path, p.Audit.Integrity, p.Audit.Rotation, p.Audit.MaxFileSizeMB)
			} else {
				cmd.Println("audit:   disabled")
			}

			if p.KillSwitch.Enabled {
				cmd.Printf("kill:    exit %d, on critical: %v, on budget breach: %v\n",
					p.KillSwitch.ExitCode, p.KillSwitch.OnBlocklistCritical, p.KillSwitch.OnBudgetBreach)
			} else {
				cmd.Println("kill:    disabled")
			}

			if p.CustomRules != "" {
				cmd.Printf("rules:   %s\n", p.CustomRules)
			}
			return nil
		},
	}
}
