package main

import (
	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/budget"
	"github.com/guardianhq/guardian/internal/policy"
)

func newBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Print configured budget limits and the current cost reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd := resolveCwd()
			pol, err := policy.Load(cwd)
			if err != nil {
				return err
			}
			b := pol.Policy.Budget

			if !b.Enabled {
				cmd.Println("budget disabled")
				return nil
			}

			if b.MaxActionsPerSession > 0 {
				cmd.Printf("max actions per session: %d\n", b.MaxActionsPerSession)
			} else {
				cmd.Println("max actions per session: unlimited")
			}

			if b.SessionLimitUSD != nil {
				cmd.Printf("session limit: $%.2f\n", *b.SessionLimitUSD)
				if cost, ok := budget.ReadCost(b.CostFile, cwd); ok {
					cmd.Printf("current cost:  $%.2f (remaining $%.2f)\n", cost, *b.SessionLimitUSD-cost)
				} else {
					cmd.Printf("current cost:  unavailable (%s)\n", b.CostFile)
				}
			} else {
				cmd.Println("session limit: none")
			}

			cmd.Printf("on breach: %s\n", b.ActionOnBreach)
			return nil
		},
	}
}
