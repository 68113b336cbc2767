package main

import (
	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/config"
	"github.com/guardianhq/guardian/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve Guardian checks as MCP tools over stdio",
		Long: `mcp runs a Model Context Protocol server exposing guardian_check,
guardian_audit_verify, and guardian_policy_summary. The kill switch is
disabled while serving; a decision that would have terminated the session
is flagged in the tool result instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return mcpserver.New(cfg.MCP.ServerName, version, resolveCwd()).Serve()
		},
	}
}
