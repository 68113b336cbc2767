// Package mcpserver exposes Guardian's checks as MCP tools over stdio so
// MCP-capable agent runtimes can consult the gatekeeper directly. The
// server is long-lived, so the kill switch is disabled; a decision that
// would have killed the session is reported in the tool result instead.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guardianhq/guardian/internal/audit"
	"github.com/guardianhq/guardian/internal/hook"
	"github.com/guardianhq/guardian/internal/kill"
	"github.com/guardianhq/guardian/internal/pipeline"
	"github.com/guardianhq/guardian/internal/policy"
)

// Server wraps the MCP stdio server with Guardian's working directory.
type Server struct {
	name    string
	version string
	cwd     string
}

// New creates a server for the given working directory.
func New(name, version, cwd string) *Server {
	if name == "" {
		name = "guardian"
	}
	return &Server{name: name, version: version, cwd: cwd}
}

// checkResult is the JSON payload guardian_check returns.
type checkResult struct {
	PermissionDecision string `json:"permissionDecision"`
	Reason             string `json:"reason,omitempty"`
	Source             string `json:"source,omitempty"`
	Severity           string `json:"severity,omitempty"`
	WouldKill          bool   `json:"wouldKill,omitempty"`
}

// Serve registers the tools and blocks serving stdio.
func (s *Server) Serve() error {
	srv := server.NewMCPServer(s.name, s.version)

	srv.AddTool(mcp.NewTool("guardian_check",
		mcp.WithDescription("Evaluate a prospective tool call against the Guardian policy and record the decision in the audit log."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Name of the tool about to be invoked, e.g. Bash, Read, WebFetch.")),
		mcp.WithObject("tool_input", mcp.Description("Tool parameters, e.g. {\"command\": \"rm -rf /\"}.")),
		mcp.WithString("session_id", mcp.Description("Session identifier for audit correlation.")),
	), s.handleCheck)

	srv.AddTool(mcp.NewTool("guardian_audit_verify",
		mcp.WithDescription("Verify the integrity of the Guardian audit chain."),
	), s.handleVerify)

	srv.AddTool(mcp.NewTool("guardian_policy_summary",
		mcp.WithDescription("Summarize the loaded Guardian policy: mode, pattern counts, scope, budget."),
	), s.handleSummary)

	return server.ServeStdio(srv)
}

func (s *Server) handleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName, err := req.RequireString("tool_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	toolInput, _ := args["tool_input"].(map[string]any)
	sessionID, _ := args["session_id"].(string)

	in := &hook.Input{
		ToolName:  toolName,
		ToolInput: toolInput,
		SessionID: sessionID,
		Cwd:       s.cwd,
	}

	runner := &hook.Runner{Stderr: os.Stderr, Cwd: s.cwd, DisableKill: true}
	res, _ := runner.Decide(in)

	out := checkResult{PermissionDecision: "allow"}
	if !res.Allowed {
		out.PermissionDecision = "deny"
		out.Reason = hook.ReasonPrefix + res.Reason
	}
	out.Source = string(res.Source)
	out.Severity = string(res.Severity)
	out.WouldKill = s.wouldKill(res)

	return jsonResult(out)
}

// wouldKill reports whether the hook deployment would have terminated the
// session for this decision.
func (s *Server) wouldKill(res *pipeline.Result) bool {
	pol, err := policy.Load(s.cwd)
	if err != nil {
		return false
	}
	kc := kill.New(pol.Policy.KillSwitch, pol.Policy.Budget)
	return kc.ShouldKill(res)
}

func (s *Server) handleVerify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pol, err := policy.Load(s.cwd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w := audit.NewWriter(s.cwd, pol.Policy.Audit)
	res, err := audit.Verify(w.Path())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("verify: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"valid":    res.Valid,
		"entries":  res.Entries,
		"brokenAt": res.BrokenAt,
	})
}

func (s *Server) handleSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pol, err := policy.Load(s.cwd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := pol.Policy
	return jsonResult(map[string]any{
		"mode": string(p.Mode),
		"blocklist": map[string]int{
			"commands":        len(p.Blocklist.Commands),
			"file_patterns":   len(p.Blocklist.FilePatterns),
			"secret_patterns": len(p.Blocklist.SecretPatterns),
			"network":         len(p.Blocklist.Network),
		},
		"allowlist": map[string]int{
			"commands": len(p.Allowlist.Commands),
			"paths":    len(p.Allowlist.Paths),
			"domains":  len(p.Allowlist.Domains),
		},
		"scope": map[string]any{
			"allowed_paths":     p.Scope.AllowedPaths,
			"denied_paths":      p.Scope.DeniedPaths,
			"allow_outside_cwd": p.Scope.AllowOutsideCwd,
		},
		"budget_enabled":      p.Budget.Enabled,
		"audit_enabled":       p.Audit.Enabled,
		"kill_switch_enabled": p.KillSwitch.Enabled,
		"custom_rules":        p.CustomRules != "",
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
