// Package hook implements the stdin/stdout pre-tool-use protocol. The
// adapter is fail-open by design: any internal fault degrades to an allow
// with a stderr note, because blocking the agent on Guardian's own faults
// is worse than degraded coverage.
package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/guardianhq/guardian/internal/audit"
	"github.com/guardianhq/guardian/internal/kill"
	"github.com/guardianhq/guardian/internal/pipeline"
	"github.com/guardianhq/guardian/internal/policy"
)

// Input is the request the agent runtime writes to stdin.
type Input struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	SessionID string         `json:"session_id,omitempty"`
	Cwd       string         `json:"cwd,omitempty"`
}

// Output is the one-line decision written to stdout.
type Output struct {
	PermissionDecision string `json:"permissionDecision"`
	Reason             string `json:"reason,omitempty"`
	SystemMessage      string `json:"systemMessage,omitempty"`
}

// ReasonPrefix marks decision reasons as Guardian's.
const ReasonPrefix = "[Guardian] "

// Runner wires the adapter's streams and process controls.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Cwd    string // fallback when the request carries no cwd

	// Exit replaces os.Exit in tests. DisableKill suppresses the kill
	// switch entirely (long-lived hosts like the MCP server).
	Exit        func(int)
	DisableKill bool
}

// NewRunner returns a runner bound to the process streams.
func NewRunner() *Runner {
	return &Runner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Exit: os.Exit}
}

// Run reads one request, emits one decision, then consults the kill
// switch. The return value is the process exit code: 0 for a decision,
// the kill-switch code after an intercepted kill.
func (r *Runner) Run() int {
	data, err := io.ReadAll(r.Stdin)
	if err != nil {
		fmt.Fprintf(r.Stderr, "guardian: read stdin: %v\n", err)
		r.writeAllow()
		return 0
	}
	if len(bytes.TrimSpace(data)) == 0 {
		r.writeAllow()
		return 0
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		// Fail-open with no audit side effect.
		r.writeAllow()
		return 0
	}

	res, pol := r.Decide(&in)

	if res.Allowed {
		r.writeAllow()
	} else {
		out := Output{PermissionDecision: "deny"}
		if res.Reason != "" {
			out.Reason = ReasonPrefix + res.Reason
		}
		r.writeOutput(out)
	}

	// Kill last: the audit entry and the decision are already out.
	if pol != nil && !res.Allowed && !r.DisableKill {
		kc := kill.New(pol.Policy.KillSwitch, pol.Policy.Budget)
		kc.Stderr = r.Stderr
		if r.Exit != nil {
			kc.Exit = r.Exit
		}
		if kc.ShouldKill(res) {
			kc.Trigger(res)
			// Reached only when Exit was intercepted.
			return pol.Policy.KillSwitch.ExitCode
		}
	}
	return 0
}

// Decide evaluates one parsed request: policy load, pipeline, audit
// append. The returned policy is nil when loading failed (the decision is
// then a fail-open allow). A failed audit append also yields a fail-open
// allow.
func (r *Runner) Decide(in *Input) (*pipeline.Result, *policy.Compiled) {
	cwd := in.Cwd
	if cwd == "" {
		cwd = r.Cwd
	}
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	sid := in.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}

	pol, err := policy.Load(cwd)
	if err != nil {
		fmt.Fprintf(r.Stderr, "guardian: %v\n", err)
		return &pipeline.Result{Allowed: true}, nil
	}

	eng := pipeline.New(pol)
	eng.Stderr = r.Stderr
	req := &pipeline.Request{Tool: in.ToolName, Input: in.ToolInput, SessionID: sid, Cwd: cwd}
	res := eng.Evaluate(req)

	if pol.Policy.Audit.Enabled {
		w := audit.Shared(cwd, pol.Policy.Audit)
		if err := w.Append(BuildEntry(pol.Policy, req, res)); err != nil {
			fmt.Fprintf(r.Stderr, "guardian: audit: %v\n", err)
			return &pipeline.Result{Allowed: true}, pol
		}
	}

	return res, pol
}

// BuildEntry maps a pipeline decision to its audit record. Tool input is
// echoed only when the policy asks for it; absent reason, severity, and
// pattern fields serialize as null.
func BuildEntry(pol *policy.Policy, req *pipeline.Request, res *pipeline.Result) *audit.Entry {
	e := &audit.Entry{
		SID:         req.SessionID,
		Tool:        req.Tool,
		Allowed:     res.Allowed,
		Reason:      audit.StrPtr(res.Reason),
		Severity:    audit.StrPtr(string(res.Severity)),
		PolicyMatch: audit.StrPtr(res.Pattern),
		Cwd:         req.Cwd,
	}
	if pol.Audit.IncludeToolInput {
		e.Input = req.Input
	}
	if res.Budget != nil && pol.Budget.Enabled {
		snap := &audit.Snapshot{ActionCount: res.Budget.ActionCount}
		if pol.Budget.SessionLimitUSD != nil && res.Budget.SessionCostUSD != nil {
			remaining := *pol.Budget.SessionLimitUSD - *res.Budget.SessionCostUSD
			snap.RemainingUSD = &remaining
		}
		e.Budget = snap
	}
	return e
}

func (r *Runner) writeAllow() {
	r.writeOutput(Output{PermissionDecision: "allow"})
}

func (r *Runner) writeOutput(out Output) {
	data, err := json.Marshal(out)
	if err != nil {
		fmt.Fprintf(r.Stderr, "guardian: marshal decision: %v\n", err)
		fmt.Fprintln(r.Stdout, `{"permissionDecision":"allow"}`)
		return
	}
	r.Stdout.Write(data)
	io.WriteString(r.Stdout, "\n")
}
