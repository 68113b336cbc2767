// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline applies the layered decision order to one tool request:
// allowlist, scope, blocklist, custom rules, budget. The first gate with an
// opinion wins; ordering is normative.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/guardianhq/guardian/internal/budget"
	"github.com/guardianhq/guardian/internal/policy"
)

// Source identifies which gate produced a result.
type Source string

const (
	SourceAllowlist Source = "allowlist"
	SourceScope     Source = "scope"
	SourceBlocklist Source = "blocklist"
	SourceCustom    Source = "custom"
	SourceBudget    Source = "budget"
)

// Tool names with dedicated dispatch. Extension tools carry the mcp__
// prefix; anything else passes the blocklist unchecked.
const (
	ToolBash     = "Bash"
	ToolRead     = "Read"
	ToolWrite    = "Write"
	ToolEdit     = "Edit"
	ToolWebFetch = "WebFetch"
	mcpPrefix    = "mcp__"
)

// Request is one prospective tool call.
type Request struct {
	Tool      string
	Input     map[string]any
	SessionID string
	Cwd       string
}

// str returns the named tool parameter when it is a string.
func (r *Request) str(key string) (string, bool) {
	v, ok := r.Input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Result is the pipeline's decision for one request.
type Result struct {
	Allowed  bool
	Reason   string
	Severity policy.Severity
	Pattern  string // matched pattern text, if any
	Source   Source
	Budget   *budget.State // set when the budget gate ran
}

// Engine evaluates requests against one compiled policy.
type Engine struct {
	Policy  *policy.Compiled
	Tracker *budget.Tracker
	Stderr  io.Writer // custom-rule runtime error notes
}

// New creates an engine bound to the process-wide action tracker.
func New(pol *policy.Compiled) *Engine {
	return &Engine{Policy: pol, Tracker: budget.Session, Stderr: os.Stderr}
}

// Evaluate runs the pipeline. In audit mode any deny from the scope,
// blocklist, custom, or budget gate is coerced to allowed while keeping
// its source, severity, reason, and pattern for the audit record. Mode off
// returns allow without evaluating anything.
func (e *Engine) Evaluate(req *Request) *Result {
	pol := e.Policy.Policy
	if pol.Mode == policy.ModeOff {
		return &Result{Allowed: true}
	}

	if res := e.allowlist(req); res != nil {
		return res
	}

	violation := e.scope(req)
	if violation == nil {
		violation = e.blocklist(req)
	}
	if violation == nil {
		violation = e.custom(req)
	}
	var budgetState *budget.State
	if violation == nil {
		budgetState, violation = e.budgetGate(req)
	}

	if violation == nil {
		return &Result{Allowed: true, Budget: budgetState}
	}
	if pol.Mode == policy.ModeAudit {
		violation.Allowed = true
	}
	return violation
}

// custom runs the optional Starlark rule script. Runtime errors are noted
// on stderr and treated as no opinion; only load-time errors are fatal.
func (e *Engine) custom(req *Request) *Result {
	script := e.Policy.Custom
	if script == nil {
		return nil
	}
	verdict, err := script.Check(req.Tool, req.Input)
	if err != nil {
		fmt.Fprintf(e.Stderr, "guardian: custom rules: %v\n", err)
		return nil
	}
	if verdict == nil {
		return nil
	}
	sev := policy.Severity(verdict.Severity)
	switch sev {
	case policy.SeverityCritical, policy.SeverityHigh, policy.SeverityMedium, policy.SeverityLow:
	default:
		sev = policy.SeverityHigh
	}
	return &Result{
		Allowed:  false,
		Reason:   verdict.Reason,
		Severity: sev,
		Pattern:  script.Path(),
		Source:   SourceCustom,
	}
}

// budgetGate increments the action counter (always, even when the budget
// is disabled) and checks the configured limits.
func (e *Engine) budgetGate(req *Request) (*budget.State, *Result) {
	count := e.Tracker.Increment()
	st := budget.Check(e.Policy.Policy.Budget, count, req.Cwd)
	if !st.Exceeded {
		return &st, nil
	}
	return &st, &Result{
		Allowed:  false,
		Reason:   st.Reason,
		Severity: policy.SeverityHigh,
		Source:   SourceBudget,
		Budget:   &st,
	}
}

// resolvePath makes a tool path absolute against the working directory.
func resolvePath(cwd, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	return filepath.Clean(p)
}
