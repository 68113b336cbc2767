// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

// Package kill converts qualifying denials into session termination. The
// triggering decision's audit entry must already be on disk before Trigger
// runs; callers own that ordering.
package kill

import (
	"fmt"
	"io"
	"os"

	"github.com/guardianhq/guardian/internal/pipeline"
	"github.com/guardianhq/guardian/internal/policy"
)

// Controller decides and performs session termination.
type Controller struct {
	Cfg    policy.KillSwitch
	Budget policy.Budget
	Stderr io.Writer
	Exit   func(int) // replaceable for tests; defaults to os.Exit
}

// New creates a controller bound to os.Exit and os.Stderr.
func New(cfg policy.KillSwitch, budgetCfg policy.Budget) *Controller {
	return &Controller{Cfg: cfg, Budget: budgetCfg, Stderr: os.Stderr, Exit: os.Exit}
}

// ShouldKill reports whether the deny qualifies for termination: any
// critical-severity deny (whatever its source) with on_blocklist_critical,
// or a budget breach
// with on_budget_breach and action_on_breach "kill".
func (c *Controller) ShouldKill(res *pipeline.Result) bool {
	if !c.Cfg.Enabled || res.Allowed {
		return false
	}
	if c.Cfg.OnBlocklistCritical && res.Severity == policy.SeverityCritical {
		return true
	}
	if c.Cfg.OnBudgetBreach && res.Source == pipeline.SourceBudget && c.Budget.ActionOnBreach == "kill" {
		return true
	}
	return false
}

// Trigger writes a single diagnostic line and terminates the process with
// the configured exit code.
func (c *Controller) Trigger(res *pipeline.Result) {
	code := c.Cfg.ExitCode
	if code == 0 {
		code = policy.DefaultKillExitCode
	}
	fmt.Fprintf(c.Stderr, "guardian: kill switch triggered (%s, severity %s): %s\n", res.Source, res.Severity, res.Reason)
	c.Exit(code)
}
