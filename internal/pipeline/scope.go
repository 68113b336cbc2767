// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/guardianhq/guardian/internal/policy"
)

// scope checks the resolved file path against the denied and allowed path
// sets. Requests without a file_path skip the gate.
func (e *Engine) scope(req *Request) *Result {
	fp, ok := req.str("file_path")
	if !ok {
		return nil
	}

	sc := e.Policy.Policy.Scope
	resolved := resolvePath(req.Cwd, fp)

	for _, denied := range sc.DeniedPaths {
		if denied != "" && strings.HasPrefix(resolved, denied) {
			return &Result{
				Allowed:  false,
				Reason:   fmt.Sprintf("path %s is under denied path %s", resolved, denied),
				Severity: policy.SeverityHigh,
				Source:   SourceScope,
			}
		}
	}

	if sc.AllowOutsideCwd {
		return nil
	}

	for _, tmpl := range sc.AllowedPaths {
		expanded := strings.ReplaceAll(tmpl, "{cwd}", req.Cwd)
		if expanded != "" && strings.HasPrefix(resolved, expanded) {
			return nil
		}
	}

	return &Result{
		Allowed:  false,
		Reason:   fmt.Sprintf("path %s is outside the permitted scope", resolved),
		Severity: policy.SeverityHigh,
		Source:   SourceScope,
	}
}
