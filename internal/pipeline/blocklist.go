// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sort"
	"strings"

	"github.com/guardianhq/guardian/internal/policy"
	"github.com/guardianhq/guardian/internal/shell"
)

// blocklist dispatches the request to the per-tool pattern checks. The
// first matching pattern wins.
func (e *Engine) blocklist(req *Request) *Result {
	switch {
	case req.Tool == ToolBash:
		return e.blockBash(req)
	case req.Tool == ToolWrite:
		return e.blockWrite(req, "content")
	case req.Tool == ToolEdit:
		return e.blockWrite(req, "new_string")
	case req.Tool == ToolRead:
		return e.blockRead(req)
	case req.Tool == ToolWebFetch:
		return e.blockFetch(req)
	case strings.HasPrefix(req.Tool, mcpPrefix):
		return e.blockMCP(req)
	}
	return nil
}

// blockBash matches the stripped full command, then each stripped segment,
// then each substitution body unstripped, against the command patterns;
// finally the raw command against the network patterns. Quoted regions are
// stripped first so literal strings handed to echo or grep cannot fire a
// pattern; segment and substitution views catch chained and $()-wrapped
// evasions.
func (e *Engine) blockBash(req *Request) *Result {
	cmd, ok := req.str("command")
	if !ok {
		return nil
	}

	stripped := shell.StripQuotes(cmd)
	if res := e.matchCommand(stripped); res != nil {
		return res
	}

	for _, seg := range shell.Segments(cmd) {
		if res := e.matchCommand(shell.StripQuotes(seg)); res != nil {
			return res
		}
	}

	for _, sub := range shell.Substitutions(cmd) {
		if res := e.matchCommand(sub); res != nil {
			return res
		}
	}

	return e.matchNetwork(cmd)
}

func (e *Engine) blockWrite(req *Request, contentKey string) *Result {
	if fp, ok := req.str("file_path"); ok {
		if res := e.matchFile(fp, policy.OpWrite); res != nil {
			return res
		}
	}
	if content, ok := req.str(contentKey); ok {
		if res := e.matchSecret(content); res != nil {
			return res
		}
	}
	return nil
}

func (e *Engine) blockRead(req *Request) *Result {
	fp, ok := req.str("file_path")
	if !ok {
		return nil
	}
	return e.matchFile(fp, policy.OpRead)
}

func (e *Engine) blockFetch(req *Request) *Result {
	raw, ok := req.str("url")
	if !ok {
		return nil
	}
	return e.matchNetwork(raw)
}

// blockMCP checks every string-valued parameter of an extension tool
// against the command, network, and secret patterns, in that order.
// Parameters are visited in sorted key order so the first match is
// deterministic.
func (e *Engine) blockMCP(req *Request) *Result {
	keys := make([]string, 0, len(req.Input))
	for k := range req.Input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, ok := req.Input[k].(string)
		if !ok {
			continue
		}
		if res := e.matchCommand(s); res != nil {
			return res
		}
		if res := e.matchNetwork(s); res != nil {
			return res
		}
		if res := e.matchSecret(s); res != nil {
			return res
		}
	}
	return nil
}

func (e *Engine) matchCommand(s string) *Result {
	for i := range e.Policy.Commands {
		p := &e.Policy.Commands[i]
		if p.Re.MatchString(s) {
			return denyResult(p.Reason, p.Severity, p.Pattern)
		}
	}
	return nil
}

func (e *Engine) matchFile(path string, op policy.Operation) *Result {
	for i := range e.Policy.Files {
		p := &e.Policy.Files[i]
		if p.Re.MatchString(path) && p.Applies(op) {
			return denyResult(p.Reason, p.Severity, p.Pattern)
		}
	}
	return nil
}

func (e *Engine) matchSecret(content string) *Result {
	for i := range e.Policy.Secrets {
		p := &e.Policy.Secrets[i]
		if p.Re.MatchString(content) {
			return denyResult(p.Reason, p.Severity, p.Pattern)
		}
	}
	return nil
}

func (e *Engine) matchNetwork(s string) *Result {
	for i := range e.Policy.Network {
		p := &e.Policy.Network[i]
		if p.Re.MatchString(s) {
			return denyResult(p.Reason, p.Severity, p.Pattern)
		}
	}
	return nil
}

func denyResult(reason string, sev policy.Severity, pattern string) *Result {
	return &Result{
		Allowed:  false,
		Reason:   reason,
		Severity: sev,
		Pattern:  pattern,
		Source:   SourceBlocklist,
	}
}
