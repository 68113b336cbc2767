// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"net/url"
	"strings"
)

// allowlist returns an allow result when the request matches an allowlist
// entry (exact command, path prefix of the resolved file_path, or exact
// WebFetch host), masking every later gate. Nil means no match.
func (e *Engine) allowlist(req *Request) *Result {
	al := e.Policy.Policy.Allowlist

	if req.Tool == ToolBash {
		if cmd, ok := req.str("command"); ok {
			for _, entry := range al.Commands {
				if cmd == entry {
					return &Result{
						Allowed: true,
						Reason:  fmt.Sprintf("command %q is allowlisted", cmd),
						Source:  SourceAllowlist,
					}
				}
			}
		}
	}

	if fp, ok := req.str("file_path"); ok {
		resolved := resolvePath(req.Cwd, fp)
		for _, prefix := range al.Paths {
			if prefix != "" && strings.HasPrefix(resolved, prefix) {
				return &Result{
					Allowed: true,
					Reason:  fmt.Sprintf("path %q is allowlisted", prefix),
					Source:  SourceAllowlist,
				}
			}
		}
	}

	if req.Tool == ToolWebFetch {
		if raw, ok := req.str("url"); ok {
			if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
				for _, domain := range al.Domains {
					if u.Hostname() == domain {
						return &Result{
							Allowed: true,
							Reason:  fmt.Sprintf("domain %q is allowlisted", domain),
							Source:  SourceAllowlist,
						}
					}
				}
			}
		}
	}

	return nil
}
