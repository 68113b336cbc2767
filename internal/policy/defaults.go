// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

package policy

// Default returns the built-in policy bundle. `guardian init` serializes
// this document to .guardian/policy.json; it is also the reference the
// end-to-end scenarios run against.
func Default() *Policy {
	limitUnset := (*float64)(nil)
	return &Policy{
		Version: CurrentVersion,
		Mode:    ModeEnforce,
		Blocklist: Blocklist{
			Commands: []CommandPattern{
				// Destructive operations.
				{Pattern: `\brm\s+-[a-zA-Z]*[rf]`, Severity: SeverityCritical, Reason: "Forced file deletion"},
				{Pattern: `\bmkfs(\.[a-z0-9]+)?\b`, Severity: SeverityCritical, Reason: "Filesystem format"},
				{Pattern: `\bdd\s+[^|;&]*of=/dev/`, Severity: SeverityCritical, Reason: "Raw device write"},
				{Pattern: `:\(\)\s*\{\s*:\|:&\s*\}\s*;\s*:`, Severity: SeverityCritical, Reason: "Fork bomb"},
				{Pattern: `\bshred\b`, Severity: SeverityHigh, Reason: "Irrecoverable file shredding"},
				{Pattern: `>\s*/dev/sd[a-z]`, Severity: SeverityCritical, Reason: "Raw disk overwrite"},
				{Pattern: `\bgit\s+push\s+[^|;&]*(--force\b|-f\b)`, Severity: SeverityHigh, Reason: "Force push rewrites remote history"},
				{Pattern: `\bgit\s+reset\s+[^|;&]*--hard`, Severity: SeverityHigh, Reason: "Hard reset discards work"},
				// Privilege escalation.
				{Pattern: `\bsudo\s`, Severity: SeverityHigh, Reason: "Privilege escalation"},
				{Pattern: `\bchmod\s+(-[a-zA-Z]+\s+)*0?777\b`, Severity: SeverityHigh, Reason: "World-writable permissions"},
				{Pattern: `\bchown\s+(-[a-zA-Z]+\s+)*root\b`, Severity: SeverityHigh, Reason: "Ownership transfer to root"},
				// Supply chain.
				{Pattern: `\b(curl|wget)\b[^|;&]*\|\s*(ba|z|da)?sh\b`, Severity: SeverityCritical, Reason: "Piping remote script to shell"},
				{Pattern: `\bnpm\s+publish\b`, Severity: SeverityHigh, Reason: "Package publish from agent session"},
				{Pattern: `\bpip\s+install\b[^|;&]*--index-url`, Severity: SeverityHigh, Reason: "Install from alternate package index"},
				// History and audit tampering.
				{Pattern: `\bhistory\s+-c\b`, Severity: SeverityMedium, Reason: "Shell history wipe"},
				{Pattern: `\.guardian/(policy\.json|audit[^\s]*)`, Severity: SeverityCritical, Reason: "Tampering with Guardian state"},
			},
			FilePatterns: []FilePattern{
				{Pattern: `(^|/)\.env(\.[A-Za-z0-9._-]+)?$`, Operations: []Operation{OpRead, OpGitAdd}, Severity: SeverityHigh, Reason: "Environment file may contain secrets"},
				{Pattern: `(^|/)id_(rsa|dsa|ecdsa|ed25519)$`, Operations: []Operation{OpRead, OpWrite, OpGitAdd}, Severity: SeverityCritical, Reason: "SSH private key"},
				{Pattern: `(^|/)\.ssh(/|$)`, Operations: []Operation{OpWrite, OpDelete}, Severity: SeverityHigh, Reason: "SSH configuration"},
				{Pattern: `(^|/)\.aws/credentials$`, Operations: []Operation{OpRead, OpGitAdd}, Severity: SeverityCritical, Reason: "AWS credential store"},
				{Pattern: `(^|/)\.(kube|docker)/config(\.json)?$`, Operations: []Operation{OpRead}, Severity: SeverityHigh, Reason: "Cluster or registry credentials"},
				{Pattern: `^/etc/(passwd|shadow|sudoers)`, Operations: []Operation{OpRead, OpWrite}, Severity: SeverityHigh, Reason: "System account database"},
				{Pattern: `\.(pem|key|p12|pfx)$`, Operations: []Operation{OpRead, OpGitAdd}, Severity: SeverityHigh, Reason: "Key material"},
			},
			SecretPatterns: []SecretPattern{
				{Pattern: `AKIA[0-9A-Z]{16}`, Severity: SeverityCritical, Reason: "AWS access key id"},
				{Pattern: `-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`, Severity: SeverityCritical, Reason: "Private key material"},
				{Pattern: `gh[pousr]_[A-Za-z0-9]{36,}`, Severity: SeverityCritical, Reason: "GitHub token"},
				{Pattern: `xox[baprs]-[A-Za-z0-9-]{10,}`, Severity: SeverityHigh, Reason: "Slack token"},
				{Pattern: `sk-[A-Za-z0-9_-]{20,}`, Severity: SeverityHigh, Reason: "API secret key"},
				{Pattern: `(api[_-]?key|secret|passwd|password)\s*[:=]\s*['"][^'"]{8,}['"]`, Flags: "i", Severity: SeverityMedium, Reason: "Hardcoded credential assignment"},
			},
			Network: []NetworkPattern{
				{Pattern: `169\.254\.169\.254`, Severity: SeverityCritical, Reason: "Cloud metadata endpoint"},
				{Pattern: `metadata\.google\.internal`, Severity: SeverityCritical, Reason: "Cloud metadata endpoint"},
				{Pattern: `https?://(www\.)?(pastebin\.com|transfer\.sh|termbin\.com)`, Severity: SeverityHigh, Reason: "Anonymous paste or file drop"},
				{Pattern: `https?://[^/\s]*\.(ngrok|serveo)\.(io|net|app)`, Severity: SeverityHigh, Reason: "Tunnel endpoint"},
				{Pattern: `\bnc\s+(-[a-zA-Z]+\s+)*[0-9]{1,3}(\.[0-9]{1,3}){3}\s+[0-9]+`, Severity: SeverityHigh, Reason: "Raw socket to external host"},
			},
		},
		Allowlist: Allowlist{
			Commands: []string{
				"git status",
				"git diff",
				"git log --oneline -20",
				"ls -la",
			},
			Paths:   []string{},
			Domains: []string{"docs.anthropic.com", "pkg.go.dev", "github.com"},
		},
		Scope: Scope{
			AllowedPaths:    []string{"{cwd}", "/tmp"},
			DeniedPaths:     []string{"/etc", "/usr", "/bin", "/sbin", "/boot", "/var"},
			AllowOutsideCwd: false,
		},
		Budget: Budget{
			Enabled:              true,
			MaxActionsPerSession: 0, // unlimited
			SessionLimitUSD:      limitUnset,
			CostFile:             ".guardian/cost.json",
			ActionOnBreach:       "deny",
		},
		Audit: Audit{
			Enabled:          true,
			Path:             DefaultAuditPath,
			MaxFileSizeMB:    DefaultMaxFileSize,
			Rotation:         "daily",
			Integrity:        "sha256-chain",
			IncludeToolInput: true,
		},
		KillSwitch: KillSwitch{
			Enabled:             true,
			OnBlocklistCritical: true,
			OnBudgetBreach:      false,
			ExitCode:            DefaultKillExitCode,
		},
	}
}
