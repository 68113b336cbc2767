// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrPolicyMissing means no policy file exists at the expected path.
	ErrPolicyMissing = errors.New("policy missing")
	// ErrPolicyInvalid means the policy file failed to parse or validate.
	ErrPolicyInvalid = errors.New("policy invalid")
	// ErrPatternInvalid means a blocklist regex failed to compile.
	ErrPatternInvalid = errors.New("pattern invalid")
)

// requiredKeys must be present at the top level of the policy document.
// budget is permitted to default.
var requiredKeys = []string{
	"version", "mode", "blocklist", "allowlist", "scope", "audit", "kill_switch",
}

// Path returns the policy file location for a working directory.
func Path(cwd string) string {
	return filepath.Join(cwd, ".guardian", "policy.json")
}

// cache holds the last loaded policy keyed by path and modification time.
// Guardian is nominally one process per request, but a reusing host gets
// the parse for free on unchanged files.
var cache struct {
	mu       sync.Mutex
	path     string
	mtime    time.Time
	compiled *Compiled
}

// Load reads, validates, and compiles the policy for the working directory.
// The result is cached until the file's modification time changes; a
// disappeared or unstattable file forces a reload.
func Load(cwd string) (*Compiled, error) {
	path := Path(cwd)

	fi, statErr := os.Stat(path)

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if statErr == nil && cache.compiled != nil && cache.path == path && fi.ModTime().Equal(cache.mtime) {
		return cache.compiled, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyMissing, path)
		}
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}

	pol, err := Parse(data)
	if err != nil {
		return nil, err
	}

	compiled, err := Compile(pol, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	cache.path = path
	cache.compiled = compiled
	if statErr == nil {
		cache.mtime = fi.ModTime()
	} else {
		cache.mtime = time.Time{}
	}
	return compiled, nil
}

// ResetCache drops the cached policy. Tests use this between cases.
func ResetCache() {
	cache.mu.Lock()
	cache.path = ""
	cache.mtime = time.Time{}
	cache.compiled = nil
	cache.mu.Unlock()
}

// Parse validates the raw policy document and applies defaults.
func Parse(data []byte) (*Policy, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyInvalid, err)
	}
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing required key %q", ErrPolicyInvalid, key)
		}
	}

	var pol Policy
	if err := json.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyInvalid, err)
	}

	if pol.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (want %d)", ErrPolicyInvalid, pol.Version, CurrentVersion)
	}
	if !pol.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrPolicyInvalid, pol.Mode)
	}

	applyDefaults(&pol)
	return &pol, nil
}

func applyDefaults(pol *Policy) {
	if pol.Audit.Path == "" {
		pol.Audit.Path = DefaultAuditPath
	}
	if pol.Audit.MaxFileSizeMB <= 0 {
		pol.Audit.MaxFileSizeMB = DefaultMaxFileSize
	}
	if pol.Audit.Integrity == "" {
		pol.Audit.Integrity = "sha256-chain"
	}
	if pol.KillSwitch.ExitCode == 0 {
		pol.KillSwitch.ExitCode = DefaultKillExitCode
	}
	if pol.Budget.ActionOnBreach == "" {
		pol.Budget.ActionOnBreach = "deny"
	}
}
