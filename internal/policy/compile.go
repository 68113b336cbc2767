// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/guardianhq/guardian/internal/rules"
)

// CompiledCommand pairs a command pattern with its compiled regex.
type CompiledCommand struct {
	CommandPattern
	Re *regexp.Regexp
}

// CompiledFile pairs a file pattern with its compiled regex.
type CompiledFile struct {
	FilePattern
	Re *regexp.Regexp
}

// CompiledSecret pairs a secret pattern with its compiled regex.
type CompiledSecret struct {
	SecretPattern
	Re *regexp.Regexp
}

// CompiledNetwork pairs a network pattern with its compiled regex.
type CompiledNetwork struct {
	NetworkPattern
	Re *regexp.Regexp
}

// Compiled is a validated policy with every blocklist regex compiled and
// the optional custom rule script loaded. It lives as long as the policy
// cache entry.
type Compiled struct {
	Policy *Policy

	Commands []CompiledCommand
	Files    []CompiledFile
	Secrets  []CompiledSecret
	Network  []CompiledNetwork

	Custom *rules.Script
}

// Compile builds the compiled view of a policy. Any uncompilable pattern is
// a load failure; Guardian never silently skips one. baseDir anchors the
// relative custom_rules path (the policy file's directory).
func Compile(pol *Policy, baseDir string) (*Compiled, error) {
	c := &Compiled{Policy: pol}

	for _, p := range pol.Blocklist.Commands {
		re, err := compileRegexp(p.Pattern, p.Flags, "commands")
		if err != nil {
			return nil, err
		}
		c.Commands = append(c.Commands, CompiledCommand{CommandPattern: p, Re: re})
	}
	for _, p := range pol.Blocklist.FilePatterns {
		re, err := compileRegexp(p.Pattern, p.Flags, "file_patterns")
		if err != nil {
			return nil, err
		}
		c.Files = append(c.Files, CompiledFile{FilePattern: p, Re: re})
	}
	for _, p := range pol.Blocklist.SecretPatterns {
		re, err := compileRegexp(p.Pattern, p.Flags, "secret_patterns")
		if err != nil {
			return nil, err
		}
		c.Secrets = append(c.Secrets, CompiledSecret{SecretPattern: p, Re: re})
	}
	for _, p := range pol.Blocklist.Network {
		re, err := compileRegexp(p.Pattern, p.Flags, "network")
		if err != nil {
			return nil, err
		}
		c.Network = append(c.Network, CompiledNetwork{NetworkPattern: p, Re: re})
	}

	if pol.CustomRules != "" {
		path := pol.CustomRules
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		script, err := rules.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: custom_rules: %v", ErrPolicyInvalid, err)
		}
		c.Custom = script
	}

	return c, nil
}

// compileRegexp compiles one pattern, honoring the "i" flag for
// case-insensitive matching.
func compileRegexp(pattern, flags, category string) (*regexp.Regexp, error) {
	src := pattern
	if strings.Contains(flags, "i") {
		src = "(?i)" + src
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q: %v", ErrPatternInvalid, category, pattern, err)
	}
	return re, nil
}
