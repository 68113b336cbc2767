// Copyright 2026 The Guardian Authors
// SPDX-License-Identifier: Apache-2.0

// Package rules evaluates operator-supplied Starlark rule scripts. A script
// defines check(tool, input) and returns None for no opinion, or a dict
// with "reason" and optionally "severity" to deny the request.
package rules

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// Verdict is a deny produced by a rule script.
type Verdict struct {
	Reason   string
	Severity string // defaults to "high" when the script omits it
}

// Script is a loaded rule file with its check function resolved.
type Script struct {
	path  string
	check starlark.Callable
}

// Load parses and executes the script file, resolving its check function.
// Parse errors and a missing or non-callable check are load failures.
func Load(path string) (*Script, error) {
	thread := &starlark.Thread{Name: "guardian-rules"}
	globals, err := starlark.ExecFile(thread, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("rule script %s: %w", path, err)
	}
	fn, ok := globals["check"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("rule script %s: no check(tool, input) function", path)
	}
	return &Script{path: path, check: fn}, nil
}

// Path returns the script file path.
func (s *Script) Path() string {
	return s.path
}

// Check invokes check(tool, input). A nil Verdict means no opinion.
func (s *Script) Check(tool string, input map[string]any) (*Verdict, error) {
	in, err := toStarlark(input)
	if err != nil {
		return nil, fmt.Errorf("rule script %s: convert input: %w", s.path, err)
	}

	thread := &starlark.Thread{Name: "guardian-rules"}
	v, err := starlark.Call(thread, s.check, starlark.Tuple{starlark.String(tool), in}, nil)
	if err != nil {
		return nil, fmt.Errorf("rule script %s: %w", s.path, err)
	}

	if v == starlark.None {
		return nil, nil
	}
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("rule script %s: check returned %s, want None or dict", s.path, v.Type())
	}

	verdict := &Verdict{Severity: "high"}
	if reason, ok := dictString(dict, "reason"); ok {
		verdict.Reason = reason
	}
	if sev, ok := dictString(dict, "severity"); ok {
		verdict.Severity = sev
	}
	if verdict.Reason == "" {
		verdict.Reason = "denied by custom rule"
	}
	return verdict, nil
}

func dictString(d *starlark.Dict, key string) (string, bool) {
	v, found, err := d.Get(starlark.String(key))
	if err != nil || !found {
		return "", false
	}
	s, ok := starlark.AsString(v)
	return s, ok
}

// toStarlark converts a decoded JSON value to its Starlark equivalent.
func toStarlark(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(x), nil
	case string:
		return starlark.String(x), nil
	case float64:
		if x == float64(int64(x)) {
			return starlark.MakeInt64(int64(x)), nil
		}
		return starlark.Float(x), nil
	case []any:
		elems := make([]starlark.Value, 0, len(x))
		for _, e := range x {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, sv)
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		d := starlark.NewDict(len(x))
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sv, err := toStarlark(x[k])
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
