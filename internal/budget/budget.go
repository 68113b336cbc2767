package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/guardianhq/guardian/internal/policy"
)

// Tracker counts actions for the lifetime of the process. The count resets
// on process start; Guardian is nominally one process per tool call, so a
// reusing host carries the count across requests.
type Tracker struct {
	mu    sync.Mutex
	count int
}

// Session is the process-wide tracker used by the decision pipeline.
var Session = &Tracker{}

// Increment bumps the action count and returns the new value.
func (t *Tracker) Increment() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	return t.count
}

// Count returns the current action count.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Reset zeroes the counter. Tests use this between cases.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.count = 0
	t.mu.Unlock()
}

// State is the outcome of a budget check.
type State struct {
	ActionCount    int
	SessionCostUSD *float64
	Exceeded       bool
	Reason         string
}

// costSnapshot is the JSON document the agent runtime writes. Guardian
// only ever reads it.
type costSnapshot struct {
	SessionID    string  `json:"session_id"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	LastUpdated  string  `json:"last_updated"`
}

// Check evaluates the budget config against the post-increment action
// count and the cost snapshot file. A missing, unreadable, or malformed
// cost file is tolerated silently: no breach, no cost reported.
func Check(cfg policy.Budget, count int, cwd string) State {
	st := State{ActionCount: count}
	if !cfg.Enabled {
		return st
	}

	if cfg.MaxActionsPerSession > 0 && count > cfg.MaxActionsPerSession {
		st.Exceeded = true
		st.Reason = fmt.Sprintf("action count %d exceeds session limit %d", count, cfg.MaxActionsPerSession)
		return st
	}

	if cfg.SessionLimitUSD != nil && cfg.CostFile != "" {
		if cost, ok := ReadCost(cfg.CostFile, cwd); ok {
			st.SessionCostUSD = &cost
			if cost >= *cfg.SessionLimitUSD {
				st.Exceeded = true
				st.Reason = fmt.Sprintf("session cost $%.2f reached limit $%.2f", cost, *cfg.SessionLimitUSD)
			}
		}
	}

	return st
}

// ReadCost reads total_cost_usd from the cost snapshot file. The path is
// resolved against cwd when relative. ok is false for any read or parse
// problem.
func ReadCost(path, cwd string) (cost float64, ok bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var snap costSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, false
	}
	return snap.TotalCostUSD, true
}
