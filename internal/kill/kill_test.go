package kill

import (
	"bytes"
	"strings"
	"testing"

	"github.com/guardianhq/guardian/internal/pipeline"
	"github.com/guardianhq/guardian/internal/policy"
)

func enabledCfg() policy.KillSwitch {
	return policy.KillSwitch{
		Enabled:             true,
		OnBlocklistCritical: true,
		OnBudgetBreach:      true,
		ExitCode:            2,
	}
}

func TestShouldKill(t *testing.T) {
	tests := []struct {
		name   string
		cfg    policy.KillSwitch
		budget policy.Budget
		res    pipeline.Result
		want   bool
	}{
		{
			name: "critical blocklist deny",
			cfg:  enabledCfg(),
			res:  pipeline.Result{Source: pipeline.SourceBlocklist, Severity: policy.SeverityCritical},
			want: true,
		},
		{
			name: "high severity does not qualify",
			cfg:  enabledCfg(),
			res:  pipeline.Result{Source: pipeline.SourceBlocklist, Severity: policy.SeverityHigh},
			want: false,
		},
		{
			name:   "budget breach with kill action",
			cfg:    enabledCfg(),
			budget: policy.Budget{ActionOnBreach: "kill"},
			res:    pipeline.Result{Source: pipeline.SourceBudget, Severity: policy.SeverityHigh},
			want:   true,
		},
		{
			name:   "budget breach with deny action",
			cfg:    enabledCfg(),
			budget: policy.Budget{ActionOnBreach: "deny"},
			res:    pipeline.Result{Source: pipeline.SourceBudget, Severity: policy.SeverityHigh},
			want:   false,
		},
		{
			name: "disabled switch never kills",
			cfg:  policy.KillSwitch{Enabled: false, OnBlocklistCritical: true},
			res:  pipeline.Result{Source: pipeline.SourceBlocklist, Severity: policy.SeverityCritical},
			want: false,
		},
		{
			name: "critical flag off",
			cfg:  policy.KillSwitch{Enabled: true, OnBlocklistCritical: false},
			res:  pipeline.Result{Source: pipeline.SourceBlocklist, Severity: policy.SeverityCritical},
			want: false,
		},
		{
			name: "allowed result never kills",
			cfg:  enabledCfg(),
			res:  pipeline.Result{Allowed: true, Severity: policy.SeverityCritical},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Controller{Cfg: tt.cfg, Budget: tt.budget}
			if got := c.ShouldKill(&tt.res); got != tt.want {
				t.Errorf("ShouldKill = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriggerExitsWithConfiguredCode(t *testing.T) {
	var stderr bytes.Buffer
	var code int
	c := &Controller{
		Cfg:    policy.KillSwitch{Enabled: true, OnBlocklistCritical: true, ExitCode: 7},
		Stderr: &stderr,
		Exit:   func(n int) { code = n },
	}

	c.Trigger(&pipeline.Result{
		Source:   pipeline.SourceBlocklist,
		Severity: policy.SeverityCritical,
		Reason:   "Forced file deletion",
	})

	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	out := stderr.String()
	if !strings.Contains(out, "kill switch") || !strings.Contains(out, "Forced file deletion") {
		t.Errorf("diagnostic line missing detail: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("want a single diagnostic line, got %q", out)
	}
}

func TestTriggerDefaultsExitCode(t *testing.T) {
	var code int
	c := &Controller{
		Cfg:    policy.KillSwitch{Enabled: true},
		Stderr: &bytes.Buffer{},
		Exit:   func(n int) { code = n },
	}
	c.Trigger(&pipeline.Result{Source: pipeline.SourceBlocklist, Severity: policy.SeverityCritical})
	if code != policy.DefaultKillExitCode {
		t.Errorf("exit code = %d, want %d", code, policy.DefaultKillExitCode)
	}
}
