package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guardianhq/guardian/internal/policy"
)

func testConfig() policy.Audit {
	return policy.Audit{
		Enabled:          true,
		Path:             "audit.jsonl",
		MaxFileSizeMB:    10,
		Rotation:         "daily",
		Integrity:        "sha256-chain",
		IncludeToolInput: true,
	}
}

func testEntry(tool string, allowed bool) *Entry {
	return &Entry{
		SID:     "sess-1",
		Tool:    tool,
		Input:   map[string]any{"command": "ls -la"},
		Allowed: allowed,
		Cwd:     "/tmp/proj",
	}
}

func TestAppendAndVerify(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testConfig())

	for i := 0; i < 5; i++ {
		if err := w.Append(testEntry("Bash", true)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	res, err := Verify(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Fatalf("chain invalid, broken at %d", res.BrokenAt)
	}
	if res.Entries != 5 {
		t.Fatalf("entries = %d, want 5", res.Entries)
	}
}

func TestSequenceStartsAtOneAndIncreases(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testConfig())

	for i := 0; i < 3; i++ {
		if err := w.Append(testEntry("Read", true)); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Tail(w.Path(), 10)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range entries {
		if e.Seq != uint64(i+1) {
			t.Errorf("entry %d: seq = %d, want %d", i, e.Seq, i+1)
		}
	}
	if !strings.HasPrefix(entries[0].Hash, HashPrefix) {
		t.Errorf("hash %q lacks %q prefix", entries[0].Hash, HashPrefix)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testConfig())

	for i := 0; i < 3; i++ {
		if err := w.Append(testEntry("Bash", true)); err != nil {
			t.Fatal(err)
		}
	}

	// Flip the allowed flag on the second entry.
	data, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"allowed":true`, `"allowed":false`, 1)
	if err := os.WriteFile(w.Path(), []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := Verify(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if res.BrokenAt != 2 {
		t.Errorf("brokenAt = %d, want 2", res.BrokenAt)
	}
}

func TestResumeFromTail(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	w1 := NewWriter(dir, cfg)
	for i := 0; i < 2; i++ {
		if err := w1.Append(testEntry("Bash", true)); err != nil {
			t.Fatal(err)
		}
	}

	// A fresh writer (new process) must continue the chain.
	w2 := NewWriter(dir, cfg)
	if err := w2.Append(testEntry("Write", false)); err != nil {
		t.Fatal(err)
	}

	res, err := Verify(w2.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.Entries != 3 {
		t.Fatalf("valid=%v entries=%d, want valid 3-entry chain", res.Valid, res.Entries)
	}

	entries, _ := Tail(w2.Path(), 1)
	if entries[0].Seq != 3 {
		t.Errorf("resumed seq = %d, want 3", entries[0].Seq)
	}
}

func TestCorruptTailRestartsChain(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	w1 := NewWriter(dir, cfg)
	if err := w1.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(w1.Path(), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{truncated partial wri\n")
	f.Close()

	w2 := NewWriter(dir, cfg)
	if err := w2.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}

	entries, err := Tail(w2.Path(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Seq != 1 {
		t.Errorf("seq after corrupt tail = %d, want fresh start at 1", entries[0].Seq)
	}

	// The file as a whole is now broken at the corrupt line.
	res, err := Verify(w2.Path())
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid || res.BrokenAt != 2 {
		t.Errorf("valid=%v brokenAt=%d, want broken at 2", res.Valid, res.BrokenAt)
	}
}

func TestDailyRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	w := NewWriter(dir, cfg)
	if err := w.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}

	// Next write happens two days later.
	w.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if err := w.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	rotated := filepath.Join(dir, "audit."+date+".jsonl")
	if _, err := os.Stat(rotated); err != nil {
		t.Fatalf("rotated file %s missing: %v", rotated, err)
	}

	for _, path := range []string{rotated, w.Path()} {
		res, err := Verify(path)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Valid || res.Entries != 1 {
			t.Errorf("%s: valid=%v entries=%d, want 1 valid entry", path, res.Valid, res.Entries)
		}
	}

	// Sequence restarted in the new file.
	entries, _ := Tail(w.Path(), 1)
	if entries[0].Seq != 1 {
		t.Errorf("seq after rotation = %d, want 1", entries[0].Seq)
	}
}

func TestSizeRotationDisambiguates(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Rotation = "size"
	cfg.MaxFileSizeMB = 0 // loader never allows this; forces rotation on every non-empty write

	w := NewWriter(dir, cfg)
	for i := 0; i < 3; i++ {
		if err := w.Append(testEntry("Bash", true)); err != nil {
			t.Fatal(err)
		}
	}

	date := time.Now().UTC().Format("2006-01-02")
	for _, name := range []string{"audit." + date + ".jsonl", "audit." + date + ".1.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected rotated file %s: %v", name, err)
		}
	}
}

func TestIntegrityNone(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Integrity = "none"

	w := NewWriter(dir, cfg)
	if err := w.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}

	entries, err := Tail(w.Path(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Hash != "none" {
		t.Errorf("hash = %q, want \"none\"", entries[0].Hash)
	}

	res, err := Verify(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Error("integrity none entries must verify clean")
	}
}

func TestDisabledWriterIsNoop(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Enabled = false

	w := NewWriter(dir, cfg)
	if err := w.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Error("disabled writer must not create the audit file")
	}
}

func TestVerifyEmptyAndAbsent(t *testing.T) {
	dir := t.TempDir()

	res, err := Verify(filepath.Join(dir, "missing.jsonl"))
	if err != nil || !res.Valid || res.Entries != 0 {
		t.Errorf("absent file: res=%+v err=%v, want valid empty", res, err)
	}

	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	res, err = Verify(empty)
	if err != nil || !res.Valid || res.Entries != 0 {
		t.Errorf("empty file: res=%+v err=%v, want valid empty", res, err)
	}
}

func TestEntryFieldOrder(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testConfig())
	if err := w.Append(testEntry("Bash", true)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))

	// The hash depends on serialization order, which is fixed by contract.
	order := []string{`"v":`, `"ts":`, `"sid":`, `"seq":`, `"tool":`, `"input":`, `"allowed":`, `"reason":`, `"severity":`, `"policy_match":`, `"budget":`, `"cwd":`, `"hash":`}
	pos := -1
	for _, key := range order {
		idx := strings.Index(line, key)
		if idx < 0 {
			t.Fatalf("key %s missing from %s", key, line)
		}
		if idx < pos {
			t.Fatalf("key %s out of order in %s", key, line)
		}
		pos = idx
	}

	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		t.Fatal(err)
	}
	if e.V != 1 {
		t.Errorf("v = %d, want 1", e.V)
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", e.TS); err != nil {
		t.Errorf("timestamp %q not UTC ISO-8601 with milliseconds: %v", e.TS, err)
	}
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testConfig())

	sev := "critical"
	entries := []*Entry{
		testEntry("Bash", true),
		testEntry("Bash", false),
		testEntry("Read", true),
	}
	entries[1].Severity = &sev
	for _, e := range entries {
		if err := w.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	s, err := Summarize(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 3 || s.Allowed != 2 || s.Denied != 1 {
		t.Errorf("summary %+v, want 3/2/1", s)
	}
	if s.ByTool["Bash"] != 2 || s.ByTool["Read"] != 1 {
		t.Errorf("by tool %+v", s.ByTool)
	}
	if s.BySeverity["critical"] != 1 {
		t.Errorf("by severity %+v", s.BySeverity)
	}
}
