package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/guardianhq/guardian/internal/policy"
)

const (
	tsLayout   = "2006-01-02T15:04:05.000Z"
	dateLayout = "2006-01-02"
)

// Writer appends chained entries to one audit file. Sequence and last-hash
// state are recovered from the file tail on the first write after process
// start and after every rotation; a corrupt tail restarts the chain.
type Writer struct {
	mu       sync.Mutex
	path     string
	cfg      policy.Audit
	loaded   bool
	seq      uint64
	lastHash string

	// Now is replaceable for rotation tests.
	Now func() time.Time
}

// NewWriter creates a writer for the audit path configured relative to the
// working directory.
func NewWriter(cwd string, cfg policy.Audit) *Writer {
	path := cfg.Path
	if path == "" {
		path = policy.DefaultAuditPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	return &Writer{path: path, cfg: cfg, Now: time.Now}
}

// shared caches writers by resolved path so a host that reuses the process
// keeps its sequence state instead of re-reading the tail per request.
var shared struct {
	mu sync.Mutex
	m  map[string]*Writer
}

// Shared returns the process-wide writer for the configured audit path.
func Shared(cwd string, cfg policy.Audit) *Writer {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.m == nil {
		shared.m = make(map[string]*Writer)
	}
	w := NewWriter(cwd, cfg)
	if cached, ok := shared.m[w.path]; ok {
		return cached
	}
	shared.m[w.path] = w
	return w
}

// Path returns the resolved audit file path.
func (w *Writer) Path() string {
	return w.path
}

// Append stamps the entry (version, timestamp, sequence, hash) and writes
// it as one line. Rotation is checked before every write.
func (w *Writer) Append(e *Entry) error {
	if !w.cfg.Enabled {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	if err := w.checkRotate(); err != nil {
		return err
	}
	if !w.loaded {
		w.resume()
	}

	w.seq++
	e.V = 1
	e.TS = w.Now().UTC().Format(tsLayout)
	e.Seq = w.seq

	body, err := e.body()
	if err != nil {
		return err
	}
	if w.cfg.Integrity == "sha256-chain" {
		e.Hash = chainHash(w.lastHash, body)
		w.lastHash = e.Hash
	} else {
		e.Hash = "none"
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	// Single write so parallel short-lived processes do not interleave
	// within a line.
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// resume recovers sequence and last hash from the file tail. Any problem
// reading or parsing the tail restarts the chain at seq 1 with prev "".
func (w *Writer) resume() {
	w.loaded = true
	w.seq = 0
	w.lastHash = ""

	data, err := os.ReadFile(w.path)
	if err != nil || len(data) == 0 {
		return
	}
	lines := splitLines(data)
	if len(lines) == 0 {
		return
	}
	var last Entry
	if err := json.Unmarshal(lines[len(lines)-1], &last); err != nil || last.Hash == "" {
		return
	}
	w.seq = last.Seq
	w.lastHash = last.Hash
}

// checkRotate renames the current file aside when it is oversized or, with
// daily rotation, written on a previous UTC day. Sequence and hash state
// reset after rotation.
func (w *Writer) checkRotate() error {
	fi, err := os.Stat(w.path)
	if err != nil {
		return nil // nothing to rotate
	}

	rotate := fi.Size() > int64(w.cfg.MaxFileSizeMB)*1024*1024
	if !rotate && w.cfg.Rotation == "daily" {
		rotate = fi.ModTime().UTC().Format(dateLayout) != w.Now().UTC().Format(dateLayout)
	}
	if !rotate {
		return nil
	}

	date := fi.ModTime().UTC().Format(dateLayout)
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	target := base + "." + date + ext
	for n := 1; ; n++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = fmt.Sprintf("%s.%s.%d%s", base, date, n, ext)
	}
	if err := os.Rename(w.path, target); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}

	w.loaded = true
	w.seq = 0
	w.lastHash = ""
	return nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
