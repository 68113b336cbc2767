package audit

import (
	"encoding/json"
	"os"
)

// Summary tallies the decisions recorded in one audit file.
type Summary struct {
	Total      int            `json:"total"`
	Allowed    int            `json:"allowed"`
	Denied     int            `json:"denied"`
	ByTool     map[string]int `json:"by_tool"`
	BySeverity map[string]int `json:"by_severity"`
	Skipped    int            `json:"skipped"` // unparseable lines
}

// Summarize reads the audit file and tallies allowed/denied decisions,
// counts by tool, and counts by severity. Unparseable lines are counted
// but otherwise skipped.
func Summarize(path string) (*Summary, error) {
	s := &Summary{
		ByTool:     make(map[string]int),
		BySeverity: make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	for _, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			s.Skipped++
			continue
		}
		s.Total++
		if e.Allowed {
			s.Allowed++
		} else {
			s.Denied++
		}
		s.ByTool[e.Tool]++
		if e.Severity != nil {
			s.BySeverity[*e.Severity]++
		}
	}
	return s, nil
}

// Tail returns the last n entries of the audit file, skipping unparseable
// lines.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lines := splitLines(data)
	if n > len(lines) {
		n = len(lines)
	}
	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
