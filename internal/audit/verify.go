package audit

import (
	"encoding/json"
	"os"
)

// VerifyResult reports the outcome of a chain scan.
type VerifyResult struct {
	Valid    bool
	Entries  int
	BrokenAt int // 1-based index of the first broken entry; 0 when valid
}

// Verify scans the audit file top to bottom, recomputing each entry's
// expected hash from its predecessor and content. The first mismatch or
// unparseable line marks the file invalid. An empty or absent file is
// valid with zero entries. Entries written with integrity "none" are
// exempt from the chain.
func Verify(path string) (*VerifyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &VerifyResult{Valid: true}, nil
		}
		return nil, err
	}

	res := &VerifyResult{Valid: true}
	prev := ""
	for i, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return &VerifyResult{Valid: false, Entries: i, BrokenAt: i + 1}, nil
		}
		if e.Hash != "none" {
			body, err := e.body()
			if err != nil || chainHash(prev, body) != e.Hash {
				return &VerifyResult{Valid: false, Entries: i, BrokenAt: i + 1}, nil
			}
			prev = e.Hash
		}
		res.Entries++
	}
	return res, nil
}
