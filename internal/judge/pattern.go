package judge

import "github.com/CuevaLabs/CodeSergeant/internal/types"

type patternEntry struct {
	app            string
	classification types.Classification
}

// patternBuffer is a bounded ring of (app, classification) pairs used for
// goal-drift detection. Single-writer; no locking needed.
type patternBuffer struct {
	entries []patternEntry
	cap     int
}

func newPatternBuffer(capacity int) *patternBuffer {
	return &patternBuffer{cap: capacity}
}

func (p *patternBuffer) push(entry patternEntry) {
	p.entries = append(p.entries, entry)
	if len(p.entries) > p.cap {
		p.entries = p.entries[len(p.entries)-p.cap:]
	}
}

func (p *patternBuffer) len() int {
	return len(p.entries)
}

// last returns up to n most recent entries, oldest first.
func (p *patternBuffer) last(n int) []patternEntry {
	if len(p.entries) <= n {
		return p.entries
	}
	return p.entries[len(p.entries)-n:]
}

func (p *patternBuffer) reset() {
	p.entries = nil
}
