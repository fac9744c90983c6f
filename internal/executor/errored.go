package executor

import (
	"slices"
	"time"
)

// ErroredEntry is one failed work unit kept for the diagnostics endpoint.
type ErroredEntry struct {
	Key   string    `json:"key"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// erroredRing retains the most recent failures in insertion order. The
// caller provides synchronization.
type erroredRing struct {
	entries []ErroredEntry
	next    int
	full    bool
}

func newErroredRing(size int) *erroredRing {
	return &erroredRing{entries: make([]ErroredEntry, size)}
}

func (r *erroredRing) push(entry ErroredEntry) {
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns the retained entries, oldest first.
func (r *erroredRing) snapshot() []ErroredEntry {
	if !r.full {
		return slices.Clone(r.entries[:r.next])
	}

	out := make([]ErroredEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)

	return out
}
