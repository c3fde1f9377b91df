// Package buffer implements the occurrence buffer: an in-memory, per-file
// accumulator with O(1) append, bounded by a configurable maximum.
//
// Overflow is a hard cap with a warning, not unbounded growth.
package buffer

import "github.com/sourceminder/sourceminder/internal/occurrence"

// DefaultMax is the default maximum number of occurrences retained per file.
const DefaultMax = 65536

// Buffer accumulates occurrences for one file.
type Buffer struct {
	max      int
	items    []occurrence.Occurrence
	dropped  int
	overflow bool
}

// New creates a Buffer bounded at max occurrences. A max <= 0 uses
// DefaultMax.
func New(max int) *Buffer {
	if max <= 0 {
		max = DefaultMax
	}
	return &Buffer{max: max, items: make([]occurrence.Occurrence, 0, 256)}
}

// Reset discards all accumulated occurrences so the Buffer can be reused
// for the next file: occurrence buffers are per-file and discarded after
// flush.
func (b *Buffer) Reset() {
	b.items = b.items[:0]
	b.dropped = 0
	b.overflow = false
}

// Append adds an occurrence. Exceeding the configured maximum drops the
// occurrence and records the overflow; it is never a fatal error.
func (b *Buffer) Append(o occurrence.Occurrence) {
	if len(b.items) >= b.max {
		b.dropped++
		b.overflow = true
		return
	}
	b.items = append(b.items, o)
}

// Len returns the number of occurrences currently retained.
func (b *Buffer) Len() int { return len(b.items) }

// Items returns the retained occurrences in append (pre-order AST
// traversal) order.
func (b *Buffer) Items() []occurrence.Occurrence { return b.items }

// Overflowed reports whether the maximum was exceeded during this pass, and
// how many occurrences were dropped as a result.
func (b *Buffer) Overflowed() (bool, int) { return b.overflow, b.dropped }
