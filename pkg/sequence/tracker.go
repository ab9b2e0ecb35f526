// Package sequence tracks per-stream message ordering (§3.8, §4.7): gaps,
// out-of-order/duplicate arrivals, and (for order-book deltas) the
// stricter prev_version chain. It is pure bookkeeping over integers, so it
// carries no third-party dependency — see DESIGN.md for the justification.
package sequence

import "sync"

// Key identifies one tracked stream: a source (the message header's
// `source` byte) paired with a stream identifier — a symbol ID for
// per-symbol trade/quote streams, or a relay domain byte for per-domain
// streams (§3.8 "Per (source, symbol) or per (source, domain)").
type Key struct {
	Source   uint8
	StreamID uint32
}

// entry is one stream's mutable tracking state (§3.8).
type entry struct {
	expectedNext uint32
	dropped      uint64
	outOfOrder   uint64
}

// Outcome reports what Record observed for one message.
type Outcome struct {
	// Accepted is true in every case: in order, after a forward gap, and
	// for out-of-order/duplicate arrivals (§4.7: "count and process
	// (applications tolerate replays)"). A gap is reported through
	// Gap/GapStart/GapEnd, not by rejecting the message.
	Accepted bool

	// Gap is the width of a detected forward gap (seq - expectedNext),
	// zero when no gap was detected.
	Gap uint32

	// GapStart/GapEnd bound the missing range [GapStart, GapEnd] when Gap
	// is non-zero, suitable for building a recovery request.
	GapStart uint32
	GapEnd   uint32

	// OutOfOrder is true when seq < expectedNext (includes exact
	// duplicates).
	OutOfOrder bool
}

// Tracker maintains per-Key sequence state across concurrent streams.
type Tracker struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[Key]*entry)}
}

// Record applies the next observed sequence number for key (§4.7):
//   - seq == expected_next: accept, advance.
//   - seq > expected_next: gap of seq-expected_next; advance past seq.
//   - seq < expected_next: out-of-order/duplicate; counted, still accepted.
//
// The first sequence number ever seen for a key is always accepted and
// seeds expected_next = seq + 1, since there is no prior state to compare
// against.
func (t *Tracker) Record(key Key, seq uint32) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &entry{expectedNext: seq + 1}
		t.entries[key] = e
		return Outcome{Accepted: true}
	}

	switch {
	case seq == e.expectedNext:
		e.expectedNext++
		return Outcome{Accepted: true}
	case seq > e.expectedNext:
		gap := seq - e.expectedNext
		e.dropped += uint64(gap)
		start := e.expectedNext
		e.expectedNext = seq + 1
		return Outcome{Accepted: true, Gap: gap, GapStart: start, GapEnd: seq - 1}
	default:
		e.outOfOrder++
		return Outcome{Accepted: true, OutOfOrder: true}
	}
}

// Stats returns the tracked counters for key, or the zero value if key has
// never been seen.
func (t *Tracker) Stats(key Key) (expectedNext uint32, dropped, outOfOrder uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return 0, 0, 0
	}
	return e.expectedNext, e.dropped, e.outOfOrder
}

// Reset discards all tracked state for key, as if it had never been seen.
// Used when a stream's recovery response fully resynchronizes it.
func (t *Tracker) Reset(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}
