package sequence

import "sync"

// BookOutcome reports the result of checking one order-book delta's
// version chain against a tracker.
type BookOutcome struct {
	// Accepted is true only when prev_version matched the tracker's
	// current version (or this is the symbol's first-ever delta).
	Accepted bool

	// NeedsSnapshot is true when the chain is broken and the book must be
	// discarded and rebuilt from a fresh snapshot (§4.7 "a prev_version
	// mismatch discards the book and triggers a snapshot request").
	NeedsSnapshot bool
}

// BookTracker enforces the stricter per-symbol version chain deltas
// require (§4.7): unlike the general Tracker, an out-of-order or
// mismatched version is never silently tolerated — it invalidates the
// whole book.
type BookTracker struct {
	mu       sync.Mutex
	versions map[uint32]uint64
}

// NewBookTracker returns an empty BookTracker.
func NewBookTracker() *BookTracker {
	return &BookTracker{versions: make(map[uint32]uint64)}
}

// CheckVersion validates one delta's prev_version/version pair for
// symbolID. The first delta ever seen for a symbol is always accepted as
// long as the caller has already applied the preceding snapshot (it
// cannot be validated against anything, so the caller is responsible for
// requesting a snapshot before the first delta reaches here).
func (b *BookTracker) CheckVersion(symbolID uint32, prevVersion, version uint64) BookOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	known, ok := b.versions[symbolID]
	if !ok {
		b.versions[symbolID] = version
		return BookOutcome{Accepted: true}
	}

	if prevVersion != known {
		delete(b.versions, symbolID)
		return BookOutcome{Accepted: false, NeedsSnapshot: true}
	}

	b.versions[symbolID] = version
	return BookOutcome{Accepted: true}
}

// ResetFromSnapshot seeds symbolID's known version from a freshly applied
// snapshot, ending the "needs snapshot" state.
func (b *BookTracker) ResetFromSnapshot(symbolID uint32, version uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.versions[symbolID] = version
}

// CurrentVersion returns the tracker's known version for symbolID.
func (b *BookTracker) CurrentVersion(symbolID uint32) (version uint64, known bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	version, known = b.versions[symbolID]
	return version, known
}
