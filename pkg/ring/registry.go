package ring

import (
	"errors"
	"fmt"
	"math/bits"
	"time"
	"unsafe"
)

// ErrNoFreeSlot is returned when every reader slot is occupied.
var ErrNoFreeSlot = errors.New("ring: reader registry full")

// ErrSlotNotOwned is returned when a release/heartbeat targets a slot that
// does not belong to the caller.
var ErrSlotNotOwned = errors.New("ring: slot not owned by this reader")

// StaleAfter is how long a reader may go without a heartbeat before the
// reaper reclaims its slot (§3.4 combined with the reaper's 30s window).
const StaleAfter = 30 * time.Second

// registry is the reader registry embedded in the ring header: a claim
// bitmap plus per-slot PID and heartbeat metadata (§3.4). The bitmap is the
// source of truth for occupancy; the PID array is a cleanup aid only.
type registry struct {
	ctrl   controlBlock
	cursor []byte // full cursor array region
}

func newRegistry(ctrl controlBlock, cursorArray []byte) registry {
	assertAlignment(ctrl)
	return registry{ctrl: ctrl, cursor: cursorArray}
}

// assertAlignment verifies that every field the registry touches with an
// atomic operation sits on a naturally aligned address within the mapped
// segment. A misaligned field would make the atomic ops on some platforms
// fault or silently tear; this is checked once at open time instead of on
// every claim/release/heartbeat call, which must stay branch-free (§7).
func assertAlignment(ctrl controlBlock) {
	base := uintptr(unsafe.Pointer(&ctrl.base[0]))
	check := func(name string, off, width int) {
		if (base+uintptr(off))%uintptr(width) != 0 {
			panic(fmt.Sprintf("ring: %s at offset %d is not %d-byte aligned", name, off, width))
		}
	}
	check("active_slots", offActiveSlots, 8)
	for slot := 0; slot < MaxReaders; slot++ {
		check("reader_pids", offReaderPIDs+slot*4, 4)
		check("reader_timestamps", offReaderTimestamps+slot*8, 8)
	}
}

// claim finds a free slot, atomically marks it occupied, and records pid.
// The new reader's cursor starts at the current write_sequence, so it reads
// only records appended after it joined.
// Invariant: reader_pids[i] != 0 iff bit i of active_slots is set.
func (r registry) claim(pid uint32) (int, error) {
	slots := r.ctrl.ActiveSlots()
	for {
		cur := slots.Load()
		free := ^cur & (1<<MaxReaders - 1)
		if free == 0 {
			return -1, ErrNoFreeSlot
		}
		slot := bits.TrailingZeros64(free)
		next := cur | (uint64(1) << uint(slot))
		if slots.CompareAndSwap(cur, next) {
			r.ctrl.ReaderPID(slot).Store(pid)
			r.ctrl.ReaderTimestamp(slot).Store(uint64(time.Now().Unix()))
			cursorBlockAt(r.cursor, slot).Cursor().Store(r.ctrl.WriteSequence().Load())
			cursorBlockAt(r.cursor, slot).Heartbeat().Store(uint64(time.Now().UnixNano()))
			return slot, nil
		}
		// lost the race, retry against the new bitmap state.
	}
}

// release clears a slot. Idempotent: clearing an already-free slot is a
// no-op, matching the registry invariant's release contract.
func (r registry) release(slot int) {
	r.ctrl.ReaderPID(slot).Store(0)
	r.ctrl.ReaderTimestamp(slot).Store(0)
	mask := ^(uint64(1) << uint(slot))
	slots := r.ctrl.ActiveSlots()
	for {
		cur := slots.Load()
		if slots.CompareAndSwap(cur, cur&mask) {
			return
		}
	}
}

// heartbeat stamps the wall-clock heartbeat for slot, both in the registry
// (coarse, scanned by the reaper) and the reader's own cursor block (hot
// path, updated every read_new call per §4.2 step 4).
func (r registry) heartbeat(slot int) {
	now := time.Now()
	r.ctrl.ReaderTimestamp(slot).Store(uint64(now.Unix()))
	cursorBlockAt(r.cursor, slot).Heartbeat().Store(uint64(now.UnixNano()))
}

// activePopcount returns the number of occupied slots, bounding how many
// times a writer would post a wake notification on platforms with
// cross-process semaphores (§4.2 step 5).
func (r registry) activePopcount() int {
	return bits.OnesCount64(r.ctrl.ActiveSlots().Load())
}

// isOccupied reports whether slot currently belongs to a reader.
func (r registry) isOccupied(slot int) bool {
	return r.ctrl.ActiveSlots().Load()&(1<<uint(slot)) != 0
}

// isStale reports whether a slot's owner appears dead: either its OS
// process no longer exists, or it has not heartbeated within StaleAfter.
func (r registry) isStale(slot int, now time.Time, alive func(pid uint32) bool) bool {
	if !r.isOccupied(slot) {
		return false
	}
	pid := r.ctrl.ReaderPID(slot).Load()
	if pid != 0 && !alive(pid) {
		return true
	}
	lastSec := r.ctrl.ReaderTimestamp(slot).Load()
	last := time.Unix(int64(lastSec), 0)
	return now.Sub(last) > StaleAfter
}
