package ring

import (
	"syscall"
	"time"
)

// Reaper periodically scans a ring's reader registry and reclaims slots
// whose owner has died or gone quiet (C9). It never touches the write
// path; it only clears registry bookkeeping so new readers can claim
// freed slots.
type Reaper struct {
	seg  *segment // nil when attached via an existing writer
	reg  registry
	tick time.Duration
}

// NewTradeRingReaper builds a reaper sharing a trade ring writer's mapping.
func NewTradeRingReaper(w *TradeWriter, tick time.Duration) *Reaper {
	return &Reaper{reg: w.reg, tick: tick}
}

// NewDeltaRingReaper builds a reaper sharing a delta ring writer's mapping.
func NewDeltaRingReaper(w *DeltaWriter, tick time.Duration) *Reaper {
	return &Reaper{reg: w.reg, tick: tick}
}

// AttachReaper opens a ring's header independently (read-write, like a
// reader) for a reaper process that is not itself the writer. recordSize
// must match the ring's record size (tradeRecordSize or deltaRecordSize).
func AttachReaper(path string, capacity uint32, recordSize int, tick time.Duration) (*Reaper, error) {
	total := recordRegionOffset() + int(capacity)*recordSize
	seg, err := openSegment(path, total)
	if err != nil {
		return nil, err
	}
	ctrl := newControlBlock(seg.data[:headerRegionSize])
	cursorArray := seg.data[cursorArrayOffset() : cursorArrayOffset()+cursorArraySize()]
	return &Reaper{seg: seg, reg: newRegistry(ctrl, cursorArray), tick: tick}, nil
}

// pidAlive reports whether pid refers to a live process, using the
// signal-0 convention (syscall.Kill with signal 0 sends no signal but
// still reports ESRCH if the process is gone).
func pidAlive(pid uint32) bool {
	if pid == 0 {
		return false
	}
	err := syscall.Kill(int(pid), syscall.Signal(0))
	return err == nil
}

// Sweep performs one pass over all reader slots, releasing any that are
// stale (dead PID or heartbeat older than StaleAfter), and returns the
// slots it reclaimed.
func (r *Reaper) Sweep() []int {
	now := time.Now()
	var reclaimed []int
	for slot := 0; slot < MaxReaders; slot++ {
		if r.reg.isStale(slot, now, pidAlive) {
			r.reg.release(slot)
			reclaimed = append(reclaimed, slot)
		}
	}
	return reclaimed
}

// Run sweeps on r.tick until stop is closed.
func (r *Reaper) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmaps the reaper's own segment, if it opened one independently
// (no-op for a reaper built from an existing writer).
func (r *Reaper) Close() error {
	if r.seg == nil {
		return nil
	}
	return r.seg.Close()
}
