package ring

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"
)

// MaxChanges bounds the inline change array per delta record (§3.5:
// "fixed upper bound, e.g., 16 levels"). Writers that exceed it split the
// update across multiple records sharing a version chain.
const MaxChanges = 16

// Side/action packed into PriceLevelChange.SideAndAction: bit 0 selects
// side, bits 1-2 select the action.
const (
	SideBid uint8 = 0
	SideAsk uint8 = 1

	ActionUpdate uint8 = 0 << 1
	ActionAdd    uint8 = 1 << 1
	ActionRemove uint8 = 2 << 1
)

// PackSideAction combines a side and action into the wire byte.
func PackSideAction(side, action uint8) uint8 { return side | action }

// UnpackSideAction splits the wire byte back into side and action.
func UnpackSideAction(b uint8) (side, action uint8) { return b & 0x1, b &^ 0x1 }

// PriceLevelChange is one order-book level mutation. Price and Volume are
// plain floats here (not the fixed-point mantissas used by TradeRecord):
// deltas express small relative magnitudes where the original source used
// float32 directly, and this spec does not flag that choice for redesign.
type PriceLevelChange struct {
	Price         float32
	Volume        float32
	SideAndAction uint8
}

const priceLevelChangeSize = 4 + 4 + 1

// DeltaRecord is one order-book delta batch.
type DeltaRecord struct {
	SymbolID    uint32
	Venue       uint16
	Version     uint64
	PrevVersion uint64
	TimestampNs uint64
	Changes     []PriceLevelChange // len <= MaxChanges
}

const (
	deltaOffSymbolID    = 0
	deltaOffVenue       = 4
	deltaOffVersion     = 8
	deltaOffPrevVersion = 16
	deltaOffChangeCount = 24
	deltaOffChanges     = 32
	deltaEnvelopeAndChangesSize = deltaOffChanges + MaxChanges*priceLevelChangeSize
	deltaOffTimestamp   = deltaEnvelopeAndChangesSize
	deltaUsedBytes      = deltaOffTimestamp + 8
)

var deltaRecordSize = alignUp(deltaUsedBytes, CacheLineSize)

func writeDeltaRecord(slot []byte, rec DeltaRecord) {
	(*atomic.Uint32)(ptrAt(slot, deltaOffSymbolID)).Store(rec.SymbolID)
	(*atomic.Uint32)(ptrAt(slot, deltaOffVenue)).Store(uint32(rec.Venue))
	(*atomic.Uint64)(ptrAt(slot, deltaOffVersion)).Store(rec.Version)
	(*atomic.Uint64)(ptrAt(slot, deltaOffPrevVersion)).Store(rec.PrevVersion)
	slot[deltaOffChangeCount] = uint8(len(rec.Changes))

	for i := 0; i < MaxChanges; i++ {
		off := deltaOffChanges + i*priceLevelChangeSize
		if i < len(rec.Changes) {
			c := rec.Changes[i]
			binary.LittleEndian.PutUint32(slot[off:], math.Float32bits(c.Price))
			binary.LittleEndian.PutUint32(slot[off+4:], math.Float32bits(c.Volume))
			slot[off+8] = c.SideAndAction
		} else {
			clear(slot[off : off+priceLevelChangeSize])
		}
	}
	(*atomic.Uint64)(ptrAt(slot, deltaOffTimestamp)).Store(rec.TimestampNs) // publish last
}

func readDeltaRecord(slot []byte) DeltaRecord {
	count := int(slot[deltaOffChangeCount])
	if count > MaxChanges {
		count = MaxChanges
	}
	changes := make([]PriceLevelChange, count)
	for i := 0; i < count; i++ {
		off := deltaOffChanges + i*priceLevelChangeSize
		changes[i] = PriceLevelChange{
			Price:         math.Float32frombits(binary.LittleEndian.Uint32(slot[off:])),
			Volume:        math.Float32frombits(binary.LittleEndian.Uint32(slot[off+4:])),
			SideAndAction: slot[off+8],
		}
	}
	return DeltaRecord{
		SymbolID:    (*atomic.Uint32)(ptrAt(slot, deltaOffSymbolID)).Load(),
		Venue:       uint16((*atomic.Uint32)(ptrAt(slot, deltaOffVenue)).Load()),
		Version:     (*atomic.Uint64)(ptrAt(slot, deltaOffVersion)).Load(),
		PrevVersion: (*atomic.Uint64)(ptrAt(slot, deltaOffPrevVersion)).Load(),
		TimestampNs: (*atomic.Uint64)(ptrAt(slot, deltaOffTimestamp)).Load(),
		Changes:     changes,
	}
}

// DeltaWriter is the single producer attached to an order-book delta ring.
type DeltaWriter struct {
	seg      *segment
	ctrl     controlBlock
	records  []byte
	capacity uint64
	reg      registry
	nextSeq  uint64

	versions map[uint32]uint64 // per-symbol version counter
}

// CreateDeltaRing initializes a new delta ring at path with room for
// capacity records.
func CreateDeltaRing(path string, capacity uint32) (*DeltaWriter, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("ring: capacity must be > 0")
	}
	total := recordRegionOffset() + int(capacity)*deltaRecordSize
	seg, err := createSegment(path, total)
	if err != nil {
		return nil, err
	}
	ctrl := newControlBlock(seg.data[:headerRegionSize])
	ctrl.setVersionCapacity(ringVersion, capacity)
	ctrl.WriterPID().Store(uint32(os.Getpid()))

	cursorArray := seg.data[cursorArrayOffset() : cursorArrayOffset()+cursorArraySize()]
	records := seg.data[recordRegionOffset():]
	return &DeltaWriter{
		seg:      seg,
		ctrl:     ctrl,
		records:  records,
		capacity: uint64(capacity),
		reg:      newRegistry(ctrl, cursorArray),
		versions: make(map[uint32]uint64),
	}, nil
}

// AppendChanges publishes the given level changes for symbolID, splitting
// across multiple chained records if they exceed MaxChanges (§4.3). Each
// emitted record's Version/PrevVersion chain to the previous one for that
// symbol, so a consumer that applies them in order reconstructs the book
// exactly as if one oversized delta had arrived.
func (w *DeltaWriter) AppendChanges(symbolID uint32, venue uint16, changes []PriceLevelChange, timestampNs uint64) {
	if len(changes) == 0 {
		return
	}
	for start := 0; start < len(changes); start += MaxChanges {
		end := start + MaxChanges
		if end > len(changes) {
			end = len(changes)
		}
		w.appendOne(symbolID, venue, changes[start:end], timestampNs)
	}
}

func (w *DeltaWriter) appendOne(symbolID uint32, venue uint16, changes []PriceLevelChange, timestampNs uint64) {
	prev := w.versions[symbolID]
	next := prev + 1
	w.versions[symbolID] = next

	rec := DeltaRecord{
		SymbolID:    symbolID,
		Venue:       venue,
		Version:     next,
		PrevVersion: prev,
		TimestampNs: timestampNs,
		Changes:     changes,
	}

	seq := w.nextSeq
	w.nextSeq++
	slotIdx := seq % w.capacity
	slot := w.records[slotIdx*uint64(deltaRecordSize) : (slotIdx+1)*uint64(deltaRecordSize)]

	writeDeltaRecord(slot, rec)
	w.ctrl.LastWriteNs().Store(uint64(time.Now().UnixNano()))
	w.ctrl.WriteSequence().Store(seq + 1)
	notify(w.ctrl)
}

// Close unmaps the ring.
func (w *DeltaWriter) Close() error { return w.seg.Close() }

// DeltaReader is one consumer attached to a delta ring. It tracks, per
// symbol, the last applied Version so it can detect a broken chain.
type DeltaReader struct {
	seg      *segment
	ctrl     controlBlock
	records  []byte
	capacity uint64
	reg      registry
	slot     int

	versions map[uint32]uint64
}

// OpenDeltaRing attaches a reader to an existing delta ring.
func OpenDeltaRing(path string, capacity uint32) (*DeltaReader, error) {
	total := recordRegionOffset() + int(capacity)*deltaRecordSize
	seg, err := openSegment(path, total)
	if err != nil {
		return nil, err
	}
	ctrl := newControlBlock(seg.data[:headerRegionSize])
	if got := ctrl.Capacity(); got != capacity {
		seg.Close()
		return nil, fmt.Errorf("ring: capacity mismatch: file has %d, want %d", got, capacity)
	}
	cursorArray := seg.data[cursorArrayOffset() : cursorArrayOffset()+cursorArraySize()]
	records := seg.data[recordRegionOffset():]
	reg := newRegistry(ctrl, cursorArray)

	slot, err := reg.claim(uint32(os.Getpid()))
	if err != nil {
		seg.Close()
		return nil, err
	}
	return &DeltaReader{
		seg:      seg,
		ctrl:     ctrl,
		records:  records,
		capacity: uint64(capacity),
		reg:      reg,
		slot:     slot,
		versions: make(map[uint32]uint64),
	}, nil
}

func (r *DeltaReader) cursorBlock() cursorBlock {
	cursorArray := r.seg.data[cursorArrayOffset() : cursorArrayOffset()+cursorArraySize()]
	return cursorBlockAt(cursorArray, r.slot)
}

// DeltaApplication pairs a decoded record with whether it chained cleanly
// onto this reader's last known version for its symbol.
type DeltaApplication struct {
	Record      DeltaRecord
	ChainBroken bool // PrevVersion did not match the reader's current version
}

// ReadNew catches the reader up to the current write_sequence, same
// overwrite/gap handling as TradeReader.ReadNew.
func (r *DeltaReader) ReadNew() (apps []DeltaApplication, gap uint64) {
	cb := r.cursorBlock()
	cursor := cb.Cursor().Load()
	current := r.ctrl.WriteSequence().Load()

	if current-cursor > r.capacity {
		skipped := current - r.capacity + 1 - cursor
		cursor = current - r.capacity + 1
		gap = skipped
	}

	for i := cursor; i < current; i++ {
		slotIdx := i % r.capacity
		slot := r.records[slotIdx*uint64(deltaRecordSize) : (slotIdx+1)*uint64(deltaRecordSize)]
		rec := readDeltaRecord(slot)

		known := r.versions[rec.SymbolID]
		broken := rec.PrevVersion != known
		r.versions[rec.SymbolID] = rec.Version
		apps = append(apps, DeltaApplication{Record: rec, ChainBroken: broken})
	}

	cb.Cursor().Store(current)
	r.reg.heartbeat(r.slot)
	return apps, gap
}

// ResetSymbolVersion seeds the reader's known version for symbolID, used
// after applying an out-of-band snapshot TLV (§4.3) before resuming delta
// application.
func (r *DeltaReader) ResetSymbolVersion(symbolID uint32, version uint64) {
	r.versions[symbolID] = version
}

// WaitForData blocks until new records are available or timeout elapses.
func (r *DeltaReader) WaitForData(timeout time.Duration) ([]DeltaApplication, uint64) {
	cb := r.cursorBlock()
	pollUntil(r.ctrl, timeout, func() bool {
		return r.ctrl.WriteSequence().Load() > cb.Cursor().Load()
	})
	return r.ReadNew()
}

// Close releases the reader's slot and unmaps the ring.
func (r *DeltaReader) Close() error {
	r.reg.release(r.slot)
	return r.seg.Close()
}
