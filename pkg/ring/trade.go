package ring

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// ringVersion is the layout version stamped into every ring's header.
const ringVersion = 1

// tradeRecordSize is one cache line: enough for the fixed trade fields
// (32 bytes, see offsets below) plus reserved padding so neighboring
// records never share a cache line with each other or with the control
// structures (§3.3).
var tradeRecordSize = CacheLineSize

// Byte offsets within a trade record slot. Timestamp is written last so
// that, combined with write_sequence being published only after every
// field store (§9 open question 1, option (a)), a reader that has
// acquire-loaded write_sequence always sees a fully formed record.
const (
	tradeOffSymbolID = 0
	tradeOffSide     = 4
	tradeOffPrice    = 8
	tradeOffVolume   = 16
	tradeOffTs       = 24
)

// TradeRecord is the in-memory representation of one trade-feed slot.
// PriceMantissa and VolumeMantissa are fixed-point, scaled by 10^8
// (protocol.PriceScale), matching the wire format's precision rule.
type TradeRecord struct {
	SymbolID       uint32
	Side           uint8
	PriceMantissa  int64
	VolumeMantissa int64
	TimestampNs    uint64
}

func writeTradeRecord(slot []byte, rec TradeRecord) {
	(*atomic.Uint32)(ptrAt(slot, tradeOffSymbolID)).Store(rec.SymbolID)
	slot[tradeOffSide] = rec.Side
	(*atomic.Int64)(ptrAt(slot, tradeOffPrice)).Store(rec.PriceMantissa)
	(*atomic.Int64)(ptrAt(slot, tradeOffVolume)).Store(rec.VolumeMantissa)
	(*atomic.Uint64)(ptrAt(slot, tradeOffTs)).Store(rec.TimestampNs) // publish last
}

func readTradeRecord(slot []byte) TradeRecord {
	return TradeRecord{
		SymbolID:       (*atomic.Uint32)(ptrAt(slot, tradeOffSymbolID)).Load(),
		Side:           slot[tradeOffSide],
		PriceMantissa:  (*atomic.Int64)(ptrAt(slot, tradeOffPrice)).Load(),
		VolumeMantissa: (*atomic.Int64)(ptrAt(slot, tradeOffVolume)).Load(),
		TimestampNs:    (*atomic.Uint64)(ptrAt(slot, tradeOffTs)).Load(),
	}
}

// TradeWriter is the single producer attached to a trade-feed ring.
type TradeWriter struct {
	seg      *segment
	ctrl     controlBlock
	records  []byte
	capacity uint64
	reg      registry
	nextSeq  uint64
}

// CreateTradeRing initializes a new trade-feed ring at path with room for
// capacity records, and returns the writer attached to it.
func CreateTradeRing(path string, capacity uint32) (*TradeWriter, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("ring: capacity must be > 0")
	}
	total := recordRegionOffset() + int(capacity)*tradeRecordSize
	seg, err := createSegment(path, total)
	if err != nil {
		return nil, err
	}
	ctrl := newControlBlock(seg.data[:headerRegionSize])
	ctrl.setVersionCapacity(ringVersion, capacity)
	ctrl.WriterPID().Store(uint32(os.Getpid()))

	cursorArray := seg.data[cursorArrayOffset() : cursorArrayOffset()+cursorArraySize()]
	records := seg.data[recordRegionOffset():]
	return &TradeWriter{
		seg:      seg,
		ctrl:     ctrl,
		records:  records,
		capacity: uint64(capacity),
		reg:      newRegistry(ctrl, cursorArray),
	}, nil
}

// Append publishes one record (§4.2 "Write algorithm"). It never blocks
// and never fails except after Close.
func (w *TradeWriter) Append(rec TradeRecord) {
	seq := w.nextSeq
	w.nextSeq++
	slotIdx := seq % w.capacity
	slot := w.records[slotIdx*uint64(tradeRecordSize) : (slotIdx+1)*uint64(tradeRecordSize)]

	writeTradeRecord(slot, rec)
	w.ctrl.LastWriteNs().Store(uint64(time.Now().UnixNano()))
	w.ctrl.WriteSequence().Store(seq + 1) // publish: §9 open question 1, option (a)
	notify(w.ctrl)
}

// Close unmaps the ring. The file itself is left on disk.
func (w *TradeWriter) Close() error { return w.seg.Close() }

// TradeReader is one of potentially many consumers attached to a
// trade-feed ring.
type TradeReader struct {
	seg      *segment
	ctrl     controlBlock
	records  []byte
	capacity uint64
	reg      registry
	slot     int
}

// OpenTradeRing attaches a reader to an existing ring, claiming a slot in
// its reader registry.
func OpenTradeRing(path string, capacity uint32) (*TradeReader, error) {
	total := recordRegionOffset() + int(capacity)*tradeRecordSize
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
	return &TradeReader{
		seg:      seg,
		ctrl:     ctrl,
		records:  records,
		capacity: uint64(capacity),
		reg:      reg,
		slot:     slot,
	}, nil
}

func (r *TradeReader) cursorBlock() cursorBlock {
	cursorArray := r.seg.data[cursorArrayOffset() : cursorArrayOffset()+cursorArraySize()]
	return cursorBlockAt(cursorArray, r.slot)
}

// ReadNew catches the reader up to the current write_sequence (§4.2 "Read
// algorithm"). gap reports the number of records skipped if the writer
// overtook this reader by more than capacity (the overwrite condition).
func (r *TradeReader) ReadNew() (records []TradeRecord, gap uint64) {
	cb := r.cursorBlock()
	cursor := cb.Cursor().Load()
	current := r.ctrl.WriteSequence().Load() // Acquire

	if current-cursor > r.capacity {
		skipped := current - r.capacity + 1 - cursor
		cursor = current - r.capacity + 1
		gap = skipped
	}

	for i := cursor; i < current; i++ {
		slotIdx := i % r.capacity
		slot := r.records[slotIdx*uint64(tradeRecordSize) : (slotIdx+1)*uint64(tradeRecordSize)]
		records = append(records, readTradeRecord(slot))
	}

	cb.Cursor().Store(current)
	r.reg.heartbeat(r.slot)
	return records, gap
}

// WaitForData blocks until new records are available or timeout elapses,
// via the adaptive-backoff wake channel (§5.3).
func (r *TradeReader) WaitForData(timeout time.Duration) ([]TradeRecord, uint64) {
	cb := r.cursorBlock()
	pollUntil(r.ctrl, timeout, func() bool {
		return r.ctrl.WriteSequence().Load() > cb.Cursor().Load()
	})
	return r.ReadNew()
}

// Close releases the reader's slot and unmaps the ring.
func (r *TradeReader) Close() error {
	r.reg.release(r.slot)
	return r.seg.Close()
}
