package ring

import "sync/atomic"

// controlBlock is a typed view over the header region of a mapped ring
// file. It never copies the bytes it sits on — every accessor resolves to
// an atomic operation on the mapped memory itself, so changes are visible
// to every process attached to the same file.
type controlBlock struct {
	base []byte // header region, headerRegionSize bytes
}

func newControlBlock(base []byte) controlBlock {
	return controlBlock{base: base[:headerRegionSize]}
}

func (c controlBlock) atomicU32(off int) *atomic.Uint32 {
	return (*atomic.Uint32)(ptrAt(c.base, off))
}

func (c controlBlock) atomicU64(off int) *atomic.Uint64 {
	return (*atomic.Uint64)(ptrAt(c.base, off))
}

// Version/Capacity are set once at creation and never mutated afterward,
// so plain loads (no atomic needed once the writer has published them)
// would suffice; we still route through atomics for uniformity with the
// rest of the header.
func (c controlBlock) Version() uint32  { return c.atomicU32(offVersion).Load() }
func (c controlBlock) Capacity() uint32 { return c.atomicU32(offCapacity).Load() }

func (c controlBlock) setVersionCapacity(version, capacity uint32) {
	c.atomicU32(offVersion).Store(version)
	c.atomicU32(offCapacity).Store(capacity)
}

func (c controlBlock) WriteSequence() *atomic.Uint64 { return c.atomicU64(offWriteSequence) }
func (c controlBlock) WriterPID() *atomic.Uint32      { return c.atomicU32(offWriterPID) }
func (c controlBlock) LastWriteNs() *atomic.Uint64    { return c.atomicU64(offLastWriteNs) }

func (c controlBlock) ActiveSlots() *atomic.Uint64 { return c.atomicU64(offActiveSlots) }

func (c controlBlock) ReaderPID(slot int) *atomic.Uint32 {
	return (*atomic.Uint32)(ptrAt(c.base, offReaderPIDs+slot*4))
}

func (c controlBlock) ReaderTimestamp(slot int) *atomic.Uint64 {
	return (*atomic.Uint64)(ptrAt(c.base, offReaderTimestamps+slot*8))
}

func (c controlBlock) DataAvailable() *atomic.Uint32 { return c.atomicU32(offDataAvailable) }

func (c controlBlock) NotificationSequence() *atomic.Uint64 {
	return c.atomicU64(offNotificationSequence)
}

// cursorBlock is a typed view over one reader's cursor region.
type cursorBlock struct {
	base []byte // cursorBlockSize bytes
}

func cursorBlockAt(cursorArray []byte, slot int) cursorBlock {
	start := slot * cursorBlockSize
	return cursorBlock{base: cursorArray[start : start+cursorBlockSize]}
}

func (b cursorBlock) Cursor() *atomic.Uint64 {
	return (*atomic.Uint64)(ptrAt(b.base, cursorOffCursor))
}

func (b cursorBlock) Heartbeat() *atomic.Uint64 {
	return (*atomic.Uint64)(ptrAt(b.base, cursorOffHeartbeat))
}
