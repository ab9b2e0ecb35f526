package ring

import "unsafe"

// MaxReaders bounds the reader registry (§3.4: "supports up to 64; this
// design uses 16").
const MaxReaders = 16

// Control-block byte offsets within the header region. Every atomic field
// is naturally aligned (a requirement on weakly ordered platforms per the
// Apple Silicon alignment note).
const (
	offVersion              = 0
	offCapacity              = 4
	offWriteSequence         = 8
	offWriterPID             = 16
	offLastWriteNs           = 24
	offActiveSlots           = 32
	offReaderPIDs            = 40                          // [MaxReaders]uint32
	offReaderTimestamps      = offReaderPIDs + MaxReaders*4 // [MaxReaders]uint64
	offDataAvailable         = offReaderTimestamps + MaxReaders*8
	offNotificationSequence  = offDataAvailable + 8 // +4 padding to keep u64 aligned
	controlBlockBytes        = offNotificationSequence + 8
)

// headerRegionSize is the control block rounded up to a whole number of
// cache lines so the reader-cursor array that follows starts on a line
// boundary.
var headerRegionSize = alignUp(controlBlockBytes, CacheLineSize)

// Cursor block offsets (one block per reader slot, cache-line padded).
const (
	cursorOffCursor    = 0
	cursorOffHeartbeat = 8
)

var cursorBlockSize = CacheLineSize

func cursorArrayOffset() int { return headerRegionSize }
func cursorArraySize() int   { return MaxReaders * cursorBlockSize }
func recordRegionOffset() int {
	return headerRegionSize + cursorArraySize()
}

// ptrAt returns an unsafe.Pointer into base at byte offset off.
func ptrAt(base []byte, off int) unsafe.Pointer {
	return unsafe.Pointer(&base[off])
}
