package ring

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestTradeRing(t *testing.T, capacity uint32) (*TradeWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.ring")
	w, err := CreateTradeRing(path, capacity)
	if err != nil {
		t.Fatalf("CreateTradeRing: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, path
}

func TestTradeRingRoundTrip(t *testing.T) {
	w, path := newTestTradeRing(t, 8)
	r, err := OpenTradeRing(path, 8)
	if err != nil {
		t.Fatalf("OpenTradeRing: %v", err)
	}
	defer r.Close()

	want := TradeRecord{SymbolID: 1, Side: 'B', PriceMantissa: 100_00000000, VolumeMantissa: 5_00000000, TimestampNs: 42}
	w.Append(want)

	got, gap := r.ReadNew()
	if gap != 0 {
		t.Fatalf("unexpected gap: %d", gap)
	}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// No new data: a second ReadNew returns nothing.
	got, gap = r.ReadNew()
	if len(got) != 0 || gap != 0 {
		t.Fatalf("expected empty read, got %+v gap=%d", got, gap)
	}
}

func TestTradeRingMultipleReadersIndependentCursors(t *testing.T) {
	w, path := newTestTradeRing(t, 8)
	r1, _ := OpenTradeRing(path, 8)
	defer r1.Close()

	for i := 0; i < 3; i++ {
		w.Append(TradeRecord{SymbolID: uint32(i)})
	}
	got1, _ := r1.ReadNew()
	if len(got1) != 3 {
		t.Fatalf("r1 expected 3 records, got %d", len(got1))
	}

	r2, _ := OpenTradeRing(path, 8)
	defer r2.Close()
	w.Append(TradeRecord{SymbolID: 99})

	got2, _ := r2.ReadNew()
	if len(got2) != 1 || got2[0].SymbolID != 99 {
		t.Fatalf("r2 (joined late) expected only the new record, got %+v", got2)
	}
}

func TestTradeRingOverwriteDetection(t *testing.T) {
	const capacity = 4
	w, path := newTestTradeRing(t, capacity)
	r, _ := OpenTradeRing(path, capacity)
	defer r.Close()

	// Overtake the reader by more than capacity before it reads anything.
	for i := 0; i < capacity*3; i++ {
		w.Append(TradeRecord{SymbolID: uint32(i)})
	}

	got, gap := r.ReadNew()
	if gap == 0 {
		t.Fatalf("expected a reported gap after overwrite")
	}
	// Cursor advances to write_sequence-capacity+1 (§4.2), so the reader
	// recovers capacity-1 still-valid records, not the full window.
	if len(got) != capacity-1 {
		t.Fatalf("expected %d surviving records, got %d", capacity-1, len(got))
	}
	if got[0].SymbolID != uint32(capacity*3-capacity+1) {
		t.Fatalf("unexpected first surviving record: %+v", got[0])
	}
}

func TestTradeRingWaitForData(t *testing.T) {
	w, path := newTestTradeRing(t, 8)
	r, _ := OpenTradeRing(path, 8)
	defer r.Close()

	done := make(chan []TradeRecord, 1)
	go func() {
		recs, _ := r.WaitForData(2 * time.Second)
		done <- recs
	}()

	time.Sleep(5 * time.Millisecond)
	w.Append(TradeRecord{SymbolID: 7})

	select {
	case recs := <-done:
		if len(recs) != 1 || recs[0].SymbolID != 7 {
			t.Fatalf("unexpected wake result: %+v", recs)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("WaitForData never returned")
	}
}

func TestTradeRingWaitForDataTimeout(t *testing.T) {
	_, path := newTestTradeRing(t, 8)
	r, _ := OpenTradeRing(path, 8)
	defer r.Close()

	start := time.Now()
	recs, gap := r.WaitForData(20 * time.Millisecond)
	if len(recs) != 0 || gap != 0 {
		t.Fatalf("expected no records on timeout, got %+v", recs)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatalf("returned suspiciously early")
	}
}

func TestReaderRegistryClaimExhaustion(t *testing.T) {
	_, path := newTestTradeRing(t, 8)

	var readers []*TradeReader
	for i := 0; i < MaxReaders; i++ {
		r, err := OpenTradeRing(path, 8)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		readers = append(readers, r)
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	if _, err := OpenTradeRing(path, 8); err != ErrNoFreeSlot {
		t.Fatalf("expected ErrNoFreeSlot once registry is full, got %v", err)
	}

	// Releasing one frees exactly one slot.
	readers[0].Close()
	readers = readers[1:]
	r, err := OpenTradeRing(path, 8)
	if err != nil {
		t.Fatalf("expected a slot to be reclaimed after release: %v", err)
	}
	r.Close()
}
