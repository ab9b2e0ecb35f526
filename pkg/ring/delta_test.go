package ring

import (
	"path/filepath"
	"testing"
)

func newTestDeltaRing(t *testing.T, capacity uint32) (*DeltaWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deltas.ring")
	w, err := CreateDeltaRing(path, capacity)
	if err != nil {
		t.Fatalf("CreateDeltaRing: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, path
}

func TestDeltaRingVersionChain(t *testing.T) {
	w, path := newTestDeltaRing(t, 8)
	r, err := OpenDeltaRing(path, 8)
	if err != nil {
		t.Fatalf("OpenDeltaRing: %v", err)
	}
	defer r.Close()

	w.AppendChanges(1, 7, []PriceLevelChange{{Price: 100.5, Volume: 2, SideAndAction: PackSideAction(SideBid, ActionUpdate)}}, 10)
	w.AppendChanges(1, 7, []PriceLevelChange{{Price: 100.6, Volume: 3, SideAndAction: PackSideAction(SideAsk, ActionAdd)}}, 20)

	apps, gap := r.ReadNew()
	if gap != 0 {
		t.Fatalf("unexpected gap: %d", gap)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 records, got %d", len(apps))
	}
	if apps[0].Record.Version != 1 || apps[0].Record.PrevVersion != 0 {
		t.Fatalf("unexpected first version chain: %+v", apps[0].Record)
	}
	if apps[0].ChainBroken {
		t.Fatalf("first record should chain cleanly from version 0")
	}
	if apps[1].Record.Version != 2 || apps[1].Record.PrevVersion != 1 {
		t.Fatalf("unexpected second version chain: %+v", apps[1].Record)
	}
	if apps[1].ChainBroken {
		t.Fatalf("second record should chain cleanly from the first")
	}
}

func TestDeltaRingChainBrokenAfterGap(t *testing.T) {
	const capacity = 4
	w, path := newTestDeltaRing(t, capacity)
	r, _ := OpenDeltaRing(path, capacity)
	defer r.Close()

	changes := []PriceLevelChange{{Price: 1, Volume: 1}}
	for i := 0; i < capacity*3; i++ {
		w.AppendChanges(5, 1, changes, uint64(i))
	}

	apps, gap := r.ReadNew()
	if gap == 0 {
		t.Fatalf("expected a gap")
	}
	if !apps[0].ChainBroken {
		t.Fatalf("first surviving record after a gap should report a broken chain")
	}
}

func TestDeltaRingSplitOnOverflow(t *testing.T) {
	w, path := newTestDeltaRing(t, 8)
	r, _ := OpenDeltaRing(path, 8)
	defer r.Close()

	changes := make([]PriceLevelChange, MaxChanges+5)
	for i := range changes {
		changes[i] = PriceLevelChange{Price: float32(i), Volume: 1}
	}
	w.AppendChanges(3, 1, changes, 99)

	apps, _ := r.ReadNew()
	if len(apps) != 2 {
		t.Fatalf("expected split into 2 records, got %d", len(apps))
	}
	if len(apps[0].Record.Changes) != MaxChanges {
		t.Fatalf("first split record should carry MaxChanges=%d, got %d", MaxChanges, len(apps[0].Record.Changes))
	}
	if len(apps[1].Record.Changes) != 5 {
		t.Fatalf("second split record should carry the remaining 5, got %d", len(apps[1].Record.Changes))
	}
	if apps[1].Record.PrevVersion != apps[0].Record.Version {
		t.Fatalf("split records must share a version chain: %+v then %+v", apps[0].Record, apps[1].Record)
	}
}

func TestPackUnpackSideAction(t *testing.T) {
	b := PackSideAction(SideAsk, ActionRemove)
	side, action := UnpackSideAction(b)
	if side != SideAsk || action != ActionRemove {
		t.Fatalf("round-trip mismatch: side=%d action=%d", side, action)
	}
}
