package poolstore

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Store is the single-writer, many-reader pool state table (§4.5
// "Concurrency"). Each pool's current *State is published behind an
// atomic.Pointer; writers build a new State and swap the pointer in, so a
// reader in flight either sees the whole pre-update state or the whole
// post-update state, never a partial mutation.
type Store struct {
	mu    sync.RWMutex
	pools map[common.Address]*atomic.Pointer[State]

	// byPair indexes pool addresses by unordered token pair, so the
	// arbitrage detector can enumerate every other pool trading the same
	// two tokens on a swap (§4.6 step 1).
	byPair map[pairKey][]common.Address
}

// pairKey is an unordered token-pair key: the two addresses sorted
// byte-wise so (X,Y) and (Y,X) hash identically.
type pairKey [2]common.Address

func makePairKey(a, b common.Address) pairKey {
	if bytesLess(b[:], a[:]) {
		a, b = b, a
	}
	return pairKey{a, b}
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// New returns an empty pool store.
func New() *Store {
	return &Store{
		pools:  make(map[common.Address]*atomic.Pointer[State]),
		byPair: make(map[pairKey][]common.Address),
	}
}

// PoolsForPair returns every known pool address trading the unordered pair
// (tokenA, tokenB), in registration order.
func (s *Store) PoolsForPair(tokenA, tokenB common.Address) []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := s.byPair[makePairKey(tokenA, tokenB)]
	out := make([]common.Address, len(addrs))
	copy(out, addrs)
	return out
}

// UpsertPool registers metadata for a pool, or no-ops if metadata for this
// address is already known (idempotent — §4.5). Decimals are immutable
// after first insertion; a conflicting re-insert is an error.
func (s *Store) UpsertPool(address common.Address, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ptr, ok := s.pools[address]; ok {
		existing := ptr.Load().Metadata
		if existing.Decimals0 != meta.Decimals0 || existing.Decimals1 != meta.Decimals1 {
			return newError(ErrDecimalsImmutable, address, "decimals cannot change after first insertion")
		}
		return nil
	}

	state := &State{Address: address, Metadata: meta}
	switch meta.Kind {
	case KindConstantProduct:
		state.CP = &ConstantProductState{
			Reserve0:       new(uint256.Int),
			Reserve1:       new(uint256.Int),
			FeeBasisPoints: meta.FeeBasisPoints,
		}
	case KindConcentratedLiquidity:
		state.CL = &ConcentratedLiquidityState{
			Liquidity:      new(uint256.Int),
			SqrtPriceX96:   new(uint256.Int),
			FeeBasisPoints: meta.FeeBasisPoints,
		}
	}

	ptr := &atomic.Pointer[State]{}
	ptr.Store(state)
	s.pools[address] = ptr

	key := makePairKey(meta.Token0, meta.Token1)
	s.byPair[key] = append(s.byPair[key], address)
	return nil
}

// Get returns a consistent snapshot of the pool's current state.
func (s *Store) Get(address common.Address) (*State, bool) {
	s.mu.RLock()
	ptr, ok := s.pools[address]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ptr.Load(), true
}

// ApplyEvent updates pool address per event's kind (§4.5 "Operations").
// The caller's event is applied to a cloned copy of the current state,
// which is then published; the previous State a reader already holds is
// never mutated.
func (s *Store) ApplyEvent(address common.Address, event Event) error {
	s.mu.RLock()
	ptr, ok := s.pools[address]
	s.mu.RUnlock()
	if !ok {
		return newError(ErrPoolNotFound, address, "apply_event on unknown pool")
	}

	prev := ptr.Load()
	next := prev.clone()

	var err error
	switch e := event.(type) {
	case SwapEvent:
		err = applySwap(next, e)
	case MintEvent:
		err = applyMint(next, e)
	case BurnEvent:
		err = applyBurn(next, e)
	case TickCrossEvent:
		err = applyTickCross(next, e)
	case LiquiditySnapshotEvent:
		err = applySnapshot(next, e)
	default:
		err = newError(ErrUnknownEvent, address, "event type not in the closed event set")
	}
	if err != nil {
		if kindErr, isKindErr := err.(*Error); isKindErr {
			kindErr.Pool = address
		}
		if next.Stale && !prev.Stale {
			// The rejected update is discarded, but the stale mark is
			// published on an otherwise unchanged copy of the previous state.
			staled := prev.clone()
			staled.Stale = true
			ptr.Store(staled)
		}
		return err
	}

	ptr.Store(next)
	return nil
}

func applySwap(s *State, e SwapEvent) error {
	switch s.Metadata.Kind {
	case KindConstantProduct:
		if !fitsUint128(e.NewReserve0) || !fitsUint128(e.NewReserve1) {
			s.Stale = true
			return &Error{Kind: ErrOverflow, Message: "swap reserve exceeds u128"}
		}
		s.CP.Reserve0 = new(uint256.Int).Set(e.NewReserve0)
		s.CP.Reserve1 = new(uint256.Int).Set(e.NewReserve1)
	case KindConcentratedLiquidity:
		if !fitsUint160(e.NewSqrtPriceX96) {
			s.Stale = true
			return &Error{Kind: ErrOverflow, Message: "swap sqrt_price_x96 exceeds u160"}
		}
		s.CL.SqrtPriceX96 = new(uint256.Int).Set(e.NewSqrtPriceX96)
		s.CL.CurrentTick = e.NewTick
	}
	s.LastUpdateNs = e.TimestampNs
	return nil
}

func applyMint(s *State, e MintEvent) error {
	switch s.Metadata.Kind {
	case KindConstantProduct:
		r0, overflow0 := new(uint256.Int).AddOverflow(s.CP.Reserve0, e.DeltaReserve0)
		r1, overflow1 := new(uint256.Int).AddOverflow(s.CP.Reserve1, e.DeltaReserve1)
		if overflow0 || overflow1 || !fitsUint128(r0) || !fitsUint128(r1) {
			s.Stale = true
			return &Error{Kind: ErrOverflow, Message: "mint reserve delta overflows u128"}
		}
		s.CP.Reserve0, s.CP.Reserve1 = r0, r1
	case KindConcentratedLiquidity:
		liq, overflow := new(uint256.Int).AddOverflow(s.CL.Liquidity, e.DeltaLiquidity)
		if overflow || !fitsUint128(liq) {
			s.Stale = true
			return &Error{Kind: ErrOverflow, Message: "mint liquidity delta overflows u128"}
		}
		s.CL.Liquidity = liq
	}
	s.LastUpdateNs = e.TimestampNs
	return nil
}

func applyBurn(s *State, e BurnEvent) error {
	switch s.Metadata.Kind {
	case KindConstantProduct:
		r0, underflow0 := new(uint256.Int).SubOverflow(s.CP.Reserve0, e.DeltaReserve0)
		r1, underflow1 := new(uint256.Int).SubOverflow(s.CP.Reserve1, e.DeltaReserve1)
		if underflow0 || underflow1 {
			return &Error{Kind: ErrUnderflow, Message: "burn reserve delta exceeds current reserve"}
		}
		s.CP.Reserve0, s.CP.Reserve1 = r0, r1
	case KindConcentratedLiquidity:
		liq, underflow := new(uint256.Int).SubOverflow(s.CL.Liquidity, e.DeltaLiquidity)
		if underflow {
			return &Error{Kind: ErrUnderflow, Message: "burn liquidity delta exceeds current liquidity"}
		}
		s.CL.Liquidity = liq
	}
	s.LastUpdateNs = e.TimestampNs
	return nil
}

func applyTickCross(s *State, e TickCrossEvent) error {
	if s.Metadata.Kind != KindConcentratedLiquidity {
		return &Error{Kind: ErrKindMismatch, Message: "tick_cross applies only to concentrated-liquidity pools"}
	}
	if !fitsUint128(e.NewLiquidity) {
		s.Stale = true
		return &Error{Kind: ErrOverflow, Message: "tick_cross liquidity exceeds u128"}
	}
	s.CL.CurrentTick = e.NewTick
	s.CL.Liquidity = new(uint256.Int).Set(e.NewLiquidity)
	s.LastUpdateNs = e.TimestampNs
	return nil
}

func applySnapshot(s *State, e LiquiditySnapshotEvent) error {
	switch s.Metadata.Kind {
	case KindConstantProduct:
		if !fitsUint128(e.Reserve0) || !fitsUint128(e.Reserve1) {
			s.Stale = true
			return &Error{Kind: ErrOverflow, Message: "snapshot reserve exceeds u128"}
		}
		s.CP.Reserve0 = new(uint256.Int).Set(e.Reserve0)
		s.CP.Reserve1 = new(uint256.Int).Set(e.Reserve1)
	case KindConcentratedLiquidity:
		if !fitsUint128(e.Liquidity) || !fitsUint160(e.SqrtPriceX96) {
			s.Stale = true
			return &Error{Kind: ErrOverflow, Message: "snapshot liquidity/sqrt_price exceeds bound"}
		}
		s.CL.Liquidity = new(uint256.Int).Set(e.Liquidity)
		s.CL.SqrtPriceX96 = new(uint256.Int).Set(e.SqrtPriceX96)
		s.CL.CurrentTick = e.CurrentTick
	}
	s.Stale = false
	s.LastUpdateNs = e.TimestampNs
	return nil
}
