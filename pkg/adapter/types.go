// Package adapter is the external collector boundary (§6.5): the normalized
// Trade, Quote, and PoolEvent record types, a structural validation gate
// (Validator) for them, and a gRPC client that subscribes to an
// exchange-collector process's trade stream. The client subscribes to
// trades only — it has no quote or pool-event subscription — and it does
// not run the Validator itself; callers pass records through it before
// they are admitted to the wire codec.
//
// Adapters are an external collaborator, not a core component: this
// package assumes the upstream process already normalized
// exchange-specific formats (§1 "exchange-specific WebSocket/JSON parsing"
// is explicitly out of scope here) and preserves native precision end to
// end — prices and sizes arrive as fixed-point mantissas, never floats.
package adapter

// Trade is one normalized trade print, at the same fixed-point scale as
// protocol.TradeTLV (§3.3: value_on_wire = value * 10^8).
type Trade struct {
	Symbol         string
	PriceMantissa  int64
	VolumeMantissa int64
	TimestampNs    uint64
	Side           uint8
}

// Quote is one normalized top-of-book update, at the protocol.QuoteTLV
// scale.
type Quote struct {
	Symbol            string
	BidPriceMantissa  int64
	BidVolumeMantissa int64
	AskPriceMantissa  int64
	AskVolumeMantissa int64
	TimestampNs       uint64
}

// PoolEvent is one normalized DEX event, carrying raw u128 amounts
// big-endian exactly as protocol.PoolSwapTLV/PoolMintBurnTLV expect them —
// no float conversion ever touches a pool amount.
type PoolEvent struct {
	Pool        [20]byte
	TokenIn     [20]byte
	TokenOut    [20]byte
	AmountIn    [16]byte
	AmountOut   [16]byte
	TimestampNs uint64
}
