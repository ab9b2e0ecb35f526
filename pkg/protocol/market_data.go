package protocol

import "encoding/binary"

// Fixed-point scale applied to all prices/volumes crossing the wire (§3.3
// "Precision"): value_on_wire = value * 10^8. Conversion to/from decimal
// happens only at the edges (collectors on the way in, consumers on the way
// out); nothing between the two edges does floating-point arithmetic on a
// price.
const PriceScale = 100_000_000

// TradeTLVSize is the fixed wire size of TradeTLV (TLVTypeTrade).
const TradeTLVSize = 32

// TradeTLV is the fixed-size market-data record for a single trade print.
// Layout (little-endian, matches MarshalBinary below):
//
//	PriceMantissa  int64   0:8
//	VolumeMantissa int64   8:16
//	TimestampNs    uint64  16:24
//	SymbolID       uint32  24:28
//	Side           uint8   28:29
//	_pad           [3]byte 29:32
type TradeTLV struct {
	PriceMantissa  int64
	VolumeMantissa int64
	TimestampNs    uint64
	SymbolID       uint32
	Side           uint8
}

// MarshalBinary encodes t into a new 32-byte buffer.
func (t TradeTLV) MarshalBinary() []byte {
	buf := make([]byte, TradeTLVSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t.PriceMantissa))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(t.VolumeMantissa))
	binary.LittleEndian.PutUint64(buf[16:24], t.TimestampNs)
	binary.LittleEndian.PutUint32(buf[24:28], t.SymbolID)
	buf[28] = t.Side
	return buf
}

// UnmarshalTradeTLV decodes a TradeTLV payload. The caller must ensure
// len(payload) == TradeTLVSize (the codec enforces this via fixedSizes).
func UnmarshalTradeTLV(payload []byte) (TradeTLV, error) {
	if len(payload) != TradeTLVSize {
		return TradeTLV{}, &ParseError{Kind: ErrPayloadTooLarge, Got: len(payload)}
	}
	return TradeTLV{
		PriceMantissa:  int64(binary.LittleEndian.Uint64(payload[0:8])),
		VolumeMantissa: int64(binary.LittleEndian.Uint64(payload[8:16])),
		TimestampNs:    binary.LittleEndian.Uint64(payload[16:24]),
		SymbolID:       binary.LittleEndian.Uint32(payload[24:28]),
		Side:           payload[28],
	}, nil
}

// QuoteTLVSize is the fixed wire size of QuoteTLV (TLVTypeQuote).
const QuoteTLVSize = 48

// QuoteTLV is the fixed-size market-data record for a top-of-book update.
type QuoteTLV struct {
	BidPriceMantissa  int64
	BidVolumeMantissa int64
	AskPriceMantissa  int64
	AskVolumeMantissa int64
	TimestampNs       uint64
	SymbolID          uint32
}

// MarshalBinary encodes q into a new 48-byte buffer.
func (q QuoteTLV) MarshalBinary() []byte {
	buf := make([]byte, QuoteTLVSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(q.BidPriceMantissa))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(q.BidVolumeMantissa))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(q.AskPriceMantissa))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(q.AskVolumeMantissa))
	binary.LittleEndian.PutUint64(buf[32:40], q.TimestampNs)
	binary.LittleEndian.PutUint32(buf[40:44], q.SymbolID)
	return buf
}

// UnmarshalQuoteTLV decodes a QuoteTLV payload.
func UnmarshalQuoteTLV(payload []byte) (QuoteTLV, error) {
	if len(payload) != QuoteTLVSize {
		return QuoteTLV{}, &ParseError{Kind: ErrPayloadTooLarge, Got: len(payload)}
	}
	return QuoteTLV{
		BidPriceMantissa:  int64(binary.LittleEndian.Uint64(payload[0:8])),
		BidVolumeMantissa: int64(binary.LittleEndian.Uint64(payload[8:16])),
		AskPriceMantissa:  int64(binary.LittleEndian.Uint64(payload[16:24])),
		AskVolumeMantissa: int64(binary.LittleEndian.Uint64(payload[24:32])),
		TimestampNs:       binary.LittleEndian.Uint64(payload[32:40]),
		SymbolID:          binary.LittleEndian.Uint32(payload[40:44]),
	}, nil
}

// PoolSwapTLVSize is the fixed wire size of PoolSwapTLV (TLVTypePoolSwap).
// Pool and token addresses are 20 bytes (§3.6); amounts are big-endian u128.
const PoolSwapTLVSize = 20 + 20 + 20 + 16 + 16 + 8

// PoolSwapTLV carries a single DEX swap event from a collector adapter into
// the pool state store (§4.5 "Swap").
type PoolSwapTLV struct {
	Pool        [20]byte
	TokenIn     [20]byte
	TokenOut    [20]byte
	AmountIn    [16]byte // big-endian u128
	AmountOut   [16]byte // big-endian u128
	TimestampNs uint64
}

// MarshalBinary encodes s into a new PoolSwapTLVSize-byte buffer.
func (s PoolSwapTLV) MarshalBinary() []byte {
	buf := make([]byte, PoolSwapTLVSize)
	copy(buf[0:20], s.Pool[:])
	copy(buf[20:40], s.TokenIn[:])
	copy(buf[40:60], s.TokenOut[:])
	copy(buf[60:76], s.AmountIn[:])
	copy(buf[76:92], s.AmountOut[:])
	binary.LittleEndian.PutUint64(buf[92:100], s.TimestampNs)
	return buf
}

// UnmarshalPoolSwapTLV decodes a PoolSwapTLV payload.
func UnmarshalPoolSwapTLV(payload []byte) (PoolSwapTLV, error) {
	if len(payload) != PoolSwapTLVSize {
		return PoolSwapTLV{}, &ParseError{Kind: ErrPayloadTooLarge, Got: len(payload)}
	}
	var s PoolSwapTLV
	copy(s.Pool[:], payload[0:20])
	copy(s.TokenIn[:], payload[20:40])
	copy(s.TokenOut[:], payload[40:60])
	copy(s.AmountIn[:], payload[60:76])
	copy(s.AmountOut[:], payload[76:92])
	s.TimestampNs = binary.LittleEndian.Uint64(payload[92:100])
	return s, nil
}

// PoolMintBurnTLVSize is the fixed wire size of PoolMintBurnTLV.
const PoolMintBurnTLVSize = 20 + 16 + 16 + 8

// PoolMintBurnTLV carries a signed liquidity change (mint if positive
// amounts, burn if negative — the sign lives in the caller's event kind,
// §4.5 "Mint/Burn").
type PoolMintBurnTLV struct {
	Pool        [20]byte
	Amount0     [16]byte // big-endian u128 magnitude
	Amount1     [16]byte // big-endian u128 magnitude
	TimestampNs uint64
}

// MarshalBinary encodes m into a new PoolMintBurnTLVSize-byte buffer.
func (m PoolMintBurnTLV) MarshalBinary() []byte {
	buf := make([]byte, PoolMintBurnTLVSize)
	copy(buf[0:20], m.Pool[:])
	copy(buf[20:36], m.Amount0[:])
	copy(buf[36:52], m.Amount1[:])
	binary.LittleEndian.PutUint64(buf[52:60], m.TimestampNs)
	return buf
}

// UnmarshalPoolMintBurnTLV decodes a PoolMintBurnTLV payload.
func UnmarshalPoolMintBurnTLV(payload []byte) (PoolMintBurnTLV, error) {
	if len(payload) != PoolMintBurnTLVSize {
		return PoolMintBurnTLV{}, &ParseError{Kind: ErrPayloadTooLarge, Got: len(payload)}
	}
	var m PoolMintBurnTLV
	copy(m.Pool[:], payload[0:20])
	copy(m.Amount0[:], payload[20:36])
	copy(m.Amount1[:], payload[36:52])
	m.TimestampNs = binary.LittleEndian.Uint64(payload[52:60])
	return m, nil
}
