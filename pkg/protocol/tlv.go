package protocol

import "encoding/binary"

// TLV type-number partitions by domain (§3.2).
const (
	TLVMarketDataMin = 1
	TLVMarketDataMax = 19
	TLVSignalMin     = 20
	TLVSignalMax     = 39
	TLVExecutionMin  = 40
	TLVExecutionMax  = 79
	TLVSystemMin     = 100

	// ExtendedMarker is the type byte signalling the extended TLV form.
	ExtendedMarker = 255
)

// Well-known market-data TLV types with a fixed expected payload size.
const (
	TLVTypeTrade         = 1
	TLVTypeQuote         = 2
	TLVTypePoolSwap      = 3
	TLVTypePoolMint      = 4
	TLVTypePoolBurn      = 5
	TLVTypeOrderBookSnap = 10 // extended-only: full L2 snapshot
	TLVTypeOrderBookDelt = 11 // extended-only: delta batch

	TLVTypeArbitrageOpportunity = 20

	TLVTypeRecoveryRequest = 100
)

// fixedSizes maps a well-known TLV type to its required standard-form
// payload size. Types absent from this map pass through undecoded (§4.1
// "Size policy"). Only types small enough for the standard form (<=255
// bytes) belong here; OrderBookSnap/Delta are extended-only and validated
// by their own decoders instead.
var fixedSizes = map[uint8]int{
	TLVTypeTrade:    TradeTLVSize,
	TLVTypeQuote:    QuoteTLVSize,
	TLVTypePoolSwap: PoolSwapTLVSize,
	TLVTypePoolMint: PoolMintBurnTLVSize,
	TLVTypePoolBurn: PoolMintBurnTLVSize,
}

// ExpectedPayloadSize returns the declared fixed size for a well-known TLV
// type, or ok=false if the type is unconstrained (pass-through).
func ExpectedPayloadSize(tlvType uint8) (size int, ok bool) {
	size, ok = fixedSizes[tlvType]
	return size, ok
}

// TLV is a decoded extension: its type, and a borrowed slice of its payload
// (never copied on the parse path — it aliases the input buffer).
type TLV struct {
	Type    uint8
	Payload []byte
}

// ParseTLVExtensions walks the full TLV region in a single pass, returning
// every extension in wire order. The scanner stops at the first error
// (§4.1 "Failure semantics": truncation is cascading, never silently skipped).
func ParseTLVExtensions(data []byte) ([]TLV, error) {
	var out []TLV
	offset := 0
	for offset < len(data) {
		tlv, next, err := parseOneTLV(data, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, tlv)
		offset = next
	}
	return out, nil
}

// parseOneTLV decodes a single TLV (standard or extended) starting at offset,
// returning the decoded TLV and the offset of the next TLV.
func parseOneTLV(data []byte, offset int) (TLV, int, error) {
	if offset+1 > len(data) {
		return TLV{}, 0, &ParseError{Kind: ErrTruncatedTLV, Offset: offset}
	}

	if data[offset] == ExtendedMarker {
		const extHeaderSize = 5
		if offset+extHeaderSize > len(data) {
			return TLV{}, 0, &ParseError{Kind: ErrTruncatedTLV, Offset: offset}
		}
		reserved := data[offset+1]
		actualType := data[offset+2]
		length := int(binary.LittleEndian.Uint16(data[offset+3 : offset+5]))
		if reserved != 0 {
			return TLV{}, 0, &ParseError{Kind: ErrInvalidExtendedTLV, Offset: offset}
		}
		payloadStart := offset + extHeaderSize
		payloadEnd := payloadStart + length
		if payloadEnd > len(data) {
			return TLV{}, 0, &ParseError{Kind: ErrTruncatedTLV, Offset: offset}
		}
		return TLV{Type: actualType, Payload: data[payloadStart:payloadEnd]}, payloadEnd, nil
	}

	const stdHeaderSize = 2
	if offset+stdHeaderSize > len(data) {
		return TLV{}, 0, &ParseError{Kind: ErrTruncatedTLV, Offset: offset}
	}
	tlvType := data[offset]
	length := int(data[offset+1])
	payloadStart := offset + stdHeaderSize
	payloadEnd := payloadStart + length
	if payloadEnd > len(data) {
		return TLV{}, 0, &ParseError{Kind: ErrTruncatedTLV, Offset: offset}
	}

	if expected, ok := ExpectedPayloadSize(tlvType); ok && length != expected {
		return TLV{}, 0, &ParseError{Kind: ErrPayloadTooLarge, Got: length, Offset: offset}
	}

	return TLV{Type: tlvType, Payload: data[payloadStart:payloadEnd]}, payloadEnd, nil
}

// FindTLVByType performs an O(n) scan for the first TLV of the given type,
// returning a borrowed slice with no allocation. It stops scanning (and
// returns not-found) at the first malformed TLV it encounters.
func FindTLVByType(data []byte, tlvType uint8) ([]byte, bool) {
	offset := 0
	for offset < len(data) {
		tlv, next, err := parseOneTLV(data, offset)
		if err != nil {
			return nil, false
		}
		if tlv.Type == tlvType {
			return tlv.Payload, true
		}
		offset = next
	}
	return nil, false
}

// EncodeStandardTLV appends a standard-form TLV (type 1-254, payload<=255) to dst.
func EncodeStandardTLV(dst []byte, tlvType uint8, payload []byte) []byte {
	dst = append(dst, tlvType, byte(len(payload)))
	return append(dst, payload...)
}

// EncodeExtendedTLV appends an extended-form TLV (type=255 marker) to dst.
func EncodeExtendedTLV(dst []byte, actualType uint8, payload []byte) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	dst = append(dst, ExtendedMarker, 0, actualType)
	dst = append(dst, lenBuf[:]...)
	return append(dst, payload...)
}

// EncodeTLV picks the standard form when the payload fits in a byte, the
// extended form otherwise.
func EncodeTLV(dst []byte, tlvType uint8, payload []byte) []byte {
	if len(payload) <= 255 {
		return EncodeStandardTLV(dst, tlvType, payload)
	}
	return EncodeExtendedTLV(dst, tlvType, payload)
}
