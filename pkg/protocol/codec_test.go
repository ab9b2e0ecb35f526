package protocol

import (
	"bytes"
	"testing"
)

func buildSimple(t *testing.T, domain RelayDomain, tlvs []TLV) []byte {
	t.Helper()
	msg, err := Build(BuildFields{
		RelayDomain: domain,
		Version:     ProtocolVersion,
		Source:      7,
		Sequence:    42,
		TimestampNs: 1_700_000_000_000_000_000,
	}, tlvs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return msg
}

func TestBuildParseRoundTrip(t *testing.T) {
	trade := TradeTLV{PriceMantissa: 123 * PriceScale, VolumeMantissa: 5 * PriceScale, TimestampNs: 99, SymbolID: 1, Side: 'B'}
	msg := buildSimple(t, DomainMarketData, []TLV{{Type: TLVTypeTrade, Payload: trade.MarshalBinary()}})

	h, tlvs, err := ParseMessage(msg, true)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if h.Sequence != 42 || h.Source != 7 || h.RelayDomain != DomainMarketData {
		t.Fatalf("unexpected header: %+v", h)
	}
	if len(tlvs) != 1 || tlvs[0].Type != TLVTypeTrade {
		t.Fatalf("unexpected tlvs: %+v", tlvs)
	}
	got, err := UnmarshalTradeTLV(tlvs[0].Payload)
	if err != nil || got != trade {
		t.Fatalf("trade round-trip mismatch: %+v err=%v", got, err)
	}

	// Invariant 1: build(parse(M)) == M (byte-exact).
	rebuilt, err := Build(BuildFields{
		RelayDomain: h.RelayDomain,
		Version:     h.Version,
		Source:      h.Source,
		Flags:       h.Flags,
		Sequence:    h.Sequence,
		TimestampNs: h.TimestampNs,
	}, tlvs)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !bytes.Equal(rebuilt, msg) {
		t.Fatalf("round-trip not byte exact:\n got  %x\n want %x", rebuilt, msg)
	}
}

func TestParseHeaderTooSmall(t *testing.T) {
	_, err := ParseHeader(make([]byte, 10))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrMessageTooSmall {
		t.Fatalf("expected ErrMessageTooSmall, got %v", err)
	}
}

func TestParseHeaderInvalidMagic(t *testing.T) {
	msg := buildSimple(t, DomainMarketData, nil)
	msg[0] ^= 0xFF
	_, err := ParseHeader(msg)
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrInvalidMagic {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestChecksumMismatchDetected(t *testing.T) {
	msg := buildSimple(t, DomainExecution, nil)
	msg[12] ^= 0xFF // corrupt a sequence byte so the checksum no longer matches
	_, _, err := ParseMessage(msg, true)
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrChecksumMismatch {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestChecksumOptionalForMarketData(t *testing.T) {
	msg := buildSimple(t, DomainMarketData, nil)
	msg[HeaderSize-1] ^= 0xFF // corrupt the checksum field itself

	if _, _, err := ParseMessage(msg, false); err != nil {
		t.Fatalf("market-data checksum should be skippable when not required: %v", err)
	}
	if _, _, err := ParseMessage(msg, true); err == nil {
		t.Fatalf("expected checksum mismatch once verification is requested")
	}
}

func TestTruncatedTLVOffset(t *testing.T) {
	data := []byte{5, 10, 1, 2, 3} // type=5, length=10, only 3 payload bytes present
	_, err := ParseTLVExtensions(data)
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrTruncatedTLV || pe.Offset != 0 {
		t.Fatalf("expected TruncatedTLV at offset 0, got %v", err)
	}
}

func TestExtendedTLVRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1000)
	var buf []byte
	buf = EncodeTLV(buf, 200, payload)

	tlvs, err := ParseTLVExtensions(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tlvs) != 1 || tlvs[0].Type != 200 || len(tlvs[0].Payload) != 1000 {
		t.Fatalf("unexpected: %+v", tlvs)
	}
	if !bytes.Equal(tlvs[0].Payload, payload) {
		t.Fatalf("payload mismatch")
	}

	reEncoded := EncodeTLV(nil, 200, tlvs[0].Payload)
	if !bytes.Equal(reEncoded, buf) {
		t.Fatalf("re-serialize not byte exact")
	}
}

func TestStandardTLVBoundaries(t *testing.T) {
	// length = 0
	buf := EncodeStandardTLV(nil, 50, nil)
	tlvs, err := ParseTLVExtensions(buf)
	if err != nil || len(tlvs) != 1 || len(tlvs[0].Payload) != 0 {
		t.Fatalf("zero-length TLV failed: %+v err=%v", tlvs, err)
	}

	// length = 255 (max standard)
	p255 := bytes.Repeat([]byte{1}, 255)
	buf = EncodeStandardTLV(nil, 50, p255)
	tlvs, err = ParseTLVExtensions(buf)
	if err != nil || len(tlvs[0].Payload) != 255 {
		t.Fatalf("255-byte standard TLV failed: err=%v", err)
	}

	// length = 256 must use extended encoding (distinct from standard)
	p256 := bytes.Repeat([]byte{1}, 256)
	buf = EncodeTLV(nil, 50, p256)
	if buf[0] != ExtendedMarker {
		t.Fatalf("256-byte payload did not choose extended form")
	}
	tlvs, err = ParseTLVExtensions(buf)
	if err != nil || len(tlvs[0].Payload) != 256 {
		t.Fatalf("256-byte extended TLV failed: err=%v", err)
	}
}

func TestPayloadSizeBoundary(t *testing.T) {
	big := bytes.Repeat([]byte{1}, MaxPayloadSize)
	if _, err := Build(BuildFields{RelayDomain: DomainMarketData}, []TLV{{Type: 200, Payload: big[:MaxPayloadSize-5]}}); err != nil {
		t.Fatalf("65535-byte payload should be accepted: %v", err)
	}

	tooBig := bytes.Repeat([]byte{1}, MaxPayloadSize+1)
	if _, err := Build(BuildFields{RelayDomain: DomainMarketData}, []TLV{{Type: 200, Payload: tooBig}}); err == nil {
		t.Fatalf("65536-byte payload should be rejected")
	}
}

func TestFindTLVByType(t *testing.T) {
	trade := TradeTLV{PriceMantissa: 1, VolumeMantissa: 1}
	var buf []byte
	buf = EncodeStandardTLV(buf, TLVTypeTrade, trade.MarshalBinary())
	buf = EncodeStandardTLV(buf, 99, []byte("hello"))

	payload, ok := FindTLVByType(buf, 99)
	if !ok || string(payload) != "hello" {
		t.Fatalf("FindTLVByType failed: %v %v", payload, ok)
	}

	_, ok = FindTLVByType(buf, 42)
	if ok {
		t.Fatalf("expected not found for type 42")
	}
}

func TestFixedSizeMismatchRejected(t *testing.T) {
	buf := EncodeStandardTLV(nil, TLVTypeTrade, []byte{1, 2, 3}) // wrong size for Trade
	_, err := ParseTLVExtensions(buf)
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrPayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge (size mismatch), got %v", err)
	}
}
