// Package protocol implements the TLV message envelope: a fixed 32-byte
// header followed by 0..65535 bytes of standard or extended TLV extensions.
// Every function here is a pure transform over byte slices — no I/O.
package protocol

import (
	"encoding/binary"
	"hash/crc32"
)

// HeaderSize is the fixed on-wire size of a MessageHeader.
const HeaderSize = 32

// MaxPayloadSize is the largest payload_size the header can declare.
const MaxPayloadSize = 65535

// Magic is the resynchronization sentinel at the start of every message.
const Magic uint32 = 0xDEADBEEF

// RelayDomain partitions message types by trust/throughput profile.
type RelayDomain uint8

const (
	DomainMarketData RelayDomain = 1
	DomainSignal     RelayDomain = 2
	DomainExecution  RelayDomain = 3
)

func (d RelayDomain) String() string {
	switch d {
	case DomainMarketData:
		return "MarketData"
	case DomainSignal:
		return "Signal"
	case DomainExecution:
		return "Execution"
	default:
		return "Unknown"
	}
}

// Valid reports whether d is one of the three defined relay domains.
func (d RelayDomain) Valid() bool {
	switch d {
	case DomainMarketData, DomainSignal, DomainExecution:
		return true
	default:
		return false
	}
}

// ProtocolVersion is the major wire version this codec produces and accepts.
const ProtocolVersion uint8 = 2

// Header is the 32-byte fixed envelope preceding every message's TLV payload.
// Field order and widths are bit-exact with §3.1 / §6.1 (little-endian).
type Header struct {
	Magic        uint32
	RelayDomain  RelayDomain
	Version      uint8
	Source       uint8
	Flags        uint8
	PayloadSize  uint32
	Sequence     uint64
	TimestampNs  uint64
	Checksum     uint32
}

// ParseHeader decodes and validates the fixed header from the front of data.
// It does not slice the TLV payload — callers use header.PayloadSize to do that.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &ParseError{Kind: ErrMessageTooSmall, Need: HeaderSize, Got: len(data)}
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != Magic {
		return Header{}, &ParseError{Kind: ErrInvalidMagic, Expected: uint64(Magic), Actual: uint64(magic)}
	}

	h := Header{
		Magic:       magic,
		RelayDomain: RelayDomain(data[4]),
		Version:     data[5],
		Source:      data[6],
		Flags:       data[7],
		PayloadSize: binary.LittleEndian.Uint32(data[8:12]),
		Sequence:    binary.LittleEndian.Uint64(data[12:20]),
		TimestampNs: binary.LittleEndian.Uint64(data[20:28]),
		Checksum:    binary.LittleEndian.Uint32(data[28:32]),
	}

	if h.PayloadSize > MaxPayloadSize {
		return Header{}, &ParseError{Kind: ErrPayloadTooLarge, Got: int(h.PayloadSize)}
	}

	return h, nil
}

// VerifyChecksum validates the header's checksum against the full message
// bytes (header+payload), as required for the execution domain and optional
// for market data (§4.1 "Checksum").
func VerifyChecksum(h Header, full []byte) bool {
	return h.Checksum == computeChecksum(full)
}

// computeChecksum returns the CRC32(IEEE) of full with the checksum field
// (bytes 28:32) zeroed, matching §6.1's polynomial (0xEDB88320 reversed,
// i.e. crc32.IEEETable).
func computeChecksum(full []byte) uint32 {
	if len(full) < HeaderSize {
		return 0
	}
	buf := make([]byte, len(full))
	copy(buf, full)
	binary.LittleEndian.PutUint32(buf[28:32], 0)
	return crc32.ChecksumIEEE(buf)
}

// putHeader writes h into dst[0:HeaderSize] with checksum computed over the
// full message (dst), matching the build() contract in §4.1.
func putHeader(dst []byte, h Header) {
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	dst[4] = byte(h.RelayDomain)
	dst[5] = h.Version
	dst[6] = h.Source
	dst[7] = h.Flags
	binary.LittleEndian.PutUint32(dst[8:12], h.PayloadSize)
	binary.LittleEndian.PutUint64(dst[12:20], h.Sequence)
	binary.LittleEndian.PutUint64(dst[20:28], h.TimestampNs)
	binary.LittleEndian.PutUint32(dst[28:32], 0)
	binary.LittleEndian.PutUint32(dst[28:32], crc32.ChecksumIEEE(dst))
}
