package protocol

// BuildFields carries the header fields a caller supplies to Build; PayloadSize
// and Checksum are computed, not supplied.
type BuildFields struct {
	RelayDomain RelayDomain
	Version     uint8
	Source      uint8
	Flags       uint8
	Sequence    uint64
	TimestampNs uint64
}

// Build assembles a complete wire message: header + concatenated TLVs. It
// sets PayloadSize and computes Checksum over the whole message, matching
// the build() contract in §4.1.
func Build(fields BuildFields, tlvs []TLV) ([]byte, error) {
	var payload []byte
	for _, t := range tlvs {
		payload = EncodeTLV(payload, t.Type, t.Payload)
	}
	if len(payload) > MaxPayloadSize {
		return nil, &ParseError{Kind: ErrPayloadTooLarge, Got: len(payload)}
	}

	msg := make([]byte, HeaderSize+len(payload))
	copy(msg[HeaderSize:], payload)

	h := Header{
		Magic:       Magic,
		RelayDomain: fields.RelayDomain,
		Version:     fields.Version,
		Source:      fields.Source,
		Flags:       fields.Flags,
		PayloadSize: uint32(len(payload)),
		Sequence:    fields.Sequence,
		TimestampNs: fields.TimestampNs,
	}
	putHeader(msg, h)
	return msg, nil
}

// ParseMessage parses a complete on-wire message (header + TLV payload) in
// one call, enforcing the checksum policy for the message's domain
// (mandatory for Execution, optional otherwise — §4.1 "Checksum").
func ParseMessage(data []byte, requireChecksum bool) (Header, []TLV, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return Header{}, nil, err
	}

	end := HeaderSize + int(h.PayloadSize)
	if len(data) < end {
		return Header{}, nil, &ParseError{Kind: ErrMessageTooSmall, Need: end, Got: len(data)}
	}

	mustVerify := requireChecksum || h.RelayDomain == DomainExecution
	if mustVerify && !VerifyChecksum(h, data[:end]) {
		return Header{}, nil, &ParseError{Kind: ErrChecksumMismatch, Expected: uint64(h.Checksum)}
	}

	tlvs, err := ParseTLVExtensions(data[HeaderSize:end])
	if err != nil {
		return Header{}, nil, err
	}
	return h, tlvs, nil
}
