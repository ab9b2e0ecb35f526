package relay

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"tradeplane/pkg/protocol"
)

// frameReader cuts a byte stream into complete wire messages (§4.4
// "Framing"). It never interprets TLV content; the caller applies domain
// policy once a full message is in hand.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(conn net.Conn) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(conn, 64*1024)}
}

// readFrame returns one complete message (header + payload). On magic
// desynchronization it scans forward byte-by-byte until it finds the next
// occurrence of the magic sequence before trying again.
func (fr *frameReader) readFrame() ([]byte, error) {
	header, err := fr.readHeaderWithResync()
	if err != nil {
		return nil, err
	}
	h, err := protocol.ParseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("relay: header invalid after resync: %w", err)
	}
	rest := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(fr.r, rest); err != nil {
		return nil, fmt.Errorf("relay: short read on payload: %w", err)
	}
	msg := make([]byte, 0, len(header)+len(rest))
	msg = append(msg, header...)
	msg = append(msg, rest...)
	return msg, nil
}

// readHeaderWithResync reads HeaderSize bytes and, if they don't start with
// the magic sequence, slides the window one byte at a time (discarding the
// leading byte) until it does.
func (fr *frameReader) readHeaderWithResync() ([]byte, error) {
	buf := make([]byte, protocol.HeaderSize)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, err
	}
	for binary.LittleEndian.Uint32(buf[0:4]) != protocol.Magic {
		copy(buf, buf[1:])
		b, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf[len(buf)-1] = b
	}
	return buf, nil
}
