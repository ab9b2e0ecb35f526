package relay

import (
	"fmt"
	"net"

	"tradeplane/pkg/protocol"
)

// Client is the subscriber side of a relay domain socket: dial once, then
// call Recv in a loop for each complete framed message. It applies no
// domain policy of its own — that is the relay server's job — and performs
// no resync beyond what frameReader already does on magic desync.
type Client struct {
	conn net.Conn
	fr   *frameReader
}

// Dial connects to a relay domain's bind path as a subscriber.
func Dial(bindPath string) (*Client, error) {
	conn, err := net.Dial("unix", bindPath)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", bindPath, err)
	}
	return &Client{conn: conn, fr: newFrameReader(conn)}, nil
}

// Recv blocks for the next complete wire message (header + TLV payload).
func (c *Client) Recv() ([]byte, error) {
	return c.fr.readFrame()
}

// Send forwards a pre-framed message upstream (used by collectors publishing
// into a relay, and by recovery-request senders).
func (c *Client) Send(msg []byte) error {
	_, err := c.conn.Write(msg)
	return err
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ParseAndDecode is a convenience wrapper for callers that want header +
// TLVs from one Recv result without importing protocol separately.
func ParseAndDecode(msg []byte, requireChecksum bool) (protocol.Header, []protocol.TLV, error) {
	return protocol.ParseMessage(msg, requireChecksum)
}
