package relay

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"

	"tradeplane/pkg/protocol"
)

// RecoveryRequest asks the relay to replay a sequence range from its
// in-memory history (§4.4 "Recovery endpoint").
type RecoveryRequest struct {
	ConsumerID    uuid.UUID
	StartSequence uint64
	EndSequence   uint64
}

const recoveryRequestPayloadSize = 16 + 8 + 8

// EncodeRecoveryRequest builds the TLVTypeRecoveryRequest payload a
// consumer sends to ask for a replay.
func EncodeRecoveryRequest(req RecoveryRequest) []byte {
	buf := make([]byte, recoveryRequestPayloadSize)
	copy(buf[0:16], req.ConsumerID[:])
	binary.LittleEndian.PutUint64(buf[16:24], req.StartSequence)
	binary.LittleEndian.PutUint64(buf[24:32], req.EndSequence)
	return buf
}

func decodeRecoveryRequest(payload []byte) (RecoveryRequest, bool) {
	if len(payload) != recoveryRequestPayloadSize {
		return RecoveryRequest{}, false
	}
	var req RecoveryRequest
	copy(req.ConsumerID[:], payload[0:16])
	req.StartSequence = binary.LittleEndian.Uint64(payload[16:24])
	req.EndSequence = binary.LittleEndian.Uint64(payload[24:32])
	return req, true
}

// historyEntry is one accepted message retained for best-effort recovery.
type historyEntry struct {
	sequence uint64
	data     []byte
}

// recoveryHistory is a bounded ring of recently accepted messages, newest
// overwriting oldest once depth is reached (§9 open question 2: depth is
// configuration, not a source-given constant).
type recoveryHistory struct {
	mu    sync.Mutex
	depth int
	buf   []historyEntry
	next  int
	full  bool
}

func newRecoveryHistory(depth int) *recoveryHistory {
	if depth <= 0 {
		depth = DefaultRecoveryDepth
	}
	return &recoveryHistory{depth: depth, buf: make([]historyEntry, depth)}
}

func (h *recoveryHistory) record(sequence uint64, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	h.buf[h.next] = historyEntry{sequence: sequence, data: cp}
	h.next = (h.next + 1) % h.depth
	if h.next == 0 {
		h.full = true
	}
}

// replay returns every retained message whose sequence falls within
// [start, end], in ascending sequence order, best effort (messages older
// than the retained window are simply absent).
func (h *recoveryHistory) replay(start, end uint64) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = h.depth
	}
	type pair struct {
		seq uint64
		buf []byte
	}
	matches := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		e := h.buf[i]
		if e.sequence >= start && e.sequence <= end {
			matches = append(matches, pair{e.sequence, e.data})
		}
	}
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].seq > matches[j].seq; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}
	out := make([][]byte, len(matches))
	for i, m := range matches {
		out[i] = m.buf
	}
	return out
}

// isRecoveryRequest reports whether payload carries a recovery-request TLV
// at any position, decoding the first one found, independent of relay
// domain (it is handled before domain policy, like a control message).
func isRecoveryRequest(tlvPayload []byte) (RecoveryRequest, bool) {
	first, ok := protocol.FindTLVByType(tlvPayload, protocol.TLVTypeRecoveryRequest)
	if !ok {
		return RecoveryRequest{}, false
	}
	return decodeRecoveryRequest(first)
}
