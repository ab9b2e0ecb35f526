package relay

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"tradeplane/pkg/protocol"
)

func dialRelay(t *testing.T, bind string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", bind)
	if err != nil {
		t.Fatalf("dial %s: %v", bind, err)
	}
	return conn
}

func buildTrade(t *testing.T, domain protocol.RelayDomain, source uint8) []byte {
	t.Helper()
	payload := make([]byte, protocol.TradeTLVSize)
	msg, err := protocol.Build(protocol.BuildFields{
		RelayDomain: domain,
		Version:     protocol.ProtocolVersion,
		Source:      source,
		Sequence:    1,
		TimestampNs: 1,
	}, []protocol.TLV{{Type: protocol.TLVTypeTrade, Payload: payload}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return msg
}

func TestRelayFramingRoundTrip(t *testing.T) {
	bind := filepath.Join(t.TempDir(), "md.sock")
	srv, err := NewServer(MarketDataConfig(bind))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	producer := dialRelay(t, bind)
	defer producer.Close()
	consumer := dialRelay(t, bind)
	defer consumer.Close()
	time.Sleep(20 * time.Millisecond)

	msg := buildTrade(t, protocol.DomainMarketData, 7)
	if _, err := producer.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	consumer.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, len(msg))
	if _, err := readFull(consumer, got); err != nil {
		t.Fatalf("read fan-out: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("fanned-out message differs from input")
	}
}

func TestRelayResyncAfterGarbage(t *testing.T) {
	bind := filepath.Join(t.TempDir(), "md2.sock")
	srv, err := NewServer(MarketDataConfig(bind))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	producer := dialRelay(t, bind)
	defer producer.Close()
	consumer := dialRelay(t, bind)
	defer consumer.Close()
	time.Sleep(20 * time.Millisecond)

	garbage := []byte{0x00, 0x01, 0x02, 0x03, 0x04}
	msg := buildTrade(t, protocol.DomainMarketData, 7)
	if _, err := producer.Write(append(garbage, msg...)); err != nil {
		t.Fatalf("write: %v", err)
	}

	consumer.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, len(msg))
	if _, err := readFull(consumer, got); err != nil {
		t.Fatalf("read fan-out after resync: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("message after resync differs from input")
	}
}

func TestRelayExecutionRejectsUnauthorizedSource(t *testing.T) {
	bind := filepath.Join(t.TempDir(), "exec.sock")
	cfg := ExecutionConfig(bind, []uint8{1})
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	producer := dialRelay(t, bind)
	defer producer.Close()
	time.Sleep(10 * time.Millisecond)

	payload := make([]byte, 8)
	msg, err := protocol.Build(protocol.BuildFields{
		RelayDomain: protocol.DomainExecution,
		Version:     protocol.ProtocolVersion,
		Source:      99,
		Sequence:    1,
		TimestampNs: 1,
	}, []protocol.TLV{{Type: 41, Payload: payload}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := producer.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stats := srv.Stats()
	if stats.MessagesRejected == 0 {
		t.Fatalf("expected unauthorized source to be rejected")
	}
	if stats.MessagesProcessed != 0 {
		t.Fatalf("expected no processed messages, got %d", stats.MessagesProcessed)
	}
}

func TestRelayExecutionRejectsOutOfRangeTLVType(t *testing.T) {
	bind := filepath.Join(t.TempDir(), "exec2.sock")
	cfg := ExecutionConfig(bind, []uint8{1})
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	producer := dialRelay(t, bind)
	defer producer.Close()
	time.Sleep(10 * time.Millisecond)

	msg, err := protocol.Build(protocol.BuildFields{
		RelayDomain: protocol.DomainExecution,
		Version:     protocol.ProtocolVersion,
		Source:      1,
		Sequence:    1,
		TimestampNs: 1,
	}, []protocol.TLV{{Type: 1, Payload: make([]byte, protocol.TradeTLVSize)}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := producer.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stats := srv.Stats()
	if stats.MessagesRejected == 0 {
		t.Fatalf("expected out-of-range TLV type to be rejected")
	}
	if stats.SecurityScore >= 1.0 {
		t.Fatalf("expected security score to reflect the violation, got %v", stats.SecurityScore)
	}
}

func TestRelayExecutionRejectsBadChecksum(t *testing.T) {
	bind := filepath.Join(t.TempDir(), "exec3.sock")
	cfg := ExecutionConfig(bind, []uint8{1})
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	producer := dialRelay(t, bind)
	defer producer.Close()
	time.Sleep(10 * time.Millisecond)

	msg, err := protocol.Build(protocol.BuildFields{
		RelayDomain: protocol.DomainExecution,
		Version:     protocol.ProtocolVersion,
		Source:      1,
		Sequence:    1,
		TimestampNs: 1,
	}, []protocol.TLV{{Type: 41, Payload: []byte{0, 0, 0, 0, 0, 0, 0, 0}}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	msg[len(msg)-1] ^= 0xFF
	if _, err := producer.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stats := srv.Stats()
	if stats.MessagesRejected == 0 {
		t.Fatalf("expected checksum failure to be rejected")
	}
}

func TestRelayCircuitBreakerTripsAndRecovers(t *testing.T) {
	bind := filepath.Join(t.TempDir(), "cb.sock")
	cfg := MarketDataConfig(bind)
	cfg.MaxQueueSize = 4
	cfg.CircuitBreakerThreshold = 2
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	for i := 0; i < 10; i++ {
		srv.pushIngress(buildTrade(t, protocol.DomainMarketData, 1))
	}

	if !srv.breakerOpen.Load() {
		t.Fatalf("expected breaker to trip after exceeding threshold with no drain")
	}

	for len(srv.ingress) > 0 {
		<-srv.ingress
	}
	srv.pushIngress(buildTrade(t, protocol.DomainMarketData, 1))
	if srv.breakerOpen.Load() {
		t.Fatalf("expected breaker to close once queue drains below half threshold")
	}
}

func TestRecoveryHistoryReplay(t *testing.T) {
	h := newRecoveryHistory(4)
	for seq := uint64(1); seq <= 6; seq++ {
		h.record(seq, []byte{byte(seq)})
	}

	got := h.replay(1, 6)
	if len(got) != 4 {
		t.Fatalf("expected 4 retained entries (ring depth 4), got %d", len(got))
	}
	for i, entry := range got {
		want := byte(3 + i)
		if entry[0] != want {
			t.Fatalf("entry %d: want seq %d, got %d", i, want, entry[0])
		}
	}
}

func TestSecurityMonitorScoreAndCompromise(t *testing.T) {
	m := newSecurityMonitor()
	if m.score() != 1.0 {
		t.Fatalf("expected score 1.0 with no events, got %v", m.score())
	}

	for i := 0; i < 11; i++ {
		m.recordSecurityViolation(5)
	}
	if !m.isCompromised(5) {
		t.Fatalf("expected source 5 to be compromised after 11 violations")
	}
	if m.isCompromised(6) {
		t.Fatalf("source 6 has no violations and should not be compromised")
	}
	if m.score() >= 1.0 {
		t.Fatalf("expected score below 1.0 after violations, got %v", m.score())
	}
}

// readFull blocks until len(buf) bytes have been read or an error occurs.
func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
