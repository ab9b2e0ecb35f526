package relay

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"tradeplane/pkg/protocol"
)

// subscriber is one connected consumer: messages accepted by the dispatcher
// are pushed onto out for that connection's writer goroutine to drain.
type subscriber struct {
	id       uuid.UUID
	conn     net.Conn
	out      chan []byte
	dropped  atomic.Uint64
}

// Server is one domain-parameterized relay instance (§4.4). Identical code
// runs the market-data, signal, and execution relays; only Config differs.
type Server struct {
	cfg Config

	listener *net.UnixListener
	ingress  chan []byte

	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber

	history  *recoveryHistory
	security *securityMonitor
	counters *counters
	globalSeq atomic.Uint64

	breakerOpen atomic.Bool

	auditLog    *os.File
	securityLog *os.File

	stop chan struct{}
}

// NewServer constructs (but does not start) a relay bound to cfg.BindPath.
func NewServer(cfg Config) (*Server, error) {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 1024
	}
	if cfg.RecoveryDepth <= 0 {
		cfg.RecoveryDepth = DefaultRecoveryDepth
	}

	_ = os.Remove(cfg.BindPath)
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: cfg.BindPath, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("relay: listen %s: %w", cfg.BindPath, err)
	}

	s := &Server{
		cfg:         cfg,
		listener:    listener,
		ingress:     make(chan []byte, cfg.MaxQueueSize),
		subscribers: make(map[uuid.UUID]*subscriber),
		history:     newRecoveryHistory(cfg.RecoveryDepth),
		security:    newSecurityMonitor(),
		counters:    newCounters(),
		stop:        make(chan struct{}),
	}

	if cfg.AuditLogPath != "" {
		f, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("relay: audit log %s: %w", cfg.AuditLogPath, err)
		}
		s.auditLog = f
	}
	if cfg.SecurityLogPath != "" {
		f, err := os.OpenFile(cfg.SecurityLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("relay: security log %s: %w", cfg.SecurityLogPath, err)
		}
		s.securityLog = f
	}

	return s, nil
}

// Serve accepts connections and runs the dispatcher until Close is called.
func (s *Server) Serve() error {
	go s.dispatchLoop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return nil
			default:
				return fmt.Errorf("relay[%s]: accept: %w", s.cfg.Domain, err)
			}
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting connections and shuts down the dispatcher.
func (s *Server) Close() error {
	close(s.stop)
	err := s.listener.Close()
	s.mu.Lock()
	for _, sub := range s.subscribers {
		sub.conn.Close()
	}
	s.mu.Unlock()
	if s.auditLog != nil {
		s.auditLog.Close()
	}
	if s.securityLog != nil {
		s.securityLog.Close()
	}
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	sub := &subscriber{id: uuid.New(), conn: conn, out: make(chan []byte, s.cfg.MaxQueueSize)}
	s.mu.Lock()
	s.subscribers[sub.id] = sub
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.writeLoop(sub)
		close(done)
	}()

	fr := newFrameReader(conn)
	for {
		msg, err := fr.readFrame()
		if err != nil {
			break
		}
		s.ingestMessage(msg, sub)
	}

	s.mu.Lock()
	delete(s.subscribers, sub.id)
	s.mu.Unlock()
	close(sub.out)
	conn.Close()
	<-done
}

func (s *Server) writeLoop(sub *subscriber) {
	w := bufio.NewWriter(sub.conn)
	for msg := range sub.out {
		if _, err := w.Write(msg); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// ingestMessage applies domain policy to one framed message and, if
// accepted, queues it for fan-out (§4.4 "Execution-domain hardening").
func (s *Server) ingestMessage(raw []byte, from *subscriber) {
	header, err := protocol.ParseHeader(raw)
	if err != nil {
		s.counters.rejected.Add(1)
		return
	}

	if req, ok := isRecoveryRequest(raw[protocol.HeaderSize:]); ok {
		s.handleRecoveryRequest(req, from)
		return
	}

	if s.cfg.Domain == protocol.DomainExecution && s.security.isCompromised(header.Source) {
		s.counters.rejected.Add(1)
		return
	}

	_, tlvs, err := protocol.ParseMessage(raw, s.cfg.ValidateChecksums)
	if err != nil {
		s.counters.rejected.Add(1)
		if pe, ok := err.(*protocol.ParseError); ok && pe.Kind == protocol.ErrChecksumMismatch && s.cfg.Domain == protocol.DomainExecution {
			s.security.recordChecksumFailure(header.Source)
			s.logSecurity("CHECKSUM_FAILURE", header.Source, pe.Error())
		}
		return
	}

	if s.cfg.Domain == protocol.DomainExecution {
		if _, authorized := s.cfg.AuthorizedSources[header.Source]; !authorized {
			s.security.recordUnauthorized(header.Source)
			s.logSecurity("UNAUTHORIZED_SOURCE", header.Source, "source not in authorized set")
			s.counters.rejected.Add(1)
			return
		}
	}

	if len(s.cfg.MessageTypeFilter) > 0 {
		if len(tlvs) == 0 {
			s.counters.rejected.Add(1)
			return
		}
		if _, ok := s.cfg.MessageTypeFilter[tlvs[0].Type]; !ok {
			if s.cfg.Domain == protocol.DomainExecution {
				s.security.recordSecurityViolation(header.Source)
				s.logSecurity("TLV_TYPE_OUT_OF_RANGE", header.Source, fmt.Sprintf("tlv_type=%d", tlvs[0].Type))
			}
			s.counters.rejected.Add(1)
			return
		}
	}

	s.counters.processed.Add(1)
	if s.cfg.Domain == protocol.DomainExecution {
		s.security.recordAccepted()
		s.logAudit(header, raw)
	}

	s.pushIngress(raw)
}

// pushIngress enqueues an accepted message, applying the circuit breaker:
// once the ingress queue exceeds CircuitBreakerThreshold the breaker opens
// and new messages are dropped until the queue drains below half that
// threshold (§4.4 "Fan-out").
func (s *Server) pushIngress(msg []byte) {
	if s.breakerOpen.Load() {
		if len(s.ingress) >= s.cfg.CircuitBreakerThreshold/2 {
			s.counters.droppedBackpressure.Add(1)
			return
		}
		s.breakerOpen.Store(false)
	}

	select {
	case s.ingress <- msg:
		if len(s.ingress) > s.cfg.CircuitBreakerThreshold {
			s.breakerOpen.Store(true)
		}
	default:
		s.breakerOpen.Store(true)
		s.counters.droppedBackpressure.Add(1)
	}
}

func (s *Server) dispatchLoop() {
	for msg := range s.ingress {
		seq := s.globalSeq.Add(1)
		s.history.record(seq, msg)
		s.fanOut(msg)
	}
}

func (s *Server) fanOut(msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub.out <- msg:
		default:
			sub.dropped.Add(1)
		}
	}
}

func (s *Server) handleRecoveryRequest(req RecoveryRequest, from *subscriber) {
	matches := s.history.replay(req.StartSequence, req.EndSequence)
	for _, m := range matches {
		select {
		case from.out <- m:
		default:
		}
	}
}

func (s *Server) logAudit(h protocol.Header, raw []byte) {
	if s.auditLog == nil {
		return
	}
	fmt.Fprintf(s.auditLog, "%d source=%d seq=%d bytes=%d\n", h.TimestampNs, h.Source, h.Sequence, len(raw))
}

func (s *Server) logSecurity(event string, source uint8, details string) {
	if s.securityLog == nil {
		log.Printf("[relay] security: %s source=%d %s", event, source, details)
		return
	}
	fmt.Fprintf(s.securityLog, "%s source=%d %s\n", event, source, details)
}

// Stats returns a snapshot of the relay's counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.subscribers)
	s.mu.RUnlock()

	return Stats{
		MessagesProcessed:   s.counters.processed.Load(),
		MessagesRejected:    s.counters.rejected.Load(),
		DroppedBackpressure: s.counters.droppedBackpressure.Load(),
		ActiveSubscribers:   n,
		SecurityScore:       s.security.score(),
		CircuitBreakerOpen:  s.breakerOpen.Load(),
		UptimeSeconds:       timeSince(s.counters.startedAt),
	}
}
