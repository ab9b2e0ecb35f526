package relay

import "sync"

// securityMonitor tracks execution-domain validation outcomes and derives
// the security score and compromised-source list (§4.4). Grounded on the
// SecurityMonitor in the execution relay's security model.
type securityMonitor struct {
	mu sync.Mutex

	totalAccepted      uint64
	checksumFailures   uint64
	securityViolations uint64
	unauthorizedCount  uint64
	failuresBySource   map[uint8]uint64
}

func newSecurityMonitor() *securityMonitor {
	return &securityMonitor{failuresBySource: make(map[uint8]uint64)}
}

func (m *securityMonitor) recordAccepted() {
	m.mu.Lock()
	m.totalAccepted++
	m.mu.Unlock()
}

func (m *securityMonitor) recordChecksumFailure(source uint8) {
	m.mu.Lock()
	m.checksumFailures++
	m.failuresBySource[source]++
	m.mu.Unlock()
}

func (m *securityMonitor) recordSecurityViolation(source uint8) {
	m.mu.Lock()
	m.securityViolations++
	m.failuresBySource[source]++
	m.mu.Unlock()
}

func (m *securityMonitor) recordUnauthorized(source uint8) {
	m.mu.Lock()
	m.unauthorizedCount++
	m.failuresBySource[source]++
	m.mu.Unlock()
}

// score returns 1 - total_failures/total, or 1.0 when nothing has happened
// yet (§4.4 "A security score 1 - failures/total is exported").
func (m *securityMonitor) score() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	totalFailures := m.checksumFailures + m.securityViolations + m.unauthorizedCount
	total := m.totalAccepted + totalFailures
	if total == 0 {
		return 1.0
	}
	return 1.0 - float64(totalFailures)/float64(total)
}

// isCompromised reports whether source has exceeded 10 validation
// failures, the threshold past which it is blocked for the rest of the
// process lifetime (§4.4).
func (m *securityMonitor) isCompromised(source uint8) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failuresBySource[source] > 10
}

func (m *securityMonitor) snapshot() (accepted, checksumFail, violations, unauthorized uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalAccepted, m.checksumFailures, m.securityViolations, m.unauthorizedCount
}
