// Package opsapi is the operator introspection surface (§7 "User-visible
// failures"): a small HTTP+WebSocket server exposing rejection counters,
// queue depth, circuit-breaker state, and detector skip/emit counters.
// It is a pure read surface — it never drives the relay or the detector,
// only reports on them.
package opsapi

import (
	"tradeplane/pkg/arbitrage"
	"tradeplane/pkg/relay"
)

// Snapshot is the full operator-facing state pushed to REST/WebSocket
// clients. The caller (cmd/ wiring) builds one periodically from each
// component's own Stats() method and calls Server.UpdateSnapshot.
type Snapshot struct {
	GeneratedAtUnixNs int64         `json:"generated_at_unix_ns"`
	Relay             relay.Stats   `json:"relay"`
	Detector          arbitrage.Stats `json:"detector"`
}
