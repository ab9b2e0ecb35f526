package relay

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a running relay's counters.
type Stats struct {
	MessagesProcessed  uint64
	MessagesRejected   uint64
	DroppedBackpressure uint64
	ActiveSubscribers  int
	SecurityScore      float64
	CircuitBreakerOpen bool
	UptimeSeconds       float64
}

// counters are the atomic fields backing Stats; kept separate from the
// exported snapshot type so callers can't mutate live state.
type counters struct {
	processed           atomic.Uint64
	rejected            atomic.Uint64
	droppedBackpressure atomic.Uint64
	startedAt           time.Time
}

func newCounters() *counters { return &counters{startedAt: time.Now()} }

func timeSince(t time.Time) float64 { return time.Since(t).Seconds() }
