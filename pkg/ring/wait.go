package ring

import "time"

// No named cross-process semaphore binding exists anywhere in this stack,
// so the wake channel always falls back to the adaptive-backoff path
// described in §9: poll every 1ms initially, backing off to 10ms when the
// ring has been quiet for a while. The notify side still sets
// data_available and bumps notification_sequence on every append so a
// future semaphore-backed implementation has a real signal to post on.
const (
	minPollInterval = time.Millisecond
	maxPollInterval = 10 * time.Millisecond
	backoffAfter    = 8 // consecutive empty polls before the interval grows
)

// pollUntil blocks until ready() returns true or the deadline passes, using
// an adaptive polling backoff; it does not read notification_sequence. It
// returns false on timeout.
func pollUntil(ctrl controlBlock, timeout time.Duration, ready func() bool) bool {
	deadline := time.Now().Add(timeout)
	interval := minPollInterval
	misses := 0

	for {
		if ready() {
			return true
		}
		if timeout >= 0 && time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
		misses++
		if misses >= backoffAfter && interval < maxPollInterval {
			interval *= 2
			if interval > maxPollInterval {
				interval = maxPollInterval
			}
			misses = 0
		}
	}
}

// notify publishes the wake signal after an append (§4.2 step 5).
func notify(ctrl controlBlock) {
	ctrl.DataAvailable().Store(1)
	ctrl.NotificationSequence().Add(1)
}
