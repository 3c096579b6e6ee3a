// Package doctrine defines the process-wide immutable bounds that every
// Policy must respect (spec §3, §4.7). Doctrine is initialized once at
// process start and never mutated during operation.
package doctrine

import "time"

// BackoffKind selects a restart back-off shape (spec §4.8, §6).
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// Backoff describes the bounds a supervision back-off policy may use.
type Backoff struct {
	Kind    BackoffKind
	Initial time.Duration
	Max     time.Duration
	Factor  float64 // only meaningful for BackoffExponential
}

// Doctrine is the process-wide ceiling set: the Chatman constant and
// the other bounds named in spec §6's recognized configuration options.
type Doctrine struct {
	// MaxHotPathTicks is the Chatman constant: the ceiling on
	// Critical-priority operation ticks. Default 8.
	MaxHotPathTicks uint32
	// MaxRestarts / RestartWindow bound the Supervision Tree's restart
	// budget within a sliding window.
	MaxRestarts   int
	RestartWindow time.Duration
	// DefaultBackoff bounds the restart back-off parameters a Policy may
	// request; a Policy's back-off is clamped against this.
	DefaultBackoff Backoff
	// ReceiptLogCapacity is the soft ceiling past which appends of
	// not-yet-persisted receipts block until drained.
	ReceiptLogCapacity int
	// MaxQueueDepth bounds any warm-path work queue depth.
	MaxQueueDepth int
	// TargetViolationRate is the steady-state ceiling on hot-path
	// budget violations a healthy policy should maintain (spec §8).
	TargetViolationRate float64
}

// Default returns the doctrine spec.md's defaults describe: 8-tick
// Chatman constant, 3 restarts per 60s window, exponential backoff from
// 100ms doubling up to 10s.
func Default() Doctrine {
	return Doctrine{
		MaxHotPathTicks: 8,
		MaxRestarts:     3,
		RestartWindow:   60 * time.Second,
		DefaultBackoff: Backoff{
			Kind:    BackoffExponential,
			Initial: 100 * time.Millisecond,
			Max:     10 * time.Second,
			Factor:  2.0,
		},
		ReceiptLogCapacity:  100_000,
		MaxQueueDepth:       10_000,
		TargetViolationRate: 0.01,
	}
}
