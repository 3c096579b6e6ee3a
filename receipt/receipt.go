// Package receipt implements the append-only, totally ordered witness
// log described in spec §4.6: every promotion and case event is recorded
// as a Receipt that is never rewritten.
package receipt

import "time"

// Kind enumerates the observable event kinds a Receipt may record.
type Kind string

const (
	KindSnapshotPromoted    Kind = "snapshot-promoted"
	KindCaseCreated         Kind = "case-created"
	KindTaskStarted         Kind = "task-started"
	KindTaskCompleted       Kind = "task-completed"
	KindTaskFailed          Kind = "task-failed"
	KindPatternFired        Kind = "pattern-fired"
	KindPolicyChanged       Kind = "policy-changed"
	KindPolicyChangeRejected Kind = "policy-change-rejected"
	KindCaseCancelled       Kind = "case-cancelled"
)

// Receipt is a single append-only witness record.
type Receipt struct {
	Seq       uint64
	Timestamp time.Time
	Kind      Kind
	Subject   string // case id, snapshot hash hex, pattern id, ...
	Outcome   string // "success", "failed", classified error kind, ...
	Ticks     uint32
	Signature []byte // optional, set by a CryptographyProvider
	ParentID  uint64 // 0 means "not a retraction"; otherwise references the corrected receipt's Seq
}

// IsRetraction reports whether this receipt corrects an earlier one.
func (r Receipt) IsRetraction() bool { return r.ParentID != 0 }
