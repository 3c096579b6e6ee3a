package receipt

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
)

// Sink is the durability seam a PersistenceProvider implements: receipts
// appended to Log are optionally forwarded here for out-of-process
// storage. Sink failures never block the in-memory log (spec §4.6's
// "storage durability semantics are delegated to the external
// collaborator").
type Sink interface {
	Append(r Receipt) error
}

// Log is the in-memory, append-only receipt stream. Its own invariant is
// total order and immutability in memory; nothing durable is promised
// beyond that without a Sink.
type Log struct {
	seq atomic.Uint64

	mu       sync.RWMutex
	receipts []Receipt
	sinks    []Sink
}

func NewLog() *Log {
	return &Log{}
}

// AttachSink registers a durability sink. Sinks are best-effort: a
// failing sink is logged by the caller (via the returned error from
// Append) but never prevents the in-memory append.
func (l *Log) AttachSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Append assigns the next monotonic sequence number, stores r, and
// forwards it to every attached sink. The first sink error is returned
// to the caller after the in-memory append has already happened.
func (l *Log) Append(r Receipt) (uint64, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	l.mu.Lock()
	seq := l.seq.Add(1) // taken under the lock so the slice stays in seq order
	r.Seq = seq
	l.receipts = append(l.receipts, r)
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	var firstErr error
	for _, sink := range sinks {
		if err := sink.Append(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return seq, firstErr
}

// ReadSince returns receipts with Seq > since, in ascending seq order.
func (l *Log) ReadSince(since uint64) []Receipt {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := sort.Search(len(l.receipts), func(i int) bool { return l.receipts[i].Seq > since })
	out := make([]Receipt, len(l.receipts)-idx)
	copy(out, l.receipts[idx:])
	return out
}

// Len returns the number of receipts appended so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.receipts)
}

// Retract appends a new receipt that references an earlier one by seq,
// per spec §3's "corrections are expressed as new receipts" rule.
func (l *Log) Retract(original uint64, kind Kind, subject, outcome string) (uint64, error) {
	l.mu.RLock()
	found := false
	for _, r := range l.receipts {
		if r.Seq == original {
			found = true
			break
		}
	}
	l.mu.RUnlock()
	if !found {
		return 0, kernelerrors.New(kernelerrors.KindExternal, "", "cannot retract unknown receipt")
	}
	return l.Append(Receipt{Kind: kind, Subject: subject, Outcome: outcome, ParentID: original})
}
