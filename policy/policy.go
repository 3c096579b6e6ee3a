// Package policy implements the small, bounded mapping of tunable knobs
// the Autonomic Loop may adjust (spec §3, §4.7). A Policy has a version
// and a signature; replacement is atomic via Store.
package policy

import (
	"sync/atomic"
	"time"

	"github.com/chatman-systems/workflowkernel/doctrine"
)

// Policy is the mutable, bounded tuning surface. Every field here has a
// corresponding Doctrine bound that Project enforces.
type Policy struct {
	Version   uint64
	Signature []byte

	HotPathTicks    uint32 // Critical-priority tick ceiling this policy requests
	MaxRestarts     int
	RestartWindow   time.Duration
	Backoff         doctrine.Backoff
	AdmissionThreshold  float64 // fraction of lane capacity above which new cases are refused
	TargetViolationRate float64
}

// Default returns a policy that exactly matches doctrine's own bounds,
// i.e. the most permissive policy that still satisfies Project as a
// no-op.
func Default(d doctrine.Doctrine) Policy {
	return Policy{
		Version:             1,
		HotPathTicks:        d.MaxHotPathTicks,
		MaxRestarts:         d.MaxRestarts,
		RestartWindow:       d.RestartWindow,
		Backoff:             d.DefaultBackoff,
		AdmissionThreshold:  0.9,
		TargetViolationRate: d.TargetViolationRate,
	}
}

func clampUint32(v, max uint32) uint32 {
	if max != 0 && v > max {
		return max
	}
	return v
}

func clampDuration(v, max time.Duration) time.Duration {
	if max != 0 && v > max {
		return max
	}
	return v
}

func clampFloat(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// Project is the total function policy' = project(doctrine, policy)
// (spec §4.7): any candidate policy is first mapped through doctrine's
// bounds, and only the projected policy is installed. Project is
// idempotent: project(d, project(d, p)) == project(d, p) (spec §8),
// since every clamp operation is itself idempotent.
func Project(d doctrine.Doctrine, candidate Policy) Policy {
	projected := candidate
	projected.HotPathTicks = clampUint32(candidate.HotPathTicks, d.MaxHotPathTicks)
	if candidate.MaxRestarts > d.MaxRestarts {
		projected.MaxRestarts = d.MaxRestarts
	}
	if candidate.MaxRestarts < 0 {
		projected.MaxRestarts = 0
	}
	projected.RestartWindow = clampDuration(candidate.RestartWindow, d.RestartWindow)
	projected.Backoff.Initial = clampDuration(candidate.Backoff.Initial, d.DefaultBackoff.Max)
	projected.Backoff.Max = clampDuration(candidate.Backoff.Max, d.DefaultBackoff.Max)
	if projected.Backoff.Kind == "" {
		projected.Backoff.Kind = d.DefaultBackoff.Kind
	}
	if candidate.Backoff.Factor <= 0 {
		projected.Backoff.Factor = d.DefaultBackoff.Factor
	}
	projected.AdmissionThreshold = clampFloat(candidate.AdmissionThreshold, 1.0)
	projected.TargetViolationRate = clampFloat(candidate.TargetViolationRate, 1.0)
	return projected
}

// Store atomically publishes the active Policy, mirroring the same
// atomic-publish discipline snapshot.Store uses for descriptors (spec
// §5's "mutated only via Autonomic Loop's Execute stage under the same
// publish discipline").
type Store struct {
	current atomic.Pointer[Policy]
}

func NewStore(initial Policy) *Store {
	s := &Store{}
	s.current.Store(&initial)
	return s
}

func (s *Store) Current() Policy {
	p := s.current.Load()
	if p == nil {
		return Policy{}
	}
	return *p
}

// Install atomically replaces the active policy. Callers must have
// already run the candidate through Project.
func (s *Store) Install(p Policy) {
	next := p
	s.current.Store(&next)
}
