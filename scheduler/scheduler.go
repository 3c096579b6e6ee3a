// Package scheduler enforces the Chatman-constant ceiling on hot-path
// operations (spec §4.5). Each priority lane is a set of counters with
// its own tick budget; every lane runs its operations synchronously on
// the caller's goroutine, with no worker pool or queue.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// Priority selects a tick budget tier.
type Priority int

const (
	Critical Priority = iota // budget = doctrine.max_hot_path_ticks
	High                     // 2x Critical
	Normal                   // 4x Critical
	Low                      // unbounded
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// Budgets maps each priority to its tick ceiling, derived from the
// Chatman constant (doctrine.MaxHotPathTicks). Low has no ceiling.
type Budgets struct {
	Critical uint32
	High     uint32
	Normal   uint32
	Low      uint32 // 0 == unbounded
}

func NewBudgets(maxHotPathTicks uint32) Budgets {
	return Budgets{
		Critical: maxHotPathTicks,
		High:     maxHotPathTicks * 2,
		Normal:   maxHotPathTicks * 4,
		Low:      0,
	}
}

func (b Budgets) For(p Priority) uint32 {
	switch p {
	case Critical:
		return b.Critical
	case High:
		return b.High
	case Normal:
		return b.Normal
	default:
		return 0
	}
}

// Operation is a unit of work dispatched under a tick budget. It
// returns the number of ticks it consumed together with its result.
type Operation func() (ticksUsed uint32, err error)

// laneStats accumulates per-priority statistics.
type laneStats struct {
	ops        atomic.Uint64
	ticks      atomic.Uint64
	violations atomic.Uint64
}

// Scheduler executes operations under per-priority tick budgets and
// records violation statistics without ever blocking the hot path.
type Scheduler struct {
	budgets Budgets

	mu    sync.RWMutex
	lanes map[Priority]*laneStats
}

func New(budgets Budgets) *Scheduler {
	s := &Scheduler{budgets: budgets, lanes: make(map[Priority]*laneStats)}
	for _, p := range []Priority{Critical, High, Normal, Low} {
		s.lanes[p] = &laneStats{}
	}
	return s
}

// ExecuteWithBounds runs op, recording ticks_used and whether it met the
// priority's budget. Exceeding the budget does not terminate op; it
// records a violation and reports metBudget=false (spec §4.5).
func (s *Scheduler) ExecuteWithBounds(p Priority, op Operation) (err error, ticksUsed uint32, metBudget bool) {
	lane := s.lanes[p]
	ticksUsed, err = op()

	lane.ops.Add(1)
	lane.ticks.Add(uint64(ticksUsed))

	budget := s.budgets.For(p)
	metBudget = budget == 0 || ticksUsed <= budget
	if !metBudget {
		lane.violations.Add(1)
	}
	return err, ticksUsed, metBudget
}

// WouldExceedBudget lets a caller refuse starting an operation whose
// declared expected-tick count already exceeds the priority's budget.
func (s *Scheduler) WouldExceedBudget(p Priority, expectedTicks uint32) bool {
	budget := s.budgets.For(p)
	return budget != 0 && expectedTicks > budget
}

// LaneStats is a point-in-time snapshot of one priority lane's counters.
type LaneStats struct {
	Priority        Priority
	Ops             uint64
	TotalTicks      uint64
	AverageTicks    float64
	Violations      uint64
	ViolationRate   float64
}

// Stats returns statistics for every priority lane (spec §4.5: total
// ops, total ticks, per-priority averages, violation count and rate).
func (s *Scheduler) Stats() []LaneStats {
	out := make([]LaneStats, 0, 4)
	for _, p := range []Priority{Critical, High, Normal, Low} {
		lane := s.lanes[p]
		ops := lane.ops.Load()
		ticks := lane.ticks.Load()
		violations := lane.violations.Load()

		var avg, rate float64
		if ops > 0 {
			avg = float64(ticks) / float64(ops)
			rate = float64(violations) / float64(ops)
		}
		out = append(out, LaneStats{
			Priority: p, Ops: ops, TotalTicks: ticks,
			AverageTicks: avg, Violations: violations, ViolationRate: rate,
		})
	}
	return out
}

// NowTicks is a monotonic tick source calibrated to wall-clock
// nanoseconds divided by 100, matching the glossary's "calibrated to
// CPU cycles in practice" note closely enough for deterministic tests
// without depending on a hardware cycle counter.
func NowTicks() uint32 {
	return uint32(time.Now().UnixNano() / 100)
}

// Percentiles computes p50/p95/p99 tick counts over a caller-supplied
// sample. The scheduler keeps no samples itself, and the Autonomic
// Loop's Monitor stage does not call it.
func Percentiles(samples []uint32) (p50, p95, p99 uint32) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sorted := append([]uint32(nil), samples...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	pick := func(pct float64) uint32 {
		idx := int(pct * float64(len(sorted)-1))
		return sorted[idx]
	}
	return pick(0.50), pick(0.95), pick(0.99)
}
