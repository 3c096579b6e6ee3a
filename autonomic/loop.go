// Package autonomic implements the Monitor-Analyze-Plan-Execute-Knowledge
// feedback loop that closes observed outcomes onto runtime Policy (spec
// §4.7). Per REDESIGN FLAGS, coroutine-style control flow is replaced by
// an explicit 5-state state machine driven by a ticker; suspension
// points are at stage boundaries only.
package autonomic

import (
	"fmt"
	"sync"
	"time"

	"github.com/chatman-systems/workflowkernel/doctrine"
	"github.com/chatman-systems/workflowkernel/kernellog"
	"github.com/chatman-systems/workflowkernel/policy"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/scheduler"
)

// Stage is the loop's current position in the MAPE-K cycle.
type Stage string

const (
	StageMonitor   Stage = "Monitor"
	StageAnalyze   Stage = "Analyze"
	StagePlan      Stage = "Plan"
	StageExecute   Stage = "Execute"
	StageKnowledge Stage = "Knowledge"
)

// Metrics is what Monitor derives from the scheduler and receipt log
// for Analyze to match against rules. RunOnce fills only LaneStats;
// SLOWindow (per-pattern p50/p95/p99) and ReceiptRate are left empty,
// and DefaultRules reads neither.
type Metrics struct {
	LaneStats   []scheduler.LaneStats
	SLOWindow   map[int][3]uint32 // pattern id -> (p50, p95, p99)
	ReceiptRate float64           // receipts appended per monitor tick
}

// Finding is Analyze's output: a named condition Plan may act on.
type Finding struct {
	Rule    string
	Subject string
	Detail  string
}

// Proposal is Plan's output: a candidate policy delta with a
// human-readable rationale, carried through to the policy-changed
// receipt (grounded on the original's proposer test fixtures, which
// always assert a rationale string is present — see SPEC_FULL.md §7).
type Proposal struct {
	Candidate policy.Policy
	Rationale string
	Finding   Finding
}

// Rule inspects Metrics and optionally emits a Finding.
type Rule func(Metrics) (Finding, bool)

// DefaultRules is the small ordered rule list Analyze matches against,
// dictated directly by spec §4.7 (no teacher-specific grounding exists
// for a MAPE-K rule engine; see DESIGN.md).
func DefaultRules(target float64) []Rule {
	return []Rule{
		func(m Metrics) (Finding, bool) {
			for _, lane := range m.LaneStats {
				if lane.Priority == scheduler.Critical && lane.Ops > 0 && lane.ViolationRate > target {
					return Finding{
						Rule:    "hot-path-violation-rate",
						Subject: lane.Priority.String(),
						Detail:  fmt.Sprintf("violation rate %.4f exceeds target %.4f", lane.ViolationRate, target),
					}, true
				}
			}
			return Finding{}, false
		},
	}
}

// Planner turns a Finding into a candidate Policy delta against the
// current policy.
type Planner func(current policy.Policy, f Finding) Proposal

// DefaultPlanner raises the hot-path tick budget by 50% when a
// violation-rate finding fires; Project (Execute stage) clamps it back
// to doctrine's ceiling if that overshoots.
func DefaultPlanner(current policy.Policy, f Finding) Proposal {
	candidate := current
	candidate.HotPathTicks = current.HotPathTicks + current.HotPathTicks/2
	candidate.Version = current.Version + 1
	return Proposal{
		Candidate: candidate,
		Rationale: fmt.Sprintf("raising hot_path_ticks from %d to %d in response to %s: %s", current.HotPathTicks, candidate.HotPathTicks, f.Rule, f.Detail),
		Finding:   f,
	}
}

// Loop drives the MAPE-K cycle on a timer.
type Loop struct {
	doctrine  doctrine.Doctrine
	policies  *policy.Store
	sched     *scheduler.Scheduler
	log       *receipt.Log
	logger    *kernellog.ContextLogger
	rules     []Rule
	plan      Planner
	autoPromote bool

	mu    sync.Mutex
	stage Stage

	stop chan struct{}
	done chan struct{}
}

func New(d doctrine.Doctrine, policies *policy.Store, sched *scheduler.Scheduler, log *receipt.Log, logger *kernellog.ContextLogger, autoPromote bool) *Loop {
	return &Loop{
		doctrine:    d,
		policies:    policies,
		sched:       sched,
		log:         log,
		logger:      logger,
		rules:       DefaultRules(d.TargetViolationRate),
		plan:        DefaultPlanner,
		stage:       StageMonitor,
		autoPromote: autoPromote,
	}
}

// Stage returns the loop's current stage (for introspection/tests).
func (l *Loop) Stage() Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stage
}

// Start runs the MAPE-K cycle every interval until Stop is called.
func (l *Loop) Start(interval time.Duration) {
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.RunOnce()
			}
		}
	}()
}

func (l *Loop) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
}

func (l *Loop) setStage(s Stage) {
	l.mu.Lock()
	l.stage = s
	l.mu.Unlock()
}

// RunOnce executes exactly one Monitor->Analyze->Plan->Execute->Knowledge
// cycle synchronously; Start calls this on each tick, but tests and
// callers wanting deterministic control can call it directly.
func (l *Loop) RunOnce() {
	l.setStage(StageMonitor)
	metrics := Metrics{LaneStats: l.sched.Stats()}

	l.setStage(StageAnalyze)
	var finding Finding
	found := false
	for _, rule := range l.rules {
		if f, ok := rule(metrics); ok {
			finding, found = f, true
			break
		}
	}
	if !found {
		l.setStage(StageKnowledge)
		return
	}

	l.setStage(StagePlan)
	current := l.policies.Current()
	proposal := l.plan(current, finding)

	l.setStage(StageExecute)
	projected := policy.Project(l.doctrine, proposal.Candidate)
	if !l.autoPromote {
		l.log.Append(receipt.Receipt{Kind: receipt.KindPolicyChangeRejected, Subject: finding.Rule, Outcome: "auto_promote disabled; proposal not installed"})
		l.setStage(StageKnowledge)
		return
	}
	l.policies.Install(projected)
	l.log.Append(receipt.Receipt{
		Kind:    receipt.KindPolicyChanged,
		Subject: finding.Rule,
		Outcome: fmt.Sprintf("proposed=%d projected=%d rationale=%s", proposal.Candidate.HotPathTicks, projected.HotPathTicks, proposal.Rationale),
	})
	if l.logger != nil {
		l.logger.WithField("finding", finding.Rule).Info("autonomic loop installed a projected policy delta")
	}

	l.setStage(StageKnowledge)
}
