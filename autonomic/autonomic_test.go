package autonomic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/doctrine"
	"github.com/chatman-systems/workflowkernel/policy"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/scheduler"
)

func TestDefaultRulesFireOnHighViolationRate(t *testing.T) {
	rules := DefaultRules(0.01)
	metrics := Metrics{LaneStats: []scheduler.LaneStats{
		{Priority: scheduler.Critical, Ops: 100, Violations: 50, ViolationRate: 0.5},
	}}

	f, ok := rules[0](metrics)
	require.True(t, ok)
	assert.Equal(t, "hot-path-violation-rate", f.Rule)
}

func TestDefaultRulesSilentBelowTarget(t *testing.T) {
	rules := DefaultRules(0.5)
	metrics := Metrics{LaneStats: []scheduler.LaneStats{
		{Priority: scheduler.Critical, Ops: 100, Violations: 1, ViolationRate: 0.01},
	}}

	_, ok := rules[0](metrics)
	assert.False(t, ok)
}

func TestDefaultPlannerRaisesHotPathTicks(t *testing.T) {
	d := doctrine.Default()
	current := policy.Default(d)
	current.HotPathTicks = 8

	proposal := DefaultPlanner(current, Finding{Rule: "hot-path-violation-rate"})

	assert.Equal(t, uint32(12), proposal.Candidate.HotPathTicks)
	assert.NotEmpty(t, proposal.Rationale)
}

func TestRunOnceNoFindingStaysAtKnowledgeWithoutInstalling(t *testing.T) {
	d := doctrine.Default()
	store := policy.NewStore(policy.Default(d))
	sched := scheduler.New(scheduler.NewBudgets(d.MaxHotPathTicks))
	log := receipt.NewLog()

	l := New(d, store, sched, log, nil, true)
	l.RunOnce()

	assert.Equal(t, StageKnowledge, l.Stage())
	assert.Equal(t, uint64(1), store.Current().Version)
	assert.Equal(t, 0, log.Len())
}

func TestRunOnceWithAutoPromoteInstallsProjectedPolicy(t *testing.T) {
	d := doctrine.Default()
	store := policy.NewStore(policy.Default(d))
	sched := scheduler.New(scheduler.NewBudgets(d.MaxHotPathTicks))
	log := receipt.NewLog()

	l := New(d, store, sched, log, nil, true)
	// force a violation directly so Monitor observes it without needing
	// real budget-exceeding work.
	sched.ExecuteWithBounds(scheduler.Critical, func() (uint32, error) { return d.MaxHotPathTicks + 1, nil })

	l.RunOnce()

	assert.Equal(t, 1, log.Len())
	receipts := log.ReadSince(0)
	assert.Equal(t, receipt.KindPolicyChanged, receipts[0].Kind)
}

func TestRunOnceWithoutAutoPromoteEmitsRejectionReceipt(t *testing.T) {
	d := doctrine.Default()
	store := policy.NewStore(policy.Default(d))
	sched := scheduler.New(scheduler.NewBudgets(d.MaxHotPathTicks))
	log := receipt.NewLog()

	l := New(d, store, sched, log, nil, false)
	sched.ExecuteWithBounds(scheduler.Critical, func() (uint32, error) { return d.MaxHotPathTicks + 1, nil })

	l.RunOnce()

	receipts := log.ReadSince(0)
	require.Len(t, receipts, 1)
	assert.Equal(t, receipt.KindPolicyChangeRejected, receipts[0].Kind)
	assert.Equal(t, uint64(1), store.Current().Version)
}
