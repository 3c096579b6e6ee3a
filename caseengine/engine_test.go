package caseengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/pattern"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/scheduler"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

func newEngineWithActiveSnapshot(t *testing.T) (*Engine, snapshot.Hash) {
	t.Helper()
	st := snapshot.NewStore()
	spec := snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks:      []snapshot.Task{{ID: "t1", PatternID: 1}},
		Flows:      []snapshot.Flow{{Source: "start", Target: "t1"}, {Source: "t1", Target: "end"}},
	}
	h, err := st.Insert(spec)
	require.NoError(t, err)
	_, ok := st.InstallIfEpoch(0, h, &snapshot.CompiledArtifacts{})
	require.True(t, ok)

	registry := pattern.NewDefaultRegistry()
	sched := scheduler.New(scheduler.NewBudgets(8))
	log := receipt.NewLog()
	return New(st, registry, sched, log), h
}

func TestCreateCaseAgainstNonActiveHashFails(t *testing.T) {
	e, _ := newEngineWithActiveSnapshot(t)
	var bogus snapshot.Hash
	_, err := e.CreateCase(bogus, nil)
	assert.Equal(t, kernelerrors.KindSnapshotNotFound, kernelerrors.KindOf(err))
}

func TestCreateCaseSeedsStartCondition(t *testing.T) {
	e, h := newEngineWithActiveSnapshot(t)
	id, err := e.CreateCase(h, map[string]interface{}{"k": "v"})
	require.NoError(t, err)

	c, err := e.GetCase(id)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, c.State)
	assert.Equal(t, 1, c.Marking.ConditionTokens["start"])
}

func TestRunToQuiescenceDrivesSequenceToCompletion(t *testing.T) {
	e, h := newEngineWithActiveSnapshot(t)
	id, err := e.CreateCase(h, nil)
	require.NoError(t, err)

	state, err := e.RunToQuiescence(id)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)

	c, err := e.GetCase(id)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Marking.ConditionTokens["end"])
	assert.NotNil(t, c.CompletionTime)
}

func TestSuspendResumeGuardsInvalidTransitions(t *testing.T) {
	// two tasks in sequence, so one step leaves the case Running
	st := snapshot.NewStore()
	h, err := st.Insert(snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "mid"}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks:      []snapshot.Task{{ID: "t1", PatternID: 1}, {ID: "t2", PatternID: 1}},
		Flows:      []snapshot.Flow{{Source: "start", Target: "t1"}, {Source: "t1", Target: "mid"}, {Source: "mid", Target: "t2"}, {Source: "t2", Target: "end"}},
	})
	require.NoError(t, err)
	_, ok := st.InstallIfEpoch(0, h, &snapshot.CompiledArtifacts{})
	require.True(t, ok)
	e := New(st, pattern.NewDefaultRegistry(), scheduler.New(scheduler.NewBudgets(8)), receipt.NewLog())
	id, err := e.CreateCase(h, nil)
	require.NoError(t, err)

	// a Created case cannot be suspended
	assert.Error(t, e.Suspend(id))
	running, err := e.Step(id)
	require.NoError(t, err)
	require.Equal(t, StateRunning, running)

	require.NoError(t, e.Suspend(id))
	state, err := e.GetCaseState(id)
	require.NoError(t, err)
	assert.Equal(t, StateSuspended, state)

	// stepping a suspended case is a no-op
	s, err := e.Step(id)
	require.NoError(t, err)
	assert.Equal(t, StateSuspended, s)

	require.NoError(t, e.Resume(id))
	state, err = e.GetCaseState(id)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)

	assert.Error(t, e.Resume(id)) // already running, not suspended
}

func TestCancelRemovesTokensAndIsTerminal(t *testing.T) {
	e, h := newEngineWithActiveSnapshot(t)
	id, err := e.CreateCase(h, nil)
	require.NoError(t, err)

	require.NoError(t, e.Cancel(id))
	c, err := e.GetCase(id)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, c.State)
	assert.Equal(t, 0, c.Marking.ConditionTokens["start"])

	// cancelling an already-terminal case is a no-op, not an error
	assert.NoError(t, e.Cancel(id))
}

func TestListCasesReturnsSortedIDs(t *testing.T) {
	e, h := newEngineWithActiveSnapshot(t)
	_, err := e.CreateCase(h, nil)
	require.NoError(t, err)
	_, err = e.CreateCase(h, nil)
	require.NoError(t, err)

	ids := e.ListCases()
	require.Len(t, ids, 2)
	assert.True(t, ids[0] < ids[1])
}

func TestEvictTerminalRemovesOnlyOldCompletedCases(t *testing.T) {
	e, h := newEngineWithActiveSnapshot(t)
	id, err := e.CreateCase(h, nil)
	require.NoError(t, err)
	_, err = e.RunToQuiescence(id)
	require.NoError(t, err)

	evicted := e.EvictTerminal(0)
	assert.Equal(t, 1, evicted)
	assert.Empty(t, e.ListCases())
}

func TestStateCanTransitionTo(t *testing.T) {
	assert.True(t, StateCreated.CanTransitionTo(StateRunning))
	assert.False(t, StateCreated.CanTransitionTo(StateSuspended))
	assert.True(t, StateRunning.CanTransitionTo(StateSuspended))
	assert.False(t, StateCompleted.CanTransitionTo(StateRunning))
	assert.True(t, StateCompleted.IsTerminal())
	assert.False(t, StateRunning.IsTerminal())
}

func TestGetCaseUnknownIDFails(t *testing.T) {
	e, _ := newEngineWithActiveSnapshot(t)
	_, err := e.GetCase("does-not-exist")
	assert.Equal(t, kernelerrors.KindCaseNotFound, kernelerrors.KindOf(err))
}
