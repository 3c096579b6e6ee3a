package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

func buildSnapshot(t *testing.T, spec snapshot.Spec) *snapshot.Snapshot {
	t.Helper()
	st := snapshot.NewStore()
	h, err := st.Insert(spec)
	require.NoError(t, err)
	snap, err := st.Get(h)
	require.NoError(t, err)
	return snap
}

func TestRegisterAllFillsAllFortyThreeSlots(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, 43, r.Registered())
	for id := 1; id <= 43; id++ {
		e, ok := r.Get(id)
		require.True(t, ok, "pattern id %d should be registered", id)
		assert.Equal(t, id, e.ID())
	}
}

func TestDispatchUnknownIDReturnsPatternNotFound(t *testing.T) {
	r := NewDefaultRegistry()
	result := r.Dispatch(0, CaseExecutionContext{})
	assert.False(t, result.Success)
	assert.Equal(t, kernelerrors.KindPatternNotFound, kernelerrors.KindOf(result.Err))

	result = r.Dispatch(44, CaseExecutionContext{})
	assert.False(t, result.Success)
}

func TestRegisterPanicsOnDuplicateID(t *testing.T) {
	r := NewRegistry()
	r.Register(Sequence{})
	assert.Panics(t, func() { r.Register(Sequence{}) })
}

func TestSequenceFiresWhenInputHasToken(t *testing.T) {
	snap := buildSnapshot(t, snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks:      []snapshot.Task{{ID: "t1", PatternID: 1}},
		Flows:      []snapshot.Flow{{Source: "start", Target: "t1"}, {Source: "t1", Target: "end"}},
	})
	m := NewMarking()
	m.ConditionTokens["start"] = 1

	result := (Sequence{}).Execute(CaseExecutionContext{Snapshot: snap, Marking: m, ElementID: "t1"})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Delta.ConsumeConditions["start"])
	assert.Equal(t, 1, result.Delta.ProduceConditions["end"])
}

func TestSequenceNotEnabledWithoutToken(t *testing.T) {
	snap := buildSnapshot(t, snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks:      []snapshot.Task{{ID: "t1", PatternID: 1}},
		Flows:      []snapshot.Flow{{Source: "start", Target: "t1"}, {Source: "t1", Target: "end"}},
	})
	result := (Sequence{}).Execute(CaseExecutionContext{Snapshot: snap, Marking: NewMarking(), ElementID: "t1"})

	assert.False(t, result.Success)
	assert.True(t, kernelerrors.KindOf(result.Err) != "")
}

func TestParallelSplitProducesOneTokenPerOutgoingBranch(t *testing.T) {
	snap := buildSnapshot(t, snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "a"}, {ID: "b"}},
		Tasks:      []snapshot.Task{{ID: "split", PatternID: 2, Split: snapshot.SemAND}},
		Flows:      []snapshot.Flow{{Source: "start", Target: "split"}, {Source: "split", Target: "a"}, {Source: "split", Target: "b"}},
	})
	m := NewMarking()
	m.ConditionTokens["start"] = 1

	result := (ParallelSplit{}).Execute(CaseExecutionContext{Snapshot: snap, Marking: m, ElementID: "split"})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Delta.ProduceConditions["a"])
	assert.Equal(t, 1, result.Delta.ProduceConditions["b"])
}

func TestSynchronizationRequiresAllBranches(t *testing.T) {
	snap := buildSnapshot(t, snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "a"}, {ID: "b"}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks:      []snapshot.Task{{ID: "join", PatternID: 3, Join: snapshot.SemAND}},
		Flows:      []snapshot.Flow{{Source: "a", Target: "join"}, {Source: "b", Target: "join"}, {Source: "join", Target: "end"}},
	})

	partial := NewMarking()
	partial.ConditionTokens["a"] = 1
	result := (Synchronization{}).Execute(CaseExecutionContext{Snapshot: snap, Marking: partial, ElementID: "join"})
	assert.False(t, result.Success)

	full := NewMarking()
	full.ConditionTokens["a"] = 1
	full.ConditionTokens["b"] = 1
	result = (Synchronization{}).Execute(CaseExecutionContext{Snapshot: snap, Marking: full, ElementID: "join"})
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Delta.ProduceConditions["end"])
}
