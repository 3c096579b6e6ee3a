package promotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/doctrine"
	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/kernellog"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

func soundSpec() snapshot.Spec {
	return snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks:      []snapshot.Task{{ID: "t1", PatternID: 1}},
		Flows:      []snapshot.Flow{{Source: "start", Target: "t1"}, {Source: "t1", Target: "end"}},
	}
}

func TestStaticChecksRejectsDuplicateIDs(t *testing.T) {
	spec := soundSpec()
	spec.Tasks = append(spec.Tasks, snapshot.Task{ID: "t1", PatternID: 1})
	err := StaticChecks(spec)
	assert.Equal(t, kernelerrors.KindStructure, kernelerrors.KindOf(err))
}

func TestStaticChecksRequiresExactlyOneStart(t *testing.T) {
	spec := soundSpec()
	spec.Conditions = append(spec.Conditions, snapshot.Condition{ID: "start2", Role: snapshot.RoleStart})
	err := StaticChecks(spec)
	assert.Error(t, err)
}

func TestSoundnessCheckRejectsUnreachableFragment(t *testing.T) {
	spec := soundSpec()
	spec.Tasks = append(spec.Tasks, snapshot.Task{ID: "orphan", PatternID: 1})
	spec.Conditions = append(spec.Conditions, snapshot.Condition{ID: "orphan-end"})
	spec.Flows = append(spec.Flows, snapshot.Flow{Source: "orphan", Target: "orphan-end"})

	err := SoundnessCheck(spec)
	assert.Equal(t, kernelerrors.KindStructure, kernelerrors.KindOf(err))
}

func TestSoundnessCheckPassesOnLinearSpec(t *testing.T) {
	assert.NoError(t, SoundnessCheck(soundSpec()))
}

func TestPerformanceCheckRejectsOverBudgetTask(t *testing.T) {
	d := doctrine.Default()
	spec := soundSpec()
	spec.Tasks[0].MaxTicks = d.MaxHotPathTicks + 1

	err := PerformanceCheck(spec, d)
	assert.Equal(t, kernelerrors.KindDoctrineBreach, kernelerrors.KindOf(err))
}

func TestInvariantCheckRejectsMIThresholdAboveCount(t *testing.T) {
	spec := soundSpec()
	spec.Tasks[0].MIPlannedCount = 2
	spec.Tasks[0].MIThreshold = 3

	err := InvariantCheck(spec)
	assert.Equal(t, kernelerrors.KindStructure, kernelerrors.KindOf(err))
}

func TestValidateAcceptsSoundSpec(t *testing.T) {
	assert.NoError(t, Validate(soundSpec(), doctrine.Default()))
}

func TestComputeORJoinCacheMarksReachablePredecessors(t *testing.T) {
	spec := snapshot.Spec{
		Conditions: []snapshot.Condition{{ID: "start", Role: snapshot.RoleStart}, {ID: "a"}, {ID: "b"}, {ID: "end", Role: snapshot.RoleEnd}},
		Tasks: []snapshot.Task{
			{ID: "split", PatternID: 6, Split: snapshot.SemOR},
			{ID: "join", PatternID: 7, Join: snapshot.SemOR},
		},
		Flows: []snapshot.Flow{
			{Source: "start", Target: "split"},
			{Source: "split", Target: "a"}, {Source: "split", Target: "b"},
			{Source: "a", Target: "join"}, {Source: "b", Target: "join"},
			{Source: "join", Target: "end"},
		},
	}
	cache := ComputeORJoinCache(spec)
	require.Contains(t, cache, "join")
	assert.True(t, cache["join"]["a"])
	assert.True(t, cache["join"]["b"])
	assert.True(t, cache["join"]["split"])
}

func newPipeline(t *testing.T) (*Pipeline, *snapshot.Store) {
	t.Helper()
	st := snapshot.NewStore()
	log := receipt.NewLog()
	logger := kernellog.New(kernellog.DefaultConfig("promotion"))
	return New(st, doctrine.Default(), log, kernellog.NewContextLogger(logger, "promotion")), st
}

func TestPromoteInstallsAndEmitsReceipt(t *testing.T) {
	p, st := newPipeline(t)
	h, err := st.Insert(soundSpec())
	require.NoError(t, err)

	require.NoError(t, p.Promote(h))

	active, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, h, active.Hash())
}

func TestPromoteIsIdempotentForAlreadyActiveSnapshot(t *testing.T) {
	p, st := newPipeline(t)
	h, err := st.Insert(soundSpec())
	require.NoError(t, err)
	require.NoError(t, p.Promote(h))

	assert.NoError(t, p.Promote(h))
}

func TestPromoteRejectsStructurallyUnsoundSpec(t *testing.T) {
	p, st := newPipeline(t)
	bad := soundSpec()
	bad.Tasks = append(bad.Tasks, snapshot.Task{ID: "t1", PatternID: 1})
	h, err := st.Insert(bad)
	require.NoError(t, err)

	err = p.Promote(h)
	assert.Equal(t, kernelerrors.KindStructure, kernelerrors.KindOf(err))
}

func TestPromoteConcurrentRaceHasExactlyOneWinner(t *testing.T) {
	_, st := newPipeline(t)
	specA := soundSpec()
	specA.Author = "a"
	specB := soundSpec()
	specB.Author = "b"
	ha, err := st.Insert(specA)
	require.NoError(t, err)
	hb, err := st.Insert(specB)
	require.NoError(t, err)

	pa := New(st, doctrine.Default(), receipt.NewLog(), nil)
	pb := New(st, doctrine.Default(), receipt.NewLog(), nil)

	errs := make(chan error, 2)
	go func() { errs <- pa.Promote(ha) }()
	go func() { errs <- pb.Promote(hb) }()
	err1 := <-errs
	err2 := <-errs

	// Exactly one of the two concurrent promotions from the same
	// starting epoch must win; the other either supersedes or the
	// store itself only records one active hash.
	active, err := st.Current()
	require.NoError(t, err)
	assert.True(t, active.Hash() == ha || active.Hash() == hb)
	if err1 != nil {
		assert.Equal(t, kernelerrors.KindSuperseded, kernelerrors.KindOf(err1))
	}
	if err2 != nil {
		assert.Equal(t, kernelerrors.KindSuperseded, kernelerrors.KindOf(err2))
	}
}
