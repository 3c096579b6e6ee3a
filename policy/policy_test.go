package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatman-systems/workflowkernel/doctrine"
)

func TestProjectClampsAboveDoctrineCeiling(t *testing.T) {
	d := doctrine.Default()
	candidate := Policy{
		HotPathTicks:  1000,
		MaxRestarts:   1000,
		RestartWindow: 10 * time.Hour,
		Backoff:       doctrine.Backoff{Kind: doctrine.BackoffExponential, Initial: time.Hour, Max: time.Hour, Factor: 2},
		AdmissionThreshold:  5,
		TargetViolationRate: 5,
	}

	projected := Project(d, candidate)

	assert.Equal(t, d.MaxHotPathTicks, projected.HotPathTicks)
	assert.Equal(t, d.MaxRestarts, projected.MaxRestarts)
	assert.Equal(t, d.RestartWindow, projected.RestartWindow)
	assert.Equal(t, d.DefaultBackoff.Max, projected.Backoff.Max)
	assert.Equal(t, 1.0, projected.AdmissionThreshold)
	assert.Equal(t, 1.0, projected.TargetViolationRate)
}

func TestProjectIsIdempotent(t *testing.T) {
	d := doctrine.Default()
	candidate := Policy{HotPathTicks: 1000, MaxRestarts: -5, AdmissionThreshold: -1, TargetViolationRate: 2}

	once := Project(d, candidate)
	twice := Project(d, once)

	assert.Equal(t, once, twice)
}

func TestProjectLeavesWithinBoundsUnchanged(t *testing.T) {
	d := doctrine.Default()
	candidate := Default(d)

	projected := Project(d, candidate)

	assert.Equal(t, candidate.HotPathTicks, projected.HotPathTicks)
	assert.Equal(t, candidate.MaxRestarts, projected.MaxRestarts)
}

func TestStoreInstallIsAtomicallyVisible(t *testing.T) {
	d := doctrine.Default()
	s := NewStore(Default(d))

	next := Default(d)
	next.Version = 2
	next.HotPathTicks = 4
	s.Install(next)

	assert.Equal(t, uint64(2), s.Current().Version)
	assert.Equal(t, uint32(4), s.Current().HotPathTicks)
}
