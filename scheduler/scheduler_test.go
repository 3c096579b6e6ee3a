package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithBounds_WithinBudget(t *testing.T) {
	s := New(NewBudgets(8))

	err, ticks, met := s.ExecuteWithBounds(Critical, func() (uint32, error) {
		return 4, nil
	})

	require.NoError(t, err)
	assert.Equal(t, uint32(4), ticks)
	assert.True(t, met)

	stats := s.Stats()
	for _, lane := range stats {
		if lane.Priority == Critical {
			assert.Equal(t, uint64(1), lane.Ops)
			assert.Equal(t, uint64(0), lane.Violations)
		}
	}
}

func TestExecuteWithBounds_ViolationRecordedButOperationNotAborted(t *testing.T) {
	s := New(NewBudgets(8))

	opErr := errors.New("boom")
	err, ticks, met := s.ExecuteWithBounds(Critical, func() (uint32, error) {
		return 20, opErr
	})

	assert.Equal(t, opErr, err)
	assert.Equal(t, uint32(20), ticks)
	assert.False(t, met)

	stats := s.Stats()
	for _, lane := range stats {
		if lane.Priority == Critical {
			assert.Equal(t, uint64(1), lane.Violations)
			assert.Equal(t, 1.0, lane.ViolationRate)
		}
	}
}

func TestLowPriorityNeverViolatesBudget(t *testing.T) {
	s := New(NewBudgets(8))
	_, _, met := s.ExecuteWithBounds(Low, func() (uint32, error) { return 1_000_000, nil })
	assert.True(t, met)
}

func TestWouldExceedBudget(t *testing.T) {
	s := New(NewBudgets(8))
	assert.True(t, s.WouldExceedBudget(Critical, 9))
	assert.False(t, s.WouldExceedBudget(Critical, 8))
	assert.False(t, s.WouldExceedBudget(Low, 1_000_000))
}

func TestPercentiles(t *testing.T) {
	p50, p95, p99 := Percentiles([]uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.True(t, p50 <= p95)
	assert.True(t, p95 <= p99)

	zero50, zero95, zero99 := Percentiles(nil)
	assert.Equal(t, uint32(0), zero50)
	assert.Equal(t, uint32(0), zero95)
	assert.Equal(t, uint32(0), zero99)
}
