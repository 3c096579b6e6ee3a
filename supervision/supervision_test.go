package supervision

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/doctrine"
)

var errChildFailed = errors.New("child failed")

func TestBackoffForFixedClampsToMax(t *testing.T) {
	b := doctrine.Backoff{Kind: doctrine.BackoffFixed, Initial: 5 * time.Second, Max: 2 * time.Second}
	assert.Equal(t, 2*time.Second, BackoffFor(b, 0))
	assert.Equal(t, 2*time.Second, BackoffFor(b, 3))
}

func TestBackoffForExponentialGrowsAndClamps(t *testing.T) {
	b := doctrine.Backoff{Kind: doctrine.BackoffExponential, Initial: 100 * time.Millisecond, Max: 1 * time.Second, Factor: 2}

	d0 := BackoffFor(b, 0)
	d1 := BackoffFor(b, 1)
	d5 := BackoffFor(b, 5)

	assert.Equal(t, 100*time.Millisecond, d0)
	assert.Equal(t, 200*time.Millisecond, d1)
	assert.Equal(t, 1*time.Second, d5) // clamped
}

func testDoctrine() doctrine.Doctrine {
	d := doctrine.Default()
	d.MaxRestarts = 1
	d.RestartWindow = time.Minute
	d.DefaultBackoff = doctrine.Backoff{Kind: doctrine.BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond}
	return d
}

func TestAddChildRunsOnce(t *testing.T) {
	s := New(OneForOne, testDoctrine(), nil)
	var runs int32
	done := make(chan struct{})
	s.AddChild(Child{Name: "c1", Run: func(stop <-chan struct{}) error {
		atomic.AddInt32(&runs, 1)
		<-stop
		close(done)
		return nil
	}})
	s.StopAll()
	<-done
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestOneForOneRestartsOnlyFailedChild(t *testing.T) {
	s := New(OneForOne, testDoctrine(), nil)
	var aRuns, bRuns int32
	aFailOnce := make(chan struct{}, 1)
	aFailOnce <- struct{}{}

	s.AddChild(Child{Name: "a", Run: func(stop <-chan struct{}) error {
		atomic.AddInt32(&aRuns, 1)
		select {
		case <-aFailOnce:
			return errChildFailed
		case <-stop:
			return nil
		}
	}})
	s.AddChild(Child{Name: "b", Run: func(stop <-chan struct{}) error {
		atomic.AddInt32(&bRuns, 1)
		<-stop
		return nil
	}})

	// give the first failure + restart (1ms backoff) time to land
	time.Sleep(50 * time.Millisecond)
	s.StopAll()

	assert.Equal(t, int32(2), atomic.LoadInt32(&aRuns)) // initial + one restart
	assert.Equal(t, int32(1), atomic.LoadInt32(&bRuns)) // never restarted
}

func TestRestartBudgetEscalatesAfterMaxRestarts(t *testing.T) {
	d := testDoctrine()
	d.MaxRestarts = 0 // any failure escalates immediately
	s := New(OneForOne, d, nil)

	s.AddChild(Child{Name: "flaky", Run: func(stop <-chan struct{}) error {
		return errChildFailed
	}})

	select {
	case name := <-s.Escalations():
		assert.Equal(t, "flaky", name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an escalation, got none")
	}
}

func TestStopAllWaitsForEveryChildToExit(t *testing.T) {
	s := New(OneForOne, testDoctrine(), nil)
	exited := make(chan struct{})
	s.AddChild(Child{Name: "c", Run: func(stop <-chan struct{}) error {
		<-stop
		close(exited)
		return nil
	}})
	s.StopAll()
	select {
	case <-exited:
	default:
		require.Fail(t, "StopAll returned before child exited")
	}
}
