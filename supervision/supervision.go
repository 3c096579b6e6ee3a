// Package supervision restarts failed workers under a declared strategy
// (spec §4.8). Worker lifecycle is grounded on worker.Pool's
// Worker.Start/stop-channel loop, generalized from "pull one job and
// process it" to "run a supervised child function and report failure
// upstream."
package supervision

import (
	"sync"
	"time"

	"github.com/chatman-systems/workflowkernel/doctrine"
	"github.com/chatman-systems/workflowkernel/kernellog"
)

// Strategy selects which siblings restart when one child fails.
type Strategy string

const (
	OneForOne  Strategy = "one-for-one"
	OneForAll  Strategy = "one-for-all"
	RestForOne Strategy = "rest-for-one"
)

// Child is a supervised unit of work: Run blocks until ctx-like stop
// signal or failure; it returns a non-nil error on failure.
type Child struct {
	Name string
	Run  func(stop <-chan struct{}) error
}

type childState struct {
	child       Child
	stop        chan struct{}
	done        chan struct{}
	restarts    []time.Time
	startedAt   time.Time
}

// Supervisor restarts failed children per Strategy, bounded by
// doctrine's restart budget within a sliding window.
type Supervisor struct {
	strategy Strategy
	doctrine doctrine.Doctrine
	backoff  doctrine.Backoff
	logger   *kernellog.ContextLogger

	mu       sync.Mutex
	children []*childState
	failed   chan string // child names that escalated past their restart budget
}

func New(strategy Strategy, d doctrine.Doctrine, logger *kernellog.ContextLogger) *Supervisor {
	return &Supervisor{
		strategy: strategy,
		doctrine: d,
		backoff:  d.DefaultBackoff,
		logger:   logger,
		failed:   make(chan string, 16),
	}
}

// BackoffFor computes the delay before the nth restart (0-based),
// bounded by doctrine.DefaultBackoff.Max.
func BackoffFor(b doctrine.Backoff, restartCount int) time.Duration {
	if b.Kind == doctrine.BackoffFixed || restartCount <= 0 {
		d := b.Initial
		if d > b.Max && b.Max > 0 {
			d = b.Max
		}
		return d
	}
	d := b.Initial
	for i := 0; i < restartCount; i++ {
		d = time.Duration(float64(d) * b.Factor)
		if b.Max > 0 && d > b.Max {
			return b.Max
		}
	}
	return d
}

// AddChild registers and starts a supervised child.
func (s *Supervisor) AddChild(c Child) {
	st := &childState{child: c, stop: make(chan struct{}), done: make(chan struct{}), startedAt: time.Now()}
	s.mu.Lock()
	s.children = append(s.children, st)
	s.mu.Unlock()
	s.run(st)
}

func (s *Supervisor) run(st *childState) {
	go func() {
		defer close(st.done)
		err := st.child.Run(st.stop)
		select {
		case <-st.stop:
			return // deliberate stop, not a failure
		default:
		}
		if err != nil {
			s.handleFailure(st)
		}
	}()
}

func (s *Supervisor) handleFailure(failed *childState) {
	now := time.Now()
	s.mu.Lock()
	failed.restarts = prune(append(failed.restarts, now), s.doctrine.RestartWindow, now)
	overBudget := len(failed.restarts) > s.doctrine.MaxRestarts
	s.mu.Unlock()

	if overBudget {
		if s.logger != nil {
			s.logger.WithField("child", failed.child.Name).Error("restart budget exceeded, escalating to parent")
		}
		select {
		case s.failed <- failed.child.Name:
		default:
		}
		return
	}

	delay := BackoffFor(s.backoff, len(failed.restarts)-1)
	if s.logger != nil {
		s.logger.WithField("child", failed.child.Name).WithField("delay_ms", delay.Milliseconds()).Warn("restarting failed child")
	}
	time.Sleep(delay)

	switch s.strategy {
	case OneForAll:
		s.restartAll()
	case RestForOne:
		s.restartFrom(failed)
	default: // OneForOne
		s.restartOne(failed)
	}
}

func (s *Supervisor) restartOne(st *childState) {
	st.stop = make(chan struct{})
	st.done = make(chan struct{})
	s.run(st)
}

func (s *Supervisor) restartAll() {
	s.mu.Lock()
	children := append([]*childState(nil), s.children...)
	s.mu.Unlock()
	for _, st := range children {
		close(st.stop)
		st.stop = make(chan struct{})
		st.done = make(chan struct{})
		s.run(st)
	}
}

func (s *Supervisor) restartFrom(failed *childState) {
	s.mu.Lock()
	idx := -1
	for i, st := range s.children {
		if st == failed {
			idx = i
			break
		}
	}
	targets := append([]*childState(nil), s.children[idx:]...)
	s.mu.Unlock()
	for _, st := range targets {
		if st != failed {
			close(st.stop)
		}
		st.stop = make(chan struct{})
		st.done = make(chan struct{})
		s.run(st)
	}
}

// prune drops restart timestamps older than window.
func prune(timestamps []time.Time, window time.Duration, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	out := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// Escalations exposes the channel of child names that exceeded their
// restart budget and must fail the supervisor upward.
func (s *Supervisor) Escalations() <-chan string { return s.failed }

// StopAll signals every child to stop and waits for them to exit.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	children := append([]*childState(nil), s.children...)
	s.mu.Unlock()
	for _, st := range children {
		close(st.stop)
	}
	for _, st := range children {
		<-st.done
	}
}
