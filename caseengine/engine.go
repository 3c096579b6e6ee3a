package caseengine

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/pattern"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/scheduler"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

// caseLock serializes mutation of one case; multiple cases execute
// concurrently (spec §5's concurrency discipline).
type caseLock struct {
	mu sync.Mutex
	c  *Case
}

// Engine drives every live case's marking forward by dispatching
// pattern executors under the scheduler's tick budget (spec §4.4). Case
// bookkeeping (list/evict old terminal cases) is grounded on
// statemanager.Manager.
type Engine struct {
	store     *snapshot.Store
	registry  *pattern.Registry
	scheduler *scheduler.Scheduler
	log       *receipt.Log

	mu    sync.RWMutex
	cases map[string]*caseLock
}

func New(store *snapshot.Store, registry *pattern.Registry, sched *scheduler.Scheduler, log *receipt.Log) *Engine {
	return &Engine{
		store:     store,
		registry:  registry,
		scheduler: sched,
		log:       log,
		cases:     make(map[string]*caseLock),
	}
}

func hashHex(h snapshot.Hash) string { return hex.EncodeToString(h[:]) }

// CreateCase creates a case at the start condition with a single token
// against the given snapshot hash, which must be the currently active
// snapshot (spec §8 boundary behavior: creating against a non-active
// snapshot fails with SnapshotNotFound).
func (e *Engine) CreateCase(snapHash snapshot.Hash, payload map[string]interface{}) (string, error) {
	active, err := e.store.Current()
	if err != nil || active.Hash() != snapHash {
		return "", kernelerrors.ErrSnapshotNotFound
	}
	start, ok := active.StartCondition()
	if !ok {
		return "", kernelerrors.New(kernelerrors.KindStructure, hashHex(snapHash), "snapshot has no start condition")
	}

	marking := pattern.NewMarking()
	marking.ConditionTokens[start.ID] = 1

	c := &Case{
		ID:           uuid.NewString(),
		SnapshotHash: hashHex(snapHash),
		Payload:      payload,
		Marking:      marking,
		State:        StateCreated,
		StartTime:    time.Now(),
		Epoch:        e.store.CurrentEpoch(),
	}

	e.mu.Lock()
	e.cases[c.ID] = &caseLock{c: c}
	e.mu.Unlock()

	e.log.Append(receipt.Receipt{Kind: receipt.KindCaseCreated, Subject: c.ID, Outcome: "success"})
	return c.ID, nil
}

func (e *Engine) lockFor(caseID string) (*caseLock, error) {
	e.mu.RLock()
	cl, ok := e.cases[caseID]
	e.mu.RUnlock()
	if !ok {
		return nil, kernelerrors.ErrCaseNotFound
	}
	return cl, nil
}

// GetCaseState returns a case's current state.
func (e *Engine) GetCaseState(caseID string) (State, error) {
	cl, err := e.lockFor(caseID)
	if err != nil {
		return "", err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.c.State, nil
}

// GetCase returns a copy-safe pointer to the live case (callers must not
// mutate Marking/History directly; only Engine methods do).
func (e *Engine) GetCase(caseID string) (*Case, error) {
	cl, err := e.lockFor(caseID)
	if err != nil {
		return nil, err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.c, nil
}

// Suspend moves a Running case to Suspended.
func (e *Engine) Suspend(caseID string) error {
	cl, err := e.lockFor(caseID)
	if err != nil {
		return err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if !cl.c.State.CanTransitionTo(StateSuspended) {
		return kernelerrors.New(kernelerrors.KindPreconditionNotMet, caseID, "case is not suspendable from its current state")
	}
	cl.c.State = StateSuspended
	return nil
}

// Resume moves a Suspended case back to Running.
func (e *Engine) Resume(caseID string) error {
	cl, err := e.lockFor(caseID)
	if err != nil {
		return err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.c.State != StateSuspended {
		return kernelerrors.New(kernelerrors.KindPreconditionNotMet, caseID, "case is not suspended")
	}
	cl.c.State = StateRunning
	return nil
}

// Cancel applies Cancel Case semantics (pattern 20): every resident
// token is removed atomically, and the case transitions to Cancelled.
func (e *Engine) Cancel(caseID string) error {
	cl, err := e.lockFor(caseID)
	if err != nil {
		return err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	c := cl.c
	if c.State.IsTerminal() {
		return nil // stepping/cancelling a terminal case is a no-op
	}

	ctx := pattern.CaseExecutionContext{Marking: c.Marking, ElementID: c.ID, CaseID: c.ID}
	result := (pattern.CancelCase{}).Execute(ctx)
	c.Marking = applyDelta(c.Marking, result.Delta)
	now := time.Now()
	c.CompletionTime = &now
	c.State = StateCancelled
	c.appendHistory(HistoryEntry{Timestamp: now, ElementID: c.ID, PatternID: 20, Success: true, TicksUsed: result.TicksUsed, Outcome: "cancelled"})
	e.log.Append(receipt.Receipt{Kind: receipt.KindCaseCancelled, Subject: c.ID, Outcome: "success", Ticks: result.TicksUsed})
	return nil
}

// enabledElements returns every task id in canonical (sorted) order,
// which is the deterministic tie-break order spec §4.4 requires. It does
// not filter by marking: each task's executor decides whether it is
// enabled, and Step moves on to the next id when it is not.
func enabledElements(snap *snapshot.Snapshot) []string {
	spec := snap.Spec()
	ids := make([]string, 0, len(spec.Tasks))
	for _, t := range spec.Tasks {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}

func applyDelta(m pattern.Marking, d pattern.Delta) pattern.Marking {
	next := m.Clone()
	for id, n := range d.ConsumeConditions {
		next.ConditionTokens[id] -= n
		if next.ConditionTokens[id] < 0 {
			next.ConditionTokens[id] = 0
		}
	}
	for id, n := range d.ProduceConditions {
		next.ConditionTokens[id] += n
	}
	for taskID, toks := range d.ConsumeFromTask {
		set := next.TaskTokens[taskID]
		for _, tok := range toks {
			delete(set, tok)
		}
	}
	for taskID, toks := range d.ProduceIntoTask {
		set := next.TaskTokens[taskID]
		if set == nil {
			set = make(map[pattern.TokenID]struct{})
			next.TaskTokens[taskID] = set
		}
		for _, tok := range toks {
			set[tok] = struct{}{}
		}
	}
	return next
}

func isQuiescent(m pattern.Marking) bool {
	for _, n := range m.ConditionTokens {
		if n > 0 {
			return false
		}
	}
	for _, toks := range m.TaskTokens {
		if len(toks) > 0 {
			return false
		}
	}
	return true
}

// priorityFor picks the scheduler lane for a task: hot-path-eligible
// tasks (non-zero MaxTicks) dispatch at Critical, everything else at
// Normal (spec §4.5).
func priorityFor(task snapshot.Task) scheduler.Priority {
	if task.MaxTicks > 0 {
		return scheduler.Critical
	}
	return scheduler.Normal
}

// Step chooses one enabled element, dispatches its pattern executor
// under the scheduler, applies the returned delta, records receipts for
// every event, and updates case state (spec §4.4). Stepping a terminal
// case is a no-op that returns the terminal state (spec §8).
func (e *Engine) Step(caseID string) (State, error) {
	cl, err := e.lockFor(caseID)
	if err != nil {
		return "", err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	c := cl.c

	if c.State.IsTerminal() {
		return c.State, nil
	}
	if c.State == StateSuspended {
		return c.State, nil
	}

	snap, err := e.snapshotFor(c)
	if err != nil {
		c.State = StateFailed
		return c.State, err
	}

	for _, elementID := range enabledElements(snap) {
		task, _ := snap.TaskByID(elementID)
		ctx := pattern.CaseExecutionContext{
			Snapshot:  snap,
			Marking:   c.Marking,
			ElementID: elementID,
			Variables: c.Payload,
			CaseID:    c.ID,
		}
		if artifacts := e.store.CurrentDescriptor(); artifacts != nil {
			ctx.ORJoinCache = artifacts.Artifacts
		}

		priority := priorityFor(task)
		var result pattern.Result
		execErr, ticks, metBudget := e.scheduler.ExecuteWithBounds(priority, func() (uint32, error) {
			result = e.registry.Dispatch(task.PatternID, ctx)
			return result.TicksUsed, result.Err
		})
		_ = execErr
		if !metBudget {
			e.log.Append(receipt.Receipt{Kind: receipt.KindPatternFired, Subject: elementID, Outcome: "budget-exceeded", Ticks: ticks})
		}

		if !result.Success {
			if kerr := kernelerrors.KindOf(result.Err); kerr != "" && !((&kernelerrors.Error{Kind: kerr}).Retriable()) {
				c.State = StateFailed
				now := time.Now()
				c.CompletionTime = &now
				c.appendHistory(HistoryEntry{Timestamp: now, ElementID: elementID, PatternID: task.PatternID, Success: false, TicksUsed: ticks, Outcome: string(kerr)})
				e.log.Append(receipt.Receipt{Kind: receipt.KindTaskFailed, Subject: elementID, Outcome: string(kerr), Ticks: ticks})
				return c.State, nil
			}
			continue // not enabled or a retriable precondition: try the next element
		}

		if c.State == StateCreated {
			c.State = StateRunning
		}
		c.Marking = applyDelta(c.Marking, result.Delta)
		c.appendHistory(HistoryEntry{Timestamp: time.Now(), ElementID: elementID, PatternID: task.PatternID, Success: true, TicksUsed: ticks, Outcome: "success"})
		e.log.Append(receipt.Receipt{Kind: receipt.KindPatternFired, Subject: elementID, Outcome: "success", Ticks: ticks})
		e.log.Append(receipt.Receipt{Kind: receipt.KindTaskCompleted, Subject: elementID, Outcome: "success", Ticks: ticks})

		// Tokens resting in end conditions do not keep the case running.
		settled := c.Marking.Clone()
		for _, end := range snap.EndConditions() {
			delete(settled.ConditionTokens, end.ID)
		}
		if isQuiescent(settled) {
			e.completeIfQuiescent(c)
		}
		return c.State, nil
	}

	// No element fired this round.
	if c.State == StateCreated && isQuiescent(c.Marking) {
		e.completeIfQuiescent(c)
	}
	return c.State, nil
}

func (e *Engine) completeIfQuiescent(c *Case) {
	hasEnd := false
	// A case with no token left outside its end conditions is only
	// "Completed" once at least one element has fired successfully; a
	// case that never fired anything keeps its state (cancelled and
	// failed cases are handled by their own paths).
	for _, h := range c.History {
		if h.Success {
			hasEnd = true
			break
		}
	}
	if !hasEnd {
		return
	}
	now := time.Now()
	c.State = StateCompleted
	c.CompletionTime = &now
}

func (e *Engine) snapshotFor(c *Case) (*snapshot.Snapshot, error) {
	var h snapshot.Hash
	decoded, err := hex.DecodeString(c.SnapshotHash)
	if err != nil || len(decoded) != len(h) {
		return nil, kernelerrors.ErrSnapshotNotFound
	}
	copy(h[:], decoded)
	return e.store.Get(h)
}

// RunToQuiescence repeatedly steps the case until no element is enabled
// or a terminal state is reached (spec §4.4).
func (e *Engine) RunToQuiescence(caseID string) (State, error) {
	const maxSteps = 10_000 // backstop against a malformed snapshot cycling forever
	var last State
	fired := -1
	for i := 0; i < maxSteps; i++ {
		s, err := e.Step(caseID)
		if err != nil {
			return s, err
		}
		if s == last && s.IsTerminal() {
			return s, nil
		}
		if s.IsTerminal() {
			return s, nil
		}
		prev, err := e.GetCase(caseID)
		if err != nil {
			return s, err
		}
		if isQuiescent(prev.Marking) || len(prev.History) == fired {
			return s, nil // nothing left to fire
		}
		fired = len(prev.History)
		last = s
	}
	return last, kernelerrors.New(kernelerrors.KindDoctrineBreach, caseID, "run_to_quiescence exceeded step backstop")
}

// ListCases returns every known case id (used by the control surface's
// list_active_cases query, grounded on statemanager.Manager.List).
func (e *Engine) ListCases() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.cases))
	for id := range e.cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EvictTerminal removes terminal cases older than olderThan, mirroring
// statemanager.Manager's eviction sweep for long-lived processes.
func (e *Engine) EvictTerminal(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	e.mu.Lock()
	defer e.mu.Unlock()
	evicted := 0
	for id, cl := range e.cases {
		cl.mu.Lock()
		terminal := cl.c.State.IsTerminal() && cl.c.CompletionTime != nil && cl.c.CompletionTime.Before(cutoff)
		cl.mu.Unlock()
		if terminal {
			delete(e.cases, id)
			evicted++
		}
	}
	return evicted
}
