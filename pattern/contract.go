// Package pattern implements the 43 Van der Aalst control-flow pattern
// executors behind one uniform dispatch contract (spec §4.3). The
// registry indexes executors by a 1-based pattern id in [1,43] and
// dispatches in O(1), generalized from executor.Registry's linear
// scan-by-predicate registry (see DESIGN.md).
package pattern

import (
	"github.com/google/uuid"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

// TokenID identifies one token instance. Identity matters for
// multi-instance and cancellation patterns.
type TokenID string

func NewTokenID() TokenID { return TokenID(uuid.NewString()) }

// Marking is the Petri-net marking for one case: a non-negative token
// count per Condition, and the set of token identities currently inside
// each Task.
type Marking struct {
	ConditionTokens map[string]int
	TaskTokens      map[string]map[TokenID]struct{}
}

func NewMarking() Marking {
	return Marking{
		ConditionTokens: make(map[string]int),
		TaskTokens:      make(map[string]map[TokenID]struct{}),
	}
}

// Clone returns a deep copy so executors never observe a marking that
// mutates underneath them mid-evaluation.
func (m Marking) Clone() Marking {
	next := NewMarking()
	for k, v := range m.ConditionTokens {
		next.ConditionTokens[k] = v
	}
	for k, toks := range m.TaskTokens {
		cp := make(map[TokenID]struct{}, len(toks))
		for id := range toks {
			cp[id] = struct{}{}
		}
		next.TaskTokens[k] = cp
	}
	return next
}

func (m Marking) TokensAt(conditionID string) int { return m.ConditionTokens[conditionID] }

func (m Marking) TokensInTask(taskID string) []TokenID {
	set := m.TaskTokens[taskID]
	out := make([]TokenID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Delta describes a marking mutation a pattern executor proposes; the
// Case Engine is the only component that applies it.
type Delta struct {
	ConsumeConditions map[string]int
	ProduceConditions map[string]int
	ConsumeFromTask    map[string][]TokenID
	ProduceIntoTask    map[string][]TokenID
}

func NewDelta() Delta {
	return Delta{
		ConsumeConditions: make(map[string]int),
		ProduceConditions: make(map[string]int),
		ConsumeFromTask:    make(map[string][]TokenID),
		ProduceIntoTask:    make(map[string][]TokenID),
	}
}

// Event is one observable occurrence a pattern executor wants witnessed
// in the receipt log.
type Event struct {
	Kind    string
	Subject string
	Detail  string
}

// TickBudget is the handle an executor uses to report consumed ticks; it
// never enforces the ceiling itself — the scheduler does that around
// the call.
type TickBudget struct {
	Max uint32
}

// CaseExecutionContext is the uniform input every pattern executor
// receives: a reference to the active snapshot, the case marking, the
// enabled element id, runtime variables, and a tick budget handle.
type CaseExecutionContext struct {
	Snapshot  *snapshot.Snapshot
	Marking   Marking
	ElementID string
	Variables map[string]interface{}
	Budget    TickBudget
	CaseID    string
	// ORJoinCache is the promotion-time dead-path-elimination result for
	// OR-joins (snapshot hash, join id) -> (element id -> can still
	// reach join). When it is nil the OR-join executor skips the check
	// and fires as soon as any incoming branch holds a token.
	ORJoinCache *snapshot.CompiledArtifacts
}

// Result is the outcome of one executor invocation.
type Result struct {
	Success    bool
	TicksUsed  uint32
	Delta      Delta
	Events     []Event
	Err        error
}

// Executor is the contract every one of the 43 pattern implementations
// satisfies. Executors are pure with respect to ctx: all mutation is
// expressed as the returned Delta.
type Executor interface {
	// ID returns this executor's 1-based pattern id in [1,43].
	ID() int
	// Name is a human-readable pattern name for receipts/logging.
	Name() string
	// Execute evaluates enablement and, if enabled, produces the
	// marking delta and events for firing once.
	Execute(ctx CaseExecutionContext) Result
}

const maxPatternID = 43

// Registry indexes executors by pattern id for O(1) dispatch.
type Registry struct {
	executors [maxPatternID + 1]Executor // index 0 unused
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register installs executor at its own declared ID. It panics on a
// duplicate or out-of-range id — this is a startup-time wiring error,
// not a runtime condition.
func (r *Registry) Register(e Executor) {
	id := e.ID()
	if id < 1 || id > maxPatternID {
		panic("pattern: id out of range [1,43]")
	}
	if r.executors[id] != nil {
		panic("pattern: duplicate registration for id")
	}
	r.executors[id] = e
}

// Dispatch resolves pattern id and invokes it. O(1): a bounds check and
// an array index.
func (r *Registry) Dispatch(id int, ctx CaseExecutionContext) Result {
	if id < 1 || id > maxPatternID || r.executors[id] == nil {
		return Result{Success: false, Err: kernelerrors.Wrap(kernelerrors.KindPatternNotFound, "", "pattern not found", nil)}
	}
	return r.executors[id].Execute(ctx)
}

func (r *Registry) Get(id int) (Executor, bool) {
	if id < 1 || id > maxPatternID || r.executors[id] == nil {
		return nil, false
	}
	return r.executors[id], nil == nil && r.executors[id] != nil
}

// Registered reports how many of the 43 slots are filled, used by
// startup self-checks and tests.
func (r *Registry) Registered() int {
	n := 0
	for i := 1; i <= maxPatternID; i++ {
		if r.executors[i] != nil {
			n++
		}
	}
	return n
}
