package pattern

// ThreadSplit (pattern 40). Spawns multiple concurrent threads of
// control from a single task instance, structurally identical to
// ParallelSplit's token-production rule but scoped to threads within
// one logical activity rather than distinct downstream tasks.
type ThreadSplit struct{}

func (ThreadSplit) ID() int      { return 40 }
func (ThreadSplit) Name() string { return "Thread Split" }

func (ThreadSplit) Execute(ctx CaseExecutionContext) Result {
	return ParallelSplit{}.Execute(ctx)
}

// ThreadMerge (pattern 39). Converges the sibling threads created by a
// ThreadSplit without requiring every thread to have completed — each
// arriving thread independently produces an output token, identical to
// MultiMerge's marking rule.
type ThreadMerge struct{}

func (ThreadMerge) ID() int      { return 39 }
func (ThreadMerge) Name() string { return "Thread Merge" }

func (ThreadMerge) Execute(ctx CaseExecutionContext) Result {
	return MultiMerge{}.Execute(ctx)
}

// ExplicitTermination (pattern 41). A designated task whose firing ends
// the case immediately regardless of tokens still resident elsewhere in
// the marking, as opposed to ImplicitTermination's "marking happens to
// be empty" detection. Marking rule matches CancelCase: every resident
// token, in every condition and task, is removed atomically.
type ExplicitTermination struct{}

func (ExplicitTermination) ID() int      { return 41 }
func (ExplicitTermination) Name() string { return "Explicit Termination" }

func (ExplicitTermination) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	result := CancelCase{}.Execute(ctx)
	if !result.Success {
		return result
	}
	result.Delta.ConsumeConditions[in] = result.Delta.ConsumeConditions[in] + 1
	result.Events = []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "explicit termination"}}
	return result
}

// InterleavedRouting (pattern 42). Delegates to
// InterleavedParallelRouting: the lock condition is keyed the same way
// and the two executors share marking semantics. The Promotion Pipeline
// applies no region-membership check to either pattern.
type InterleavedRouting struct{}

func (InterleavedRouting) ID() int      { return 42 }
func (InterleavedRouting) Name() string { return "Interleaved Routing" }

func (InterleavedRouting) Execute(ctx CaseExecutionContext) Result {
	return InterleavedParallelRouting{}.Execute(ctx)
}

// CriticalSection (pattern 43). A named mutual-exclusion region: only
// one token may be resident inside the region across the whole case at
// any time. Acquisition is expressed as a lock condition
// "<region>__crit"; release happens when the task's CancelRegion-tagged
// successor produces the lock token back (modeled by the Case Engine
// releasing it on task completion, see caseengine.Engine.step).
type CriticalSection struct{}

func (CriticalSection) ID() int      { return 43 }
func (CriticalSection) Name() string { return "Critical Section" }

func (CriticalSection) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	task, _ := ctx.Snapshot.TaskByID(ctx.ElementID)
	if task.CancelRegion == "" {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "critical section requires a declared region")}
	}
	lock := task.CancelRegion + "__crit"
	if ctx.Marking.TokensAt(lock) > 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "critical section requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	d.ProduceConditions[lock] = 1
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 4, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "critical section entered: " + task.CancelRegion}}}
}
