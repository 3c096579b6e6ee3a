package pattern

import "github.com/chatman-systems/workflowkernel/kernelerrors"

// Sequence (pattern 1). Enabled when the single input condition has a
// token; consumes one, produces one on output. ≤2 ticks.
type Sequence struct{}

func (Sequence) ID() int     { return 1 }
func (Sequence) Name() string { return "Sequence" }

func (Sequence) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "sequence requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 2, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// ParallelSplit (pattern 2, AND-split). Consumes one input token,
// produces one on each output condition, sorted by id for determinism.
type ParallelSplit struct{}

func (ParallelSplit) ID() int      { return 2 }
func (ParallelSplit) Name() string { return "Parallel Split" }

func (ParallelSplit) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) == 0 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "AND-split requires at least one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	for _, t := range out {
		d.ProduceConditions[t] = 1
	}
	return Result{Success: true, TicksUsed: 3, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// Synchronization (pattern 3, AND-join). Enabled only when all incoming
// conditions have a token; consumes one from each, produces one output.
type Synchronization struct{}

func (Synchronization) ID() int      { return 3 }
func (Synchronization) Name() string { return "Synchronization" }

func (Synchronization) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	if len(in) == 0 || !allHaveTokens(ctx.Marking, in) {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "AND-join requires exactly one outgoing flow")}
	}
	d := NewDelta()
	for _, src := range in {
		d.ConsumeConditions[src] = 1
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 4, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// ExclusiveChoice (pattern 4, XOR-split). Evaluates outgoing predicates
// in declared order; first true fires, producing exactly one token.
type ExclusiveChoice struct{}

func (ExclusiveChoice) ID() int      { return 4 }
func (ExclusiveChoice) Name() string { return "Exclusive Choice" }

func (ExclusiveChoice) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	flows := ctx.Snapshot.OutgoingFlows(ctx.ElementID)
	for _, f := range flows {
		if evalGuard(ctx, f.Predicate) {
			d := NewDelta()
			d.ConsumeConditions[in] = 1
			d.ProduceConditions[f.Target] = 1
			return Result{Success: true, TicksUsed: 3, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
		}
	}
	return Result{Success: false, Err: kernelerrors.Wrap(kernelerrors.KindNoMatchingBranch, ctx.ElementID, "no outgoing predicate matched", nil)}
}

// SimpleMerge (pattern 5, XOR-join). Enabled by any single incoming
// token; produces one output token. Fails if two arrive simultaneously.
type SimpleMerge struct{}

func (SimpleMerge) ID() int      { return 5 }
func (SimpleMerge) Name() string { return "Simple Merge" }

func (SimpleMerge) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	present := countWithTokens(ctx.Marking, in)
	if present == 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	if present > 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "simultaneous arrival at a simple merge; use Multi-merge")}
	}
	src, _ := anyHasToken(ctx.Marking, in)
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "XOR-join requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[src] = 1
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 2, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

func precondition(elementID string) error {
	return kernelerrors.Wrap(kernelerrors.KindPreconditionNotMet, elementID, "enablement precondition not satisfied", nil)
}

func structureErr(elementID, msg string) error {
	return kernelerrors.Wrap(kernelerrors.KindStructure, elementID, msg, nil)
}
