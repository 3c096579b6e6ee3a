package pattern

import "github.com/chatman-systems/workflowkernel/kernelerrors"

// MultiChoice (pattern 6, OR-split). Evaluates every outgoing predicate;
// fires on every branch whose predicate is true, producing one token on
// each. Fails with NoMatchingBranch if none are true.
type MultiChoice struct{}

func (MultiChoice) ID() int      { return 6 }
func (MultiChoice) Name() string { return "Multi-choice" }

func (MultiChoice) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	flows := ctx.Snapshot.OutgoingFlows(ctx.ElementID)
	d := NewDelta()
	fired := 0
	for _, f := range flows {
		if evalGuard(ctx, f.Predicate) {
			d.ProduceConditions[f.Target] = d.ProduceConditions[f.Target] + 1
			fired++
		}
	}
	if fired == 0 {
		return Result{Success: false, Err: noMatchingBranch(ctx.ElementID)}
	}
	d.ConsumeConditions[in] = 1
	return Result{Success: true, TicksUsed: uint32(2 + fired), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// StructuredSynchronizingMerge (pattern 7, OR-join). Enabled when no
// further token can reasonably arrive at this join; this non-local
// check is answered by the promotion-time dead-path-elimination cache
// (see promotion/orjoin.go and DESIGN.md Open Question #1), looked up
// per (snapshot hash, join id).
type StructuredSynchronizingMerge struct{}

func (StructuredSynchronizingMerge) ID() int      { return 7 }
func (StructuredSynchronizingMerge) Name() string { return "Structured Synchronizing Merge" }

func (StructuredSynchronizingMerge) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	present := countWithTokens(ctx.Marking, in)
	if present == 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}

	if ctx.ORJoinCache != nil {
		canFire := ctx.ORJoinCache.ORJoinCanFire[ctx.ElementID]
		for _, src := range in {
			if ctx.Marking.TokensAt(src) == 0 && canFire != nil && canFire[src] {
				// A branch with no token yet can still reach this join:
				// not every incoming path has been resolved, so waiting
				// continues.
				return Result{Success: false, Err: precondition(ctx.ElementID)}
			}
		}
	}

	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "OR-join requires exactly one outgoing flow")}
	}
	d := NewDelta()
	for _, src := range in {
		if ctx.Marking.TokensAt(src) > 0 {
			d.ConsumeConditions[src] = ctx.Marking.TokensAt(src)
		}
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 5, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// MultiMerge (pattern 8). Every arriving token independently produces an
// output token; no synchronization is attempted.
type MultiMerge struct{}

func (MultiMerge) ID() int      { return 8 }
func (MultiMerge) Name() string { return "Multi-merge" }

func (MultiMerge) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	present := countWithTokens(ctx.Marking, in)
	if present == 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "multi-merge requires exactly one outgoing flow")}
	}
	d := NewDelta()
	fired := 0
	for _, src := range in {
		n := ctx.Marking.TokensAt(src)
		if n > 0 {
			d.ConsumeConditions[src] = n
			d.ProduceConditions[out[0]] = d.ProduceConditions[out[0]] + n
			fired += n
		}
	}
	return Result{Success: true, TicksUsed: uint32(2 + fired), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// StructuredDiscriminator (pattern 9). Fires on the first arrival among
// N incoming branches; remaining arrivals in the same evaluation are
// drained without producing additional output tokens (a stateless
// approximation of "subsequent arrivals are silently absorbed until a
// reset", since markings alone do not retain which branches already
// fired this round).
type StructuredDiscriminator struct{}

func (StructuredDiscriminator) ID() int      { return 9 }
func (StructuredDiscriminator) Name() string { return "Structured Discriminator" }

func (StructuredDiscriminator) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	present := countWithTokens(ctx.Marking, in)
	if present == 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "discriminator requires exactly one outgoing flow")}
	}
	d := NewDelta()
	for _, src := range in {
		if n := ctx.Marking.TokensAt(src); n > 0 {
			d.ConsumeConditions[src] = n
		}
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 4, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

func noMatchingBranch(elementID string) error {
	return kernelerrors.Wrap(kernelerrors.KindNoMatchingBranch, elementID, "no outgoing predicate matched", nil)
}
