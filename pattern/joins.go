package pattern

// partialJoin fires once at least `need` of the incoming branches in
// `in` hold a token, consuming exactly `need` of them (in canonical id
// order) and leaving any further token where it is.
func partialJoin(ctx CaseExecutionContext, in []string, need int) (Result, bool) {
	present := countWithTokens(ctx.Marking, in)
	if present < need {
		return Result{Success: false, Err: precondition(ctx.ElementID)}, false
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "partial join requires exactly one outgoing flow")}, false
	}
	d := NewDelta()
	taken := 0
	for _, src := range in {
		if taken >= need {
			break
		}
		if ctx.Marking.TokensAt(src) > 0 {
			d.ConsumeConditions[src] = 1
			taken++
		}
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: uint32(4 + need), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}, true
}

// BlockingDiscriminator (pattern 28). Fires on the first of N incoming
// branches. It refuses to fire while the caller-supplied
// ctx.Variables["discriminator_fired_<element id>"] is true, unless
// ctx.Variables["reset"] is true; the executor never sets either
// variable itself.
type BlockingDiscriminator struct{}

func (BlockingDiscriminator) ID() int      { return 28 }
func (BlockingDiscriminator) Name() string { return "Blocking Discriminator" }

func (BlockingDiscriminator) Execute(ctx CaseExecutionContext) Result {
	if reset, _ := ctx.Variables["reset"].(bool); !reset {
		if blocked, _ := ctx.Variables["discriminator_fired_"+ctx.ElementID].(bool); blocked {
			return Result{Success: false, Err: precondition(ctx.ElementID)}
		}
	}
	r, _ := partialJoin(ctx, incomingSources(ctx), 1)
	return r
}

// CancelingDiscriminator (pattern 29). Fires on first arrival and
// cancels every other still-pending incoming branch by draining their
// tokens without propagating them.
type CancelingDiscriminator struct{}

func (CancelingDiscriminator) ID() int      { return 29 }
func (CancelingDiscriminator) Name() string { return "Canceling Discriminator" }

func (CancelingDiscriminator) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	first, ok := anyHasToken(ctx.Marking, in)
	if !ok {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "canceling discriminator requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[first] = 1
	for _, src := range in {
		if src != first && ctx.Marking.TokensAt(src) > 0 {
			d.ConsumeConditions[src] = ctx.Marking.TokensAt(src)
		}
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: uint32(4 + len(in)), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "remaining branches cancelled"}}}
}

// StructuredPartialJoin (pattern 30). Fires when M of N incoming
// branches hold a token (M = Task.MIThreshold, default N); remaining
// tokens are left for a future firing.
type StructuredPartialJoin struct{}

func (StructuredPartialJoin) ID() int      { return 30 }
func (StructuredPartialJoin) Name() string { return "Structured Partial Join" }

func (StructuredPartialJoin) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	r, _ := partialJoin(ctx, in, threshold(ctx, len(in)))
	return r
}

// BlockingPartialJoin (pattern 31). Same firing rule as Structured
// Partial Join, with BlockingDiscriminator's guard for the M-of-N case:
// it refuses to fire while ctx.Variables["partial_join_fired_<element id>"]
// is true, unless ctx.Variables["reset"] is true. Both variables come
// from the caller.
type BlockingPartialJoin struct{}

func (BlockingPartialJoin) ID() int      { return 31 }
func (BlockingPartialJoin) Name() string { return "Blocking Partial Join" }

func (BlockingPartialJoin) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	if reset, _ := ctx.Variables["reset"].(bool); !reset {
		if blocked, _ := ctx.Variables["partial_join_fired_"+ctx.ElementID].(bool); blocked {
			return Result{Success: false, Err: precondition(ctx.ElementID)}
		}
	}
	r, _ := partialJoin(ctx, in, threshold(ctx, len(in)))
	return r
}

// CancelingPartialJoin (pattern 32). Fires when M of N branches hold a
// token and cancels (drains) the remaining N-M branches.
type CancelingPartialJoin struct{}

func (CancelingPartialJoin) ID() int      { return 32 }
func (CancelingPartialJoin) Name() string { return "Canceling Partial Join" }

func (CancelingPartialJoin) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	need := threshold(ctx, len(in))
	present := countWithTokens(ctx.Marking, in)
	if present < need {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "canceling partial join requires exactly one outgoing flow")}
	}
	d := NewDelta()
	taken := 0
	for _, src := range in {
		n := ctx.Marking.TokensAt(src)
		if n == 0 {
			continue
		}
		if taken < need {
			d.ConsumeConditions[src] = 1
			taken++
		} else {
			d.ConsumeConditions[src] = n // drain the rest
		}
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: uint32(4 + len(in)), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "unmatched branches cancelled"}}}
}

// GeneralizedANDJoin (pattern 33). An AND-join whose active incoming set
// is determined at runtime via ctx.Variables["active_branches"] (a
// []string of condition ids expected to participate this round) rather
// than the full static incoming set.
type GeneralizedANDJoin struct{}

func (GeneralizedANDJoin) ID() int      { return 33 }
func (GeneralizedANDJoin) Name() string { return "Generalized AND-Join" }

func (GeneralizedANDJoin) Execute(ctx CaseExecutionContext) Result {
	in := incomingSources(ctx)
	if active, ok := ctx.Variables["active_branches"].([]string); ok && len(active) > 0 {
		in = active
	}
	return Synchronization{}.executeOver(ctx, in)
}

// executeOver lets Synchronization be reused with an explicit branch set.
func (Synchronization) executeOver(ctx CaseExecutionContext, in []string) Result {
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

// StaticPartialJoinMI (pattern 34). Multi-instance join where N and the
// threshold M are both fixed at design time (Task.MIPlannedCount /
// Task.MIThreshold); completions beyond M are absorbed without
// re-firing.
type StaticPartialJoinMI struct{}

func (StaticPartialJoinMI) ID() int { return 34 }
func (StaticPartialJoinMI) Name() string {
	return "Static Partial Join for Multiple Instances"
}

func (StaticPartialJoinMI) Execute(ctx CaseExecutionContext) Result {
	n := plannedCount(ctx, 1)
	r := miJoin(ctx, threshold(ctx, n))
	if r.Success {
		// absorb every resident completion, not just the M that met the threshold
		r.Delta.ConsumeFromTask[ctx.ElementID] = ctx.Marking.TokensInTask(ctx.ElementID)
	}
	return r
}

// CancelingPartialJoinMI (pattern 35). Like StaticPartialJoinMI, but the
// instances that have not yet completed when the threshold is reached
// are cancelled rather than left running.
type CancelingPartialJoinMI struct{}

func (CancelingPartialJoinMI) ID() int { return 35 }
func (CancelingPartialJoinMI) Name() string {
	return "Canceling Partial Join for Multiple Instances"
}

func (CancelingPartialJoinMI) Execute(ctx CaseExecutionContext) Result {
	need := threshold(ctx, plannedCount(ctx, 1))
	resident := ctx.Marking.TokensInTask(ctx.ElementID)
	if len(resident) < need {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "multi-instance join requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeFromTask[ctx.ElementID] = resident // cancels every remaining instance, not just the threshold
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: uint32(4 + len(resident)), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "remaining instances cancelled"}}}
}

// DynamicPartialJoinMI (pattern 36). N and M are both determined at
// runtime and may still be changing when the join evaluates; the
// threshold tracks ctx.Variables["mi_threshold"] against the instance
// count currently resident.
type DynamicPartialJoinMI struct{}

func (DynamicPartialJoinMI) ID() int { return 36 }
func (DynamicPartialJoinMI) Name() string {
	return "Dynamic Partial Join for Multiple Instances"
}

func (DynamicPartialJoinMI) Execute(ctx CaseExecutionContext) Result {
	need := 1
	if v, ok := ctx.Variables["mi_threshold"].(int); ok && v > 0 {
		need = v
	}
	return miJoin(ctx, need)
}

// AcyclicSynchronizingMerge (pattern 37). The OR-join restricted to
// control-flow graphs the Promotion Pipeline has proven acyclic;
// dispatch is identical to the general case since the dead-path cache
// already accounts for graph shape.
type AcyclicSynchronizingMerge struct{}

func (AcyclicSynchronizingMerge) ID() int      { return 37 }
func (AcyclicSynchronizingMerge) Name() string { return "Acyclic Synchronizing Merge" }

func (AcyclicSynchronizingMerge) Execute(ctx CaseExecutionContext) Result {
	return StructuredSynchronizingMerge{}.Execute(ctx)
}

// GeneralSynchronizingMerge (pattern 38). The OR-join generalized to
// cyclic control-flow graphs; relies on the same dead-path-elimination
// cache, which is computed with cycles in mind (see promotion/orjoin.go).
type GeneralSynchronizingMerge struct{}

func (GeneralSynchronizingMerge) ID() int      { return 38 }
func (GeneralSynchronizingMerge) Name() string { return "General Synchronizing Merge" }

func (GeneralSynchronizingMerge) Execute(ctx CaseExecutionContext) Result {
	return StructuredSynchronizingMerge{}.Execute(ctx)
}
