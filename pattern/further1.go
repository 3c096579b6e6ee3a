package pattern

// ArbitraryCycles (pattern 10). Structurally identical to Sequence: one
// input, one output: the distinguishing property is that the control-flow
// graph is permitted to route an output back to an earlier condition.
// The executor itself enforces no acyclicity constraint — cycle safety
// is the Promotion Pipeline's concern (see promotion's soundness check),
// not the dispatch contract's.
type ArbitraryCycles struct{}

func (ArbitraryCycles) ID() int      { return 10 }
func (ArbitraryCycles) Name() string { return "Arbitrary Cycles" }

func (ArbitraryCycles) Execute(ctx CaseExecutionContext) Result {
	return Sequence{}.Execute(ctx)
}

// ImplicitTermination (pattern 11). Not dispatched against a single
// task; instead evaluated against the whole case marking to detect "no
// condition holds a token and no task has a resident instance", the
// signal the Case Engine uses to move a case to Completed without an
// explicit terminating task firing.
type ImplicitTermination struct{}

func (ImplicitTermination) ID() int      { return 11 }
func (ImplicitTermination) Name() string { return "Implicit Termination" }

func (ImplicitTermination) Execute(ctx CaseExecutionContext) Result {
	for _, n := range ctx.Marking.ConditionTokens {
		if n > 0 {
			return Result{Success: false, Err: precondition(ctx.ElementID)}
		}
	}
	for _, toks := range ctx.Marking.TaskTokens {
		if len(toks) > 0 {
			return Result{Success: false, Err: precondition(ctx.ElementID)}
		}
	}
	return Result{Success: true, TicksUsed: 1, Delta: NewDelta(), Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "implicit termination detected"}}}
}

// StructuredLoop (pattern 21). A loop-back choice: the guard decides
// between repeating (routing to an earlier condition) and exiting,
// evaluated in declared flow order exactly like Exclusive Choice.
type StructuredLoop struct{}

func (StructuredLoop) ID() int      { return 21 }
func (StructuredLoop) Name() string { return "Structured Loop" }

func (StructuredLoop) Execute(ctx CaseExecutionContext) Result {
	return ExclusiveChoice{}.Execute(ctx)
}

// Recursion (pattern 22). A task that invokes a nested instance of the
// same workflow fragment, tracked by an explicit depth counter in
// ctx.Variables["depth"]; depth 0 routes to the non-recursive exit
// branch, any other value routes back to the recursive entry branch.
type Recursion struct{}

func (Recursion) ID() int      { return 22 }
func (Recursion) Name() string { return "Recursion" }

func (Recursion) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	depth, _ := ctx.Variables["depth"].(int)
	out := outgoingTargets(ctx)
	if len(out) < 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "recursion requires at least one outgoing flow")}
	}
	target := out[0]
	if depth > 0 && len(out) > 1 {
		target = out[1] // recursive branch, by canonical-order convention
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	d.ProduceConditions[target] = 1
	return Result{Success: true, TicksUsed: 4, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "recursion depth applied"}}}
}

// TransientTrigger (pattern 23). An external signal is consumed at most
// once: if ctx.Variables["trigger_<element>"] is not true at the moment
// of evaluation the signal is lost, it does not persist in the marking.
type TransientTrigger struct{}

func (TransientTrigger) ID() int      { return 23 }
func (TransientTrigger) Name() string { return "Transient Trigger" }

func (TransientTrigger) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	fired, _ := ctx.Variables["trigger_"+ctx.ElementID].(bool)
	if !fired {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "transient trigger requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 3, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// PersistentTrigger (pattern 24). Unlike TransientTrigger, the signal is
// itself a token held in the marking (the input condition), so it
// persists across evaluations until consumed — identical marking rule
// to Sequence.
type PersistentTrigger struct{}

func (PersistentTrigger) ID() int      { return 24 }
func (PersistentTrigger) Name() string { return "Persistent Trigger" }

func (PersistentTrigger) Execute(ctx CaseExecutionContext) Result {
	return Sequence{}.Execute(ctx)
}

// CompleteMultiInstanceActivity (pattern 27). Forces early completion of
// a multi-instance task: whatever instances are currently resident are
// joined immediately, without waiting for the pattern's normal
// threshold.
type CompleteMultiInstanceActivity struct{}

func (CompleteMultiInstanceActivity) ID() int { return 27 }
func (CompleteMultiInstanceActivity) Name() string {
	return "Complete Multiple Instance Activity"
}

func (CompleteMultiInstanceActivity) Execute(ctx CaseExecutionContext) Result {
	resident := ctx.Marking.TokensInTask(ctx.ElementID)
	return miJoin(ctx, max(1, len(resident)))
}
