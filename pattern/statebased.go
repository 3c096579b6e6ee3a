package pattern

// DeferredChoice (pattern 16). Input token present; several outgoing
// branches race against an external environment trigger. The trigger is
// supplied by the caller as ctx.Variables["chosen_branch"] (a condition
// id); only that branch receives a token, the others never fire.
type DeferredChoice struct{}

func (DeferredChoice) ID() int      { return 16 }
func (DeferredChoice) Name() string { return "Deferred Choice" }

func (DeferredChoice) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	chosen, ok := ctx.Variables["chosen_branch"].(string)
	if !ok || chosen == "" {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	valid := false
	for _, t := range outgoingTargets(ctx) {
		if t == chosen {
			valid = true
			break
		}
	}
	if !valid {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "chosen_branch is not an outgoing target")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	d.ProduceConditions[chosen] = 1
	return Result{Success: true, TicksUsed: 3, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// InterleavedParallelRouting (pattern 17). A set of sibling tasks that
// share a CancelRegion name execute in any order but never concurrently:
// a lock condition named "<region>__lock" guards mutual exclusion.
type InterleavedParallelRouting struct{}

func (InterleavedParallelRouting) ID() int      { return 17 }
func (InterleavedParallelRouting) Name() string { return "Interleaved Parallel Routing" }

func (InterleavedParallelRouting) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	task, _ := ctx.Snapshot.TaskByID(ctx.ElementID)
	lock := task.CancelRegion + "__lock"
	if task.CancelRegion != "" && ctx.Marking.TokensAt(lock) > 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "interleaved routing requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	if task.CancelRegion != "" {
		d.ProduceConditions[lock] = 1
	}
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 4, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}

// Milestone (pattern 18). Enabled only while a named milestone condition
// (Task.GuardRef) currently holds a token; the milestone condition is
// not consumed — multiple tasks may share the same milestone.
type Milestone struct{}

func (Milestone) ID() int      { return 18 }
func (Milestone) Name() string { return "Milestone" }

func (Milestone) Execute(ctx CaseExecutionContext) Result {
	in, ok := singleIncoming(ctx)
	if !ok || ctx.Marking.TokensAt(in) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	task, _ := ctx.Snapshot.TaskByID(ctx.ElementID)
	if task.GuardRef != "" && ctx.Marking.TokensAt(task.GuardRef) < 1 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "milestone requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: 3, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID}}}
}
