package pattern

// Multiple-instance patterns share a two-phase shape: a spawn phase (the
// input condition holds a token, so N sibling tokens are created inside
// the task) and a join phase (instances already resident in the task
// have completed and a downstream token is produced once the pattern's
// threshold of completions is reached). Both phases are evaluated from
// the same Execute call since the Case Engine re-dispatches on every
// enabled element; which phase applies is decided by which side of the
// task currently holds tokens.

func plannedCount(ctx CaseExecutionContext, fallback int) int {
	task, ok := ctx.Snapshot.TaskByID(ctx.ElementID)
	if ok && task.MIPlannedCount > 0 {
		return task.MIPlannedCount
	}
	return fallback
}

func runtimeCount(ctx CaseExecutionContext, def int) int {
	if v, ok := ctx.Variables["mi_count"]; ok {
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	return def
}

func threshold(ctx CaseExecutionContext, n int) int {
	task, ok := ctx.Snapshot.TaskByID(ctx.ElementID)
	if ok && task.MIThreshold > 0 {
		return task.MIThreshold
	}
	return n
}

func miSpawn(ctx CaseExecutionContext, in string, n int) Result {
	d := NewDelta()
	d.ConsumeConditions[in] = 1
	toks := make([]TokenID, n)
	for i := range toks {
		toks[i] = NewTokenID()
	}
	d.ProduceIntoTask[ctx.ElementID] = toks
	return Result{Success: true, TicksUsed: uint32(3 + n), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "spawned instances"}}}
}

func miJoin(ctx CaseExecutionContext, need int) Result {
	resident := ctx.Marking.TokensInTask(ctx.ElementID)
	if len(resident) < need {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	out := outgoingTargets(ctx)
	if len(out) != 1 {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "multi-instance join requires exactly one outgoing flow")}
	}
	d := NewDelta()
	d.ConsumeFromTask[ctx.ElementID] = resident[:need]
	d.ProduceConditions[out[0]] = 1
	return Result{Success: true, TicksUsed: uint32(3 + need), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "instances joined"}}}
}

// MIWithoutSync (pattern 12). Each spawned instance's completion flows
// downstream independently; no synchronization is attempted, so the
// join threshold is always 1.
type MIWithoutSync struct{}

func (MIWithoutSync) ID() int      { return 12 }
func (MIWithoutSync) Name() string { return "Multiple Instances without Synchronization" }

func (MIWithoutSync) Execute(ctx CaseExecutionContext) Result {
	if in, ok := singleIncoming(ctx); ok && ctx.Marking.TokensAt(in) >= 1 {
		return miSpawn(ctx, in, plannedCount(ctx, 1))
	}
	return miJoin(ctx, 1)
}

// MIDesignTime (pattern 13). N is known at design time (Task.MIPlannedCount);
// the join fires when M of N complete (Task.MIThreshold, default N).
type MIDesignTime struct{}

func (MIDesignTime) ID() int      { return 13 }
func (MIDesignTime) Name() string { return "Multiple Instances with a Priori Design-Time Knowledge" }

func (MIDesignTime) Execute(ctx CaseExecutionContext) Result {
	n := plannedCount(ctx, 1)
	if in, ok := singleIncoming(ctx); ok && ctx.Marking.TokensAt(in) >= 1 {
		return miSpawn(ctx, in, n)
	}
	return miJoin(ctx, threshold(ctx, n))
}

// MIRuntimeKnowledge (pattern 14). N is determined at case-runtime via
// ctx.Variables["mi_count"] but is fixed once spawned.
type MIRuntimeKnowledge struct{}

func (MIRuntimeKnowledge) ID() int      { return 14 }
func (MIRuntimeKnowledge) Name() string { return "Multiple Instances with a Priori Runtime Knowledge" }

func (MIRuntimeKnowledge) Execute(ctx CaseExecutionContext) Result {
	n := runtimeCount(ctx, plannedCount(ctx, 1))
	if in, ok := singleIncoming(ctx); ok && ctx.Marking.TokensAt(in) >= 1 {
		return miSpawn(ctx, in, n)
	}
	return miJoin(ctx, threshold(ctx, n))
}

// MIWithoutRuntimeKnowledge (pattern 15). The instance count is not
// known even at spawn time and may grow while others are executing; the
// join threshold tracks whatever count is currently resident at
// evaluation time rather than a value fixed at spawn.
type MIWithoutRuntimeKnowledge struct{}

func (MIWithoutRuntimeKnowledge) ID() int { return 15 }
func (MIWithoutRuntimeKnowledge) Name() string {
	return "Multiple Instances without a Priori Runtime Knowledge"
}

func (MIWithoutRuntimeKnowledge) Execute(ctx CaseExecutionContext) Result {
	if in, ok := singleIncoming(ctx); ok && ctx.Marking.TokensAt(in) >= 1 {
		return miSpawn(ctx, in, runtimeCount(ctx, 1))
	}
	resident := ctx.Marking.TokensInTask(ctx.ElementID)
	return miJoin(ctx, max(1, len(resident)))
}
