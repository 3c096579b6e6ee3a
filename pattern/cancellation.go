package pattern

// CancelActivity (pattern 19). Removes the token(s) resident in the
// named task instance without producing a downstream token, terminating
// that single activity instance.
type CancelActivity struct{}

func (CancelActivity) ID() int      { return 19 }
func (CancelActivity) Name() string { return "Cancel Activity" }

func (CancelActivity) Execute(ctx CaseExecutionContext) Result {
	resident := ctx.Marking.TokensInTask(ctx.ElementID)
	if len(resident) == 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	d := NewDelta()
	d.ConsumeFromTask[ctx.ElementID] = resident
	return Result{Success: true, TicksUsed: 3, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "activity cancelled"}}}
}

// CancelCase (pattern 20). Atomically removes every token in the case's
// marking; the Case Engine transitions the case to Cancelled afterward.
type CancelCase struct{}

func (CancelCase) ID() int      { return 20 }
func (CancelCase) Name() string { return "Cancel Case" }

func (CancelCase) Execute(ctx CaseExecutionContext) Result {
	d := NewDelta()
	for id, n := range ctx.Marking.ConditionTokens {
		if n > 0 {
			d.ConsumeConditions[id] = n
		}
	}
	for taskID, toks := range ctx.Marking.TaskTokens {
		if len(toks) == 0 {
			continue
		}
		ids := make([]TokenID, 0, len(toks))
		for id := range toks {
			ids = append(ids, id)
		}
		d.ConsumeFromTask[taskID] = ids
	}
	return Result{Success: true, TicksUsed: 4, Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "case cancelled"}}}
}

// CancelRegion (pattern 25). Atomically removes all tokens inside a
// named region's tasks and conditions, declared in the snapshot via
// Task.CancelRegion / Condition.Region.
type CancelRegion struct{}

func (CancelRegion) ID() int      { return 25 }
func (CancelRegion) Name() string { return "Cancel Region" }

func (CancelRegion) Execute(ctx CaseExecutionContext) Result {
	task, _ := ctx.Snapshot.TaskByID(ctx.ElementID)
	region := task.CancelRegion
	if region == "" {
		return Result{Success: false, Err: structureErr(ctx.ElementID, "cancel region requires a declared region")}
	}
	regionTasks, regionConditions := ctx.Snapshot.RegionMembers(region)
	d := NewDelta()
	for _, cID := range regionConditions {
		if n := ctx.Marking.TokensAt(cID); n > 0 {
			d.ConsumeConditions[cID] = n
		}
	}
	for _, tID := range regionTasks {
		if resident := ctx.Marking.TokensInTask(tID); len(resident) > 0 {
			d.ConsumeFromTask[tID] = resident
		}
	}
	return Result{Success: true, TicksUsed: uint32(4 + len(regionTasks) + len(regionConditions)), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "region cancelled: " + region}}}
}

// CancelMultiInstanceActivity (pattern 26). Removes every sibling token
// currently resident in a multi-instance task, abandoning all running
// instances without waiting for completion.
type CancelMultiInstanceActivity struct{}

func (CancelMultiInstanceActivity) ID() int { return 26 }
func (CancelMultiInstanceActivity) Name() string {
	return "Cancel Multiple Instance Activity"
}

func (CancelMultiInstanceActivity) Execute(ctx CaseExecutionContext) Result {
	resident := ctx.Marking.TokensInTask(ctx.ElementID)
	if len(resident) == 0 {
		return Result{Success: false, Err: precondition(ctx.ElementID)}
	}
	d := NewDelta()
	d.ConsumeFromTask[ctx.ElementID] = resident
	return Result{Success: true, TicksUsed: uint32(3 + len(resident)), Delta: d, Events: []Event{{Kind: "pattern-fired", Subject: ctx.ElementID, Detail: "all instances cancelled"}}}
}
