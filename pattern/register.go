package pattern

// RegisterAll installs all 43 pattern executors into r. Startup wiring
// code (cmd/kerneld) calls this once; a panic here means the catalog is
// incomplete or has a duplicate id, which is a build-time defect, not a
// runtime condition.
func RegisterAll(r *Registry) {
	for _, e := range []Executor{
		Sequence{},
		ParallelSplit{},
		Synchronization{},
		ExclusiveChoice{},
		SimpleMerge{},
		MultiChoice{},
		StructuredSynchronizingMerge{},
		MultiMerge{},
		StructuredDiscriminator{},
		ArbitraryCycles{},
		ImplicitTermination{},
		MIWithoutSync{},
		MIDesignTime{},
		MIRuntimeKnowledge{},
		MIWithoutRuntimeKnowledge{},
		DeferredChoice{},
		InterleavedParallelRouting{},
		Milestone{},
		CancelActivity{},
		CancelCase{},
		StructuredLoop{},
		Recursion{},
		TransientTrigger{},
		PersistentTrigger{},
		CancelRegion{},
		CancelMultiInstanceActivity{},
		CompleteMultiInstanceActivity{},
		BlockingDiscriminator{},
		CancelingDiscriminator{},
		StructuredPartialJoin{},
		BlockingPartialJoin{},
		CancelingPartialJoin{},
		GeneralizedANDJoin{},
		StaticPartialJoinMI{},
		CancelingPartialJoinMI{},
		DynamicPartialJoinMI{},
		AcyclicSynchronizingMerge{},
		GeneralSynchronizingMerge{},
		ThreadMerge{},
		ThreadSplit{},
		ExplicitTermination{},
		InterleavedRouting{},
		CriticalSection{},
	} {
		r.Register(e)
	}
}

// NewDefaultRegistry builds a Registry with all 43 executors installed.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterAll(r)
	return r
}
