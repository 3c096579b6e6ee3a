package promotion

import "github.com/chatman-systems/workflowkernel/snapshot"

// ComputeORJoinCache resolves Open Question #1 (spec §9): the OR-join's
// non-local "no more tokens can arrive" check is precomputed here as
// dead-path elimination over the control-flow graph, cached per
// (snapshot hash, join id) in the descriptor's CompiledArtifacts (see
// DESIGN.md). For every OR-join task, ORJoinCanFire[joinID][elementID]
// is true when a token resident at elementID can still reach joinID —
// i.e. that incoming branch has not yet been structurally ruled out.
// The executor (pattern.StructuredSynchronizingMerge) combines this
// static reachability with the live marking: a branch with no token
// that can still reach the join means waiting continues.
func ComputeORJoinCache(spec snapshot.Spec) map[string]map[string]bool {
	forward, _ := adjacency(spec)

	cache := make(map[string]map[string]bool)
	for _, t := range spec.Tasks {
		if t.Join != snapshot.SemOR {
			continue
		}
		canFire := make(map[string]bool)
		for id := range reachableTo(forward, t.ID) {
			canFire[id] = true
		}
		cache[t.ID] = canFire
	}
	return cache
}

// reachableTo returns every node that has a forward path to target,
// computed as a reverse BFS over the forward adjacency.
func reachableTo(forward map[string][]string, target string) map[string]bool {
	reverse := make(map[string][]string)
	for src, targets := range forward {
		for _, t := range targets {
			reverse[t] = append(reverse[t], src)
		}
	}
	return bfsReachable(target, reverse)
}
