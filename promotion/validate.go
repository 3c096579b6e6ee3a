// Package promotion gates the transition from candidate to active
// snapshot (spec §4.2): static/dynamic/performance/invariant checks,
// then an atomic descriptor install. The soundness check is a
// breadth-first reachability sweep over the Flow graph's source->target
// edges, run forward from the start condition and backward from every
// end condition.
package promotion

import (
	"fmt"

	"github.com/chatman-systems/workflowkernel/doctrine"
	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

// adjacency builds forward and reverse edge maps over every id
// (task or condition) appearing in the spec's Flows.
func adjacency(spec snapshot.Spec) (forward, reverse map[string][]string) {
	forward = make(map[string][]string)
	reverse = make(map[string][]string)
	for _, f := range spec.Flows {
		forward[f.Source] = append(forward[f.Source], f.Target)
		reverse[f.Target] = append(reverse[f.Target], f.Source)
	}
	return forward, reverse
}

func bfsReachable(start string, edges map[string][]string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range edges[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// StaticChecks runs referential integrity, uniqueness, and the single
// start / at-least-one-end checks from spec §3.
func StaticChecks(spec snapshot.Spec) error {
	taskIDs := make(map[string]bool, len(spec.Tasks))
	for _, t := range spec.Tasks {
		if taskIDs[t.ID] {
			return kernelerrors.New(kernelerrors.KindStructure, t.ID, "duplicate task id")
		}
		taskIDs[t.ID] = true
	}
	condIDs := make(map[string]bool, len(spec.Conditions))
	for _, c := range spec.Conditions {
		if condIDs[c.ID] || taskIDs[c.ID] {
			return kernelerrors.New(kernelerrors.KindStructure, c.ID, "duplicate condition id")
		}
		condIDs[c.ID] = true
	}

	exists := func(id string) bool { return taskIDs[id] || condIDs[id] }
	for _, f := range spec.Flows {
		if !exists(f.Source) {
			return kernelerrors.New(kernelerrors.KindStructure, f.Source, "flow references unknown source")
		}
		if !exists(f.Target) {
			return kernelerrors.New(kernelerrors.KindStructure, f.Target, "flow references unknown target")
		}
		bothTasks := taskIDs[f.Source] && taskIDs[f.Target]
		bothConditions := condIDs[f.Source] && condIDs[f.Target]
		if bothTasks || bothConditions {
			return kernelerrors.New(kernelerrors.KindStructure, f.Source+"->"+f.Target, "flow must connect a task and a condition")
		}
	}

	starts := 0
	ends := 0
	for _, c := range spec.Conditions {
		switch c.Role {
		case snapshot.RoleStart:
			starts++
		case snapshot.RoleEnd:
			ends++
		}
	}
	if starts != 1 {
		return kernelerrors.New(kernelerrors.KindStructure, "", fmt.Sprintf("snapshot must have exactly one start condition, found %d", starts))
	}
	if ends < 1 {
		return kernelerrors.New(kernelerrors.KindStructure, "", "snapshot must have at least one end condition")
	}
	return nil
}

// SoundnessCheck verifies every reachable state can reach an end
// condition and that the start condition can reach every node (no
// dangling unreachable fragment, no deadlock in the control-flow graph).
func SoundnessCheck(spec snapshot.Spec) error {
	forward, reverse := adjacency(spec)

	var start string
	for _, c := range spec.Conditions {
		if c.Role == snapshot.RoleStart {
			start = c.ID
		}
	}
	if start == "" {
		return kernelerrors.New(kernelerrors.KindStructure, "", "no start condition to check soundness from")
	}

	forwardReach := bfsReachable(start, forward)

	allNodes := make(map[string]bool)
	for _, t := range spec.Tasks {
		allNodes[t.ID] = true
	}
	for _, c := range spec.Conditions {
		allNodes[c.ID] = true
	}
	for id := range allNodes {
		if !forwardReach[id] {
			return kernelerrors.New(kernelerrors.KindStructure, id, "element is unreachable from the start condition")
		}
	}

	canReachEnd := make(map[string]bool)
	for _, c := range spec.Conditions {
		if c.Role == snapshot.RoleEnd {
			for id := range bfsReachable(c.ID, reverse) {
				canReachEnd[id] = true
			}
		}
	}
	for id := range allNodes {
		if !canReachEnd[id] {
			return kernelerrors.New(kernelerrors.KindStructure, id, "element cannot reach any end condition (deadlock)")
		}
	}
	return nil
}

// PerformanceCheck estimates pattern dispatch cost per hot-path-eligible
// task and rejects a snapshot where a declared ceiling exceeds the
// Chatman constant.
func PerformanceCheck(spec snapshot.Spec, d doctrine.Doctrine) error {
	for _, t := range spec.Tasks {
		if t.MaxTicks > 0 && t.MaxTicks > d.MaxHotPathTicks {
			return kernelerrors.New(kernelerrors.KindDoctrineBreach, t.ID,
				fmt.Sprintf("declared max-tick budget %d exceeds doctrine ceiling %d", t.MaxTicks, d.MaxHotPathTicks))
		}
	}
	return nil
}

// InvariantCheck enforces every other per-task doctrine-bound invariant
// (spec §4.2 step 4): timeouts must be non-negative and multi-instance
// thresholds must not exceed their planned count.
func InvariantCheck(spec snapshot.Spec) error {
	for _, t := range spec.Tasks {
		if t.Timeout < 0 {
			return kernelerrors.New(kernelerrors.KindStructure, t.ID, "task timeout must not be negative")
		}
		if t.MIPlannedCount > 0 && t.MIThreshold > t.MIPlannedCount {
			return kernelerrors.New(kernelerrors.KindStructure, t.ID, "multi-instance threshold exceeds planned instance count")
		}
	}
	return nil
}

// DynamicCheck rejects any task with no incoming flow. It is a
// structural check only: it runs no pattern executor, builds no
// marking, and does not test whether a join's predecessors can all
// receive tokens.
func DynamicCheck(spec snapshot.Spec) error {
	_, reverse := adjacency(spec)
	taskByID := make(map[string]snapshot.Task, len(spec.Tasks))
	for _, t := range spec.Tasks {
		taskByID[t.ID] = t
	}
	for _, t := range spec.Tasks {
		preds := reverse[t.ID]
		if len(preds) == 0 {
			return kernelerrors.New(kernelerrors.KindStructure, t.ID, "task has no incoming flow")
		}
		if t.Join == snapshot.SemAND && len(preds) < 1 {
			return kernelerrors.New(kernelerrors.KindStructure, t.ID, "AND-join task declared with no predecessors")
		}
	}
	return nil
}

// Validate runs every static, dynamic, performance, and invariant check
// in the order spec §4.2 lists them, stopping at the first failure.
func Validate(spec snapshot.Spec, d doctrine.Doctrine) error {
	if err := StaticChecks(spec); err != nil {
		return err
	}
	if err := SoundnessCheck(spec); err != nil {
		return err
	}
	if err := DynamicCheck(spec); err != nil {
		return err
	}
	if err := PerformanceCheck(spec, d); err != nil {
		return err
	}
	if err := InvariantCheck(spec); err != nil {
		return err
	}
	return nil
}
