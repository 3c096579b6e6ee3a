// Package snapshot holds immutable, content-addressed workflow
// specifications and exposes exactly one active snapshot via a
// lock-free atomic pointer, per the descriptor contract in spec §4.1.
package snapshot

import "time"

// SplitJoin is the split/join semantics declared on a Task.
type SplitJoin string

const (
	SemAND SplitJoin = "AND"
	SemXOR SplitJoin = "XOR"
	SemOR  SplitJoin = "OR"
)

// TaskKind classifies a Task's instantiation shape.
type TaskKind string

const (
	TaskAtomic         TaskKind = "atomic"
	TaskComposite      TaskKind = "composite"
	TaskMultiInstance  TaskKind = "multi-instance"
)

// ConditionRole classifies a Condition's position in the graph.
type ConditionRole string

const (
	RoleStart    ConditionRole = "start"
	RoleEnd      ConditionRole = "end"
	RoleInterior ConditionRole = "interior"
)

// Task is a workflow activity node.
type Task struct {
	ID             string
	DisplayName    string
	Kind           TaskKind
	Split          SplitJoin
	Join           SplitJoin
	MaxTicks       uint32 // 0 means not hot-path-eligible
	Priority       int
	GuardRef       string
	Timeout        time.Duration
	CancelRegion   string
	PatternID      int // which of the 43 executors drives this task
	MIThreshold    int // M of N for multi-instance join patterns; 0 = N
	MIPlannedCount int // N for design-time multi-instance counts
}

// Condition is a Petri-net place.
type Condition struct {
	ID     string
	Label  string
	Role   ConditionRole
	Region string // cancellation-region membership, empty = none
}

// Flow is a directed arc between a Condition and a Task (or vice versa).
type Flow struct {
	Source    string
	Target    string
	Predicate string // optional guard expression reference, empty = unconditional
}

// Spec is the normalized, in-memory workflow specification a
// Specification Provider hands to the kernel (spec §6). It becomes a
// Snapshot once hashed and inserted into the Store.
type Spec struct {
	Tasks      []Task
	Conditions []Condition
	Flows      []Flow
	Author     string
	CreatedAt  time.Time
	ParentHash *Hash // nil for genesis
}

// Hash is a 256-bit content address.
type Hash [32]byte

func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// Snapshot is an immutable, content-addressed bundle of Tasks,
// Conditions, and Flows. Bytes are never mutated after construction.
type Snapshot struct {
	hash       Hash
	spec       Spec
	createdAt  time.Time
	parentHash *Hash
}

func (s *Snapshot) Hash() Hash            { return s.hash }
func (s *Snapshot) Spec() Spec            { return s.spec }
func (s *Snapshot) CreatedAt() time.Time  { return s.createdAt }
func (s *Snapshot) ParentHash() *Hash     { return s.parentHash }

func (s *Snapshot) TaskByID(id string) (Task, bool) {
	for _, t := range s.spec.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func (s *Snapshot) ConditionByID(id string) (Condition, bool) {
	for _, c := range s.spec.Conditions {
		if c.ID == id {
			return c, true
		}
	}
	return Condition{}, false
}

// OutgoingFlows returns flows whose Source is elementID.
func (s *Snapshot) OutgoingFlows(elementID string) []Flow {
	var out []Flow
	for _, f := range s.spec.Flows {
		if f.Source == elementID {
			out = append(out, f)
		}
	}
	return out
}

// IncomingFlows returns flows whose Target is elementID.
func (s *Snapshot) IncomingFlows(elementID string) []Flow {
	var in []Flow
	for _, f := range s.spec.Flows {
		if f.Target == elementID {
			in = append(in, f)
		}
	}
	return in
}

// StartCondition returns the snapshot's single start condition.
func (s *Snapshot) StartCondition() (Condition, bool) {
	for _, c := range s.spec.Conditions {
		if c.Role == RoleStart {
			return c, true
		}
	}
	return Condition{}, false
}

// RegionMembers returns the task ids and condition ids that belong to the
// named cancellation region.
func (s *Snapshot) RegionMembers(region string) (tasks []string, conditions []string) {
	for _, t := range s.spec.Tasks {
		if t.CancelRegion == region {
			tasks = append(tasks, t.ID)
		}
	}
	for _, c := range s.spec.Conditions {
		if c.Region == region {
			conditions = append(conditions, c.ID)
		}
	}
	return tasks, conditions
}

// EndConditions returns every end condition.
func (s *Snapshot) EndConditions() []Condition {
	var ends []Condition
	for _, c := range s.spec.Conditions {
		if c.Role == RoleEnd {
			ends = append(ends, c)
		}
	}
	return ends
}
