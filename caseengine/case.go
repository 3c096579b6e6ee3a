// Package caseengine owns the marking for every live case and drives it
// forward (spec §4.4). It generalizes coordinator.PhaseManager's
// fixed-phase valid-transition table to the spec's 6-state case
// lifecycle, and adds the Petri-net marking the teacher's phase manager
// does not carry.
package caseengine

import (
	"time"

	"github.com/chatman-systems/workflowkernel/pattern"
)

// State is a case's position in its lifecycle (spec §4.3's state
// machine, §4.4's Case entity).
type State string

const (
	StateCreated   State = "Created"
	StateRunning   State = "Running"
	StateSuspended State = "Suspended"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
	StateCancelled State = "Cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// validTransitions mirrors coordinator.ValidTransitions's shape,
// generalized to the case lifecycle named in spec §4.3.
var validTransitions = map[State][]State{
	StateCreated:   {StateRunning, StateFailed, StateCancelled},
	StateRunning:   {StateSuspended, StateCompleted, StateFailed, StateCancelled},
	StateSuspended: {StateRunning, StateCancelled, StateFailed},
}

func (s State) CanTransitionTo(target State) bool {
	for _, valid := range validTransitions[s] {
		if valid == target {
			return true
		}
	}
	return false
}

// HistoryEntry records one step of a case's ordered execution history.
type HistoryEntry struct {
	Timestamp time.Time
	ElementID string
	PatternID int
	Success   bool
	TicksUsed uint32
	Outcome   string
}

// Case is a running instance of a snapshot.
type Case struct {
	ID             string
	SnapshotHash   string // hex-encoded snapshot.Hash
	Payload        map[string]interface{}
	Marking        pattern.Marking
	State          State
	StartTime      time.Time
	CompletionTime *time.Time
	History        []HistoryEntry
	Epoch          uint64 // snapshot.Store.CurrentEpoch() observed at creation
}

func (c *Case) appendHistory(e HistoryEntry) {
	c.History = append(c.History, e)
}
