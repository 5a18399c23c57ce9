// Package fsm implements the kernel's lifecycle state machine. The
// allowed-transitions table is data, not an if/else cascade, mirroring the
// original state/transitions.py — which also gives callers
// CanTransition/NextStates/IsTerminal for free.
package fsm

import (
	"fmt"

	"github.com/govkernel/kernel-go/internal/errs"
	"github.com/govkernel/kernel-go/internal/types"
)

var allowedTransitions = map[types.KernelState]map[types.KernelState]bool{
	types.Booting: {
		types.Idle:   true,
		types.Halted: true,
	},
	types.Idle: {
		types.Validating: true,
		types.Halted:     true,
	},
	types.Validating: {
		types.Arbitrating: true,
		types.Auditing:    true,
		types.Halted:      true,
	},
	types.Arbitrating: {
		types.Executing: true,
		types.Auditing:  true,
		types.Halted:    true,
	},
	types.Executing: {
		types.Auditing: true,
		types.Halted:   true,
	},
	types.Auditing: {
		types.Idle:   true,
		types.Halted: true,
	},
	types.Halted: {},
}

// CanTransition reports whether from -> to is a defined transition.
func CanTransition(from, to types.KernelState) bool {
	return allowedTransitions[from][to]
}

// NextStates returns the states reachable from state.
func NextStates(state types.KernelState) []types.KernelState {
	next := make([]types.KernelState, 0, len(allowedTransitions[state]))
	for s := range allowedTransitions[state] {
		next = append(next, s)
	}
	return next
}

// IsTerminal reports whether state has no outgoing transitions.
func IsTerminal(state types.KernelState) bool {
	return len(allowedTransitions[state]) == 0
}

// Machine is a deterministic, fail-closed state machine. It starts in
// BOOTING and never accepts a transition once terminal.
type Machine struct {
	state           types.KernelState
	transitionCount int64
}

// New creates a machine starting in BOOTING.
func New() *Machine {
	return &Machine{state: types.Booting}
}

// State returns the current state.
func (m *Machine) State() types.KernelState { return m.state }

// IsHalted reports whether the machine is in HALTED.
func (m *Machine) IsHalted() bool { return m.state == types.Halted }

// TransitionCount returns how many transitions have occurred.
func (m *Machine) TransitionCount() int64 { return m.transitionCount }

// Transition moves the machine to to. It returns an *errs.StateError,
// changing nothing, if the machine is already terminal or the move is not
// in the allowed-transitions table.
func (m *Machine) Transition(to types.KernelState) (types.KernelState, error) {
	if IsTerminal(m.state) {
		return m.state, &errs.StateError{Reason: fmt.Sprintf("cannot transition from terminal state %s", m.state)}
	}
	if !CanTransition(m.state, to) {
		return m.state, &errs.StateError{Reason: fmt.Sprintf("invalid transition: %s -> %s", m.state, to)}
	}

	from := m.state
	m.state = to
	m.transitionCount++
	return from, nil
}

// Halt forces a transition to HALTED from any non-terminal state.
func (m *Machine) Halt() (types.KernelState, error) {
	if IsTerminal(m.state) {
		return m.state, &errs.StateError{Reason: fmt.Sprintf("cannot halt from terminal state %s", m.state)}
	}
	return m.Transition(types.Halted)
}

// AssertState returns an *errs.StateError if the machine is not in
// expected.
func (m *Machine) AssertState(expected types.KernelState) error {
	if m.state != expected {
		return &errs.StateError{Reason: fmt.Sprintf("expected state %s, but in %s", expected, m.state)}
	}
	return nil
}
