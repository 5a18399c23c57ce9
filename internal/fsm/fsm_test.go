package fsm

import (
	"testing"

	"github.com/govkernel/kernel-go/internal/types"
)

func TestInitialStateIsBooting(t *testing.T) {
	m := New()
	if m.State() != types.Booting {
		t.Fatalf("expected BOOTING, got %s", m.State())
	}
}

func TestFullHappyPathTransitions(t *testing.T) {
	m := New()
	path := []types.KernelState{
		types.Idle, types.Validating, types.Arbitrating,
		types.Executing, types.Auditing, types.Idle,
	}
	for _, to := range path {
		if _, err := m.Transition(to); err != nil {
			t.Fatalf("unexpected error transitioning to %s: %v", to, err)
		}
	}
}

func TestUndefinedTransitionRejected(t *testing.T) {
	m := New()
	if _, err := m.Transition(types.Idle); err != nil {
		t.Fatalf("boot transition failed: %v", err)
	}

	// IDLE -> EXECUTING is not in the table.
	if _, err := m.Transition(types.Executing); err == nil {
		t.Fatal("expected IDLE -> EXECUTING to be rejected")
	}
	if m.State() != types.Idle {
		t.Fatal("a rejected transition must not change state")
	}
}

func TestHaltedIsTerminal(t *testing.T) {
	m := New()
	m.Transition(types.Idle)
	if _, err := m.Halt(); err != nil {
		t.Fatalf("halt failed: %v", err)
	}
	if !m.IsHalted() {
		t.Fatal("expected IsHalted true")
	}
	if _, err := m.Transition(types.Idle); err == nil {
		t.Fatal("HALTED must have no outgoing transitions")
	}
	if _, err := m.Halt(); err == nil {
		t.Fatal("halting an already-halted machine must error, not re-enter HALTED")
	}
}

func TestValidatingCanShortCircuitToAuditingOnFailure(t *testing.T) {
	m := New()
	m.Transition(types.Idle)
	m.Transition(types.Validating)
	if _, err := m.Transition(types.Auditing); err != nil {
		t.Fatalf("VALIDATING -> AUDITING should be allowed for validation failures: %v", err)
	}
}
