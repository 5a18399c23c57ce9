// Package types holds the data model shared by every other package in the
// module: the kernel's lifecycle states, the arbitration decisions, and the
// request/receipt/entry/bundle shapes that flow between them.
package types

import (
	"strings"

	"github.com/govkernel/kernel-go/internal/canon"
)

// KernelState is one of the seven defined lifecycle states. There is no
// zero value reserved for "unset" — a freshly constructed Kernel starts in
// Booting.
type KernelState string

const (
	Booting     KernelState = "BOOTING"
	Idle        KernelState = "IDLE"
	Validating  KernelState = "VALIDATING"
	Arbitrating KernelState = "ARBITRATING"
	Executing   KernelState = "EXECUTING"
	Auditing    KernelState = "AUDITING"
	Halted      KernelState = "HALTED"
)

// Decision is the outcome of arbitration, or of a fatal condition that
// forces HALT outside of normal arbitration.
type Decision string

const (
	Allow Decision = "ALLOW"
	Deny  Decision = "DENY"
	Halt  Decision = "HALT"
)

// ReceiptStatus classifies the receipt returned to the caller.
type ReceiptStatus string

const (
	Accepted ReceiptStatus = "ACCEPTED"
	Rejected ReceiptStatus = "REJECTED"
	Failed   ReceiptStatus = "FAILED"
)

// ToolCall names a registered tool and the parameters to invoke it with.
type ToolCall struct {
	Name   string
	Params map[string]interface{}
}

// Request is everything a caller submits to the kernel for arbitration.
type Request struct {
	RequestID   string
	Actor       string
	Intent      string
	ToolCall    *ToolCall
	Evidence    []string
	Constraints map[string]interface{}
	TimestampMs int64
}

// Receipt is the kernel's answer to a submitted Request.
type Receipt struct {
	RequestID    string
	Status       ReceiptStatus
	Decision     Decision
	StateFrom    KernelState
	StateTo      KernelState
	TimestampMs  int64
	ToolResult   interface{}
	ErrorMessage string
	EvidenceHash string
}

// AuditEntry is one immutable, hash-chained record in the ledger. Field
// order here does not affect hashing: HashFields returns a map, and the
// canonical encoder emits its keys in sorted order.
type AuditEntry struct {
	PrevHash     string
	EntryHash    string
	RequestID    string
	Actor        string
	Intent       string
	Decision     Decision
	StateFrom    KernelState
	StateTo      KernelState
	TimestampMs  int64
	ToolName     string
	ParamsHash   string
	EvidenceHash string
	Error        string
}

// EvidenceBundle is an exportable, deep-copy snapshot of a ledger plus its
// root hash.
type EvidenceBundle struct {
	KernelID     string
	VariantTag   string
	Entries      []AuditEntry
	RootHash     string
	ExportedAtMs int64
}

// GenesisHash is the fixed prev_hash of entry 0: 64 zero hex nibbles.
var GenesisHash = strings.Repeat("0", 64)

// HashFields returns the canonical field map that entry_hash is computed
// over: the ordered subset of an entry excluding prev_hash and entry_hash
// themselves. Absent optionals are emitted as canon.Null rather than
// omitted, so presence and absence hash differently.
func (e AuditEntry) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"request_id":    e.RequestID,
		"actor":         e.Actor,
		"intent":        e.Intent,
		"decision":      string(e.Decision),
		"state_from":    string(e.StateFrom),
		"state_to":      string(e.StateTo),
		"timestamp_ms":  e.TimestampMs,
		"tool_name":     optionalString(e.ToolName),
		"params_hash":   optionalString(e.ParamsHash),
		"evidence_hash": optionalString(e.EvidenceHash),
		"error":         optionalString(e.Error),
	}
}

func optionalString(s string) interface{} {
	if s == "" {
		return canon.Null{}
	}
	return s
}
