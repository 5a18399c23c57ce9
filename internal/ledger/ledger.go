// Package ledger implements the append-only, hash-chained audit ledger.
// It holds no lock of its own: the kernel is the single writer and the
// sole caller of Append, so the ledger does not need — and must not
// assume — concurrent callers. Grounded on
// kernel-go/internal/audit/ledger.go's hash-chain shape, generalized to
// this governor's entry_hash derivation.
package ledger

import (
	"fmt"

	"github.com/govkernel/kernel-go/internal/canon"
	"github.com/govkernel/kernel-go/internal/errs"
	"github.com/govkernel/kernel-go/internal/types"
)

// Ledger is the ordered sequence of committed entries and the current
// chain head.
type Ledger struct {
	entries []types.AuditEntry
}

// New creates an empty ledger. head() is the genesis hash until the first
// append.
func New() *Ledger {
	return &Ledger{entries: []types.AuditEntry{}}
}

// Head returns the prev_hash the next append will use: the last entry's
// entry_hash, or the genesis hash when the ledger is empty.
func (l *Ledger) Head() string {
	if len(l.entries) == 0 {
		return types.GenesisHash
	}
	return l.entries[len(l.entries)-1].EntryHash
}

// Size returns the number of committed entries.
func (l *Ledger) Size() int { return len(l.entries) }

// Partial is the set of entry fields the caller supplies; PrevHash and
// EntryHash are computed by Append.
type Partial struct {
	RequestID    string
	Actor        string
	Intent       string
	Decision     types.Decision
	StateFrom    types.KernelState
	StateTo      types.KernelState
	TimestampMs  int64
	ToolName     string
	ParamsHash   string
	EvidenceHash string
	Error        string
}

// Append computes prev_hash and entry_hash for p, stores the resulting
// entry, and advances the head. Append is all-or-nothing: on any encoding
// or hashing failure the ledger is left completely unchanged and an
// *errs.AuditError is returned — always fatal to the caller.
func (l *Ledger) Append(p Partial) (string, error) {
	entry := types.AuditEntry{
		PrevHash:     l.Head(),
		RequestID:    p.RequestID,
		Actor:        p.Actor,
		Intent:       p.Intent,
		Decision:     p.Decision,
		StateFrom:    p.StateFrom,
		StateTo:      p.StateTo,
		TimestampMs:  p.TimestampMs,
		ToolName:     p.ToolName,
		ParamsHash:   p.ParamsHash,
		EvidenceHash: p.EvidenceHash,
		Error:        p.Error,
	}

	data, err := canon.Bytes(entry.HashFields())
	if err != nil {
		return "", &errs.AuditError{Reason: fmt.Sprintf("canonical encoding failed: %v", err)}
	}
	entry.EntryHash = canon.ChainHash(entry.PrevHash, data)

	l.entries = append(l.entries, entry)
	return entry.EntryHash, nil
}

// Export returns a deep-copied snapshot of all committed entries.
func (l *Ledger) Export() []types.AuditEntry {
	out := make([]types.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// RootHash returns the current head, matching the EvidenceBundle's
// root_hash semantics (entries[-1].entry_hash, or genesis when empty).
func (l *Ledger) RootHash() string { return l.Head() }
