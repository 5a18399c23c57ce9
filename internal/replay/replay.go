// Package replay implements the standalone replay verifier. It re-chains
// an exported bundle of entries and never short-circuits: it reports
// every failure it finds, not just the first. Grounded on the original
// audit/replay.py's replay_and_verify/verify_evidence_bundle.
package replay

import (
	"fmt"

	"github.com/govkernel/kernel-go/internal/canon"
	"github.com/govkernel/kernel-go/internal/types"
)

// Result is the structured outcome of a replay verification.
type Result struct {
	IsValid          bool
	EntriesVerified  int
	Errors           []string
	ComputedRootHash string
}

// AndVerify recomputes the hash chain over entries and checks it against
// expectedRootHash. An empty expectedRootHash skips the root check.
func AndVerify(entries []types.AuditEntry, expectedRootHash string) (bool, []string) {
	errorsOut := []string{}
	prevHash := types.GenesisHash

	for i, entry := range entries {
		if !canon.ConstantTimeEqual(entry.PrevHash, prevHash) {
			errorsOut = append(errorsOut, fmt.Sprintf(
				"entry %d: prev_hash mismatch: expected %s, got %s", i, prevHash, entry.PrevHash))
		}

		data, err := canon.Bytes(entry.HashFields())
		if err != nil {
			errorsOut = append(errorsOut, fmt.Sprintf("entry %d: failed to re-serialize fields: %v", i, err))
			prevHash = entry.EntryHash
			continue
		}

		computed := canon.ChainHash(prevHash, data)
		if !canon.ConstantTimeEqual(computed, entry.EntryHash) {
			errorsOut = append(errorsOut, fmt.Sprintf(
				"entry %d: entry_hash mismatch: computed %s, got %s", i, computed, entry.EntryHash))
		}

		prevHash = entry.EntryHash
	}

	if expectedRootHash != "" && !canon.ConstantTimeEqual(prevHash, expectedRootHash) {
		errorsOut = append(errorsOut, fmt.Sprintf(
			"root hash mismatch: computed %s, expected %s", prevHash, expectedRootHash))
	}

	return len(errorsOut) == 0, errorsOut
}

// VerifyBundle verifies a whole EvidenceBundle against its own root_hash.
func VerifyBundle(bundle types.EvidenceBundle) Result {
	ok, errorsOut := AndVerify(bundle.Entries, bundle.RootHash)

	computedRoot := types.GenesisHash
	if len(bundle.Entries) > 0 {
		computedRoot = bundle.Entries[len(bundle.Entries)-1].EntryHash
	}

	return Result{
		IsValid:          ok,
		EntriesVerified:  len(bundle.Entries),
		Errors:           errorsOut,
		ComputedRootHash: computedRoot,
	}
}
