// Package variant implements the four kernel variants: each is a
// pre-policy contract-check predicate layered on the same orchestrator,
// plus the flag that shapes that orchestrator's posture (strict
// ambiguity). Grounded on the original
// variants/{strict,permissive,evidence_first,dual_channel}_kernel/kernel.py
// — each subclass there only overrides _is_strict_ambiguity and
// _check_variant_requirements, which is exactly the shape reproduced here
// as a Tag plus a Contract function, rather than four Go types.
package variant

import (
	"fmt"
	"strings"

	"github.com/govkernel/kernel-go/internal/types"
)

// Tag identifies which of the four fixed variants a kernel runs as.
type Tag string

const (
	Strict        Tag = "strict"
	Permissive    Tag = "permissive"
	EvidenceFirst Tag = "evidence-first"
	DualChannel   Tag = "dual-channel"
)

// RequiredConstraintKeys are the keys the dual-channel variant demands
// inside request.Constraints.
var RequiredConstraintKeys = []string{"scope", "non_goals", "success_criteria"}

// StrictAmbiguity reports whether tag uses the strict ambiguity
// heuristics (all four heuristics) versus the permissive kernel's
// relaxed set (high-severity only).
func StrictAmbiguity(tag Tag) bool {
	return tag != Permissive
}

// Contract runs the variant-specific pre-policy check. It returns
// violations additional to whatever the policy evaluator finds; an empty
// slice means the variant itself imposes no extra requirement on this
// request.
func Contract(tag Tag, req types.Request) []string {
	switch tag {
	case Strict:
		return nil
	case Permissive:
		return nil
	case EvidenceFirst:
		return evidenceFirstContract(req)
	case DualChannel:
		return dualChannelContract(req)
	default:
		return []string{fmt.Sprintf("unknown variant tag %q", tag)}
	}
}

// evidenceFirstContract requires a non-empty evidence field for every
// submitted request. Kernel.Halt never goes through Contract, so halting
// does not require evidence, mirroring "Halt operations do not require
// evidence" in the original.
func evidenceFirstContract(req types.Request) []string {
	if req.Evidence == nil {
		return []string{"evidence field is required for this kernel variant"}
	}
	if len(req.Evidence) == 0 {
		return []string{"evidence field cannot be empty"}
	}
	for _, e := range req.Evidence {
		if strings.TrimSpace(e) == "" {
			return []string{"evidence entries must not be empty"}
		}
	}
	return nil
}

// dualChannelContract requires request.Constraints to carry scope,
// non_goals, and success_criteria, each non-empty.
func dualChannelContract(req types.Request) []string {
	if req.Constraints == nil {
		return []string{"constraints dict is required in params"}
	}

	var missing []string
	for _, key := range RequiredConstraintKeys {
		if _, ok := req.Constraints[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return []string{fmt.Sprintf("missing required constraint keys: %s", strings.Join(missing, ", "))}
	}

	var violations []string
	for _, key := range RequiredConstraintKeys {
		if isEmptyConstraint(req.Constraints[key]) {
			violations = append(violations, fmt.Sprintf("constraint '%s' cannot be empty", key))
		}
	}
	return violations
}

// isEmptyConstraint mirrors dual_channel_kernel/kernel.py's emptiness
// check exactly: only None and an empty-or-whitespace string count as
// empty. A present list or other value is never flagged here, even if it
// is itself empty.
func isEmptyConstraint(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
