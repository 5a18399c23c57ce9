// Package policy implements the policy evaluator: an immutable, pure
// predicate over a request. Grounded on the original jurisdiction/policy.py
// (Policy shape, allows_actor/allows_tool, wildcard sentinel) and
// jurisdiction/rules.py (the fixed rule pipeline, run in full every time
// so every violation is reported).
package policy

import (
	"strings"

	"github.com/govkernel/kernel-go/internal/canon"
	"github.com/govkernel/kernel-go/internal/types"
)

// Wildcard is the sentinel that matches any actor or tool name.
const Wildcard = "*"

// CustomRule is a pure function a host can register to add jurisdiction
// beyond the fixed pipeline. It must not perform I/O or depend on the
// clock or randomness — the evaluator's purity depends on it. It returns
// the decision it demands for this request: Allow to let the request
// proceed, Deny to add reason as a violation, or Halt when the request
// itself warrants forcing the kernel out of service entirely (reserved
// for conditions severe enough that no further request should be served
// without operator intervention).
type CustomRule func(req types.Request) (decision types.Decision, reason string)

// Policy is immutable once constructed. All fields are read-only after
// Default/Strict/FromMap returns.
type Policy struct {
	AllowedActors   map[string]bool
	AllowedTools    map[string]bool
	RequireToolCall bool
	MaxIntentLength int
	MaxParamsBytes  int
	CustomRules     []CustomRule
}

// Default returns a wildcard policy: any actor, any tool, no tool call
// required, generous size limits. Mirrors JurisdictionPolicy.default().
func Default() Policy {
	return Policy{
		AllowedActors:   map[string]bool{Wildcard: true},
		AllowedTools:    map[string]bool{Wildcard: true},
		RequireToolCall: false,
		MaxIntentLength: 4096,
		MaxParamsBytes:  65536,
	}
}

// Strict returns a policy with empty allowlists: it denies every actor
// and tool until the host populates them. Mirrors
// JurisdictionPolicy.strict().
func Strict() Policy {
	return Policy{
		AllowedActors:   map[string]bool{},
		AllowedTools:    map[string]bool{},
		RequireToolCall: false,
		MaxIntentLength: 4096,
		MaxParamsBytes:  65536,
	}
}

// FromMap builds a Policy from a plain map, e.g. one a collaborator
// decoded from its own configuration source. Unset keys fall back to
// Default()'s values. Mirrors JurisdictionPolicy.from_dict.
func FromMap(data map[string]interface{}) Policy {
	p := Default()
	p.AllowedActors = stringSet(data["allowed_actors"])
	p.AllowedTools = stringSet(data["allowed_tools"])
	if v, ok := data["require_tool_call"].(bool); ok {
		p.RequireToolCall = v
	}
	if v, ok := intValue(data["max_intent_length"]); ok {
		p.MaxIntentLength = v
	}
	if v, ok := intValue(data["max_params_bytes"]); ok {
		p.MaxParamsBytes = v
	}
	return p
}

func stringSet(v interface{}) map[string]bool {
	out := map[string]bool{}
	items, ok := v.([]string)
	if !ok {
		if anyItems, ok2 := v.([]interface{}); ok2 {
			for _, it := range anyItems {
				if s, ok3 := it.(string); ok3 {
					out[s] = true
				}
			}
			return out
		}
		return map[string]bool{Wildcard: true}
	}
	for _, s := range items {
		out[s] = true
	}
	return out
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

// AllowsActor reports whether actor is admitted, honoring the wildcard.
func (p Policy) AllowsActor(actor string) bool {
	return p.AllowedActors[Wildcard] || p.AllowedActors[actor]
}

// AllowsTool reports whether tool is admitted, honoring the wildcard.
func (p Policy) AllowsTool(tool string) bool {
	return p.AllowedTools[Wildcard] || p.AllowedTools[tool]
}

// Result is the outcome of evaluating a request against a policy. Halt is
// set only when a custom rule demanded it; a Halt result is never also
// Allowed, regardless of whether any Violations accumulated alongside it.
type Result struct {
	Allowed    bool
	Violations []string
	Halt       bool
	HaltReason string
}

// StructuralOnly runs the shape/required-field/presence checks that apply
// before arbitration begins. It does not check actor/tool admissibility,
// ambiguity heuristics, or custom rules — those are arbitration-stage
// concerns.
func StructuralOnly(req types.Request) Result {
	var violations []string
	violations = append(violations, checkRequiredFields(req)...)
	violations = append(violations, checkIntentBounds(req, 1<<31-1)...) // whitespace-only check only; length bound applied separately
	violations = append(violations, checkToolCallPresence(req, false)...)
	violations = append(violations, checkToolCallStructure(req)...)
	violations = append(violations, checkParamsSize(req, 1<<31-1)...)
	return Result{Allowed: len(violations) == 0, Violations: violations}
}

// Evaluate runs the full rule pipeline in fixed order, always executing
// every rule so every violation is reported (never short-circuiting).
// strictAmbiguity selects between the Strict/EvidenceFirst/DualChannel
// heuristics (all applied) and the Permissive ones (only high-severity).
func Evaluate(req types.Request, p Policy, strictAmbiguity bool) Result {
	var violations []string

	violations = append(violations, checkRequiredFields(req)...)
	violations = append(violations, checkIntentBounds(req, p.MaxIntentLength)...)
	violations = append(violations, checkToolCallPresence(req, p.RequireToolCall)...)
	violations = append(violations, checkToolCallStructure(req)...)
	violations = append(violations, checkActorAllowed(req, p)...)
	violations = append(violations, checkToolAllowed(req, p)...)
	violations = append(violations, checkParamsSize(req, p.MaxParamsBytes)...)
	violations = append(violations, checkAmbiguity(req, p.MaxIntentLength, strictAmbiguity)...)

	var haltRequested bool
	var haltReason string
	for _, rule := range p.CustomRules {
		decision, reason := rule(req)
		switch decision {
		case types.Halt:
			haltRequested = true
			if reason == "" {
				reason = "custom rule demanded halt"
			}
			haltReason = reason
		case types.Deny:
			if reason == "" {
				reason = "custom rule denied request"
			}
			violations = append(violations, reason)
		}
	}

	return Result{
		Allowed:    len(violations) == 0 && !haltRequested,
		Violations: violations,
		Halt:       haltRequested,
		HaltReason: haltReason,
	}
}

func checkRequiredFields(req types.Request) []string {
	var v []string
	if strings.TrimSpace(req.RequestID) == "" {
		v = append(v, "request_id is required")
	}
	if strings.TrimSpace(req.Actor) == "" {
		v = append(v, "actor is required")
	}
	if req.Intent == "" {
		v = append(v, "intent is required")
	}
	if req.TimestampMs < 0 {
		v = append(v, "timestamp_ms must be non-negative")
	}
	return v
}

func checkIntentBounds(req types.Request, maxIntentLength int) []string {
	var v []string
	if len(req.Intent) > maxIntentLength {
		v = append(v, "intent exceeds maximum length")
	}
	if strings.TrimSpace(req.Intent) == "" {
		v = append(v, "intent must not be only whitespace")
	}
	return v
}

func checkToolCallPresence(req types.Request, required bool) []string {
	if required && req.ToolCall == nil {
		return []string{"tool_call is required by policy"}
	}
	return nil
}

func checkToolCallStructure(req types.Request) []string {
	if req.ToolCall == nil {
		return nil
	}
	var v []string
	if strings.TrimSpace(req.ToolCall.Name) == "" {
		v = append(v, "tool_call.name must not be empty")
	}
	if req.ToolCall.Params == nil {
		v = append(v, "tool_call.params must be a mapping, even if empty")
	}
	return v
}

func checkActorAllowed(req types.Request, p Policy) []string {
	if !p.AllowsActor(req.Actor) {
		return []string{"actor '" + req.Actor + "' is not in allowed actors"}
	}
	return nil
}

func checkToolAllowed(req types.Request, p Policy) []string {
	if req.ToolCall == nil {
		return nil
	}
	if !p.AllowsTool(req.ToolCall.Name) {
		return []string{"tool '" + req.ToolCall.Name + "' is not in allowed tools"}
	}
	return nil
}

func checkParamsSize(req types.Request, maxBytes int) []string {
	if req.ToolCall == nil || req.ToolCall.Params == nil {
		return nil
	}
	data, err := canon.Bytes(req.ToolCall.Params)
	if err != nil {
		return []string{"failed to serialize params: " + err.Error()}
	}
	if len(data) > maxBytes {
		return []string{"params size exceeds maximum"}
	}
	return nil
}

// checkAmbiguity flags requests that are technically well-formed but
// dangerously unclear. Strict posture applies every heuristic; permissive
// posture applies only the high-severity ones (empty/whitespace intent).
func checkAmbiguity(req types.Request, maxIntentLength int, strict bool) []string {
	var v []string

	if strings.TrimSpace(req.Intent) == "" {
		v = append(v, "empty intent is ambiguous")
	}

	if !strict {
		return v
	}

	if req.Intent != "" && len(req.Intent) < maxIntentLength {
		// Overly long-but-under-limit intent is only flagged in strict mode,
		// using a tighter soft threshold than the hard policy limit. An
		// intent of exactly maxIntentLength is still at the hard limit, not
		// past it, and must stay allow-eligible, so the soft check only
		// applies strictly below the limit.
		softLimit := maxIntentLength - maxIntentLength/10
		if softLimit > 0 && len(req.Intent) > softLimit {
			v = append(v, "intent is unusually long relative to the configured limit")
		}
	}

	if req.ToolCall != nil {
		if strings.TrimSpace(req.ToolCall.Name) == "" {
			v = append(v, "empty tool name is ambiguous")
		}
		if req.ToolCall.Params == nil {
			v = append(v, "non-mapping params is ambiguous")
		}
	}

	return v
}
