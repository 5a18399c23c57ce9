package policy

import (
	"strings"
	"testing"

	"github.com/govkernel/kernel-go/internal/types"
)

func baseRequest() types.Request {
	return types.Request{
		RequestID:   "r1",
		Actor:       "agent-1",
		Intent:      "read the weather",
		TimestampMs: 1000,
	}
}

func TestDefaultPolicyAllowsWildcardRequest(t *testing.T) {
	result := Evaluate(baseRequest(), Default(), true)
	if !result.Allowed {
		t.Fatalf("expected default policy to allow, got violations: %v", result.Violations)
	}
}

func TestStrictPolicyDeniesUnlistedActor(t *testing.T) {
	p := Strict()
	result := Evaluate(baseRequest(), p, true)
	if result.Allowed {
		t.Fatal("expected strict empty-allowlist policy to deny")
	}
	found := false
	for _, v := range result.Violations {
		if strings.Contains(v, "actor") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an actor violation, got: %v", result.Violations)
	}
}

func TestMissingRequiredFieldsAccumulateAllViolations(t *testing.T) {
	req := types.Request{}
	result := Evaluate(req, Default(), true)
	if result.Allowed {
		t.Fatal("expected empty request to be denied")
	}
	if len(result.Violations) < 2 {
		t.Fatalf("expected multiple accumulated violations, got: %v", result.Violations)
	}
}

func TestToolCallRequiredByPolicy(t *testing.T) {
	p := Default()
	p.RequireToolCall = true
	req := baseRequest()

	result := Evaluate(req, p, true)
	if result.Allowed {
		t.Fatal("expected denial when tool_call is required but absent")
	}
}

func TestToolCallPresentSatisfiesRequirement(t *testing.T) {
	p := Default()
	p.RequireToolCall = true
	req := baseRequest()
	req.ToolCall = &types.ToolCall{Name: "echo", Params: map[string]interface{}{"msg": "hi"}}

	result := Evaluate(req, p, true)
	if !result.Allowed {
		t.Fatalf("expected allow, got violations: %v", result.Violations)
	}
}

func TestUnlistedToolIsDenied(t *testing.T) {
	p := Default()
	p.AllowedTools = map[string]bool{"echo": true}
	req := baseRequest()
	req.ToolCall = &types.ToolCall{Name: "add", Params: map[string]interface{}{}}

	result := Evaluate(req, p, true)
	if result.Allowed {
		t.Fatal("expected denial for tool not in allowlist")
	}
}

func TestWhitespaceOnlyIntentIsAmbiguous(t *testing.T) {
	req := baseRequest()
	req.Intent = "   "

	result := Evaluate(req, Default(), true)
	if result.Allowed {
		t.Fatal("expected whitespace-only intent to be denied")
	}
}

func TestPermissiveModeIgnoresLowSeverityAmbiguity(t *testing.T) {
	req := baseRequest()
	req.Intent = strings.Repeat("x", 4000) // under the 4096 hard limit but over the strict soft threshold
	req.ToolCall = &types.ToolCall{Name: "echo", Params: map[string]interface{}{}}

	permissive := Evaluate(req, Default(), false)
	if !permissive.Allowed {
		t.Fatalf("expected permissive mode to allow, got: %v", permissive.Violations)
	}

	strict := Evaluate(req, Default(), true)
	if strict.Allowed {
		t.Fatal("expected strict mode to flag unusually long intent")
	}
}

func TestParamsSizeLimitIsEnforced(t *testing.T) {
	p := Default()
	p.MaxParamsBytes = 8
	req := baseRequest()
	req.ToolCall = &types.ToolCall{Name: "echo", Params: map[string]interface{}{"msg": "this is far too long"}}

	result := Evaluate(req, p, true)
	if result.Allowed {
		t.Fatal("expected denial when params exceed size limit")
	}
}

func TestCustomRuleCanDenyRequest(t *testing.T) {
	p := Default()
	p.CustomRules = []CustomRule{
		func(req types.Request) (types.Decision, string) {
			if req.Actor == "banned-actor" {
				return types.Deny, "actor is on the custom denylist"
			}
			return types.Allow, ""
		},
	}
	req := baseRequest()
	req.Actor = "banned-actor"

	result := Evaluate(req, p, true)
	if result.Allowed {
		t.Fatal("expected custom rule to deny request")
	}
	if result.Halt {
		t.Fatal("a deny should not also set Halt")
	}
	if result.Violations[len(result.Violations)-1] != "actor is on the custom denylist" {
		t.Fatalf("expected custom rule reason in violations, got: %v", result.Violations)
	}
}

func TestCustomRuleCanDemandHalt(t *testing.T) {
	p := Default()
	p.CustomRules = []CustomRule{
		func(req types.Request) (types.Decision, string) {
			if req.Actor == "compromised-actor" {
				return types.Halt, "actor flagged as compromised"
			}
			return types.Allow, ""
		},
	}
	req := baseRequest()
	req.Actor = "compromised-actor"

	result := Evaluate(req, p, true)
	if result.Allowed {
		t.Fatal("a halt demand must never be reported as allowed")
	}
	if !result.Halt {
		t.Fatal("expected Halt to be set")
	}
	if result.HaltReason != "actor flagged as compromised" {
		t.Fatalf("expected custom halt reason, got: %q", result.HaltReason)
	}
}

func TestFromMapBuildsPolicyFromPlainData(t *testing.T) {
	p := FromMap(map[string]interface{}{
		"allowed_actors":    []interface{}{"agent-1"},
		"allowed_tools":     []interface{}{"echo"},
		"require_tool_call": true,
		"max_intent_length": 10,
	})

	if p.AllowsActor("agent-1") == false || p.AllowsActor("other") {
		t.Fatal("allowed_actors not applied correctly")
	}
	if !p.RequireToolCall {
		t.Fatal("require_tool_call not applied")
	}
	if p.MaxIntentLength != 10 {
		t.Fatalf("expected max_intent_length 10, got %d", p.MaxIntentLength)
	}
}
