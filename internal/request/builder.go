// Package request provides a fluent builder for constructing Requests,
// grounded on the original sdk/builder.py's RequestBuilder. Generates a
// default request id from github.com/google/uuid when the caller does
// not supply one, mirroring uuid.uuid4().hex there.
package request

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/govkernel/kernel-go/internal/types"
)

// Builder fluently assembles a types.Request.
type Builder struct {
	requestID   string
	actor       string
	intent      string
	toolName    string
	toolParams  map[string]interface{}
	evidence    []string
	constraints map[string]interface{}
	timestampMs int64
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{toolParams: map[string]interface{}{}}
}

// WithID sets an explicit request id, overriding the generated default.
func (b *Builder) WithID(id string) *Builder {
	b.requestID = id
	return b
}

// WithActor sets the requesting actor.
func (b *Builder) WithActor(actor string) *Builder {
	b.actor = actor
	return b
}

// WithIntent sets the natural-language intent.
func (b *Builder) WithIntent(intent string) *Builder {
	b.intent = intent
	return b
}

// WithTool sets the tool call name and parameters.
func (b *Builder) WithTool(name string, params map[string]interface{}) *Builder {
	b.toolName = name
	if params == nil {
		params = map[string]interface{}{}
	}
	b.toolParams = params
	return b
}

// WithParam adds a single tool parameter.
func (b *Builder) WithParam(key string, value interface{}) *Builder {
	b.toolParams[key] = value
	return b
}

// WithEvidence appends evidence identifiers.
func (b *Builder) WithEvidence(evidence ...string) *Builder {
	b.evidence = append(b.evidence, evidence...)
	return b
}

// WithConstraints sets the dual-channel variant's required constraint
// trio. Empty arguments are omitted, matching the original's
// if-truthy-then-set behavior.
func (b *Builder) WithConstraints(scope string, nonGoals, successCriteria []string) *Builder {
	if b.constraints == nil {
		b.constraints = map[string]interface{}{}
	}
	if scope != "" {
		b.constraints["scope"] = scope
	}
	if len(nonGoals) > 0 {
		b.constraints["non_goals"] = nonGoals
	}
	if len(successCriteria) > 0 {
		b.constraints["success_criteria"] = successCriteria
	}
	return b
}

// WithTimestampMs sets an explicit submission timestamp. If unset,
// Build leaves TimestampMs at zero — the kernel stamps it from its own
// clock at submission time.
func (b *Builder) WithTimestampMs(ts int64) *Builder {
	b.timestampMs = ts
	return b
}

// Build assembles the Request. It returns an error if actor or intent
// is unset, mirroring RequestBuilder.build's ValueError checks.
func (b *Builder) Build() (types.Request, error) {
	if b.actor == "" {
		return types.Request{}, fmt.Errorf("request: actor is required")
	}
	if b.intent == "" {
		return types.Request{}, fmt.Errorf("request: intent is required")
	}

	requestID := b.requestID
	if requestID == "" {
		requestID = "req-" + uuid.NewString()
	}

	var toolCall *types.ToolCall
	if b.toolName != "" {
		toolCall = &types.ToolCall{Name: b.toolName, Params: b.toolParams}
	}

	return types.Request{
		RequestID:   requestID,
		Actor:       b.actor,
		Intent:      b.intent,
		ToolCall:    toolCall,
		Evidence:    b.evidence,
		Constraints: b.constraints,
		TimestampMs: b.timestampMs,
	}, nil
}
