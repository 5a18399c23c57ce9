package request

import "testing"

func TestBuilderRequiresActorAndIntent(t *testing.T) {
	if _, err := New().WithIntent("do it").Build(); err == nil {
		t.Fatal("expected error when actor is missing")
	}
	if _, err := New().WithActor("a").Build(); err == nil {
		t.Fatal("expected error when intent is missing")
	}
}

func TestBuilderGeneratesIDWhenUnset(t *testing.T) {
	req, err := New().WithActor("a").WithIntent("do it").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RequestID == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestBuilderHonorsExplicitID(t *testing.T) {
	req, err := New().WithID("fixed-id").WithActor("a").WithIntent("do it").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RequestID != "fixed-id" {
		t.Fatalf("expected explicit id to be honored, got %s", req.RequestID)
	}
}

func TestBuilderSetsToolCallAndParams(t *testing.T) {
	req, err := New().
		WithActor("a").
		WithIntent("do it").
		WithTool("echo", nil).
		WithParam("text", "hi").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ToolCall == nil || req.ToolCall.Name != "echo" {
		t.Fatalf("expected tool call echo, got %+v", req.ToolCall)
	}
	if req.ToolCall.Params["text"] != "hi" {
		t.Fatalf("expected param text=hi, got %+v", req.ToolCall.Params)
	}
}

func TestBuilderSetsDualChannelConstraints(t *testing.T) {
	req, err := New().
		WithActor("a").
		WithIntent("do it").
		WithConstraints("scope text", []string{"ng1"}, []string{"sc1"}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Constraints["scope"] != "scope text" {
		t.Fatalf("expected scope to be set, got %+v", req.Constraints)
	}
}

func TestBuilderOmitsEmptyConstraintArgs(t *testing.T) {
	req, err := New().
		WithActor("a").
		WithIntent("do it").
		WithConstraints("", nil, nil).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.Constraints["scope"]; ok {
		t.Fatal("expected empty scope to be omitted")
	}
}
