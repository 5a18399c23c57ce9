// Package registry implements the tool registry the kernel dispatches
// through during execution. Grounded on the teacher's adapters.Registry
// (explicit Register/Get/list shape, "no side doors" chokepoint) and the
// original execution/tools.py's ToolRegistry (explicit registration only,
// no dynamic discovery, create_default_registry built-ins). Unlike
// adapters.Registry it carries no mutex: the kernel is the single writer
// and callers must not assume concurrent access.
package registry

import (
	"fmt"

	"github.com/govkernel/kernel-go/internal/errs"
)

// Handler is a deterministic tool implementation. It must not perform
// I/O, depend on wall-clock time, or use randomness — the execution stage
// depends on every handler being a pure function of its params.
type Handler func(params map[string]interface{}) (interface{}, error)

// Tool is a registered tool definition.
type Tool struct {
	Name        string
	Description string
	Handler     Handler
}

// Registry holds explicitly registered tools. There is no dynamic
// discovery or import-by-name, mirroring ToolRegistry in the original.
type Registry struct {
	tools map[string]Tool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. It returns a *errs.ToolError if name is already
// registered.
func (r *Registry) Register(name, description string, handler Handler) error {
	if _, exists := r.tools[name]; exists {
		return &errs.ToolError{Reason: fmt.Sprintf("tool '%s' is already registered", name)}
	}
	r.tools[name] = Tool{Name: name, Description: description, Handler: handler}
	return nil
}

// Unregister removes a tool. It returns a *errs.ToolError if name is not
// registered.
func (r *Registry) Unregister(name string) error {
	if _, exists := r.tools[name]; !exists {
		return &errs.ToolError{Reason: fmt.Sprintf("tool '%s' is not registered", name)}
	}
	delete(r.tools, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, exists := r.tools[name]
	return exists
}

// List returns all registered tool names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Invoke looks up and executes name with params. It returns a
// *errs.ToolError if the tool is not found or its handler fails.
func (r *Registry) Invoke(name string, params map[string]interface{}) (interface{}, error) {
	tool, exists := r.tools[name]
	if !exists {
		return nil, &errs.ToolError{Reason: fmt.Sprintf("tool '%s' not found", name)}
	}

	result, err := tool.Handler(params)
	if err != nil {
		return nil, &errs.ToolError{Reason: fmt.Sprintf("tool '%s' execution failed: %v", name, err)}
	}
	return result, nil
}

// NewDefault returns a registry with the built-in deterministic tools
// registered: echo and add, mirroring create_default_registry.
func NewDefault() *Registry {
	r := New()
	_ = r.Register("echo", "Return the input text unchanged", echoHandler)
	_ = r.Register("add", "Add two integers", addHandler)
	return r
}

func echoHandler(params map[string]interface{}) (interface{}, error) {
	text, ok := params["text"].(string)
	if !ok {
		return nil, fmt.Errorf("param 'text' must be a string")
	}
	return text, nil
}

func addHandler(params map[string]interface{}) (interface{}, error) {
	a, err := asInt(params["a"])
	if err != nil {
		return nil, fmt.Errorf("param 'a': %w", err)
	}
	b, err := asInt(params["b"])
	if err != nil {
		return nil, fmt.Errorf("param 'b': %w", err)
	}
	return a + b, nil
}

func asInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}
