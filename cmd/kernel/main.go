// Provides a runnable entrypoint for exercising submit -> validate ->
// arbitrate -> (execute) -> audit -> return against the default tool
// registry. Mirrors the teacher's cmd/oi-kernel/main.go flag/JSON shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govkernel/kernel-go/internal/kernel"
	"github.com/govkernel/kernel-go/internal/policy"
	"github.com/govkernel/kernel-go/internal/registry"
	"github.com/govkernel/kernel-go/internal/request"
	"github.com/govkernel/kernel-go/internal/variant"
)

type output struct {
	RequestID    string      `json:"request_id"`
	Status       string      `json:"status"`
	Decision     string      `json:"decision"`
	StateFrom    string      `json:"state_from"`
	StateTo      string      `json:"state_to"`
	TimestampMs  int64       `json:"timestamp_ms"`
	ToolResult   interface{} `json:"tool_result,omitempty"`
	Error        string      `json:"error,omitempty"`
	EvidenceHash string      `json:"evidence_hash"`
}

func main() {
	actor := flag.String("actor", "demo-agent", "actor submitting the request")
	intent := flag.String("intent", "say hello", "natural-language intent")
	toolName := flag.String("tool", "echo", "tool to invoke, empty for intent-only")
	toolText := flag.String("text", "hello from the kernel", "value for the echo tool's text param")
	variantFlag := flag.String("variant", string(variant.Strict), "strict|permissive|evidence-first|dual-channel")
	kernelID := flag.String("kernel-id", "", "kernel id, random when empty")
	pretty := flag.Bool("pretty", true, "pretty-print JSON output")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to construct logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	id := *kernelID
	if id == "" {
		id = "kernel-" + uuid.NewString()
	}

	reg := registry.NewDefault()
	p := policy.Default()
	p.AllowedActors = map[string]bool{*actor: true}
	p.AllowedTools = map[string]bool{"echo": true, "add": true}

	k, err := kernel.New(kernel.Config{
		KernelID: id,
		Variant:  variant.Tag(*variantFlag),
		Policy:   p,
		Registry: reg,
		Logger:   log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "boot failed: %v\n", err)
		os.Exit(1)
	}

	builder := request.New().WithActor(*actor).WithIntent(*intent)
	if *toolName != "" {
		builder = builder.WithTool(*toolName, map[string]interface{}{"text": *toolText})
	}
	req, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build request: %v\n", err)
		os.Exit(1)
	}

	receipt := k.Submit(req)

	payload := output{
		RequestID:    receipt.RequestID,
		Status:       string(receipt.Status),
		Decision:     string(receipt.Decision),
		StateFrom:    string(receipt.StateFrom),
		StateTo:      string(receipt.StateTo),
		TimestampMs:  receipt.TimestampMs,
		ToolResult:   receipt.ToolResult,
		Error:        receipt.ErrorMessage,
		EvidenceHash: receipt.EvidenceHash,
	}

	var result []byte
	if *pretty {
		result, err = json.MarshalIndent(payload, "", "  ")
	} else {
		result, err = json.Marshal(payload)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(result))
}
