// Package kernel implements the orchestrator: submit -> validate ->
// arbitrate -> (execute) -> audit -> return. Grounded on the teacher's
// kernel.Execute pipeline (numbered-step corridor, single chokepoint,
// audit-before-return discipline) generalized from its CIF/CDI/adapters
// shape to the structural-validate/policy/variant/registry shape this
// governor needs, and on the original's BaseKernel orchestration implied
// by the variant subclasses (strict/permissive/evidence-first/
// dual-channel) and state/machine.py.
package kernel

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/govkernel/kernel-go/internal/canon"
	"github.com/govkernel/kernel-go/internal/clock"
	"github.com/govkernel/kernel-go/internal/errs"
	"github.com/govkernel/kernel-go/internal/fsm"
	"github.com/govkernel/kernel-go/internal/ledger"
	"github.com/govkernel/kernel-go/internal/policy"
	"github.com/govkernel/kernel-go/internal/registry"
	"github.com/govkernel/kernel-go/internal/types"
	"github.com/govkernel/kernel-go/internal/variant"
)

// Kernel is a single-instance, single-threaded orchestrator. It carries
// no internal locking: callers needing concurrent access must serialize
// their own calls to Submit.
type Kernel struct {
	kernelID string
	variant  variant.Tag
	policy   policy.Policy
	registry *registry.Registry
	clock    clock.Clock
	log      *zap.Logger

	machine *fsm.Machine
	ledger  *ledger.Ledger

	haltReason  string
	lastReceipt *types.Receipt
}

// Config bundles a kernel's fixed construction-time collaborators.
type Config struct {
	KernelID string
	Variant  variant.Tag
	Policy   policy.Policy
	Registry *registry.Registry
	Clock    clock.Clock
	Logger   *zap.Logger
}

// New constructs and boots a kernel. A successful boot moves it from
// BOOTING to IDLE atomically. The boot-failure branch exists because a
// failed boot is a defined outcome (it moves to HALTED); nothing in this
// constructor can currently trigger it, since BOOTING -> IDLE is always a
// defined transition. Registry, clock and logger have defaults when
// omitted; the policy is used exactly as given.
func New(cfg Config) (*Kernel, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	k := &Kernel{
		kernelID: cfg.KernelID,
		variant:  cfg.Variant,
		policy:   cfg.Policy,
		registry: reg,
		clock:    clk,
		log:      log,
		machine:  fsm.New(),
		ledger:   ledger.New(),
	}

	log.Info("kernel booting", zap.String("kernel_id", k.kernelID), zap.String("variant", string(k.variant)))

	if _, err := k.machine.Transition(types.Idle); err != nil {
		k.machine.Halt()
		log.Error("boot failed", zap.Error(err))
		return k, &errs.BootError{Reason: err.Error()}
	}

	log.Info("kernel booted", zap.String("kernel_id", k.kernelID), zap.String("state", string(k.machine.State())))
	return k, nil
}

// KernelID returns the kernel's identifier.
func (k *Kernel) KernelID() string { return k.kernelID }

// State returns the current lifecycle state.
func (k *Kernel) State() types.KernelState { return k.machine.State() }

// Policy returns the kernel's immutable policy.
func (k *Kernel) Policy() policy.Policy { return k.policy }

// Submit is the only ingress. It runs structural validation, the variant
// contract check, arbitration, optional execution, and a commit-before-
// return audit append.
func (k *Kernel) Submit(req types.Request) types.Receipt {
	stateFrom := k.machine.State()

	// Step 1: precondition.
	if stateFrom != types.Idle {
		msg := fmt.Sprintf("kernel is not IDLE, currently %s", stateFrom)
		if stateFrom == types.Halted {
			msg = "kernel halted"
		}
		k.log.Warn("submit rejected: not idle", zap.String("state", string(stateFrom)), zap.String("request_id", req.RequestID))
		return types.Receipt{
			RequestID:    req.RequestID,
			Status:       types.Rejected,
			Decision:     types.Deny,
			StateFrom:    stateFrom,
			StateTo:      stateFrom,
			TimestampMs:  req.TimestampMs,
			ErrorMessage: msg,
		}
	}

	// Step 2: transition to VALIDATING.
	if _, err := k.machine.Transition(types.Validating); err != nil {
		return k.fatal(req, stateFrom, err)
	}

	// Step 3: structural validation (policy steps 1-4, 7).
	structural := policy.StructuralOnly(req)
	if !structural.Allowed {
		return k.denyFromValidating(req, structural.Violations)
	}

	// Step 4: ARBITRATING - variant contract, then full policy.
	if _, err := k.machine.Transition(types.Arbitrating); err != nil {
		return k.fatal(req, types.Validating, err)
	}

	variantViolations := variant.Contract(k.variant, req)
	if len(variantViolations) > 0 {
		return k.denyFromArbitrating(req, variantViolations)
	}

	result := policy.Evaluate(req, k.policy, variant.StrictAmbiguity(k.variant))
	if result.Halt {
		return k.haltFromArbitrating(req, result.HaltReason)
	}
	if !result.Allowed {
		return k.denyFromArbitrating(req, result.Violations)
	}

	decision := types.Allow

	// Step 5: EXECUTING, only when ALLOW carries a tool call.
	var toolResult interface{}
	var execError string
	stateForEntry := types.Arbitrating

	if req.ToolCall != nil {
		if _, err := k.machine.Transition(types.Executing); err != nil {
			return k.fatal(req, types.Arbitrating, err)
		}
		stateForEntry = types.Executing

		res, err := k.registry.Invoke(req.ToolCall.Name, req.ToolCall.Params)
		if err != nil {
			execError = err.Error()
			decision = types.Deny
			k.log.Info("tool execution failed", zap.String("tool", req.ToolCall.Name), zap.Error(err))
		} else {
			toolResult = res
		}
	}

	// Step 6: build the partial entry and commit it.
	partial, err := k.buildPartial(req, decision, stateForEntry, execError)
	if err != nil {
		return k.fatal(req, stateForEntry, err)
	}

	if _, err := k.machine.Transition(types.Auditing); err != nil {
		return k.fatal(req, stateForEntry, err)
	}

	entryHash, err := k.ledger.Append(partial)
	if err != nil {
		return k.haltOnAuditFailure(req, err)
	}

	// Step 8: back to IDLE, build and return the receipt.
	if _, err := k.machine.Transition(types.Idle); err != nil {
		return k.fatal(req, types.Auditing, err)
	}

	status := types.Accepted
	if execError != "" {
		status = types.Failed
	}

	receipt := types.Receipt{
		RequestID:    req.RequestID,
		Status:       status,
		Decision:     decision,
		StateFrom:    stateForEntry,
		StateTo:      types.Auditing,
		TimestampMs:  partial.TimestampMs,
		ToolResult:   toolResult,
		ErrorMessage: execError,
		EvidenceHash: entryHash,
	}
	k.lastReceipt = &receipt
	return receipt
}

// buildPartial fills in the partial entry's derived hashes (params_hash,
// evidence_hash) via canon, stamping the timestamp from the kernel's
// clock.
func (k *Kernel) buildPartial(req types.Request, decision types.Decision, stateFrom types.KernelState, execError string) (ledger.Partial, error) {
	p := ledger.Partial{
		RequestID:   req.RequestID,
		Actor:       req.Actor,
		Intent:      req.Intent,
		Decision:    decision,
		StateFrom:   stateFrom,
		StateTo:     types.Auditing,
		TimestampMs: k.clock.NowMs(),
		Error:       execError,
	}

	if req.ToolCall != nil {
		p.ToolName = req.ToolCall.Name
		if req.ToolCall.Params != nil {
			hash, err := paramsHash(req.ToolCall.Params)
			if err != nil {
				return ledger.Partial{}, err
			}
			p.ParamsHash = hash
		}
	}

	if len(req.Evidence) > 0 {
		hash, err := evidenceHash(req.Evidence)
		if err != nil {
			return ledger.Partial{}, err
		}
		p.EvidenceHash = hash
	}

	return p, nil
}

// denyFromValidating handles a structural-validation failure: the
// machine short-circuits VALIDATING -> AUDITING without ever entering
// ARBITRATING.
func (k *Kernel) denyFromValidating(req types.Request, violations []string) types.Receipt {
	if _, err := k.machine.Transition(types.Auditing); err != nil {
		return k.fatal(req, types.Validating, err)
	}
	return k.commitDeny(req, types.Validating, violations)
}

// denyFromArbitrating handles a policy or variant-contract denial
// discovered during ARBITRATING.
func (k *Kernel) denyFromArbitrating(req types.Request, violations []string) types.Receipt {
	if _, err := k.machine.Transition(types.Auditing); err != nil {
		return k.fatal(req, types.Arbitrating, err)
	}
	return k.commitDeny(req, types.Arbitrating, violations)
}

// haltFromArbitrating handles a custom rule that demands HALT rather
// than DENY: the request itself is grounds for pulling the kernel out of
// service, not merely rejecting this one submission. It moves from
// ARBITRATING through AUDITING, where the HALT entry (recorded as
// ARBITRATING -> HALTED) is committed, to HALTED, instead of returning
// through IDLE the way an ordinary DENY does.
func (k *Kernel) haltFromArbitrating(req types.Request, reason string) types.Receipt {
	if reason == "" {
		reason = "custom rule demanded halt"
	}
	k.log.Warn("custom rule demanded halt", zap.String("request_id", req.RequestID), zap.String("reason", reason))

	if _, err := k.machine.Transition(types.Auditing); err != nil {
		return k.fatal(req, types.Arbitrating, err)
	}

	partial := ledger.Partial{
		RequestID:   req.RequestID,
		Actor:       req.Actor,
		Intent:      req.Intent,
		Decision:    types.Halt,
		StateFrom:   types.Arbitrating,
		StateTo:     types.Halted,
		TimestampMs: k.clock.NowMs(),
		Error:       reason,
	}
	entryHash, err := k.ledger.Append(partial)
	if err != nil {
		return k.haltOnAuditFailure(req, err)
	}

	k.machine.Halt()

	receipt := types.Receipt{
		RequestID:    req.RequestID,
		Status:       types.Failed,
		Decision:     types.Halt,
		StateFrom:    types.Arbitrating,
		StateTo:      types.Halted,
		TimestampMs:  partial.TimestampMs,
		ErrorMessage: reason,
		EvidenceHash: entryHash,
	}
	k.lastReceipt = &receipt
	return receipt
}

func (k *Kernel) commitDeny(req types.Request, stateFrom types.KernelState, violations []string) types.Receipt {
	reason := joinViolations(violations)

	partial, err := k.buildPartial(req, types.Deny, stateFrom, reason)
	if err != nil {
		return k.fatal(req, stateFrom, err)
	}

	entryHash, err := k.ledger.Append(partial)
	if err != nil {
		return k.haltOnAuditFailure(req, err)
	}

	if _, err := k.machine.Transition(types.Idle); err != nil {
		return k.fatal(req, types.Auditing, err)
	}

	receipt := types.Receipt{
		RequestID:    req.RequestID,
		Status:       types.Rejected,
		Decision:     types.Deny,
		StateFrom:    stateFrom,
		StateTo:      types.Auditing,
		TimestampMs:  partial.TimestampMs,
		ErrorMessage: reason,
		EvidenceHash: entryHash,
	}
	k.lastReceipt = &receipt
	return receipt
}

// haltOnAuditFailure handles a failure to append the committed entry
// itself. This is always fatal: the kernel cannot report a decision it
// could not also record.
func (k *Kernel) haltOnAuditFailure(req types.Request, cause error) types.Receipt {
	k.log.Error("audit append failed, halting", zap.Error(cause), zap.String("request_id", req.RequestID))
	k.machine.Halt()
	receipt := types.Receipt{
		RequestID:    req.RequestID,
		Status:       types.Failed,
		Decision:     types.Halt,
		StateFrom:    types.Auditing,
		StateTo:      types.Halted,
		TimestampMs:  k.clock.NowMs(),
		ErrorMessage: fmt.Sprintf("audit failure: %v", cause),
	}
	k.lastReceipt = &receipt
	return receipt
}

// fatal handles any unhandled internal condition: it drives the kernel to
// HALTED, with a best-effort HALT entry appended if the ledger is still
// usable.
func (k *Kernel) fatal(req types.Request, stateFrom types.KernelState, cause error) types.Receipt {
	k.log.Error("fatal internal condition, halting", zap.Error(cause), zap.String("request_id", req.RequestID))
	k.machine.Halt()

	partial := ledger.Partial{
		RequestID:   req.RequestID,
		Actor:       req.Actor,
		Intent:      req.Intent,
		Decision:    types.Halt,
		StateFrom:   stateFrom,
		StateTo:     types.Halted,
		TimestampMs: k.clock.NowMs(),
		Error:       fmt.Sprintf("fatal: %v", cause),
	}
	entryHash, appendErr := k.ledger.Append(partial)
	if appendErr != nil {
		entryHash = ""
	}

	receipt := types.Receipt{
		RequestID:    req.RequestID,
		Status:       types.Failed,
		Decision:     types.Halt,
		StateFrom:    stateFrom,
		StateTo:      types.Halted,
		TimestampMs:  partial.TimestampMs,
		ErrorMessage: fmt.Sprintf("fatal: %v", cause),
		EvidenceHash: entryHash,
	}
	k.lastReceipt = &receipt
	return receipt
}

// Halt is permitted from any non-terminal state. It is idempotent:
// calling Halt while already HALTED returns the last receipt (or a
// synthetic one if none exists) without appending another entry.
func (k *Kernel) Halt(reason string) types.Receipt {
	if k.machine.IsHalted() {
		if k.lastReceipt != nil {
			return *k.lastReceipt
		}
		return types.Receipt{
			Status:      types.Accepted,
			Decision:    types.Halt,
			StateFrom:   types.Halted,
			StateTo:     types.Halted,
			TimestampMs: k.clock.NowMs(),
		}
	}

	stateFrom := k.machine.State()
	k.haltReason = reason

	partial := ledger.Partial{
		Actor:       "kernel",
		Intent:      "halt",
		Decision:    types.Halt,
		StateFrom:   stateFrom,
		StateTo:     types.Halted,
		TimestampMs: k.clock.NowMs(),
		Error:       reason,
	}
	entryHash, err := k.ledger.Append(partial)
	if err != nil {
		entryHash = ""
	}

	k.machine.Halt()
	k.log.Info("kernel halted", zap.String("reason", reason), zap.String("state_from", string(stateFrom)))

	receipt := types.Receipt{
		Status:       types.Accepted,
		Decision:     types.Halt,
		StateFrom:    stateFrom,
		StateTo:      types.Halted,
		TimestampMs:  partial.TimestampMs,
		ErrorMessage: reason,
		EvidenceHash: entryHash,
	}
	k.lastReceipt = &receipt
	return receipt
}

// ExportEvidence is permitted from any state, including HALTED. It
// returns a deep-copied bundle plus the current root hash.
func (k *Kernel) ExportEvidence() types.EvidenceBundle {
	return types.EvidenceBundle{
		KernelID:     k.kernelID,
		VariantTag:   string(k.variant),
		Entries:      k.ledger.Export(),
		RootHash:     k.ledger.RootHash(),
		ExportedAtMs: k.clock.NowMs(),
	}
}

func paramsHash(params map[string]interface{}) (string, error) {
	return canon.ParamsHash(params)
}

func evidenceHash(evidence []string) (string, error) {
	return canon.EvidenceHashOfRequest(evidence)
}

func joinViolations(violations []string) string {
	out := ""
	for i, v := range violations {
		if i > 0 {
			out += "; "
		}
		out += v
	}
	return out
}
