// Package driver implements the compiler pipeline and the implicit repair
// loop (spec §4.C8): canonicalize -> lint -> (repair) -> type -> enforce
// capabilities -> lower -> emit.
package driver

import (
	"encoding/hex"
	"fmt"

	"github.com/x07dev/x07/internal/abi"
	"github.com/x07dev/x07/internal/cbackend"
	"github.com/x07dev/x07/internal/fmtpatch"
	"github.com/x07dev/x07/internal/jcs"
	"github.com/x07dev/x07/internal/lint"
	"github.com/x07dev/x07/internal/types"
	"github.com/x07dev/x07/internal/world"
	"github.com/x07dev/x07/internal/x07ast"
	"github.com/zeebo/blake3"
)

// ToolCtx carries every piece of driver configuration explicitly; there is
// no ambient global state in the deterministic core (design note: "Global
// mutable state: None").
type ToolCtx struct {
	Budgets Budgets
	World   world.ID
	ABI     abi.Version
}

// NewToolCtx reads environment-derived budgets exactly once.
func NewToolCtx(w world.ID) ToolCtx {
	return ToolCtx{Budgets: BudgetsFromEnv(), World: w, ABI: abi.V1}
}

// RepairState summarizes a whole Repair run: the iteration count, whether
// the last lint pass had no errors (`repair.last_lint_ok` in the wrapped
// report, spec §4.C13), and how many quickfixes were applied.
// `repair.mode` is not derived from it.
type RepairState struct {
	Iterations  int
	LastLintOK  bool
	AppliedCount int
}

// NoProgressError is E_REPAIR_NO_PROGRESS (spec §4.C8): the content hash
// of (canonical doc, diagnostics) failed to change across an iteration
// that should have made progress.
type NoProgressError struct{ Hash string }

func (e *NoProgressError) Error() string {
	return fmt.Sprintf("E_REPAIR_NO_PROGRESS: content hash %s did not change", e.Hash)
}

const maxRepairIterations = 3

// contentHash implements the cycle-detection hash from SPEC_FULL.md §4.C8:
// blake3(canonical doc || canonical diagnostics), hex-encoded, truncated
// to 16 bytes of digest.
func contentHash(doc *x07ast.Document, diags []lint.Diagnostic) (string, error) {
	docBytes, err := doc.MarshalCanonical()
	if err != nil {
		return "", err
	}
	diagAny := make([]any, 0, len(diags))
	for _, d := range diags {
		diagAny = append(diagAny, map[string]any{"code": d.Code, "pointer": d.Loc.Ptr, "severity": string(d.Severity)})
	}
	diagBytes, err := jcs.Canonicalize(diagAny)
	if err != nil {
		return "", err
	}
	h := blake3.New()
	h.Write(docBytes)
	h.Write(diagBytes)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16]), nil
}

// Repair runs the implicit repair loop (spec §4.C8 steps 1-3): canonicalize,
// lint, apply quickfixes, repeat up to 3 times. It returns the
// (possibly-rewritten) document, the final lint diagnostics, and repair
// state for the wrapped report.
func Repair(doc *x07ast.Document, w world.ID) (*x07ast.Document, []lint.Diagnostic, RepairState, error) {
	state := RepairState{}
	var lastHash string

	for iter := 0; iter < maxRepairIterations; iter++ {
		state.Iterations = iter + 1
		diags := lint.Lint(doc, w)
		state.LastLintOK = !lint.HasErrors(diags)

		hash, err := contentHash(doc, diags)
		if err != nil {
			return nil, nil, state, err
		}
		if iter > 0 && hash == lastHash {
			return nil, nil, state, &NoProgressError{Hash: hash}
		}
		lastHash = hash

		if !lint.HasQuickfixableErrors(diags) {
			return doc, diags, state, nil
		}

		raw, err := doc.MarshalCanonical()
		if err != nil {
			return nil, nil, state, err
		}
		tree, err := jcs.Parse(raw)
		if err != nil {
			return nil, nil, state, err
		}

		applied := 0
		for _, d := range diags {
			if d.Severity != lint.SeverityError || d.Quickfix == nil {
				continue
			}
			next, err := fmtpatch.ApplyQuickfix(tree, d.Code, fmtpatch.QuickfixPatch{
				Kind:  d.Quickfix.Kind,
				Patch: d.Quickfix.Patch,
			})
			if err != nil {
				// A quickfix that no longer applies (e.g. its target
				// pointer was invalidated by an earlier one this
				// iteration) is skipped; it will be re-diagnosed next
				// iteration against the post-state.
				continue
			}
			tree = next
			applied++
		}
		state.AppliedCount += applied

		canon, err := jcs.Canonicalize(tree)
		if err != nil {
			return nil, nil, state, err
		}
		newDoc, err := x07ast.Parse(canon)
		if err != nil {
			return nil, nil, state, err
		}
		doc = newDoc

		if applied == 0 {
			// No quickfix could be applied even though some were
			// offered; surface the residual diagnostics rather than
			// spin.
			return doc, diags, state, nil
		}
	}

	diags := lint.Lint(doc, w)
	return doc, diags, state, nil
}

// CompileResult is everything produced by a successful Compile.
type CompileResult struct {
	Document    *x07ast.Document
	Diagnostics []lint.Diagnostic
	Repair      RepairState
	CSource     string
	Requires    []abi.Requires
}

// CompileError wraps a fatal, non-repairable compile failure together
// with the last lint diagnostics so an agent can patch and retry (spec
// §4.C8 step 4).
type CompileError struct {
	Stage       string
	Err         error
	Diagnostics []lint.Diagnostic
}

func (e *CompileError) Error() string { return fmt.Sprintf("driver: %s: %v", e.Stage, e.Err) }
func (e *CompileError) Unwrap() error { return e.Err }

// Compile runs the full pipeline: repair, type, enforce capabilities,
// lower, emit. It is idempotent over canonical inputs (spec §4.C8: "The
// driver is idempotent over canonical inputs").
func Compile(ctx ToolCtx, raw []byte) (*CompileResult, error) {
	doc, err := x07ast.Parse(raw)
	if err != nil {
		return nil, &CompileError{Stage: "parse", Err: err}
	}

	doc, diags, repairState, err := Repair(doc, ctx.World)
	if err != nil {
		return nil, &CompileError{Stage: "repair", Err: err, Diagnostics: diags}
	}
	if lint.HasErrors(diags) {
		return nil, &CompileError{Stage: "lint", Err: fmt.Errorf("%d lint error(s) remain after repair", countErrors(diags)), Diagnostics: diags}
	}

	if err := CheckASTNodes(doc, ctx.Budgets); err != nil {
		return nil, &CompileError{Stage: "budget", Err: err, Diagnostics: diags}
	}
	if err := CheckLocals(doc, ctx.Budgets); err != nil {
		return nil, &CompileError{Stage: "budget", Err: err, Diagnostics: diags}
	}

	typeDiags := types.Check(doc)
	if lint.HasErrors(typeDiags) {
		return nil, &CompileError{Stage: "type", Err: fmt.Errorf("%d type error(s)", countErrors(typeDiags)), Diagnostics: typeDiags}
	}

	violations := world.Enforce(doc, ctx.World)
	if len(violations) > 0 {
		return nil, &CompileError{Stage: "capability", Err: fmt.Errorf("%d capability violation(s) after elaboration", len(violations))}
	}

	emitted, err := cbackend.Emit(doc, ctx.ABI)
	if err != nil {
		return nil, &CompileError{Stage: "emit", Err: err}
	}
	if err := CheckCBytes(emitted.Source, ctx.Budgets); err != nil {
		return nil, &CompileError{Stage: "budget", Err: err}
	}

	return &CompileResult{
		Document:    doc,
		Diagnostics: diags,
		Repair:      repairState,
		CSource:     emitted.Source,
		Requires:    emitted.Requires,
	}, nil
}

func countErrors(diags []lint.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == lint.SeverityError {
			n++
		}
	}
	return n
}
