package driver

import (
	"strings"
	"testing"

	"github.com/x07dev/x07/internal/lint"
	"github.com/x07dev/x07/internal/world"
	"github.com/x07dev/x07/internal/x07ast"
)

const cleanDoc = `{
	"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
	"imports": [], "decls": [],
	"solve": ["begin", ["let", "a", 1], ["return", "a"]]
}`

func TestCompileCleanDocumentSucceeds(t *testing.T) {
	ctx := NewToolCtx(world.SolvePure)
	res, err := Compile(ctx, []byte(cleanDoc))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(res.CSource, "x07_solve") {
		t.Fatalf("expected x07_solve entrypoint in emitted source:\n%s", res.CSource)
	}
	if lint.HasErrors(res.Diagnostics) {
		t.Fatalf("expected no error diagnostics, got %v", res.Diagnostics)
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	ctx := NewToolCtx(world.SolvePure)
	r1, err := Compile(ctx, []byte(cleanDoc))
	if err != nil {
		t.Fatalf("Compile #1: %v", err)
	}
	r2, err := Compile(ctx, []byte(cleanDoc))
	if err != nil {
		t.Fatalf("Compile #2: %v", err)
	}
	if r1.CSource != r2.CSource {
		t.Fatalf("non-idempotent compile:\n%s\nvs\n%s", r1.CSource, r2.CSource)
	}
}

func TestCompileRejectsCapabilityViolation(t *testing.T) {
	doc := `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["os.proc.spawn", "ls"]
	}`
	ctx := NewToolCtx(world.SolvePure)
	_, err := Compile(ctx, []byte(doc))
	if err == nil {
		t.Fatal("expected a violation error for os.proc.spawn under solve-pure")
	}
}

func TestContentHashStableAndSizedForCycleDetection(t *testing.T) {
	doc, err := x07ast.Parse([]byte(cleanDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := lint.Lint(doc, world.SolvePure)
	h1, err := contentHash(doc, diags)
	if err != nil {
		t.Fatalf("contentHash #1: %v", err)
	}
	h2, err := contentHash(doc, diags)
	if err != nil {
		t.Fatalf("contentHash #2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("content hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 32 {
		t.Fatalf("expected 16-byte hex digest (32 hex chars), got %d: %s", len(h1), h1)
	}
}

func TestRepairReturnsCleanDocUnchanged(t *testing.T) {
	doc, err := x07ast.Parse([]byte(cleanDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, diags, state, err := Repair(doc, world.SolvePure)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if lint.HasErrors(diags) {
		t.Fatalf("expected no errors, got %v", diags)
	}
	if state.Iterations != 1 {
		t.Fatalf("expected a clean doc to settle in 1 iteration, got %d", state.Iterations)
	}
	if out == nil {
		t.Fatal("expected a non-nil document back")
	}
}
