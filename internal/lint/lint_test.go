package lint

import (
	"testing"

	"github.com/x07dev/x07/internal/x07ast"
)

func mustParse(t *testing.T, raw string) *x07ast.Document {
	t.Helper()
	doc, err := x07ast.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestArityForMissingBodyGetsQuickfix(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["for", "i", 0, 1]
	}`)
	diags := Lint(doc, "")
	if len(diags) != 1 || diags[0].Code != "X07-ARITY-FOR-0001" {
		t.Fatalf("expected single arity-for diagnostic, got %+v", diags)
	}
	if diags[0].Quickfix == nil {
		t.Fatal("expected quickfix for 3-arg for")
	}
}

func TestArityForCanonicalIsClean(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["for", "i", 0, 1, ["begin"]]
	}`)
	for _, d := range Lint(doc, "") {
		if d.Code == "X07-ARITY-FOR-0001" {
			t.Fatalf("unexpected diagnostic on canonical for: %+v", d)
		}
	}
}

func TestBorrowViewOfNonIdentifier(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["bytes.view", ["bytes.lit", "x"]]
	}`)
	diags := Lint(doc, "")
	found := false
	for _, d := range diags {
		if d.Code == "X07-BORROW-0001" {
			found = true
			if d.Quickfix == nil {
				t.Fatal("expected quickfix")
			}
		}
	}
	if !found {
		t.Fatalf("expected X07-BORROW-0001, got %+v", diags)
	}
}

func TestBoolShortCircuitQuickfix(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["if", ["&", "a", "b"], 1, 0]
	}`)
	diags := Lint(doc, "")
	if len(diags) != 1 || diags[0].Code != "X07-BOOL-0001" {
		t.Fatalf("expected bool-0001, got %+v", diags)
	}
	if diags[0].Quickfix == nil {
		t.Fatal("expected short-circuit quickfix")
	}
}

func TestWorldGatingOnImport(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": ["std.os.proc"], "decls": [],
		"solve": ["bytes.lit", "x"]
	}`)
	diags := Lint(doc, "solve-pure")
	if len(diags) != 1 || diags[0].Code != "X07-WORLD-OS-0001" {
		t.Fatalf("expected world violation, got %+v", diags)
	}
	if diags[0].Quickfix == nil {
		t.Fatal("expected import-removal quickfix")
	}
}

func TestLintOrderStableAcrossRuns(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": ["std.os.proc"], "decls": [],
		"solve": ["begin", ["for", "i", 0, 1], ["if", ["&", "a", "b"], 1, 0]]
	}`)
	first := Lint(doc, "solve-pure")
	second := Lint(doc, "solve-pure")
	if len(first) != len(second) {
		t.Fatalf("non-deterministic diagnostic count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Code != second[i].Code || first[i].Loc.Ptr != second[i].Loc.Ptr {
			t.Fatalf("diagnostic order differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReservedNamespaceRule(t *testing.T) {
	doc := mustParse(t, `{
		"schema_version": "x07.x07ast@0.3.0", "kind": "module", "module_id": "m",
		"imports": [], "decls": [{"decl_kind":"def","name":"__std_stream_pipe_v1_x","body":["return",0]}]
	}`)
	diags := Lint(doc, "")
	if len(diags) != 1 || diags[0].Code != "X07-RESERVED-0001" {
		t.Fatalf("expected reserved-namespace diagnostic, got %+v", diags)
	}
}
