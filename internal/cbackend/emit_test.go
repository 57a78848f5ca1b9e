package cbackend

import (
	"testing"

	"github.com/x07dev/x07/internal/abi"
	"github.com/x07dev/x07/internal/x07ast"
)

func TestEmitDeterministic(t *testing.T) {
	doc, err := x07ast.Parse([]byte(`{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["begin", ["let", "a", 1], ["if", ["=", "a", 1], ["return", 0], ["return", 1]]]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r1, err := Emit(doc, abi.V1)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	r2, err := Emit(doc, abi.V1)
	if err != nil {
		t.Fatalf("Emit #2: %v", err)
	}
	if r1.Source != r2.Source {
		t.Fatalf("non-deterministic emit:\n%s\nvs\n%s", r1.Source, r2.Source)
	}
	if !contains(r1.Source, "x07_solve") {
		t.Fatalf("expected x07_solve entrypoint, got:\n%s", r1.Source)
	}
}

func TestEmitRejectsUnsupportedHead(t *testing.T) {
	doc, err := x07ast.Parse([]byte(`{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["task.spawn", "foo"]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Emit(doc, abi.V1); err == nil {
		t.Fatal("expected EmitError for unsupported head")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
