package types

import (
	"testing"

	"github.com/x07dev/x07/internal/x07ast"
)

// TestUseAfterMove exercises spec §8 scenario 6: binding `a`, moving it
// into `b`, then reading `a` again must fail with a `use after move`
// diagnostic naming the JSON Pointer of the offending read.
func TestUseAfterMove(t *testing.T) {
	doc, err := x07ast.Parse([]byte(`{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["begin",
			["let", "a", ["bytes.lit", "x"]],
			["let", "b", "a"],
			["bytes.len", "a"]
		]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Check(doc)
	if len(diags) != 1 {
		t.Fatalf("expected 1 move diagnostic, got %+v", diags)
	}
	if diags[0].Code != "X07-MOVE-0001" {
		t.Fatalf("unexpected diagnostic: %+v", diags[0])
	}
	if diags[0].Loc.Ptr != "/solve/3/1" {
		t.Fatalf("unexpected pointer: %s", diags[0].Loc.Ptr)
	}
}

func TestNoMoveWhenNotOwned(t *testing.T) {
	doc, err := x07ast.Parse([]byte(`{
		"schema_version": "x07.x07ast@0.3.0", "kind": "entry", "module_id": "m",
		"imports": [], "decls": [],
		"solve": ["begin",
			["let", "a", 1],
			["let", "b", "a"],
			["set0", "a"]
		]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diags := Check(doc); len(diags) != 0 {
		t.Fatalf("expected no diagnostics for non-owned binding, got %+v", diags)
	}
}

func TestMonomorphKeyDeterministicAndPositional(t *testing.T) {
	k1 := MonomorphKey("ty.read_le_at", []Type{{Kind: KindI32}, {Kind: KindBytes}})
	k2 := MonomorphKey("ty.read_le_at", []Type{{Kind: KindI32}, {Kind: KindBytes}})
	if k1 != k2 {
		t.Fatalf("MonomorphKey not deterministic: %q vs %q", k1, k2)
	}
	k3 := MonomorphKey("ty.read_le_at", []Type{{Kind: KindBytes}, {Kind: KindI32}})
	if k1 == k3 {
		t.Fatal("MonomorphKey must be positional, not order-insensitive")
	}
}
