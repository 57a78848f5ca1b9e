package x07ast

import (
	"bytes"
	"testing"
)

const sampleDoc = `{
  "schema_version": "x07.x07ast@0.3.0",
  "kind": "entry",
  "module_id": "demo.main",
  "imports": ["std.bytes", "std.bytes"],
  "decls": [
    {"decl_kind": "def", "name": "helper", "params": [{"name":"x","type":"i32"}], "return": "i32",
     "body": ["return", "x"]}
  ],
  "solve": ["begin", ["let", "a", ["bytes.lit", "hello"]], "a"]
}`

func TestParseDedupesImportsAndAssignsPointers(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Imports) != 1 {
		t.Fatalf("expected imports deduped to 1, got %v", doc.Imports)
	}
	if len(doc.Decls) != 1 || doc.Decls[0].Ptr != "/decls/0" {
		t.Fatalf("unexpected decl pointer: %+v", doc.Decls)
	}
	if doc.Decls[0].Body.Ptr != "/decls/0/body" {
		t.Fatalf("unexpected body pointer: %s", doc.Decls[0].Body.Ptr)
	}
	if doc.Solve == nil || doc.Solve.Head != "begin" {
		t.Fatalf("unexpected solve expr: %+v", doc.Solve)
	}
	letExpr := doc.Solve.Args[0]
	if letExpr.Head != "let" || letExpr.Ptr != "/solve/1" {
		t.Fatalf("unexpected let pointer: %+v", letExpr)
	}
}

func TestMarshalCanonicalRoundTrips(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out1, err := doc.MarshalCanonical()
	if err != nil {
		t.Fatalf("MarshalCanonical: %v", err)
	}
	doc2, err := Parse(out1)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	out2, err := doc2.MarshalCanonical()
	if err != nil {
		t.Fatalf("MarshalCanonical #2: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Fatalf("canonical form not idempotent:\n%s\nvs\n%s", out1, out2)
	}
}
