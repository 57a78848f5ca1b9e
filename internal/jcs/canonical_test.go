package jcs

import (
	"bytes"
	"testing"
)

func TestCanonicalizeSortsKeysAndAppendsNewline(t *testing.T) {
	v, err := Parse([]byte(`{"b":1,"a":"x"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := []byte("{\"a\":\"x\",\"b\":1}\n")
	if !bytes.Equal(out, want) {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	in := []byte(`{"z":[3,2,1],"a":{"nested":true}}` + "\n")
	once, err := CanonicalizeBytes(in)
	if err != nil {
		t.Fatalf("first canonicalize: %v", err)
	}
	twice, err := CanonicalizeBytes(once)
	if err != nil {
		t.Fatalf("second canonicalize: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("canonicalize not idempotent: %q != %q", once, twice)
	}
}

func TestCheckSchemaMissing(t *testing.T) {
	v, _ := Parse([]byte(`{"kind":"entry"}`))
	err := CheckSchema(v, SchemaX07AST)
	if err == nil {
		t.Fatal("expected error for missing schema_version")
	}
	var mm *SchemaMismatchError
	if _, ok := err.(*SchemaMismatchError); !ok {
		t.Fatalf("expected *SchemaMismatchError, got %T", err)
	}
	_ = mm
}

func TestCheckSchemaMismatch(t *testing.T) {
	v, _ := Parse([]byte(`{"schema_version":"x07.x07ast@0.2.0"}`))
	err := CheckSchema(v, SchemaX07AST)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestParseRejectsTrailingContent(t *testing.T) {
	_, err := Parse([]byte(`{"a":1} garbage`))
	if err == nil {
		t.Fatal("expected error for trailing content")
	}
}
