// Package jcs implements the canonical JSON form used for x07AST files,
// patched documents, and the repair loop's content hash. Canonical form is
// JCS-like: object keys sorted lexicographically, no insignificant
// whitespace, and a single trailing newline. Numbers decoded by Parse are
// re-emitted exactly as written in the input; they are not rewritten to a
// shortest form.
//
// Other documents (CLI reports, policies, project manifests, lockfiles,
// test manifests) are read and written with encoding/json directly, not
// through this package.
package jcs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parse decodes raw JSON bytes into a generic document tree. Numbers are
// preserved as json.Number so that canonicalization can tell integers from
// floats apart; Canonicalize re-emits a json.Number verbatim (encoding/json
// writes it as-is).
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("jcs: parse: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("jcs: parse: trailing content after top-level value")
	}
	return v, nil
}

// Canonicalize serializes a document tree to its canonical byte form:
// sorted object keys (encoding/json already sorts map[string]any keys),
// compact separators, json.Number emitted verbatim, and a trailing
// newline appended.
func Canonicalize(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: canonicalize: %w", err)
	}
	out := make([]byte, 0, len(b)+1)
	out = append(out, b...)
	out = append(out, '\n')
	return out, nil
}

// CanonicalizeBytes re-parses raw bytes and re-emits them in canonical
// form; used by fmt --write and by the repair loop's content-hash check.
func CanonicalizeBytes(data []byte) ([]byte, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Canonicalize(v)
}

// SchemaMismatchError names the tag the caller expected and the tag found
// (or "" if the document had none).
type SchemaMismatchError struct {
	Expected string
	Found    string
}

func (e *SchemaMismatchError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("jcs: missing schema_version, expected %q", e.Expected)
	}
	return fmt.Sprintf("jcs: schema_version mismatch: expected %q, found %q", e.Expected, e.Found)
}

// CheckSchema verifies that a decoded document carries the expected
// schema_version tag. Unknown or missing tags are always a fatal error
// naming the expected tag (spec §4.C1): silent schema evolution is a
// non-goal.
func CheckSchema(doc any, expected string) error {
	m, ok := doc.(map[string]any)
	if !ok {
		return &SchemaMismatchError{Expected: expected}
	}
	raw, ok := m["schema_version"]
	if !ok {
		return &SchemaMismatchError{Expected: expected}
	}
	found, ok := raw.(string)
	if !ok || found != expected {
		return &SchemaMismatchError{Expected: expected, Found: fmt.Sprint(raw)}
	}
	return nil
}

// MustObject asserts that v decodes to a JSON object and returns it; used
// by callers that have already schema-checked the document.
func MustObject(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jcs: expected JSON object, got %T", v)
	}
	return m, nil
}
