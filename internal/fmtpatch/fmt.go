// Package fmtpatch implements the x07AST formatter (canonicalization
// entrypoint for files) and the RFC 6902 JSON Patch machinery used by
// quickfixes and by `x07 ast apply-patch`.
package fmtpatch

import (
	"bytes"
	"fmt"

	"github.com/x07dev/x07/internal/jcs"
)

// Format canonicalizes a raw x07AST file's bytes. It is the implementation
// behind `x07 fmt`. The repair loop does not call it; it canonicalizes via
// Document.MarshalCanonical instead.
func Format(raw []byte) ([]byte, error) {
	v, err := jcs.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := jcs.CheckSchema(v, jcs.SchemaX07AST); err != nil {
		return nil, err
	}
	return jcs.Canonicalize(v)
}

// CheckResult is the report shape for `x07 fmt --check`.
type CheckResult struct {
	Clean bool `json:"clean"`
}

// Check reports whether raw is already in canonical form, without writing
// anything (P1: fmt(fmt(D)) == fmt(D)).
func Check(raw []byte) (*CheckResult, error) {
	formatted, err := Format(raw)
	if err != nil {
		return nil, err
	}
	return &CheckResult{Clean: bytes.Equal(raw, formatted)}, nil
}

// FormatError wraps a canonicalization failure (it carries only the
// underlying error, not the input), matching the taxonomy in spec §7 ("canonicalization drift" is
// schema/contract, fatal to the operation).
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string { return fmt.Sprintf("fmtpatch: format: %v", e.Err) }
func (e *FormatError) Unwrap() error { return e.Err }
