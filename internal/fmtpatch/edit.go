package fmtpatch

import "fmt"

// QuickfixPatch is the shape a lint diagnostic's quickfix carries (spec
// §4.C4): a kind tag plus the RFC 6902 ops themselves.
type QuickfixPatch struct {
	Kind  string `json:"kind"` // always "json_patch"
	Patch []Op   `json:"patch"`
}

// ApplyQuickfix applies exactly one lint-provided patch, addressed by the
// diagnostic's code (for error messages only; the patch ops themselves
// already carry their target pointers).
func ApplyQuickfix(doc any, diagCode string, qf QuickfixPatch) (any, error) {
	if qf.Kind != "" && qf.Kind != "json_patch" {
		return nil, fmt.Errorf("fmtpatch: quickfix %s: unsupported kind %q", diagCode, qf.Kind)
	}
	out, err := Apply(doc, qf.Patch, ApplyOptions{Validate: true})
	if err != nil {
		return nil, fmt.Errorf("fmtpatch: quickfix %s: %w", diagCode, err)
	}
	return out, nil
}

// InsertStmts inserts a sequence of statement expressions into a `begin`
// body found at the named decl, at the given 0-based statement index
// (appending when index == -1). It returns the RFC 6902 ops to do so,
// rather than mutating in place, so callers can preview, log, or batch
// them alongside other quickfixes.
func InsertStmts(declPtr string, bodyIsBegin bool, index int, stmts []any) ([]Op, error) {
	if !bodyIsBegin {
		return nil, fmt.Errorf("fmtpatch: insert-stmts: decl %s body is not a begin block", declPtr)
	}
	// The body array's element 0 is the "begin" head atom; statement i
	// therefore lives at array index i+1.
	basePath := declPtr + "/body"
	ops := make([]Op, 0, len(stmts))
	for i, stmt := range stmts {
		var path string
		if index < 0 {
			path = basePath + "/-"
		} else {
			path = fmt.Sprintf("%s/%d", basePath, index+i+1)
		}
		ops = append(ops, Op{Op: "add", Path: path, Value: stmt})
	}
	return ops, nil
}
