package lint

import (
	"fmt"
	"strings"

	"github.com/x07dev/x07/internal/fmtpatch"
	"github.com/x07dev/x07/internal/world"
	"github.com/x07dev/x07/internal/x07ast"
)

const reservedPrefix = "__std_stream_pipe_v1_"

// ruleWorldGating is X07-WORLD-OS-*: importing std.os.* or using an OS
// builtin outside a world that grants it.
func ruleWorldGating(doc *x07ast.Document, w world.ID) []Diagnostic {
	var out []Diagnostic
	for _, v := range world.Enforce(doc, w) {
		v := v
		d := Diagnostic{
			Code:     "X07-WORLD-OS-0001",
			Severity: SeverityError,
			Message:  v.Message(),
		}
		if v.Import != "" {
			// Quickfix: drop the offending import.
			idx := importIndex(doc, v.Import)
			d.Loc = Loc{Kind: "x07ast", Ptr: fmt.Sprintf("/imports/%d", idx)}
			d.Quickfix = &fmtpatch.QuickfixPatch{
				Kind:  "json_patch",
				Patch: []fmtpatch.Op{{Op: "remove", Path: fmt.Sprintf("/imports/%d", idx)}},
			}
		} else {
			d.Loc = Loc{Kind: "x07ast", Ptr: v.Ptr}
		}
		out = append(out, d)
	}
	return out
}

func importIndex(doc *x07ast.Document, name string) int {
	for i, imp := range doc.Imports {
		if imp == name {
			return i
		}
	}
	return -1
}

// ruleArityFor is X07-ARITY-FOR-0001: a `for` node must have exactly the
// canonical 5-ary shape ["for", var, start, stop, body]. Scenario 3 of
// spec §8 is this rule firing on a malformed 5-element-but-misordered
// (or differently-arranged) for loop; the common malformed input is a
// missing step/body slot, which quickfix canonicalizes.
func ruleArityFor(doc *x07ast.Document) []Diagnostic {
	var out []Diagnostic
	walkAllExprs(doc, func(e *x07ast.Expr) {
		if e.IsAtom || e.Head != "for" {
			return
		}
		if len(e.Args) == 4 {
			return // canonical: var, start, stop, body
		}
		d := Diagnostic{
			Code:     "X07-ARITY-FOR-0001",
			Severity: SeverityError,
			Loc:      Loc{Kind: "x07ast", Ptr: e.Ptr},
			Message:  fmt.Sprintf("malformed `for`: expected 4 args (var start stop body), found %d", len(e.Args)),
		}
		if len(e.Args) == 3 {
			// Missing body: synthesize an empty begin block so the
			// quickfix produces a structurally valid, if inert, loop.
			d.Quickfix = &fmtpatch.QuickfixPatch{
				Kind: "json_patch",
				Patch: []fmtpatch.Op{{
					Op:    "add",
					Path:  e.Ptr + "/4",
					Value: []any{"begin"},
				}},
			}
		}
		out = append(out, d)
	})
	return out
}

// ruleBorrowViewOfNonIdentifier is X07-BORROW-0001: `bytes.view` applied
// to a non-identifier expression (a nested call or literal) rather than a
// bound name; the view would have no stable owner to borrow from.
func ruleBorrowViewOfNonIdentifier(doc *x07ast.Document) []Diagnostic {
	var out []Diagnostic
	walkAllExprs(doc, func(e *x07ast.Expr) {
		if e.IsAtom || e.Head != "bytes.view" || len(e.Args) != 1 {
			return
		}
		arg := e.Args[0]
		if s, ok := arg.AtomString(); ok && isIdentifier(s) {
			return
		}
		tmp := freshTempName(e.Ptr)
		out = append(out, Diagnostic{
			Code:     "X07-BORROW-0001",
			Severity: SeverityError,
			Loc:      Loc{Kind: "x07ast", Ptr: arg.Ptr},
			Message:  "bytes.view applied to a non-identifier; bind the temporary first",
			Quickfix: &fmtpatch.QuickfixPatch{
				Kind: "json_patch",
				Patch: []fmtpatch.Op{{
					Op:   "replace",
					Path: e.Ptr,
					Value: []any{
						"begin",
						[]any{"let", tmp, arg.ToRaw()},
						[]any{"bytes.view", tmp},
					},
				}},
			},
		})
	})
	return out
}

// ruleBorrowViewEscapesBlock is X07-BORROW-0002: a nested `begin` block
// returns a bytes_view referring to a binding local to that block. There
// is no general quickfix (the caller must restructure ownership), so this
// rule never attaches one.
func ruleBorrowViewEscapesBlock(doc *x07ast.Document) []Diagnostic {
	var out []Diagnostic
	walkAllExprs(doc, func(e *x07ast.Expr) {
		if e.IsAtom || e.Head != "begin" || len(e.Args) == 0 {
			return
		}
		locals := map[string]bool{}
		for _, stmt := range e.Args[:len(e.Args)-1] {
			if !stmt.IsAtom && stmt.Head == "let" && len(stmt.Args) == 2 {
				if name, ok := stmt.Args[0].AtomString(); ok {
					locals[name] = true
				}
			}
		}
		last := e.Args[len(e.Args)-1]
		if last.IsAtom {
			if name, ok := last.AtomString(); ok && locals[name] {
				out = append(out, Diagnostic{
					Code:     "X07-BORROW-0002",
					Severity: SeverityError,
					Loc:      Loc{Kind: "x07ast", Ptr: last.Ptr},
					Message:  fmt.Sprintf("block returns %q, a view-like binding local to this block", name),
				})
			}
		}
	})
	return out
}

// ruleBoolShortCircuit is X07-BOOL-0001: eager `&`/`|` used directly in an
// `if` condition, where a short-circuit `&&`/`||` is required to avoid a
// trap from evaluating a guarded second operand unconditionally.
func ruleBoolShortCircuit(doc *x07ast.Document) []Diagnostic {
	var out []Diagnostic
	walkAllExprs(doc, func(e *x07ast.Expr) {
		if e.IsAtom || e.Head != "if" || len(e.Args) == 0 {
			return
		}
		cond := e.Args[0]
		if cond.IsAtom || (cond.Head != "&" && cond.Head != "|") {
			return
		}
		replacement := "&&"
		if cond.Head == "|" {
			replacement = "||"
		}
		out = append(out, Diagnostic{
			Code:     "X07-BOOL-0001",
			Severity: SeverityError,
			Loc:      Loc{Kind: "x07ast", Ptr: cond.Ptr},
			Message:  fmt.Sprintf("eager %q in an if-condition; use %q for short-circuit evaluation", cond.Head, replacement),
			Quickfix: &fmtpatch.QuickfixPatch{
				Kind: "json_patch",
				Patch: []fmtpatch.Op{{
					Op:    "replace",
					Path:  cond.Ptr + "/0",
					Value: replacement,
				}},
			},
		})
	})
	return out
}

// ruleTypeIfMismatch is X07-TYPE-IF-0002: a syntactic heuristic catching
// the common case where `then`/`else` branches are obviously different
// literal shapes (one numeric, one string) — the full ascription check
// runs in the typechecker; this rule exists so a quickfix is offered
// during the repair loop before the (non-repairing) type pass runs.
func ruleTypeIfMismatch(doc *x07ast.Document) []Diagnostic {
	var out []Diagnostic
	walkAllExprs(doc, func(e *x07ast.Expr) {
		if e.IsAtom || e.Head != "if" || len(e.Args) != 3 {
			return
		}
		then, els := e.Args[1], e.Args[2]
		tk, ek := literalKind(then), literalKind(els)
		if tk == "" || ek == "" || tk == ek {
			return
		}
		out = append(out, Diagnostic{
			Code:     "X07-TYPE-IF-0002",
			Severity: SeverityError,
			Loc:      Loc{Kind: "x07ast", Ptr: e.Ptr},
			Message:  fmt.Sprintf("if-branches differ in type: then is %s, else is %s", tk, ek),
			Quickfix: &fmtpatch.QuickfixPatch{
				Kind: "json_patch",
				Patch: []fmtpatch.Op{{
					Op:    "replace",
					Path:  els.Ptr,
					Value: []any{"set0"},
				}},
			},
		})
	})
	return out
}

// ruleReservedNamespace is X07-RESERVED-0001 (added; resolves design note
// (c)): user symbols must not collide with the reserved concurrency-helper
// prefix used for lowered stream pipes.
func ruleReservedNamespace(doc *x07ast.Document) []Diagnostic {
	var out []Diagnostic
	for i, decl := range doc.Decls {
		if strings.HasPrefix(decl.Name, reservedPrefix) {
			out = append(out, Diagnostic{
				Code:     "X07-RESERVED-0001",
				Severity: SeverityError,
				Loc:      Loc{Kind: "x07ast", Ptr: fmt.Sprintf("/decls/%d/name", i)},
				Message:  fmt.Sprintf("declaration name %q collides with the reserved prefix %q", decl.Name, reservedPrefix),
			})
		}
	}
	return out
}

func literalKind(e *x07ast.Expr) string {
	if e == nil || !e.IsAtom {
		return ""
	}
	switch e.Atom.(type) {
	case int64, float64:
		return "numeric"
	case string:
		if isIdentifier(e.Atom.(string)) {
			return "" // an identifier reference, not a literal; unknown type here
		}
		return "string"
	case bool:
		return "bool"
	}
	return ""
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// freshTempName derives a deterministic binding name from the node's JSON
// Pointer (never a counter or anything else ambient/stateful): two runs
// over the same document always synthesize the same name (I1, P2).
func freshTempName(ptr string) string {
	clean := strings.NewReplacer("/", "_", "-", "_").Replace(ptr)
	return fmt.Sprintf("__x07_tmp%s", clean)
}

func walkAllExprs(doc *x07ast.Document, fn func(*x07ast.Expr)) {
	for _, d := range doc.Decls {
		if d.Body != nil {
			d.Body.Walk(func(e *x07ast.Expr) bool { fn(e); return true })
		}
	}
	if doc.Solve != nil {
		doc.Solve.Walk(func(e *x07ast.Expr) bool { fn(e); return true })
	}
}
