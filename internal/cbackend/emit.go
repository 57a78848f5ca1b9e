// Package cbackend lowers a typechecked x07AST document to a single
// deterministic C translation unit (spec §4.C7). It supports the
// expression subset named in spec §3: begin, let, set, set0, if, for,
// return, bytes.lit/bytes.view/bytes.view_lit/view.slice, and the
// arithmetic/comparison/boolean builtins used in conditions.
package cbackend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/x07dev/x07/internal/abi"
	"github.com/x07dev/x07/internal/x07ast"
)

// Result is the emitted translation unit plus its native-backend
// requirements (spec §4.C7 "Native backends").
type Result struct {
	Source   string
	Requires []abi.Requires
}

// EmitError wraps a lowering failure that means the generated C would be
// UB-prone or a pinned invariant could not be satisfied (spec §7
// "Backend/Emit": fatal).
type EmitError struct {
	Ptr string
	Msg string
}

func (e *EmitError) Error() string { return fmt.Sprintf("cbackend: %s: %s", e.Ptr, e.Msg) }

var binaryOps = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%",
	"=": "==", "!=": "!=", "<": "<", ">": ">", "<=": "<=", ">=": ">=",
	"&&": "&&", "||": "||",
}

type emitter struct {
	version abi.Version
	buf     strings.Builder
	// used holds the native backend ids reported in Result.Requires,
	// sorted on output for determinism. No head in the supported subset
	// adds an entry, so Requires is always empty.
	used map[string]abi.Requires
}

// Emit lowers doc to C source text. Determinism: declarations are emitted
// in their document order (never resorted), and native requires are
// collected into a set keyed by backend id then sorted before emission, so
// two semantically equal documents always produce byte-identical output.
func Emit(doc *x07ast.Document, version abi.Version) (*Result, error) {
	em := &emitter{version: version, used: map[string]abi.Requires{}}
	em.buf.WriteString("#include <stdint.h>\n#include <stddef.h>\n#include <stdio.h>\n#include <stdlib.h>\n\n")
	em.buf.WriteString(abi.HeaderSurface(version))
	em.buf.WriteString("\n")
	em.buf.WriteString(abi.RuntimeSource())

	for _, d := range doc.Decls {
		if err := em.emitDecl(d); err != nil {
			return nil, err
		}
	}

	if doc.Solve != nil {
		em.buf.WriteString("int32_t x07_solve(void) {\n")
		if err := em.emitStmt(doc.Solve, 1); err != nil {
			return nil, err
		}
		em.buf.WriteString("  return 0;\n}\n\n")
		em.buf.WriteString(abi.MainSource())
	}

	reqs := make([]abi.Requires, 0, len(em.used))
	for _, r := range em.used {
		reqs = append(reqs, r)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].BackendID < reqs[j].BackendID })

	return &Result{Source: em.buf.String(), Requires: reqs}, nil
}

func cType(name string) string {
	switch name {
	case "i32":
		return "int32_t"
	case "u32":
		return "uint32_t"
	case "i64":
		return "int64_t"
	case "f64":
		return "double"
	case "bytes":
		return "ev_bytes"
	case "bytes_view":
		return "ev_bytes_view"
	case "vec_u8":
		return "ev_vec_u8"
	case "bool":
		return "int32_t"
	default:
		return "int32_t"
	}
}

func (em *emitter) emitDecl(d *x07ast.Decl) error {
	ret := "int32_t"
	if d.Return != "" {
		ret = cType(d.Return)
	}
	params := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		params = append(params, fmt.Sprintf("%s %s", cType(p.Type), sanitizeIdent(p.Name)))
	}
	em.buf.WriteString(fmt.Sprintf("%s x07_fn_%s(%s) {\n", ret, sanitizeIdent(d.Name), strings.Join(params, ", ")))
	if d.Body != nil {
		if err := em.emitStmt(d.Body, 1); err != nil {
			return err
		}
	}
	em.buf.WriteString("}\n\n")
	return nil
}

func (em *emitter) indent(depth int) string { return strings.Repeat("  ", depth) }

func (em *emitter) emitStmt(e *x07ast.Expr, depth int) error {
	if e == nil {
		return nil
	}
	if e.IsAtom {
		expr, err := em.emitExpr(e)
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + expr + ";\n")
		return nil
	}
	switch e.Head {
	case "begin":
		for _, stmt := range e.Args {
			if err := em.emitStmt(stmt, depth); err != nil {
				return err
			}
		}
		return nil
	case "let":
		if len(e.Args) != 2 {
			return &EmitError{Ptr: e.Ptr, Msg: "let requires exactly 2 args"}
		}
		name, _ := e.Args[0].AtomString()
		val, err := em.emitExpr(e.Args[1])
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + fmt.Sprintf("int32_t %s = %s;\n", sanitizeIdent(name), val))
		return nil
	case "set":
		if len(e.Args) != 2 {
			return &EmitError{Ptr: e.Ptr, Msg: "set requires exactly 2 args"}
		}
		name, _ := e.Args[0].AtomString()
		val, err := em.emitExpr(e.Args[1])
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + fmt.Sprintf("%s = %s;\n", sanitizeIdent(name), val))
		return nil
	case "set0":
		if len(e.Args) != 1 {
			return &EmitError{Ptr: e.Ptr, Msg: "set0 requires exactly 1 arg"}
		}
		name, _ := e.Args[0].AtomString()
		em.buf.WriteString(em.indent(depth) + fmt.Sprintf("%s = 0;\n", sanitizeIdent(name)))
		return nil
	case "if":
		if len(e.Args) != 3 {
			return &EmitError{Ptr: e.Ptr, Msg: "if requires exactly 3 args (cond then else)"}
		}
		cond, err := em.emitExpr(e.Args[0])
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + fmt.Sprintf("if (%s) {\n", cond))
		if err := em.emitStmt(e.Args[1], depth+1); err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + "} else {\n")
		if err := em.emitStmt(e.Args[2], depth+1); err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + "}\n")
		return nil
	case "for":
		if len(e.Args) != 4 {
			return &EmitError{Ptr: e.Ptr, Msg: "for requires exactly 4 args (var start stop body)"}
		}
		varName, _ := e.Args[0].AtomString()
		start, err := em.emitExpr(e.Args[1])
		if err != nil {
			return err
		}
		stop, err := em.emitExpr(e.Args[2])
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + fmt.Sprintf(
			"for (int32_t %s = %s; %s < %s; %s++) {\n",
			sanitizeIdent(varName), start, sanitizeIdent(varName), stop, sanitizeIdent(varName)))
		if err := em.emitStmt(e.Args[3], depth+1); err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + "}\n")
		return nil
	case "return":
		if len(e.Args) == 0 {
			em.buf.WriteString(em.indent(depth) + "return 0;\n")
			return nil
		}
		val, err := em.emitExpr(e.Args[0])
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + fmt.Sprintf("return %s;\n", val))
		return nil
	default:
		expr, err := em.emitExpr(e)
		if err != nil {
			return err
		}
		em.buf.WriteString(em.indent(depth) + expr + ";\n")
		return nil
	}
}

func (em *emitter) emitExpr(e *x07ast.Expr) (string, error) {
	if e.IsAtom {
		switch v := e.Atom.(type) {
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		case bool:
			if v {
				return "1", nil
			}
			return "0", nil
		case string:
			return sanitizeIdent(v), nil
		default:
			return "0", nil
		}
	}
	if op, ok := binaryOps[e.Head]; ok {
		if len(e.Args) != 2 {
			return "", &EmitError{Ptr: e.Ptr, Msg: fmt.Sprintf("%s requires exactly 2 operands", e.Head)}
		}
		lhs, err := em.emitExpr(e.Args[0])
		if err != nil {
			return "", err
		}
		rhs, err := em.emitExpr(e.Args[1])
		if err != nil {
			return "", err
		}
		if e.Head == "/" || e.Head == "%" {
			// Guard against UB: the backend never relies on trapping
			// hardware division (spec §4.C7 "no reliance on ... UB").
			return fmt.Sprintf("((%s) == 0 ? (ev_trap(%d), 0) : (%s %s %s))",
				rhs, abi.EVTrapMathDivZeroI32, lhs, op, rhs), nil
		}
		return fmt.Sprintf("(%s %s %s)", lhs, op, rhs), nil
	}
	switch e.Head {
	case "bytes.lit", "bytes.view_lit":
		if len(e.Args) != 1 {
			return "", &EmitError{Ptr: e.Ptr, Msg: e.Head + " requires exactly 1 arg"}
		}
		s, ok := e.Args[0].AtomString()
		if !ok {
			return "", &EmitError{Ptr: e.Ptr, Msg: e.Head + " argument must be a string literal"}
		}
		return cStringLiteralExpr(s), nil
	case "bytes.view", "view.slice":
		if len(e.Args) == 0 {
			return "", &EmitError{Ptr: e.Ptr, Msg: e.Head + " requires at least 1 arg"}
		}
		inner, err := em.emitExpr(e.Args[0])
		if err != nil {
			return "", err
		}
		return inner, nil
	default:
		return "", &EmitError{Ptr: e.Ptr, Msg: fmt.Sprintf("unsupported head %q in this backend subset", e.Head)}
	}
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	return "x07v_" + out
}

func cStringLiteralExpr(s string) string {
	var b strings.Builder
	b.WriteString("ev_bytes_from_literal(\"")
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString(fmt.Sprintf("\", %d)", len([]byte(s))))
	return b.String()
}
