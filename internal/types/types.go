// Package types implements the bidirectional typechecker (spec §4.C5):
// ownership/move tracking for owned vs. view types, and a stable
// monomorphization key for generic instantiations.
package types

import (
	"fmt"
	"strings"

	"github.com/x07dev/x07/internal/lint"
	"github.com/x07dev/x07/internal/x07ast"
)

// Kind is the primitive/owned/view type lattice used for move checking.
type Kind int

const (
	KindUnknown Kind = iota
	KindI32
	KindU32
	KindI64
	KindF64
	KindBool
	KindBytes     // owned
	KindBytesView // view, borrows from an owned bytes
	KindVecU8     // owned
	KindOption
	KindResult
)

// Type is a (possibly generic) type: a Kind plus type arguments for
// result<T,E>/option<T>.
type Type struct {
	Kind Kind
	Args []Type
}

func (t Type) Owned() bool {
	switch t.Kind {
	case KindBytes, KindVecU8:
		return true
	default:
		return false
	}
}

func (t Type) View() bool { return t.Kind == KindBytesView }

func (t Type) String() string {
	switch t.Kind {
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindF64:
		return "f64"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindBytesView:
		return "bytes_view"
	case KindVecU8:
		return "vec_u8"
	case KindOption:
		return fmt.Sprintf("option<%s>", joinTypes(t.Args))
	case KindResult:
		return fmt.Sprintf("result<%s>", joinTypes(t.Args))
	default:
		return "unknown"
	}
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// binding tracks a single local's ownership state.
type binding struct {
	typ   Type
	moved bool
	// movedAtPtr names the JSON Pointer of the move site, for P6's
	// "names the moving site by JSON Pointer" requirement.
	movedAtPtr string
	declPtr    string
}

// scope is one lexical `begin`/`let` nesting level.
type scope struct {
	parent   *scope
	bindings map[string]*binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, bindings: map[string]*binding{}}
}

func (s *scope) lookup(name string) (*binding, *scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.bindings[name]; ok {
			return b, cur
		}
	}
	return nil, nil
}

func (s *scope) define(name string, b *binding) { s.bindings[name] = b }

// checker walks one declaration body / the solve expression, tracking
// ownership moves and producing diagnostics.
type checker struct {
	diags []lint.Diagnostic
}

// Check typechecks every declaration and the solve expression (if
// present), returning every type/ownership diagnostic found. Errors here
// are never auto-repaired except through lint-provided patches (spec §7):
// Check itself never mutates the document.
func Check(doc *x07ast.Document) []lint.Diagnostic {
	c := &checker{}
	for _, d := range doc.Decls {
		if d.Body == nil {
			continue
		}
		root := newScope(nil)
		for _, p := range d.Params {
			root.define(p.Name, &binding{typ: typeFromName(p.Type), declPtr: d.Ptr})
		}
		c.checkExpr(d.Body, root)
	}
	if doc.Solve != nil {
		c.checkExpr(doc.Solve, newScope(nil))
	}
	return c.diags
}

func typeFromName(name string) Type {
	switch name {
	case "i32":
		return Type{Kind: KindI32}
	case "u32":
		return Type{Kind: KindU32}
	case "i64":
		return Type{Kind: KindI64}
	case "f64":
		return Type{Kind: KindF64}
	case "bool":
		return Type{Kind: KindBool}
	case "bytes":
		return Type{Kind: KindBytes}
	case "bytes_view":
		return Type{Kind: KindBytesView}
	case "vec_u8":
		return Type{Kind: KindVecU8}
	default:
		return Type{Kind: KindUnknown}
	}
}

// checkExpr recurses through e, tracking moves in s. It returns the
// expression's inferred type for callers (e.g. bytes.lit returns
// KindBytes) where known, KindUnknown otherwise.
func (c *checker) checkExpr(e *x07ast.Expr, s *scope) Type {
	if e == nil {
		return Type{Kind: KindUnknown}
	}
	if e.IsAtom {
		if name, ok := e.AtomString(); ok && isIdentifierLike(name) {
			if b, _ := s.lookup(name); b != nil {
				if b.moved {
					c.diags = append(c.diags, lint.Diagnostic{
						Code:     "X07-MOVE-0001",
						Severity: lint.SeverityError,
						Loc:      lint.Loc{Kind: "x07ast", Ptr: e.Ptr},
						Message:  fmt.Sprintf("use of %q after move (moved at %s)", name, b.movedAtPtr),
						Data:     map[string]any{"name": name, "moved_at": b.movedAtPtr},
					})
				}
				return b.typ
			}
		}
		return Type{Kind: KindUnknown}
	}

	switch e.Head {
	case "begin":
		inner := newScope(s)
		var last Type
		for _, stmt := range e.Args {
			last = c.checkExpr(stmt, inner)
		}
		return last

	case "let":
		if len(e.Args) != 2 {
			return Type{Kind: KindUnknown}
		}
		name, _ := e.Args[0].AtomString()
		valType := c.checkExpr(e.Args[1], s)
		if name != "" {
			// A `let` of an owned binding moves the source identifier, if
			// the RHS was itself a bare identifier reference.
			if valType.Owned() {
				if rhsName, ok := e.Args[1].AtomString(); ok {
					if b, owner := s.lookup(rhsName); b != nil {
						b.moved = true
						b.movedAtPtr = e.Ptr
						_ = owner
					}
				}
			}
			s.define(name, &binding{typ: valType, declPtr: e.Ptr})
		}
		return Type{Kind: KindI32}

	case "set", "set0":
		for _, a := range e.Args {
			c.checkExpr(a, s)
		}
		return Type{Kind: KindI32}

	case "if":
		for _, a := range e.Args {
			c.checkExpr(a, s)
		}
		return Type{Kind: KindUnknown}

	case "for":
		inner := newScope(s)
		for _, a := range e.Args {
			c.checkExpr(a, inner)
		}
		return Type{Kind: KindI32}

	case "bytes.lit", "bytes.view_lit":
		return Type{Kind: KindBytes}

	case "bytes.view":
		for _, a := range e.Args {
			c.checkExpr(a, s)
		}
		return Type{Kind: KindBytesView}

	case "view.slice":
		for _, a := range e.Args {
			c.checkExpr(a, s)
		}
		return Type{Kind: KindBytesView}

	case "return":
		for _, a := range e.Args {
			c.checkExpr(a, s)
		}
		return Type{Kind: KindUnknown}

	default:
		for _, a := range e.Args {
			c.checkExpr(a, s)
		}
		return Type{Kind: KindUnknown}
	}
}

func isIdentifierLike(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// MonomorphKey computes the deterministic monomorphization key for a
// generic intrinsic reference: head + canonicalized type args. The map
// from key to a concrete lowering is stable across runs because the key
// itself is a pure function of (head, type args) — never of map iteration
// order or instantiation order (design note: "Deterministic collections").
func MonomorphKey(head string, args []Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return head + "[" + strings.Join(parts, ",") + "]"
}
