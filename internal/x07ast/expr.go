package x07ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a JSON-embedded S-expression node: either an atom (string,
// integer, or boolean) or a list [head, ...args] where head names a
// builtin, operator, or user-declared symbol.
type Expr struct {
	// IsAtom is true for a bare literal; Head/Args are unused then.
	IsAtom bool
	Atom   any // string | int64 | float64 | bool | nil

	Head string
	Args []*Expr

	// Ptr is this node's JSON Pointer within the owning document.
	Ptr string
}

// ParseExpr decodes a raw decoded-JSON value into an Expr tree, assigning
// JSON Pointers as it descends so later diagnostics can address the exact
// offending node.
func ParseExpr(raw any, ptr string) (*Expr, error) {
	switch v := raw.(type) {
	case string:
		return &Expr{IsAtom: true, Atom: v, Ptr: ptr}, nil
	case bool:
		return &Expr{IsAtom: true, Atom: v, Ptr: ptr}, nil
	case nil:
		return &Expr{IsAtom: true, Atom: nil, Ptr: ptr}, nil
	case int64:
		return &Expr{IsAtom: true, Atom: v, Ptr: ptr}, nil
	case float64:
		// Decoded without UseNumber (e.g. from a patch Value); treat
		// whole floats as i32/i64 literals.
		if i := int64(v); float64(i) == v {
			return &Expr{IsAtom: true, Atom: i, Ptr: ptr}, nil
		}
		return &Expr{IsAtom: true, Atom: v, Ptr: ptr}, nil
	case interface{ String() string }: // json.Number
		n := v.String()
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return &Expr{IsAtom: true, Atom: i, Ptr: ptr}, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric literal %q at %s", n, ptr)
		}
		return &Expr{IsAtom: true, Atom: f, Ptr: ptr}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty expression list at %s", ptr)
		}
		head, ok := v[0].(string)
		if !ok {
			return nil, fmt.Errorf("expression head at %s/0 must be a string", ptr)
		}
		e := &Expr{Head: head, Ptr: ptr}
		for i, argRaw := range v[1:] {
			argPtr := fmt.Sprintf("%s/%d", ptr, i+1)
			arg, err := ParseExpr(argRaw, argPtr)
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported expression node %T at %s", raw, ptr)
	}
}

// ToRaw renders the Expr back to a plain JSON-able value (atoms pass
// through, lists become [head, ...args]); used by callers outside this
// package that need to embed an existing node as a patch Value.
func (e *Expr) ToRaw() any {
	return e.toAny()
}

// toAny renders the Expr back to a plain JSON-able value in canonical
// shape: atoms pass through, lists become [head, ...args].
func (e *Expr) toAny() any {
	if e == nil {
		return nil
	}
	if e.IsAtom {
		return e.Atom
	}
	out := make([]any, 0, len(e.Args)+1)
	out = append(out, e.Head)
	for _, a := range e.Args {
		out = append(out, a.toAny())
	}
	return out
}

// Walk calls fn for e and every descendant, depth-first, pre-order. This
// is the traversal the linter, typechecker, and capability enforcer all
// build on.
func (e *Expr) Walk(fn func(*Expr) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, a := range e.Args {
		a.Walk(fn)
	}
}

// AtomString returns the atom's string value, or "" with ok=false when e
// is not a string atom.
func (e *Expr) AtomString() (string, bool) {
	if e == nil || !e.IsAtom {
		return "", false
	}
	s, ok := e.Atom.(string)
	return s, ok
}

// String renders an Expr the way it would read in the textual grammar,
// used for diagnostic messages.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.IsAtom {
		switch v := e.Atom.(type) {
		case string:
			return strconv.Quote(v)
		default:
			return fmt.Sprint(v)
		}
	}
	parts := make([]string, 0, len(e.Args)+1)
	parts = append(parts, e.Head)
	for _, a := range e.Args {
		parts = append(parts, a.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
