package fmtpatch

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/x07dev/x07/internal/jcs"
	"github.com/x07dev/x07/internal/x07ast"
)

// Op is a single RFC 6902 patch operation.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value,omitempty"`
}

// ApplyOptions controls post-application validation.
type ApplyOptions struct {
	// Validate re-runs schema and x07AST structural parsing on the
	// post-state, catching a patch that produces a structurally invalid
	// document even though every individual op succeeded.
	Validate bool
}

// ApplyError names the operation index that failed.
type ApplyError struct {
	Index int
	Op    Op
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("fmtpatch: op %d (%s %s): %v", e.Index, e.Op.Op, e.Op.Path, e.Err)
}
func (e *ApplyError) Unwrap() error { return e.Err }

// Apply applies a sequence of RFC 6902 operations to a generic decoded-JSON
// tree and returns the resulting tree. Operations are applied in order;
// the first failure aborts and names its index.
func Apply(doc any, ops []Op, opts ApplyOptions) (any, error) {
	cur := doc
	for i, op := range ops {
		next, err := applyOne(cur, op)
		if err != nil {
			return nil, &ApplyError{Index: i, Op: op, Err: err}
		}
		cur = next
	}
	if opts.Validate {
		raw, err := jcs.Canonicalize(cur)
		if err != nil {
			return nil, fmt.Errorf("fmtpatch: validate: re-canonicalize: %w", err)
		}
		// x07ast.Parse checks the pinned schema tag before parsing.
		if _, err := x07ast.Parse(raw); err != nil {
			return nil, fmt.Errorf("fmtpatch: validate: %w", err)
		}
	}
	return cur, nil
}

func applyOne(doc any, op Op) (any, error) {
	switch op.Op {
	case "test":
		v, err := x07ast.Resolve(doc, x07ast.Pointer(op.Path))
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(v, op.Value) {
			return nil, fmt.Errorf("test failed: value at %s did not match", op.Path)
		}
		return doc, nil
	case "add":
		return setAt(doc, x07ast.Pointer(op.Path), op.Value, true)
	case "replace":
		return setAt(doc, x07ast.Pointer(op.Path), op.Value, false)
	case "remove":
		return removeAt(doc, x07ast.Pointer(op.Path))
	case "move":
		if op.From == "" {
			return nil, fmt.Errorf("move requires \"from\"")
		}
		v, err := x07ast.Resolve(doc, x07ast.Pointer(op.From))
		if err != nil {
			return nil, err
		}
		doc, err = removeAt(doc, x07ast.Pointer(op.From))
		if err != nil {
			return nil, err
		}
		return setAt(doc, x07ast.Pointer(op.Path), v, true)
	case "copy":
		if op.From == "" {
			return nil, fmt.Errorf("copy requires \"from\"")
		}
		v, err := x07ast.Resolve(doc, x07ast.Pointer(op.From))
		if err != nil {
			return nil, err
		}
		return setAt(doc, x07ast.Pointer(op.Path), deepCopy(v), true)
	default:
		return nil, fmt.Errorf("unknown op %q", op.Op)
	}
}

// setAt writes value at pointer p. When insert is true and the parent is
// an array, the value is inserted (add semantics); otherwise it replaces
// the existing element or object key.
func setAt(doc any, p x07ast.Pointer, value any, insert bool) (any, error) {
	tokens := p.Tokens()
	if len(tokens) == 0 {
		return value, nil
	}
	return setRecursive(doc, tokens, value, insert, string(p))
}

func setRecursive(node any, tokens []string, value any, insert bool, fullPath string) (any, error) {
	tok := tokens[0]
	last := len(tokens) == 1

	switch n := node.(type) {
	case map[string]any:
		if last {
			out := cloneMap(n)
			out[tok] = value
			return out, nil
		}
		child, ok := n[tok]
		if !ok {
			return nil, fmt.Errorf("no such key %q (path %s)", tok, fullPath)
		}
		newChild, err := setRecursive(child, tokens[1:], value, insert, fullPath)
		if err != nil {
			return nil, err
		}
		out := cloneMap(n)
		out[tok] = newChild
		return out, nil
	case []any:
		if last {
			if tok == "-" {
				out := cloneSlice(n)
				return append(out, value), nil
			}
			idx, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid array index %q", tok)
			}
			out := cloneSlice(n)
			if insert {
				if idx < 0 || idx > len(out) {
					return nil, fmt.Errorf("array index %d out of range [0,%d]", idx, len(out))
				}
				out = append(out[:idx:idx], append([]any{value}, out[idx:]...)...)
				return out, nil
			}
			if idx < 0 || idx >= len(out) {
				return nil, fmt.Errorf("array index %d out of range [0,%d)", idx, len(out))
			}
			out[idx] = value
			return out, nil
		}
		idx, err := strconv.Atoi(tok)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("invalid array index %q", tok)
		}
		newChild, err := setRecursive(n[idx], tokens[1:], value, insert, fullPath)
		if err != nil {
			return nil, err
		}
		out := cloneSlice(n)
		out[idx] = newChild
		return out, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q (path %s)", node, tok, fullPath)
	}
}

func removeAt(doc any, p x07ast.Pointer) (any, error) {
	tokens := p.Tokens()
	if len(tokens) == 0 {
		return nil, fmt.Errorf("cannot remove the document root")
	}
	return removeRecursive(doc, tokens, string(p))
}

func removeRecursive(node any, tokens []string, fullPath string) (any, error) {
	tok := tokens[0]
	last := len(tokens) == 1

	switch n := node.(type) {
	case map[string]any:
		if last {
			if _, ok := n[tok]; !ok {
				return nil, fmt.Errorf("no such key %q (path %s)", tok, fullPath)
			}
			out := cloneMap(n)
			delete(out, tok)
			return out, nil
		}
		child, ok := n[tok]
		if !ok {
			return nil, fmt.Errorf("no such key %q (path %s)", tok, fullPath)
		}
		newChild, err := removeRecursive(child, tokens[1:], fullPath)
		if err != nil {
			return nil, err
		}
		out := cloneMap(n)
		out[tok] = newChild
		return out, nil
	case []any:
		idx, err := strconv.Atoi(tok)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("invalid array index %q (path %s)", tok, fullPath)
		}
		if last {
			out := make([]any, 0, len(n)-1)
			out = append(out, n[:idx]...)
			out = append(out, n[idx+1:]...)
			return out, nil
		}
		newChild, err := removeRecursive(n[idx], tokens[1:], fullPath)
		if err != nil {
			return nil, err
		}
		out := cloneSlice(n)
		out[idx] = newChild
		return out, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q (path %s)", node, tok, fullPath)
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice(s []any) []any {
	out := make([]any, len(s))
	copy(out, s)
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}
