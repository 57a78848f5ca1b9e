// Package x07ast is the in-memory representation of an x07AST program: the
// module/entry document, its declarations, and its S-expression bodies. It
// provides deterministic JSON marshaling (document order preserved, never
// resorted on the way back out) and JSON Pointer addressed access for
// diagnostics and patches.
package x07ast

import (
	"fmt"

	"github.com/x07dev/x07/internal/jcs"
)

// Kind distinguishes an executable entry document from a library module.
type Kind string

const (
	KindEntry  Kind = "entry"
	KindModule Kind = "module"
)

// Document is the top-level x07AST program document (spec §3).
type Document struct {
	SchemaVersion string   `json:"schema_version"`
	Kind          Kind     `json:"kind"`
	ModuleID      string   `json:"module_id"`
	Imports       []string `json:"imports"`
	Decls         []*Decl  `json:"decls"`
	Solve         *Expr    `json:"solve,omitempty"`
}

// Decl is a top-level declaration: def, defasync, or export.
type Decl struct {
	DeclKind string   `json:"decl_kind"` // "def" | "defasync" | "export"
	Name     string   `json:"name"`
	Params   []*Param `json:"params,omitempty"`
	Return   string   `json:"return,omitempty"`
	Body     *Expr    `json:"body,omitempty"`

	// Ptr is the JSON Pointer to this declaration within the document,
	// assigned during Parse; never serialized.
	Ptr string `json:"-"`
}

// Param is a single declaration parameter.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Parse decodes canonical JSON bytes into a Document, validating the pinned
// schema tag and assigning deterministic JSON Pointers to every decl and
// expression node along the way.
func Parse(data []byte) (*Document, error) {
	v, err := jcs.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := jcs.CheckSchema(v, jcs.SchemaX07AST); err != nil {
		return nil, err
	}
	obj, err := jcs.MustObject(v)
	if err != nil {
		return nil, err
	}
	doc := &Document{SchemaVersion: jcs.SchemaX07AST}
	if k, ok := obj["kind"].(string); ok {
		doc.Kind = Kind(k)
	}
	if m, ok := obj["module_id"].(string); ok {
		doc.ModuleID = m
	}
	doc.Imports = dedupImports(asStringSlice(obj["imports"]))

	declsRaw, _ := obj["decls"].([]any)
	for i, raw := range declsRaw {
		ptr := fmt.Sprintf("/decls/%d", i)
		d, err := parseDecl(raw, ptr)
		if err != nil {
			return nil, fmt.Errorf("x07ast: %s: %w", ptr, err)
		}
		doc.Decls = append(doc.Decls, d)
	}

	if solveRaw, ok := obj["solve"]; ok {
		e, err := ParseExpr(solveRaw, "/solve")
		if err != nil {
			return nil, fmt.Errorf("x07ast: /solve: %w", err)
		}
		doc.Solve = e
	}
	return doc, nil
}

func parseDecl(raw any, ptr string) (*Decl, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decl must be an object")
	}
	d := &Decl{Ptr: ptr}
	if k, ok := obj["decl_kind"].(string); ok {
		d.DeclKind = k
	}
	if n, ok := obj["name"].(string); ok {
		d.Name = n
	}
	if r, ok := obj["return"].(string); ok {
		d.Return = r
	}
	if paramsRaw, ok := obj["params"].([]any); ok {
		for _, pr := range paramsRaw {
			pobj, ok := pr.(map[string]any)
			if !ok {
				continue
			}
			p := &Param{}
			if n, ok := pobj["name"].(string); ok {
				p.Name = n
			}
			if t, ok := pobj["type"].(string); ok {
				p.Type = t
			}
			d.Params = append(d.Params, p)
		}
	}
	if bodyRaw, ok := obj["body"]; ok {
		e, err := ParseExpr(bodyRaw, ptr+"/body")
		if err != nil {
			return nil, err
		}
		d.Body = e
	}
	return d, nil
}

func dedupImports(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MarshalCanonical renders the document to its canonical JSON bytes. The
// fields are gathered into a map and jcs.Canonicalize writes its keys in
// sorted order, while decl and expression order is kept, so two
// semantically equal documents always serialize byte-identically (I1).
func (d *Document) MarshalCanonical() ([]byte, error) {
	obj := map[string]any{
		"schema_version": d.SchemaVersion,
		"kind":           string(d.Kind),
		"module_id":      d.ModuleID,
		"imports":        d.Imports,
	}
	decls := make([]any, 0, len(d.Decls))
	for _, decl := range d.Decls {
		decls = append(decls, decl.toAny())
	}
	obj["decls"] = decls
	if d.Solve != nil {
		obj["solve"] = d.Solve.toAny()
	}
	if d.Imports == nil {
		obj["imports"] = []any{}
	}
	return jcs.Canonicalize(obj)
}

func (d *Decl) toAny() any {
	obj := map[string]any{
		"decl_kind": d.DeclKind,
		"name":      d.Name,
	}
	if d.Return != "" {
		obj["return"] = d.Return
	}
	if len(d.Params) > 0 {
		params := make([]any, 0, len(d.Params))
		for _, p := range d.Params {
			params = append(params, map[string]any{"name": p.Name, "type": p.Type})
		}
		obj["params"] = params
	}
	if d.Body != nil {
		obj["body"] = d.Body.toAny()
	}
	return obj
}
