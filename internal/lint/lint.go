// Package lint implements the x07AST static rule set (spec §4.C4): a fixed
// ordered battery of rules, each able to emit a Diagnostic with an
// optional RFC 6902 quickfix patch. This mirrors the teacher's
// graph-validation package (every rule is a `lint<Name>(g) []Diagnostic`
// function appended in a fixed order by a single Validate entry point),
// generalized from a DOT pipeline graph to an x07AST program.
package lint

import (
	"sort"

	"github.com/x07dev/x07/internal/fmtpatch"
	"github.com/x07dev/x07/internal/world"
	"github.com/x07dev/x07/internal/x07ast"
)

// Severity is a diagnostic's severity tier.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

var severityRank = map[Severity]int{SeverityError: 2, SeverityWarning: 1, SeverityInfo: 0}

// Loc addresses a diagnostic at a single x07AST node.
type Loc struct {
	Kind string `json:"kind"` // always "x07ast"
	Ptr  string `json:"pointer"`
}

// Diagnostic is a single lint/type/capability finding (spec §3 Entities
// table: "Diagnostic").
type Diagnostic struct {
	Code     string                 `json:"code"`
	Severity Severity               `json:"severity"`
	Loc      Loc                    `json:"loc"`
	Message  string                 `json:"message"`
	Data     map[string]any         `json:"data,omitempty"`
	Quickfix *fmtpatch.QuickfixPatch `json:"quickfix,omitempty"`

	// nodeFrom/nodeTo back the stable ordering key (I2); they default to
	// Loc.Ptr when a rule has nothing more specific to offer.
	nodeFrom, nodeTo string
	modulePath       string
}

// Rule is one named lint check. Rules run in the fixed order Rules() lists
// them; new rules are only ever appended, never reordered, so that P2
// (diagnostic order stable) holds across versions within a schema tag.
type Rule func(doc *x07ast.Document) []Diagnostic

// Rules returns the fixed, ordered battery of built-in lint rules.
func Rules() []Rule {
	return []Rule{
		ruleArityFor,
		ruleBorrowViewOfNonIdentifier,
		ruleBorrowViewEscapesBlock,
		ruleBoolShortCircuit,
		ruleTypeIfMismatch,
		ruleReservedNamespace,
	}
}

// Lint runs every built-in rule (plus a world-gating pass when world is
// non-empty) against doc and returns diagnostics in the stable order
// defined by I2: (severity desc, code, node_from, node_to, module_path,
// pointer).
func Lint(doc *x07ast.Document, w world.ID) []Diagnostic {
	var out []Diagnostic
	if w != "" {
		out = append(out, ruleWorldGating(doc, w)...)
	}
	for _, rule := range Rules() {
		out = append(out, rule(doc)...)
	}
	for i := range out {
		if out[i].modulePath == "" {
			out[i].modulePath = doc.ModuleID
		}
		if out[i].nodeFrom == "" {
			out[i].nodeFrom = out[i].Loc.Ptr
		}
		if out[i].nodeTo == "" {
			out[i].nodeTo = out[i].Loc.Ptr
		}
	}
	sortDiagnostics(out)
	return out
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] > severityRank[b.Severity]
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.nodeFrom != b.nodeFrom {
			return a.nodeFrom < b.nodeFrom
		}
		if a.nodeTo != b.nodeTo {
			return a.nodeTo < b.nodeTo
		}
		if a.modulePath != b.modulePath {
			return a.modulePath < b.modulePath
		}
		return a.Loc.Ptr < b.Loc.Ptr
	})
}

// HasQuickfixableErrors reports whether any error-severity diagnostic
// carries a quickfix; used by the repair loop to decide whether another
// iteration can make progress.
func HasQuickfixableErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError && d.Quickfix != nil {
			return true
		}
	}
	return false
}

// HasErrors reports whether any diagnostic is error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
