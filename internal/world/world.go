// Package world implements the capability/world model (spec §4.C6): each
// world exposes a fixed capability set, and compilation rejects any use of
// a builtin or feature outside the worlds that grant it. Enforcement runs
// after elaboration (generic expansion), so a generic instantiation can
// never smuggle a disallowed head past the gate (P4).
package world

import (
	"fmt"
	"sort"

	"github.com/x07dev/x07/internal/x07ast"
)

// ID names one of the seven registered worlds.
type ID string

const (
	SolvePure         ID = "solve-pure"
	SolveFS           ID = "solve-fs"
	SolveRR           ID = "solve-rr"
	SolveKV           ID = "solve-kv"
	SolveFull         ID = "solve-full"
	RunOS             ID = "run-os"
	RunOSSandboxed    ID = "run-os-sandboxed"
)

// Capability is a single gated feature class.
type Capability string

const (
	CapOSProc    Capability = "os.proc"
	CapOSFS      Capability = "os.fs"
	CapOSNet     Capability = "os.net"
	CapOSThreads Capability = "os.threads"
	CapUnsafe    Capability = "unsafe"
	CapExternC   Capability = "extern_c"
	CapFixtureFS Capability = "fixture.fs"
	CapFixtureRR Capability = "fixture.rr"
	CapFixtureKV Capability = "fixture.kv"
)

// capsByWorld is the registry of world -> granted capability set. Every
// builtin belongs to one or more capability classes (I3); this table is
// the single source of truth for which worlds grant which classes.
var capsByWorld = map[ID]map[Capability]bool{
	SolvePure: {},
	SolveFS:   {CapFixtureFS: true},
	SolveRR:   {CapFixtureRR: true},
	SolveKV:   {CapFixtureKV: true},
	SolveFull: {CapFixtureFS: true, CapFixtureRR: true, CapFixtureKV: true},
	RunOS: {
		CapOSProc: true, CapOSFS: true, CapOSNet: true, CapOSThreads: true,
		CapUnsafe: true, CapExternC: true,
	},
	// run-os-sandboxed grants the same world-level capability set as
	// run-os; the policy layer (internal/osrunner) restricts it further
	// at request time. The world gate and the policy gate are
	// deliberately two different layers (spec §4.C11).
	RunOSSandboxed: {
		CapOSProc: true, CapOSFS: true, CapOSNet: true, CapOSThreads: true,
		CapUnsafe: true, CapExternC: true,
	},
}

// Known reports whether id names a registered world.
func Known(id ID) bool {
	_, ok := capsByWorld[id]
	return ok
}

// Names returns every registered world id, sorted, for --help output and
// error messages.
func Names() []string {
	out := make([]string, 0, len(capsByWorld))
	for id := range capsByWorld {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}

// Grants reports whether world id grants capability c.
func Grants(id ID, c Capability) bool {
	caps, ok := capsByWorld[id]
	if !ok {
		return false
	}
	return caps[c]
}

// builtinCapability maps a builtin head (or import prefix) to the
// capability class it requires. Heads not listed here require no
// capability (pure computation).
var builtinCapability = map[string]Capability{
	"os.proc.spawn":       CapOSProc,
	"os.proc.exec":        CapOSProc,
	"os.fs.read":          CapOSFS,
	"os.fs.write":         CapOSFS,
	"os.fs.open":          CapOSFS,
	"os.net.connect":      CapOSNet,
	"os.net.listen":       CapOSNet,
	"os.threads.spawn":    CapOSThreads,
	"os.threads.blocking": CapOSThreads,
	"unsafe":              CapUnsafe,
	"extern_c":            CapExternC,
	"fixture.fs.read":     CapFixtureFS,
	"fixture.rr.replay":   CapFixtureRR,
	"fixture.kv.get":      CapFixtureKV,
}

var importCapability = map[string]Capability{
	"std.os.proc":    CapOSProc,
	"std.os.fs":      CapOSFS,
	"std.os.net":     CapOSNet,
	"std.os.threads": CapOSThreads,
}

// Violation describes a single capability/world containment failure.
type Violation struct {
	Capability Capability
	Head       string // builtin head, or "" for an import violation
	Import     string // import path, or "" for a builtin violation
	Ptr        string
}

func (v *Violation) Message() string {
	if v.Import != "" {
		return fmt.Sprintf("import %q requires capability %q, not granted by this world", v.Import, v.Capability)
	}
	return fmt.Sprintf("builtin %q requires capability %q, not granted by this world", v.Head, v.Capability)
}

// Enforce walks every import and every expression in the document and
// returns every capability violation found. It must run after elaboration
// so that a generic expansion introducing a disallowed head is still
// caught (P4).
func Enforce(doc *x07ast.Document, id ID) []Violation {
	var out []Violation
	for _, imp := range doc.Imports {
		cap, needed := importCapability[imp]
		if !needed {
			continue
		}
		if !Grants(id, cap) {
			out = append(out, Violation{Capability: cap, Import: imp})
		}
	}
	walkDoc(doc, func(e *x07ast.Expr) {
		if e.IsAtom {
			return
		}
		cap, needed := builtinCapability[e.Head]
		if !needed {
			return
		}
		if !Grants(id, cap) {
			out = append(out, Violation{Capability: cap, Head: e.Head, Ptr: e.Ptr})
		}
	})
	return out
}

func walkDoc(doc *x07ast.Document, fn func(*x07ast.Expr)) {
	for _, d := range doc.Decls {
		if d.Body != nil {
			d.Body.Walk(func(e *x07ast.Expr) bool { fn(e); return true })
		}
	}
	if doc.Solve != nil {
		doc.Solve.Walk(func(e *x07ast.Expr) bool { fn(e); return true })
	}
}
