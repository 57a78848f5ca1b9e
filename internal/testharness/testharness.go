// Package testharness executes a deterministic test manifest (spec
// §4.C12): tests/tests.json entries run one at a time against the host
// or OS runner, producing an x07.x07test@0.3.0 report with counts and
// per-test status. Progress goes to stderr only; the machine report is
// the only thing ever written to stdout.
package testharness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/x07dev/x07/internal/hostrunner"
	"github.com/x07dev/x07/internal/osrunner"
	"github.com/x07dev/x07/internal/world"
)

const reportSchema = "x07.x07test@0.3.0"

// ManifestEntry is one `tests/tests.json` test case.
type ManifestEntry struct {
	ID        string   `json:"id"`
	World     world.ID `json:"world"`
	Entry     string   `json:"entry"`
	Expect    Expect   `json:"expect"`
	SolveFuel uint64   `json:"solve_fuel,omitempty"`
	Input     string   `json:"input,omitempty"` // base64, matches hostrunner stdin framing
}

// Expect names the pass condition for one entry.
type Expect struct {
	ExitStatus *int    `json:"exit_status,omitempty"`
	OutputB64  *string `json:"output_b64,omitempty"`
}

// Manifest is the decoded tests/tests.json document.
type Manifest struct {
	Tests []ManifestEntry `json:"tests"`
}

// ParseManifest decodes a tests/tests.json document.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("testharness: parse manifest: %w", err)
	}
	return &m, nil
}

// Filter selects manifest entries by substring or exact id match (spec
// §4.C12 "--filter SUBSTR[--exact]").
type Filter struct {
	Substr string
	Exact  bool
}

func (f Filter) matches(id string) bool {
	if f.Substr == "" {
		return true
	}
	if f.Exact {
		return id == f.Substr
	}
	return strings.Contains(id, f.Substr)
}

// Status is one test's outcome.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusTrap Status = "trap"
)

// Diagnostic mirrors the X07T_RUN_TRAP diagnostic shape (spec §4.C12).
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TestResult is one executed entry's report row.
type TestResult struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Report is the `x07.x07test@0.3.0` document.
type Report struct {
	SchemaVersion string       `json:"schema_version"`
	Counts        Counts       `json:"counts"`
	Tests         []TestResult `json:"tests"`
}

type Counts struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Trap  int `json:"trap"`
}

// Resolver supplies each manifest entry's binary path and, for OS-world
// entries, its policy; the harness itself never resolves project layout.
type Resolver interface {
	BinaryPath(entry ManifestEntry) (string, error)
	Policy(entry ManifestEntry) (*osrunner.Policy, error)
}

// Options configures one Run invocation.
type Options struct {
	Filter     Filter
	AllowEmpty bool
	Verbose    bool
}

// EmptySelectionError is returned when a filter matches nothing and
// AllowEmpty is false (spec §4.C12 "--allow-empty").
type EmptySelectionError struct{ Filter Filter }

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("testharness: filter %q matched no tests (use --allow-empty to permit this)", e.Filter.Substr)
}

// Run executes every manifest entry matching opts.Filter, writing
// progress lines to stderr (only when opts.Verbose) and returning the
// final report for the caller to marshal to stdout (spec §4.C12:
// "progress on stderr only, machine report on stdout").
func Run(ctx context.Context, manifest *Manifest, resolver Resolver, opts Options, stderr io.Writer) (*Report, error) {
	var selected []ManifestEntry
	for _, e := range manifest.Tests {
		if opts.Filter.matches(e.ID) {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 && !opts.AllowEmpty {
		return nil, &EmptySelectionError{Filter: opts.Filter}
	}

	report := &Report{SchemaVersion: reportSchema}
	for _, entry := range selected {
		if opts.Verbose {
			fmt.Fprintf(stderr, "running %s (world=%s)\n", entry.ID, entry.World)
		}
		result := runOne(ctx, entry, resolver)
		report.Tests = append(report.Tests, result)
		report.Counts.Total++
		switch result.Status {
		case StatusPass:
			report.Counts.Pass++
		case StatusFail:
			report.Counts.Fail++
		case StatusTrap:
			report.Counts.Trap++
		}
		if opts.Verbose {
			fmt.Fprintf(stderr, "  %s: %s\n", entry.ID, result.Status)
		}
	}
	return report, nil
}

func runOne(ctx context.Context, entry ManifestEntry, resolver Resolver) TestResult {
	binPath, err := resolver.BinaryPath(entry)
	if err != nil {
		return TestResult{ID: entry.ID, Status: StatusFail, Diagnostics: []Diagnostic{{Code: "X07T_RESOLVE_ERROR", Message: err.Error()}}}
	}

	var hrReport *hostrunner.Report
	if entry.World == world.RunOS || entry.World == world.RunOSSandboxed {
		policy, perr := resolver.Policy(entry)
		if perr != nil {
			return TestResult{ID: entry.ID, Status: StatusFail, Diagnostics: []Diagnostic{{Code: "X07T_POLICY_ERROR", Message: perr.Error()}}}
		}
		hrReport, err = osrunner.Run(ctx, osrunner.Request{World: entry.World, BinaryPath: binPath, Policy: policy})
	} else {
		hrReport, err = hostrunner.Run(ctx, hostrunner.Request{BinaryPath: binPath})
	}
	if err != nil {
		return TestResult{ID: entry.ID, Status: StatusFail, Diagnostics: []Diagnostic{{Code: "X07T_RUN_ERROR", Message: err.Error()}}}
	}

	if hrReport.Solve.Trap != nil {
		return TestResult{
			ID:     entry.ID,
			Status: StatusTrap,
			Diagnostics: []Diagnostic{{
				Code:    "X07T_RUN_TRAP",
				Message: fmt.Sprintf("trap %d: %s", hrReport.Solve.Trap.Code, hrReport.Solve.Trap.Name),
			}},
		}
	}

	if !matchesExpect(entry.Expect, hrReport) {
		return TestResult{ID: entry.ID, Status: StatusFail}
	}
	return TestResult{ID: entry.ID, Status: StatusPass}
}

func matchesExpect(expect Expect, report *hostrunner.Report) bool {
	if expect.ExitStatus != nil && *expect.ExitStatus != report.Solve.ExitStatus {
		return false
	}
	if expect.OutputB64 != nil && *expect.OutputB64 != report.Solve.SolveOutputB64 {
		return false
	}
	return true
}
