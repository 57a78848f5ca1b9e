// Package agentdriver implements `x07 run`/`x07 build` (spec §4.C13): it
// resolves a project profile to a world (and, for OS worlds, a policy),
// runs the compiler driver's repair loop plus the host or OS runner, and
// wraps the result in the single canonical report agents consume,
// `x07.run.report@0.1.0`.
package agentdriver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/x07dev/x07/internal/ccshim"
	"github.com/x07dev/x07/internal/driver"
	"github.com/x07dev/x07/internal/hostrunner"
	"github.com/x07dev/x07/internal/osrunner"
	"github.com/x07dev/x07/internal/project"
	"github.com/x07dev/x07/internal/world"
)

const reportSchema = "x07.run.report@0.1.0"

// RunnerKind names which runner executed the artifact.
type RunnerKind string

const (
	RunnerHost RunnerKind = "host"
	RunnerOS   RunnerKind = "os"
)

// Target describes the resolved project inputs (spec §4.C13 wrapped
// report "target:{resolved_module_roots}").
type Target struct {
	ResolvedModuleRoots []string `json:"resolved_module_roots"`
}

// RepairSummary is the wrapped report's `repair:{mode,last_lint_ok}`
// field. `Mode` resolves Open Question (a): "memory" when
// Request.RepairTraceDir is empty (the normal case — repair operates
// purely on the in-memory tree), "write" when it is set and the final
// repaired document was written there as repaired.x07ast.json.
type RepairSummary struct {
	Mode        string `json:"mode"`
	LastLintOK  bool   `json:"last_lint_ok"`
	Iterations  int    `json:"iterations"`
}

// WrappedReport is `x07.run.report@0.1.0`.
type WrappedReport struct {
	SchemaVersion string          `json:"schema_version"`
	RunID         string          `json:"run_id"`
	Runner        RunnerKind      `json:"runner"`
	World         world.ID        `json:"world"`
	Target        Target          `json:"target"`
	Repair        RepairSummary   `json:"repair"`
	Report        any             `json:"report"`
}

// Request is one `x07 run`/`x07 build` invocation.
type Request struct {
	Manifest      *project.Manifest
	Profile       string
	WorkspaceRoot string
	SourceBytes   []byte
	Argv          []string
	Stdin         []byte
	DepsDir       string
	OutDir        string
	RepairTraceDir string // non-empty selects RepairSummary.Mode == "write"
	WallDeadline  time.Duration
}

// ProfileError reports an unresolvable or missing profile.
type ProfileError struct{ Profile string }

func (e *ProfileError) Error() string { return fmt.Sprintf("agentdriver: unknown profile %q", e.Profile) }

// ResolveProfile picks the named profile, or the manifest's default when
// name is empty, falling back to a bare profile carrying just the
// manifest's own world when the manifest declares no profiles at all.
// Exported so callers that only need the resolved world/policy — such as
// `x07 bundle` — don't have to duplicate this fallback chain.
func ResolveProfile(m *project.Manifest, name string) (project.Profile, error) {
	if name == "" {
		name = m.DefaultProfile
	}
	if name == "" {
		return project.Profile{World: m.World}, nil
	}
	p, ok := m.Profiles[name]
	if !ok {
		return project.Profile{}, &ProfileError{Profile: name}
	}
	return p, nil
}

// Run executes the full pipeline: resolve profile, compile+repair,
// execute via the matching runner, and wrap the result.
func Run(ctx context.Context, req Request) (*WrappedReport, error) {
	profile, err := ResolveProfile(req.Manifest, req.Profile)
	if err != nil {
		return nil, err
	}

	roots, err := project.ResolveModuleRoots(req.Manifest, req.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	ctxDriver := driver.NewToolCtx(profile.World)
	compiled, err := driver.Compile(ctxDriver, req.SourceBytes)
	if err != nil {
		return nil, fmt.Errorf("agentdriver: compile: %w", err)
	}

	mode := "memory"
	if req.RepairTraceDir != "" {
		mode = "write"
		if err := writeRepairTrace(req.RepairTraceDir, compiled); err != nil {
			return nil, err
		}
	}

	build, err := ccshim.Build(ctx, compiled.CSource, ccshim.Options{
		DepsDir:  req.DepsDir,
		OutDir:   req.OutDir,
		Requires: compiled.Requires,
	})
	if err != nil {
		return nil, fmt.Errorf("agentdriver: build: %w", err)
	}

	var runnerKind RunnerKind
	var reportBody any

	switch profile.World {
	case world.RunOS, world.RunOSSandboxed:
		runnerKind = RunnerOS
		var policy *osrunner.Policy
		if profile.PolicyPath != "" {
			raw, rerr := os.ReadFile(profile.PolicyPath)
			if rerr != nil {
				return nil, fmt.Errorf("agentdriver: read policy: %w", rerr)
			}
			policy, rerr = osrunner.ParsePolicy(raw)
			if rerr != nil {
				return nil, rerr
			}
		}
		hr, rerr := osrunner.Run(ctx, osrunner.Request{
			World:        profile.World,
			BinaryPath:   build.BinaryPath,
			Argv:         req.Argv,
			Stdin:        req.Stdin,
			Policy:       policy,
			WallDeadline: req.WallDeadline,
		})
		if rerr != nil {
			return nil, rerr
		}
		reportBody = hr
	default:
		runnerKind = RunnerHost
		hr, rerr := hostrunner.Run(ctx, hostrunner.Request{
			BinaryPath:   build.BinaryPath,
			Argv:         req.Argv,
			Stdin:        req.Stdin,
			WallDeadline: req.WallDeadline,
		})
		if rerr != nil {
			return nil, rerr
		}
		reportBody = hr
	}

	return &WrappedReport{
		SchemaVersion: reportSchema,
		RunID:         ulid.Make().String(),
		Runner:        runnerKind,
		World:         profile.World,
		Target:        Target{ResolvedModuleRoots: roots},
		Repair: RepairSummary{
			Mode:       mode,
			LastLintOK: compiled.Repair.LastLintOK,
			Iterations: compiled.Repair.Iterations,
		},
		Report: reportBody,
	}, nil
}

func writeRepairTrace(dir string, compiled *driver.CompileResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("agentdriver: repair trace dir: %w", err)
	}
	raw, err := compiled.Document.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("agentdriver: marshal repair trace: %w", err)
	}
	path := dir + "/repaired.x07ast.json"
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("agentdriver: write repair trace: %w", err)
	}
	return nil
}
