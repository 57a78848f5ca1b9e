// Package ccshim invokes the host C compiler over a closed, explicit
// argument set (spec §4.C9): it never shells out to a user string, stages
// the pinned static library from deps/x07/, and names output artifacts
// deterministically from the source's own content hash rather than from
// wall-clock time (spec invariant I1, extended to build artifacts).
//
// Grounded on the teacher's os/exec-wrapping conventions in
// internal/attractor/engine/setup_commands.go and
// rust_sandbox_preflight.go: explicit argv (never "sh -c" with untrusted
// content), captured stdout/stderr, explicit context-bounded Wait.
package ccshim

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/x07dev/x07/internal/abi"
	"github.com/zeebo/blake3"
)

// DefaultCC is the compiler invoked when X07_CC is unset.
const DefaultCC = "cc"

// Options configures one compiler invocation.
type Options struct {
	// CC overrides the compiler binary; empty means read X07_CC, falling
	// back to DefaultCC.
	CC string
	// DepsDir holds the pinned static libraries and headers staged under
	// deps/x07/ for each Requires entry.
	DepsDir string
	// OutDir is where the staged C source and the output binary are
	// written; names are derived from the source content hash.
	OutDir string
	Requires []abi.Requires
	Timeout  time.Duration
}

// Result is one successful build.
type Result struct {
	BinaryPath string
	Stdout     string
	Stderr     string
	Argv       []string
}

// BuildError wraps a failed invocation with the exact argv and captured
// output (spec §7: never a bare exec error, always argv + stdio attached).
type BuildError struct {
	Argv   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("ccshim: %s: %v\nstderr:\n%s", joinArgv(e.Argv), e.Err, e.Stderr)
}
func (e *BuildError) Unwrap() error { return e.Err }

func joinArgv(argv []string) string {
	var b bytes.Buffer
	for i, a := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a)
	}
	return b.String()
}

func resolveCC(opts Options) string {
	if opts.CC != "" {
		return opts.CC
	}
	if env := os.Getenv("X07_CC"); env != "" {
		return env
	}
	return DefaultCC
}

// contentName derives a deterministic artifact basename from the source
// text, so two builds of the same translation unit always write to the
// same path (and distinct sources never collide).
func contentName(source string) string {
	h := blake3.Sum256([]byte(source))
	return hex.EncodeToString(h[:16])
}

// Build compiles source (a single C translation unit produced by
// internal/cbackend) into a native binary, linking the pinned static
// libraries named by opts.Requires.
func Build(ctx context.Context, source string, opts Options) (*Result, error) {
	if opts.OutDir == "" {
		return nil, errors.New("ccshim: OutDir is required")
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("ccshim: mkdir OutDir: %w", err)
	}

	name := contentName(source)
	srcPath := filepath.Join(opts.OutDir, name+".c")
	binPath := filepath.Join(opts.OutDir, name)
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("ccshim: write source: %w", err)
	}

	argv := []string{"-std=c11", "-O2", "-Wall", "-o", binPath, srcPath}
	for _, req := range opts.Requires {
		libDir := filepath.Join(opts.DepsDir, req.BackendID)
		argv = append(argv, "-I"+libDir, "-L"+libDir, "-l"+req.BackendID)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cc := resolveCC(opts)
	cmd := exec.CommandContext(cctx, cc, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	fullArgv := append([]string{cc}, argv...)
	if err := cmd.Run(); err != nil {
		return nil, &BuildError{Argv: fullArgv, Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
	}

	return &Result{
		BinaryPath: binPath,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Argv:       fullArgv,
	}, nil
}
