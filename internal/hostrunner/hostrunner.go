// Package hostrunner executes a compiled solve-* artifact deterministically
// (spec §4.C10): canonical argv_v1 framing on stdin, length-prefixed and
// capped stdout capture, line-capped stderr capture, trap decoding from
// stderr's last JSON line, and wall-deadline enforcement. Request carries
// FuelBudget and MemCapMB, but Run does not enforce either of them.
//
// Grounded on the teacher's ToolHandler subprocess pattern
// (internal/attractor/engine/handlers.go): context-bounded exec.Command,
// explicit argv, captured stdio, and a ulid-tagged invocation id for
// correlating runner output with driver/diagnostic state.
package hostrunner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/x07dev/x07/internal/abi"
)

const reportSchema = "x07-host-runner.report@0.3.0"

// maxStdoutBytes caps captured stdout; beyond this the capture is
// truncated and Report.Solve.Truncated is set (spec §4.C10 "capped").
const maxStdoutBytes = 4 * 1024 * 1024

// maxStderrLines caps captured stderr lines (spec §4.C10 "line-capped").
const maxStderrLines = 2048

// Request is one host-runner invocation.
type Request struct {
	BinaryPath string
	Argv       []string
	Stdin      []byte
	FuelBudget uint64
	MemCapMB   uint
	WallDeadline time.Duration
}

// CompileStatus and SolveStatus mirror the two-phase report shape (spec
// §4.C10: "compile{ok, exit_status, ...}", "solve{ok, exit_status, ...}").
// The host runner only ever performs the solve phase; compile is already
// done by the time a Request is built, so CompileStatus always reports ok
// unless BinaryPath could not be located (handled upstream by the driver).
type CompileStatus struct {
	OK         bool `json:"ok"`
	ExitStatus int  `json:"exit_status"`
}

type SolveStatus struct {
	OK             bool   `json:"ok"`
	ExitStatus     int    `json:"exit_status"`
	SolveOutputB64 string `json:"solve_output_b64"`
	Truncated      bool   `json:"truncated,omitempty"`
	Trap           *Trap  `json:"trap,omitempty"`
}

// Trap is the decoded last-stderr-JSON-line trap record.
type Trap struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
}

// Metrics carries whatever the artifact's own last-stderr-JSON-line metrics
// object reported (fuel consumed, peak memory, wall time), passed through
// verbatim alongside the decoded trap.
type Metrics map[string]any

// Report is the `x07-host-runner.report@0.3.0` document.
type Report struct {
	SchemaVersion string        `json:"schema_version"`
	InvocationID  string        `json:"invocation_id"`
	Compile       CompileStatus `json:"compile"`
	Solve         SolveStatus   `json:"solve"`
	Metrics       Metrics       `json:"metrics,omitempty"`
}

// encodeArgvV1 frames argv per spec §4.C10: u32 argc, then argc *
// {u32 len, bytes}, all little-endian (matching the emitted C ABI's
// integer width, spec §4.C7).
func encodeArgvV1(argv []string) []byte {
	var buf bytes.Buffer
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(argv)))
	buf.Write(n[:])
	for _, a := range argv {
		binary.LittleEndian.PutUint32(n[:], uint32(len(a)))
		buf.Write(n[:])
		buf.WriteString(a)
	}
	return buf.Bytes()
}

// Run spawns req.BinaryPath with canonical argv_v1 framing on stdin and
// returns the host-runner report. No ambient clock, RNG, or filesystem
// scan is consulted beyond the explicit wall deadline (spec §4.C10
// "Determinism").
func Run(ctx context.Context, req Request) (*Report, error) {
	deadline := req.WallDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.CommandContext(cctx, req.BinaryPath)
	framed := encodeArgvV1(req.Argv)
	stdinBuf := append(framed, req.Stdin...)
	cmd.Stdin = bytes.NewReader(stdinBuf)

	var stdout bytes.Buffer
	var stderrLines []string
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("hostrunner: stderr pipe: %w", err)
	}
	cmd.Stdout = &truncatingWriter{buf: &stdout, limit: maxStdoutBytes}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("hostrunner: start: %w", err)
	}

	scanner := bufio.NewScanner(stderrPipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(stderrLines) < maxStderrLines {
			stderrLines = append(stderrLines, scanner.Text())
		}
	}

	runErr := cmd.Wait()

	report := &Report{
		SchemaVersion: reportSchema,
		InvocationID:  ulid.Make().String(),
		Compile:       CompileStatus{OK: true, ExitStatus: 0},
	}

	exitStatus := 0
	ok := runErr == nil
	if exitErr, isExit := asExitError(runErr); isExit {
		exitStatus = exitErr
		ok = false
	} else if runErr != nil {
		return nil, fmt.Errorf("hostrunner: wait: %w", runErr)
	}

	report.Solve = SolveStatus{
		OK:             ok,
		ExitStatus:     exitStatus,
		SolveOutputB64: base64.StdEncoding.EncodeToString(truncateBytes(stdout.Bytes(), maxStdoutBytes)),
		Truncated:      stdout.Len() >= maxStdoutBytes,
	}

	if len(stderrLines) > 0 {
		last := stderrLines[len(stderrLines)-1]
		var parsed map[string]any
		if json.Unmarshal([]byte(last), &parsed) == nil {
			if codeRaw, ok := parsed["trap_code"]; ok {
				code := asUint32(codeRaw)
				report.Solve.Trap = &Trap{Code: code, Name: abi.Name(code)}
			}
			report.Metrics = Metrics(parsed)
		}
	}

	return report, nil
}

func asUint32(v any) uint32 {
	switch n := v.(type) {
	case float64:
		return uint32(n)
	case json.Number:
		i, _ := n.Int64()
		return uint32(i)
	default:
		return 0
	}
}

func asExitError(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	if ee, ok := err.(interface{ ExitCode() int }); ok {
		return ee.ExitCode(), true
	}
	return 0, false
}

func truncateBytes(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}
	return b[:limit]
}

// truncatingWriter caps the number of bytes written to buf, silently
// discarding the remainder once the limit is reached (spec §4.C10
// "capped").
type truncatingWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *truncatingWriter) Write(p []byte) (int, error) {
	if w.buf.Len() >= w.limit {
		return len(p), nil
	}
	remaining := w.limit - w.buf.Len()
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
	} else {
		w.buf.Write(p)
	}
	return len(p), nil
}
