package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/x07dev/x07/internal/agentdriver"
	"github.com/x07dev/x07/internal/project"
)

func runRun(args []string, stdout, stderr io.Writer) int {
	var projectPath, profileName, reportKind, reportOut string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--project":
			v, ni, ok := requireFlagValue(args, i, "--project", stderr)
			if !ok {
				return ExitInvalidInput
			}
			projectPath, i = v, ni
		case "--profile":
			v, ni, ok := requireFlagValue(args, i, "--profile", stderr)
			if !ok {
				return ExitInvalidInput
			}
			profileName, i = v, ni
		case "--report":
			v, ni, ok := requireFlagValue(args, i, "--report", stderr)
			if !ok {
				return ExitInvalidInput
			}
			reportKind, i = v, ni
		case "--report-out":
			v, ni, ok := requireFlagValue(args, i, "--report-out", stderr)
			if !ok {
				return ExitInvalidInput
			}
			reportOut, i = v, ni
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if projectPath == "" {
		fmt.Fprintln(stderr, "--project is required")
		return ExitInvalidInput
	}

	manifestRaw, err := os.ReadFile(projectPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	manifest, err := project.ParseManifest(manifestRaw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitSchemaFailure
	}

	entryRaw, err := os.ReadFile(manifest.Entry)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	wrapped, err := agentdriver.Run(context.Background(), agentdriver.Request{
		Manifest:      manifest,
		Profile:       profileName,
		WorkspaceRoot: os.Getenv("X07_WORKSPACE_ROOT"),
		SourceBytes:   entryRaw,
		DepsDir:       filepath.Join(filepath.Dir(projectPath), "deps", "x07"),
		OutDir:        filepath.Join(filepath.Dir(projectPath), ".x07", "build"),
		WallDeadline:  60 * time.Second,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	var payload any = wrapped
	if reportKind == "runner" {
		payload = wrapped.Report
	}

	out, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	if reportOut != "" {
		if err := os.WriteFile(reportOut, out, 0o644); err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUserError
		}
	}
	fmt.Fprintln(stdout, string(out))
	return ExitOK
}
