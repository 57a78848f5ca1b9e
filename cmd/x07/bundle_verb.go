package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/x07dev/x07/internal/agentdriver"
	"github.com/x07dev/x07/internal/ccshim"
	"github.com/x07dev/x07/internal/driver"
	"github.com/x07dev/x07/internal/project"
)

const bundleReportSchema = "x07.bundle.report@0.1.0"

func runBundle(args []string, stdout, stderr io.Writer) int {
	var projectPath, profileName, outPath, emitDir string
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
		case "--out":
			v, ni, ok := requireFlagValue(args, i, "--out", stderr)
			if !ok {
				return ExitInvalidInput
			}
			outPath, i = v, ni
		case "--emit-dir":
			v, ni, ok := requireFlagValue(args, i, "--emit-dir", stderr)
			if !ok {
				return ExitInvalidInput
			}
			emitDir, i = v, ni
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if projectPath == "" || outPath == "" || emitDir == "" {
		fmt.Fprintln(stderr, "--project, --out, and --emit-dir are all required")
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

	profile, err := agentdriver.ResolveProfile(manifest, profileName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	ctx := driver.NewToolCtx(profile.World)
	compiled, err := driver.Compile(ctx, entryRaw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	if err := os.MkdirAll(emitDir, 0o755); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	cSourcePath := filepath.Join(emitDir, "bundle.c")
	if err := os.WriteFile(cSourcePath, []byte(compiled.CSource), 0o644); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	build, err := ccshim.Build(context.Background(), compiled.CSource, ccshim.Options{
		DepsDir:  filepath.Join(filepath.Dir(projectPath), "deps", "x07"),
		OutDir:   emitDir,
		Requires: compiled.Requires,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	if err := os.Rename(build.BinaryPath, outPath); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	report := map[string]any{
		"schema_version": bundleReportSchema,
		"out":            outPath,
		"emit_dir":       emitDir,
		"requires":       compiled.Requires,
	}
	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	return ExitOK
}
