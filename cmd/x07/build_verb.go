package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/x07dev/x07/internal/ccshim"
	"github.com/x07dev/x07/internal/driver"
	"github.com/x07dev/x07/internal/project"
)

func runBuild(args []string, stdout, stderr io.Writer) int {
	var projectPath, outPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--project":
			v, ni, ok := requireFlagValue(args, i, "--project", stderr)
			if !ok {
				return ExitInvalidInput
			}
			projectPath, i = v, ni
		case "--out":
			v, ni, ok := requireFlagValue(args, i, "--out", stderr)
			if !ok {
				return ExitInvalidInput
			}
			outPath, i = v, ni
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if projectPath == "" || outPath == "" {
		fmt.Fprintln(stderr, "--project and --out are both required")
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

	ctx := driver.NewToolCtx(manifest.World)
	compiled, err := driver.Compile(ctx, entryRaw)
	if err != nil {
		if be, ok := asBudgetError(err); ok {
			fmt.Fprintln(stderr, be)
			return ExitBudgetExceeded
		}
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	build, err := ccshim.Build(context.Background(), compiled.CSource, ccshim.Options{
		DepsDir:  filepath.Join(filepath.Dir(projectPath), "deps", "x07"),
		OutDir:   filepath.Dir(outPath),
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

	report := map[string]any{"out": outPath, "requires": compiled.Requires}
	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	return ExitOK
}

func asBudgetError(err error) (*driver.BudgetError, bool) {
	for err != nil {
		if be, ok := err.(*driver.BudgetError); ok {
			return be, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
