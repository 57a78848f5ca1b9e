package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/x07dev/x07/internal/osrunner"
	"github.com/x07dev/x07/internal/testharness"
)

// manifestResolver resolves each tests/tests.json entry's `entry` field
// (an already-built binary path) directly; no project-aware build step
// is performed here (x07 build is a separate, prior step).
type manifestResolver struct{}

func (manifestResolver) BinaryPath(e testharness.ManifestEntry) (string, error) {
	if e.Entry == "" {
		return "", fmt.Errorf("test %q has no entry binary path", e.ID)
	}
	return e.Entry, nil
}

func (manifestResolver) Policy(testharness.ManifestEntry) (*osrunner.Policy, error) {
	return &osrunner.Policy{}, nil
}

func runTest(args []string, stdout, stderr io.Writer) int {
	var manifestPath, filterSubstr string
	var filterExact, verbose, allowEmpty bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--manifest":
			v, ni, ok := requireFlagValue(args, i, "--manifest", stderr)
			if !ok {
				return ExitInvalidInput
			}
			manifestPath, i = v, ni
		case "--filter":
			v, ni, ok := requireFlagValue(args, i, "--filter", stderr)
			if !ok {
				return ExitInvalidInput
			}
			filterSubstr, i = v, ni
		case "--exact":
			filterExact = true
		case "--verbose":
			verbose = true
		case "--allow-empty":
			allowEmpty = true
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if manifestPath == "" {
		fmt.Fprintln(stderr, "--manifest is required")
		return ExitInvalidInput
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	manifest, err := testharness.ParseManifest(raw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitSchemaFailure
	}

	report, err := testharness.Run(context.Background(), manifest, manifestResolver{}, testharness.Options{
		Filter:     testharness.Filter{Substr: filterSubstr, Exact: filterExact},
		AllowEmpty: allowEmpty,
		Verbose:    verbose,
	}, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	if report.Counts.Fail > 0 || report.Counts.Trap > 0 {
		return ExitUserError
	}
	return ExitOK
}
