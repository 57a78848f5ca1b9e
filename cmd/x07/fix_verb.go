package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/x07dev/x07/internal/driver"
	"github.com/x07dev/x07/internal/lint"
	"github.com/x07dev/x07/internal/world"
	"github.com/x07dev/x07/internal/x07ast"
)

func runFix(args []string, stdout, stderr io.Writer) int {
	var inputPath string
	var write bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--input":
			v, ni, ok := requireFlagValue(args, i, "--input", stderr)
			if !ok {
				return ExitInvalidInput
			}
			inputPath, i = v, ni
		case "--write":
			write = true
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if inputPath == "" {
		fmt.Fprintln(stderr, "--input is required")
		return ExitInvalidInput
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	doc, err := x07ast.Parse(raw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitSchemaFailure
	}

	repaired, diags, state, err := driver.Repair(doc, world.ID(""))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	out, err := repaired.MarshalCanonical()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	if write {
		if err := os.WriteFile(inputPath, out, 0o644); err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUserError
		}
	}

	report := map[string]any{
		"applied":     state.AppliedCount,
		"iterations":  state.Iterations,
		"diagnostics": diags,
		"written":     write,
	}
	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	if lint.HasErrors(diags) {
		return ExitUserError
	}
	return ExitOK
}
