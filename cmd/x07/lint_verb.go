package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/x07dev/x07/internal/lint"
	"github.com/x07dev/x07/internal/world"
	"github.com/x07dev/x07/internal/x07ast"
)

const diagReportSchema = "x07.x07diag@0.1.0"

func runLint(args []string, stdout, stderr io.Writer) int {
	var inputPath string
	var worldName string
	var asJSON bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--input":
			v, ni, ok := requireFlagValue(args, i, "--input", stderr)
			if !ok {
				return ExitInvalidInput
			}
			inputPath, i = v, ni
		case "--world":
			v, ni, ok := requireFlagValue(args, i, "--world", stderr)
			if !ok {
				return ExitInvalidInput
			}
			worldName, i = v, ni
		case "--json":
			asJSON = true
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if inputPath == "" {
		fmt.Fprintln(stderr, "--input is required")
		return ExitInvalidInput
	}
	var w world.ID
	if worldName != "" {
		w = world.ID(worldName)
		if !world.Known(w) {
			fmt.Fprintf(stderr, "unknown world %q (known: %v)\n", worldName, world.Names())
			return ExitInvalidInput
		}
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

	diags := lint.Lint(doc, w)
	report := map[string]any{
		"schema_version": diagReportSchema,
		"diagnostics":     diags,
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUserError
		}
	} else {
		for _, d := range diags {
			fmt.Fprintf(stdout, "%s %s: %s (%s)\n", d.Severity, d.Code, d.Message, d.Loc.Ptr)
		}
	}

	if lint.HasErrors(diags) {
		return ExitUserError
	}
	return ExitOK
}
