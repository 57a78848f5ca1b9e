package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/x07dev/x07/internal/fmtpatch"
)

func runFmt(args []string, stdout, stderr io.Writer) int {
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
		case "--check":
			write = false
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

	formatted, err := fmtpatch.Format(raw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitSchemaFailure
	}

	clean := string(formatted) == string(raw)
	report := map[string]any{"clean": clean}

	if write && !clean {
		if err := os.WriteFile(inputPath, formatted, 0o644); err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUserError
		}
		report["written"] = true
	}

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	return ExitOK
}
