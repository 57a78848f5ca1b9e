package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/x07dev/x07/internal/fmtpatch"
	"github.com/x07dev/x07/internal/jcs"
	"github.com/x07dev/x07/internal/x07ast"
)

func runAST(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: x07 ast apply-patch --in F --patch P --out F [--validate]")
		return ExitInvalidInput
	}
	switch args[0] {
	case "apply-patch":
		return runASTApplyPatch(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown ast subcommand: %s\n", args[0])
		return ExitInvalidInput
	}
}

func runASTApplyPatch(args []string, stdout, stderr io.Writer) int {
	var inPath, patchPath, outPath string
	var validate bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--in":
			v, ni, ok := requireFlagValue(args, i, "--in", stderr)
			if !ok {
				return ExitInvalidInput
			}
			inPath, i = v, ni
		case "--patch":
			v, ni, ok := requireFlagValue(args, i, "--patch", stderr)
			if !ok {
				return ExitInvalidInput
			}
			patchPath, i = v, ni
		case "--out":
			v, ni, ok := requireFlagValue(args, i, "--out", stderr)
			if !ok {
				return ExitInvalidInput
			}
			outPath, i = v, ni
		case "--validate":
			validate = true
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", args[i])
			return ExitInvalidInput
		}
	}
	if inPath == "" || patchPath == "" || outPath == "" {
		fmt.Fprintln(stderr, "--in, --patch, and --out are all required")
		return ExitInvalidInput
	}

	inRaw, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	patchRaw, err := os.ReadFile(patchPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	doc, err := jcs.Parse(inRaw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitSchemaFailure
	}
	var ops []fmtpatch.Op
	if err := json.Unmarshal(patchRaw, &ops); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitInvalidInput
	}

	patched, err := fmtpatch.Apply(doc, ops, fmtpatch.ApplyOptions{Validate: validate})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitSchemaFailure
	}

	if validate {
		canon, err := jcs.Canonicalize(patched)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUserError
		}
		if _, err := x07ast.Parse(canon); err != nil {
			fmt.Fprintln(stderr, err)
			return ExitSchemaFailure
		}
	}

	out, err := jcs.Canonicalize(patched)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	report := map[string]any{"ops_applied": len(ops), "out": outPath}
	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	return ExitOK
}
