package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/x07dev/x07/internal/osrunner"
	"github.com/x07dev/x07/internal/project"
)

func runPolicy(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: x07 policy init --template T --project M [--out F]")
		return ExitInvalidInput
	}
	switch args[0] {
	case "init":
		return runPolicyInit(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown policy subcommand: %s\n", args[0])
		return ExitInvalidInput
	}
}

func runPolicyInit(args []string, stdout, stderr io.Writer) int {
	var templateName, projectPath, outPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--template":
			v, ni, ok := requireFlagValue(args, i, "--template", stderr)
			if !ok {
				return ExitInvalidInput
			}
			templateName, i = v, ni
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
	if templateName == "" || projectPath == "" {
		fmt.Fprintln(stderr, "--template and --project are both required")
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

	moduleRoots, err := project.ResolveModuleRoots(manifest, filepath.Dir(projectPath))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	policy, err := osrunner.InitTemplate(osrunner.Template(templateName), moduleRoots)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitInvalidInput
	}

	policyJSON, err := json.MarshalIndent(policy, "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(projectPath), ".x07", "policies", "_generated", string(templateName)+".json")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	if err := os.WriteFile(outPath, policyJSON, 0o644); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}

	report := map[string]any{"template": templateName, "out": outPath}
	enc := json.NewEncoder(stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUserError
	}
	return ExitOK
}
