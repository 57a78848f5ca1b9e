package osrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/x07dev/x07/internal/hostrunner"
	"github.com/x07dev/x07/internal/world"
)

// Request is one run-os/run-os-sandboxed invocation.
type Request struct {
	World      world.ID // RunOS or RunOSSandboxed
	BinaryPath string
	Argv       []string
	Stdin      []byte
	Policy     *Policy // required when World == RunOSSandboxed
	WallDeadline time.Duration
}

// Run executes req, refusing to start run-os-sandboxed without a valid
// policy (spec §4.C11: "run-os-sandboxed refuses to start without a valid
// policy"). run-os proper may run with Policy == nil (unrestricted beyond
// the world grant).
func Run(ctx context.Context, req Request) (*hostrunner.Report, error) {
	if req.World == world.RunOSSandboxed && req.Policy == nil {
		return nil, fmt.Errorf("osrunner: run-os-sandboxed requires a policy")
	}
	if req.Policy != nil {
		if err := req.Policy.CheckExec(req.BinaryPath); err != nil {
			return nil, err
		}
	}
	report, err := hostrunner.Run(ctx, hostrunner.Request{
		BinaryPath:   req.BinaryPath,
		Argv:         req.Argv,
		Stdin:        req.Stdin,
		WallDeadline: req.WallDeadline,
	})
	if err != nil {
		return nil, err
	}
	if req.Policy != nil {
		if err := CheckNoLeakedChildren(spawnedPIDs(report.Metrics)); err != nil {
			return report, err
		}
	}
	return report, nil
}

// spawnedPIDs reads an optional "spawned_pids" array out of the artifact's
// reported metrics.
func spawnedPIDs(m hostrunner.Metrics) []int {
	raw, ok := m["spawned_pids"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var pids []int
	for _, v := range list {
		switch n := v.(type) {
		case float64:
			pids = append(pids, int(n))
		}
	}
	return pids
}

// Template names one of the `x07 policy init --template T` starting
// points (spec §6 added).
type Template string

const (
	TemplateDenyAll    Template = "deny-all"
	TemplateFSReadonly Template = "fs-readonly"
	TemplateNetLoopback Template = "net-loopback"
)

// InitTemplate returns the starting Policy for template; the caller
// serializes it into a new policy file. moduleRoots is only consulted by
// fs-readonly.
func InitTemplate(t Template, moduleRoots []string) (*Policy, error) {
	switch t {
	case TemplateDenyAll:
		return &Policy{}, nil
	case TemplateFSReadonly:
		return &Policy{FS: FSPolicy{ReadRoots: append([]string{}, moduleRoots...)}}, nil
	case TemplateNetLoopback:
		return &Policy{Net: NetPolicy{AllowedDestinations: []string{"127.0.0.1/32", "::1/128"}}}, nil
	default:
		return nil, fmt.Errorf("osrunner: unknown template %q", t)
	}
}
