package osrunner

import (
	"context"
	"testing"

	"github.com/x07dev/x07/internal/world"
)

func TestRunSandboxedRequiresPolicy(t *testing.T) {
	_, err := Run(context.Background(), Request{World: world.RunOSSandboxed, BinaryPath: "/bin/echo"})
	if err == nil {
		t.Fatal("expected error for run-os-sandboxed without a policy")
	}
}

func TestInitTemplateDenyAll(t *testing.T) {
	p, err := InitTemplate(TemplateDenyAll, nil)
	if err != nil {
		t.Fatalf("InitTemplate: %v", err)
	}
	if len(p.FS.ReadRoots) != 0 || len(p.Net.AllowedDestinations) != 0 {
		t.Fatal("expected deny-all template to grant nothing")
	}
}

func TestInitTemplateFSReadonly(t *testing.T) {
	p, err := InitTemplate(TemplateFSReadonly, []string{"/workspace/src/**"})
	if err != nil {
		t.Fatalf("InitTemplate: %v", err)
	}
	if len(p.FS.ReadRoots) != 1 {
		t.Fatalf("expected 1 read root from module roots, got %d", len(p.FS.ReadRoots))
	}
}

func TestInitTemplateUnknown(t *testing.T) {
	if _, err := InitTemplate(Template("bogus"), nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
