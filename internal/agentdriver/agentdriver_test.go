package agentdriver

import (
	"testing"

	"github.com/x07dev/x07/internal/project"
	"github.com/x07dev/x07/internal/world"
)

func TestResolveProfileExplicit(t *testing.T) {
	m := &project.Manifest{
		World:   world.SolvePure,
		Profiles: map[string]project.Profile{"ci": {World: world.RunOSSandboxed, PolicyPath: "p.json"}},
	}
	p, err := ResolveProfile(m, "ci")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if p.World != world.RunOSSandboxed {
		t.Fatalf("expected run-os-sandboxed, got %s", p.World)
	}
}

func TestResolveProfileFallsBackToDefault(t *testing.T) {
	m := &project.Manifest{World: world.SolveFS}
	p, err := ResolveProfile(m, "")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if p.World != world.SolveFS {
		t.Fatalf("expected fallback to manifest world, got %s", p.World)
	}
}

func TestResolveProfileUnknownNameErrors(t *testing.T) {
	m := &project.Manifest{Profiles: map[string]project.Profile{}}
	_, err := ResolveProfile(m, "missing")
	if err == nil {
		t.Fatal("expected ProfileError")
	}
	if _, ok := err.(*ProfileError); !ok {
		t.Fatalf("expected *ProfileError, got %T", err)
	}
}
