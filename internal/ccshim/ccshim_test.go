package ccshim

import "testing"

func TestContentNameDeterministicAndDistinct(t *testing.T) {
	a := contentName("int main(void) { return 0; }")
	b := contentName("int main(void) { return 0; }")
	c := contentName("int main(void) { return 1; }")
	if a != b {
		t.Fatalf("expected same source to hash identically: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("expected distinct sources to hash distinctly")
	}
	if len(a) != 32 {
		t.Fatalf("expected 16-byte hex digest, got %d chars", len(a))
	}
}

func TestResolveCCPrefersExplicitOption(t *testing.T) {
	got := resolveCC(Options{CC: "clang"})
	if got != "clang" {
		t.Fatalf("expected explicit CC to win, got %q", got)
	}
}

func TestResolveCCFallsBackToDefault(t *testing.T) {
	t.Setenv("X07_CC", "")
	got := resolveCC(Options{})
	if got != DefaultCC {
		t.Fatalf("expected default cc, got %q", got)
	}
}

func TestResolveCCReadsEnv(t *testing.T) {
	t.Setenv("X07_CC", "zig-cc")
	got := resolveCC(Options{})
	if got != "zig-cc" {
		t.Fatalf("expected X07_CC override, got %q", got)
	}
}

func TestBuildRequiresOutDir(t *testing.T) {
	_, err := Build(nil, "int main(void){return 0;}", Options{}) //nolint:staticcheck // nil ctx fine before first blocking call
	if err == nil {
		t.Fatal("expected error for missing OutDir")
	}
}
