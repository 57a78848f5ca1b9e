package testharness

import (
	"bytes"
	"context"
	"testing"

	"github.com/x07dev/x07/internal/osrunner"
	"github.com/x07dev/x07/internal/world"
)

type fakeResolver struct {
	bin string
	err error
}

func (f fakeResolver) BinaryPath(ManifestEntry) (string, error) { return f.bin, f.err }
func (f fakeResolver) Policy(ManifestEntry) (*osrunner.Policy, error) { return &osrunner.Policy{}, nil }

func intPtr(i int) *int { return &i }

func TestParseManifest(t *testing.T) {
	raw := []byte(`{"tests": [{"id": "t1", "world": "solve-pure", "entry": "m", "expect": {"exit_status": 0}}]}`)
	m, err := ParseManifest(raw)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(m.Tests) != 1 || m.Tests[0].ID != "t1" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestRunEmptySelectionRejectedByDefault(t *testing.T) {
	m := &Manifest{Tests: []ManifestEntry{{ID: "a"}}}
	_, err := Run(context.Background(), m, fakeResolver{bin: "/bin/true"}, Options{Filter: Filter{Substr: "zzz"}}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected EmptySelectionError")
	}
}

func TestRunEmptySelectionAllowed(t *testing.T) {
	m := &Manifest{Tests: []ManifestEntry{{ID: "a"}}}
	report, err := Run(context.Background(), m, fakeResolver{bin: "/bin/true"}, Options{Filter: Filter{Substr: "zzz"}, AllowEmpty: true}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Counts.Total != 0 {
		t.Fatalf("expected 0 tests run, got %d", report.Counts.Total)
	}
}

func TestRunPassForTrueBinary(t *testing.T) {
	m := &Manifest{Tests: []ManifestEntry{{ID: "ok", World: world.SolvePure, Expect: Expect{ExitStatus: intPtr(0)}}}}
	report, err := Run(context.Background(), m, fakeResolver{bin: "/bin/true"}, Options{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.SchemaVersion != reportSchema {
		t.Fatalf("expected schema %s, got %s", reportSchema, report.SchemaVersion)
	}
	if report.Counts.Pass != 1 || report.Counts.Total != 1 {
		t.Fatalf("expected 1 pass, got %+v", report.Counts)
	}
}

func TestRunFailForResolveError(t *testing.T) {
	m := &Manifest{Tests: []ManifestEntry{{ID: "bad"}}}
	report, err := Run(context.Background(), m, fakeResolver{err: errNotFound{}}, Options{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Counts.Fail != 1 {
		t.Fatalf("expected 1 failure, got %+v", report.Counts)
	}
	if report.Tests[0].Diagnostics[0].Code != "X07T_RESOLVE_ERROR" {
		t.Fatalf("expected X07T_RESOLVE_ERROR, got %+v", report.Tests[0].Diagnostics)
	}
}

func TestFilterExactMatch(t *testing.T) {
	f := Filter{Substr: "abc", Exact: true}
	if !f.matches("abc") {
		t.Fatal("expected exact match")
	}
	if f.matches("abcdef") {
		t.Fatal("expected exact filter to reject substring match")
	}
}

type errNotFound struct{}

func (errNotFound) Error() string { return "binary not found" }
