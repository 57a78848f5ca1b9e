package project

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `{
	"schema_version": "x07.project@0.2.0",
	"world": "solve-pure",
	"entry": "main",
	"module_roots": ["$workspace/src", "$workspace/vendor/thirdparty"],
	"module_roots_exclude": ["**/vendor/**"],
	"default_profile": "dev",
	"profiles": {"dev": {"world": "solve-pure"}}
}`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.DefaultProfile != "dev" {
		t.Fatalf("expected default_profile dev, got %q", m.DefaultProfile)
	}
}

func TestParseManifestRejectsWrongSchema(t *testing.T) {
	_, err := ParseManifest([]byte(`{"schema_version": "x07.project@0.1.0"}`))
	if err == nil {
		t.Fatal("expected SchemaError")
	}
}

func TestResolveModuleRootsExpandsWorkspaceAndExcludes(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	roots, err := ResolveModuleRoots(m, "/ws")
	if err != nil {
		t.Fatalf("ResolveModuleRoots: %v", err)
	}
	if len(roots) != 1 || roots[0] != filepath.Join("/ws", "src") {
		t.Fatalf("expected only /ws/src to survive exclusion, got %v", roots)
	}
}

func TestResolveModuleRootsRequiresWorkspaceRoot(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if _, err := ResolveModuleRoots(m, ""); err == nil {
		t.Fatal("expected error when X07_WORKSPACE_ROOT is unset")
	}
}

func TestLoadLongFormConfigMissingIsNotError(t *testing.T) {
	cfg, err := LoadLongFormConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Profiles != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadLongFormConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := "profiles:\n  ci:\n    world: run-os-sandboxed\n    policy_path: policies/ci.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadLongFormConfig(path)
	if err != nil {
		t.Fatalf("LoadLongFormConfig: %v", err)
	}
	if cfg.Profiles["ci"].PolicyPath != "policies/ci.json" {
		t.Fatalf("unexpected profile: %+v", cfg.Profiles["ci"])
	}
}

func TestIntegrityDigestRoundTrips(t *testing.T) {
	pkg := &LockedPackage{Name: "x", Version: "1.0.0", Integrity: IntegrityDigest([]byte("tarball-bytes"))}
	if err := pkg.VerifyIntegrity([]byte("tarball-bytes")); err != nil {
		t.Fatalf("VerifyIntegrity: %v", err)
	}
	if err := pkg.VerifyIntegrity([]byte("different-bytes")); err == nil {
		t.Fatal("expected integrity mismatch")
	}
}

func TestParseLockfile(t *testing.T) {
	raw := []byte(`{"schema_version": "x07.lock@0.2.0", "packages": [{"name": "a", "version": "1.0.0", "integrity": "blake3:aa"}]}`)
	l, err := ParseLockfile(raw)
	if err != nil {
		t.Fatalf("ParseLockfile: %v", err)
	}
	if len(l.Packages) != 1 {
		t.Fatalf("expected 1 package, got %d", len(l.Packages))
	}
}
