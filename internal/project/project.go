// Package project loads the project manifest (x07.json, x07.project@0.2.0)
// and lockfile (x07.lock.json, x07.lock@0.2.0), and resolves module roots
// against $workspace/ tokens with doublestar exclusion globs (SPEC_FULL.md
// §3 "Project resolution detail").
package project

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/x07dev/x07/internal/world"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

const (
	manifestSchema = "x07.project@0.2.0"
	lockfileSchema = "x07.lock@0.2.0"
)

// Manifest is the decoded x07.json document.
type Manifest struct {
	SchemaVersion  string             `json:"schema_version"`
	World          world.ID           `json:"world"`
	Entry          string             `json:"entry"`
	ModuleRoots    []string           `json:"module_roots"`
	ModuleRootsExclude []string       `json:"module_roots_exclude,omitempty"`
	Profiles       map[string]Profile `json:"profiles,omitempty"`
	DefaultProfile string             `json:"default_profile,omitempty"`
	Dependencies   []string           `json:"dependencies,omitempty"`
	Lockfile       string             `json:"lockfile,omitempty"`
}

// Profile resolves to a world and, for OS worlds, a policy file path.
type Profile struct {
	World      world.ID `json:"world" yaml:"world"`
	PolicyPath string   `json:"policy_path,omitempty" yaml:"policy_path,omitempty"`
}

// SchemaError reports a manifest whose schema_version does not match what
// this toolchain understands (spec §7: fatal, structured).
type SchemaError struct{ Found string }

func (e *SchemaError) Error() string {
	return fmt.Sprintf("project: expected schema %s, found %q", manifestSchema, e.Found)
}

// ParseManifest decodes and validates an x07.json document.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("project: parse manifest: %w", err)
	}
	if m.SchemaVersion != manifestSchema {
		return nil, &SchemaError{Found: m.SchemaVersion}
	}
	return &m, nil
}

// LongFormConfig is the optional long-form profile file (SPEC_FULL.md
// AMBIENT STACK: "yaml.v3 for optional long-form profile config"): the
// same Profile shape (world + policy path) as x07.json's inline
// `profiles{}`, written in YAML for authors who prefer its comments and
// anchors.
type LongFormConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadLongFormConfig reads an optional YAML profile file; a missing file
// is not an error and yields an empty config. It does not merge the result
// with x07.json's inline `profiles{}`.
func LoadLongFormConfig(path string) (*LongFormConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LongFormConfig{}, nil
		}
		return nil, fmt.Errorf("project: read long-form config: %w", err)
	}
	var cfg LongFormConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("project: parse long-form config %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveModuleRoots expands $workspace/ tokens against workspaceRoot and
// drops any resolved root matching a doublestar exclude pattern
// (SPEC_FULL.md §3).
func ResolveModuleRoots(m *Manifest, workspaceRoot string) ([]string, error) {
	var out []string
	for _, raw := range m.ModuleRoots {
		resolved := raw
		if strings.HasPrefix(raw, "$workspace/") {
			if workspaceRoot == "" {
				return nil, fmt.Errorf("project: module root %q requires X07_WORKSPACE_ROOT", raw)
			}
			resolved = filepath.Join(workspaceRoot, strings.TrimPrefix(raw, "$workspace/"))
		}
		excluded, err := matchesAny(m.ModuleRootsExclude, resolved)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		out = append(out, resolved)
	}
	return out, nil
}

func matchesAny(patterns []string, path string) (bool, error) {
	for _, pat := range patterns {
		ok, err := doublestar.Match(pat, path)
		if err != nil {
			return false, fmt.Errorf("project: invalid exclude glob %q: %w", pat, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// LockedPackage is one resolved dependency entry.
type LockedPackage struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Integrity string `json:"integrity"` // "blake3:<hex>"
}

// Lockfile is the decoded x07.lock.json document.
type Lockfile struct {
	SchemaVersion string          `json:"schema_version"`
	Packages      []LockedPackage `json:"packages"`
	ResolvedAtTag string          `json:"resolved_at_tag,omitempty"`
}

// ParseLockfile decodes and validates an x07.lock.json document.
func ParseLockfile(raw []byte) (*Lockfile, error) {
	var l Lockfile
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("project: parse lockfile: %w", err)
	}
	if l.SchemaVersion != lockfileSchema {
		return nil, &SchemaError{Found: l.SchemaVersion}
	}
	return &l, nil
}

// IntegrityDigest computes the `blake3:<hex>` digest for a package
// tarball's bytes, the same hash family used for the repair-loop cycle
// hash and content-addressed build artifact names (spec §3 "Lockfile
// shape").
func IntegrityDigest(tarball []byte) string {
	sum := blake3.Sum256(tarball)
	return "blake3:" + hex.EncodeToString(sum[:])
}

// VerifyIntegrity reports whether tarball matches the package's recorded
// integrity digest.
func (p *LockedPackage) VerifyIntegrity(tarball []byte) error {
	got := IntegrityDigest(tarball)
	if got != p.Integrity {
		return fmt.Errorf("project: package %s@%s integrity mismatch: want %s, got %s", p.Name, p.Version, p.Integrity, got)
	}
	return nil
}
