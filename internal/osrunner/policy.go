// Package osrunner executes run-os and run-os-sandboxed artifacts under a
// deny-by-default capability policy (spec §4.C11). Policy documents are
// jsonschema-validated the way the teacher validates tool-parameter
// schemas (internal/agent/tool_registry.go's compileSchema), and
// filesystem roots are doublestar-glob matched the way the teacher
// matches checkpoint exclude globs (internal/attractor/engine/
// artifact_policy.go's exclude_globs), generalized from an exclusion
// list to an allow-by-match root set.
package osrunner

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// policySchema is the run-os-policy JSON Schema (spec §4.C11): deny-by-
// default, every field an explicit allowlist.
const policySchema = `{
  "type": "object",
  "properties": {
    "fs": {
      "type": "object",
      "properties": {
        "read_roots":  {"type": "array", "items": {"type": "string"}},
        "write_roots": {"type": "array", "items": {"type": "string"}}
      }
    },
    "net": {
      "type": "object",
      "properties": {
        "allowed_destinations": {"type": "array", "items": {"type": "string"}}
      }
    },
    "env": {
      "type": "object",
      "properties": {
        "allowed_keys": {"type": "array", "items": {"type": "string"}}
      }
    },
    "exec": {
      "type": "object",
      "properties": {
        "allowed_paths": {"type": "array", "items": {"type": "string"}}
      }
    },
    "threads": {
      "type": "object",
      "properties": {
        "enabled":      {"type": "boolean"},
        "max_workers":  {"type": "integer", "minimum": 0},
        "max_blocking": {"type": "integer", "minimum": 0},
        "max_queue":    {"type": "integer", "minimum": 0}
      }
    },
    "cpu_time_limit_ms": {"type": "integer", "minimum": 0}
  }
}`

// Policy is the parsed, in-memory run-os-policy: deny-by-default, every
// surface named explicitly (spec §4.C11).
type Policy struct {
	FS      FSPolicy      `json:"fs"`
	Net     NetPolicy     `json:"net"`
	Env     EnvPolicy     `json:"env"`
	Exec    ExecPolicy    `json:"exec"`
	Threads ThreadsPolicy `json:"threads"`
	CPUTimeLimitMS int    `json:"cpu_time_limit_ms"`
}

type FSPolicy struct {
	ReadRoots  []string `json:"read_roots"`
	WriteRoots []string `json:"write_roots"`
}

type NetPolicy struct {
	AllowedDestinations []string `json:"allowed_destinations"`
}

type EnvPolicy struct {
	AllowedKeys []string `json:"allowed_keys"`
}

type ExecPolicy struct {
	AllowedPaths []string `json:"allowed_paths"`
}

type ThreadsPolicy struct {
	Enabled     bool `json:"enabled"`
	MaxWorkers  int  `json:"max_workers"`
	MaxBlocking int  `json:"max_blocking"`
	MaxQueue    int  `json:"max_queue"`
}

var compiledPolicySchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("run-os-policy.json", strings.NewReader(policySchema)); err != nil {
		panic(fmt.Sprintf("osrunner: invalid embedded policy schema: %v", err))
	}
	s, err := c.Compile("run-os-policy.json")
	if err != nil {
		panic(fmt.Sprintf("osrunner: compile embedded policy schema: %v", err))
	}
	compiledPolicySchema = s
}

// SchemaError wraps a jsonschema validation failure (spec §7: policy
// errors must be structured, not bare strings).
type SchemaError struct{ Err error }

func (e *SchemaError) Error() string { return fmt.Sprintf("osrunner: policy schema: %v", e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// ParsePolicy validates raw against the run-os-policy schema and decodes
// it. run-os-sandboxed refuses to start without a valid policy (spec
// §4.C11); ParsePolicy is the single gate that enforces that.
func ParsePolicy(raw []byte) (*Policy, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("osrunner: policy is not valid JSON: %w", err)
	}
	if err := compiledPolicySchema.Validate(doc); err != nil {
		return nil, &SchemaError{Err: err}
	}
	var p Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("osrunner: decode policy: %w", err)
	}
	return &p, nil
}

// Violation is a single deny-by-default policy rejection, carrying the
// exact trap-shaped message spec §4.C11 names as an example
// ("os.threads.blocking disabled by policy").
type Violation struct {
	Capability string
	Detail     string
}

func (v *Violation) Error() string { return fmt.Sprintf("%s disabled by policy: %s", v.Capability, v.Detail) }

// CheckFSRead reports whether path is permitted under any read_roots glob.
func (p *Policy) CheckFSRead(path string) error {
	return checkRoots(p.FS.ReadRoots, path, "os.fs.read")
}

// CheckFSWrite reports whether path is permitted under any write_roots glob.
func (p *Policy) CheckFSWrite(path string) error {
	return checkRoots(p.FS.WriteRoots, path, "os.fs.write")
}

func checkRoots(roots []string, path, capability string) error {
	for _, root := range roots {
		ok, err := doublestar.Match(root, path)
		if err == nil && ok {
			return nil
		}
	}
	return &Violation{Capability: capability, Detail: fmt.Sprintf("%q matches no allowed root", path)}
}

// CheckNet reports whether hostPort (e.g. "127.0.0.1:9090") is permitted.
// Destinations may be exact host:port pairs or bare CIDR blocks (spec
// §4.C11 "host+port, or bare CIDR").
func (p *Policy) CheckNet(hostPort string) error {
	for _, dest := range p.Net.AllowedDestinations {
		if dest == hostPort {
			return nil
		}
		if _, cidr, err := net.ParseCIDR(dest); err == nil {
			host, _, splitErr := net.SplitHostPort(hostPort)
			if splitErr == nil {
				if ip := net.ParseIP(host); ip != nil && cidr.Contains(ip) {
					return nil
				}
			}
		}
	}
	return &Violation{Capability: "os.net", Detail: fmt.Sprintf("%q matches no allowed destination", hostPort)}
}

// CheckEnv reports whether key is in the env allowlist.
func (p *Policy) CheckEnv(key string) error {
	for _, k := range p.Env.AllowedKeys {
		if k == key {
			return nil
		}
	}
	return &Violation{Capability: "os.env", Detail: fmt.Sprintf("%q not in allowed_keys", key)}
}

// CheckExec reports whether execPath is in the exec allowlist.
func (p *Policy) CheckExec(execPath string) error {
	for _, allowed := range p.Exec.AllowedPaths {
		ok, err := doublestar.Match(allowed, execPath)
		if err == nil && ok {
			return nil
		}
	}
	return &Violation{Capability: "os.proc", Detail: fmt.Sprintf("%q matches no allowed exec path", execPath)}
}

// CheckBlockingThread reports whether a blocking-thread operation is
// permitted, matching spec §4.C11's worked example verbatim.
func (p *Policy) CheckBlockingThread() error {
	if !p.Threads.Enabled || p.Threads.MaxBlocking == 0 {
		return &Violation{Capability: "os.threads.blocking", Detail: "threads disabled or max_blocking=0"}
	}
	return nil
}

// MergeAllowHost implements `--allow-host H:P` sugar (spec §6 added): it
// returns a copy of p with hostPort appended to allowed_destinations, for
// writing under .x07/policies/_generated/.
func MergeAllowHost(p *Policy, hostPort string) (*Policy, error) {
	if _, _, err := net.SplitHostPort(hostPort); err != nil {
		return nil, fmt.Errorf("osrunner: --allow-host %q: %w", hostPort, err)
	}
	out := *p
	out.Net.AllowedDestinations = append(append([]string{}, p.Net.AllowedDestinations...), hostPort)
	return &out, nil
}

// formatPort is a small helper kept for callers constructing host:port
// strings from separate fields (e.g. CLI flag parsing).
func formatPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
