package osrunner

import "testing"

func TestParsePolicyValid(t *testing.T) {
	raw := []byte(`{
		"fs": {"read_roots": ["/workspace/**"], "write_roots": []},
		"net": {"allowed_destinations": ["127.0.0.1:9090"]},
		"env": {"allowed_keys": ["PATH"]},
		"exec": {"allowed_paths": ["/usr/bin/cc"]},
		"threads": {"enabled": true, "max_workers": 2, "max_blocking": 1, "max_queue": 8},
		"cpu_time_limit_ms": 5000
	}`)
	p, err := ParsePolicy(raw)
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	if len(p.FS.ReadRoots) != 1 {
		t.Fatalf("expected 1 read root, got %d", len(p.FS.ReadRoots))
	}
}

func TestParsePolicyRejectsWrongType(t *testing.T) {
	raw := []byte(`{"fs": {"read_roots": "not-an-array"}}`)
	if _, err := ParsePolicy(raw); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestParsePolicyRejectsInvalidJSON(t *testing.T) {
	if _, err := ParsePolicy([]byte(`{not json`)); err == nil {
		t.Fatal("expected JSON parse error")
	}
}

func TestCheckFSReadDenyByDefault(t *testing.T) {
	p := &Policy{}
	if err := p.CheckFSRead("/etc/passwd"); err == nil {
		t.Fatal("expected deny-by-default violation")
	}
}

func TestCheckFSReadAllowedGlob(t *testing.T) {
	p := &Policy{FS: FSPolicy{ReadRoots: []string{"/workspace/**"}}}
	if err := p.CheckFSRead("/workspace/a/b.x07"); err != nil {
		t.Fatalf("expected allowed path, got %v", err)
	}
}

func TestCheckNetExactMatch(t *testing.T) {
	p := &Policy{Net: NetPolicy{AllowedDestinations: []string{"10.0.0.1:443"}}}
	if err := p.CheckNet("10.0.0.1:443"); err != nil {
		t.Fatalf("expected allowed destination, got %v", err)
	}
	if err := p.CheckNet("10.0.0.2:443"); err == nil {
		t.Fatal("expected deny for unlisted destination")
	}
}

func TestCheckNetCIDR(t *testing.T) {
	p := &Policy{Net: NetPolicy{AllowedDestinations: []string{"10.0.0.0/8"}}}
	if err := p.CheckNet("10.1.2.3:8080"); err != nil {
		t.Fatalf("expected CIDR match, got %v", err)
	}
}

func TestCheckBlockingThreadMatchesSpecExample(t *testing.T) {
	p := &Policy{}
	err := p.CheckBlockingThread()
	if err == nil {
		t.Fatal("expected violation")
	}
	if err.Error() != "os.threads.blocking disabled by policy: threads disabled or max_blocking=0" {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestMergeAllowHost(t *testing.T) {
	base := &Policy{}
	merged, err := MergeAllowHost(base, "1.2.3.4:8080")
	if err != nil {
		t.Fatalf("MergeAllowHost: %v", err)
	}
	if len(merged.Net.AllowedDestinations) != 1 {
		t.Fatalf("expected 1 merged destination, got %d", len(merged.Net.AllowedDestinations))
	}
	if len(base.Net.AllowedDestinations) != 0 {
		t.Fatal("expected base policy to remain unmodified")
	}
}

func TestMergeAllowHostRejectsInvalid(t *testing.T) {
	if _, err := MergeAllowHost(&Policy{}, "not-a-host-port"); err == nil {
		t.Fatal("expected rejection of malformed host:port")
	}
}
