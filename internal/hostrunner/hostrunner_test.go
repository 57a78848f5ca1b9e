package hostrunner

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"
)

func TestEncodeArgvV1Framing(t *testing.T) {
	got := encodeArgvV1([]string{"a", "bb"})
	// argc=2 (4 bytes LE) + len("a")=1(4 bytes)+"a" + len("bb")=2(4 bytes)+"bb"
	want := 4 + 4 + 1 + 4 + 2
	if len(got) != want {
		t.Fatalf("expected %d framed bytes, got %d", want, len(got))
	}
	if got[0] != 2 || got[1] != 0 || got[2] != 0 || got[3] != 0 {
		t.Fatalf("expected argc=2 little-endian prefix, got %v", got[:4])
	}
}

func TestRunCapturesStdoutAndExitStatus(t *testing.T) {
	req := Request{
		BinaryPath:   "/bin/echo",
		Argv:         []string{"hello"},
		WallDeadline: 2 * time.Second,
	}
	report, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.SchemaVersion != reportSchema {
		t.Fatalf("expected schema %s, got %s", reportSchema, report.SchemaVersion)
	}
	if !report.Solve.OK {
		t.Fatalf("expected solve ok, got %+v", report.Solve)
	}
	out, err := base64.StdEncoding.DecodeString(report.Solve.SolveOutputB64)
	if err != nil {
		t.Fatalf("decode b64: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty captured stdout")
	}
}

func TestRunReportsNonZeroExit(t *testing.T) {
	req := Request{
		BinaryPath:   "/bin/false",
		WallDeadline: 2 * time.Second,
	}
	report, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Solve.OK {
		t.Fatal("expected solve not ok for /bin/false")
	}
	if report.Solve.ExitStatus == 0 {
		t.Fatal("expected non-zero exit status")
	}
}

func TestTruncatingWriterCapsAtLimit(t *testing.T) {
	var buf bytes.Buffer
	w := &truncatingWriter{buf: &buf, limit: 4}
	n, err := w.Write([]byte("abcdef"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected reported write length 6, got %d", n)
	}
	if buf.Len() != 4 {
		t.Fatalf("expected capped buffer length 4, got %d", buf.Len())
	}
}
