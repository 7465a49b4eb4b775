package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jitcore/internal/tirfile"
	"jitcore/internal/trace"
)

// maxAbs returns max(3, abs(-9)) and prints it through the host.
const maxAbs = `entry = "main"

[[func]]
name = "main"
returns = "i32"
temps = ["fn", "i32", "i32", "fn", "i32", "i32", "fn", "void"]

  [[func.block]]
    [[func.block.stmt]]
    op = "extern"
    dst = 0
    name = "abs"

    [[func.block.stmt]]
    op = "const"
    dst = 1
    int = -9

    [[func.block.stmt]]
    op = "call"
    dst = 2
    callee = 0
    args = [1]

    [[func.block.stmt]]
    op = "extern"
    dst = 3
    name = "max"

    [[func.block.stmt]]
    op = "const"
    dst = 4
    int = 3

    [[func.block.stmt]]
    op = "call"
    dst = 5
    callee = 3
    args = [4, 2]

    [[func.block.stmt]]
    op = "extern"
    dst = 6
    name = "print"

    [[func.block.stmt]]
    op = "call"
    dst = 7
    callee = 6
    args = [5]

    [[func.block.stmt]]
    op = "return"
    src = 5
`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCallsBuiltins(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "jitc.toml", "[jit]\nopt_level = 0\n")
	prog := writeFile(t, dir, "maxabs.toml", maxAbs)

	out, err := execute(t, "--config", cfg, "--color", "off", "run", prog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "9\n9\n" {
		t.Errorf("output = %q, want printed and returned 9", out)
	}
}

func TestRunReportsCheckErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "jitc.toml", "")
	prog := writeFile(t, dir, "bad.toml", strings.Replace(maxAbs, `name = "max"`, `name = "maximum"`, 1))

	_, err := execute(t, "--config", cfg, "--color", "off", "run", prog)
	if err == nil || !strings.Contains(err.Error(), "maximum") {
		t.Fatalf("err = %v, want unknown name maximum", err)
	}
}

func TestPackFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.toml", maxAbs)
	b := writeFile(t, dir, "b.toml", maxAbs)

	written, err := packFiles([]string{a, b}, 2, true)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	want := []string{tirfile.PackPath(a), tirfile.PackPath(b)}
	if strings.Join(written, ",") != strings.Join(want, ",") {
		t.Fatalf("written = %v, want %v", written, want)
	}
	f, err := tirfile.Load(written[0])
	if err != nil {
		t.Fatalf("load packed: %v", err)
	}
	if len(f.Funcs) != 1 || f.Funcs[0].Name != "main" {
		t.Errorf("packed program lost its functions: %+v", f.Funcs)
	}
}

func TestPackFilesErrors(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.toml", "")
	if _, err := packFiles([]string{empty}, 1, true); err == nil || !strings.Contains(err.Error(), "no functions") {
		t.Errorf("err = %v, want no functions", err)
	}
	if _, err := packFiles([]string{empty}, 1, false); err != nil {
		t.Errorf("unchecked pack: %v", err)
	}
	for _, name := range []string{"x.tirpack", "x.TIRPACK"} {
		if _, err := packFiles([]string{filepath.Join(dir, name)}, 1, true); err == nil {
			t.Errorf("packing %s succeeded", name)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "--color", "off", "version", "--format", "json", "--hash")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload buildInfo
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if payload.Tool != "jitc" || payload.GitCommit == "" || payload.BuildDate != "" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestApplyColorMode(t *testing.T) {
	if err := applyColorMode("sometimes"); err == nil {
		t.Error("invalid mode accepted")
	}
}

func TestDumpOnPanicWritesRing(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelPhase)
	trace.Point(ring, trace.ScopeDriver, "verify-failed", "fn main", 0)
	s := &session{tracer: ring}

	var buf bytes.Buffer
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		defer s.dumpOnPanic(&buf)
		panic("boom")
	}()
	if !strings.Contains(buf.String(), "! verify-failed (fn main)") {
		t.Errorf("dump = %q", buf.String())
	}
}
