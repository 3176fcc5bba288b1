package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildLongi compiles the longi binary once per test run into dir, grounded
// on xyproto-flapc/run.go's compileAndRun helper shape.
func buildLongi(t *testing.T, dir string) string {
	t.Helper()
	binPath := filepath.Join(dir, "longi")
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = "."
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return binPath
}

func runLongi(t *testing.T, binPath, srcRelPath string) string {
	t.Helper()
	tmpDir := t.TempDir()
	cmd := exec.Command(binPath, srcRelPath)
	cmd.Env = append(os.Environ(),
		"LONG_FS_PATH="+filepath.Join(tmpDir, "fs.json"),
		"LONG_HW_LOG_PATH="+filepath.Join(tmpDir, "hw.log"),
		"LONG_BUILD_DIR="+tmpDir,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("longi run failed: %v\n%s", err, out)
	}
	return string(out)
}

func TestInterpretHelloWorld(t *testing.T) {
	dir := t.TempDir()
	bin := buildLongi(t, dir)
	out := runLongi(t, bin, "../../testdata/hello.long")
	if !strings.Contains(out, "Hi!") {
		t.Fatalf("output = %q, want it to contain %q", out, "Hi!")
	}
}

func TestInterpretIfElse(t *testing.T) {
	dir := t.TempDir()
	bin := buildLongi(t, dir)
	out := runLongi(t, bin, "../../testdata/ifelse.long")
	if !strings.Contains(out, "no branch") {
		t.Fatalf("output = %q, want it to contain %q", out, "no branch")
	}
	if strings.Contains(out, "yes branch") {
		t.Fatalf("output = %q, should not contain the skipped branch", out)
	}
}
