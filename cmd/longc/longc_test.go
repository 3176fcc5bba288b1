package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// buildLongc compiles the longc binary once per test run into dir, grounded
// on xyproto-flapc/run.go's compileAndRun helper shape.
func buildLongc(t *testing.T, dir string) string {
	t.Helper()
	binPath := filepath.Join(dir, "longc")
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return binPath
}

func TestCompileProducesFloppyImage(t *testing.T) {
	if _, err := exec.LookPath("nasm"); err != nil {
		t.Skip("nasm is not installed - skipping compile-mode integration test")
	}

	dir := t.TempDir()
	bin := buildLongc(t, dir)
	outImage := filepath.Join(dir, "boot.img")

	cmd := exec.Command(bin, "../../testdata/printhi.long", outImage)
	cmd.Env = append(os.Environ(),
		"LONG_BUILD_DIR="+filepath.Join(dir, "build"),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("longc run failed: %v\n%s", err, out)
	}

	info, err := os.Stat(outImage)
	if err != nil {
		t.Fatalf("boot image not written: %v", err)
	}
	const floppyImageLen = 1_474_560
	if info.Size() != floppyImageLen {
		t.Fatalf("image size = %d, want %d", info.Size(), floppyImageLen)
	}

	data, err := os.ReadFile(outImage)
	if err != nil {
		t.Fatal(err)
	}
	if data[510] != 0x55 || data[511] != 0xAA {
		t.Fatalf("missing boot signature at bytes [510:512]: %#x %#x", data[510], data[511])
	}
}

func TestCompileRejectsUnsupportedStatement(t *testing.T) {
	dir := t.TempDir()
	bin := buildLongc(t, dir)

	srcPath := filepath.Join(dir, "bad.long")
	if err := os.WriteFile(srcPath, []byte("TrackInput[KEYBOARD]=INSTANT\nHALT\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(bin, srcPath, filepath.Join(dir, "out.img"))
	cmd.Env = append(os.Environ(), "LONG_BUILD_DIR="+filepath.Join(dir, "build"))
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected a non-zero exit for an unsupported statement, output: %s", out)
	}
}
