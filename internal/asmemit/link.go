package asmemit

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/asmfmt"

	"github.com/BlackMegaLogan/LONG/internal/compiler"
	"github.com/BlackMegaLogan/LONG/internal/diag"
)

const (
	sectorSize     = 512
	floppyImageLen = 1_474_560
)

// Assembler turns a NASM source file into a flat binary. Production code
// uses ExternalAssembler; tests substitute a fake that records the request
// and writes a deterministic stub so image-layout properties are checked
// hermetically, per the design note on subprocess invocation.
type Assembler interface {
	Assemble(inputPath, outputPath string) error
}

// ExternalAssembler shells out to a real NASM-compatible assembler.
type ExternalAssembler struct {
	Name string // e.g. "nasm"
}

func (e ExternalAssembler) Assemble(inputPath, outputPath string) error {
	name := e.Name
	if name == "" {
		name = "nasm"
	}
	cmd := exec.Command(name, "-f", "bin", inputPath, "-o", outputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, lookErr := exec.LookPath(name); lookErr != nil {
			return diag.New(diag.KindIO, "AssemblerNotFound",
				"%s not found on PATH; install it or assemble %s manually", name, inputPath)
		}
		return diag.New(diag.KindIO, "AssemblerFailed", "%s failed on %s: %v\n%s", name, inputPath, err, out)
	}
	return nil
}

// Link renders prog's data block, splices it into the stage-2 template,
// assembles both stages, patches stage-1's sector count, concatenates them,
// and writes the zero-padded floppy image to outPath.
func Link(prog *compiler.Program, asm Assembler, buildDir, outPath string) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return diag.Wrap(diag.KindIO, "BuildDir", err)
	}

	stage2Src, err := spliceStage2(prog)
	if err != nil {
		return err
	}
	stage2AsmPath := filepath.Join(buildDir, "boot_stage2.asm")
	if err := os.WriteFile(stage2AsmPath, []byte(stage2Src), 0o644); err != nil {
		return diag.Wrap(diag.KindIO, "WriteStage2Source", err)
	}

	stage2BinPath := filepath.Join(buildDir, "boot_stage2.bin")
	if err := asm.Assemble(stage2AsmPath, stage2BinPath); err != nil {
		return err
	}
	stage2Info, err := os.Stat(stage2BinPath)
	if err != nil {
		return diag.Wrap(diag.KindIO, "StatStage2", err)
	}
	stage2Sectors := (stage2Info.Size() + sectorSize - 1) / sectorSize
	if stage2Sectors < 1 {
		stage2Sectors = 1
	}

	stage1Src, err := patchStage1Sectors(stage1Template, int(stage2Sectors))
	if err != nil {
		return err
	}
	stage1AsmPath := filepath.Join(buildDir, "boot_stage1.asm")
	if err := os.WriteFile(stage1AsmPath, []byte(stage1Src), 0o644); err != nil {
		return diag.Wrap(diag.KindIO, "WriteStage1Source", err)
	}

	stage1BinPath := filepath.Join(buildDir, "boot_stage1.bin")
	if err := asm.Assemble(stage1AsmPath, stage1BinPath); err != nil {
		return err
	}

	stage1Bin, err := os.ReadFile(stage1BinPath)
	if err != nil {
		return diag.Wrap(diag.KindIO, "ReadStage1", err)
	}
	stage2Bin, err := os.ReadFile(stage2BinPath)
	if err != nil {
		return diag.Wrap(diag.KindIO, "ReadStage2", err)
	}

	image := make([]byte, floppyImageLen)
	copy(image, stage1Bin)
	copy(image[sectorSize:], stage2Bin)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return diag.Wrap(diag.KindIO, "OutputDir", err)
	}
	if err := os.WriteFile(outPath, image, 0o644); err != nil {
		return diag.Wrap(diag.KindIO, "WriteImage", err)
	}
	return nil
}

// spliceStage2 inserts the program, variable, and string pool data blocks
// into the stage-2 template between their marker pairs, formatting the
// result with asmfmt (a failure there is non-fatal: the unformatted text
// still assembles correctly).
func spliceStage2(prog *compiler.Program) (string, error) {
	src := stage2Template

	src, err := spliceMarkers(src, markerVarsStart, markerVarsEnd, generateVarsBlock(prog.VarSlots))
	if err != nil {
		return "", err
	}
	src, err = spliceMarkers(src, markerProgramStart, markerProgramEnd, generateProgramBlock(prog))
	if err != nil {
		return "", err
	}
	src, err = spliceMarkers(src, markerStringsStart, markerStringsEnd, generateStringsBlock(prog.Pool))
	if err != nil {
		return "", err
	}

	if formatted, ferr := asmfmt.Format(strings.NewReader(src)); ferr == nil {
		return string(formatted), nil
	}
	return src, nil
}

// spliceMarkers replaces everything strictly between a start/end marker
// pair (the markers themselves are preserved) with body.
func spliceMarkers(src, startMarker, endMarker, body string) (string, error) {
	start := strings.Index(src, startMarker)
	if start < 0 {
		return "", diag.New(diag.KindCompile, "MissingMarker", "stage-2 template is missing marker %q", startMarker)
	}
	afterStart := start + len(startMarker)
	end := strings.Index(src[afterStart:], endMarker)
	if end < 0 {
		return "", diag.New(diag.KindCompile, "MissingMarker", "stage-2 template is missing marker %q", endMarker)
	}
	end += afterStart
	return src[:afterStart] + "\n" + body + src[end:], nil
}

// patchStage1Sectors rewrites the "STAGE2_SECTORS equ N" equate with the
// measured sector count.
func patchStage1Sectors(src string, sectors int) (string, error) {
	idx := strings.Index(src, stage2SectorsEquate)
	if idx < 0 {
		return "", diag.New(diag.KindCompile, "MissingMarker", "stage-1 template is missing %q", stage2SectorsEquate)
	}
	lineEnd := strings.IndexByte(src[idx:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src) - idx
	}
	lineEnd += idx
	replacement := stage2SectorsEquate + " " + strconv.Itoa(sectors)
	return src[:idx] + replacement + src[lineEnd:], nil
}

// verifyBootSignature reports whether b's bytes [510:512] are the 0x55 0xAA
// MBR boot signature, used by tests asserting §8's "Boot image size"
// property against a fake assembler's stub output.
func verifyBootSignature(b []byte) bool {
	return len(b) >= sectorSize && b[510] == 0x55 && b[511] == 0xAA
}
