// Package asmemit turns a compiled compiler.Program into a bootable floppy
// image: it serializes the opcode stream, variable scratch area, and string
// pool as NASM db/dw text, splices that text into a stage-2 template,
// invokes an external assembler for each stage, and links stage-1 and
// stage-2 into a padded image.
//
// Grounded on spec §4.7's marker-delimited splicing discipline; the NASM
// text-generation idiom and github.com/klauspost/asmfmt formatting pass
// follow ajroetker-goat's amd64Parser (other_examples).
package asmemit

import _ "embed"

//go:embed templates/stage1.asm
var stage1Template string

//go:embed templates/stage2.asm
var stage2Template string

const (
	markerVarsStart    = "; === LONGC_VARS_START"
	markerVarsEnd      = "; === LONGC_VARS_END"
	markerProgramStart = "; === LONGC_PROGRAM_START"
	markerProgramEnd   = "; === LONGC_PROGRAM_END"
	markerStringsStart = "; === LONGC_STRINGS_START"
	markerStringsEnd   = "; === LONGC_STRINGS_END"

	stage2SectorsEquate = "STAGE2_SECTORS equ"
)
