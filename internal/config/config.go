// Package config resolves the toolchain's environment-overridable paths and
// tool names, following the teacher's cache/env resolution convention: check
// an override variable first, fall back to a repo-relative default.
package config

import (
	"path/filepath"

	"github.com/xyproto/env/v2"
)

const (
	envFSPath    = "LONG_FS_PATH"
	envHWLogPath = "LONG_HW_LOG_PATH"
	envBuildDir  = "LONG_BUILD_DIR"
	envAssembler = "LONG_ASSEMBLER"
	envColumns   = "COLUMNS"
)

// Config holds every path/tool name the toolchain needs outside of the
// explicit CLI arguments.
type Config struct {
	FSPath    string
	HWLogPath string
	BuildDir  string
	Assembler string
}

// Load resolves configuration from the environment, defaulting every value
// relative to the current working directory.
func Load() *Config {
	return &Config{
		FSPath:    env.Str(envFSPath, filepath.Join("build", "long_fs.json")),
		HWLogPath: env.Str(envHWLogPath, filepath.Join("build", "hardware.log")),
		BuildDir:  env.Str(envBuildDir, "build"),
		Assembler: env.Str(envAssembler, "nasm"),
	}
}

// DefaultBootImage returns the compiler's default output path when none is
// given on the command line.
func (c *Config) DefaultBootImage() string {
	return filepath.Join(c.BuildDir, "boot.img")
}

// TerminalColumns resolves the terminal width used by FillLine/FillLines,
// defaulting to 80 when COLUMNS is unset or unparsable.
func TerminalColumns() int {
	return env.Int(envColumns, 80)
}
