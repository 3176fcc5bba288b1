// Command longc ahead-of-time compiles a Long source program to a bootable
// floppy image, following xyproto-flapc/main.go's flag-parsing and
// top-level failure-reporting shape.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BlackMegaLogan/LONG/internal/asmemit"
	"github.com/BlackMegaLogan/LONG/internal/compiler"
	"github.com/BlackMegaLogan/LONG/internal/config"
	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/lexer"
	"github.com/BlackMegaLogan/LONG/internal/loader"
)

func main() {
	var verbose bool
	flag.BoolVar(&verbose, "v", false, "enable verbose [DEBUG] diagnostics")
	flag.BoolVar(&verbose, "verbose", false, "alias for -v")
	fsPath := flag.String("fs", "", "override the block/file store's JSON path")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-v|-verbose] [-fs path] prog.long [out.{bin,img}]\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}
	srcPath := flag.Arg(0)

	sink := diag.NewSink(verbose)
	cfg := config.Load()
	if *fsPath != "" {
		cfg.FSPath = *fsPath
	}
	outPath := cfg.DefaultBootImage()
	if flag.NArg() == 2 {
		outPath = flag.Arg(1)
	}

	f, err := os.Open(srcPath)
	if err != nil {
		log.Fatalf("longc: %v", err)
	}
	defer f.Close()

	lines, err := lexer.Scan(f)
	if err != nil {
		log.Fatalf("longc: %v", err)
	}
	prog, err := loader.Load(lines, sink)
	if err != nil {
		sink.Report(err)
		os.Exit(1)
	}

	out, err := compiler.Compile(prog, sink)
	if err != nil {
		sink.Report(err)
		os.Exit(1)
	}

	asm := asmemit.ExternalAssembler{Name: cfg.Assembler}
	if err := asmemit.Link(out, asm, cfg.BuildDir, outPath); err != nil {
		sink.Report(err)
		os.Exit(1)
	}
}
