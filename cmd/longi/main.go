// Command longi interprets a Long source program with the tree-walking
// runtime, following xyproto-flapc/main.go's flag-parsing and top-level
// failure-reporting shape.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BlackMegaLogan/LONG/internal/config"
	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/interp"
	"github.com/BlackMegaLogan/LONG/internal/lexer"
	"github.com/BlackMegaLogan/LONG/internal/loader"
)

func main() {
	var verbose bool
	flag.BoolVar(&verbose, "v", false, "enable verbose [DEBUG] diagnostics")
	flag.BoolVar(&verbose, "verbose", false, "alias for -v")
	fsPath := flag.String("fs", "", "override the block/file store's JSON path")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-v|-verbose] [-fs path] prog.long\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	srcPath := flag.Arg(0)

	sink := diag.NewSink(verbose)
	cfg := config.Load()
	if *fsPath != "" {
		cfg.FSPath = *fsPath
	}

	f, err := os.Open(srcPath)
	if err != nil {
		log.Fatalf("longi: %v", err)
	}
	defer f.Close()

	lines, err := lexer.Scan(f)
	if err != nil {
		log.Fatalf("longi: %v", err)
	}
	prog, err := loader.Load(lines, sink)
	if err != nil {
		log.Fatalf("longi: %v", err)
	}

	it, err := interp.New(prog, cfg, sink)
	if err != nil {
		log.Fatalf("longi: %v", err)
	}
	if err := it.Run(); err != nil {
		log.Fatalf("longi: %v", err)
	}
}
