// pgncheck validates PGN files and optionally prints them back as puzzles.
//
//	pgncheck [-strict] [-flat] [-export] [-nested] file.pgn...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
)

func main() {
	var opts checkOptions
	flag.BoolVar(&opts.strict, "strict", false, "treat missing Event, Site or Date tags as errors")
	flag.BoolVar(&opts.mainLineOnly, "flat", false, "ignore side lines")
	flag.BoolVar(&opts.export, "export", false, "print the imported puzzles as PGN")
	flag.BoolVar(&opts.nested, "nested", false, "write side lines in parentheses when exporting")
	flag.IntVar(&opts.workers, "j", runtime.NumCPU(), "files checked at once")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pgncheck [flags] file.pgn...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	reports, err := checkFiles(context.Background(), flag.Args(), opts)
	if err != nil {
		log.Fatal(err)
	}
	if !printReports(os.Stdout, reports, opts) {
		os.Exit(1)
	}
}
