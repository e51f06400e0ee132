package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

type checkOptions struct {
	strict       bool
	mainLineOnly bool
	export       bool
	nested       bool
	workers      int
}

type fileReport struct {
	path       string
	validation puzzle.Validation
	puzzles    []puzzle.Puzzle
}

// checkFiles validates every file concurrently. Reports keep the order of
// paths; an unreadable file fails the whole run.
func checkFiles(ctx context.Context, paths []string, opts checkOptions) ([]fileReport, error) {
	reports := make([]fileReport, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if opts.workers > 0 {
		g.SetLimit(opts.workers)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text := string(data)
			r := fileReport{
				path: path,
				validation: puzzle.Validate(text, puzzle.ValidateOptions{
					RequireHeaders: opts.strict,
					MainLineOnly:   opts.mainLineOnly,
				}),
			}
			if opts.export && r.validation.IsValid {
				r.puzzles = puzzle.Import(text, puzzle.ImportOptions{MainLineOnly: opts.mainLineOnly}).Puzzles
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// printReports writes one verdict per file and reports whether all files
// are valid.
func printReports(w io.Writer, reports []fileReport, opts checkOptions) bool {
	layout := puzzle.LayoutFlat
	if opts.nested {
		layout = puzzle.LayoutNested
	}

	ok := true
	for _, r := range reports {
		if r.validation.IsValid {
			fmt.Fprintf(w, "%s: ok\n", r.path)
		} else {
			ok = false
			fmt.Fprintf(w, "%s: invalid\n", r.path)
		}
		for _, e := range r.validation.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, warn := range r.validation.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
		if len(r.puzzles) > 0 {
			fmt.Fprintln(w)
			fmt.Fprint(w, puzzle.ToPGN(r.puzzles, puzzle.ExportOptions{Layout: layout}))
		}
	}
	return ok
}
