package puzzle

import (
	"fmt"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/fen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

type ImportOptions struct {
	// MainLineOnly skips side lines, keeping only the moves actually played.
	MainLineOnly bool
	Rules        movetree.Rules
	IDs          movetree.IDSource
}

type ImportResult struct {
	Puzzles    []Puzzle `json:"puzzles"`
	Errors     []string `json:"errors"`
	TotalGames int      `json:"total_games"`
}

// game is one parsed game of a file, kept around so that validation can
// inspect the headers as well.
type game struct {
	index   int
	headers pgn.Headers
	puzzle  *Puzzle
}

// Import parses every game of a PGN file into a puzzle. Problems are
// collected in Errors; a game is dropped only when none of its moves could
// be played.
func Import(text string, opts ImportOptions) (res ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ImportResult{Puzzles: []Puzzle{}, Errors: []string{fmt.Sprintf("internal error: %v", r)}}
		}
	}()

	games, errs := importGames(text, opts)
	res = ImportResult{
		Puzzles:    make([]Puzzle, 0, len(games)),
		Errors:     errs,
		TotalGames: len(games),
	}
	for _, g := range games {
		if g.puzzle != nil {
			res.Puzzles = append(res.Puzzles, *g.puzzle)
		}
	}
	return res
}

func importGames(text string, opts ImportOptions) ([]game, []string) {
	if opts.Rules == nil {
		opts.Rules = rules.NewEngine()
	}

	raw := pgn.SplitGames(text)
	games := make([]game, 0, len(raw))
	errs := make([]string, 0)
	for i, rg := range raw {
		g, gameErrs := parseGame(i+1, rg, opts)
		games = append(games, g)
		for _, e := range gameErrs {
			errs = append(errs, fmt.Sprintf("Game %d: %s", g.index, e))
		}
	}
	return games, errs
}

func parseGame(index int, rg pgn.RawGame, opts ImportOptions) (game, []string) {
	g := game{index: index, headers: append(pgn.Headers(nil), rg.Headers...)}
	var errs []string

	start := fen.StartingPosition
	if v := g.headers.Get("FEN"); v != "" {
		if !fen.IsValidPosition(v) {
			return g, []string{"invalid FEN header: " + v}
		}
		start = v
	}

	tok := pgn.Tokenize(rg.Movetext)
	buildOpts := movetree.Options{ParseVariations: !opts.MainLineOnly, IDs: opts.IDs}
	tree, buildErrs := movetree.Build(tok.Tokens, start, opts.Rules, buildOpts)
	for _, e := range buildErrs {
		errs = append(errs, e.Error())
	}
	if tree.Len() == 0 {
		return g, append(errs, "no valid moves found")
	}

	if !g.headers.Has("Result") && tok.Result != "" {
		g.headers.Set("Result", tok.Result)
	}
	p := Assemble(g.headers, tree, g.index)
	g.puzzle = &p
	return g, errs
}
