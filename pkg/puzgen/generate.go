package puzgen

import (
	"fmt"

	"github.com/freeeve/uci"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/fen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

// compareResults reports whether cmpRes is as good as baseRes: the same
// mate distance, or within half a pawn.
func compareResults(baseRes uci.ScoreResult, cmpRes uci.ScoreResult) bool {
	if baseRes.Mate {
		return cmpRes.Mate && baseRes.Score == cmpRes.Score
	}
	return baseRes.Score-cmpRes.Score <= 50
}

func filterResults(results []uci.ScoreResult) []uci.ScoreResult {
	filteredResults := make([]uci.ScoreResult, 0)
	if len(results) == 0 {
		return filteredResults
	}
	baseRes := results[0]
	for _, item := range results {
		if compareResults(baseRes, item) {
			filteredResults = append(filteredResults, item)
		}
	}
	return filteredResults
}

type generator struct {
	searcher Searcher
	rules    rules.Engine
	// positions already reached by an attacking move
	watched map[string]bool
}

// MateLines asks the engine for every equally short forced mate from
// position. It returns ErrNoMate unless the side to move mates.
func MateLines(position string, s Searcher, depth int) ([]Line, error) {
	if !fen.IsValidPosition(position) {
		return nil, fmt.Errorf("%w: %s", rules.ErrInvalidPosition, position)
	}
	if depth <= 0 {
		depth = DefaultDepth
	}

	results, err := search(s, position, depth)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || !results[0].Mate || results[0].Score < 1 {
		return nil, ErrNoMate
	}

	g := &generator{searcher: s, rules: rules.NewEngine(), watched: map[string]bool{}}
	lines, err := g.lines(position, filterResults(results))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoMate
	}
	return lines, nil
}

// GeneratePuzzle turns the mating lines from position into a puzzle whose
// main line is the engine's first choice and whose side lines are the
// alternatives.
func GeneratePuzzle(position string, s Searcher, depth int) (puzzle.Puzzle, error) {
	lines, err := MateLines(position, s, depth)
	if err != nil {
		return puzzle.Puzzle{}, err
	}

	opts := movetree.DefaultOptions()
	tree, errs := movetree.Build(appendTokens(nil, lines), position, rules.NewEngine(), opts)
	if len(errs) > 0 {
		return puzzle.Puzzle{}, fmt.Errorf("engine line rejected: %w", errs[0])
	}

	mateIn := lines[0].Length()
	for _, l := range lines[1:] {
		if n := l.Length(); n < mateIn {
			mateIn = n
		}
	}

	title := fmt.Sprintf("Mate in %d", mateIn)
	headers := pgn.Headers{
		{Key: "Event", Value: title},
		{Key: "Site", Value: "Engine"},
	}
	if !fen.IsStartingPosition(position) {
		headers.Set("SetUp", "1")
		headers.Set("FEN", position)
	}

	p := puzzle.Assemble(headers, tree, 1)
	p.Title = title
	return p, nil
}

func (g *generator) lines(position string, results []uci.ScoreResult) ([]Line, error) {
	out := make([]Line, 0)
	for _, r := range results {
		l, ok, err := g.mate(position, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (g *generator) mate(position string, res uci.ScoreResult) (Line, bool, error) {
	if !res.Mate || res.Score < 1 || len(res.BestMoves) == 0 {
		return Line{}, false, nil
	}

	first, err := g.play(position, res.BestMoves[0])
	if err != nil {
		return Line{}, false, err
	}
	if g.watched[first.Position] {
		return Line{}, false, nil
	}
	g.watched[first.Position] = true

	line := Line{Move: first.Move.Notation}
	if res.Score == 1 || len(res.BestMoves) < 2 {
		return line, true, nil
	}

	answer, err := g.play(first.Position, res.BestMoves[1])
	if err != nil {
		return Line{}, false, err
	}
	line.Answer = answer.Move.Notation

	// mate in n-1 needs 2n-3 plies, one more is searched
	results, err := search(g.searcher, answer.Position, 2*(res.Score-1))
	if err != nil {
		return Line{}, false, err
	}
	line.Continuations, err = g.lines(answer.Position, filterResults(results))
	if err != nil {
		return Line{}, false, err
	}
	return line, true, nil
}

func (g *generator) play(position, move string) (rules.Result, error) {
	if len(move) < 4 {
		return rules.Result{}, fmt.Errorf("%w: %s", rules.ErrIllegalMove, move)
	}
	res, err := g.rules.ApplySquares(position, move[:2], move[2:4], move[4:])
	if err != nil {
		return rules.Result{}, fmt.Errorf("engine move: %w", err)
	}
	return res, nil
}
