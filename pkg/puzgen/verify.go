package puzgen

import (
	"errors"
	"strings"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

var (
	ErrEmptySolution = errors.New("puzzle has no solution moves")
	ErrNoEngineMove  = errors.New("engine returned no move")
)

// Report compares a puzzle's first solution move with the engine. Moves
// are in UCI form.
type Report struct {
	Position   string `json:"fen"`
	Expected   string `json:"expected"`
	EngineMove string `json:"engine_move"`
	Agrees     bool   `json:"agrees"`
	Mate       bool   `json:"mate"`
	Score      int    `json:"score"`
}

// VerifySolution searches the starting position of p. The solution agrees
// when its first move starts any principal variation scored as well as the
// engine's best.
func VerifySolution(p puzzle.Puzzle, s Searcher, depth int) (Report, error) {
	if p.Tree == nil {
		return Report{}, ErrEmptySolution
	}
	main := p.Tree.MainLine()
	if len(main) == 0 {
		return Report{}, ErrEmptySolution
	}
	if depth <= 0 {
		depth = DefaultDepth
	}

	r := Report{Position: p.StartingPosition, Expected: main[0].Move.UCI()}
	results, err := search(s, p.StartingPosition, depth)
	if err != nil {
		return r, err
	}
	if len(results) == 0 || len(results[0].BestMoves) == 0 {
		return r, ErrNoEngineMove
	}

	best := results[0]
	r.EngineMove = best.BestMoves[0]
	r.Mate = best.Mate
	r.Score = best.Score
	for _, res := range filterResults(results) {
		if len(res.BestMoves) > 0 && strings.EqualFold(res.BestMoves[0], r.Expected) {
			r.Agrees = true
			break
		}
	}
	return r, nil
}
