// Package puzgen runs a UCI engine over puzzle positions: it builds forced
// mate puzzles from the engine's lines and checks stored solutions against
// the engine's choice.
package puzgen

import (
	"errors"

	"github.com/freeeve/uci"
)

const (
	DefaultDepth = 10
	multiPV      = 10
)

var ErrNoMate = errors.New("no forced mate found")

// Searcher is the part of *uci.Engine used here.
type Searcher interface {
	SetFEN(fen string) error
	GoDepth(depth int, resultOpts ...uint) (*uci.Results, error)
}

// SetupEngine starts the engine binary at path with several principal
// variations, so alternative mating moves are reported too.
func SetupEngine(path string, arg ...string) (*uci.Engine, error) {
	e, err := uci.NewEngine(path, arg...)
	if err != nil {
		return nil, err
	}

	err = e.SetOptions(uci.Options{
		MultiPV: multiPV,
		Hash:    128,
		Ponder:  false,
		OwnBook: true,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func search(s Searcher, position string, depth int) ([]uci.ScoreResult, error) {
	if err := s.SetFEN(position); err != nil {
		return nil, err
	}
	res, err := s.GoDepth(depth)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.Results, nil
}
