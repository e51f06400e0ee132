package puzgen

import (
	"encoding/json"
	"math"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
)

// Line is one way to force mate: the attacking move, the defender's best
// answer and every attacking continuation after that answer. Answer is
// empty when Move mates.
type Line struct {
	Move          string `json:"move"`
	Answer        string `json:"answer,omitempty"`
	Continuations []Line `json:"continuations,omitempty"`
}

func (l Line) String() string {
	j, _ := json.MarshalIndent(l, "", "\t")
	return string(j)
}

// Length is the number of attacking moves on the shortest way through l.
func (l Line) Length() int {
	if len(l.Continuations) == 0 {
		return 1
	}
	var minDepth = -1
	for _, c := range l.Continuations {
		if minDepth == -1 {
			minDepth = c.Length()
		} else {
			minDepth = int(math.Min(float64(minDepth), float64(c.Length())))
		}
	}
	return minDepth + 1
}

// appendTokens writes lines as movetext tokens. The first line is played
// and every other one becomes a variation replacing its first move.
func appendTokens(toks []pgn.Token, lines []Line) []pgn.Token {
	if len(lines) == 0 {
		return toks
	}
	first := lines[0]
	toks = append(toks, pgn.Token{Kind: pgn.Move, Notation: first.Move})
	for _, alt := range lines[1:] {
		toks = append(toks, pgn.Token{Kind: pgn.VariationStart})
		toks = appendTokens(toks, []Line{alt})
		toks = append(toks, pgn.Token{Kind: pgn.VariationEnd})
	}
	if first.Answer == "" {
		return toks
	}
	toks = append(toks, pgn.Token{Kind: pgn.Move, Notation: first.Answer})
	return appendTokens(toks, first.Continuations)
}
