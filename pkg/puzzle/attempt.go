package puzzle

import (
	"strings"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
)

// Attempt is how far a sequence of moves got through a puzzle.
type Attempt struct {
	Correct   int      `json:"correct"`
	Remaining int      `json:"remaining"`
	Completed bool     `json:"completed"`
	Percent   float64  `json:"percent"`
	Expected  []string `json:"expected,omitempty"`
}

// CheckAttempt follows moves through the tree. Where some continuation is
// required only required nodes are accepted; otherwise any stored
// continuation is. It stops at the first move that matches nothing.
func (p *Puzzle) CheckAttempt(moves []string) Attempt {
	var a Attempt
	if p.Tree == nil {
		return a
	}

	candidates := accepted(p.Tree, p.Tree.Roots)
	for _, m := range moves {
		next := match(candidates, m)
		if next == nil {
			break
		}
		a.Correct++
		candidates = accepted(p.Tree, next.Children)
	}

	for _, n := range candidates {
		a.Expected = append(a.Expected, n.Move.Notation)
	}
	a.Remaining = minRemaining(p.Tree, candidates)
	a.Completed = a.Remaining == 0 && a.Correct > 0
	if total := a.Correct + a.Remaining; total > 0 {
		a.Percent = float64(a.Correct) / float64(total)
	}
	return a
}

// EstimateRating moves a player rating by the attempt score. Puzzle and
// player are assumed equally rated, so the expected score is one half.
func EstimateRating(playerRating int, a Attempt) int {
	const expected = 0.5
	return playerRating + int(float64(ratingCoeff(playerRating))*(a.Percent-expected))
}

func ratingCoeff(rating int) int {
	if rating >= 2400 {
		return 10
	}
	if rating >= 2000 {
		return 20
	}
	return 40
}

func accepted(t *movetree.Tree, ids []string) []*movetree.Node {
	var all, required []*movetree.Node
	for _, id := range ids {
		n, ok := t.Node(id)
		if !ok {
			continue
		}
		all = append(all, n)
		if n.IsRequired {
			required = append(required, n)
		}
	}
	if len(required) > 0 {
		return required
	}
	return all
}

func match(nodes []*movetree.Node, move string) *movetree.Node {
	move = bareSAN(move)
	for _, n := range nodes {
		if bareSAN(n.Move.Notation) == move || strings.EqualFold(n.Move.UCI(), move) {
			return n
		}
	}
	return nil
}

func bareSAN(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "+#!?")
}

// minRemaining is the length of the shortest accepted line from nodes to
// its end.
func minRemaining(t *movetree.Tree, nodes []*movetree.Node) int {
	if len(nodes) == 0 {
		return 0
	}
	shortest := -1
	for _, n := range nodes {
		d := 1 + minRemaining(t, accepted(t, n.Children))
		if shortest == -1 || d < shortest {
			shortest = d
		}
	}
	return shortest
}
