package movetree

import (
	"errors"
	"fmt"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/fen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

// Rules decides legality. The builder never records a move it rejects.
type Rules interface {
	Apply(position, notation string) (rules.Result, error)
}

type Options struct {
	// ParseVariations builds side lines. When false, everything between
	// parentheses is skipped and only the main line is kept.
	ParseVariations bool
	IDs             IDSource
}

func DefaultOptions() Options {
	return Options{ParseVariations: true, IDs: DefaultIDs()}
}

// BuildError describes a token that could not be placed in the tree. Token
// and Position are empty for structural problems.
type BuildError struct {
	Token    string
	Position string
	Reason   string
}

func (e BuildError) Error() string {
	if e.Token == "" {
		return e.Reason
	}
	if e.Position == "" {
		return fmt.Sprintf("%s %q", e.Reason, e.Token)
	}
	return fmt.Sprintf("%s %q in position %s", e.Reason, e.Token, e.Position)
}

// frame is the cursor of one line of play.
type frame struct {
	parent   string
	position string
	last     string
}

type builder struct {
	tree    *Tree
	rules   Rules
	ids     IDSource
	errs    []BuildError
	stack   []frame
	cur     frame
	created map[int]string
}

// Build replays tokens from start and returns the resulting tree. Illegal
// moves are reported and skipped; the remaining tokens are still played, so
// a partly broken game gives a partial tree.
func Build(tokens []pgn.Token, start string, r Rules, opts Options) (*Tree, []BuildError) {
	tree := &Tree{Start: start, index: map[string]*Node{}}
	if !fen.IsValidPosition(start) {
		return tree, []BuildError{{Reason: "invalid starting position: " + start}}
	}
	if opts.IDs == nil {
		opts.IDs = DefaultIDs()
	}

	b := &builder{
		tree:    tree,
		rules:   r,
		ids:     opts.IDs,
		cur:     frame{position: start},
		created: map[int]string{},
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case pgn.Move:
			b.move(i, tok)
		case pgn.Comment:
			b.comment(tok)
		case pgn.VariationStart:
			if !opts.ParseVariations {
				i = skipVariation(tokens, i)
				continue
			}
			b.enter()
		case pgn.VariationEnd:
			b.leave()
		case pgn.Result:
		}
	}

	if len(b.stack) > 0 {
		b.errs = append(b.errs, BuildError{
			Reason: fmt.Sprintf("unbalanced parentheses: %d unclosed variation(s)", len(b.stack)),
		})
	}

	finalize(tree)
	return tree, b.errs
}

func (b *builder) move(i int, tok pgn.Token) {
	res, err := b.rules.Apply(b.cur.position, tok.Notation)
	if err != nil {
		reason := err.Error()
		switch {
		case errors.Is(err, rules.ErrIllegalMove):
			reason = "illegal move"
		case errors.Is(err, rules.ErrInvalidPosition):
			reason = "invalid position for move"
		}
		b.errs = append(b.errs, BuildError{Token: tok.Notation, Position: b.cur.position, Reason: reason})
		return
	}

	n := &Node{
		ID:            b.ids.NextID(),
		Move:          res.Move,
		PositionAfter: res.Position,
		ParentID:      b.cur.parent,
		Children:      []string{},
		MoveNumber:    fen.FullMoveNumber(b.cur.position),
		Color:         res.Move.Color,
	}
	b.tree.Nodes = append(b.tree.Nodes, n)
	b.tree.index[n.ID] = n

	if n.ParentID == "" {
		b.tree.Roots = append(b.tree.Roots, n.ID)
	} else {
		parent := b.tree.index[n.ParentID]
		parent.Children = append(parent.Children, n.ID)
	}

	b.created[i] = n.ID
	b.cur = frame{parent: n.ID, position: res.Position, last: n.ID}
}

func (b *builder) comment(tok pgn.Token) {
	if tok.Ref >= 0 {
		id, ok := b.created[tok.Ref]
		if !ok {
			// the move it belonged to was rejected
			return
		}
		n := b.tree.index[id]
		if n.Annotation != "" {
			n.Annotation += " "
		}
		n.Annotation += tok.Text
		return
	}
	if len(b.tree.Nodes) == 0 && len(b.stack) == 0 {
		if b.tree.Comment != "" {
			b.tree.Comment += " "
		}
		b.tree.Comment += tok.Text
	}
}

// enter starts a side line that replaces the last move played on the
// current line: it continues from the position before that move.
func (b *builder) enter() {
	b.stack = append(b.stack, b.cur)

	if b.cur.last == "" {
		b.cur = frame{parent: b.cur.parent, position: b.cur.position}
		return
	}
	last := b.tree.index[b.cur.last]
	position := b.tree.Start
	if last.ParentID != "" {
		position = b.tree.index[last.ParentID].PositionAfter
	}
	b.cur = frame{parent: last.ParentID, position: position}
}

func (b *builder) leave() {
	if len(b.stack) == 0 {
		b.errs = append(b.errs, BuildError{Reason: "unbalanced parentheses: unexpected variation end"})
		return
	}
	b.cur = b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
}

// skipVariation returns the index of the token closing the variation opened
// at i, or the last index when it is never closed.
func skipVariation(tokens []pgn.Token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].Kind {
		case pgn.VariationStart:
			depth++
		case pgn.VariationEnd:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens) - 1
}

// finalize recomputes main line flags, variation depth and the default
// required flags from the finished shape of the tree.
func finalize(t *Tree) {
	type item struct {
		id    string
		depth int
		main  bool
	}

	stack := make([]item, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, item{id: t.Roots[i], depth: branchDepth(0, i), main: i == 0})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := t.Node(it.id)
		if !ok {
			continue
		}
		n.Depth = it.depth
		n.IsMainLine = it.main
		n.IsRequired = it.main

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{
				id:    n.Children[i],
				depth: branchDepth(it.depth, i),
				main:  it.main && i == 0,
			})
		}
	}
}

func branchDepth(parent, childIndex int) int {
	if childIndex > 0 {
		return parent + 1
	}
	return parent
}
