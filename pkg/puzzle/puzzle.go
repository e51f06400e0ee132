// Package puzzle turns parsed games into puzzle records and back into PGN.
package puzzle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/fen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	return d == Beginner || d == Intermediate || d == Advanced
}

const (
	beginnerMaxDepth          = 3
	beginnerMaxVariations     = 5
	intermediateMaxDepth      = 6
	intermediateMaxVariations = 15
)

var ErrNodeNotFound = errors.New("node not found")

type Puzzle struct {
	ID                   string            `json:"id" bson:"_id"`
	Title                string            `json:"title" bson:"title"`
	Description          string            `json:"description" bson:"description"`
	StartingPosition     string            `json:"starting_position" bson:"starting_position"`
	Tree                 *movetree.Tree    `json:"tree" bson:"tree"`
	Solution             []string          `json:"solution" bson:"solution"`
	Difficulty           Difficulty        `json:"difficulty" bson:"difficulty"`
	Themes               []string          `json:"themes" bson:"themes"`
	RequiredVariationIDs []string          `json:"required_variation_ids" bson:"required_variation_ids"`
	Metadata             map[string]string `json:"metadata" bson:"metadata"`
	Result               string            `json:"result" bson:"result"`
	CreatedAt            time.Time         `json:"created_at" bson:"created_at"`
}

// Assemble builds the puzzle for the gameIndex-th game (1-based) of a file.
func Assemble(headers pgn.Headers, tree *movetree.Tree, gameIndex int) Puzzle {
	p := Puzzle{
		ID:               uuid.NewString(),
		Title:            title(headers, gameIndex),
		Description:      describe(headers, tree),
		StartingPosition: tree.Start,
		Tree:             tree,
		Difficulty:       RateDifficulty(tree.Len(), tree.MaxDepth()),
		Themes:           Themes(headers, tree),
		Metadata:         headers.Map(),
		Result:           headers.Get("Result"),
		CreatedAt:        time.Now().UTC(),
	}
	for _, n := range tree.MainLine() {
		p.Solution = append(p.Solution, n.Move.Notation)
	}
	p.SyncRequired()
	return p
}

// RateDifficulty maps the size of a tree to a difficulty. variationCount is
// the number of moves in the tree, maxDepth the deepest side line nesting.
func RateDifficulty(variationCount, maxDepth int) Difficulty {
	switch {
	case maxDepth <= beginnerMaxDepth && variationCount <= beginnerMaxVariations:
		return Beginner
	case maxDepth <= intermediateMaxDepth && variationCount <= intermediateMaxVariations:
		return Intermediate
	default:
		return Advanced
	}
}

var motifs = []string{"fork", "pin", "skewer", "discovered", "sacrifice", "mate", "promotion", "endgame"}

// Themes tags a puzzle from keywords in its moves and comments, castling
// and captures in the notation, and the Opening and ECO headers. Tags keep
// the order they were found in and appear once.
func Themes(headers pgn.Headers, tree *movetree.Tree) []string {
	var notation, comments []string
	for _, n := range tree.Nodes {
		notation = append(notation, n.Move.Notation)
		if n.Annotation != "" {
			comments = append(comments, n.Annotation)
		}
	}
	if tree.Comment != "" {
		comments = append(comments, tree.Comment)
	}
	moves := strings.Join(notation, " ")
	text := strings.ToLower(moves + " " + strings.Join(comments, " "))

	themes := make([]string, 0)
	add := func(tag string) {
		for _, t := range themes {
			if t == tag {
				return
			}
		}
		themes = append(themes, tag)
	}

	for _, m := range motifs {
		if strings.Contains(text, m) || (m == "mate" && strings.Contains(moves, "#")) {
			add(m)
		}
	}
	if strings.Contains(moves, "O-O") {
		add("castling")
	}
	if strings.Contains(moves, "x") {
		add("tactics")
	}
	if headers.Get("Opening") != "" {
		add("opening")
	}
	if headers.Get("ECO") != "" {
		add("eco")
	}
	return themes
}

// Clone returns a copy sharing no mutable state with p.
func (p Puzzle) Clone() Puzzle {
	c := p
	if p.Tree != nil {
		c.Tree = p.Tree.Clone()
	}
	c.Solution = slices.Clone(p.Solution)
	c.Themes = slices.Clone(p.Themes)
	c.RequiredVariationIDs = slices.Clone(p.RequiredVariationIDs)
	if p.Metadata != nil {
		c.Metadata = make(map[string]string, len(p.Metadata))
		maps.Copy(c.Metadata, p.Metadata)
	}
	return c
}

func (p *Puzzle) Variations() []*movetree.Node {
	if p.Tree == nil {
		return nil
	}
	return p.Tree.Nodes
}

// SetRequired flips the required flag of one node and resyncs
// RequiredVariationIDs from the flags.
func (p *Puzzle) SetRequired(nodeID string, required bool) error {
	n, err := p.node(nodeID)
	if err != nil {
		return err
	}
	n.IsRequired = required
	p.SyncRequired()
	return nil
}

func (p *Puzzle) SetAnnotation(nodeID string, text string) error {
	n, err := p.node(nodeID)
	if err != nil {
		return err
	}
	n.Annotation = strings.TrimSpace(text)
	return nil
}

// SyncRequired rebuilds RequiredVariationIDs from the node flags, which are
// authoritative.
func (p *Puzzle) SyncRequired() {
	ids := make([]string, 0)
	for _, n := range p.Variations() {
		if n.IsRequired {
			ids = append(ids, n.ID)
		}
	}
	p.RequiredVariationIDs = ids
}

func (p *Puzzle) node(id string) (*movetree.Node, error) {
	if p.Tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n, ok := p.Tree.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

func title(headers pgn.Headers, gameIndex int) string {
	if event := known(headers.Get("Event")); event != "" {
		return fmt.Sprintf("%s #%d", event, gameIndex)
	}
	return fmt.Sprintf("Puzzle %d", gameIndex)
}

func describe(headers pgn.Headers, tree *movetree.Tree) string {
	if tree.Comment != "" {
		return tree.Comment
	}

	side := "White"
	if fen.SideToMove(tree.Start) == "b" {
		side = "Black"
	}
	toMove := side + " to move."

	white, black := known(headers.Get("White")), known(headers.Get("Black"))
	if white == "" || black == "" {
		return toMove
	}
	players := white + " vs " + black
	if date := known(headers.Get("Date")); date != "" {
		players += " (" + date + ")"
	}
	return players + ". " + toMove
}

// known treats the PGN placeholder "?" and partial dates as missing.
func known(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "?" || strings.HasPrefix(v, "????") {
		return ""
	}
	return v
}
