package puzzle

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/fen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
)

// Layout selects how the move tree is written.
type Layout int

const (
	// LayoutFlat writes every node in stored order without parentheses.
	// Side lines come out inline, so the text does not replay as one game.
	LayoutFlat Layout = iota
	// LayoutNested writes the main line with side lines in parentheses
	// after the move they replace. It imports back to the same tree.
	LayoutNested
)

func ParseLayout(s string) Layout {
	if strings.EqualFold(s, "nested") {
		return LayoutNested
	}
	return LayoutFlat
}

const (
	dateLayout = "2006.01.02"
	lineWidth  = 79
)

var rosterDefaults = []pgn.TagPair{
	{Key: "Event", Value: "Chess Puzzle"},
	{Key: "Site", Value: "LearnSpark"},
	{Key: "Date", Value: ""},
	{Key: "Round", Value: ""},
	{Key: "White", Value: "Student"},
	{Key: "Black", Value: "Computer"},
	{Key: "Result", Value: "*"},
}

// tags written by the exporter itself, never copied from metadata
var generatedTags = map[string]bool{
	"SetUp":      true,
	"FEN":        true,
	"Difficulty": true,
	"Themes":     true,
}

type ExportOptions struct {
	Layout Layout
	Now    func() time.Time
}

// ToPGN writes puzzles as PGN games in the given order.
func ToPGN(puzzles []Puzzle, opts ExportOptions) string {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	games := make([]string, 0, len(puzzles))
	for i, p := range puzzles {
		var b strings.Builder
		writeHeaders(&b, p, i+1, opts.Now())
		b.WriteString("\n")
		writeMovetext(&b, p, opts.Layout)
		games = append(games, b.String())
	}
	return strings.Join(games, "\n")
}

func writeHeaders(b *strings.Builder, p Puzzle, ordinal int, now time.Time) {
	meta := make(map[string]string, len(p.Metadata))
	maps.Copy(meta, p.Metadata)
	if meta["Result"] == "" && p.Result != "" {
		meta["Result"] = p.Result
	}

	var headers pgn.Headers
	for _, tag := range rosterDefaults {
		value := meta[tag.Key]
		if value == "" {
			switch tag.Key {
			case "Date":
				value = now.Format(dateLayout)
			case "Round":
				value = strconv.Itoa(ordinal)
			default:
				value = tag.Value
			}
		}
		headers.Set(tag.Key, value)
	}

	if !fen.IsStartingPosition(p.StartingPosition) {
		headers.Set("SetUp", "1")
		headers.Set("FEN", p.StartingPosition)
	}
	if p.Difficulty != "" {
		headers.Set("Difficulty", string(p.Difficulty))
	}
	if len(p.Themes) > 0 {
		headers.Set("Themes", strings.Join(p.Themes, ","))
	}

	extra := make([]string, 0)
	for key := range meta {
		if !headers.Has(key) && !generatedTags[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		headers.Set(key, meta[key])
	}

	for _, tag := range headers {
		b.WriteString("[" + tag.Key + " \"" + pgn.Escape(tag.Value) + "\"]\n")
	}
}

func writeMovetext(b *strings.Builder, p Puzzle, layout Layout) {
	w := &movetextWriter{b: b}
	if p.Tree != nil {
		if p.Tree.Comment != "" {
			w.comment(p.Tree.Comment)
		}
		switch layout {
		case LayoutNested:
			w.line(p.Tree, p.Tree.Roots)
		default:
			for _, n := range p.Tree.Nodes {
				w.move(n, false)
			}
		}
	}

	result := p.Result
	if result == "" {
		result = "*"
	}
	w.token(result)
	b.WriteString("\n")
}

type movetextWriter struct {
	b    *strings.Builder
	col  int
	glue bool
}

// token writes s separated by a space, wrapping long lines. A token that
// follows an opening bracket is glued to it.
func (w *movetextWriter) token(s string) {
	if !w.glue && w.col > 0 {
		if w.col+1+len(s) > lineWidth {
			w.b.WriteString("\n")
			w.col = 0
		} else {
			w.b.WriteString(" ")
			w.col++
		}
	}
	w.glue = false
	w.b.WriteString(s)
	w.col += len(s)
}

func (w *movetextWriter) open(bracket string) {
	w.token(bracket)
	w.glue = true
}

func (w *movetextWriter) close(bracket string) {
	w.b.WriteString(bracket)
	w.col += len(bracket)
}

// move writes a node. White moves always carry their number; black moves
// only when forced, i.e. at the start of a line or after a side line.
func (w *movetextWriter) move(n *movetree.Node, force bool) {
	switch {
	case n.Color == "w":
		w.token(strconv.Itoa(n.MoveNumber) + ". " + n.Move.Notation)
	case force:
		w.token(strconv.Itoa(n.MoveNumber) + "... " + n.Move.Notation)
	default:
		w.token(n.Move.Notation)
	}
	if n.Annotation != "" {
		w.comment(n.Annotation)
	}
}

func (w *movetextWriter) comment(text string) {
	words := strings.Fields(strings.NewReplacer("{", "(", "}", ")").Replace(text))
	if len(words) == 0 {
		return
	}
	w.open("{")
	for _, word := range words {
		w.token(word)
	}
	w.close("}")
}

// line writes siblings[0] and its continuation, each alternative in
// parentheses right after the move it replaces.
func (w *movetextWriter) line(t *movetree.Tree, siblings []string) {
	force := true
	for len(siblings) > 0 {
		n, ok := t.Node(siblings[0])
		if !ok {
			return
		}
		w.move(n, force)
		force = false

		for _, alt := range siblings[1:] {
			w.open("(")
			w.line(t, []string{alt})
			w.close(")")
			force = true
		}
		siblings = n.Children
	}
}
