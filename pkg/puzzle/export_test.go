package puzzle

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
}

func TestToPGNDefaults(t *testing.T) {
	res := Import("1. e4 e5 2. Nf3 Nc6 *", ImportOptions{})
	require.Len(t, res.Puzzles, 1)

	out := ToPGN(res.Puzzles, ExportOptions{Now: fixedNow})
	want := `[Event "Chess Puzzle"]
[Site "LearnSpark"]
[Date "2024.06.02"]
[Round "1"]
[White "Student"]
[Black "Computer"]
[Result "*"]
[Difficulty "beginner"]

1. e4 e5 2. Nf3 Nc6 *
`
	assert.Equal(t, want, out)
}

func TestToPGNMetadataAndSetUp(t *testing.T) {
	res := Import(puzzleFile, ImportOptions{})
	require.Len(t, res.Puzzles, 2)
	p := res.Puzzles[1]
	p.Metadata["Opening"] = "Back rank"

	out := ToPGN([]Puzzle{p}, ExportOptions{Now: fixedNow})
	assert.True(t, strings.HasPrefix(out, "[Event \"Tactics Night\"]\n[Site \"Club\"]\n[Date \"2024.05.01\"]\n[Round \"1\"]\n"))
	assert.Contains(t, out, "[Result \"1-0\"]\n[SetUp \"1\"]\n[FEN \"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1\"]\n")
	assert.Contains(t, out, "[Themes \"mate\"]\n[Opening \"Back rank\"]\n")
	assert.Equal(t, 1, strings.Count(out, "[FEN "))
	assert.True(t, strings.HasSuffix(out, "\n1. Ra8# 1-0\n"))
}

func TestToPGNFlatWalk(t *testing.T) {
	res := Import("1. e4 {center} e5 (1... c5 2. Nf3) 2. Nf3 *", ImportOptions{})
	require.Len(t, res.Puzzles, 1)

	out := ToPGN(res.Puzzles, ExportOptions{Now: fixedNow})
	assert.True(t, strings.HasSuffix(out, "\n1. e4 {center} e5 c5 2. Nf3 2. Nf3 *\n"), out)
}

func TestToPGNNestedRoundTrip(t *testing.T) {
	text := "{Study} 1. e4 (1. d4 d5) 1... e5 {solid} (1... c5 2. Nf3 (2. c3) 2... d6) 2. Nf3 Nc6 *"
	res := Import(text, ImportOptions{})
	require.Empty(t, res.Errors)
	require.Len(t, res.Puzzles, 1)
	original := res.Puzzles[0]

	out := ToPGN(res.Puzzles, ExportOptions{Layout: LayoutNested, Now: fixedNow})
	assert.Contains(t, strings.Join(strings.Fields(out), " "), "{Study} 1. e4 (1. d4 d5) 1... e5 {solid} (1... c5 2. Nf3 (2. c3) 2... d6) 2. Nf3 Nc6 *")

	again := Import(out, ImportOptions{})
	require.Empty(t, again.Errors)
	require.Len(t, again.Puzzles, 1)
	copied := again.Puzzles[0]

	assert.Equal(t, original.Solution, copied.Solution)
	require.Equal(t, original.Tree.Len(), copied.Tree.Len())
	for i, n := range original.Tree.Nodes {
		c := copied.Tree.Nodes[i]
		assert.Equal(t, n.Move, c.Move)
		assert.Equal(t, n.PositionAfter, c.PositionAfter)
		assert.Equal(t, n.Depth, c.Depth)
		assert.Equal(t, n.IsMainLine, c.IsMainLine)
		assert.Equal(t, n.Annotation, c.Annotation)
		assert.Equal(t, len(n.Children), len(c.Children))
	}
	assert.Equal(t, original.Description, copied.Description)
}

func TestToPGNWrapsLongLines(t *testing.T) {
	text := "1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 4. Ba4 Nf6 5. O-O Be7 6. Re1 b5 7. Bb3 d6 8. c3 O-O 9. h3 Nb8 10. d4 Nbd7 *"
	res := Import(text, ImportOptions{})
	require.Len(t, res.Puzzles, 1)

	out := ToPGN(res.Puzzles, ExportOptions{Now: fixedNow})
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 79, line)
	}
	again := Import(out, ImportOptions{})
	assert.Equal(t, res.Puzzles[0].Solution, again.Puzzles[0].Solution)
}

func TestToPGNSeveralPuzzles(t *testing.T) {
	res := Import(puzzleFile, ImportOptions{})
	out := ToPGN(res.Puzzles, ExportOptions{Now: fixedNow})

	assert.Equal(t, 2, strings.Count(out, "[Event "))
	assert.Contains(t, out, "[Round \"2\"]")
	assert.Equal(t, "", ToPGN(nil, ExportOptions{}))
	assert.Equal(t, LayoutNested, ParseLayout("Nested"))
	assert.Equal(t, LayoutFlat, ParseLayout(""))
}

func TestToPGNLeadingCommentInBothLayouts(t *testing.T) {
	res := Import("{White to play} 1. e4 e5 *", ImportOptions{})
	require.Len(t, res.Puzzles, 1)

	for _, layout := range []Layout{LayoutFlat, LayoutNested} {
		out := ToPGN(res.Puzzles, ExportOptions{Layout: layout, Now: fixedNow})
		assert.True(t, strings.HasSuffix(out, "\n{White to play} 1. e4 e5 *\n"), out)

		again := Import(out, ImportOptions{})
		require.Len(t, again.Puzzles, 1)
		assert.Equal(t, "White to play", again.Puzzles[0].Tree.Comment)
	}
}
