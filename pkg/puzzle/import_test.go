package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

const puzzleFile = `[Event "Tactics Night"]
[Site "Club"]
[Date "2024.05.01"]

1. e4 e5 (1... c5 2. Nf3) 2. Nf3 Nc6 *

[Event "Tactics Night"]
[Site "Club"]
[Date "2024.05.01"]
[SetUp "1"]
[FEN "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"]

1. Ra8# 1-0
`

type panickingRules struct{}

func (panickingRules) Apply(string, string) (rules.Result, error) {
	panic("engine crashed")
}

func TestImportMultipleGames(t *testing.T) {
	res := Import(puzzleFile, ImportOptions{IDs: movetree.NewSequence("i")})

	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.TotalGames)
	require.Len(t, res.Puzzles, 2)

	first := res.Puzzles[0]
	assert.Equal(t, "Tactics Night #1", first.Title)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, first.Solution)
	assert.Len(t, first.Variations(), 6)
	assert.Equal(t, "*", first.Result)

	second := res.Puzzles[1]
	assert.Equal(t, "Tactics Night #2", second.Title)
	assert.Equal(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", second.StartingPosition)
	assert.Equal(t, []string{"Ra8#"}, second.Solution)
	assert.Equal(t, "1-0", second.Result)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestImportMainLineOnly(t *testing.T) {
	res := Import(puzzleFile, ImportOptions{MainLineOnly: true})
	require.Len(t, res.Puzzles, 2)
	assert.Len(t, res.Puzzles[0].Variations(), 4)
}

func TestImportCollectsErrors(t *testing.T) {
	text := "[Event \"A\"]\n1. e4 e5 2. Qh8 Nf3 *\n\n[Event \"B\"]\n1. Ke2 *\n\n[Event \"C\"]\n[FEN \"bad\"]\n1. e4 *\n"
	res := Import(text, ImportOptions{})

	assert.Equal(t, 3, res.TotalGames)
	require.Len(t, res.Puzzles, 1)
	assert.Equal(t, []string{"e4", "e5", "Nf3"}, res.Puzzles[0].Solution)

	require.Len(t, res.Errors, 4)
	assert.Contains(t, res.Errors[0], `Game 1: illegal move "Qh8"`)
	assert.Contains(t, res.Errors[1], `Game 2: illegal move "Ke2"`)
	assert.Equal(t, "Game 2: no valid moves found", res.Errors[2])
	assert.Equal(t, "Game 3: invalid FEN header: bad", res.Errors[3])
}

func TestImportEmpty(t *testing.T) {
	res := Import("", ImportOptions{})
	assert.Empty(t, res.Puzzles)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, res.TotalGames)
}

func TestImportRecoversFromRulesPanic(t *testing.T) {
	res := Import("1. e4 *", ImportOptions{Rules: panickingRules{}})
	assert.Empty(t, res.Puzzles)
	assert.Equal(t, []string{"internal error: engine crashed"}, res.Errors)
}

func TestImportKeepsCommentsAroundVariations(t *testing.T) {
	res := Import("1. e4 (1. d4 d5) {the king's pawn} 1... e5 ({Sicilian} 1... c5) *", ImportOptions{})
	require.Empty(t, res.Errors)
	require.Len(t, res.Puzzles, 1)

	annotations := map[string]string{}
	for _, n := range res.Puzzles[0].Tree.Nodes {
		annotations[n.Move.Notation] = n.Annotation
	}
	assert.Equal(t, "the king's pawn", annotations["e4"])
	assert.Equal(t, "Sicilian", annotations["c5"])
	assert.Equal(t, "", annotations["d4"])
}

func TestImportMovesWithGluedNAGs(t *testing.T) {
	res := Import("1. e4$1 e5 2. Nf3!$3 Nc6 *", ImportOptions{})
	require.Empty(t, res.Errors)
	require.Len(t, res.Puzzles, 1)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, res.Puzzles[0].Solution)
}
