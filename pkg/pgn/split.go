package pgn

import (
	"strings"
)

// RawGame is one game of a PGN file, headers parsed and movetext untouched.
type RawGame struct {
	Headers  Headers
	Movetext string
}

// SplitGames cuts a PGN file into games. A tag line that follows movetext
// starts a new game. Text with no tags at all is a single game. Blank
// chunks are not games.
func SplitGames(text string) []RawGame {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		games     []RawGame
		cur       []string
		sawMoves  bool
		inComment bool
	)
	emit := func() {
		chunk := strings.Join(cur, "\n")
		cur = nil
		sawMoves = false
		if strings.TrimSpace(chunk) == "" {
			return
		}
		headers, movetext := ParseHeaders(chunk)
		games = append(games, RawGame{Headers: headers, Movetext: strings.TrimSpace(movetext)})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inComment && IsTagLine(trimmed) && sawMoves {
			emit()
		}
		cur = append(cur, line)

		if inComment || (trimmed != "" && !IsTagLine(trimmed) && !strings.HasPrefix(trimmed, "%")) {
			sawMoves = true
			inComment = openComment(line, inComment)
		}
	}
	emit()

	return games
}

// openComment tracks whether a brace comment is still open at the end of
// line, so that a tag-like line inside a multi-line comment is not taken as
// a game boundary.
func openComment(line string, open bool) bool {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '{':
			open = true
		case '}':
			open = false
		case ';':
			if !open {
				return false
			}
		}
	}
	return open
}
