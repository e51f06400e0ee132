package pgn

import (
	"regexp"
	"strings"
)

type TokenKind int

const (
	Move TokenKind = iota
	Comment
	VariationStart
	VariationEnd
	Result
)

func (k TokenKind) String() string {
	switch k {
	case Move:
		return "move"
	case Comment:
		return "comment"
	case VariationStart:
		return "variation-start"
	case VariationEnd:
		return "variation-end"
	case Result:
		return "result"
	}
	return "unknown"
}

// Token is one element of tokenized movetext. Notation is set for Move
// tokens, Text for Comment and Result tokens. Ref is the index of the Move
// token a comment belongs to, or -1 for a comment before the first move of
// the game or inside a variation with no moves. A comment after a closed variation belongs to the move the
// variation branched from; a comment opening a variation is placed after
// the first move of that variation. Depth is the parenthesis depth the
// token was read at.
type Token struct {
	Kind     TokenKind
	Notation string
	Text     string
	Ref      int
	Depth    int
}

type Tokenized struct {
	Tokens []Token
	Result string
}

// Moves returns the notations of all move tokens, variations included.
func (t Tokenized) Moves() []string {
	moves := make([]string, 0, len(t.Tokens))
	for _, tok := range t.Tokens {
		if tok.Kind == Move {
			moves = append(moves, tok.Notation)
		}
	}
	return moves
}

var (
	sanPattern = regexp.MustCompile(`^(?:[NBRQK][a-h]?[1-8]?x?[a-h][1-8]|[a-h](?:x[a-h])?[1-8](?:=[NBRQ])?|O-O(?:-O)?)[+#]?$`)

	moveNumberPattern = regexp.MustCompile(`^[0-9]+\.+`)
	nagPattern        = regexp.MustCompile(`^\$[0-9]+$`)
	bareNumberPattern = regexp.MustCompile(`^[0-9]+$`)
	promotionPattern  = regexp.MustCompile(`^([a-h](?:x[a-h])?[18])([NBRQ])`)
)

var results = map[string]bool{
	"1-0":     true,
	"0-1":     true,
	"1/2-1/2": true,
	"*":       true,
}

// IsResult reports whether s is a game termination marker.
func IsResult(s string) bool {
	return results[s]
}

// Tokenize turns movetext into tokens. Tag pairs are skipped if present.
// Anything that is not a comment, a parenthesis, a result or something
// shaped like a SAN move is dropped; legality is not checked here.
func Tokenize(movetext string) Tokenized {
	lx := lexer{lastMove: -1}
	lx.run(movetext)
	return Tokenized{Tokens: lx.tokens, Result: lx.result}
}

type lexer struct {
	tokens   []Token
	result   string
	depth    int
	lastMove int

	// last move of each enclosing line
	outer []int
	// comments read at the start of a variation, waiting for its first move
	leading []string
}

func (lx *lexer) run(text string) {
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			lx.word(word.String())
			word.Reset()
		}
	}

	lineStart := true
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '%' && lineStart:
			// escape line
			for i < len(text) && text[i] != '\n' {
				i++
			}
			lineStart = true
			continue
		case ch == '[' && lineStart:
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				i = len(text)
			} else {
				i += end
			}
			continue
		case ch == '{':
			flush()
			end := strings.IndexByte(text[i+1:], '}')
			var body string
			if end < 0 {
				body = text[i+1:]
				i = len(text)
			} else {
				body = text[i+1 : i+1+end]
				i += end + 1
			}
			lx.comment(body)
		case ch == ';':
			flush()
			end := strings.IndexByte(text[i+1:], '\n')
			if end < 0 {
				lx.comment(text[i+1:])
				i = len(text)
			} else {
				lx.comment(text[i+1 : i+1+end])
				i += end
			}
		case ch == '(':
			flush()
			lx.flushLeading()
			lx.tokens = append(lx.tokens, Token{Kind: VariationStart, Ref: -1, Depth: lx.depth})
			lx.depth++
			lx.outer = append(lx.outer, lx.lastMove)
			lx.lastMove = -1
		case ch == ')':
			flush()
			lx.flushLeading()
			if lx.depth > 0 {
				lx.depth--
			}
			lx.tokens = append(lx.tokens, Token{Kind: VariationEnd, Ref: -1, Depth: lx.depth})
			if n := len(lx.outer); n > 0 {
				lx.lastMove = lx.outer[n-1]
				lx.outer = lx.outer[:n-1]
			}
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			flush()
		default:
			word.WriteByte(ch)
		}
		lineStart = ch == '\n'
	}
	flush()
	lx.flushLeading()
}

func (lx *lexer) comment(body string) {
	text := strings.Join(strings.Fields(body), " ")
	if text == "" {
		return
	}
	if lx.lastMove < 0 && len(lx.outer) > 0 {
		lx.leading = append(lx.leading, text)
		return
	}
	lx.appendComment(text)
}

func (lx *lexer) appendComment(text string) {
	if lx.lastMove >= 0 {
		// consecutive comments on one move are merged
		prev := &lx.tokens[len(lx.tokens)-1]
		if prev.Kind == Comment && prev.Ref == lx.lastMove {
			prev.Text += " " + text
			return
		}
	}
	lx.tokens = append(lx.tokens, Token{Kind: Comment, Text: text, Ref: lx.lastMove, Depth: lx.depth})
}

func (lx *lexer) word(w string) {
	if IsResult(w) {
		lx.result = w
		lx.tokens = append(lx.tokens, Token{Kind: Result, Text: w, Ref: -1, Depth: lx.depth})
		return
	}

	// a NAG glued to its move
	if i := strings.IndexByte(w, '$'); i > 0 {
		w = w[:i]
	}
	w = moveNumberPattern.ReplaceAllString(w, "")
	if w == "" || nagPattern.MatchString(w) || bareNumberPattern.MatchString(w) {
		return
	}

	san := normalize(w)
	if !sanPattern.MatchString(san) {
		return
	}
	lx.lastMove = len(lx.tokens)
	lx.tokens = append(lx.tokens, Token{Kind: Move, Notation: san, Ref: -1, Depth: lx.depth})
	if len(lx.leading) > 0 {
		lx.appendComment(strings.Join(lx.leading, " "))
		lx.leading = nil
	}
}

// flushLeading emits comments of a variation that ended before any move.
// They belong to no move.
func (lx *lexer) flushLeading() {
	if len(lx.leading) == 0 {
		return
	}
	lx.tokens = append(lx.tokens, Token{Kind: Comment, Text: strings.Join(lx.leading, " "), Ref: -1, Depth: lx.depth})
	lx.leading = nil
}

// normalize strips suffix glyphs and rewrites zero castling and promotions
// without "=".
func normalize(w string) string {
	w = strings.TrimRight(w, "!?")
	w = strings.TrimSuffix(w, "e.p.")
	w = strings.TrimRight(w, "!?")

	suffix := ""
	if strings.HasSuffix(w, "+") || strings.HasSuffix(w, "#") {
		suffix = w[len(w)-1:]
		w = w[:len(w)-1]
	}

	switch w {
	case "0-0":
		w = "O-O"
	case "0-0-0":
		w = "O-O-O"
	}
	w = promotionPattern.ReplaceAllString(w, "$1=$2")
	return w + suffix
}
