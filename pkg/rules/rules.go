// Package rules adapts github.com/notnil/chess into the legality
// collaborator used by the tree builder. Every call decodes its position
// from FEN into a fresh game, so no state is shared between calls.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidPosition = errors.New("invalid position")
)

// Move is the structured description of a legal move as reported by the
// chess library.
type Move struct {
	Color     string `json:"color" bson:"color"`
	From      string `json:"from" bson:"from"`
	To        string `json:"to" bson:"to"`
	Notation  string `json:"san" bson:"san"`
	Piece     string `json:"piece" bson:"piece"`
	Captured  string `json:"captured,omitempty" bson:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty" bson:"promotion,omitempty"`
}

// UCI returns the move in long algebraic form, e.g. e7e8q.
func (m Move) UCI() string {
	return m.From + m.To + m.Promotion
}

type Result struct {
	Move     Move   `json:"move"`
	Position string `json:"fen"`
}

type Engine struct{}

func NewEngine() Engine {
	return Engine{}
}

// Apply plays a SAN move against position.
func (Engine) Apply(position string, notation string) (Result, error) {
	pos, err := decodePosition(position)
	if err != nil {
		return Result{}, err
	}
	m, err := chess.AlgebraicNotation{}.Decode(pos, notation)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, notation)
	}
	return play(pos, m), nil
}

// ApplySquares plays the move from one square to another. promotion is a
// piece letter (q, r, b, n) or empty.
func (Engine) ApplySquares(position string, from, to, promotion string) (Result, error) {
	pos, err := decodePosition(position)
	if err != nil {
		return Result{}, err
	}
	uci := strings.ToLower(from + to + promotion)
	m, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	legal := findValid(pos, m)
	if legal == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return play(pos, legal), nil
}

// Replay applies notations in order starting from start and returns the
// final position.
func (e Engine) Replay(start string, notations []string) (string, error) {
	cur := start
	for i, n := range notations {
		res, err := e.Apply(cur, n)
		if err != nil {
			return "", fmt.Errorf("ply %d: %w", i+1, err)
		}
		cur = res.Position
	}
	return cur, nil
}

func decodePosition(position string) (*chess.Position, error) {
	opt, err := chess.FEN(position)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, position)
	}
	return chess.NewGame(opt).Position(), nil
}

// UCI decoding does not check legality and leaves the check tag unset, so
// the generated move with the same squares is used instead.
func findValid(pos *chess.Position, m *chess.Move) *chess.Move {
	for _, v := range pos.ValidMoves() {
		if v.S1() == m.S1() && v.S2() == m.S2() && v.Promo() == m.Promo() {
			return v
		}
	}
	return nil
}

func play(pos *chess.Position, m *chess.Move) Result {
	board := pos.Board()
	moved := board.Piece(m.S1())

	move := Move{
		Color:    pos.Turn().String(),
		From:     m.S1().String(),
		To:       m.S2().String(),
		Notation: chess.AlgebraicNotation{}.Encode(pos, m),
		Piece:    moved.Type().String(),
	}
	if captured := board.Piece(m.S2()); captured != chess.NoPiece {
		move.Captured = captured.Type().String()
	} else if m.HasTag(chess.EnPassant) {
		move.Captured = chess.Pawn.String()
	}
	if m.Promo() != chess.NoPieceType {
		move.Promotion = m.Promo().String()
	}

	return Result{
		Move:     move,
		Position: pos.Update(m).String(),
	}
}
