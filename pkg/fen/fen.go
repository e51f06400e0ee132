// Package fen holds structural helpers for Forsyth-Edwards Notation strings.
// Nothing here checks chess legality; see package rules for that.
package fen

import (
	"strconv"
	"strings"
)

const StartingPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var pieceValues = map[rune]int{
	'p': 1,
	'n': 3,
	'b': 3,
	'r': 5,
	'q': 9,
}

type Material struct {
	White   int `json:"white" bson:"white"`
	Black   int `json:"black" bson:"black"`
	Balance int `json:"balance" bson:"balance"`
}

// IsValidPosition reports whether text has the six fields of a FEN record
// with a well formed placement, side to move, castling, en passant square and
// move counters.
func IsValidPosition(text string) bool {
	parts := strings.Fields(text)
	if len(parts) != 6 {
		return false
	}
	if !isValidPlacement(parts[0]) {
		return false
	}
	if parts[1] != "w" && parts[1] != "b" {
		return false
	}
	if !isValidCastling(parts[2]) {
		return false
	}
	if !isValidEnPassant(parts[3]) {
		return false
	}
	return isCounter(parts[4]) && isCounter(parts[5])
}

// MaterialBalance sums piece values for both sides. Kings are not counted.
// A malformed placement yields the zero Material.
func MaterialBalance(text string) Material {
	parts := strings.Fields(text)
	if len(parts) == 0 || !isValidPlacement(parts[0]) {
		return Material{}
	}

	var m Material
	for _, ch := range parts[0] {
		switch {
		case ch >= 'A' && ch <= 'Z':
			m.White += pieceValues[ch-'A'+'a']
		case ch >= 'a' && ch <= 'z':
			m.Black += pieceValues[ch]
		}
	}
	m.Balance = m.White - m.Black
	return m
}

// SideToMove returns "w" or "b", or "" when text is not a valid position.
func SideToMove(text string) string {
	if !IsValidPosition(text) {
		return ""
	}
	return strings.Fields(text)[1]
}

// FullMoveNumber returns the sixth field, or 0 when text is not a valid
// position.
func FullMoveNumber(text string) int {
	if !IsValidPosition(text) {
		return 0
	}
	n, _ := strconv.Atoi(strings.Fields(text)[5])
	return n
}

// IsStartingPosition compares placement, side, castling and en passant with
// the standard initial position. Move counters are ignored.
func IsStartingPosition(text string) bool {
	parts := strings.Fields(text)
	if len(parts) < 4 {
		return false
	}
	start := strings.Fields(StartingPosition)
	for i := 0; i < 4; i++ {
		if parts[i] != start[i] {
			return false
		}
	}
	return true
}

func isValidPlacement(placement string) bool {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return false
	}

	for _, rank := range ranks {
		squares := 0
		for _, ch := range rank {
			switch ch {
			case '1', '2', '3', '4', '5', '6', '7', '8':
				squares += int(ch - '0')
			case 'P', 'N', 'B', 'R', 'Q', 'K', 'p', 'n', 'b', 'r', 'q', 'k':
				squares++
			default:
				return false
			}
		}
		if squares != 8 {
			return false
		}
	}
	return true
}

func isValidCastling(field string) bool {
	if field == "" {
		return false
	}
	for _, ch := range field {
		switch ch {
		case 'K', 'Q', 'k', 'q', '-':
		default:
			return false
		}
	}
	return true
}

func isValidEnPassant(field string) bool {
	if field == "-" {
		return true
	}
	if len(field) != 2 {
		return false
	}
	return field[0] >= 'a' && field[0] <= 'h' && (field[1] == '3' || field[1] == '6')
}

func isCounter(field string) bool {
	if field == "" {
		return false
	}
	for _, ch := range field {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
