// Package pgn reads Portable Game Notation text: it splits files into
// games, parses tag pairs and tokenizes movetext into moves, comments,
// variation markers and the result. It knows nothing about chess rules.
package pgn
