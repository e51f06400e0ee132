package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository stores puzzles in a database opened by db.OpenSQLite.
func NewSQLiteRepository(db *sql.DB) PuzzleRepository {
	return &sqliteRepository{db}
}

// themes are stored as ",fork,pin," so a single theme matches with LIKE.
func joinThemes(themes []string) string {
	if len(themes) == 0 {
		return ""
	}
	return "," + strings.Join(themes, ",") + ","
}

func (r *sqliteRepository) InsertPuzzles(puzzles []puzzle.Puzzle) error {
	if len(puzzles) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO puzzles (puzzle_id, title, difficulty, themes, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range puzzles {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode puzzle %s: %w", p.ID, err)
		}
		_, err = stmt.ExecContext(ctx, p.ID, p.Title, string(p.Difficulty), joinThemes(p.Themes), string(body), p.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert puzzle %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (r *sqliteRepository) GetPuzzle(id string) (puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM puzzles WHERE puzzle_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return puzzle.Puzzle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	return decodePuzzle(body)
}

func (r *sqliteRepository) ListPuzzles(filter Filter) ([]puzzle.Puzzle, error) {
	where, args := sqliteWhere(filter)
	query := `SELECT body FROM puzzles` + where + ` ORDER BY created_at DESC, puzzle_id LIMIT ?`
	return r.query(query, append(args, filter.limit())...)
}

func (r *sqliteRepository) GetRandomPuzzle(filter Filter) (puzzle.Puzzle, error) {
	where, args := sqliteWhere(filter)
	puzzles, err := r.query(`SELECT body FROM puzzles`+where+` ORDER BY RANDOM() LIMIT 1`, args...)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	if len(puzzles) == 0 {
		return puzzle.Puzzle{}, ErrNotFound
	}
	return puzzles[0], nil
}

func (r *sqliteRepository) UpdatePuzzle(p puzzle.Puzzle) error {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode puzzle %s: %w", p.ID, err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE puzzles SET title = ?, difficulty = ?, themes = ?, body = ?
		WHERE puzzle_id = ?`,
		p.Title, string(p.Difficulty), joinThemes(p.Themes), string(body), p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}
	return nil
}

func sqliteWhere(filter Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter.Difficulty != "" {
		conds = append(conds, "difficulty = ?")
		args = append(args, string(filter.Difficulty))
	}
	if filter.Theme != "" {
		conds = append(conds, "themes LIKE ?")
		args = append(args, "%,"+filter.Theme+",%")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *sqliteRepository) query(query string, args ...interface{}) ([]puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	puzzles := make([]puzzle.Puzzle, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		p, err := decodePuzzle(body)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, p)
	}
	return puzzles, rows.Err()
}

func decodePuzzle(body string) (puzzle.Puzzle, error) {
	var p puzzle.Puzzle
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("failed to decode puzzle: %w", err)
	}
	return p, nil
}
