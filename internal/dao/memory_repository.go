package dao

import (
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

// memoryRepository keeps puzzles in process. Stored and returned puzzles
// are copies, so callers never share a tree with the store.
type memoryRepository struct {
	mu      sync.RWMutex
	puzzles map[string]puzzle.Puzzle
	order   []string
}

func NewMemoryRepository() PuzzleRepository {
	return &memoryRepository{puzzles: map[string]puzzle.Puzzle{}}
}

func (r *memoryRepository) InsertPuzzles(puzzles []puzzle.Puzzle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range puzzles {
		if _, ok := r.puzzles[p.ID]; ok {
			return fmt.Errorf("duplicate puzzle id %s", p.ID)
		}
	}
	for _, p := range puzzles {
		r.puzzles[p.ID] = p.Clone()
		r.order = append(r.order, p.ID)
	}
	return nil
}

func (r *memoryRepository) GetPuzzle(id string) (puzzle.Puzzle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.puzzles[id]
	if !ok {
		return puzzle.Puzzle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

func (r *memoryRepository) ListPuzzles(filter Filter) ([]puzzle.Puzzle, error) {
	matched := r.match(filter)
	if len(matched) > filter.limit() {
		matched = matched[:filter.limit()]
	}
	return matched, nil
}

func (r *memoryRepository) GetRandomPuzzle(filter Filter) (puzzle.Puzzle, error) {
	matched := r.match(filter)
	if len(matched) == 0 {
		return puzzle.Puzzle{}, ErrNotFound
	}
	return matched[rand.Intn(len(matched))], nil
}

func (r *memoryRepository) UpdatePuzzle(p puzzle.Puzzle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.puzzles[p.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}
	r.puzzles[p.ID] = p.Clone()
	return nil
}

// match returns copies of the matching puzzles, newest insert first.
func (r *memoryRepository) match(filter Filter) []puzzle.Puzzle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]puzzle.Puzzle, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.puzzles[r.order[i]]
		if filter.Difficulty != "" && p.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Theme != "" && !slices.Contains(p.Themes, filter.Theme) {
			continue
		}
		res = append(res, p.Clone())
	}
	return res
}
