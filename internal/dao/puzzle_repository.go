package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/db"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var ErrNotFound = errors.New("puzzle not found")

// Filter narrows ListPuzzles. Zero fields match everything.
type Filter struct {
	Difficulty puzzle.Difficulty
	Theme      string
	Limit      int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	if f.Limit > MaxLimit {
		return MaxLimit
	}
	return f.Limit
}

type PuzzleRepository interface {
	InsertPuzzles(puzzles []puzzle.Puzzle) error

	GetPuzzle(id string) (puzzle.Puzzle, error)

	// ListPuzzles returns the newest puzzles matching filter.
	ListPuzzles(filter Filter) ([]puzzle.Puzzle, error)

	GetRandomPuzzle(filter Filter) (puzzle.Puzzle, error)

	// UpdatePuzzle replaces the stored puzzle with the same id.
	UpdatePuzzle(p puzzle.Puzzle) error
}

type puzzleRepository struct {
	dbClient *db.PuzzleDbClient
}

func NewPuzzleRepository(dbClient *db.PuzzleDbClient) PuzzleRepository {
	return &puzzleRepository{dbClient}
}

func mongoFilter(filter Filter) bson.D {
	f := bson.D{}
	if filter.Difficulty != "" {
		f = append(f, bson.E{Key: "difficulty", Value: filter.Difficulty})
	}
	if filter.Theme != "" {
		f = append(f, bson.E{Key: "themes", Value: filter.Theme})
	}
	return f
}

func (r *puzzleRepository) InsertPuzzles(puzzles []puzzle.Puzzle) error {
	if len(puzzles) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	docs := make([]interface{}, 0, len(puzzles))
	for _, p := range puzzles {
		docs = append(docs, p)
	}
	_, err := r.dbClient.PuzzleCollection.InsertMany(ctx, docs)
	return err
}

func (r *puzzleRepository) GetPuzzle(id string) (puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	cur := r.dbClient.PuzzleCollection.FindOne(ctx, bson.D{{Key: "_id", Value: id}})
	var p puzzle.Puzzle
	if err := cur.Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return puzzle.Puzzle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return puzzle.Puzzle{}, err
	}
	return p, nil
}

func (r *puzzleRepository) ListPuzzles(filter Filter) ([]puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	opts.SetLimit(int64(filter.limit()))

	cur, err := r.dbClient.PuzzleCollection.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, err
	}

	puzzles := make([]puzzle.Puzzle, 0)
	if err = cur.All(ctx, &puzzles); err != nil {
		return nil, err
	}
	return puzzles, nil
}

func (r *puzzleRepository) GetRandomPuzzle(filter Filter) (puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	matchStage := bson.D{{Key: "$match", Value: mongoFilter(filter)}}
	sampleStage := bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}}

	cursor, err := r.dbClient.PuzzleCollection.Aggregate(ctx, mongo.Pipeline{matchStage, sampleStage})
	if err != nil {
		return puzzle.Puzzle{}, err
	}

	var loaded []puzzle.Puzzle
	if err = cursor.All(ctx, &loaded); err != nil {
		return puzzle.Puzzle{}, err
	}
	if len(loaded) == 0 {
		return puzzle.Puzzle{}, ErrNotFound
	}
	return loaded[0], nil
}

func (r *puzzleRepository) UpdatePuzzle(p puzzle.Puzzle) error {
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()

	res, err := r.dbClient.PuzzleCollection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}
	return nil
}
