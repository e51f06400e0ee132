package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
)

type PuzzleDbClient struct {
	client           *mongo.Client
	PuzzleCollection *mongo.Collection
}

func (r *PuzzleDbClient) Close() error {
	return r.client.Disconnect(context.TODO())
}

func NewDbClient(cfg *config.Configuration) (*PuzzleDbClient, error) {
	clientOpts := options.Client().ApplyURI(cfg.Database.Address)

	dbClient := &PuzzleDbClient{}

	client, err := mongo.Connect(context.TODO(), clientOpts)
	if err != nil {
		return nil, err
	}
	dbClient.client = client

	err = client.Ping(context.TODO(), nil)
	if err != nil {
		return nil, err
	}

	dbClient.PuzzleCollection = client.Database(cfg.Database.DatabaseName).Collection(cfg.Database.Collection)
	if dbClient.PuzzleCollection == nil {
		return nil, fmt.Errorf("can't resolve collection %s", cfg.Database.DatabaseName+"."+cfg.Database.Collection)
	}

	if err := dbClient.ensureIndexes(); err != nil {
		return nil, err
	}
	return dbClient, nil
}

// ensureIndexes indexes the fields puzzle listings filter on.
func (r *PuzzleDbClient) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.TODO(), 5*time.Second)
	defer cancel()

	_, err := r.PuzzleCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "difficulty", Value: 1}}},
		{Keys: bson.D{{Key: "themes", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}
