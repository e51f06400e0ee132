package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/dao"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/db"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/scraper"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzgen"
)

const reconnectDelay = 5 * time.Second

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Stockfish.Path == "" {
		log.Fatal("STOCKFISH_PATH is required")
	}

	var repo dao.PuzzleRepository
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		client, err := db.NewDbClient(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()
		repo = dao.NewPuzzleRepository(client)
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			log.Fatal(err)
		}
		defer sqlDB.Close()
		repo = dao.NewSQLiteRepository(sqlDB)
	default:
		log.Fatal("the scraper needs persistent storage, set STORAGE_DRIVER to mongo or sqlite")
	}

	engine, err := puzgen.SetupEngine(cfg.Stockfish.Path, cfg.Stockfish.Args...)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer := scraper.NewLiveLichessScraper(repo, engine, cfg)
	// the feed closes from time to time; reconnect until stopped
	for ctx.Err() == nil {
		if err := analyzer.Main(ctx); err != nil {
			log.Printf("feed: %v", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
		}
	}
	log.Printf("stopped after %d puzzles", analyzer.Generated())
}
