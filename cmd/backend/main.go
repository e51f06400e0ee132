package main

import (
	"log"
	"net"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/api"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/dao"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/db"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/scraper"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzgen"
)

func newRepository(cfg *config.Configuration) (dao.PuzzleRepository, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		client, err := db.NewDbClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return dao.NewPuzzleRepository(client), func() { client.Close() }, nil
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return dao.NewSQLiteRepository(sqlDB), func() { sqlDB.Close() }, nil
	default:
		return dao.NewMemoryRepository(), func() {}, nil
	}
}

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	repo, closeRepo, err := newRepository(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeRepo()

	var engine puzgen.Searcher
	if cfg.Stockfish.Path != "" {
		e, err := puzgen.SetupEngine(cfg.Stockfish.Path, cfg.Stockfish.Args...)
		if err != nil {
			log.Fatal(err)
		}
		defer e.Close()
		engine = e
	} else {
		log.Println("STOCKFISH_PATH is not set, engine routes are disabled")
	}

	puzzleApi := api.NewPuzzleApi(repo, cfg, engine)
	jobApi := api.NewJobApi(scraper.NewLichessImporterFactory(cfg, repo))
	r := api.NewRouter(puzzleApi, jobApi)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	log.Printf("Storage: %s, listening on %s", cfg.Storage.Driver, addr)
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
