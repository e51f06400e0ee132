package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/dao"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/pgn"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzgen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

// livePosition is a position of the featured game together with the tags
// describing that game.
type livePosition struct {
	fen  string
	game string
	tags pgn.Headers
}

// LiveLichessScraper watches the lichess TV feed and stores a mate puzzle
// for every featured position where the side to move has a forced mate.
type LiveLichessScraper struct {
	puzzleRepo dao.PuzzleRepository
	engine     puzgen.Searcher
	depth      int
	feedURL    string
	client     *http.Client

	generated atomic.Int64
}

func NewLiveLichessScraper(repository dao.PuzzleRepository, engine puzgen.Searcher, cfg *config.Configuration) *LiveLichessScraper {
	return &LiveLichessScraper{
		puzzleRepo: repository,
		engine:     engine,
		depth:      cfg.Stockfish.Depth,
		feedURL:    strings.TrimRight(cfg.Lichess.URL, "/") + "/api/tv/feed",
		client:     &http.Client{},
	}
}

// Generated is the number of puzzles stored so far.
func (l *LiveLichessScraper) Generated() int64 {
	return l.generated.Load()
}

// Main reads the feed until it ends or ctx is cancelled. Positions are
// analysed one at a time on a separate goroutine, so the engine is never
// shared; Main returns after the last queued position is done.
func (l *LiveLichessScraper) Main(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.feedURL, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		log.Println("Req error:" + err.Error())
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lichess feed answered %d", resp.StatusCode)
	}

	// heuristic size: the feed never gets 100 moves ahead of one analysis
	positions := make(chan livePosition, 100)
	analyzed := make(chan struct{})
	go func() {
		l.analyze(positions)
		close(analyzed)
	}()
	defer func() {
		close(positions)
		<-analyzed
	}()

	var (
		game string
		tags pgn.Headers
	)
	d := json.NewDecoder(resp.Body)
	for d.More() {
		var cur LiveMessage
		if err := d.Decode(&cur); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Println("Decode error:" + err.Error())
			return err
		}

		switch cur.Action {
		case "featured":
			var gameStart GameStart
			if err := json.Unmarshal(cur.Data, &gameStart); err != nil {
				log.Println("Unmarshal error:" + err.Error())
				return err
			}
			game = gameStart.Id
			tags = gameTags(gameStart)
			log.Printf("New game with start position: %s\n", gameStart.Fen)

		case "fen":
			var gameTurn GameTurn
			if err := json.Unmarshal(cur.Data, &gameTurn); err != nil {
				log.Println("Unmarshal error:" + err.Error())
				return err
			}
			// the feed sends placement and side to move only
			position := gameTurn.Fen + " - - 0 1"
			select {
			case positions <- livePosition{fen: position, game: game, tags: tags}:
			case <-ctx.Done():
				return nil
			}

		default:
			log.Printf("unknown action type from lichess: %s", cur.Action)
		}
	}
	return nil
}

func gameTags(gameStart GameStart) pgn.Headers {
	var tags pgn.Headers
	for _, p := range gameStart.Players {
		side := "White"
		if p.Color == "black" {
			side = "Black"
		}
		tags.Set(side, p.User.Name)
		tags.Set(side+"Elo", strconv.Itoa(p.Rating))
	}
	now := time.Now().UTC()
	tags.Set("Site", "https://lichess.org/"+gameStart.Id)
	tags.Set("UTCDate", now.Format("2006.01.02"))
	tags.Set("UTCTime", now.Format("15:04:05"))
	return tags
}

func (l *LiveLichessScraper) analyze(positions <-chan livePosition) {
	// positions repeat within a game only
	var game string
	watched := make(map[string]bool)
	for pos := range positions {
		if pos.game != game {
			game = pos.game
			watched = make(map[string]bool)
		}
		if watched[pos.fen] {
			continue
		}
		watched[pos.fen] = true

		p, err := puzgen.GeneratePuzzle(pos.fen, l.engine, l.depth)
		if errors.Is(err, puzgen.ErrNoMate) {
			continue
		}
		if err != nil {
			log.Printf("position %s: %v", pos.fen, err)
			continue
		}
		for _, tag := range pos.tags {
			p.Metadata[tag.Key] = tag.Value
		}

		if err := l.puzzleRepo.InsertPuzzles([]puzzle.Puzzle{p}); err != nil {
			log.Println(err.Error())
			continue
		}
		l.generated.Add(1)
		log.Printf("Generated puzzle %s: %s", p.ID, strings.Join(p.Solution, " "))
	}
}
