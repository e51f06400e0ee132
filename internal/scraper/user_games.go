package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/dao"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

const fetchTimeout = 30 * time.Second

type LichessImporterFactory struct {
	BaseURL  string
	MaxGames int
	Options  puzzle.ImportOptions
	Repo     dao.PuzzleRepository
	Client   *http.Client
}

func NewLichessImporterFactory(cfg *config.Configuration, repo dao.PuzzleRepository) *LichessImporterFactory {
	return &LichessImporterFactory{
		BaseURL:  strings.TrimRight(cfg.Lichess.URL, "/"),
		MaxGames: cfg.Lichess.MaxGames,
		Options:  puzzle.ImportOptions{MainLineOnly: !cfg.PGN.ParseVariations},
		Repo:     repo,
		Client:   &http.Client{Timeout: fetchTimeout},
	}
}

// CreateLichessImporter prepares a job importing the last games of
// username. maxGames above the configured limit is capped; zero or less
// uses the limit.
func (f *LichessImporterFactory) CreateLichessImporter(username string, maxGames int) *LichessImporter {
	if maxGames <= 0 || maxGames > f.MaxGames {
		maxGames = f.MaxGames
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &LichessImporter{
		username: username,
		maxGames: maxGames,
		baseURL:  f.BaseURL,
		opts:     f.Options,
		repo:     f.Repo,
		client:   client,
	}
}

// ImportSummary is the result of a finished LichessImporter.
type ImportSummary struct {
	Username   string   `json:"username"`
	TotalGames int      `json:"total_games"`
	PuzzleIDs  []string `json:"puzzle_ids"`
	Errors     []string `json:"errors"`
}

type LichessImporter struct {
	mu       sync.Mutex
	summary  ImportSummary
	progress float64
	err      error
	done     bool

	username string
	maxGames int
	baseURL  string
	opts     puzzle.ImportOptions
	repo     dao.PuzzleRepository
	client   *http.Client
}

func (l *LichessImporter) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *LichessImporter) StartWork() {
	go l.Import()
}

func (l *LichessImporter) Result() interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summary
}

func (l *LichessImporter) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress
}

func (l *LichessImporter) Error() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Import runs the job synchronously.
func (l *LichessImporter) Import() {
	text, err := l.fetch()
	if err != nil {
		log.Printf("lichess import for %s: %v", l.username, err)
		l.finish(ImportSummary{}, err)
		return
	}
	l.setProgress(0.5)

	res := puzzle.Import(text, l.opts)
	summary := ImportSummary{
		Username:   l.username,
		TotalGames: res.TotalGames,
		PuzzleIDs:  make([]string, 0, len(res.Puzzles)),
		Errors:     res.Errors,
	}
	for _, p := range res.Puzzles {
		summary.PuzzleIDs = append(summary.PuzzleIDs, p.ID)
	}

	if err := l.repo.InsertPuzzles(res.Puzzles); err != nil {
		log.Printf("saving puzzles of %s: %v", l.username, err)
		l.finish(ImportSummary{}, fmt.Errorf("error saving puzzles to db"))
		return
	}
	log.Printf("imported %d puzzles from %d games of %s", len(res.Puzzles), res.TotalGames, l.username)
	l.finish(summary, nil)
}

func (l *LichessImporter) fetch() (string, error) {
	u := fmt.Sprintf("%s/api/games/user/%s?max=%s", l.baseURL, url.PathEscape(l.username), strconv.Itoa(l.maxGames))

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/x-chess-pgn")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching %s games", l.username)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("user %s doesn't exist on lichess", l.username)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("lichess answered %d for %s", resp.StatusCode, l.username)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading %s games: %w", l.username, err)
	}
	return string(body), nil
}

func (l *LichessImporter) setProgress(p float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = p
}

func (l *LichessImporter) finish(summary ImportSummary, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summary = summary
	l.err = err
	l.progress = 1
	l.done = true
}
