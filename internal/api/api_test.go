package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freeeve/uci"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/dao"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/scraper"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzgen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const backRank = "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"

const studyPGN = `[Event "Study"]
[Site "Club"]
[Date "2024.04.04"]

1. e4 e5 (1... c5 2. Nf3) 2. Nf3 Nc6 *
`

// backRankEngine finds Ra8# in backRank and nothing elsewhere.
type backRankEngine struct {
	fen string
}

func (e *backRankEngine) SetFEN(fen string) error {
	e.fen = fen
	return nil
}

func (e *backRankEngine) GoDepth(int, ...uint) (*uci.Results, error) {
	if e.fen == backRank {
		return &uci.Results{Results: []uci.ScoreResult{{Mate: true, Score: 1, BestMoves: []string{"a1a8"}}}}, nil
	}
	return &uci.Results{Results: []uci.ScoreResult{{Score: 15, BestMoves: []string{"e2e4"}}}}, nil
}

type testServer struct {
	router *gin.Engine
	repo   dao.PuzzleRepository
}

func newTestServer(t *testing.T, engine puzgen.Searcher, lichessURL string) *testServer {
	t.Helper()
	cfg := &config.Configuration{}
	cfg.PGN.ParseVariations = true
	cfg.Stockfish.Depth = 4
	cfg.Lichess.URL = lichessURL
	cfg.Lichess.MaxGames = 5

	repo := dao.NewMemoryRepository()
	jobs := NewJobApi(scraper.NewLichessImporterFactory(cfg, repo))
	return &testServer{
		router: NewRouter(NewPuzzleApi(repo, cfg, engine), jobs),
		repo:   repo,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) importStudy(t *testing.T) puzzle.Puzzle {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/import", gin.H{"pgn": studyPGN})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res puzzle.ImportResult
	decode(t, w, &res)
	require.Len(t, res.Puzzles, 1)
	return res.Puzzles[0]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, "")
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestImportStoresPuzzles(t *testing.T) {
	s := newTestServer(t, nil, "")
	p := s.importStudy(t)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, p.Solution)
	assert.Equal(t, 6, p.Tree.Len())

	w := s.do(t, http.MethodGet, "/api/puzzles/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored puzzle.Puzzle
	decode(t, w, &stored)
	assert.Equal(t, "Study #1", stored.Title)

	// main line only, not saved
	w = s.do(t, http.MethodPost, "/api/import", gin.H{"pgn": studyPGN, "parse_variations": false, "save": false})
	require.Equal(t, http.StatusOK, w.Code)
	var res puzzle.ImportResult
	decode(t, w, &res)
	require.Len(t, res.Puzzles, 1)
	assert.Equal(t, 4, res.Puzzles[0].Tree.Len())

	all, err := s.repo.ListPuzzles(dao.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImportRequiresPGN(t *testing.T) {
	s := newTestServer(t, nil, "")
	w := s.do(t, http.MethodPost, "/api/import", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidate(t *testing.T) {
	s := newTestServer(t, nil, "")

	w := s.do(t, http.MethodPost, "/api/validate", gin.H{"pgn": ""})
	require.Equal(t, http.StatusOK, w.Code)
	var v puzzle.Validation
	decode(t, w, &v)
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"PGN text is empty"}, v.Errors)

	w = s.do(t, http.MethodPost, "/api/validate", gin.H{"pgn": "1. e4 e5 *", "require_headers": true})
	decode(t, w, &v)
	assert.False(t, v.IsValid)
	assert.Len(t, v.Errors, 3)

	w = s.do(t, http.MethodPost, "/api/validate", gin.H{"pgn": "1. e4 e5 *"})
	v = puzzle.Validation{}
	decode(t, w, &v)
	assert.True(t, v.IsValid)
	assert.Len(t, v.Warnings, 3)
}

func TestGetErrors(t *testing.T) {
	s := newTestServer(t, nil, "")
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/puzzles/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/puzzles/0b7e4a44-3e0c-4c43-9a0f-0e6c3f3b6a11", nil).Code)
}

func TestListAndRandom(t *testing.T) {
	s := newTestServer(t, nil, "")
	p := s.importStudy(t)

	w := s.do(t, http.MethodGet, "/api/puzzles?difficulty=intermediate&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []puzzle.Puzzle
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	w = s.do(t, http.MethodGet, "/api/puzzles?difficulty=beginner", nil)
	list = nil
	decode(t, w, &list)
	assert.Empty(t, list)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/puzzles?difficulty=hard", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/puzzles?limit=-1", nil).Code)

	w = s.do(t, http.MethodGet, "/api/random", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var random puzzle.Puzzle
	decode(t, w, &random)
	assert.Equal(t, p.ID, random.ID)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/random?theme=fork", nil).Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil, "")
	p := s.importStudy(t)

	w := s.do(t, http.MethodGet, "/api/puzzles/"+p.ID+"/pgn?layout=nested", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/x-chess-pgn")
	assert.Contains(t, w.Body.String(), "[Event \"Study\"]")
	assert.Contains(t, w.Body.String(), "1. e4 e5 (1... c5 2. Nf3) 2. Nf3 Nc6 *")

	w = s.do(t, http.MethodPost, "/api/export", gin.H{"ids": []string{p.ID, p.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, bytes.Count(w.Body.Bytes(), []byte("[Event ")))
	assert.Contains(t, w.Body.String(), "1. e4 e5 c5 2. Nf3 2. Nf3 Nc6 *")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/export", gin.H{"ids": []string{}}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/export", gin.H{"ids": []string{"x"}}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/export", gin.H{"ids": []string{p.ID}, "layout": "tree"}).Code)
}

func TestUpdateNode(t *testing.T) {
	s := newTestServer(t, nil, "")
	p := s.importStudy(t)
	side := p.Tree.Nodes[2]
	require.Equal(t, "c5", side.Move.Notation)

	path := fmt.Sprintf("/api/puzzles/%s/nodes/%s", p.ID, side.ID)
	w := s.do(t, http.MethodPatch, path, gin.H{"required": true, "annotation": " Sicilian "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := s.repo.GetPuzzle(p.ID)
	require.NoError(t, err)
	n, ok := stored.Tree.Node(side.ID)
	require.True(t, ok)
	assert.True(t, n.IsRequired)
	assert.Equal(t, "Sicilian", n.Annotation)
	assert.Contains(t, stored.RequiredVariationIDs, side.ID)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, path, gin.H{}).Code)
	missing := fmt.Sprintf("/api/puzzles/%s/nodes/%s", p.ID, "nope")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, missing, gin.H{"required": false}).Code)
}

func TestAttempt(t *testing.T) {
	s := newTestServer(t, nil, "")
	p := s.importStudy(t)

	w := s.do(t, http.MethodPost, "/api/puzzles/"+p.ID+"/attempt", gin.H{"moves": []string{"e4", "e5", "Nf3", "Nc6"}, "rating": 1500})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Attempt puzzle.Attempt `json:"attempt"`
		Rating  int            `json:"rating"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Attempt.Completed)
	assert.Equal(t, 1520, resp.Rating)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/puzzles/"+p.ID+"/attempt", gin.H{"moves": []string{"e4"}, "rating": 50}).Code)
}

func TestMoves(t *testing.T) {
	s := newTestServer(t, nil, "")

	w := s.do(t, http.MethodPost, "/api/moves", gin.H{"fen": backRank, "san": "Ra8#"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Move struct {
			SAN   string `json:"san"`
			Piece string `json:"piece"`
		} `json:"move"`
		FEN string `json:"fen"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Ra8#", resp.Move.SAN)
	assert.Equal(t, "r", resp.Move.Piece)
	assert.Equal(t, "R5k1/5ppp/8/8/8/8/8/6K1 b - - 1 1", resp.FEN)

	w = s.do(t, http.MethodPost, "/api/moves", gin.H{"fen": backRank, "from": "a1", "to": "a8"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Ra8#", resp.Move.SAN)

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/moves", gin.H{"fen": backRank, "san": "Qh5"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/moves", gin.H{"fen": "nonsense", "san": "e4"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/moves", gin.H{"fen": backRank}).Code)
}

func TestEngineRoutes(t *testing.T) {
	s := newTestServer(t, &backRankEngine{}, "")

	w := s.do(t, http.MethodPost, "/api/generate", gin.H{"fen": backRank})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p puzzle.Puzzle
	decode(t, w, &p)
	assert.Equal(t, []string{"Ra8#"}, p.Solution)

	w = s.do(t, http.MethodPost, "/api/puzzles/"+p.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report puzgen.Report
	decode(t, w, &report)
	assert.True(t, report.Agrees)

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/generate", gin.H{"fen": "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/generate", gin.H{"fen": "bad"}).Code)
}

func TestEngineRoutesWithoutEngine(t *testing.T) {
	s := newTestServer(t, nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/api/generate", gin.H{"fen": backRank}).Code)
}

func TestLichessJob(t *testing.T) {
	lichess := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, studyPGN)
	}))
	defer lichess.Close()
	s := newTestServer(t, nil, lichess.URL)

	w := s.do(t, http.MethodPost, "/api/lichess/ada?max=3", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var started struct {
		JobID string `json:"job_id"`
	}
	decode(t, w, &started)
	require.NotEmpty(t, started.JobID)

	var status struct {
		Done   bool                  `json:"done"`
		Error  string                `json:"error"`
		Result scraper.ImportSummary `json:"result"`
	}
	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/api/jobs/"+started.JobID, nil)
		if w.Code != http.StatusOK {
			return false
		}
		status.Done = false
		decode(t, w, &status)
		return status.Done
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, status.Error)
	assert.Equal(t, 1, status.Result.TotalGames)
	assert.Len(t, status.Result.PuzzleIDs, 1)

	// finished jobs are reported once
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/jobs/"+started.JobID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/lichess/ada?max=x", nil).Code)
}
