package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/config"
	"github.com/gmkornilov/chess-puzzle-book-backend/internal/dao"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzgen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/puzzle"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

const pgnContentType = "application/x-chess-pgn; charset=utf-8"

type PuzzleApi struct {
	PuzzleRepository dao.PuzzleRepository
	ParseVariations  bool
	RequireHeaders   bool
	Depth            int

	// engine is nil when no engine binary is configured
	engine   puzgen.Searcher
	engineMu sync.Mutex
}

func NewPuzzleApi(repo dao.PuzzleRepository, cfg *config.Configuration, engine puzgen.Searcher) *PuzzleApi {
	return &PuzzleApi{
		PuzzleRepository: repo,
		ParseVariations:  cfg.PGN.ParseVariations,
		RequireHeaders:   cfg.PGN.RequireHeaders,
		Depth:            cfg.Stockfish.Depth,
		engine:           engine,
	}
}

type importRequest struct {
	PGN             string `json:"pgn" binding:"required"`
	ParseVariations *bool  `json:"parse_variations"`
	Save            *bool  `json:"save"`
}

func (p *PuzzleApi) Import(ctx *gin.Context) {
	var req importRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parseVariations := p.ParseVariations
	if req.ParseVariations != nil {
		parseVariations = *req.ParseVariations
	}
	res := puzzle.Import(req.PGN, puzzle.ImportOptions{MainLineOnly: !parseVariations})

	if req.Save == nil || *req.Save {
		if err := p.PuzzleRepository.InsertPuzzles(res.Puzzles); err != nil {
			log.Printf("saving imported puzzles: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	ctx.JSON(http.StatusOK, res)
}

type validateRequest struct {
	PGN             string `json:"pgn"`
	RequireHeaders  *bool  `json:"require_headers"`
	ParseVariations *bool  `json:"parse_variations"`
}

func (p *PuzzleApi) Validate(ctx *gin.Context) {
	var req validateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := puzzle.ValidateOptions{RequireHeaders: p.RequireHeaders, MainLineOnly: !p.ParseVariations}
	if req.RequireHeaders != nil {
		opts.RequireHeaders = *req.RequireHeaders
	}
	if req.ParseVariations != nil {
		opts.MainLineOnly = !*req.ParseVariations
	}
	ctx.JSON(http.StatusOK, puzzle.Validate(req.PGN, opts))
}

func (p *PuzzleApi) filter(ctx *gin.Context) (dao.Filter, bool) {
	f := dao.Filter{
		Difficulty: puzzle.Difficulty(ctx.Query("difficulty")),
		Theme:      ctx.Query("theme"),
	}
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "difficulty should be beginner, intermediate or advanced"})
		return f, false
	}
	if s := ctx.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit should be positive integer"})
			return f, false
		}
		f.Limit = limit
	}
	return f, true
}

func (p *PuzzleApi) List(ctx *gin.Context) {
	f, ok := p.filter(ctx)
	if !ok {
		return
	}
	puzzles, err := p.PuzzleRepository.ListPuzzles(f)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, puzzles)
}

func (p *PuzzleApi) Random(ctx *gin.Context) {
	f, ok := p.filter(ctx)
	if !ok {
		return
	}
	pz, err := p.PuzzleRepository.GetRandomPuzzle(f)
	if err != nil {
		p.repositoryError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, pz)
}

func (p *PuzzleApi) Get(ctx *gin.Context) {
	pz, ok := p.load(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, pz)
}

func (p *PuzzleApi) PGN(ctx *gin.Context) {
	pz, ok := p.load(ctx)
	if !ok {
		return
	}
	text := puzzle.ToPGN([]puzzle.Puzzle{pz}, puzzle.ExportOptions{Layout: puzzle.ParseLayout(ctx.Query("layout"))})
	ctx.Data(http.StatusOK, pgnContentType, []byte(text))
}

type exportRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1,dive,uuid"`
	Layout string   `json:"layout" binding:"omitempty,oneof=flat nested"`
}

func (p *PuzzleApi) Export(ctx *gin.Context) {
	var req exportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	puzzles := make([]puzzle.Puzzle, 0, len(req.IDs))
	for _, id := range req.IDs {
		pz, err := p.PuzzleRepository.GetPuzzle(id)
		if err != nil {
			p.repositoryError(ctx, err)
			return
		}
		puzzles = append(puzzles, pz)
	}
	text := puzzle.ToPGN(puzzles, puzzle.ExportOptions{Layout: puzzle.ParseLayout(req.Layout)})
	ctx.Data(http.StatusOK, pgnContentType, []byte(text))
}

type nodeRequest struct {
	Required   *bool   `json:"required"`
	Annotation *string `json:"annotation" binding:"omitempty,max=2000"`
}

// UpdateNode edits the required flag or the comment of one move.
func (p *PuzzleApi) UpdateNode(ctx *gin.Context) {
	var req nodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Required == nil && req.Annotation == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	pz, ok := p.load(ctx)
	if !ok {
		return
	}
	nodeID := ctx.Param("node_id")
	if req.Required != nil {
		if err := pz.SetRequired(nodeID, *req.Required); err != nil {
			p.repositoryError(ctx, err)
			return
		}
	}
	if req.Annotation != nil {
		if err := pz.SetAnnotation(nodeID, *req.Annotation); err != nil {
			p.repositoryError(ctx, err)
			return
		}
	}

	if err := p.PuzzleRepository.UpdatePuzzle(pz); err != nil {
		p.repositoryError(ctx, err)
		return
	}
	node, _ := pz.Tree.Node(nodeID)
	ctx.JSON(http.StatusOK, gin.H{
		"node":                   node,
		"required_variation_ids": pz.RequiredVariationIDs,
	})
}

type attemptRequest struct {
	Moves  []string `json:"moves" binding:"required"`
	Rating int      `json:"rating" binding:"omitempty,min=100,max=4000"`
}

func (p *PuzzleApi) Attempt(ctx *gin.Context) {
	var req attemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pz, ok := p.load(ctx)
	if !ok {
		return
	}

	a := pz.CheckAttempt(req.Moves)
	resp := gin.H{"attempt": a}
	if req.Rating > 0 {
		resp["rating"] = puzzle.EstimateRating(req.Rating, a)
	}
	ctx.JSON(http.StatusOK, resp)
}

func (p *PuzzleApi) Verify(ctx *gin.Context) {
	if p.engine == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine is not configured"})
		return
	}
	pz, ok := p.load(ctx)
	if !ok {
		return
	}

	p.engineMu.Lock()
	report, err := puzgen.VerifySolution(pz, p.engine, p.Depth)
	p.engineMu.Unlock()
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, report)
}

type generateRequest struct {
	FEN   string `json:"fen" binding:"required"`
	Depth int    `json:"depth" binding:"omitempty,min=1,max=40"`
	Save  *bool  `json:"save"`
}

// Generate builds a mate puzzle for a position with the engine.
func (p *PuzzleApi) Generate(ctx *gin.Context) {
	if p.engine == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine is not configured"})
		return
	}
	var req generateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	depth := p.Depth
	if req.Depth > 0 {
		depth = req.Depth
	}

	p.engineMu.Lock()
	pz, err := puzgen.GeneratePuzzle(req.FEN, p.engine, depth)
	p.engineMu.Unlock()
	switch {
	case errors.Is(err, rules.ErrInvalidPosition):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if req.Save == nil || *req.Save {
		if err := p.PuzzleRepository.InsertPuzzles([]puzzle.Puzzle{pz}); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	ctx.JSON(http.StatusOK, pz)
}

// load fetches the puzzle named by the id path parameter, answering the
// request itself when that fails.
func (p *PuzzleApi) load(ctx *gin.Context) (puzzle.Puzzle, bool) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid puzzle id"})
		return puzzle.Puzzle{}, false
	}
	pz, err := p.PuzzleRepository.GetPuzzle(id)
	if err != nil {
		p.repositoryError(ctx, err)
		return puzzle.Puzzle{}, false
	}
	return pz, true
}

func (p *PuzzleApi) repositoryError(ctx *gin.Context, err error) {
	if errors.Is(err, dao.ErrNotFound) || errors.Is(err, puzzle.ErrNodeNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Printf("puzzle repository: %v", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
