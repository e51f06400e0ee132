package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the handlers. jobs may be nil when lichess imports are
// disabled.
func NewRouter(puzzles *PuzzleApi, jobs *JobApi) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/import", puzzles.Import)
	api.POST("/validate", puzzles.Validate)
	api.POST("/export", puzzles.Export)
	api.POST("/generate", puzzles.Generate)
	api.GET("/random", puzzles.Random)
	api.POST("/moves", Move)

	api.GET("/puzzles", puzzles.List)
	api.GET("/puzzles/:id", puzzles.Get)
	api.GET("/puzzles/:id/pgn", puzzles.PGN)
	api.PATCH("/puzzles/:id/nodes/:node_id", puzzles.UpdateNode)
	api.POST("/puzzles/:id/attempt", puzzles.Attempt)
	api.POST("/puzzles/:id/verify", puzzles.Verify)

	if jobs != nil {
		api.POST("/lichess/:username", jobs.StartLichessImport)
		api.GET("/jobs/:job_id", jobs.GetJobStatus)
	}
	return r
}
