package api

import (
	"crypto/md5"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gmkornilov/chess-puzzle-book-backend/internal/scraper"
)

type JobApi struct {
	ImporterFactory *scraper.LichessImporterFactory
	activeJobs      map[string]scraper.Worker
	totalJobs       int
	mu              sync.RWMutex
}

func NewJobApi(factory *scraper.LichessImporterFactory) *JobApi {
	return &JobApi{
		ImporterFactory: factory,
		activeJobs:      make(map[string]scraper.Worker),
	}
}

func (j *JobApi) StartLichessImport(ctx *gin.Context) {
	name := ctx.Param("username")
	maxStr := ctx.DefaultQuery("max", "0")
	maxGames, err := strconv.Atoi(maxStr)
	if err != nil || maxGames < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "max should be a non-negative integer",
		})
		return
	}

	worker := j.ImporterFactory.CreateLichessImporter(name, maxGames)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.totalJobs++
	byteValue := []byte(strconv.Itoa(j.totalJobs))
	id := fmt.Sprintf("%x", md5.Sum(byteValue))
	j.activeJobs[id] = worker
	worker.StartWork()
	ctx.JSON(http.StatusAccepted, gin.H{
		"job_id": id,
	})
}

// GetJobStatus reports a job; a finished job is reported once and then
// forgotten.
func (j *JobApi) GetJobStatus(ctx *gin.Context) {
	id := ctx.Param("job_id")
	j.mu.Lock()
	defer j.mu.Unlock()
	worker, ok := j.activeJobs[id]
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}
	if !worker.Done() {
		ctx.JSON(http.StatusOK, gin.H{
			"done":     false,
			"progress": worker.Progress(),
		})
		return
	}

	delete(j.activeJobs, id)
	if err := worker.Error(); err != nil {
		ctx.JSON(http.StatusOK, gin.H{
			"done":  true,
			"error": err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"done":   true,
		"result": worker.Result(),
	})
}
