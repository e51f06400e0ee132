package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/fen"
	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

type moveRequest struct {
	FEN       string `json:"fen" binding:"required"`
	SAN       string `json:"san"`
	From      string `json:"from" binding:"omitempty,len=2"`
	To        string `json:"to" binding:"omitempty,len=2"`
	Promotion string `json:"promotion" binding:"omitempty,oneof=q r b n"`
}

// Move plays one move for a board client, by SAN or by squares, and
// returns the move as the rules library sees it with the new position.
func Move(ctx *gin.Context) {
	var req moveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	engine := rules.NewEngine()
	var res rules.Result
	var err error
	switch {
	case req.SAN != "":
		res, err = engine.Apply(req.FEN, req.SAN)
	case req.From != "" && req.To != "":
		res, err = engine.ApplySquares(req.FEN, req.From, req.To, req.Promotion)
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "either san or from and to are required"})
		return
	}

	switch {
	case errors.Is(err, rules.ErrInvalidPosition):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, rules.ErrIllegalMove):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusOK, gin.H{
			"move":     res.Move,
			"fen":      res.Position,
			"material": fen.MaterialBalance(res.Position),
		})
	}
}
