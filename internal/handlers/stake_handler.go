package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"marketpulse/internal/services"
)

type StakeHandler struct {
	stakeService *services.StakeService
}

func NewStakeHandler(stakeService *services.StakeService) *StakeHandler {
	return &StakeHandler{stakeService: stakeService}
}

// PlaceStake places a user's stake on a market
func (h *StakeHandler) PlaceStake(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market id"})
		return
	}

	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Side   string `json:"side" binding:"required,oneof=YES NO"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	stake, err := h.stakeService.PlaceStake(c.Request.Context(), req.UserID, uint(marketID), req.Side, amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    stake,
	})
}
