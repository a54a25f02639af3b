package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketpulse/internal/models"
	"marketpulse/internal/repository"
)

type MarketHandler struct {
	repo *repository.Repository
}

func NewMarketHandler(repo *repository.Repository) *MarketHandler {
	return &MarketHandler{repo: repo}
}

// GetMarkets returns markets with optional status filtering
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	status := c.DefaultQuery("status", models.MarketStatusPending)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var markets []models.Market
	if err := h.repo.DB().
		Where("status = ?", status).
		Order("closes_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&markets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch markets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    markets,
		"count":   len(markets),
	})
}

// GetMarketByID returns a specific market
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market id"})
		return
	}

	market, err := h.repo.GetMarketByID(c.Request.Context(), uint(marketID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch market"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    market,
	})
}

// CreateMarket creates a new pending market
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var req struct {
		Question    string    `json:"question" binding:"required"`
		AssetSymbol string    `json:"asset_symbol" binding:"required"`
		AssetType   string    `json:"asset_type" binding:"omitempty,oneof=crypto equity"`
		ClosesAt    time.Time `json:"closes_at" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market := &models.Market{
		Question:    req.Question,
		AssetSymbol: req.AssetSymbol,
		AssetType:   req.AssetType,
		ClosesAt:    req.ClosesAt,
		Status:      models.MarketStatusPending,
		CreatedAt:   time.Now(),
	}

	if err := h.repo.CreateMarket(c.Request.Context(), market); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create market"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    market,
	})
}

// GetMarketPool returns the stake pool for a market
func (h *MarketHandler) GetMarketPool(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market id"})
		return
	}

	pool, err := h.repo.GetStakePool(c.Request.Context(), uint(marketID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pool"})
		return
	}
	if pool == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stakes placed on this market yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pool,
	})
}
