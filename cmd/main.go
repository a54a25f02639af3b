package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"marketpulse/internal/config"
	"marketpulse/internal/database"
	"marketpulse/internal/handlers"
	"marketpulse/internal/jobs"
	"marketpulse/internal/oracle"
	"marketpulse/internal/repository"
	"marketpulse/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	initialBalance, err := decimal.NewFromString(cfg.App.InitialBalance)
	if err != nil {
		log.Fatalf("Invalid INITIAL_BALANCE: %v", err)
	}

	// Initialize repository and price oracle
	repo := repository.NewRepository(database.GetDB())
	aggregator := oracle.NewAggregator(
		oracle.NewCoinGeckoClient(cfg.Oracle.CoinGeckoURL),
		oracle.NewCryptoCompareClient(cfg.Oracle.CryptoCompareURL),
		oracle.NewEquityClient(cfg.Oracle.EquityQuoteURL, cfg.Oracle.EquityAPIToken),
	)

	// Initialize services
	resolutionService := services.NewResolutionService(
		repo,
		aggregator,
		cfg.Resolver.PlatformFeeRate,
		cfg.Resolver.BatchSize,
	)
	stakeService := services.NewStakeService(repo)

	// Initialize handlers
	marketHandler := handlers.NewMarketHandler(repo)
	stakeHandler := handlers.NewStakeHandler(stakeService)
	userHandler := handlers.NewUserHandler(repo, initialBalance)

	// Start resolver job
	resolverJob := jobs.NewMarketResolver(resolutionService, cfg.Resolver.Interval)
	go resolverJob.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes
	api := router.Group("/api")
	{
		api.GET("/markets", marketHandler.GetMarkets)
		api.GET("/markets/:id", marketHandler.GetMarketByID)
		api.POST("/markets", marketHandler.CreateMarket)
		api.GET("/markets/:id/pool", marketHandler.GetMarketPool)
		api.POST("/markets/:id/stakes", stakeHandler.PlaceStake)

		api.POST("/users", userHandler.CreateUser)
		api.GET("/users/:id", userHandler.GetUser)
		api.GET("/users/:id/transactions", userHandler.GetUserTransactions)
		api.GET("/leaderboard", userHandler.GetLeaderboard)

		// Manual resolution trigger; a no-op when a pass is in flight.
		api.POST("/resolve", func(c *gin.Context) {
			resolved := resolverJob.RunOnce(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{
				"success":  true,
				"resolved": resolved,
			})
		})
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	resolverJob.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
