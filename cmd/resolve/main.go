package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"marketpulse/internal/config"
	"marketpulse/internal/database"
	"marketpulse/internal/oracle"
	"marketpulse/internal/repository"
	"marketpulse/internal/services"
)

// Runs a single resolution pass and exits. Intended for an external
// scheduler (cron or similar) instead of the in-process ticker job.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	repo := repository.NewRepository(database.GetDB())
	aggregator := oracle.NewAggregator(
		oracle.NewCoinGeckoClient(cfg.Oracle.CoinGeckoURL),
		oracle.NewCryptoCompareClient(cfg.Oracle.CryptoCompareURL),
		oracle.NewEquityClient(cfg.Oracle.EquityQuoteURL, cfg.Oracle.EquityAPIToken),
	)

	resolutionService := services.NewResolutionService(
		repo,
		aggregator,
		cfg.Resolver.PlatformFeeRate,
		cfg.Resolver.BatchSize,
	)

	resolved, err := resolutionService.ResolvePending(context.Background())
	if err != nil {
		log.Fatalf("Resolution pass failed: %v", err)
	}

	log.Infof("Resolution pass complete: %d markets resolved", resolved)
}
