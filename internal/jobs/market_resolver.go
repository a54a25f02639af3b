package jobs

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"marketpulse/internal/services"
)

// MarketResolver periodically runs the resolution pass over due markets.
// At most one pass is active at a time; a timer fire that overlaps a
// still-running pass is a no-op.
type MarketResolver struct {
	resolution *services.ResolutionService
	interval   time.Duration
	stopChan   chan struct{}
	inFlight   atomic.Bool
}

// NewMarketResolver creates a new market resolver job
func NewMarketResolver(resolution *services.ResolutionService, interval time.Duration) *MarketResolver {
	return &MarketResolver{
		resolution: resolution,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the resolution loop
func (mr *MarketResolver) Start() {
	log.Infof("[MarketResolver] Starting resolution job (interval: %v)", mr.interval)

	ticker := time.NewTicker(mr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mr.RunOnce(context.Background())
		case <-mr.stopChan:
			log.Info("[MarketResolver] Stopping resolution job")
			return
		}
	}
}

// Stop stops the resolution loop
func (mr *MarketResolver) Stop() {
	close(mr.stopChan)
}

// RunOnce runs a single resolution pass unless one is already in flight.
// Returns the number of markets resolved.
func (mr *MarketResolver) RunOnce(ctx context.Context) int {
	if !mr.inFlight.CompareAndSwap(false, true) {
		log.Warn("[MarketResolver] Previous pass still running, skipping this fire")
		return 0
	}
	defer mr.inFlight.Store(false)

	resolved, err := mr.resolution.ResolvePending(ctx)
	if err != nil {
		log.Errorf("[MarketResolver] Resolution pass failed: %v", err)
		return 0
	}
	return resolved
}
