package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"marketpulse/internal/models"
	"marketpulse/internal/oracle"
	"marketpulse/internal/repository"
)

// creditPath reports which path a balance credit took, for auditing
// balance-consistency incidents.
type creditPath int

const (
	creditPrimary creditPath = iota
	creditFallback
	creditFailed
)

// ResolutionService drives one idempotent-per-market resolution pass:
// find due markets, price them, classify the outcome, settle the pool and
// flip each market to its terminal state.
type ResolutionService struct {
	repo       *repository.Repository
	oracle     *oracle.Aggregator
	classifier *OutcomeClassifier
	feeRate    float64
	batchSize  int
}

func NewResolutionService(repo *repository.Repository, agg *oracle.Aggregator, feeRate float64, batchSize int) *ResolutionService {
	return &ResolutionService{
		repo:       repo,
		oracle:     agg,
		classifier: NewOutcomeClassifier(),
		feeRate:    feeRate,
		batchSize:  batchSize,
	}
}

// ResolvePending runs one pass over due markets (closing time in the past,
// status still pending), up to the batch limit. Failures are contained
// per-market: a market that cannot be resolved stays pending and is picked
// up again on the next pass.
func (s *ResolutionService) ResolvePending(ctx context.Context) (int, error) {
	markets, err := s.repo.DueMarkets(ctx, time.Now(), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due markets: %w", err)
	}

	if len(markets) == 0 {
		return 0, nil
	}

	log.Infof("[Resolver] Processing %d due markets", len(markets))

	resolved := 0
	for _, market := range markets {
		if err := s.resolveMarket(ctx, market); err != nil {
			log.Errorf("[Resolver] Market %d left pending: %v", market.ID, err)
			continue
		}
		resolved++
	}

	if resolved > 0 {
		log.Infof("[Resolver] Resolved %d of %d due markets", resolved, len(markets))
	}
	return resolved, nil
}

// resolveMarket runs the full resolution pass for one market. Any returned
// error leaves the market pending for the next pass.
func (s *ResolutionService) resolveMarket(ctx context.Context, market *models.Market) (err error) {
	// One market's unexpected panic must not stop the rest of the batch.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while resolving market %d: %v", market.ID, r)
		}
	}()

	if strings.TrimSpace(market.AssetSymbol) == "" {
		return fmt.Errorf("no usable asset symbol")
	}

	facts, err := s.oracle.FetchPriceFacts(ctx, market.AssetSymbol, market.AssetType)
	if err != nil {
		if errors.Is(err, oracle.ErrNoPrice) {
			return fmt.Errorf("no price for %s, will retry: %w", market.AssetSymbol, err)
		}
		return fmt.Errorf("oracle failure for %s: %w", market.AssetSymbol, err)
	}

	verdict := s.classifier.Classify(market.Question, facts)
	resolvedAt := time.Now().UTC()

	report := &models.ResolutionReport{
		MarketID:   market.ID,
		Asset:      market.AssetSymbol,
		Question:   market.Question,
		FinalPrice: facts.Price,
		Sources:    facts.Sources,
		Open:       facts.Open,
		PrevClose:  facts.PrevClose,
		ResolvedAt: resolvedAt,
		Outcome:    verdict.Outcome,
		Rule:       verdict.Rule,
		Confidence: verdict.Confidence,
	}

	hash, err := report.Hash()
	if err != nil {
		return fmt.Errorf("failed to hash resolution report: %w", err)
	}
	reportJSON, err := report.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize resolution report: %w", err)
	}

	log.Infof("[Resolver] Market %d (%s): price=%.6f outcome=%s rule=%s hash=%s",
		market.ID, market.AssetSymbol, facts.Price, verdict.Outcome, verdict.Rule, hash[:12])

	pool, err := s.repo.GetStakePool(ctx, market.ID)
	if err != nil {
		return fmt.Errorf("failed to load stake pool: %w", err)
	}

	// No pool means nobody staked: there is nothing to pay out, the
	// market resolves directly.
	if pool == nil {
		log.Infof("[Resolver] Market %d had no stakes, resolving without payouts", market.ID)
		return s.markResolved(ctx, market.ID, report, hash, string(reportJSON))
	}

	// A stake-fetch failure is fail-closed: resolving with known-incomplete
	// payouts is worse than resolving late.
	stakes, err := s.repo.GetStakes(ctx, market.ID)
	if err != nil {
		return fmt.Errorf("failed to load stakes: %w", err)
	}

	payouts := ComputePayouts(pool.TotalYes, pool.TotalNo, stakes, verdict.Outcome, s.feeRate)
	s.applyPayouts(ctx, market.ID, payouts, resolvedAt)

	return s.markResolved(ctx, market.ID, report, hash, string(reportJSON))
}

// applyPayouts persists each payout and credits the owning user. A stuck
// individual payout is logged for out-of-band reconciliation and does not
// abort the market's resolution.
func (s *ResolutionService) applyPayouts(ctx context.Context, marketID uint, payouts []Payout, resolvedAt time.Time) {
	for _, payout := range payouts {
		if err := s.repo.SetStakePayout(ctx, payout.StakeID, payout.Amount, resolvedAt); err != nil {
			log.Errorf("[Resolver] Failed to persist payout for stake %s: %v", payout.StakeID, err)
			continue
		}

		switch path := s.creditBalance(ctx, payout.UserID, payout.Amount); path {
		case creditPrimary, creditFallback:
			if path == creditFallback {
				log.Warnf("[Resolver] Balance credit for user %d used the compensating fallback path", payout.UserID)
			}
			// The transaction entry is evidence of a successful credit,
			// written only after the credit landed.
			tx := &models.Transaction{
				ID:          uuid.New(),
				UserID:      payout.UserID,
				MarketID:    &marketID,
				Type:        models.TransactionTypePayout,
				Amount:      payout.Amount,
				Status:      models.TransactionStatusConfirmed,
				Description: fmt.Sprintf("Payout for market %d (stake %s)", marketID, payout.StakeAmount),
				CreatedAt:   time.Now(),
			}
			if err := s.repo.CreateTransaction(ctx, tx); err != nil {
				log.Warnf("[Resolver] Failed to record payout transaction for user %d: %v", payout.UserID, err)
			}
		case creditFailed:
			log.Errorf("[Resolver] Failed to credit user %d with %s on market %d, needs reconciliation",
				payout.UserID, payout.Amount, marketID)
		}
	}
}

// creditBalance attempts the atomic increment first and falls back to a
// read-current-then-write compensating update, accepting the small race
// window that implies.
func (s *ResolutionService) creditBalance(ctx context.Context, userID uint, amount decimal.Decimal) creditPath {
	if err := s.repo.IncrementBalance(ctx, userID, amount); err == nil {
		return creditPrimary
	} else {
		log.Warnf("[Resolver] Atomic balance credit failed for user %d: %v", userID, err)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return creditFailed
	}
	if err := s.repo.SetBalance(ctx, userID, user.Balance.Add(amount)); err != nil {
		return creditFailed
	}
	return creditFallback
}

// markResolved flips the market to its terminal state. Outcome, price,
// timestamp, hash and report land in one update, after the payout loop.
func (s *ResolutionService) markResolved(ctx context.Context, marketID uint, report *models.ResolutionReport, hash, reportJSON string) error {
	updates := map[string]interface{}{
		"outcome":           report.Outcome,
		"resolved_price":    report.FinalPrice,
		"resolved_at":       report.ResolvedAt,
		"outcome_hash":      hash,
		"resolution_report": reportJSON,
	}
	if err := s.repo.MarkMarketResolved(ctx, marketID, updates); err != nil {
		return fmt.Errorf("failed to mark market resolved: %w", err)
	}
	return nil
}
