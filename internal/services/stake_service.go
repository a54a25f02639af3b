package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"marketpulse/internal/models"
	"marketpulse/internal/repository"
)

// StakeService handles stake placement. Resolution never touches pool
// totals; this is the only writer that grows them, and it stops accepting
// stakes once a market's closing time has passed.
type StakeService struct {
	repo *repository.Repository
}

func NewStakeService(repo *repository.Repository) *StakeService {
	return &StakeService{repo: repo}
}

// PlaceStake creates a user's position on a market: validates the market
// is still open, debits the balance, records the stake and grows the pool.
// A user may stake at most once per market.
func (s *StakeService) PlaceStake(ctx context.Context, userID, marketID uint, side string, amount decimal.Decimal) (*models.Stake, error) {
	if side != models.SideYes && side != models.SideNo {
		return nil, fmt.Errorf("side must be YES or NO")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("stake amount must be positive")
	}

	market, err := s.repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market.Status != models.MarketStatusPending {
		return nil, fmt.Errorf("market %d is already resolved", marketID)
	}
	if !time.Now().Before(market.ClosesAt) {
		return nil, fmt.Errorf("market %d is closed for staking", marketID)
	}

	existing, err := s.repo.GetUserStake(ctx, userID, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing stake: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %d already staked on market %d", userID, marketID)
	}

	if err := s.repo.DebitBalance(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}

	stake := &models.Stake{
		ID:        uuid.New(),
		UserID:    userID,
		MarketID:  marketID,
		Side:      side,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateStake(ctx, stake); err != nil {
		// Give the debited amount back; the unique index may have caught a
		// concurrent duplicate stake.
		if creditErr := s.repo.IncrementBalance(ctx, userID, amount); creditErr != nil {
			log.Errorf("[Stakes] Failed to refund user %d after stake create error: %v", userID, creditErr)
		}
		return nil, fmt.Errorf("failed to create stake: %w", err)
	}

	if err := s.repo.AddToStakePool(ctx, marketID, side, amount); err != nil {
		return nil, fmt.Errorf("failed to update stake pool: %w", err)
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		MarketID:    &marketID,
		Type:        models.TransactionTypeStake,
		Amount:      amount.Neg(),
		Status:      models.TransactionStatusConfirmed,
		Description: fmt.Sprintf("Stake %s on market %d (%s)", amount, marketID, side),
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		log.Warnf("[Stakes] Failed to record stake transaction for user %d: %v", userID, err)
	}

	log.Infof("[Stakes] User %d staked %s on market %d (%s)", userID, amount, marketID, side)
	return stake, nil
}
