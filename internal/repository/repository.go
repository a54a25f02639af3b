package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketpulse/internal/models"
)

// ErrInsufficientBalance is returned when a conditional debit finds less
// than the requested amount available.
var ErrInsufficientBalance = errors.New("insufficient balance")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for read-only handler queries.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// ---- markets ----

// CreateMarket creates a new pending market
func (r *Repository) CreateMarket(ctx context.Context, market *models.Market) error {
	return r.db.WithContext(ctx).Create(market).Error
}

// GetMarketByID retrieves a market by ID
func (r *Repository) GetMarketByID(ctx context.Context, marketID uint) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// DueMarkets retrieves pending markets whose closing time has passed,
// oldest close first, up to the batch limit. Resolved markets are excluded
// by the status filter, which is what makes a re-run over an already
// resolved market a natural no-op.
func (r *Repository) DueMarkets(ctx context.Context, now time.Time, limit int) ([]*models.Market, error) {
	var markets []*models.Market
	err := r.db.WithContext(ctx).
		Where("status = ? AND closes_at <= ?", models.MarketStatusPending, now).
		Order("closes_at ASC").
		Limit(limit).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// MarkMarketResolved flips a pending market to resolved, writing outcome,
// price, timestamp, hash and report in one guarded update. The status
// predicate keeps the transition one-way.
func (r *Repository) MarkMarketResolved(ctx context.Context, marketID uint, updates map[string]interface{}) error {
	updates["status"] = models.MarketStatusResolved
	result := r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ? AND status = ?", marketID, models.MarketStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("market %d is no longer pending", marketID)
	}
	return nil
}

// ---- pools ----

// GetStakePool retrieves the pool for a market, or nil if no stake was
// ever placed (pools are created lazily on first stake).
func (r *Repository) GetStakePool(ctx context.Context, marketID uint) (*models.StakePool, error) {
	var pool models.StakePool
	err := r.db.WithContext(ctx).Where("market_id = ?", marketID).First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// AddToStakePool atomically increments one side of a market's pool,
// creating the pool row on the first stake.
func (r *Repository) AddToStakePool(ctx context.Context, marketID uint, side string, amount decimal.Decimal) error {
	column := "total_yes"
	if side == models.SideNo {
		column = "total_no"
	}

	pool := models.StakePool{
		MarketID:  marketID,
		UpdatedAt: time.Now(),
	}
	if side == models.SideNo {
		pool.TotalNo = amount
	} else {
		pool.TotalYes = amount
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&pool).Error
}

// ---- stakes ----

// CreateStake creates a stake; the unique (user, market) index rejects a
// second stake on the same market.
func (r *Repository) CreateStake(ctx context.Context, stake *models.Stake) error {
	return r.db.WithContext(ctx).Create(stake).Error
}

// GetStakes retrieves all stakes for a market
func (r *Repository) GetStakes(ctx context.Context, marketID uint) ([]models.Stake, error) {
	var stakes []models.Stake
	err := r.db.WithContext(ctx).Where("market_id = ?", marketID).Find(&stakes).Error
	if err != nil {
		return nil, err
	}
	return stakes, nil
}

// GetUserStake retrieves a user's stake on a market, or nil if none exists
func (r *Repository) GetUserStake(ctx context.Context, userID, marketID uint) (*models.Stake, error) {
	var stake models.Stake
	err := r.db.WithContext(ctx).Where("user_id = ? AND market_id = ?", userID, marketID).First(&stake).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// SetStakePayout writes the payout amount and resolved timestamp onto a stake
func (r *Repository) SetStakePayout(ctx context.Context, stakeID uuid.UUID, payout decimal.Decimal, resolvedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Stake{}).
		Where("id = ?", stakeID).
		Updates(map[string]interface{}{
			"payout":      payout,
			"resolved_at": resolvedAt,
		}).Error
}

// ---- users and balances ----

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementBalance credits a user's balance via a single atomic update.
// This is the primary payout path.
func (r *Repository) IncrementBalance(ctx context.Context, userID uint, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// SetBalance overwrites a user's balance. Compensating fallback path only;
// it carries the read-then-write race window the caller accepts.
func (r *Repository) SetBalance(ctx context.Context, userID uint, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// DebitBalance conditionally debits a user's balance, failing with
// ErrInsufficientBalance instead of going negative.
func (r *Repository) DebitBalance(ctx context.Context, userID uint, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// ---- transactions ----

// CreateTransaction appends a ledger entry
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetUserTransactions retrieves a user's transaction history, newest first
func (r *Repository) GetUserTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// TopUsersByBalance retrieves the leaderboard
func (r *Repository) TopUsersByBalance(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Order("balance DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
