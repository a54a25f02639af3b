package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketpulse/internal/database"
	"marketpulse/internal/models"
	"marketpulse/internal/oracle"
	"marketpulse/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the
	// same in-memory store.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, repo *repository.Repository, id uint, balance int64) {
	t.Helper()
	err := repo.CreateUser(context.Background(), &models.User{
		ID:            id,
		WalletAddress: fmt.Sprintf("wallet-%d-%s", id, t.Name()),
		Nickname:      fmt.Sprintf("user-%d-%s", id, t.Name()),
		Balance:       decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
}

func createDueMarket(t *testing.T, repo *repository.Repository, question, symbol, assetType string) *models.Market {
	t.Helper()
	market := &models.Market{
		Question:    question,
		AssetSymbol: symbol,
		AssetType:   assetType,
		ClosesAt:    time.Now().Add(-time.Hour),
		Status:      models.MarketStatusPending,
	}
	require.NoError(t, repo.CreateMarket(context.Background(), market))
	return market
}

func placeTestStake(t *testing.T, repo *repository.Repository, userID, marketID uint, side string, amount int64) *models.Stake {
	t.Helper()
	ctx := context.Background()
	stake := &models.Stake{
		ID:       uuid.New(),
		UserID:   userID,
		MarketID: marketID,
		Side:     side,
		Amount:   decimal.NewFromInt(amount),
	}
	require.NoError(t, repo.CreateStake(ctx, stake))
	require.NoError(t, repo.AddToStakePool(ctx, marketID, side, stake.Amount))
	return stake
}

func equityServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestResolution(repo *repository.Repository, equityURL string) *ResolutionService {
	agg := oracle.NewAggregator(
		oracle.NewCoinGeckoClient("http://127.0.0.1:0"),
		oracle.NewCryptoCompareClient("http://127.0.0.1:0"),
		oracle.NewEquityClient(equityURL, "test-token"),
	)
	return NewResolutionService(repo, agg, 0.02, 50)
}

func TestResolvePendingSettlesMarket(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(setupTestDB(t))

	createTestUser(t, repo, 1, 0)
	createTestUser(t, repo, 2, 0)

	market := createDueMarket(t, repo, "Will AAPL close higher today?", "AAPL", models.AssetTypeEquity)
	placeTestStake(t, repo, 1, market.ID, models.SideYes, 300)
	placeTestStake(t, repo, 2, market.ID, models.SideNo, 100)

	srv := equityServer(t, `{"c":151.2,"o":150.0,"pc":149.5}`)
	svc := newTestResolution(repo, srv.URL)

	resolved, err := svc.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	// Market flipped to its terminal state with the full audit trail.
	got, err := repo.GetMarketByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusResolved, got.Status)
	assert.Equal(t, models.OutcomeYes, got.Outcome)
	require.NotNil(t, got.ResolvedPrice)
	assert.Equal(t, 151.2, *got.ResolvedPrice)
	require.NotNil(t, got.OutcomeHash)
	assert.Len(t, *got.OutcomeHash, 64)
	require.NotNil(t, got.ResolutionReport)
	assert.Contains(t, *got.ResolutionReport, "close_higher")

	// Sole winner takes their stake back plus the losing pool minus the
	// 2% fee: floor(300 + 98) = 398.
	winnerStake, err := repo.GetUserStake(ctx, 1, market.ID)
	require.NoError(t, err)
	require.NotNil(t, winnerStake.Payout)
	assert.True(t, winnerStake.Payout.Equal(decimal.NewFromInt(398)),
		"payout = %s, want 398", winnerStake.Payout)
	assert.NotNil(t, winnerStake.ResolvedAt)

	loserStake, err := repo.GetUserStake(ctx, 2, market.ID)
	require.NoError(t, err)
	assert.Nil(t, loserStake.Payout, "losing stake must stay untouched")

	winnerUser, err := repo.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, winnerUser.Balance.Equal(decimal.NewFromInt(398)),
		"winner balance = %s, want 398", winnerUser.Balance)

	loserUser, err := repo.GetUserByID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, loserUser.Balance.IsZero(), "loser balance = %s, want 0", loserUser.Balance)

	// Credit evidence: exactly one payout ledger entry, for the winner.
	winnerTxs, err := repo.GetUserTransactions(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, winnerTxs, 1)
	assert.Equal(t, models.TransactionTypePayout, winnerTxs[0].Type)
	assert.True(t, winnerTxs[0].Amount.Equal(decimal.NewFromInt(398)))

	loserTxs, err := repo.GetUserTransactions(ctx, 2, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, loserTxs)
}

func TestResolvePendingNoStakes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(setupTestDB(t))

	market := createDueMarket(t, repo, "Will AAPL close higher today?", "AAPL", models.AssetTypeEquity)

	srv := equityServer(t, `{"c":151.2,"o":150.0,"pc":149.5}`)
	svc := newTestResolution(repo, srv.URL)

	resolved, err := svc.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	got, err := repo.GetMarketByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusResolved, got.Status)
	assert.Equal(t, models.OutcomeYes, got.Outcome)
}

func TestResolvePendingIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(setupTestDB(t))

	createTestUser(t, repo, 1, 0)
	market := createDueMarket(t, repo, "Will AAPL close higher today?", "AAPL", models.AssetTypeEquity)
	placeTestStake(t, repo, 1, market.ID, models.SideYes, 100)

	srv := equityServer(t, `{"c":151.2,"o":150.0,"pc":149.5}`)
	svc := newTestResolution(repo, srv.URL)

	resolved, err := svc.ResolvePending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, resolved)

	user, err := repo.GetUserByID(ctx, 1)
	require.NoError(t, err)
	balanceAfterFirst := user.Balance

	// A second pass finds nothing due and must not pay anyone twice.
	resolved, err = svc.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)

	user, err = repo.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(balanceAfterFirst),
		"balance moved from %s to %s on a no-op pass", balanceAfterFirst, user.Balance)
}

func TestResolvePendingNoPriceLeavesMarketPending(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(setupTestDB(t))

	createTestUser(t, repo, 1, 0)
	market := createDueMarket(t, repo, "Will AAPL close higher today?", "AAPL", models.AssetTypeEquity)
	placeTestStake(t, repo, 1, market.ID, models.SideYes, 100)

	srv := equityServer(t, `{"c":0,"o":0,"pc":0}`)
	svc := newTestResolution(repo, srv.URL)

	resolved, err := svc.ResolvePending(ctx)
	require.NoError(t, err, "an unpriceable market is contained, not a pass failure")
	assert.Equal(t, 0, resolved)

	got, err := repo.GetMarketByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusPending, got.Status, "market must stay pending for retry")

	stake, err := repo.GetUserStake(ctx, 1, market.ID)
	require.NoError(t, err)
	assert.Nil(t, stake.Payout)
}

func TestResolvePendingEmptySymbolContained(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(setupTestDB(t))

	createDueMarket(t, repo, "Will something happen?", "  ", "")
	healthy := createDueMarket(t, repo, "Will AAPL close higher today?", "AAPL", models.AssetTypeEquity)

	srv := equityServer(t, `{"c":151.2,"o":150.0,"pc":149.5}`)
	svc := newTestResolution(repo, srv.URL)

	// The broken market is skipped; the healthy one still resolves.
	resolved, err := svc.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	got, err := repo.GetMarketByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusResolved, got.Status)
}

func TestResolvePendingSkipsFutureMarkets(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(setupTestDB(t))

	future := &models.Market{
		Question:    "Will AAPL close higher today?",
		AssetSymbol: "AAPL",
		AssetType:   models.AssetTypeEquity,
		ClosesAt:    time.Now().Add(time.Hour),
		Status:      models.MarketStatusPending,
	}
	require.NoError(t, repo.CreateMarket(ctx, future))

	srv := equityServer(t, `{"c":151.2,"o":150.0,"pc":149.5}`)
	svc := newTestResolution(repo, srv.URL)

	resolved, err := svc.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)

	got, err := repo.GetMarketByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusPending, got.Status)
}
