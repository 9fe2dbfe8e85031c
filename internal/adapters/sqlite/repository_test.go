package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrDipBot/internal/domain"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a repository backed by a temporary file, cleaned up
// with the test.
func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_trades.db")

	repo, err := NewRepository(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err, "Failed to create test repository")

	t.Cleanup(func() {
		assert.NoError(t, repo.Close())
	})
	return repo
}

func newTrade(symbol string, action domain.TradeAction, price, qty float64, orderID int64, at time.Time) *domain.Trade {
	return &domain.Trade{
		Symbol:     symbol,
		Action:     action,
		Price:      price,
		Quantity:   qty,
		OrderID:    orderID,
		ExecutedAt: at,
	}
}

func TestRepository_RecordAndFindRecent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	buy := newTrade("BTCUSDT", domain.ActionBuy, 85.00, 0.5, 101, now.Add(-2*time.Minute))
	sell := newTrade("BTCUSDT", domain.ActionSell, 86.02, 0.5, 102, now.Add(-1*time.Minute))

	buyID, err := repo.Record(ctx, buy)
	require.NoError(t, err)
	assert.Positive(t, buyID)
	assert.Equal(t, buyID, buy.ID)

	sellID, err := repo.Record(ctx, sell)
	require.NoError(t, err)
	assert.Greater(t, sellID, buyID)

	trades, err := repo.FindRecent(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Most recent first.
	assert.Equal(t, domain.ActionSell, trades[0].Action)
	assert.Equal(t, 86.02, trades[0].Price)
	assert.Equal(t, int64(102), trades[0].OrderID)
	assert.Equal(t, domain.ActionBuy, trades[1].Action)
	assert.Equal(t, 85.00, trades[1].Price)
	assert.WithinDuration(t, sell.ExecutedAt, trades[0].ExecutedAt, time.Second)
}

func TestRepository_FindRecentFiltersAndLimits(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		trade := newTrade("BTCUSDT", domain.ActionBuy, 100+float64(i), 1, int64(200+i), now.Add(time.Duration(i)*time.Minute))
		_, err := repo.Record(ctx, trade)
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, newTrade("ETHUSDT", domain.ActionBuy, 2000, 1, 300, now))
	require.NoError(t, err)

	trades, err := repo.FindRecent(ctx, "BTCUSDT", 3)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	for _, trade := range trades {
		assert.Equal(t, "BTCUSDT", trade.Symbol)
	}
	assert.Equal(t, 104.0, trades[0].Price)

	trades, err = repo.FindRecent(ctx, "SOLUSDT", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestRepository_RealizedProfit(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Empty log: zero profit, not an error.
	profit, err := repo.RealizedProfit(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Zero(t, profit)

	// One round trip: bought 0.5 @ 85.00, sold 0.5 @ 86.02.
	_, err = repo.Record(ctx, newTrade("BTCUSDT", domain.ActionBuy, 85.00, 0.5, 101, now.Add(-2*time.Minute)))
	require.NoError(t, err)
	_, err = repo.Record(ctx, newTrade("BTCUSDT", domain.ActionSell, 86.02, 0.5, 102, now.Add(-time.Minute)))
	require.NoError(t, err)

	// A fill on another symbol must not leak in.
	_, err = repo.Record(ctx, newTrade("ETHUSDT", domain.ActionBuy, 2000, 1, 300, now))
	require.NoError(t, err)

	profit, err = repo.RealizedProfit(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, (86.02-85.00)*0.5, profit, 1e-9)
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	repo, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
	assert.Nil(t, repo)
}
