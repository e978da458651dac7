package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/pkg/common"
	"github.com/talkincode/stockroom/pkg/metrics"
)

func testConfig(t *testing.T, dbType string) *config.AppConfig {
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Database.Type = dbType
	cfg.Database.Path = "stock.db"
	cfg.Inventory.SummaryCron = ""
	return cfg
}

func TestInitSeedsDefaults(t *testing.T) {
	for _, dbType := range []string{"bolt", "sqlite"} {
		t.Run(dbType, func(t *testing.T) {
			cfg := testConfig(t, dbType)
			a := NewApplication(cfg)
			require.NoError(t, a.Init(cfg))
			defer a.Release()

			ctx := context.Background()
			op, err := a.Store().Operators().GetByUsername(ctx, "admin")
			require.NoError(t, err)
			assert.Equal(t, "super", op.Level)
			assert.True(t, common.CheckPassword(op.PasswordHash, "stockroom"))

			// categories are seeded by the first read, not at startup
			n, err := a.Store().Categories().Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			a.checkSuper(ctx)
			rows, err := a.Store().Categories().List(ctx)
			require.NoError(t, err)
			assert.Len(t, rows, len(domain.DefaultCategories))
		})
	}
}

func TestCheckSuperRepairsDisabledAdmin(t *testing.T) {
	cfg := testConfig(t, "bolt")
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	defer a.Release()

	ctx := context.Background()
	op, err := a.Store().Operators().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	op.Status = domain.OperatorDisabled
	op.PasswordHash = ""
	require.NoError(t, a.Store().Operators().Update(ctx, op))

	a.checkSuper(ctx)
	op, err = a.Store().Operators().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.OperatorEnabled, op.Status)
	assert.True(t, common.CheckPassword(op.PasswordHash, "stockroom"))
}

func TestInitDbClearsStore(t *testing.T) {
	cfg := testConfig(t, "bolt")
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	defer a.Release()

	ctx := context.Background()
	require.NoError(t, a.Store().Products().Create(ctx, &domain.Product{Name: "Salt", Quantity: 1}))
	require.NoError(t, a.InitDb())

	n, err := a.Store().Products().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenStoreRejectsUnknownType(t *testing.T) {
	_, err := OpenStore(testConfig(t, "mongo"))
	assert.Error(t, err)
}

func TestStockSummaryTaskWritesGauges(t *testing.T) {
	cfg := testConfig(t, "bolt")
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	defer a.Release()

	ctx := context.Background()
	require.NoError(t, a.Store().Products().Create(ctx, &domain.Product{Name: "Rice", Quantity: 40}))
	require.NoError(t, a.Store().Products().Create(ctx, &domain.Product{Name: "Salt", Quantity: 2}))

	a.SchedStockSummaryTask()

	now := time.Now()
	points, err := metrics.Select(metrics.StockTotalQuantity, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, 42.0, points[len(points)-1].Value)

	points, err = metrics.Select(metrics.StockLowProducts, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, 1.0, points[len(points)-1].Value)
}

func TestLowStockWatcher(t *testing.T) {
	w := NewLowStockWatcher(10)
	items := []domain.LineItem{
		{ProductID: 1, Applied: -5, After: 3},
		{ProductID: 2, Applied: -5, After: 30},
		{ProductID: 3, Applied: 2, After: 4},
	}
	low := w.Low(items)
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].ProductID)

	w.Handle(inventory.StockAdjusted{Operation: domain.OperationDistribute, Items: items})
	assert.Equal(t, int64(1), w.Warnings())

	assert.Empty(t, NewLowStockWatcher(0).Low(items))
}

func TestWatcherReceivesServiceEvents(t *testing.T) {
	cfg := testConfig(t, "bolt")
	cfg.Inventory.LowStockThreshold = 5
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	defer a.Release()

	ctx := context.Background()
	p := &domain.Product{Name: "Yogurt", Quantity: 6}
	require.NoError(t, a.Store().Products().Create(ctx, p))

	_, err := a.Inventory().Distribute(ctx, inventory.TransactionInput{
		Items: []inventory.Item{{ProductID: p.ID, Quantity: 3}}, Unit: 1, Purpose: "Meals", Batch: "W",
	})
	require.NoError(t, err)
	a.Bus().WaitAsync()
	assert.Equal(t, int64(1), a.watcher.Warnings())
}
