package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/pkg/metrics"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.UTC
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if spec := a.appConfig.Inventory.SummaryCron; spec != "" {
		if _, err := a.sched.AddFunc(spec, a.SchedStockSummaryTask); err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedStockSummaryTask snapshots stock totals into the metrics store
func (a *Application) SchedStockSummaryTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := inventory.Summarize(ctx, a.store, a.appConfig.Inventory.LowStockThreshold)
	if err != nil {
		zap.L().Error("stock summary failed", zap.Error(err))
		return
	}

	metrics.SetGauge(metrics.StockTotalQuantity, s.TotalQuantity)
	metrics.SetGauge(metrics.StockProducts, s.Products)
	metrics.SetGauge(metrics.StockCategories, s.Categories)
	metrics.SetGauge(metrics.StockLowProducts, int64(len(s.LowStock)))

	zap.L().Debug("stock summary recorded",
		zap.Int64("products", s.Products),
		zap.Int64("total_quantity", s.TotalQuantity),
		zap.Int("low_stock", len(s.LowStock)))
}
