package app

import (
	"sync/atomic"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"go.uber.org/zap"
)

// LowStockWatcher logs a warning whenever a committed stock change leaves a
// product below the configured threshold.
type LowStockWatcher struct {
	threshold int64
	warnings  atomic.Int64
}

func NewLowStockWatcher(threshold int64) *LowStockWatcher {
	return &LowStockWatcher{threshold: threshold}
}

// Subscribe attaches the watcher to bus; events are handled one at a time off
// the request path.
func (w *LowStockWatcher) Subscribe(bus EventBus.Bus) error {
	return bus.SubscribeAsync(inventory.TopicStockAdjusted, w.Handle, true)
}

func (w *LowStockWatcher) Unsubscribe(bus EventBus.Bus) {
	if bus.HasCallback(inventory.TopicStockAdjusted) {
		_ = bus.Unsubscribe(inventory.TopicStockAdjusted, w.Handle)
	}
}

// Handle inspects one event
func (w *LowStockWatcher) Handle(ev inventory.StockAdjusted) {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	for _, it := range w.Low(ev.Items) {
		w.warnings.Add(1)
		zap.L().Warn("product below low stock threshold",
			zap.Int64("product_id", it.ProductID),
			zap.String("name", it.Name),
			zap.Int64("quantity", it.After),
			zap.Int64("threshold", w.threshold),
			zap.String("operation", string(ev.Operation)))
	}
}

// Low returns the items that decreased and ended below the threshold
func (w *LowStockWatcher) Low(items []domain.LineItem) []domain.LineItem {
	var out []domain.LineItem
	if w.threshold <= 0 {
		return out
	}
	for _, it := range items {
		if it.Applied < 0 && it.After < w.threshold {
			out = append(out, it)
		}
	}
	return out
}

// Warnings is the number of low stock warnings emitted so far
func (w *LowStockWatcher) Warnings() int64 {
	return w.warnings.Load()
}
