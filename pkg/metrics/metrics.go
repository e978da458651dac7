// Package metrics keeps a small on-disk time series of inventory gauges.
package metrics

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

const (
	StockTotalQuantity = "stock_total_quantity"
	StockProducts      = "stock_products"
	StockCategories    = "stock_categories"
	StockLowProducts   = "stock_low_products"
)

// Point is one stored sample.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

var (
	mu      sync.RWMutex
	storage tstorage.Storage
)

// InitMetrics opens the time series store under workdir/data/metrics. Calling
// it again replaces the previous store.
func InitMetrics(workdir string, retention time.Duration) error {
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
	}
	if workdir != "" {
		opts = append(opts, tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")))
	}
	if retention > 0 {
		opts = append(opts, tstorage.WithRetention(retention))
	}
	s, err := tstorage.NewStorage(opts...)
	if err != nil {
		return err
	}

	mu.Lock()
	old := storage
	storage = s
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// SetGauge records value for name at the current time. It is a no-op until
// InitMetrics succeeds.
func SetGauge(name string, value int64) {
	Insert(name, time.Now(), float64(value))
}

// Insert records one sample.
func Insert(name string, at time.Time, value float64) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: at.Unix(), Value: value},
	}})
	if err != nil {
		zap.L().Warn("metrics insert failed", zap.String("metric", name), zap.Error(err))
	}
}

// Select returns the samples of name in [from, to), oldest first. A metric
// with no samples yields an empty slice.
func Select(name string, from, to time.Time) ([]Point, error) {
	mu.RLock()
	defer mu.RUnlock()
	points := []Point{}
	if storage == nil {
		return points, nil
	}
	rows, err := storage.Select(name, nil, from.Unix(), to.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return points, nil
	}
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		points = append(points, Point{Timestamp: r.Timestamp, Value: r.Value})
	}
	return points, nil
}

// Close flushes and closes the store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
