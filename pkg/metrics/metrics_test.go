package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndSelect(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir(), 0))
	t.Cleanup(func() { _ = Close() })

	now := time.Now().Truncate(time.Second)
	Insert(StockTotalQuantity, now.Add(-2*time.Minute), 10)
	Insert(StockTotalQuantity, now.Add(-time.Minute), 12)
	SetGauge(StockProducts, 3)

	points, err := Select(StockTotalQuantity, now.Add(-time.Hour), now.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 10.0, points[0].Value)
	assert.Equal(t, 12.0, points[1].Value)

	points, err = Select("unknown_metric", now.Add(-time.Hour), now.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestUninitialized(t *testing.T) {
	require.NoError(t, Close())
	SetGauge(StockProducts, 1)
	points, err := Select(StockProducts, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, points)
}
