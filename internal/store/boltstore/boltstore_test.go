package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	"github.com/talkincode/stockroom/internal/store/storetest"
	bolt "go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "stock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stock.db")

	s, err := Open(path)
	require.NoError(t, err)
	p := &domain.Product{Name: "Honey", Quantity: 3}
	require.NoError(t, s.Products().Create(ctx, p))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Honey", got.Name)
	assert.Equal(t, int64(3), got.Quantity)
	require.NoError(t, s.Ping(ctx))
}

func TestCategoryNameIsNotStored(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := &domain.Product{Name: "Kefir", CategoryName: "stale"}
	require.NoError(t, s.Products().Create(ctx, p))

	got, err := s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CategoryName)
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Products().Get(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyOrder(t *testing.T) {
	assert.Equal(t, int64(42), btoi(itob(42)))
	assert.Less(t, string(itob(255)), string(itob(256)))
}

func TestListCategoriesWritesOnlyToSeed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	txid := func() int {
		var id int
		require.NoError(t, s.db.View(func(tx *bolt.Tx) error {
			id = tx.ID()
			return nil
		}))
		return id
	}

	start := txid()
	rows, err := s.Categories().List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, len(domain.DefaultCategories))
	seeded := txid()
	assert.Equal(t, start+1, seeded)

	for i := 0; i < 3; i++ {
		rows, err = s.Categories().List(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, len(domain.DefaultCategories))
	}
	assert.Equal(t, seeded, txid())
}
