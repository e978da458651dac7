// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
)

// Factory returns an empty, migrated store. The test owns closing it.
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the shared repository contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("AdjustQuantity", func(t *testing.T) { testAdjustQuantity(t, newStore(t)) })
	t.Run("CategorySeed", func(t *testing.T) { testCategorySeed(t, newStore(t)) })
	t.Run("ConcurrentCategorySeed", func(t *testing.T) { testConcurrentCategorySeed(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("AtomicRollback", func(t *testing.T) { testAtomicRollback(t, newStore(t)) })
	t.Run("Operators", func(t *testing.T) { testOperators(t, newStore(t)) })
}

func categoryByName(t *testing.T, s store.Store, name string) *domain.Category {
	t.Helper()
	rows, err := s.Categories().List(context.Background())
	require.NoError(t, err)
	for _, c := range rows {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return nil
}

func testProducts(t *testing.T, s store.Store) {
	ctx := context.Background()
	fruits := categoryByName(t, s, "Fruits")
	dairy := categoryByName(t, s, "Dairy")

	apple := &domain.Product{Name: "Green Apple", Quantity: 5, CategoryID: fruits.ID}
	pear := &domain.Product{Name: "Pear", Quantity: 9, CategoryID: fruits.ID}
	milk := &domain.Product{Name: "Milk", Quantity: 1, CategoryID: dairy.ID}
	for _, p := range []*domain.Product{apple, pear, milk} {
		require.NoError(t, s.Products().Create(ctx, p))
		require.NotZero(t, p.ID)
	}

	got, err := s.Products().Get(ctx, apple.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green Apple", got.Name)
	assert.Equal(t, "Fruits", got.CategoryName)
	assert.Equal(t, int64(5), got.Quantity)

	_, err = s.Products().Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rows, err := s.Products().List(ctx, domain.ProductFilter{CategoryID: fruits.ID, Sort: "name", Desc: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pear", rows[0].Name)
	assert.Equal(t, "Green Apple", rows[1].Name)

	rows, err = s.Products().List(ctx, domain.ProductFilter{Query: "APPLE"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, apple.ID, rows[0].ID)

	rows, err = s.Products().List(ctx, domain.ProductFilter{Sort: "quantity"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, milk.ID, rows[0].ID)

	fruitsAgain, err := s.Categories().Get(ctx, fruits.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{apple.ID, pear.ID}, fruitsAgain.Products)

	apple.Name = "Red Apple"
	apple.CategoryID = dairy.ID
	require.NoError(t, s.Products().Update(ctx, apple))
	got, err = s.Products().Get(ctx, apple.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red Apple", got.Name)
	assert.Equal(t, "Dairy", got.CategoryName)

	err = s.Products().Update(ctx, &domain.Product{ID: 7, Name: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := s.Products().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	total, err := s.Products().TotalQuantity(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	require.NoError(t, s.Products().Delete(ctx, pear.ID))
	assert.ErrorIs(t, s.Products().Delete(ctx, pear.ID), domain.ErrNotFound)
	_, err = s.Products().Get(ctx, pear.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testAdjustQuantity(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := &domain.Product{Name: "Flour", Quantity: 10}
	require.NoError(t, s.Products().Create(ctx, p))

	before, after, err := s.Products().AdjustQuantity(ctx, p.ID, 8, false)
	require.NoError(t, err)
	assert.Equal(t, int64(10), before)
	assert.Equal(t, int64(18), after)

	before, after, err = s.Products().AdjustQuantity(ctx, p.ID, -25, true)
	require.NoError(t, err)
	assert.Equal(t, int64(18), before)
	assert.Equal(t, int64(0), after)

	_, _, err = s.Products().AdjustQuantity(ctx, 99, 1, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	full := &domain.Product{Name: "Salt", Quantity: math.MaxInt64 - 5}
	require.NoError(t, s.Products().Create(ctx, full))
	_, _, err = s.Products().AdjustQuantity(ctx, full.ID, 10, false)
	assert.True(t, domain.IsValidation(err), "got %v", err)
	got, err := s.Products().Get(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-5), got.Quantity)
	_, after, err = s.Products().AdjustQuantity(ctx, full.ID, 5, false)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), after)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Products().AdjustQuantity(ctx, p.ID, 3, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	got, err = s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*3), got.Quantity)
}

func testCategorySeed(t *testing.T, s store.Store) {
	ctx := context.Background()
	n, err := s.Categories().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 2; i++ {
		rows, err := s.Categories().List(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(rows))
		for _, c := range rows {
			names = append(names, c.Name)
			assert.NotNil(t, c.Products)
		}
		assert.Equal(t, domain.DefaultCategories, names)
	}

	err = s.Categories().Create(ctx, &domain.Category{Name: "Dairy"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	snacks := &domain.Category{Name: "Snacks"}
	require.NoError(t, s.Categories().Create(ctx, snacks))
	got, err := s.Categories().Get(ctx, snacks.ID)
	require.NoError(t, err)
	assert.Equal(t, "Snacks", got.Name)
	assert.Empty(t, got.Products)

	n, err = s.Categories().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(domain.DefaultCategories)+1), n)

	_, err = s.Categories().Get(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testConcurrentCategorySeed(t *testing.T, s store.Store) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Categories().List(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Categories().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(domain.DefaultCategories)), n)
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	var ids []int64
	for i, op := range []domain.Operation{domain.OperationReceive, domain.OperationDistribute, domain.OperationReceive} {
		tx := &domain.Transaction{
			Operation: op,
			Unit:      2,
			Purpose:   "purpose",
			Batch:     "batch",
			Items: []domain.LineItem{
				{ProductID: 11, Name: "first", Quantity: int64(i + 1), Unit: 2, Applied: 2},
				{ProductID: 12, Name: "second", Quantity: 1, Unit: 2, Applied: 2},
			},
		}
		require.NoError(t, s.Transactions().Create(ctx, tx))
		ids = append(ids, tx.ID)
	}

	got, err := s.Transactions().Get(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "first", got.Items[0].Name)
	assert.Equal(t, "second", got.Items[1].Name)
	assert.Equal(t, int64(12), got.Items[1].ProductID)
	assert.Nil(t, got.RestoredAt)

	page, err := s.Transactions().Page(ctx, 0, 2, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
	assert.Len(t, page[0].Items, 2)

	page, err = s.Transactions().Page(ctx, page[1].ID, 2, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	page, err = s.Transactions().Page(ctx, 0, 10, domain.TransactionFilter{Operation: domain.OperationReceive})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[0], page[1].ID)

	page, err = s.Transactions().Page(ctx, 0, 10, domain.TransactionFilter{From: time.Now().UTC().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, page)

	at := time.Now().UTC()
	require.NoError(t, s.Transactions().MarkRestored(ctx, ids[1], at))
	assert.ErrorIs(t, s.Transactions().MarkRestored(ctx, ids[1], at), domain.ErrConflict)
	assert.ErrorIs(t, s.Transactions().MarkRestored(ctx, 5, at), domain.ErrNotFound)
	got, err = s.Transactions().Get(ctx, ids[1])
	require.NoError(t, err)
	assert.NotNil(t, got.RestoredAt)

	_, err = s.Transactions().Get(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

var errBoom = errors.New("boom")

func testAtomicRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := &domain.Product{Name: "Cheese", Quantity: 4}
	require.NoError(t, s.Products().Create(ctx, p))

	err := s.Atomic(ctx, func(repos store.Repositories) error {
		if _, _, err := repos.Products().AdjustQuantity(ctx, p.ID, 10, false); err != nil {
			return err
		}
		if err := repos.Transactions().Create(ctx, &domain.Transaction{
			Operation: domain.OperationReceive, Unit: 1, Purpose: "p", Batch: "b",
			Items: []domain.LineItem{{ProductID: p.ID, Quantity: 10, Unit: 1, Applied: 10}},
		}); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Quantity)
	page, err := s.Transactions().Page(ctx, 0, 10, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, page)

	err = s.Atomic(ctx, func(repos store.Repositories) error {
		_, _, err := repos.Products().AdjustQuantity(ctx, p.ID, 1, false)
		return err
	})
	require.NoError(t, err)
	got, err = s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Quantity)
}

func testOperators(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := &domain.Operator{Username: "clerk", PasswordHash: "hash", Level: "operator", Status: domain.OperatorEnabled}
	require.NoError(t, s.Operators().Create(ctx, o))
	assert.ErrorIs(t, s.Operators().Create(ctx, &domain.Operator{Username: "clerk"}), domain.ErrConflict)

	got, err := s.Operators().GetByUsername(ctx, "clerk")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got.LastLogin = time.Now().UTC()
	require.NoError(t, s.Operators().Update(ctx, got))
	again, err := s.Operators().GetByUsername(ctx, "clerk")
	require.NoError(t, err)
	assert.False(t, again.LastLogin.IsZero())

	_, err = s.Operators().GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
