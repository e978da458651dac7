package store

import (
	"context"
	"math"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
)

// ProductRepository handles persistence of products
type ProductRepository interface {
	// Create inserts a new product, assigning its ID when zero
	Create(ctx context.Context, p *domain.Product) error

	// Get retrieves a product by ID
	Get(ctx context.Context, id int64) (*domain.Product, error)

	// List returns products matching the filter
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)

	// Update saves every mutable field of an existing product
	Update(ctx context.Context, p *domain.Product) error

	// Delete removes a product
	Delete(ctx context.Context, id int64) error

	// AdjustQuantity atomically adds delta to the product quantity. With clamp
	// set, a result below zero is stored as zero. A result above MaxInt64 fails
	// with a ValidationError and leaves the row unchanged. It returns the
	// quantities before and after the write.
	AdjustQuantity(ctx context.Context, id int64, delta int64, clamp bool) (before, after int64, err error)

	// Count returns the number of products
	Count(ctx context.Context) (int64, error)

	// TotalQuantity returns the sum of all product quantities
	TotalQuantity(ctx context.Context) (int64, error)
}

// CategoryRepository handles persistence of categories
type CategoryRepository interface {
	// Get retrieves a category by ID
	Get(ctx context.Context, id int64) (*domain.Category, error)

	// List returns all categories. An empty collection is seeded with
	// domain.DefaultCategories exactly once.
	List(ctx context.Context) ([]*domain.Category, error)

	// Create inserts a new category
	Create(ctx context.Context, c *domain.Category) error

	// Count returns the number of categories without seeding
	Count(ctx context.Context) (int64, error)
}

// TransactionRepository handles persistence of the stock movement log
type TransactionRepository interface {
	// Create inserts a transaction with its line items
	Create(ctx context.Context, t *domain.Transaction) error

	// Get retrieves a transaction with its line items
	Get(ctx context.Context, id int64) (*domain.Transaction, error)

	// Page returns up to limit transactions with ID lower than before (0 means
	// from the newest), newest first
	Page(ctx context.Context, before int64, limit int, filter domain.TransactionFilter) ([]*domain.Transaction, error)

	// MarkRestored sets RestoredAt on a transaction that has not been restored yet
	MarkRestored(ctx context.Context, id int64, at time.Time) error
}

// OperatorRepository handles persistence of API operators
type OperatorRepository interface {
	Create(ctx context.Context, o *domain.Operator) error
	GetByUsername(ctx context.Context, username string) (*domain.Operator, error)
	Update(ctx context.Context, o *domain.Operator) error
}

// Repositories is the set of repositories bound to one store or one atomic unit
type Repositories interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Transactions() TransactionRepository
	Operators() OperatorRepository
}

// Store is a backing document store
type Store interface {
	Repositories

	// Atomic runs fn against a transactional view of the repositories. Every
	// write made through it is discarded if fn returns an error.
	Atomic(ctx context.Context, fn func(repos Repositories) error) error

	// Migrate prepares collections and indexes
	Migrate(ctx context.Context) error

	// Ping checks the store is reachable
	Ping(ctx context.Context) error

	Close() error
}

// ExceedsMaxQuantity reports whether adding delta to quantity would overflow int64
func ExceedsMaxQuantity(quantity, delta int64) bool {
	return delta > 0 && quantity > math.MaxInt64-delta
}

// ErrStockTooLarge is returned by AdjustQuantity when the result would not fit in int64
func ErrStockTooLarge(id int64) error {
	return pkgerrors.WithMessagef(domain.NewValidationError("quantity", "resulting stock is too large"), "product %d", id)
}
