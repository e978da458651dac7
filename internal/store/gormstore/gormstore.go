package gormstore

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	"gorm.io/gorm"
)

// Store is the GORM implementation of store.Store
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open gorm connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Products() store.ProductRepository { return &productRepo{db: s.db} }

func (s *Store) Categories() store.CategoryRepository { return &categoryRepo{db: s.db} }

func (s *Store) Transactions() store.TransactionRepository { return &transactionRepo{db: s.db} }

func (s *Store) Operators() store.OperatorRepository { return &operatorRepo{db: s.db} }

func (s *Store) Atomic(ctx context.Context, fn func(repos store.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	if err == nil || isDomainError(err) {
		return err
	}
	return domain.NewStoreError("atomic", err)
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Migrator().AutoMigrate(domain.Tables...); err != nil {
		return domain.NewStoreError("migrate", err)
	}
	return nil
}

// DropAll removes every table managed by the store
func (s *Store) DropAll(ctx context.Context) error {
	return domain.NewStoreError("drop", s.db.WithContext(ctx).Migrator().DropTable(domain.Tables...))
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.NewStoreError("ping", err)
	}
	return domain.NewStoreError("ping", sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isPostgres reports whether the dialect supports ILIKE and row locks
func isPostgres(db *gorm.DB) bool {
	return strings.EqualFold(db.Dialector.Name(), "postgres")
}

// translate maps gorm errors onto the domain taxonomy
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(domain.ErrNotFound, op)
	case isDuplicate(err):
		return pkgerrors.Wrap(domain.ErrConflict, op)
	default:
		return domain.NewStoreError(op, err)
	}
}

// isDomainError reports whether err already belongs to the domain taxonomy
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrUnavailable) || domain.IsValidation(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
