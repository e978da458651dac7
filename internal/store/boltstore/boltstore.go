// Package boltstore keeps inventory documents as JSON values in bbolt buckets.
// Keys are big-endian ids, so cursor order is id order and, because ids are
// snowflakes, creation order.
package boltstore

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	bucketProducts      = []byte("products")
	bucketCategories    = []byte("categories")
	bucketTransactions  = []byte("transactions")
	bucketOperators     = []byte("operators")
	bucketOperatorNames = []byte("operator_names")
	bucketCategoryNames = []byte("category_names")

	allBuckets = [][]byte{
		bucketProducts, bucketCategories, bucketTransactions,
		bucketOperators, bucketOperatorNames, bucketCategoryNames,
	}
)

// Store is the bbolt implementation of store.Store. A Store with a non-nil tx
// is bound to one writable transaction opened by Atomic.
type Store struct {
	db *bolt.DB
	tx *bolt.Tx
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the bolt file at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, domain.NewStoreError("open bolt", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	zap.S().Infof("bolt store opened, path: %s", path)
	return s, nil
}

func (s *Store) Products() store.ProductRepository { return &productRepo{s: s} }

func (s *Store) Categories() store.CategoryRepository { return &categoryRepo{s: s} }

func (s *Store) Transactions() store.TransactionRepository { return &transactionRepo{s: s} }

func (s *Store) Operators() store.OperatorRepository { return &operatorRepo{s: s} }

func (s *Store) Atomic(ctx context.Context, fn func(repos store.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&Store{db: s.db, tx: tx})
	})
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.update(ctx, "migrate", func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.view(ctx, "ping", func(tx *bolt.Tx) error { return nil })
}

func (s *Store) Close() error {
	return s.db.Close()
}

// view runs fn read-only, reusing the bound transaction when there is one
func (s *Store) view(ctx context.Context, op string, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return wrap(op, fn(s.tx))
	}
	return wrap(op, s.db.View(fn))
}

// update runs fn in a writable transaction, reusing the bound one when there is one
func (s *Store) update(ctx context.Context, op string, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return wrap(op, fn(s.tx))
	}
	return wrap(op, s.db.Update(fn))
}

// wrap keeps domain errors as they are and classifies the rest as store failures
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.Is(err, domain.ErrNotFound) || pkgerrors.Is(err, domain.ErrConflict) ||
		pkgerrors.Is(err, domain.ErrUnavailable) || domain.IsValidation(err) {
		return err
	}
	return domain.NewStoreError(op, err)
}

func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		if !tx.Writable() {
			return nil, pkgerrors.Errorf("bucket %s missing, store not migrated", name)
		}
		return tx.CreateBucketIfNotExists(name)
	}
	return b, nil
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func getDoc(b *bolt.Bucket, id int64, v interface{}) (bool, error) {
	data := b.Get(itob(id))
	if data == nil {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func putDoc(b *bolt.Bucket, id int64, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(itob(id), data)
}

// DropAll deletes every bucket and recreates them empty
func (s *Store) DropAll(ctx context.Context) error {
	err := s.update(ctx, "drop", func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.Migrate(ctx)
}
