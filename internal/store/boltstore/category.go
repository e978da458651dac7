package boltstore

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

type categoryRepo struct {
	s *Store
}

func (r *categoryRepo) Get(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := r.s.view(ctx, "get category", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketCategories)
		if err != nil {
			return err
		}
		ok, err := getDoc(b, id, &c)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.Wrapf(domain.ErrNotFound, "category %d", id)
		}
		return attachProducts(tx, []*domain.Category{&c})
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List reads in a view transaction. Only an empty bucket escalates to a write
// transaction, which checks emptiness again before seeding so concurrent first
// reads seed once.
func (r *categoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	var rows []*domain.Category
	err := r.s.view(ctx, "list categories", func(tx *bolt.Tx) error {
		var err error
		rows, err = readCategories(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}

	err = r.s.update(ctx, "seed categories", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketCategories)
		if err != nil {
			return err
		}
		if k, _ := b.Cursor().First(); k == nil {
			now := time.Now().UTC()
			for _, name := range domain.DefaultCategories {
				c := &domain.Category{ID: common.UUIDint64(), Name: name, CreatedAt: now, UpdatedAt: now}
				if err := insertCategory(tx, c); err != nil {
					return err
				}
			}
			zap.L().Info("initialized default categories", zap.Int("count", len(domain.DefaultCategories)))
		}
		rows, err = readCategories(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// readCategories loads every category in id order with its product back-reference
func readCategories(tx *bolt.Tx) ([]*domain.Category, error) {
	b, err := bucket(tx, bucketCategories)
	if err != nil {
		return nil, err
	}
	var rows []*domain.Category
	if err := b.ForEach(func(_, v []byte) error {
		var c domain.Category
		if err := json.Unmarshal(v, &c); err != nil {
			return err
		}
		rows = append(rows, &c)
		return nil
	}); err != nil {
		return nil, err
	}
	return rows, attachProducts(tx, rows)
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	return r.s.update(ctx, "create category", func(tx *bolt.Tx) error {
		if c.ID == 0 {
			c.ID = common.UUIDint64()
		}
		now := time.Now().UTC()
		c.CreatedAt, c.UpdatedAt = now, now
		c.Products = domain.IDList{}
		return insertCategory(tx, c)
	})
}

func (r *categoryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.view(ctx, "count categories", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketCategories)
		if err != nil {
			return err
		}
		n = int64(b.Stats().KeyN)
		return nil
	})
	return n, err
}

// insertCategory writes the document and its unique name index entry
func insertCategory(tx *bolt.Tx, c *domain.Category) error {
	b, err := bucket(tx, bucketCategories)
	if err != nil {
		return err
	}
	names, err := bucket(tx, bucketCategoryNames)
	if err != nil {
		return err
	}
	key := []byte(strings.ToLower(c.Name))
	if names.Get(key) != nil {
		return pkgerrors.Wrapf(domain.ErrConflict, "category %q exists", c.Name)
	}
	if err := names.Put(key, itob(c.ID)); err != nil {
		return err
	}
	doc := *c
	doc.Products = nil
	return putDoc(b, c.ID, &doc)
}

// attachProducts derives the product back-reference from Product.CategoryID
func attachProducts(tx *bolt.Tx, rows []*domain.Category) error {
	byID := make(map[int64]*domain.Category, len(rows))
	for _, c := range rows {
		c.Products = domain.IDList{}
		byID[c.ID] = c
	}
	b := tx.Bucket(bucketProducts)
	if b == nil {
		return nil
	}
	return b.ForEach(func(_, v []byte) error {
		var p struct {
			ID         int64 `json:"id,string"`
			CategoryID int64 `json:"category_id,string"`
		}
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		if c, ok := byID[p.CategoryID]; ok {
			c.Products = append(c.Products, p.ID)
		}
		return nil
	})
}
