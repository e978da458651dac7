package boltstore

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	"github.com/talkincode/stockroom/pkg/common"
	bolt "go.etcd.io/bbolt"
)

type productRepo struct {
	s *Store
}

func productNotFound(id int64) error {
	return pkgerrors.Wrapf(domain.ErrNotFound, "product %d", id)
}

// categoryName resolves the display name of a product's category, empty when dangling
func categoryName(tx *bolt.Tx, id int64) string {
	b := tx.Bucket(bucketCategories)
	if b == nil {
		return ""
	}
	var c domain.Category
	if ok, err := getDoc(b, id, &c); err != nil || !ok {
		return ""
	}
	return c.Name
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	return r.s.update(ctx, "create product", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		if p.ID == 0 {
			p.ID = common.UUIDint64()
		} else if b.Get(itob(p.ID)) != nil {
			return pkgerrors.Wrapf(domain.ErrConflict, "product %d exists", p.ID)
		}
		now := time.Now().UTC()
		p.CreatedAt, p.UpdatedAt = now, now
		doc := *p
		doc.CategoryName = ""
		return putDoc(b, p.ID, &doc)
	})
}

func (r *productRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.s.view(ctx, "get product", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		ok, err := getDoc(b, id, &p)
		if err != nil {
			return err
		}
		if !ok {
			return productNotFound(id)
		}
		p.CategoryName = categoryName(tx, p.CategoryID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	rows := []*domain.Product{}
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	err := r.s.view(ctx, "list products", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		names := map[int64]string{}
		return b.ForEach(func(_, v []byte) error {
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if filter.CategoryID != 0 && p.CategoryID != filter.CategoryID {
				return nil
			}
			if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
				return nil
			}
			name, ok := names[p.CategoryID]
			if !ok {
				name = categoryName(tx, p.CategoryID)
				names[p.CategoryID] = name
			}
			p.CategoryName = name
			rows = append(rows, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	store.SortProducts(rows, filter.Sort, filter.Desc)
	return rows, nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	return r.s.update(ctx, "update product", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		var cur domain.Product
		ok, err := getDoc(b, p.ID, &cur)
		if err != nil {
			return err
		}
		if !ok {
			return productNotFound(p.ID)
		}
		p.CreatedAt = cur.CreatedAt
		p.UpdatedAt = time.Now().UTC()
		doc := *p
		doc.CategoryName = ""
		return putDoc(b, p.ID, &doc)
	})
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, "delete product", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		if b.Get(itob(id)) == nil {
			return productNotFound(id)
		}
		return b.Delete(itob(id))
	})
}

// AdjustQuantity is a read-modify-write inside one bolt write transaction;
// bolt serializes writers, so no update is lost.
func (r *productRepo) AdjustQuantity(ctx context.Context, id int64, delta int64, clamp bool) (before, after int64, err error) {
	err = r.s.update(ctx, "adjust product quantity", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		var p domain.Product
		ok, err := getDoc(b, id, &p)
		if err != nil {
			return err
		}
		if !ok {
			return productNotFound(id)
		}
		before = p.Quantity
		if store.ExceedsMaxQuantity(before, delta) {
			return store.ErrStockTooLarge(id)
		}
		p.Quantity += delta
		if clamp && p.Quantity < 0 {
			p.Quantity = 0
		}
		after = p.Quantity
		p.UpdatedAt = time.Now().UTC()
		p.CategoryName = ""
		return putDoc(b, id, &p)
	})
	return before, after, err
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.view(ctx, "count products", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		n = int64(b.Stats().KeyN)
		return nil
	})
	return n, err
}

func (r *productRepo) TotalQuantity(ctx context.Context) (int64, error) {
	var total int64
	err := r.s.view(ctx, "sum product quantity", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProducts)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			total += p.Quantity
			return nil
		})
	})
	return total, err
}
