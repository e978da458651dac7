package gormstore

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	"github.com/talkincode/stockroom/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepo struct {
	db *gorm.DB
}

// withCategory selects products joined with their category name
func (r *productRepo) withCategory(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("inv_product.*, inv_category.name AS category_name").
		Joins("LEFT JOIN inv_category ON inv_category.id = inv_product.category_id")
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == 0 {
		p.ID = common.UUIDint64()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return translate("create product", r.db.WithContext(ctx).Create(p).Error)
}

func (r *productRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.withCategory(ctx).Where("inv_product.id = ?", id).Take(&p).Error
	if err != nil {
		return nil, translate("get product", err)
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	db := r.withCategory(ctx)
	if filter.CategoryID != 0 {
		db = db.Where("inv_product.category_id = ?", filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		if isPostgres(r.db) {
			db = db.Where("inv_product.name ILIKE ?", "%"+q+"%")
		} else {
			db = db.Where("LOWER(inv_product.name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}

	sortCol, ok := store.ProductSortColumns[filter.Sort]
	if !ok {
		sortCol = "id"
	}
	db = db.Order(clause.OrderByColumn{
		Column: clause.Column{Table: "inv_product", Name: sortCol},
		Desc:   filter.Desc,
	})

	var rows []*domain.Product
	if err := db.Find(&rows).Error; err != nil {
		return nil, translate("list products", err)
	}
	return rows, nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
			"image":       p.Image,
			"quantity":    p.Quantity,
			"category_id": p.CategoryID,
			"updated_at":  p.UpdatedAt,
		})
	if res.Error != nil {
		return translate("update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update product", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return translate("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("delete product", gorm.ErrRecordNotFound)
	}
	return nil
}

// AdjustQuantity locks the row where the dialect allows it, then applies the
// delta as a single SQL expression so concurrent writers never lose updates.
func (r *productRepo) AdjustQuantity(ctx context.Context, id int64, delta int64, clamp bool) (before, after int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur domain.Product
		q := tx.Model(&domain.Product{}).Select("id", "quantity").Where("id = ?", id)
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Take(&cur).Error; err != nil {
			return err
		}
		before = cur.Quantity
		if store.ExceedsMaxQuantity(before, delta) {
			return store.ErrStockTooLarge(id)
		}

		expr := gorm.Expr("quantity + ?", delta)
		if clamp {
			expr = gorm.Expr("CASE WHEN quantity + ? < 0 THEN 0 ELSE quantity + ? END", delta, delta)
		}
		upd := tx.Model(&domain.Product{}).Where("id = ?", id)
		if delta > 0 {
			// sqlite takes no row lock; the bound is repeated in the write
			upd = upd.Where("quantity <= ?", int64(math.MaxInt64)-delta)
		}
		res := upd.Updates(map[string]interface{}{
			"quantity":   expr,
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrStockTooLarge(id)
		}

		if err := tx.Model(&domain.Product{}).Select("quantity").Where("id = ?", id).Take(&cur).Error; err != nil {
			return err
		}
		after = cur.Quantity
		return nil
	})
	return before, after, translate("adjust product quantity", err)
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Count(&n).Error
	return n, translate("count products", err)
}

func (r *productRepo) TotalQuantity(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error
	return total, translate("sum product quantity", err)
}
