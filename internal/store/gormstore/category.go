package gormstore

import (
	"context"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type categoryRepo struct {
	db *gorm.DB
}

func (r *categoryRepo) Get(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		return nil, translate("get category", err)
	}
	rows := []*domain.Category{&c}
	if err := r.attachProducts(ctx, rows); err != nil {
		return nil, err
	}
	return &c, nil
}

// List seeds the default categories when the table is empty. The unique name
// index plus ON CONFLICT DO NOTHING keeps concurrent first reads from
// inserting duplicates.
func (r *categoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	var rows []*domain.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Category{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			now := time.Now().UTC()
			seed := make([]domain.Category, 0, len(domain.DefaultCategories))
			for _, name := range domain.DefaultCategories {
				seed = append(seed, domain.Category{ID: common.UUIDint64(), Name: name, CreatedAt: now, UpdatedAt: now})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return err
			}
			zap.L().Info("initialized default categories", zap.Int("count", len(seed)))
		}
		return tx.Order("id ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, translate("list categories", err)
	}
	if err := r.attachProducts(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// attachProducts fills the derived product back-reference of each category
func (r *categoryRepo) attachProducts(ctx context.Context, rows []*domain.Category) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(rows))
	byID := make(map[int64]*domain.Category, len(rows))
	for _, c := range rows {
		c.Products = domain.IDList{}
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	var refs []struct {
		ID         int64
		CategoryID int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("id", "category_id").
		Where("category_id IN ?", ids).
		Order("id ASC").
		Scan(&refs).Error
	if err != nil {
		return translate("list category products", err)
	}
	for _, ref := range refs {
		if c, ok := byID[ref.CategoryID]; ok {
			c.Products = append(c.Products, ref.ID)
		}
	}
	return nil
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == 0 {
		c.ID = common.UUIDint64()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Products == nil {
		c.Products = domain.IDList{}
	}
	return translate("create category", r.db.WithContext(ctx).Create(c).Error)
}

func (r *categoryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).Count(&n).Error
	return n, translate("count categories", err)
}
