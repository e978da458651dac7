package gormstore

import (
	"context"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	"gorm.io/gorm"
)

type operatorRepo struct {
	db *gorm.DB
}

func (r *operatorRepo) Create(ctx context.Context, o *domain.Operator) error {
	if o.ID == 0 {
		o.ID = common.UUIDint64()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	return translate("create operator", r.db.WithContext(ctx).Create(o).Error)
}

func (r *operatorRepo) GetByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	var o domain.Operator
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&o).Error; err != nil {
		return nil, translate("get operator", err)
	}
	return &o, nil
}

func (r *operatorRepo) Update(ctx context.Context, o *domain.Operator) error {
	o.UpdatedAt = time.Now().UTC()
	return translate("update operator", r.db.WithContext(ctx).Save(o).Error)
}
