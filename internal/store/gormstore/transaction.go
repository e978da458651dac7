package gormstore

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	"gorm.io/gorm"
)

type transactionRepo struct {
	db *gorm.DB
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

func (r *transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	if t.ID == 0 {
		t.ID = common.UUIDint64()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	for i := range t.Items {
		if t.Items[i].ID == 0 {
			t.Items[i].ID = common.UUIDint64()
		}
		t.Items[i].TransactionID = t.ID
		t.Items[i].Seq = i
	}
	return translate("create transaction", r.db.WithContext(ctx).Create(t).Error)
}

func (r *transactionRepo) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("id = ?", id).
		Take(&t).Error
	if err != nil {
		return nil, translate("get transaction", err)
	}
	return &t, nil
}

func (r *transactionRepo) Page(ctx context.Context, before int64, limit int, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	db := r.db.WithContext(ctx).Model(&domain.Transaction{}).Preload("Items", orderedItems)
	if before > 0 {
		db = db.Where("id < ?", before)
	}
	if filter.Operation != "" {
		db = db.Where("operation = ?", filter.Operation)
	}
	if !filter.From.IsZero() {
		db = db.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("created_at <= ?", filter.To)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []*domain.Transaction
	if err := db.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, translate("page transactions", err)
	}
	return rows, nil
}

func (r *transactionRepo) MarkRestored(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND restored_at IS NULL", id).
		Update("restored_at", at)
	if res.Error != nil {
		return translate("restore transaction", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate("restore transaction", err)
	}
	if count == 0 {
		return translate("restore transaction", gorm.ErrRecordNotFound)
	}
	return pkgerrors.Wrapf(domain.ErrConflict, "transaction %d already restored", id)
}
