package boltstore

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	bolt "go.etcd.io/bbolt"
)

type transactionRepo struct {
	s *Store
}

// transactionDoc is the stored shape; line items are embedded in the document.
type transactionDoc struct {
	ID         int64            `json:"id"`
	Operation  domain.Operation `json:"operation"`
	Items      []itemDoc        `json:"items"`
	Unit       int64            `json:"unit"`
	Purpose    string           `json:"purpose"`
	Batch      string           `json:"batch"`
	CreatedAt  time.Time        `json:"created_at"`
	RestoredAt *time.Time       `json:"restored_at,omitempty"`
}

// itemDoc mirrors domain.LineItem with every field persisted
type itemDoc struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Unit      int64  `json:"unit"`
	Applied   int64  `json:"applied"`
	Before    int64  `json:"before"`
	After     int64  `json:"after"`
}

func toDoc(t *domain.Transaction) transactionDoc {
	doc := transactionDoc{
		ID:         t.ID,
		Operation:  t.Operation,
		Unit:       t.Unit,
		Purpose:    t.Purpose,
		Batch:      t.Batch,
		CreatedAt:  t.CreatedAt,
		RestoredAt: t.RestoredAt,
		Items:      make([]itemDoc, 0, len(t.Items)),
	}
	for _, it := range t.Items {
		doc.Items = append(doc.Items, itemDoc{
			ID: it.ID, ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity,
			Unit: it.Unit, Applied: it.Applied, Before: it.Before, After: it.After,
		})
	}
	return doc
}

func fromDoc(doc transactionDoc) *domain.Transaction {
	t := &domain.Transaction{
		ID:         doc.ID,
		Operation:  doc.Operation,
		Unit:       doc.Unit,
		Purpose:    doc.Purpose,
		Batch:      doc.Batch,
		CreatedAt:  doc.CreatedAt,
		RestoredAt: doc.RestoredAt,
		Items:      make([]domain.LineItem, 0, len(doc.Items)),
	}
	for i, it := range doc.Items {
		t.Items = append(t.Items, domain.LineItem{
			ID: it.ID, TransactionID: doc.ID, Seq: i, ProductID: it.ProductID, Name: it.Name,
			Quantity: it.Quantity, Unit: it.Unit, Applied: it.Applied, Before: it.Before, After: it.After,
		})
	}
	return t
}

func loadTransaction(b *bolt.Bucket, id int64) (*domain.Transaction, error) {
	var doc transactionDoc
	ok, err := getDoc(b, id, &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.Wrapf(domain.ErrNotFound, "transaction %d", id)
	}
	return fromDoc(doc), nil
}

func (r *transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	return r.s.update(ctx, "create transaction", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketTransactions)
		if err != nil {
			return err
		}
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
		return putDoc(b, t.ID, toDoc(t))
	})
}

func (r *transactionRepo) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	var t *domain.Transaction
	err := r.s.view(ctx, "get transaction", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketTransactions)
		if err != nil {
			return err
		}
		t, err = loadTransaction(b, id)
		return err
	})
	return t, err
}

func (r *transactionRepo) Page(ctx context.Context, before int64, limit int, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	rows := []*domain.Transaction{}
	err := r.s.view(ctx, "page transactions", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketTransactions)
		if err != nil {
			return err
		}
		c := b.Cursor()
		var k, v []byte
		if before > 0 {
			k, v = c.Seek(itob(before))
			if k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		} else {
			k, v = c.Last()
		}
		for ; k != nil; k, v = c.Prev() {
			if limit > 0 && len(rows) >= limit {
				break
			}
			var doc transactionDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			t := fromDoc(doc)
			if filter.Match(t) {
				rows = append(rows, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *transactionRepo) MarkRestored(ctx context.Context, id int64, at time.Time) error {
	return r.s.update(ctx, "restore transaction", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketTransactions)
		if err != nil {
			return err
		}
		t, err := loadTransaction(b, id)
		if err != nil {
			return err
		}
		if t.RestoredAt != nil {
			return pkgerrors.Wrapf(domain.ErrConflict, "transaction %d already restored", id)
		}
		t.RestoredAt = &at
		return putDoc(b, id, toDoc(t))
	})
}
