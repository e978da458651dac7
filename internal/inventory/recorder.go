package inventory

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
)

// DefaultPageSize is the batch size used when walking the transaction log.
const DefaultPageSize = 100

// Recorder persists the immutable log of stock movements.
type Recorder struct {
	txs      store.TransactionRepository
	pageSize int
	now      func() time.Time
}

// NewRecorder binds a recorder to a transaction repository
func NewRecorder(txs store.TransactionRepository) *Recorder {
	return &Recorder{txs: txs, pageSize: DefaultPageSize, now: time.Now}
}

// Validate checks a record request and reports every failing field at once.
func (r *Recorder) Validate(op domain.Operation, items []domain.LineItem, unit int64, purpose, batch string) error {
	v := &domain.ValidationError{}
	if !op.Valid() {
		v.Add("operation", "must be one of Receive, Distribute, Subtract")
	}
	if len(items) == 0 {
		v.Add("products", "at least one product is required")
	}
	for _, it := range items {
		if it.ProductID <= 0 {
			v.Add("products", "every product needs a valid id")
			break
		}
	}
	for _, it := range items {
		if it.Quantity < 0 {
			v.Add("products", "quantities must be non-negative")
			break
		}
	}
	if unit < 0 {
		v.Add("unit", "must be a non-negative number")
	}
	if strings.TrimSpace(purpose) == "" {
		v.Add("purpose", "is required")
	}
	if strings.TrimSpace(batch) == "" {
		v.Add("batch", "is required")
	}
	return v.OrNil()
}

// Record validates and stores a transaction, returning it with its generated
// id and timestamp.
func (r *Recorder) Record(ctx context.Context, op domain.Operation, items []domain.LineItem, unit int64, purpose, batch string) (*domain.Transaction, error) {
	if err := r.Validate(op, items, unit, purpose, batch); err != nil {
		return nil, err
	}
	t := &domain.Transaction{
		Operation: op,
		Items:     append([]domain.LineItem(nil), items...),
		Unit:      unit,
		Purpose:   strings.TrimSpace(purpose),
		Batch:     strings.TrimSpace(batch),
		CreatedAt: r.now().UTC(),
	}
	for i := range t.Items {
		t.Items[i].ID = 0
		t.Items[i].Unit = unit
	}
	if err := r.txs.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one transaction
func (r *Recorder) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.txs.Get(ctx, id)
}

// All walks every transaction matching filter, newest first. The sequence is
// finite and restartable: each range over it starts again from the newest
// record and keeps no state between calls. Iteration stops after the first error.
func (r *Recorder) All(ctx context.Context, filter domain.TransactionFilter) iter.Seq2[*domain.Transaction, error] {
	return func(yield func(*domain.Transaction, error) bool) {
		var before int64
		for {
			page, err := r.txs.Page(ctx, before, r.pageSize, filter)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, t := range page {
				if !yield(t, nil) {
					return
				}
			}
			if len(page) < r.pageSize {
				return
			}
			before = page[len(page)-1].ID
		}
	}
}

// Collect drains a transaction sequence, stopping at limit when limit > 0.
func Collect(seq iter.Seq2[*domain.Transaction, error], limit int) ([]*domain.Transaction, error) {
	rows := []*domain.Transaction{}
	for t, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, t)
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
