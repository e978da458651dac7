package inventory

import (
	"context"
	"iter"
	"strings"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	"go.uber.org/zap"
)

const (
	defaultSubtractPurpose = "Manual adjustment"
	defaultSubtractBatch   = "manual"
)

// TransactionInput is a receive or distribute request.
type TransactionInput struct {
	Items   []Item
	Unit    int64
	Purpose string
	Batch   string
}

// AdjustInput is a single-product subtract or add request.
type AdjustInput struct {
	ProductID int64
	Quantity  int64
	Unit      int64
	Purpose   string
	Batch     string
}

// Service runs the engine and the recorder as one unit of work: the quantity
// writes and the transaction record commit together or not at all.
type Service struct {
	store store.Store
	bus   EventBus.Bus
	now   func() time.Time
}

// NewService creates a Service. bus may be nil.
func NewService(s store.Store, bus EventBus.Bus) *Service {
	return &Service{store: s, bus: bus, now: time.Now}
}

// Receive adds stock for every item and records a Receive transaction.
func (s *Service) Receive(ctx context.Context, in TransactionInput) (*domain.Transaction, error) {
	return s.move(ctx, domain.OperationReceive, in)
}

// Distribute removes stock for every item, clamping at zero, and records a
// Distribute transaction.
func (s *Service) Distribute(ctx context.Context, in TransactionInput) (*domain.Transaction, error) {
	return s.move(ctx, domain.OperationDistribute, in)
}

func (s *Service) move(ctx context.Context, op domain.Operation, in TransactionInput) (*domain.Transaction, error) {
	if err := validateInput(op, in); err != nil {
		return nil, err
	}

	var t *domain.Transaction
	err := s.store.Atomic(ctx, func(repos store.Repositories) error {
		engine := NewEngine(repos.Products())
		var (
			items []domain.LineItem
			err   error
		)
		if op == domain.OperationReceive {
			items, err = engine.ApplyReceive(ctx, in.Items, in.Unit)
		} else {
			items, err = engine.ApplyDistribute(ctx, in.Items, in.Unit)
		}
		if err != nil {
			return err
		}
		t, err = s.recorder(repos).Record(ctx, op, items, in.Unit, in.Purpose, in.Batch)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("stock transaction recorded",
		zap.String("operation", string(op)),
		zap.Int64("transaction_id", t.ID),
		zap.Int("items", len(t.Items)))
	s.publish(StockAdjusted{Operation: op, TransactionID: t.ID, Items: t.Items})
	return t, nil
}

// Subtract removes quantity*unit from one product, clamping at zero, and
// records a Subtract transaction. Purpose and batch default when blank.
func (s *Service) Subtract(ctx context.Context, in AdjustInput) (*domain.Product, *domain.Transaction, error) {
	if strings.TrimSpace(in.Purpose) == "" {
		in.Purpose = defaultSubtractPurpose
	}
	if strings.TrimSpace(in.Batch) == "" {
		in.Batch = defaultSubtractBatch
	}
	if err := validateAdjust(in); err != nil {
		return nil, nil, err
	}

	var (
		p *domain.Product
		t *domain.Transaction
	)
	err := s.store.Atomic(ctx, func(repos store.Repositories) error {
		item, err := NewEngine(repos.Products()).ApplySubtract(ctx, in.ProductID, in.Quantity, in.Unit)
		if err != nil {
			return err
		}
		t, err = s.recorder(repos).Record(ctx, domain.OperationSubtract, []domain.LineItem{item}, in.Unit, in.Purpose, in.Batch)
		if err != nil {
			return err
		}
		p, err = repos.Products().Get(ctx, in.ProductID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(StockAdjusted{Operation: domain.OperationSubtract, TransactionID: t.ID, Items: t.Items})
	return p, t, nil
}

// Add puts quantity*unit back on one product. It is not recorded.
func (s *Service) Add(ctx context.Context, in AdjustInput) (*domain.Product, error) {
	if err := validateAdjust(in); err != nil {
		return nil, err
	}

	var (
		p    *domain.Product
		item domain.LineItem
	)
	err := s.store.Atomic(ctx, func(repos store.Repositories) error {
		var err error
		item, err = NewEngine(repos.Products()).ApplyAdd(ctx, in.ProductID, in.Quantity, in.Unit)
		if err != nil {
			return err
		}
		p, err = repos.Products().Get(ctx, in.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(StockAdjusted{Items: []domain.LineItem{item}})
	return p, nil
}

// Restore reverses every line item of a transaction and marks it restored.
// Only the Applied delta is reversed, so a clamped distribution gives back
// exactly what it removed. Restoring twice fails with ErrConflict.
func (s *Service) Restore(ctx context.Context, id int64) (*domain.Transaction, error) {
	var (
		t        *domain.Transaction
		reverted []domain.LineItem
	)
	err := s.store.Atomic(ctx, func(repos store.Repositories) error {
		var err error
		t, err = repos.Transactions().Get(ctx, id)
		if err != nil {
			return err
		}
		if t.RestoredAt != nil {
			return pkgerrors.Wrapf(domain.ErrConflict, "transaction %d already restored", id)
		}
		reverted, err = NewEngine(repos.Products()).Revert(ctx, t.Items)
		if err != nil {
			return err
		}
		at := s.now().UTC()
		if err := repos.Transactions().MarkRestored(ctx, id, at); err != nil {
			return err
		}
		t.RestoredAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("stock transaction restored",
		zap.String("operation", string(t.Operation)),
		zap.Int64("transaction_id", t.ID))
	s.publish(StockAdjusted{Operation: t.Operation, TransactionID: t.ID, Restored: true, Items: reverted})
	return t, nil
}

// Transaction returns one recorded transaction.
func (s *Service) Transaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.recorder(s.store).Get(ctx, id)
}

// Transactions iterates the log newest first.
func (s *Service) Transactions(ctx context.Context, filter domain.TransactionFilter) iter.Seq2[*domain.Transaction, error] {
	return s.recorder(s.store).All(ctx, filter)
}

func (s *Service) recorder(repos store.Repositories) *Recorder {
	r := NewRecorder(repos.Transactions())
	r.now = s.now
	return r
}

func (s *Service) publish(ev StockAdjusted) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(TopicStockAdjusted, ev)
}

// validateInput checks a request before any stock is touched.
func validateInput(op domain.Operation, in TransactionInput) error {
	v := &domain.ValidationError{}
	if !op.Valid() {
		v.Add("operation", "must be one of Receive, Distribute, Subtract")
	}
	if len(in.Items) == 0 {
		v.Add("products", "at least one product is required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			v.Add("products", "every product needs a valid id")
			break
		}
	}
	for _, it := range in.Items {
		if it.Quantity < 0 {
			v.Add("quantity", "must be a non-negative number")
			break
		}
	}
	if in.Unit < 0 {
		v.Add("unit", "must be a non-negative number")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		v.Add("purpose", "is required")
	}
	if strings.TrimSpace(in.Batch) == "" {
		v.Add("batch", "is required")
	}
	if err := v.OrNil(); err != nil {
		return err
	}
	for _, it := range in.Items {
		if _, err := Delta(it.Quantity, in.Unit); err != nil {
			return err
		}
	}
	return nil
}

func validateAdjust(in AdjustInput) error {
	v := &domain.ValidationError{}
	if in.ProductID <= 0 {
		v.Add("productId", "is required")
	}
	if in.Quantity < 0 {
		v.Add("quantity", "must be a non-negative number")
	}
	if in.Unit < 0 {
		v.Add("unit", "must be a non-negative number")
	}
	if err := v.OrNil(); err != nil {
		return err
	}
	_, err := Delta(in.Quantity, in.Unit)
	return err
}
