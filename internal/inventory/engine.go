package inventory

import (
	"context"
	"math"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
)

// Item is one requested (product, quantity) pair; the unit is supplied per call.
type Item struct {
	ProductID int64
	Quantity  int64
}

// Engine applies quantity deltas to products. Every product write is a single
// atomic adjustment at the store level; grouping several writes into one unit
// is the caller's job (see Service).
type Engine struct {
	products store.ProductRepository
}

// NewEngine binds an engine to a product repository
func NewEngine(products store.ProductRepository) *Engine {
	return &Engine{products: products}
}

// ApplyReceive adds quantity*unit to each product.
func (e *Engine) ApplyReceive(ctx context.Context, items []Item, unit int64) ([]domain.LineItem, error) {
	return e.applyAll(ctx, items, unit, +1, false)
}

// ApplyDistribute removes quantity*unit from each product, stopping at zero.
func (e *Engine) ApplyDistribute(ctx context.Context, items []Item, unit int64) ([]domain.LineItem, error) {
	return e.applyAll(ctx, items, unit, -1, true)
}

// ApplySubtract removes quantity*unit from one product, stopping at zero.
func (e *Engine) ApplySubtract(ctx context.Context, productID, quantity, unit int64) (domain.LineItem, error) {
	delta, err := Delta(quantity, unit)
	if err != nil {
		return domain.LineItem{}, err
	}
	return e.apply(ctx, productID, quantity, unit, -delta, true)
}

// ApplyAdd adds quantity*unit to one product outside the receive flow.
func (e *Engine) ApplyAdd(ctx context.Context, productID, quantity, unit int64) (domain.LineItem, error) {
	delta, err := Delta(quantity, unit)
	if err != nil {
		return domain.LineItem{}, err
	}
	return e.apply(ctx, productID, quantity, unit, delta, false)
}

// Revert writes the inverse of each item's Applied delta. Taking stock back
// out is clamped at zero, since it may have been consumed in the meantime.
func (e *Engine) Revert(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		delta := -it.Applied
		res, err := e.apply(ctx, it.ProductID, it.Quantity, it.Unit, delta, delta < 0)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) applyAll(ctx context.Context, items []Item, unit int64, sign int64, clamp bool) ([]domain.LineItem, error) {
	deltas := make([]int64, len(items))
	for i, it := range items {
		d, err := Delta(it.Quantity, unit)
		if err != nil {
			return nil, err
		}
		deltas[i] = sign * d
	}

	out := make([]domain.LineItem, 0, len(items))
	for i, it := range items {
		res, err := e.apply(ctx, it.ProductID, it.Quantity, unit, deltas[i], clamp)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) apply(ctx context.Context, productID, quantity, unit, delta int64, clamp bool) (domain.LineItem, error) {
	p, err := e.products.Get(ctx, productID)
	if err != nil {
		return domain.LineItem{}, err
	}
	before, after, err := e.products.AdjustQuantity(ctx, productID, delta, clamp)
	if err != nil {
		return domain.LineItem{}, err
	}
	return domain.LineItem{
		ProductID: productID,
		Name:      p.Name,
		Quantity:  quantity,
		Unit:      unit,
		Applied:   after - before,
		Before:    before,
		After:     after,
	}, nil
}

// Delta validates a quantity and unit pair and returns quantity*unit.
func Delta(quantity, unit int64) (int64, error) {
	v := &domain.ValidationError{}
	if quantity < 0 {
		v.Add("quantity", "must be a non-negative number")
	}
	if unit < 0 {
		v.Add("unit", "must be a non-negative number")
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}
	if quantity != 0 && unit > math.MaxInt64/quantity {
		return 0, pkgerrors.WithStack(domain.NewValidationError("quantity", "quantity multiplied by unit is too large"))
	}
	return quantity * unit, nil
}
