package inventory

import (
	"context"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
)

// Summary is a point-in-time view of stock levels.
type Summary struct {
	Products      int64             `json:"products"`
	Categories    int64             `json:"categories"`
	TotalQuantity int64             `json:"total_quantity"`
	LowStock      []*domain.Product `json:"low_stock"`
	At            time.Time         `json:"at"`
}

// Summarize counts products and categories and lists products whose quantity
// is below threshold. Category seeding is not triggered.
func Summarize(ctx context.Context, repos store.Repositories, threshold int64) (*Summary, error) {
	s := &Summary{LowStock: []*domain.Product{}, At: time.Now().UTC()}
	var err error
	if s.Products, err = repos.Products().Count(ctx); err != nil {
		return nil, err
	}
	if s.Categories, err = repos.Categories().Count(ctx); err != nil {
		return nil, err
	}
	if s.TotalQuantity, err = repos.Products().TotalQuantity(ctx); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		return s, nil
	}
	rows, err := repos.Products().List(ctx, domain.ProductFilter{Sort: "quantity"})
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		if p.Quantity >= threshold {
			break
		}
		s.LowStock = append(s.LowStock, p)
	}
	return s, nil
}
