package store

import (
	"sort"
	"strings"

	"github.com/talkincode/stockroom/internal/domain"
)

// ProductSortColumns whitelists the sortable product columns.
var ProductSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"quantity":   "quantity",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// SortProducts orders products in memory the same way the SQL backends do.
func SortProducts(rows []*domain.Product, field string, desc bool) {
	less := func(a, b *domain.Product) bool { return a.ID < b.ID }
	switch field {
	case "name":
		less = func(a, b *domain.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "quantity":
		less = func(a, b *domain.Product) bool { return a.Quantity < b.Quantity }
	case "created_at":
		less = func(a, b *domain.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updated_at":
		less = func(a, b *domain.Product) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}
