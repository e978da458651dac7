package inventory

import "github.com/talkincode/stockroom/internal/domain"

// TopicStockAdjusted is published on the event bus after stock changes commit.
const TopicStockAdjusted = "inventory:stock_adjusted"

// StockAdjusted describes committed quantity changes. Operation is empty for
// manual additions, which are not recorded as transactions.
type StockAdjusted struct {
	Operation     domain.Operation
	TransactionID int64
	Restored      bool
	Items         []domain.LineItem
}
