package domain

import (
	"math"
	"time"
)

// Operation is the kind of a recorded stock movement.
type Operation string

const (
	OperationReceive    Operation = "Receive"
	OperationDistribute Operation = "Distribute"
	OperationSubtract   Operation = "Subtract"
)

// Valid reports whether op is one of the recorded kinds.
func (op Operation) Valid() bool {
	switch op {
	case OperationReceive, OperationDistribute, OperationSubtract:
		return true
	}
	return false
}

// Inbound reports whether the operation adds stock.
func (op Operation) Inbound() bool {
	return op == OperationReceive
}

// Transaction is the immutable log entry of a stock movement. Only RestoredAt
// may change after creation.
type Transaction struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Operation  Operation  `gorm:"size:32;index" json:"operation"`
	Items      []LineItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"product"`
	Unit       int64      `json:"unit"`
	Purpose    string     `gorm:"size:500" json:"purpose"`
	Batch      string     `gorm:"size:200" json:"batchSize"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
	RestoredAt *time.Time `json:"restoredAt,omitempty"`
}

// TableName Specify table name
func (Transaction) TableName() string {
	return "inv_transaction"
}

// Total is the sum of quantity*unit over all line items, saturating at MaxInt64.
func (t *Transaction) Total() int64 {
	var total int64
	for _, it := range t.Items {
		v := it.Total()
		if total > math.MaxInt64-v {
			return math.MaxInt64
		}
		total += v
	}
	return total
}

// LineItem is one (product, quantity, unit) tuple within a transaction.
// Applied is the signed delta actually written to the product, which differs
// from Quantity*Unit when a distribution clamps at zero.
type LineItem struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false" json:"-"`
	TransactionID int64  `gorm:"index" json:"-"`
	Seq           int    `json:"-"`
	ProductID     int64  `gorm:"index" json:"_id,string"`
	Name          string `gorm:"size:200" json:"name"`
	Quantity      int64  `json:"quantity"`
	Unit          int64  `json:"unit"`
	Applied       int64  `json:"applied"`
	Before        int64  `json:"before"`
	After         int64  `json:"after"`
}

// TableName Specify table name
func (LineItem) TableName() string {
	return "inv_transaction_item"
}

// Total is quantity*unit, saturating at MaxInt64. Both factors are non-negative.
func (it LineItem) Total() int64 {
	if it.Quantity <= 0 || it.Unit <= 0 {
		return 0
	}
	if it.Unit > math.MaxInt64/it.Quantity {
		return math.MaxInt64
	}
	return it.Quantity * it.Unit
}

// TransactionFilter narrows transaction listings. Zero values mean "no filter".
type TransactionFilter struct {
	Operation Operation
	From      time.Time
	To        time.Time
}

// Match reports whether t passes the filter.
func (f TransactionFilter) Match(t *Transaction) bool {
	if f.Operation != "" && t.Operation != f.Operation {
		return false
	}
	if !f.From.IsZero() && t.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.CreatedAt.After(f.To) {
		return false
	}
	return true
}
