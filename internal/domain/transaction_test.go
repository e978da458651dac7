package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionTotal(t *testing.T) {
	tx := &Transaction{Items: []LineItem{{Quantity: 3, Unit: 5}, {Quantity: 2, Unit: 4}}}
	assert.Equal(t, int64(23), tx.Total())

	big := &Transaction{Items: []LineItem{
		{Quantity: math.MaxInt64 / 2, Unit: 1},
		{Quantity: math.MaxInt64 / 2, Unit: 1},
		{Quantity: 10, Unit: 1},
	}}
	assert.Equal(t, int64(math.MaxInt64), big.Total())

	assert.Equal(t, int64(math.MaxInt64), LineItem{Quantity: math.MaxInt64, Unit: 2}.Total())
	assert.Zero(t, LineItem{Quantity: 0, Unit: 9}.Total())
}

func TestTransactionFilterMatch(t *testing.T) {
	tx := &Transaction{Operation: OperationReceive}
	assert.True(t, TransactionFilter{}.Match(tx))
	assert.True(t, TransactionFilter{Operation: OperationReceive}.Match(tx))
	assert.False(t, TransactionFilter{Operation: OperationDistribute}.Match(tx))
}
