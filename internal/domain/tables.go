package domain

var Tables = []interface{}{
	// Inventory
	&Category{},
	&Product{},
	&Transaction{},
	&LineItem{},
	// System
	&Operator{},
}
