package domain

import "time"

// Product is a stocked item. Quantity is kept in base units and is never negative.
type Product struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name         string    `gorm:"size:200;index" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Image        string    `gorm:"size:1024" json:"image"`                        // URL to product image (optional)
	Quantity     int64     `gorm:"not null;default:0" json:"quantity"`            // current stock level
	CategoryID   int64     `gorm:"index" json:"category_id,string"`               // owning category, source of truth for membership
	CategoryName string    `gorm:"->;-:migration" json:"category_name,omitempty"` // filled on read, not persisted
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "inv_product"
}

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID int64
	Query      string // case-insensitive substring of the name
	Sort       string // id, name, quantity, created_at, updated_at
	Desc       bool
}
