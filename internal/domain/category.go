package domain

import (
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Category groups products. Products is derived from Product.CategoryID on
// read and is informational only.
type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name      string    `gorm:"size:200;uniqueIndex" json:"name"`
	Products  IDList    `gorm:"-" json:"products"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "inv_category"
}

// DefaultCategories are inserted the first time the category collection is read empty.
var DefaultCategories = []string{"Fruits", "Vegetables", "Dairy", "Meat", "Grains", "Beverages"}

// IDList is a list of ids encoded as JSON strings, like every other id the
// API emits.
type IDList []int64

func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	b := make([]byte, 0, 2+len(l)*21)
	b = append(b, '[')
	for i, id := range l {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '"')
		b = strconv.AppendInt(b, id, 10)
		b = append(b, '"')
	}
	return append(b, ']'), nil
}

// UnmarshalJSON accepts quoted or bare ids
func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []jsoniter.RawMessage
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	out := make(IDList, 0, len(raw))
	for _, r := range raw {
		s := strings.Trim(string(r), `"`)
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		out = append(out, id)
	}
	*l = out
	return nil
}
