package domain

import "time"

const (
	OperatorEnabled  = "enabled"
	OperatorDisabled = "disabled"
)

// Operator is a user allowed to sign in to the inventory API.
type Operator struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Username     string    `gorm:"size:100;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:200" json:"-"`
	Level        string    `gorm:"size:32" json:"level"`
	Status       string    `gorm:"size:32" json:"status"`
	LastLogin    time.Time `json:"last_login"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Operator) TableName() string {
	return "inv_operator"
}
