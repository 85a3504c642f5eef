package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer is a contractor's client. The service address is where the work
// happens and is part of the import dedupe key.
type Customer struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	Name         string            `gorm:"not null" json:"name"`
	Email        string            `gorm:"not null;default:''" json:"email"`
	Phone        string            `gorm:"not null;default:''" json:"phone"`
	AddressLine1 string            `gorm:"column:address_line1;not null;default:''" json:"address_line1"`
	City         string            `gorm:"not null;default:''" json:"city"`
	State        string            `gorm:"not null;default:''" json:"state"`
	PostalCode   string            `gorm:"not null;default:''" json:"postal_code"`
	Notes        string            `gorm:"not null;default:''" json:"notes,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
