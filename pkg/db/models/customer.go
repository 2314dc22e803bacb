package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is a registry entry for credit sales. DebtLimit is advisory: it is
// stored and surfaced but never enforced during a sale commit.
type Customer struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string           `gorm:"column:name;not null" json:"name"`
	Phone     *string          `gorm:"column:phone" json:"phone,omitempty"`
	Email     *string          `gorm:"column:email" json:"email,omitempty"`
	Address   *string          `gorm:"column:address" json:"address,omitempty"`
	DebtLimit *decimal.Decimal `gorm:"column:debt_limit;type:numeric(12,2)" json:"debt_limit,omitempty"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
