package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
)

// Payment is one append-only settlement against a credit sale. The referenced
// transaction must carry payment_method = debt; a payment's own method can
// never be debt.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID           `gorm:"column:transaction_id;type:uuid;not null" json:"transaction_id"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	Notes         *string             `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
