package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
)

// Transaction is a committed sale. Rows are immutable after commit except for
// PaymentStatus, which only the settlement tracker advances.
type Transaction struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CustomerID     *uuid.UUID          `gorm:"column:customer_id;type:uuid" json:"customer_id,omitempty"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null" json:"discount_amount"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null" json:"tax_amount"`
	FinalAmount    decimal.Decimal     `gorm:"column:final_amount;type:numeric(12,2);not null" json:"final_amount"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;not null" json:"payment_status"`
	Notes          *string             `gorm:"column:notes" json:"notes,omitempty"`
	Items          []TransactionItem   `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
