package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. The ledger engine only reads it and issues
// stock decrements; everything else belongs to the catalog service.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name          string           `gorm:"column:name;not null" json:"name"`
	Barcode       *string          `gorm:"column:barcode;uniqueIndex" json:"barcode,omitempty"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Cost          *decimal.Decimal `gorm:"column:cost;type:numeric(12,2)" json:"cost,omitempty"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	MinStock      *int             `gorm:"column:min_stock" json:"min_stock,omitempty"`
	Category      *string          `gorm:"column:category" json:"category,omitempty"`
	ImageURL      *string          `gorm:"column:image_url" json:"image_url,omitempty"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the id client-side instead of relying on a
// database-generated default.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
