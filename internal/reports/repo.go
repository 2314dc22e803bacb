package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
)

// Repository runs the aggregate reads behind reporting. All queries group in
// the database and hand decimals back as text to keep amounts exact.
type Repository interface {
	SalesByMethod(ctx context.Context, from, to time.Time) ([]MethodRollup, error)
	OutstandingByCustomer(ctx context.Context) ([]OutstandingRow, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRollup, error)
}

// MethodRollup is the per-payment-method aggregate for a period.
type MethodRollup struct {
	PaymentMethod  enums.PaymentMethod
	Count          int64
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	FinalAmount    decimal.Decimal
}

// OutstandingRow is one customer's open credit position.
type OutstandingRow struct {
	CustomerID   uuid.UUID
	CustomerName string
	OpenSales    int64
	Outstanding  decimal.Decimal
	TotalPaid    decimal.Decimal
}

// ProductRollup is a product's sold volume within a period.
type ProductRollup struct {
	ProductID    uuid.UUID
	ProductName  string
	QuantitySold int64
	Revenue      decimal.Decimal
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(client *db.Client) Repository {
	return &gormRepository{db: client.DB()}
}

type methodRollupRow struct {
	PaymentMethod  string
	Count          int64
	TotalAmount    string
	DiscountAmount string
	TaxAmount      string
	FinalAmount    string
}

func (r *gormRepository) SalesByMethod(ctx context.Context, from, to time.Time) ([]MethodRollup, error) {
	var rows []methodRollupRow
	err := r.db.WithContext(ctx).
		Table("transactions").
		Select(`payment_method,
			COUNT(*) AS count,
			COALESCE(SUM(total_amount), 0) AS total_amount,
			COALESCE(SUM(discount_amount), 0) AS discount_amount,
			COALESCE(SUM(tax_amount), 0) AS tax_amount,
			COALESCE(SUM(final_amount), 0) AS final_amount`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("payment_method").
		Order("payment_method ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to aggregate sales")
	}

	rollups := make([]MethodRollup, 0, len(rows))
	for _, row := range rows {
		rollup := MethodRollup{
			PaymentMethod: enums.PaymentMethod(row.PaymentMethod),
			Count:         row.Count,
		}
		var err error
		if rollup.TotalAmount, err = parseAmount(row.TotalAmount); err != nil {
			return nil, err
		}
		if rollup.DiscountAmount, err = parseAmount(row.DiscountAmount); err != nil {
			return nil, err
		}
		if rollup.TaxAmount, err = parseAmount(row.TaxAmount); err != nil {
			return nil, err
		}
		if rollup.FinalAmount, err = parseAmount(row.FinalAmount); err != nil {
			return nil, err
		}
		rollups = append(rollups, rollup)
	}
	return rollups, nil
}

type outstandingRow struct {
	CustomerID   string
	CustomerName string
	OpenSales    int64
	Outstanding  string
	TotalPaid    string
}

func (r *gormRepository) OutstandingByCustomer(ctx context.Context) ([]OutstandingRow, error) {
	var rows []outstandingRow
	err := r.db.WithContext(ctx).
		Table("transactions").
		Select(`transactions.customer_id AS customer_id,
			customers.name AS customer_name,
			COUNT(*) AS open_sales,
			COALESCE(SUM(transactions.final_amount), 0) AS outstanding,
			COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.customer_id = transactions.customer_id), 0) AS total_paid`).
		Joins("JOIN customers ON customers.id = transactions.customer_id").
		Where("transactions.payment_status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusPartial}).
		Group("transactions.customer_id, customers.name").
		Order("outstanding DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to aggregate outstanding debt")
	}

	result := make([]OutstandingRow, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.CustomerID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to parse customer id")
		}
		out := OutstandingRow{
			CustomerID:   id,
			CustomerName: row.CustomerName,
			OpenSales:    row.OpenSales,
		}
		if out.Outstanding, err = parseAmount(row.Outstanding); err != nil {
			return nil, err
		}
		if out.TotalPaid, err = parseAmount(row.TotalPaid); err != nil {
			return nil, err
		}
		result = append(result, out)
	}
	return result, nil
}

type productRollupRow struct {
	ProductID    string
	ProductName  string
	QuantitySold int64
	Revenue      string
}

func (r *gormRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRollup, error) {
	var rows []productRollupRow
	err := r.db.WithContext(ctx).
		Table("transaction_items").
		Select(`transaction_items.product_id AS product_id,
			products.name AS product_name,
			COALESCE(SUM(transaction_items.quantity), 0) AS quantity_sold,
			COALESCE(SUM(transaction_items.subtotal), 0) AS revenue`).
		Joins("JOIN transactions ON transactions.id = transaction_items.transaction_id").
		Joins("JOIN products ON products.id = transaction_items.product_id").
		Where("transactions.created_at >= ? AND transactions.created_at < ?", from, to).
		Group("transaction_items.product_id, products.name").
		Order("quantity_sold DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to aggregate product sales")
	}

	result := make([]ProductRollup, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ProductID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to parse product id")
		}
		rollup := ProductRollup{
			ProductID:    id,
			ProductName:  row.ProductName,
			QuantitySold: row.QuantitySold,
		}
		if rollup.Revenue, err = parseAmount(row.Revenue); err != nil {
			return nil, err
		}
		result = append(result, rollup)
	}
	return result, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeStorage, err, "failed to parse aggregate amount")
	}
	return value, nil
}
