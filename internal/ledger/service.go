package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/internal/catalog"
	"github.com/dimasprayoga/tokopos-backend/internal/customers"
	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/money"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

// Service commits sales to the ledger and reads them back. A committed sale
// is immutable: corrections happen through new transactions, never edits.
type Service interface {
	CommitSale(ctx context.Context, input CommitSaleInput) (*models.Transaction, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListSales(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Page[models.Transaction], error)
}

type SaleItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

type CommitSaleInput struct {
	CustomerID     *uuid.UUID          `json:"customer_id"`
	Items          []SaleItemInput     `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method" validate:"required"`
	Notes          *string             `json:"notes" validate:"omitempty,max=1000"`
}

type service struct {
	client    *db.Client
	repo      Repository
	catalog   catalog.Repository
	customers customers.Repository
	logg      *logger.Logger
}

func NewService(
	client *db.Client,
	repo Repository,
	catalogRepo catalog.Repository,
	customerRepo customers.Repository,
	logg *logger.Logger,
) Service {
	return &service{
		client:    client,
		repo:      repo,
		catalog:   catalogRepo,
		customers: customerRepo,
		logg:      logg,
	}
}

func (s *service) CommitSale(ctx context.Context, input CommitSaleInput) (*models.Transaction, error) {
	if err := s.validateItems(input); err != nil {
		return nil, err
	}
	if input.CustomerID != nil {
		if _, err := s.customers.FindByID(ctx, *input.CustomerID); err != nil {
			return nil, err
		}
	}

	// Demand is aggregated per product up front so a cart listing the same
	// product twice is checked against its cumulative quantity, not item
	// by item against one stale stock figure.
	demand, order := aggregateDemand(input.Items)

	products, err := s.catalog.FindByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var missing []string
	for _, id := range order {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, "one or more products not found").
			WithDetails(map[string]any{"product_ids": missing})
	}

	var inactive []string
	for _, id := range order {
		if !byID[id].IsActive {
			inactive = append(inactive, id.String())
		}
	}
	if len(inactive) > 0 {
		return nil, apperrors.New(apperrors.CodeStateConflict, "one or more products are not for sale").
			WithDetails(map[string]any{"product_ids": inactive})
	}

	for _, id := range order {
		product := byID[id]
		if product.StockQuantity < demand[id] {
			return nil, insufficientStock(product, demand[id])
		}
	}

	discount, tax, err := parseAdjustments(input.DiscountAmount, input.TaxAmount)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.TransactionItem, 0, len(input.Items))
	for _, item := range input.Items {
		unitPrice, _ := money.Parse(item.UnitPrice)
		subtotal := money.Subtotal(unitPrice, item.Quantity)
		total = total.Add(subtotal)
		items = append(items, models.TransactionItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
		})
	}

	// The discount is applied as-is even when it exceeds the total, so
	// final_amount can go negative.
	final := total.Sub(discount).Add(tax)

	status := enums.PaymentStatusPaid
	if input.PaymentMethod == enums.PaymentMethodDebt {
		status = enums.PaymentStatusPending
	}

	transaction := &models.Transaction{
		CustomerID:     input.CustomerID,
		TotalAmount:    total,
		DiscountAmount: discount,
		TaxAmount:      tax,
		FinalAmount:    final,
		PaymentMethod:  input.PaymentMethod,
		PaymentStatus:  status,
		Notes:          input.Notes,
		Items:          items,
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		stock := s.catalog.WithTx(tx)

		// Re-check against live stock by decrementing conditionally: the
		// check and the write are one atomic statement, so two concurrent
		// sales draining the same product cannot both succeed past
		// availability.
		for _, id := range order {
			applied, err := stock.DecrementStock(ctx, id, demand[id])
			if err != nil {
				return err
			}
			if !applied {
				current, err := stock.FindByID(ctx, id)
				if err != nil {
					return err
				}
				return insufficientStock(*current, demand[id])
			}
		}

		return s.repo.WithTx(tx).Create(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": transaction.ID.String(),
		"payment_method": string(transaction.PaymentMethod),
		"final_amount":   transaction.FinalAmount.String(),
		"item_count":     len(transaction.Items),
	}), "sale committed")

	return transaction, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListSales(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Page[models.Transaction], error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, page.Limit, cursor)
	if err != nil {
		return nil, err
	}
	result := pagination.NewPage(rows, page.Limit, func(tr models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: tr.CreatedAt, ID: tr.ID}
	})
	return &result, nil
}

func (s *service) validateItems(input CommitSaleInput) error {
	if len(input.Items) == 0 {
		return apperrors.New(apperrors.CodeValidation, "items must not be empty")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return apperrors.New(apperrors.CodeValidation, "product_id is required on every item")
		}
		if item.Quantity <= 0 {
			return apperrors.New(apperrors.CodeValidation, "quantity must be greater than zero")
		}
		unitPrice, err := money.Parse(item.UnitPrice)
		if err != nil {
			return apperrors.New(apperrors.CodeValidation, "unit_price must have at most two decimal places")
		}
		if !unitPrice.IsPositive() {
			return apperrors.New(apperrors.CodeValidation, "unit_price must be greater than zero")
		}
	}
	if !input.PaymentMethod.IsValid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown payment method %q", input.PaymentMethod)
	}
	if input.PaymentMethod == enums.PaymentMethodDebt && input.CustomerID == nil {
		return apperrors.New(apperrors.CodeValidation, "credit sales require a customer")
	}
	return nil
}

// aggregateDemand sums requested quantity per distinct product and returns the
// distinct ids in first-seen order so error reporting stays deterministic.
func aggregateDemand(items []SaleItemInput) (map[uuid.UUID]int, []uuid.UUID) {
	demand := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := demand[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		demand[item.ProductID] += item.Quantity
	}
	return demand, order
}

func parseAdjustments(discount, tax decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	d, err := money.Parse(discount)
	if err != nil || d.IsNegative() {
		return decimal.Zero, decimal.Zero, apperrors.New(apperrors.CodeValidation, "discount_amount must be a non-negative amount with at most two decimal places")
	}
	t, err := money.Parse(tax)
	if err != nil || t.IsNegative() {
		return decimal.Zero, decimal.Zero, apperrors.New(apperrors.CodeValidation, "tax_amount must be a non-negative amount with at most two decimal places")
	}
	return d, t, nil
}

func insufficientStock(product models.Product, requested int) *apperrors.Error {
	return apperrors.Newf(apperrors.CodeInsufficientStock, "insufficient stock for %s", product.Name).
		WithDetails(map[string]any{
			"product_id": product.ID.String(),
			"available":  product.StockQuantity,
			"requested":  requested,
		})
}
