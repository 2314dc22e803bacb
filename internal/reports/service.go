package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
)

// Service produces the back-office rollups: period sales summaries,
// outstanding debt, and product movement. Everything is derived at read time;
// nothing here writes.
type Service interface {
	SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
	OutstandingDebts(ctx context.Context) ([]DebtSummary, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRollup, error)
}

// SalesSummary is the aggregate picture of a reporting period.
type SalesSummary struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	TransactionCount int64           `json:"transaction_count"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	ByMethod         []MethodSummary `json:"by_method"`
}

type MethodSummary struct {
	PaymentMethod string          `json:"payment_method"`
	Count         int64           `json:"count"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

// DebtSummary is one customer's open position, net of everything they paid.
type DebtSummary struct {
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	OpenSales    int64           `json:"open_sales"`
	Debt         decimal.Decimal `json:"debt"`
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) Service {
	return &service{repo: repo, logg: logg}
}

func (s *service) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	if !to.After(from) {
		return nil, apperrors.New(apperrors.CodeValidation, "period end must be after period start")
	}

	rollups, err := s.repo.SalesByMethod(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &SalesSummary{
		From:           from,
		To:             to,
		GrossAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		NetAmount:      decimal.Zero,
		ByMethod:       make([]MethodSummary, 0, len(rollups)),
	}
	for _, rollup := range rollups {
		summary.TransactionCount += rollup.Count
		summary.GrossAmount = summary.GrossAmount.Add(rollup.TotalAmount)
		summary.DiscountAmount = summary.DiscountAmount.Add(rollup.DiscountAmount)
		summary.TaxAmount = summary.TaxAmount.Add(rollup.TaxAmount)
		summary.NetAmount = summary.NetAmount.Add(rollup.FinalAmount)
		summary.ByMethod = append(summary.ByMethod, MethodSummary{
			PaymentMethod: string(rollup.PaymentMethod),
			Count:         rollup.Count,
			NetAmount:     rollup.FinalAmount,
		})
	}
	return summary, nil
}

func (s *service) OutstandingDebts(ctx context.Context) ([]DebtSummary, error) {
	rows, err := s.repo.OutstandingByCustomer(ctx)
	if err != nil {
		return nil, err
	}

	debts := make([]DebtSummary, 0, len(rows))
	for _, row := range rows {
		debt := row.Outstanding.Sub(row.TotalPaid)
		if debt.IsNegative() || debt.IsZero() {
			continue
		}
		debts = append(debts, DebtSummary{
			CustomerID:   row.CustomerID.String(),
			CustomerName: row.CustomerName,
			OpenSales:    row.OpenSales,
			Debt:         debt,
		})
	}
	return debts, nil
}

func (s *service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRollup, error) {
	if !to.After(from) {
		return nil, apperrors.New(apperrors.CodeValidation, "period end must be after period start")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.TopProducts(ctx, from, to, limit)
}
