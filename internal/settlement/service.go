package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/internal/customers"
	"github.com/dimasprayoga/tokopos-backend/internal/ledger"
	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/money"
)

// Service applies payments against credit sales and derives customer debt.
// Payments are an append-only ledger: the transaction status is always
// recomputed from the full payment history, never advanced incrementally.
type Service interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error)
	GetCustomerDebt(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	ListPayments(ctx context.Context, transactionID uuid.UUID) ([]models.Payment, error)
	ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error)
}

type RecordPaymentInput struct {
	// TransactionID comes from the URL path, not the request body.
	TransactionID uuid.UUID           `json:"-"`
	CustomerID    uuid.UUID           `json:"customer_id" validate:"required"`
	Amount        decimal.Decimal     `json:"amount" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	Notes         *string             `json:"notes" validate:"omitempty,max=1000"`
}

type service struct {
	client       *db.Client
	repo         Repository
	transactions ledger.Repository
	customers    customers.Repository
	logg         *logger.Logger
}

func NewService(
	client *db.Client,
	repo Repository,
	transactionRepo ledger.Repository,
	customerRepo customers.Repository,
	logg *logger.Logger,
) Service {
	return &service{
		client:       client,
		repo:         repo,
		transactions: transactionRepo,
		customers:    customerRepo,
		logg:         logg,
	}
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	transaction, err := s.transactions.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if transaction.PaymentMethod != enums.PaymentMethodDebt {
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment only applies to credit sales")
	}

	amount, err := money.Parse(input.Amount)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must have at most two decimal places")
	}
	if !amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must be greater than zero")
	}
	if !input.PaymentMethod.IsSettlement() {
		return nil, apperrors.New(apperrors.CodeValidation, "a settlement cannot itself be deferred")
	}
	if _, err := s.customers.FindByID(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		TransactionID: transaction.ID,
		CustomerID:    input.CustomerID,
		Amount:        amount,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Re-read under FOR UPDATE so concurrent settlements against the
		// same sale serialize; without the lock two racing payments can
		// each sum only their own row and both write partial.
		locked, err := s.transactions.WithTx(tx).FindByIDForUpdate(ctx, transaction.ID)
		if err != nil {
			return err
		}

		if err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		// Status is a pure function of (final_amount, sum of payments).
		// Recomputing from the full history inside the same tx makes
		// racing payments converge no matter the insertion order.
		totalPaid, err := repo.SumForTransaction(ctx, transaction.ID)
		if err != nil {
			return err
		}

		status := deriveStatus(locked.FinalAmount, totalPaid, locked.PaymentStatus)
		if status != locked.PaymentStatus {
			if err := repo.UpdateStatus(ctx, transaction.ID, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id":     payment.ID.String(),
		"transaction_id": transaction.ID.String(),
		"amount":         payment.Amount.String(),
	}), "payment recorded")

	return payment, nil
}

func (s *service) GetCustomerDebt(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return decimal.Zero, err
	}

	// Debt nets all payments against all outstanding sales in aggregate;
	// payments are not matched to individual invoices.
	outstanding, err := s.repo.SumOutstandingFinals(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := s.repo.SumForCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	return money.FloorZero(outstanding.Sub(paid)), nil
}

func (s *service) ListPayments(ctx context.Context, transactionID uuid.UUID) ([]models.Payment, error) {
	if _, err := s.transactions.FindByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.repo.ListByTransaction(ctx, transactionID)
}

func (s *service) ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// deriveStatus maps the paid total onto a status. Overpayment clamps to paid;
// a zero total keeps the current status so the transition stays monotonic.
func deriveStatus(finalAmount, totalPaid decimal.Decimal, current enums.PaymentStatus) enums.PaymentStatus {
	switch {
	case totalPaid.GreaterThanOrEqual(finalAmount):
		return enums.PaymentStatusPaid
	case totalPaid.IsPositive():
		return enums.PaymentStatusPartial
	default:
		return current
	}
}
