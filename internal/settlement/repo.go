package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
)

// Repository is the persistence surface for payments and the settlement
// reads over transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePayment(ctx context.Context, payment *models.Payment) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Payment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error)

	// SumForTransaction totals every payment recorded against the
	// transaction, including rows written earlier in the same tx scope.
	SumForTransaction(ctx context.Context, transactionID uuid.UUID) (decimal.Decimal, error)
	// SumForCustomer totals every payment the customer has ever made.
	SumForCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	// SumOutstandingFinals totals final_amount over the customer's
	// pending and partial transactions.
	SumOutstandingFinals(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	UpdateStatus(ctx context.Context, transactionID uuid.UUID, status enums.PaymentStatus) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(client *db.Client) Repository {
	return &gormRepository{db: client.DB()}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to record payment")
	}
	return nil
}

func (r *gormRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to list payments")
	}
	return rows, nil
}

func (r *gormRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to list payments")
	}
	return rows, nil
}

func (r *gormRepository) SumForTransaction(ctx context.Context, transactionID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("transaction_id = ?", transactionID))
}

func (r *gormRepository) SumForCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("customer_id = ?", customerID))
}

func (r *gormRepository) SumOutstandingFinals(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(final_amount), 0)").
		Where("customer_id = ?", customerID).
		Where("payment_status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusPartial}).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeStorage, err, "failed to sum outstanding transactions")
	}
	return parseAggregate(raw)
}

func (r *gormRepository) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status enums.PaymentStatus) error {
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Update("payment_status", status).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to update payment status")
	}
	return nil
}

func (r *gormRepository) sum(ctx context.Context, query *gorm.DB) (decimal.Decimal, error) {
	var raw string
	err := query.Select("COALESCE(SUM(amount), 0)").Scan(&raw).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeStorage, err, "failed to sum payments")
	}
	return parseAggregate(raw)
}

// parseAggregate converts a SUM() scan result into a decimal. The value comes
// back as text so neither driver routes it through a float.
func parseAggregate(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeStorage, err, "failed to parse aggregate amount")
	}
	return value, nil
}
