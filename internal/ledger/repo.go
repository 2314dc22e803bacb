package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

// Repository is the persistence surface for committed sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Transaction, error)
}

// ListFilter narrows a transaction listing. From is inclusive, To exclusive.
type ListFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerID *uuid.UUID
	Status     *enums.PaymentStatus
	Method     *enums.PaymentMethod
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

func (r *gormRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to record transaction")
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&transaction, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, "transaction not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to load transaction")
	}
	return &transaction, nil
}

// FindByIDForUpdate loads the transaction row under a row-level lock so that
// concurrent settlements against the same sale serialize. Must run inside a
// transaction; sqlite has no row locks and ignores the clause.
func (r *gormRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&transaction, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, "transaction not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to lock transaction")
	}
	return &transaction, nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("payment_status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("payment_method = ?", *filter.Method)
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Transaction
	err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to list transactions")
	}
	return rows, nil
}
