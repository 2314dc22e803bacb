package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

// Repository is the persistence surface for customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, search *string, limit int, cursor *pagination.Cursor) ([]models.Customer, error)
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

func (r *gormRepository) Create(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to create customer")
	}
	return nil
}

func (r *gormRepository) Update(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Save(customer).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to update customer")
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, "customer not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to load customer")
	}
	return &customer, nil
}

func (r *gormRepository) List(ctx context.Context, search *string, limit int, cursor *pagination.Cursor) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{})

	if search != nil {
		needle := "%" + *search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ?", needle, needle)
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Customer
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to list customers")
	}
	return rows, nil
}
