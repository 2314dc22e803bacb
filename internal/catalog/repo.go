package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

// Repository is the persistence surface for products.
type Repository interface {
	// WithTx returns a copy of the repository bound to tx.
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Product, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)

	// DecrementStock subtracts qty from the product's stock only when
	// enough stock remains. It reports whether the decrement was applied.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

// ListFilter narrows a product listing.
type ListFilter struct {
	Category *string
	Search   *string
	Active   *bool
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

func (r *gormRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return apperrors.New(apperrors.CodeConflict, "a product with this barcode already exists")
		}
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to create product")
	}
	return nil
}

func (r *gormRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return apperrors.New(apperrors.CodeConflict, "a product with this barcode already exists")
		}
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to update product")
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to load product")
	}
	return &product, nil
}

func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to load products")
	}
	return products, nil
}

func (r *gormRepository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "barcode = ?", barcode).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to load product")
	}
	return &product, nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Search != nil {
		needle := "%" + *filter.Search + "%"
		query = query.Where("name LIKE ? OR barcode LIKE ?", needle, needle)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var products []models.Product
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to list products")
	}
	return products, nil
}

func (r *gormRepository) ListLowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("min_stock IS NOT NULL AND stock_quantity <= min_stock").
		Order("stock_quantity ASC").
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to list low stock products")
	}
	return products, nil
}

func (r *gormRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	// Conditional write so the availability check and the decrement are a
	// single atomic statement. A concurrent sale that drained the stock
	// first leaves RowsAffected at zero.
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.CodeStorage, res.Error, "failed to decrement stock")
	}
	return res.RowsAffected > 0, nil
}
