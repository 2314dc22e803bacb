package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/money"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

// Service manages the product catalog.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Page[models.Product], error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
}

type CreateProductInput struct {
	Name          string           `json:"name" validate:"required,min=1,max=200"`
	Barcode       *string          `json:"barcode" validate:"omitempty,min=1,max=64"`
	Price         decimal.Decimal  `json:"price" validate:"required"`
	Cost          *decimal.Decimal `json:"cost"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
	MinStock      *int             `json:"min_stock" validate:"omitempty,gte=0"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,url"`
}

type UpdateProductInput struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Barcode       *string          `json:"barcode" validate:"omitempty,min=1,max=64"`
	Price         *decimal.Decimal `json:"price"`
	Cost          *decimal.Decimal `json:"cost"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
	MinStock      *int             `json:"min_stock" validate:"omitempty,gte=0"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,url"`
	IsActive      *bool            `json:"is_active"`
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) Service {
	return &service{repo: repo, logg: logg}
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	price, err := money.Parse(input.Price)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "price must be a non-negative amount with at most two decimal places")
	}
	if price.IsNegative() || price.IsZero() {
		return nil, apperrors.New(apperrors.CodeValidation, "price must be greater than zero")
	}

	product := &models.Product{
		Name:          strings.TrimSpace(input.Name),
		Barcode:       normalizeBarcode(input.Barcode),
		Price:         price,
		StockQuantity: input.StockQuantity,
		MinStock:      input.MinStock,
		Category:      input.Category,
		ImageURL:      input.ImageURL,
		IsActive:      true,
	}
	if input.Cost != nil {
		cost, err := money.Parse(*input.Cost)
		if err != nil || cost.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "cost must be a non-negative amount with at most two decimal places")
		}
		product.Cost = &cost
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": product.ID.String(),
		"name":       product.Name,
	}), "product created")
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Barcode != nil {
		product.Barcode = normalizeBarcode(input.Barcode)
	}
	if input.Price != nil {
		price, err := money.Parse(*input.Price)
		if err != nil || price.IsNegative() || price.IsZero() {
			return nil, apperrors.New(apperrors.CodeValidation, "price must be greater than zero with at most two decimal places")
		}
		product.Price = price
	}
	if input.Cost != nil {
		cost, err := money.Parse(*input.Cost)
		if err != nil || cost.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "cost must be a non-negative amount with at most two decimal places")
		}
		product.Cost = &cost
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "stock_quantity must not be negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.MinStock != nil {
		product.MinStock = input.MinStock
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "barcode is required")
	}
	return s.repo.FindByBarcode(ctx, barcode)
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Page[models.Product], error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, page.Limit, cursor)
	if err != nil {
		return nil, err
	}
	result := pagination.NewPage(rows, page.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &result, nil
}

func (s *service) ListLowStock(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return nil
	}
	product.IsActive = false
	return s.repo.Update(ctx, product)
}

func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
