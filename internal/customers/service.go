package customers

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

// Service manages the customer registry.
type Service interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, search *string, page pagination.Params) (*pagination.Page[models.Customer], error)
}

type CreateCustomerInput struct {
	Name      string           `json:"name" validate:"required,min=1,max=200"`
	Phone     *string          `json:"phone" validate:"omitempty,max=32"`
	Email     *string          `json:"email" validate:"omitempty,email"`
	Address   *string          `json:"address" validate:"omitempty,max=500"`
	DebtLimit *decimal.Decimal `json:"debt_limit"`
}

type UpdateCustomerInput struct {
	Name      *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Phone     *string          `json:"phone" validate:"omitempty,max=32"`
	Email     *string          `json:"email" validate:"omitempty,email"`
	Address   *string          `json:"address" validate:"omitempty,max=500"`
	DebtLimit *decimal.Decimal `json:"debt_limit"`
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) Service {
	return &service{repo: repo, logg: logg}
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "name is required")
	}

	customer := &models.Customer{
		Name:    name,
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
	}
	if input.DebtLimit != nil {
		limit, err := money.Parse(*input.DebtLimit)
		if err != nil || limit.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "debt_limit must be a non-negative amount with at most two decimal places")
		}
		customer.DebtLimit = &limit
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "customer_id", customer.ID.String()), "customer created")
	return customer, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "name must not be empty")
		}
		customer.Name = name
	}
	if input.Phone != nil {
		customer.Phone = input.Phone
	}
	if input.Email != nil {
		customer.Email = input.Email
	}
	if input.Address != nil {
		customer.Address = input.Address
	}
	if input.DebtLimit != nil {
		limit, err := money.Parse(*input.DebtLimit)
		if err != nil || limit.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "debt_limit must be a non-negative amount with at most two decimal places")
		}
		customer.DebtLimit = &limit
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListCustomers(ctx context.Context, search *string, page pagination.Params) (*pagination.Page[models.Customer], error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, search, page.Limit, cursor)
	if err != nil {
		return nil, err
	}
	result := pagination.NewPage(rows, page.Limit, func(c models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &result, nil
}
