package customers

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	dsn := fmt.Sprintf("file:customers_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Customer{}))

	logg := logger.New(logger.Options{ServiceName: "customers-test", Output: io.Discard})
	return NewService(NewRepository(db.FromGorm(conn)), logg)
}

func strPtr(s string) *string { return &s }

func TestCreateCustomer(t *testing.T) {
	svc := newTestService(t)

	limit := decimal.NewFromInt(500000)
	customer, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{
		Name:      "  Bu Siti  ",
		Phone:     strPtr("081234567890"),
		DebtLimit: &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bu Siti", customer.Name)
	require.NotNil(t, customer.DebtLimit)
	assert.True(t, customer.DebtLimit.Equal(limit))
}

func TestCreateCustomerValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, CreateCustomerInput{Name: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	negative := decimal.NewFromInt(-1)
	_, err = svc.CreateCustomer(ctx, CreateCustomerInput{Name: "Pak Budi", DebtLimit: &negative})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestUpdateCustomer(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CreateCustomerInput{Name: "Pak Budi"})
	require.NoError(t, err)

	updated, err := svc.UpdateCustomer(ctx, customer.ID, UpdateCustomerInput{
		Phone: strPtr("085612341234"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "085612341234", *updated.Phone)

	_, err = svc.UpdateCustomer(ctx, uuid.New(), UpdateCustomerInput{Name: strPtr("X")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListCustomersSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Bu Siti", "Pak Budi", "Bu Rina"} {
		_, err := svc.CreateCustomer(ctx, CreateCustomerInput{Name: name})
		require.NoError(t, err)
	}

	page, err := svc.ListCustomers(ctx, strPtr("Bu "), pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	all, err := svc.ListCustomers(ctx, nil, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.NotNil(t, all.NextCursor)
}
