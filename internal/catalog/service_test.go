package catalog

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

func newTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))
	return db.FromGorm(conn)
}

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()

	client := newTestDB(t)
	repo := NewRepository(client)
	logg := logger.New(logger.Options{ServiceName: "catalog-test", Output: io.Discard})
	return NewService(repo, logg), repo
}

func strPtr(s string) *string { return &s }

func TestCreateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "Indomie Goreng",
		Barcode:       strPtr("8998866200578"),
		Price:         decimal.NewFromFloat(3500),
		StockQuantity: 120,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, product.ID)
	assert.True(t, product.IsActive)
	assert.Equal(t, 120, product.StockQuantity)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(3500)))
}

func TestCreateProductRejectsSubCentPrice(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:  "Teh Botol",
		Price: decimal.NewFromFloat(3.999),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:    "Aqua 600ml",
		Barcode: strPtr("8886008101053"),
		Price:   decimal.NewFromInt(4000),
	})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:    "Aqua 600ml duplicate",
		Barcode: strPtr("8886008101053"),
		Price:   decimal.NewFromInt(4000),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestGetProductByBarcode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:    "Kopi Kapal Api",
		Barcode: strPtr("  8991002101012  "),
		Price:   decimal.NewFromInt(1500),
	})
	require.NoError(t, err)

	found, err := svc.GetProductByBarcode(ctx, "8991002101012")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetProductByBarcode(ctx, "0000000000000")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "Beras 5kg",
		Price:         decimal.NewFromInt(68000),
		StockQuantity: 10,
	})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(70000)
	newStock := 25
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{
		Price:         &newPrice,
		StockQuantity: &newStock,
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, 25, updated.StockQuantity)

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{Price: &newPrice})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestDeactivateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "Rokok Surya 12",
		Price: decimal.NewFromInt(28000),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(ctx, product.ID))
	// Deactivating twice is a no-op.
	require.NoError(t, svc.DeactivateProduct(ctx, product.ID))

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestListProductsPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateProduct(ctx, CreateProductInput{
			Name:  fmt.Sprintf("Snack %02d", i),
			Price: decimal.NewFromInt(2000),
		})
		require.NoError(t, err)
	}

	first, err := svc.ListProducts(ctx, ListFilter{}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotNil(t, first.NextCursor)

	second, err := svc.ListProducts(ctx, ListFilter{}, pagination.Params{Limit: 3, Cursor: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Nil(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(first.Items, second.Items...) {
		require.False(t, seen[p.ID], "product %s appeared twice", p.ID)
		seen[p.ID] = true
	}
}

func TestListLowStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	min := 10
	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "Gula 1kg",
		Price:         decimal.NewFromInt(16000),
		StockQuantity: 4,
		MinStock:      &min,
	})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:          "Minyak 2L",
		Price:         decimal.NewFromInt(34000),
		StockQuantity: 50,
		MinStock:      &min,
	})
	require.NoError(t, err)

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Gula 1kg", low[0].Name)
}

func TestDecrementStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "Telur 1kg",
		Price:         decimal.NewFromInt(27000),
		StockQuantity: 5,
	})
	require.NoError(t, err)

	ok, err := repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// Remaining stock is 2; asking for 3 must not apply.
	ok, err = repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
}
