package ledger

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

	"github.com/dimasprayoga/tokopos-backend/internal/catalog"
	"github.com/dimasprayoga/tokopos-backend/internal/customers"
	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/pagination"
)

type fixture struct {
	client    *db.Client
	service   Service
	catalog   catalog.Repository
	customers customers.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.Transaction{},
		&models.TransactionItem{},
	))

	client := db.FromGorm(conn)
	catalogRepo := catalog.NewRepository(client)
	customerRepo := customers.NewRepository(client)
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})

	return &fixture{
		client:    client,
		service:   NewService(client, NewRepository(client), catalogRepo, customerRepo, logg),
		catalog:   catalogRepo,
		customers: customerRepo,
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, price decimal.Decimal, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: price, StockQuantity: stock, IsActive: true}
	require.NoError(t, f.catalog.Create(context.Background(), product))
	return product
}

func (f *fixture) seedCustomer(t *testing.T, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: name}
	require.NoError(t, f.customers.Create(context.Background(), customer))
	return customer
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	product, err := f.catalog.FindByID(context.Background(), id)
	require.NoError(t, err)
	return product.StockQuantity
}

func TestCommitSaleCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Indomie Goreng", decimal.RequireFromString("10.00"), 10)

	tr, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
		},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.NoError(t, err)

	assert.True(t, tr.TotalAmount.Equal(decimal.RequireFromString("30.00")), "total = %s", tr.TotalAmount)
	assert.True(t, tr.FinalAmount.Equal(decimal.RequireFromString("30.00")), "final = %s", tr.FinalAmount)
	assert.Equal(t, enums.PaymentStatusPaid, tr.PaymentStatus)
	require.Len(t, tr.Items, 1)
	assert.True(t, tr.Items[0].Subtotal.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, 7, f.stockOf(t, product.ID))
}

func TestCommitSaleInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Teh Botol", decimal.RequireFromString("4.00"), 2)

	_, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("4.00")},
		},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientStock))

	details, ok := apperrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, product.ID.String(), details["product_id"])
	assert.Equal(t, 2, details["available"])
	assert.Equal(t, 3, details["requested"])

	assert.Equal(t, 2, f.stockOf(t, product.ID), "failed commit must not touch stock")
}

func TestCommitSaleAggregatesRepeatedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Stock 5 covers each line alone but not both together.
	product := f.seedProduct(t, "Aqua 600ml", decimal.RequireFromString("4.00"), 5)

	_, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("4.00")},
			{ProductID: product.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("4.00")},
		},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientStock))

	details := apperrors.As(err).Details().(map[string]any)
	assert.Equal(t, 6, details["requested"])
	assert.Equal(t, 5, f.stockOf(t, product.ID))
}

func TestCommitSaleAtomicityOnPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plentiful := f.seedProduct(t, "Beras 5kg", decimal.RequireFromString("68.00"), 100)
	scarce := f.seedProduct(t, "Minyak 2L", decimal.RequireFromString("34.00"), 1)

	_, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items: []SaleItemInput{
			{ProductID: plentiful.ID, Quantity: 10, UnitPrice: decimal.RequireFromString("68.00")},
			{ProductID: scarce.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("34.00")},
		},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientStock))

	assert.Equal(t, 100, f.stockOf(t, plentiful.ID), "rollback must restore the first decrement")
	assert.Equal(t, 1, f.stockOf(t, scarce.ID))

	page, err := f.service.ListSales(ctx, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items, "no transaction row may survive a failed commit")
}

func TestCommitSaleRejectsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Rokok Stok Lama", decimal.RequireFromString("15.00"), 10)
	product.IsActive = false
	require.NoError(t, f.catalog.Update(ctx, product))

	_, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("15.00")}},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))

	details := apperrors.As(err).Details().(map[string]any)
	assert.Equal(t, []string{product.ID.String()}, details["product_ids"])
	assert.Equal(t, 10, f.stockOf(t, product.ID))
}

func TestCommitSaleUnknownProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	known := f.seedProduct(t, "Kopi Kapal Api", decimal.RequireFromString("1.50"), 10)
	ghost := uuid.New()

	_, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items: []SaleItemInput{
			{ProductID: known.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("1.50")},
			{ProductID: ghost, Quantity: 1, UnitPrice: decimal.RequireFromString("2.00")},
		},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	details := apperrors.As(err).Details().(map[string]any)
	assert.Equal(t, []string{ghost.String()}, details["product_ids"])
	assert.Equal(t, 10, f.stockOf(t, known.ID))
}

func TestCommitSaleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Gula 1kg", decimal.RequireFromString("16.00"), 10)

	cases := []struct {
		name  string
		input CommitSaleInput
	}{
		{
			name:  "empty items",
			input: CommitSaleInput{PaymentMethod: enums.PaymentMethodCash},
		},
		{
			name: "zero quantity",
			input: CommitSaleInput{
				Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 0, UnitPrice: decimal.NewFromInt(16)}},
				PaymentMethod: enums.PaymentMethodCash,
			},
		},
		{
			name: "zero unit price",
			input: CommitSaleInput{
				Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.Zero}},
				PaymentMethod: enums.PaymentMethodCash,
			},
		},
		{
			name: "sub-cent unit price",
			input: CommitSaleInput{
				Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("15.999")}},
				PaymentMethod: enums.PaymentMethodCash,
			},
		},
		{
			name: "unknown payment method",
			input: CommitSaleInput{
				Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(16)}},
				PaymentMethod: enums.PaymentMethod("barter"),
			},
		},
		{
			name: "negative discount",
			input: CommitSaleInput{
				Items:          []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(16)}},
				DiscountAmount: decimal.NewFromInt(-1),
				PaymentMethod:  enums.PaymentMethodCash,
			},
		},
		{
			name: "debt without customer",
			input: CommitSaleInput{
				Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(16)}},
				PaymentMethod: enums.PaymentMethodDebt,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.CommitSale(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}

	assert.Equal(t, 10, f.stockOf(t, product.ID))
}

func TestCommitSaleDebtPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Rokok Surya 12", decimal.RequireFromString("28.00"), 20)
	customer := f.seedCustomer(t, "Bu Siti")

	tr, err := f.service.CommitSale(ctx, CommitSaleInput{
		CustomerID:    &customer.ID,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("28.00")}},
		PaymentMethod: enums.PaymentMethodDebt,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, tr.PaymentStatus)
	require.NotNil(t, tr.CustomerID)
	assert.Equal(t, customer.ID, *tr.CustomerID)
}

func TestCommitSaleUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Telur 1kg", decimal.RequireFromString("27.00"), 5)
	ghost := uuid.New()

	_, err := f.service.CommitSale(ctx, CommitSaleInput{
		CustomerID:    &ghost,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("27.00")}},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCommitSaleDiscountAndTax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Snack Box", decimal.RequireFromString("25.00"), 50)

	tr, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items:          []SaleItemInput{{ProductID: product.ID, Quantity: 4, UnitPrice: decimal.RequireFromString("25.00")}},
		DiscountAmount: decimal.RequireFromString("10.00"),
		TaxAmount:      decimal.RequireFromString("9.90"),
		PaymentMethod:  enums.PaymentMethodQRIS,
	})
	require.NoError(t, err)
	assert.True(t, tr.TotalAmount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, tr.FinalAmount.Equal(decimal.RequireFromString("99.90")), "final = %s", tr.FinalAmount)
}

func TestCommitSaleDiscountExceedingTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Permen", decimal.RequireFromString("0.50"), 10)

	// The discount is recorded as-is; final_amount goes negative.
	tr, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items:          []SaleItemInput{{ProductID: product.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("0.50")}},
		DiscountAmount: decimal.RequireFromString("5.00"),
		PaymentMethod:  enums.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.True(t, tr.FinalAmount.Equal(decimal.RequireFromString("-4.00")), "final = %s", tr.FinalAmount)
}

func TestCommitSaleConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Air Galon", decimal.RequireFromString("0.01"), 20000)

	// Repeated decimal summation must stay exact.
	sold := 0
	total := decimal.Zero
	for i := 0; i < 100; i++ {
		tr, err := f.service.CommitSale(ctx, CommitSaleInput{
			Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 7, UnitPrice: decimal.RequireFromString("0.01")}},
			PaymentMethod: enums.PaymentMethodCash,
		})
		require.NoError(t, err)
		sold += 7
		total = total.Add(tr.FinalAmount)
	}

	assert.Equal(t, 20000-sold, f.stockOf(t, product.ID))
	assert.True(t, total.Equal(decimal.RequireFromString("7.00")), "sum = %s", total)
}

func TestGetSaleAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Sabun Mandi", decimal.RequireFromString("5.00"), 100)

	var last *models.Transaction
	for i := 0; i < 4; i++ {
		tr, err := f.service.CommitSale(ctx, CommitSaleInput{
			Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")}},
			PaymentMethod: enums.PaymentMethodBankTransfer,
		})
		require.NoError(t, err)
		last = tr
	}

	got, err := f.service.GetSale(ctx, last.ID)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)
	require.Len(t, got.Items, 1)

	_, err = f.service.GetSale(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	method := enums.PaymentMethodBankTransfer
	page, err := f.service.ListSales(ctx, ListFilter{Method: &method}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.NotNil(t, page.NextCursor)
}

func TestFindByIDForUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Teh Botol", decimal.RequireFromString("3.00"), 10)
	sale, err := f.service.CommitSale(ctx, CommitSaleInput{
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("3.00")}},
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.NoError(t, err)

	repo := NewRepository(f.client)
	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).FindByIDForUpdate(ctx, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, sale.ID, locked.ID)
		assert.True(t, sale.FinalAmount.Equal(locked.FinalAmount))

		_, err = repo.WithTx(tx).FindByIDForUpdate(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
		return nil
	})
	require.NoError(t, err)
}
