package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authsvc "github.com/dimasprayoga/tokopos-backend/internal/auth"
	"github.com/dimasprayoga/tokopos-backend/internal/catalog"
	"github.com/dimasprayoga/tokopos-backend/internal/customers"
	"github.com/dimasprayoga/tokopos-backend/internal/ledger"
	"github.com/dimasprayoga/tokopos-backend/internal/reports"
	"github.com/dimasprayoga/tokopos-backend/internal/settlement"
	"github.com/dimasprayoga/tokopos-backend/internal/users"
	pkgauth "github.com/dimasprayoga/tokopos-backend/pkg/auth"
	"github.com/dimasprayoga/tokopos-backend/pkg/config"
	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/metrics"
)

type env struct {
	handler http.Handler
	client  *db.Client
	cfg     *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret-router-test-secret",
			Issuer:            "tokopos-test",
			ExpirationMinutes: 60,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:routes_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Customer{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.Payment{},
	))

	client := db.FromGorm(conn)
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})

	catalogRepo := catalog.NewRepository(client)
	customerRepo := customers.NewRepository(client)
	ledgerRepo := ledger.NewRepository(client)

	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logg,
		HTTPMetrics: metrics.NewHTTPMetrics(nil),
		Auth:        authsvc.NewService(users.NewRepository(client), cfg.JWT, cfg.Password, logg),
		Catalog:     catalog.NewService(catalogRepo, logg),
		Customers:   customers.NewService(customerRepo, logg),
		Ledger:      ledger.NewService(client, ledgerRepo, catalogRepo, customerRepo, logg),
		Settlement:  settlement.NewService(client, settlement.NewRepository(client), ledgerRepo, customerRepo, logg),
		Reports:     reports.NewService(reports.NewRepository(client), logg),
	})

	return &env{handler: handler, client: client, cfg: cfg}
}

func (e *env) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(e.cfg.JWT, time.Now(), uuid.New(), role)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) seedProduct(t *testing.T, name string, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, e.client.DB().Create(product).Error)
	return product
}

func (e *env) seedCustomer(t *testing.T, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: name}
	require.NoError(t, e.client.DB().Create(customer).Error)
	return customer
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestHealthLive(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-TokoPOS-Env"))
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/api/v1/products", "/api/v1/sales", "/api/v1/auth/me"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLoginFlow(t *testing.T) {
	e := newEnv(t)

	// Provision the first operator directly through the service layer.
	svc := authsvc.NewService(users.NewRepository(e.client), e.cfg.JWT, e.cfg.Password,
		logger.New(logger.Options{ServiceName: "seed", Output: io.Discard}))
	_, err := svc.CreateUser(context.Background(), authsvc.CreateUserInput{
		Username: "dimas",
		Password: "rahasia-banget",
		Name:     "Dimas Prayoga",
		Role:     enums.UserRoleOwner,
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "dimas",
		"password": "rahasia-banget",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, rec, &result)
	require.NotEmpty(t, result.AccessToken)

	me := e.do(t, http.MethodGet, "/api/v1/auth/me", result.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	bad := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "dimas",
		"password": "salah-semua",
	})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestCommitSaleAndSettlementFlow(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, enums.UserRoleCashier)

	product := e.seedProduct(t, "Indomie Goreng", "10.00", 10)
	customer := e.seedCustomer(t, "Bu Siti")

	rec := e.do(t, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"customer_id":    customer.ID.String(),
		"payment_method": "debt",
		"items": []map[string]any{
			{"product_id": product.ID.String(), "quantity": 3, "unit_price": "10.00"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sale struct {
		ID            string `json:"id"`
		PaymentStatus string `json:"payment_status"`
		FinalAmount   string `json:"final_amount"`
	}
	decodeData(t, rec, &sale)
	assert.Equal(t, "pending", sale.PaymentStatus)
	assert.Equal(t, "30", decimal.RequireFromString(sale.FinalAmount).String())

	pay := e.do(t, http.MethodPost, "/api/v1/sales/"+sale.ID+"/payments", token, map[string]any{
		"customer_id":    customer.ID.String(),
		"amount":         "12.50",
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, pay.Code, pay.Body.String())

	debtRec := e.do(t, http.MethodGet, "/api/v1/customers/"+customer.ID.String()+"/debt", token, nil)
	require.Equal(t, http.StatusOK, debtRec.Code)

	var debt struct {
		Debt string `json:"debt"`
	}
	decodeData(t, debtRec, &debt)
	assert.True(t, decimal.RequireFromString(debt.Debt).Equal(decimal.RequireFromString("17.50")), "debt = %s", debt.Debt)

	payments := e.do(t, http.MethodGet, "/api/v1/sales/"+sale.ID+"/payments", token, nil)
	require.Equal(t, http.StatusOK, payments.Code)
}

func TestCommitSaleInsufficientStockResponse(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, enums.UserRoleCashier)

	product := e.seedProduct(t, "Teh Botol", "4.00", 2)

	rec := e.do(t, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"payment_method": "cash",
		"items": []map[string]any{
			{"product_id": product.ID.String(), "quantity": 3, "unit_price": "4.00"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INSUFFICIENT_STOCK", envelope.Error.Code)
	assert.Equal(t, float64(2), envelope.Error.Details["available"])
	assert.Equal(t, float64(3), envelope.Error.Details["requested"])
}

func TestOwnerOnlyRoutes(t *testing.T) {
	e := newEnv(t)
	cashier := e.token(t, enums.UserRoleCashier)
	owner := e.token(t, enums.UserRoleOwner)

	payload := map[string]any{"name": "Gula 1kg", "price": "16.00", "stock_quantity": 10}

	denied := e.do(t, http.MethodPost, "/api/v1/products", cashier, payload)
	assert.Equal(t, http.StatusForbidden, denied.Code)

	allowed := e.do(t, http.MethodPost, "/api/v1/products", owner, payload)
	assert.Equal(t, http.StatusCreated, allowed.Code, allowed.Body.String())

	deniedReport := e.do(t, http.MethodGet, "/api/v1/reports/sales", cashier, nil)
	assert.Equal(t, http.StatusForbidden, deniedReport.Code)

	report := e.do(t, http.MethodGet, "/api/v1/reports/sales", owner, nil)
	assert.Equal(t, http.StatusOK, report.Code)
}

func TestUnknownFieldRejected(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, enums.UserRoleOwner)

	rec := e.do(t, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name":     "Kopi",
		"price":    "1.50",
		"surprise": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
