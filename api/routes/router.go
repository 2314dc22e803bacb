package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dimasprayoga/tokopos-backend/api/controllers"
	"github.com/dimasprayoga/tokopos-backend/api/middleware"
	authsvc "github.com/dimasprayoga/tokopos-backend/internal/auth"
	"github.com/dimasprayoga/tokopos-backend/internal/catalog"
	"github.com/dimasprayoga/tokopos-backend/internal/customers"
	"github.com/dimasprayoga/tokopos-backend/internal/ledger"
	"github.com/dimasprayoga/tokopos-backend/internal/reports"
	"github.com/dimasprayoga/tokopos-backend/internal/settlement"
	"github.com/dimasprayoga/tokopos-backend/pkg/config"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/metrics"
	"github.com/dimasprayoga/tokopos-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Pingers     map[string]controllers.Pinger

	Auth       authsvc.Service
	Catalog    catalog.Service
	Customers  customers.Service
	Ledger     ledger.Service
	Settlement settlement.Service
	Reports    reports.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/me", controllers.AuthMe(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleOwner), logg))
			r.Post("/", controllers.CreateUser(deps.Auth, logg))
			r.Get("/", controllers.ListUsers(deps.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/barcode", controllers.GetProductByBarcode(deps.Catalog, logg))
			r.Get("/low-stock", controllers.ListLowStockProducts(deps.Catalog, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Catalog, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleOwner), logg))
				r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
				r.Patch("/{productId}", controllers.UpdateProduct(deps.Catalog, logg))
				r.Delete("/{productId}", controllers.DeactivateProduct(deps.Catalog, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(deps.Customers, logg))
			r.Get("/", controllers.ListCustomers(deps.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(deps.Customers, logg))
			r.Patch("/{customerId}", controllers.UpdateCustomer(deps.Customers, logg))
			r.Get("/{customerId}/debt", controllers.GetCustomerDebt(deps.Settlement, logg))
			r.Get("/{customerId}/payments", controllers.ListCustomerPayments(deps.Settlement, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.CommitSale(deps.Ledger, logg))
			r.Get("/", controllers.ListSales(deps.Ledger, logg))
			r.Get("/{transactionId}", controllers.GetSale(deps.Ledger, logg))
			r.Post("/{transactionId}/payments", controllers.RecordPayment(deps.Settlement, logg))
			r.Get("/{transactionId}/payments", controllers.ListSalePayments(deps.Settlement, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleOwner), logg))
			r.Get("/sales", controllers.SalesReport(deps.Reports, logg))
			r.Get("/debts", controllers.DebtsReport(deps.Reports, logg))
			r.Get("/top-products", controllers.TopProductsReport(deps.Reports, logg))
		})
	})

	return r
}
