package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dimasprayoga/tokopos-backend/api/controllers"
	"github.com/dimasprayoga/tokopos-backend/api/routes"
	authsvc "github.com/dimasprayoga/tokopos-backend/internal/auth"
	"github.com/dimasprayoga/tokopos-backend/internal/catalog"
	"github.com/dimasprayoga/tokopos-backend/internal/customers"
	"github.com/dimasprayoga/tokopos-backend/internal/ledger"
	"github.com/dimasprayoga/tokopos-backend/internal/reports"
	"github.com/dimasprayoga/tokopos-backend/internal/settlement"
	"github.com/dimasprayoga/tokopos-backend/internal/users"
	"github.com/dimasprayoga/tokopos-backend/pkg/config"
	"github.com/dimasprayoga/tokopos-backend/pkg/db"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/metrics"
	"github.com/dimasprayoga/tokopos-backend/pkg/migrate"
	"github.com/dimasprayoga/tokopos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	usersRepo := users.NewRepository(dbClient)
	catalogRepo := catalog.NewRepository(dbClient)
	customersRepo := customers.NewRepository(dbClient)
	ledgerRepo := ledger.NewRepository(dbClient)
	settlementRepo := settlement.NewRepository(dbClient)
	reportsRepo := reports.NewRepository(dbClient)

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Redis:       redisClient,
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Pingers: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
		},

		Auth:       authsvc.NewService(usersRepo, cfg.JWT, cfg.Password, logg),
		Catalog:    catalog.NewService(catalogRepo, logg),
		Customers:  customers.NewService(customersRepo, logg),
		Ledger:     ledger.NewService(dbClient, ledgerRepo, catalogRepo, customersRepo, logg),
		Settlement: settlement.NewService(dbClient, settlementRepo, ledgerRepo, customersRepo, logg),
		Reports:    reports.NewService(reportsRepo, logg),
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
