package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"farmacia/m/internal/api"
	"farmacia/m/internal/config"
	"farmacia/m/internal/database"
	"farmacia/m/internal/logger"
	"farmacia/m/internal/metrics"
	"farmacia/m/internal/pharmacy"
	"farmacia/m/internal/seed"
	"farmacia/m/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer appLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabasePath)
	if err != nil {
		appLogger.Fatal("could not open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st := store.New(db,
		store.WithLogger(appLogger),
		store.WithMetrics(metrics.NewRecorder(reg)),
		store.WithSaleWriteMode(saleWriteMode(cfg.SaleWriteMode)),
	)
	svc := pharmacy.New(st, appLogger)
	if err := svc.Initialize(ctx); err != nil {
		appLogger.Fatal("storage initialization failed", zap.Error(err))
	}

	if cfg.SeedCSV != "" {
		n, err := seed.LoadMedications(ctx, svc, cfg.SeedCSV, appLogger)
		if err != nil {
			appLogger.Warn("medication seed failed", zap.String("path", cfg.SeedCSV), zap.Error(err))
		} else {
			appLogger.Info("medication seed loaded", zap.Int("rows", n))
		}
	}

	handler := api.New(svc, appLogger, reg, cfg.AllowedOrigin)
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		appLogger.Info("farmacia listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("shutdown error", zap.Error(err))
	}
	appLogger.Info("server stopped")
}

func saleWriteMode(mode string) store.SaleWriteMode {
	if mode == config.SaleWriteTwoPhase {
		return store.SaleWriteTwoPhase
	}
	return store.SaleWriteAtomic
}
