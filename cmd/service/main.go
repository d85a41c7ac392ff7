package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-service/config"
	"stock-service/internal/cache"
	"stock-service/internal/repository"
	"stock-service/internal/service"
	transport "stock-service/internal/transport/http"
	"stock-service/pkg/database"
	"stock-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	var balanceCache *cache.BalanceCache
	if cfg.Redis.Enabled {
		var err error
		balanceCache, err = cache.NewBalanceCache(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log,
		)
		if err != nil {
			log.Fatal("redis init failed", zap.Error(err))
		}
		defer balanceCache.Close()
	}

	repos := repository.New(db)
	events := service.NewLogEventBus(log)
	catalog := service.NewHTTPCatalogClient(os.Getenv("CATALOG_ADDR"), nil)

	ledgerSvc := service.NewLedgerService(repos, balanceCache, events)
	requestSvc := service.NewRequestService(repos, catalog, balanceCache, events)

	r := transport.Router(ledgerSvc, requestSvc, cfg.JWTSecret, cfg.JWTIssuer, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to run http server", zap.Error(err))
		}
	}()
	log.Info("stock service started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down stock HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	log.Info("stock HTTP server stopped gracefully")
}
