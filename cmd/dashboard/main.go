package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/central-hospital/insights-platform/pkg/artifacts"
	"github.com/central-hospital/insights-platform/pkg/common/config"
	"github.com/central-hospital/insights-platform/pkg/common/database"
	"github.com/central-hospital/insights-platform/pkg/common/logger"
	"github.com/central-hospital/insights-platform/pkg/dashboard"
)

func main() {
	logger.Init()
	cfg := config.Load()

	dataDir := flag.String("data-dir", cfg.DataDir, "artifact directory to serve")
	flag.Parse()

	store := artifacts.NewStore(*dataDir)
	snapshot, err := dashboard.LoadSnapshot(store)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load artifacts; run the pipeline first")
	}

	service := dashboard.NewService(snapshot, cfg.RiskThreshold)
	if cfg.RedisEnabled {
		service = service.WithCache(database.GetRedis(), cfg.DashboardCacheTTL)
		defer database.CloseRedis()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      service.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"data_dir": store.Dir(),
		}).Info("Dashboard started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down dashboard...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Dashboard stopped")
}
