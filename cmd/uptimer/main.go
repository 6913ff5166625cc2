package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mortenoh/uptimer/internal/api"
	"github.com/mortenoh/uptimer/internal/config"
	"github.com/mortenoh/uptimer/internal/db"
	"github.com/mortenoh/uptimer/internal/repository"
	"github.com/mortenoh/uptimer/internal/services"
	"github.com/mortenoh/uptimer/internal/stages"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("uptimer v0.1.0")
	fmt.Println("Usage: uptimer serve")
}

func serve() {
	godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	monitorsMem := repository.NewMemoryMonitorRepository()
	resultsMem := repository.NewMemoryResultRepository(cfg.Storage.ResultsRetention)
	jobsMem := repository.NewMemoryJobRepository()

	var (
		monitors repository.MonitorRepository = monitorsMem
		results  repository.ResultRepository  = resultsMem
		jobs     repository.JobRepository     = jobsMem
	)

	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database connection error", "err", err)
			os.Exit(1)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			slog.Error("database migration error", "err", err)
			os.Exit(1)
		}
		monitors = repository.NewPersistentMonitorRepository(monitorsMem, database)
		results = repository.NewPersistentResultRepository(resultsMem, database, cfg.Storage.ResultsRetention)
		jobs = repository.NewPersistentJobRepository(jobsMem, database)
		slog.Info("database connected")
	} else {
		slog.Info("no database configured, using in-memory storage")
	}

	registry := stages.DefaultRegistry()
	executor := services.NewExecutor(registry, monitors, results)
	limiter := services.NewCheckLimiter(cfg.Scheduler.MaxConcurrentChecks)
	scheduler := services.NewScheduler(monitors, jobs, results, executor, limiter)
	monitorSvc := services.NewMonitorService(monitors, results, executor, scheduler)

	if err := scheduler.Start(ctx); err != nil {
		slog.Error("scheduler start error", "err", err)
		os.Exit(1)
	}

	srv := api.NewServer(monitorSvc, limiter, registry)
	srv.SetCORSOrigins(cfg.Server.CORSOrigins)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	go func() {
		slog.Info("starting uptimer server", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
	scheduler.Stop()
	slog.Info("shutdown complete")
}
