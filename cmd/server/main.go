package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/config"
	"github.com/aquatrackmx/aquatrack/internal/repository/mongodb"
	"github.com/aquatrackmx/aquatrack/internal/repository/sheets"
	"github.com/aquatrackmx/aquatrack/internal/scheduler"
	"github.com/aquatrackmx/aquatrack/internal/server/handlers"
	"github.com/aquatrackmx/aquatrack/internal/server/router"
	"github.com/aquatrackmx/aquatrack/internal/service/autosetup"
	"github.com/aquatrackmx/aquatrack/internal/service/operations"
	"github.com/aquatrackmx/aquatrack/internal/service/projection"
	"github.com/aquatrackmx/aquatrack/internal/service/reforecast"
	"github.com/aquatrackmx/aquatrack/internal/service/reporting"
	"github.com/aquatrackmx/aquatrack/pkg/clients/extraction"
	"github.com/aquatrackmx/aquatrack/pkg/locks"
	"github.com/aquatrackmx/aquatrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := mongodb.NewStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var dashboard sheets.Dashboard
	if cfg.SheetsEnabled() {
		dashboard, err = sheets.NewGoogleSheetDashboard(context.Background(),
			cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets dashboard", zap.Error(err))
		}
	} else {
		baseLogger.Warn("sheets dashboard not configured, daily kpi export disabled")
	}

	var extractor extraction.Client
	if cfg.Extractor.BaseURL != "" {
		extractor = extraction.NewClient(cfg.Extractor.BaseURL, cfg.Extractor.APIKey,
			time.Duration(cfg.Extractor.TimeoutMs)*time.Millisecond, baseLogger.Named("client.extraction"))
	} else {
		baseLogger.Warn("extraction service not configured, only inline documents accepted")
	}

	// Projection and reforecast share the per-cycle locks so a trigger
	// never races an ingestion on the same cycle.
	cycleLocks := locks.NewKeyed()

	distributor := autosetup.NewDistributor(store, baseLogger.Named("svc.autosetup"))
	projectionSvc := projection.NewService(store, cycleLocks, distributor, baseLogger.Named("svc.projection"))

	onConflict := reforecast.SoftSkip
	if cfg.Reforecast.DraftConflict == "strict" {
		onConflict = reforecast.StrictFail
	}
	reforecastSvc := reforecast.NewService(store, cycleLocks, reforecast.Config{
		Enabled:        cfg.Reforecast.Enabled,
		MinCoveragePct: cfg.Reforecast.MinCoveragePct,
		MinPonds:       cfg.Reforecast.MinPonds,
		WeekendMode:    cfg.Reforecast.WeekendMode,
		WindowDays:     cfg.Reforecast.WindowDays,
		OnConflict:     onConflict,
	}, baseLogger.Named("svc.reforecast"))

	operationsSvc := operations.NewService(store, reforecastSvc, baseLogger.Named("svc.operations"))
	reportingSvc := reporting.NewService(store, dashboard, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Handlers{
		Projections: handlers.NewProjectionHandler(projectionSvc, extractor, baseLogger.Named("handlers.projections")),
		Operations:  handlers.NewOperationsHandler(operationsSvc, baseLogger.Named("handlers.operations")),
		Reporting:   handlers.NewReportingHandler(reportingSvc, baseLogger.Named("handlers.reporting")),
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
