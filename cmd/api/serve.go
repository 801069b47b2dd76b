package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/database"
	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/handler"
	middlewarepkg "github.com/octobees/lead-enricher/internal/middleware"
	"github.com/octobees/lead-enricher/internal/router"
	"github.com/octobees/lead-enricher/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background enrichment queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	log := zap.L().With(zap.String("command", "serve"))

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	p := buildPipeline(cfg, pool)

	queue := enrichment.NewQueue(p.enricher, p.tracker, cfg.Queue.Size)
	queue.Start(ctx)

	companiesService := service.NewCompaniesService(p.repo, p.enricher, queue, cfg.Apollo.PhoneRegion)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	router.Register(e, cfg, router.Handlers{
		Companies: handler.NewCompaniesHandler(companiesService, p.tracker),
		Import:    handler.NewImportHandler(companiesService),
		Enrich:    handler.NewEnrichHandler(p.enricher),
		Directory: handler.NewDirectoryHandler(p.directory),
		Webhook:   handler.NewWebhookHandler(companiesService),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}

	log.Info("waiting for background enrichment to stop", zap.Int("pending", queue.Pending()))
	queue.Wait()
	return nil
}
