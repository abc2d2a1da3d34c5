package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/medflow/drug-warehouse/internal/inventory/events"
	"github.com/medflow/drug-warehouse/internal/inventory/handler"
	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/internal/inventory/service"
	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/database"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/medflow/drug-warehouse/pkg/messaging"
	"github.com/medflow/drug-warehouse/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Fails fast in production if required config is missing
	cfg, err := config.LoadWithValidation(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log := logger.New(config.ServiceName, cfg.Server.Environment, cfg.Log.Level)
	log.Info().Str("driver", cfg.Database.Driver).Msg("starting warehouse service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := db.Migrate(cmd.Context())
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Strs("applied", applied).Msg("migrations complete")
	}

	// Events are optional; without a broker the publisher is a no-op
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.InventoryEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer rmq.Close()

		publisher, err = events.NewInventoryEventPublisher(rmq, log)
		if err != nil {
			return fmt.Errorf("create event publisher: %w", err)
		}
	}

	rec := metrics.New()
	store := repository.NewStore(db)
	inventoryService := service.NewInventoryService(store, cfg.Inventory, publisher, rec, log)
	environmentService := service.NewEnvironmentService(store.Environment(), publisher, rec, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Inventory.SweepInterval > 0 {
		scheduler := service.NewStatusScheduler(inventoryService, cfg.Inventory.SweepInterval, log)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	router := handler.NewRouter(handler.Dependencies{
		Inventory:   inventoryService,
		Environment: environmentService,
		DB:          db,
		RabbitMQ:    rmq,
		Metrics:     rec,
		CORS:        cfg.CORS,
		Logger:      log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}
