package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"fulfillment/internal/config"
	"fulfillment/internal/infra/db"
	"fulfillment/internal/infra/logging"
	"fulfillment/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := build(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			e := server.New(cfg, a.handlers, logger, a.metrics, a.registry)
			return server.Run(ctx, e, cfg.Addr(), logger)
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.StoreDriver != config.StoreDriverPostgres {
				return errors.New("migrate requires STORE_DRIVER=postgres")
			}
			gormDB, err := db.Connect(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			sqlDB, err := gormDB.DB()
			if err != nil {
				return fmt.Errorf("connection pool: %w", err)
			}
			if err := migrateOrClose(sqlDB, func() error { return db.Migrate(gormDB) }); err != nil {
				return err
			}
			defer sqlDB.Close()
			logger.Info("migration finished")
			return nil
		},
	}
}

func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

