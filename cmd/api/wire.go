package main

import (
	"errors"
	"fmt"
	"io"

	"fulfillment/internal/config"
	"fulfillment/internal/handler"
	"fulfillment/internal/infra/db"
	"fulfillment/internal/infra/memory"
	"fulfillment/internal/infra/notify"
	infraRepo "fulfillment/internal/infra/repository"
	"fulfillment/internal/metrics"
	repo "fulfillment/internal/repository"
	"fulfillment/internal/server"
	"fulfillment/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type stores struct {
	products      repo.ProductRepository
	orders        repo.OrderRepository
	audits        repo.AuditLogRepository
	notifications repo.NotificationRepository
	close         func()
}

func openStores(cfg config.Config, logger *zap.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return stores{
			products:      memory.NewProductRepository(),
			orders:        memory.NewOrderRepository(),
			audits:        memory.NewAuditLogRepository(),
			notifications: memory.NewNotificationRepository(),
			close:         func() {},
		}, nil

	case config.StoreDriverPostgres:
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return stores{}, fmt.Errorf("connect: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return stores{}, fmt.Errorf("connection pool: %w", err)
		}
		if err := migrateOrClose(sqlDB, func() error { return db.Migrate(gormDB) }); err != nil {
			return stores{}, err
		}
		return stores{
			products:      infraRepo.NewProductGormRepository(gormDB),
			orders:        infraRepo.NewOrderGormRepository(gormDB),
			audits:        infraRepo.NewAuditLogGormRepository(gormDB),
			notifications: infraRepo.NewNotificationGormRepository(gormDB),
			close:         func() { _ = sqlDB.Close() },
		}, nil

	default:
		return stores{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// migrateOrClose はマイグレーションに失敗したら接続プールを閉じる
func migrateOrClose(pool io.Closer, migrate func() error) error {
	if err := migrate(); err != nil {
		if cerr := pool.Close(); cerr != nil {
			return errors.Join(fmt.Errorf("migrate: %w", err), fmt.Errorf("close pool: %w", cerr))
		}
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type app struct {
	handlers server.Handlers
	metrics  *metrics.Collectors
	registry *prometheus.Registry
	closers  []func()
}

// Close は後から作ったものから閉じる
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	st, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)

	//通知: 保存 + （設定があれば）Kafka
	var publisher notify.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaNotificationTopic)
		publisher = kp
		a.closers = append(a.closers, func() {
			if err := kp.Close(); err != nil {
				logger.Warn("kafka writer close failed", zap.Error(err))
			}
		})
		logger.Info("publishing notifications to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaNotificationTopic))
	}
	dispatcher := notify.NewDispatcher(st.notifications, publisher, logger.Named("notify"))
	a.closers = append(a.closers, dispatcher.Close)

	ledger := usecase.NewInventoryLedger(st.products, dispatcher, usecase.LedgerConfig{
		LowStockThreshold: cfg.LowStockThreshold,
		MaxRetries:        cfg.StockRetryLimit,
	}, a.metrics, logger.Named("ledger"))

	orderUC := usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Orders:     st.orders,
		Ledger:     ledger,
		Audits:     st.audits,
		Notifier:   dispatcher,
		IDs:        usecase.UUIDGenerator{},
		Clock:      usecase.SystemClock{},
		MaxRetries: cfg.OrderRetryLimit,
		Metrics:    a.metrics,
		Logger:     logger.Named("orders"),
	})
	cancelUC := usecase.NewCancellationUsecase(usecase.CancellationUsecaseDeps{
		Orders:     st.orders,
		Ledger:     ledger,
		Audits:     st.audits,
		Notifier:   dispatcher,
		Clock:      usecase.SystemClock{},
		MaxRetries: cfg.OrderRetryLimit,
		Metrics:    a.metrics,
		Logger:     logger.Named("cancellation"),
	})
	catalogUC := usecase.NewCatalogUsecase(st.products, ledger, st.audits, dispatcher, cfg.LowStockThreshold, logger.Named("catalog"))

	a.handlers = server.Handlers{
		Orders:        handler.NewOrderHandler(orderUC, cancelUC),
		Vendor:        handler.NewVendorHandler(orderUC, catalogUC),
		Admin:         handler.NewAdminOrderHandler(orderUC, cancelUC, catalogUC, usecase.NewAuditUsecase(st.audits)),
		Notifications: handler.NewNotificationHandler(usecase.NewNotificationUsecase(st.notifications)),
	}
	return a, nil
}
