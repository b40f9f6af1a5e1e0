package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fulfillment/internal/config"
	"fulfillment/internal/handler"
	"fulfillment/internal/metrics"
	"fulfillment/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Handlers struct {
	Orders        *handler.OrderHandler
	Vendor        *handler.VendorHandler
	Admin         *handler.AdminOrderHandler
	Notifications *handler.NotificationHandler
}

// New はecho本体を組み立てる（ミドルウェアとルート）
func New(cfg config.Config, h Handlers, logger *zap.Logger, m *metrics.Collectors, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(logger, m))

	RegisterRoutes(e, cfg, h, gatherer)
	return e
}

// Run はctxが終わるまでサーバを動かし、その後グレースフルに止める
func Run(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
