package server

import (
	"net/http"

	"fulfillment/internal/config"
	"fulfillment/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, gatherer prometheus.Gatherer) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}

	h.Orders.RegisterRoutes(e, cfg)
	h.Vendor.RegisterRoutes(e, cfg)
	h.Admin.RegisterRoutes(e, cfg)
	h.Notifications.RegisterRoutes(e, cfg)
}
