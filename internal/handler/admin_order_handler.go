package handler

import (
	"net/http"
	"strconv"
	"time"

	"fulfillment/internal/config"
	"fulfillment/internal/domain/model"
	"fulfillment/internal/middleware"
	"fulfillment/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin はCSRとAdmin
type AdminOrderHandler struct {
	orders  *usecase.OrderUsecase
	cancel  *usecase.CancellationUsecase
	catalog *usecase.CatalogUsecase
	audits  *usecase.AuditUsecase
}

func NewAdminOrderHandler(orders *usecase.OrderUsecase, cancel *usecase.CancellationUsecase, catalog *usecase.CatalogUsecase, audits *usecase.AuditUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, cancel: cancel, catalog: catalog, audits: audits}
}

type CancellationResolveRequest struct {
	//approve / reject
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.RoleGuard(model.RoleCSR, model.RoleAdmin))

	admin.GET("/orders", h.list)
	admin.GET("/orders/counts", h.counts)
	admin.GET("/orders/:id", h.detail)
	admin.PUT("/orders/:id/deliver", h.deliver)
	admin.PUT("/orders/:id/cancellation", h.resolveCancellation)

	admin.POST("/products/:id/restock", h.restock)
	admin.GET("/audit-logs", h.auditLogs)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit, ok := parsePaging(c, 50)
	if !ok {
		return badRequest(c, "invalid paging")
	}
	customerID, ok := parseOptionalID(c, "customer_id")
	if !ok {
		return badRequest(c, "invalid customer_id")
	}
	vendorID, ok := parseOptionalID(c, "vendor_id")
	if !ok {
		return badRequest(c, "invalid vendor_id")
	}

	out, err := h.orders.ListOrders(c.Request().Context(), viewer, usecase.ListOrdersInput{
		Page:       page,
		Limit:      limit,
		Status:     c.QueryParam("status"),
		CustomerID: customerID,
		VendorID:   vendorID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) counts(c echo.Context) error {
	out, err := h.orders.StatusCounts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.orders.GetOrder(c.Request().Context(), viewer, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) deliver(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.orders.MarkDelivered(c.Request().Context(), viewer.UserID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) resolveCancellation(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	var req CancellationResolveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	var approve bool
	switch req.Decision {
	case "approve":
		approve = true
	case "reject":
	default:
		return badRequest(c, "decision must be approve or reject")
	}

	out, err := h.cancel.ResolveCancellation(c.Request().Context(), viewer.UserID, c.Param("id"), usecase.ResolveCancellationInput{Approve: approve, Note: req.Note})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) restock(c echo.Context) error {
	return restock(c, h.catalog)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	in := usecase.ListAuditLogsInput{
		Action:     c.QueryParam("action"),
		ResourceID: c.QueryParam("resource_id"),
	}

	actorID, ok := parseOptionalID(c, "actor_user_id")
	if !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	in.ActorUserID = actorID

	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		in.From = &tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		in.To = &tm
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		in.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid offset")
		}
		in.Offset = o
	}

	logs, err := h.audits.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
