package handler

import (
	"net/http"

	"fulfillment/internal/config"
	"fulfillment/internal/domain/model"
	"fulfillment/internal/middleware"
	"fulfillment/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /orders は顧客向け
type OrderHandler struct {
	orders *usecase.OrderUsecase
	cancel *usecase.CancellationUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, cancel *usecase.CancellationUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, cancel: cancel}
}

type OrderCreateRequest struct {
	ShippingAddress string                         `json:"shipping_address"`
	PaymentMethod   string                         `json:"payment_method"`
	Items           []usecase.CreateOrderItemInput `json:"items"`
}

type CancellationRequest struct {
	Note string `json:"note"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.RoleGuard(model.RoleCustomer))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/cancellation", h.requestCancellation)
}

func (h *OrderHandler) create(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.orders.CreateOrder(c.Request().Context(), usecase.CreateOrderInput{
		CustomerID:      viewer.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Items:           req.Items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit, ok := parsePaging(c, 20)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.orders.ListOrders(c.Request().Context(), viewer, usecase.ListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
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

func (h *OrderHandler) requestCancellation(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}

	var req CancellationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.cancel.RequestCancellation(c.Request().Context(), viewer.UserID, c.Param("id"), req.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
