package handler

import (
	"net/http"

	"fulfillment/internal/config"
	"fulfillment/internal/domain/model"
	"fulfillment/internal/middleware"
	"fulfillment/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /vendor はベンダー向け（自分の明細・自分の商品だけ）
type VendorHandler struct {
	orders  *usecase.OrderUsecase
	catalog *usecase.CatalogUsecase
}

func NewVendorHandler(orders *usecase.OrderUsecase, catalog *usecase.CatalogUsecase) *VendorHandler {
	return &VendorHandler{orders: orders, catalog: catalog}
}

type RestockRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *VendorHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/vendor")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.RoleGuard(model.RoleVendor))

	g.GET("/orders", h.listOrders)
	g.GET("/orders/:id", h.orderDetail)
	g.PUT("/orders/:id/ready", h.markReady)

	g.GET("/products", h.listProducts)
	g.POST("/products", h.createProduct)
	g.POST("/products/:id/restock", h.restock)
	g.GET("/products/:id/adjustments", h.adjustments)
}

func (h *VendorHandler) listOrders(c echo.Context) error {
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

func (h *VendorHandler) orderDetail(c echo.Context) error {
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

func (h *VendorHandler) markReady(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.orders.MarkVendorReady(c.Request().Context(), viewer.UserID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) listProducts(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.catalog.ListVendorProducts(c.Request().Context(), viewer.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *VendorHandler) createProduct(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	var req usecase.CreateProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.catalog.CreateProduct(c.Request().Context(), viewer.UserID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *VendorHandler) restock(c echo.Context) error {
	return restock(c, h.catalog)
}

func (h *VendorHandler) adjustments(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	items, err := h.catalog.Adjustments(c.Request().Context(), viewer, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ベンダーとAdminで共通
func restock(c echo.Context, catalog *usecase.CatalogUsecase) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := catalog.Restock(c.Request().Context(), viewer, id, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
