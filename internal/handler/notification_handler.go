package handler

import (
	"net/http"

	"fulfillment/internal/config"
	"fulfillment/internal/middleware"
	"fulfillment/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /notifications はロールに関係なく自分宛ての通知
type NotificationHandler struct {
	uc *usecase.NotificationUsecase
}

func NewNotificationHandler(uc *usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

func (h *NotificationHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/notifications")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.unread)
	g.PUT("/:id/read", h.markRead)
}

func (h *NotificationHandler) unread(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.uc.ListUnread(c.Request().Context(), viewer)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) markRead(c echo.Context) error {
	viewer, ok := getViewer(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.MarkRead(c.Request().Context(), viewer, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "read"})
}
