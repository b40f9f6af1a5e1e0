package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fulfillment/internal/domain/model"
	"fulfillment/internal/middleware"
	"fulfillment/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// statusOf はusecaseのエラー分類をHTTPステータスに対応させる
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrProductNotFound),
		errors.Is(err, usecase.ErrOrderNotFound),
		errors.Is(err, usecase.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrInsufficientStock),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	status := statusOf(err)

	//500/503は中身を返さない
	if status >= http.StatusInternalServerError {
		c.Logger().Error(err)
		msg := "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "service unavailable"
		}
		return c.JSON(status, ErrorResponse{Error: msg})
	}
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}

// middleware.AuthJWT が c.Set した user_id と role を取り出す
func getViewer(c echo.Context) (usecase.Viewer, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return usecase.Viewer{}, false
	}
	role, ok := c.Get(middleware.CtxUserRoleKey).(string)
	if !ok || role == "" {
		return usecase.Viewer{}, false
	}
	return usecase.Viewer{UserID: id, Role: model.Role(role)}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// page / limit のクエリ。未指定ならデフォルト
func parsePaging(c echo.Context, defaultLimit int) (int, int, bool) {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}
	limit := defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

func parseOptionalID(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
