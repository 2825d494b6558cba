package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/comandaapp/comanda/internal/logging"
	"github.com/comandaapp/comanda/internal/service"
)

type OrderHandler struct {
	Svc *service.OrderService
}

type CreateOrderRequest struct {
	Table uint                 `json:"table" validate:"required"`
	Items []service.PlacedItem `json:"items" validate:"required,min=1,dive"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "validation failed", "error", err)
		return err
	}

	order, err := h.Svc.PlaceOrder(ctx, req.Table, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("create_order_error", "status", 400, "reason", "invalid items", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			l.Warn("create_order_error", "status", 404, "reason", "table not found", "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "table not found")
		default:
			l.Error("create_order_error", "status", 500, "reason", "cannot place order", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot place order")
		}
	}

	l.Info("create_order_success", "order_id", order.ID, "table_id", order.TableID, "total", order.Total)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetKitchenOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.kitchen_queue")

	orders, err := h.Svc.KitchenQueue(ctx)
	if err != nil {
		l.Error("kitchen_queue_error", "status", 500, "reason", "cannot list pending orders", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list pending orders")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) MarkOrderReady(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.mark_ready")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("mark_ready_error", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	order, err := h.Svc.MarkReady(ctx, uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("mark_ready_error", "status", 404, "reason", "order not found")
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("mark_ready_error", "status", 500, "reason", "cannot mark order ready", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot mark order ready")
	}

	l.Info("mark_ready_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}
