package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/comandaapp/comanda/internal/logging"
	"github.com/comandaapp/comanda/internal/service"
)

type CheckoutHandler struct {
	Svc *service.OrderService
}

func (h *CheckoutHandler) GetCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.get")

	tableNumber, err := strconv.Atoi(c.Param("tableNumber"))
	if err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid table number", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid table number")
	}

	summary, err := h.Svc.CheckoutOrder(ctx, tableNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("checkout_error", "status", 404, "reason", err.Error())
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		l.Error("checkout_error", "status", 500, "reason", "cannot load checkout", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load checkout")
	}

	return c.JSON(http.StatusOK, summary)
}

func (h *CheckoutHandler) PayOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.pay")

	tableNumber, err := strconv.Atoi(c.Param("tableNumber"))
	if err != nil {
		l.Warn("pay_error", "status", 400, "reason", "invalid table number", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid table number")
	}

	order, err := h.Svc.PayOrder(ctx, tableNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("pay_error", "status", 404, "reason", err.Error())
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		l.Error("pay_error", "status", 500, "reason", "cannot pay order", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot pay order")
	}

	l.Info("pay_success", "order_id", order.ID, "table_id", order.TableID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "order marked as paid",
		"order": map[string]interface{}{
			"id":           order.ID,
			"table_id":     order.TableID,
			"status":       order.Status,
			"delivered_at": order.DeliveredAt,
		},
	})
}
