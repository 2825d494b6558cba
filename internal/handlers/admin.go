package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/comandaapp/comanda/internal/auth"
	"github.com/comandaapp/comanda/internal/logging"
	"github.com/comandaapp/comanda/internal/models"
)

// AdminHandler covers the user-management surface. Admin product and
// table routes reuse ProductHandler/TableHandler behind the admin gate.
type AdminHandler struct {
	DB *gorm.DB
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	var users []models.User
	if err := h.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		l.Error("list_users_error", "status", 500, "reason", "cannot list users", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list users")
	}
	// PasswordHash is json:"-" so the hashes never leave the server.
	return c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_user")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("delete_user_error", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	if claims := auth.ClaimsFrom(c); claims != nil && claims.Subject == c.Param("id") {
		l.Warn("delete_user_error", "status", 400, "reason", "self deletion")
		return echo.NewHTTPError(http.StatusBadRequest, "you cannot delete your own account")
	}

	res := h.DB.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		l.Error("delete_user_error", "status", 500, "reason", "cannot delete user", "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete user")
	}
	if res.RowsAffected == 0 {
		l.Warn("delete_user_error", "status", 404, "reason", "user not found")
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	l.Info("delete_user_success", "user_id", id)
	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted"})
}
