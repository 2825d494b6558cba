package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/comandaapp/comanda/internal/logging"
	"github.com/comandaapp/comanda/internal/models"
)

type TableHandler struct {
	DB *gorm.DB
}

type TableRequest struct {
	Number int    `json:"number" validate:"required,min=1"`
	Status string `json:"status" validate:"required,oneof=available occupied offline"`
}

type PatchTableRequest struct {
	Number *int    `json:"number" validate:"omitempty,min=1"`
	Status *string `json:"status" validate:"omitempty,oneof=available occupied offline"`
}

func (h *TableHandler) GetTables(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "table.get_tables")

	var tables []models.Table
	if err := h.DB.WithContext(ctx).Order("number ASC").Find(&tables).Error; err != nil {
		l.Error("get_tables_error", "status", 500, "reason", "cannot list tables", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list tables")
	}
	return c.JSON(http.StatusOK, tables)
}

func (h *TableHandler) CreateTable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "table.create_table")

	var req TableRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("table_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("table_create_error", "status", 400, "reason", "validation failed", "error", err)
		return err
	}

	var existing models.Table
	if err := h.DB.WithContext(ctx).Where("number = ?", req.Number).First(&existing).Error; err == nil {
		l.Warn("table_create_error", "status", 409, "reason", "table number already exists")
		return echo.NewHTTPError(http.StatusConflict, "table number already exists")
	}

	table := models.Table{Number: req.Number, Status: req.Status}
	if err := h.DB.WithContext(ctx).Create(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("table_create_error", "status", 409, "reason", "table number already exists")
			return echo.NewHTTPError(http.StatusConflict, "table number already exists")
		}
		l.Error("table_create_error", "status", 500, "reason", "cannot create table", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create table")
	}

	l.Info("create_table_success", "table_id", table.ID, "number", table.Number)
	return c.JSON(http.StatusCreated, table)
}

func (h *TableHandler) PatchTable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "table.patch_table")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("table_patch_error", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req PatchTableRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("table_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("table_patch_error", "status", 400, "reason", "validation failed", "error", err)
		return err
	}

	var table models.Table
	if err := h.DB.WithContext(ctx).First(&table, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("table_patch_error", "status", 404, "reason", "table not found")
			return echo.NewHTTPError(http.StatusNotFound, "table not found")
		}
		l.Error("table_patch_error", "status", 500, "reason", "cannot load table", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update table")
	}

	if req.Number != nil {
		table.Number = *req.Number
	}
	if req.Status != nil {
		table.Status = *req.Status
	}

	if err := h.DB.WithContext(ctx).Save(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("table_patch_error", "status", 409, "reason", "table number already exists")
			return echo.NewHTTPError(http.StatusConflict, "table number already exists")
		}
		l.Error("table_patch_error", "status", 500, "reason", "cannot save table", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update table")
	}

	l.Info("patch_table_success", "table_id", table.ID)
	return c.JSON(http.StatusOK, table)
}

func (h *TableHandler) DeleteTable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "table.delete_table")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("table_delete_error", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	res := h.DB.WithContext(ctx).Delete(&models.Table{}, id)
	if res.Error != nil {
		l.Error("table_delete_error", "status", 500, "reason", "cannot delete table", "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete table")
	}
	if res.RowsAffected == 0 {
		l.Warn("table_delete_error", "status", 404, "reason", "table not found")
		return echo.NewHTTPError(http.StatusNotFound, "table not found")
	}

	l.Info("delete_table_success", "table_id", id)
	return c.JSON(http.StatusOK, map[string]string{"message": "table deleted"})
}
