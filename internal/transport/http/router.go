package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/comandaapp/comanda/internal/auth"
	"github.com/comandaapp/comanda/internal/handlers"
	"github.com/comandaapp/comanda/internal/models"
	"github.com/comandaapp/comanda/internal/ws"
)

type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte

	Auth     *handlers.AuthHandler
	Product  *handlers.ProductHandler
	Table    *handlers.TableHandler
	Order    *handlers.OrderHandler
	Checkout *handlers.CheckoutHandler
	Admin    *handlers.AdminHandler
	Search   *handlers.SearchHandler
	WS       *ws.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws", d.WS.Serve)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)

	products := api.Group("/products")
	products.GET("", d.Product.GetProducts)
	products.GET("/search", d.Search.SearchProducts)
	products.GET("/:id", d.Product.GetProduct)
	products.POST("", d.Product.CreateProduct, auth.Require(d.JWTSecret, models.RoleChef))
	products.PUT("/:id", d.Product.UpdateProduct, auth.Require(d.JWTSecret, models.RoleChef))
	products.DELETE("/:id", d.Product.DeleteProduct, auth.Require(d.JWTSecret, models.RoleChef))

	tables := api.Group("/tables")
	tables.GET("", d.Table.GetTables)
	tables.POST("", d.Table.CreateTable, auth.Require(d.JWTSecret, models.RoleChef))
	tables.PATCH("/:id", d.Table.PatchTable, auth.Require(d.JWTSecret, models.RoleChef))
	tables.DELETE("/:id", d.Table.DeleteTable, auth.Require(d.JWTSecret, models.RoleChef))

	orders := api.Group("/orders")
	orders.POST("", d.Order.CreateOrder, auth.Require(d.JWTSecret, models.RoleWaiter))
	orders.GET("/kitchen", d.Order.GetKitchenOrders, auth.Require(d.JWTSecret, models.RoleChef))
	orders.PUT("/:id/ready", d.Order.MarkOrderReady, auth.Require(d.JWTSecret, models.RoleChef))

	checkout := api.Group("/checkout", auth.Require(d.JWTSecret, models.RoleCashier))
	checkout.GET("/:tableNumber", d.Checkout.GetCheckout)
	checkout.POST("/:tableNumber/pay", d.Checkout.PayOrder)

	admin := api.Group("/admin", auth.Require(d.JWTSecret, models.RoleAdmin))
	admin.GET("/products", d.Product.GetProducts)
	admin.POST("/products", d.Product.CreateProduct)
	admin.PUT("/products/:id", d.Product.UpdateProduct)
	admin.DELETE("/products/:id", d.Product.DeleteProduct)
	admin.GET("/users", d.Admin.ListUsers)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
	admin.GET("/tables", d.Table.GetTables)
	admin.POST("/tables", d.Table.CreateTable)
	admin.PATCH("/tables/:id", d.Table.PatchTable)
	admin.DELETE("/tables/:id", d.Table.DeleteTable)
}

func health(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		dbState := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			dbState = "disconnected"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"db":     dbState,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
