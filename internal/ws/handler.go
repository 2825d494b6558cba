package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/comandaapp/comanda/internal/auth"
	"github.com/comandaapp/comanda/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated clients. The token travels in the
// "token" query parameter since browsers cannot set headers on
// websocket handshakes.
type Handler struct {
	Hub       *Hub
	JWTSecret []byte
}

func (h *Handler) Serve(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, err := auth.ParseToken(raw, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Hub.Logger.Warn("ws_upgrade_failed", "error", err)
		return nil
	}

	h.Hub.Logger.Info("ws_connected", "user", claims.Subject, "role", claims.Role)
	metrics.WSConnections.Inc()

	client := newClient(h.Hub, conn)
	go func() {
		client.writePump()
	}()
	go func() {
		client.readPump()
		metrics.WSConnections.Dec()
	}()
	return nil
}
