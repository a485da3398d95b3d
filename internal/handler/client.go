package handler

import (
	"net/http"

	"zonewatch/internal/service/websocket"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
)

// upgrader allows all origins; live view is served to the LAN dashboard.
var upgrader = ws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// viewWebsocket registers a viewer with the hub. ?camera= limits the feed to
// one camera.
func (h *Handler) viewWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade error: %v", err)
		return
	}

	client := &websocket.Client{Conn: conn, Camera: c.Query("camera")}
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	h.logger.Info("Viewer connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				h.logger.Info("Viewer disconnected normally")
			} else {
				h.logger.Warning("Viewer disconnected with error: %v", err)
			}
			return
		}
	}
}
