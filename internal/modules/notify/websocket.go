package notify

import (
	"net/http"
	"time"

	"jaladhar/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades clients onto the notification hub. The stream is push
// only; client frames are drained just to keep the connection healthy.
type WSHandler struct {
	hub        *Hub
	jwtService *jwt.Service
	logger     *logrus.Logger
}

func NewWSHandler(hub *Hub, jwtService *jwt.Service, logger *logrus.Logger) *WSHandler {
	return &WSHandler{hub: hub, jwtService: jwtService, logger: logger}
}

// HandleWebSocket serves GET /ws/notifications?token=JWT_TOKEN. The token
// rides in the query because browsers cannot set headers on websocket
// upgrades.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Token is required. Use ?token=YOUR_JWT_TOKEN",
		})
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid or expired token",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("WebSocket upgrade failed")
		return
	}

	userID := claims.UserID
	h.hub.Register(userID, conn)
	h.logger.WithField("user_id", userID).Info("User connected to notification stream")

	defer func() {
		h.hub.Unregister(userID)
		h.logger.WithField("user_id", userID).Info("User disconnected from notification stream")
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	go h.pingLoop(conn)
	h.readLoop(conn, userID)
}

func (h *WSHandler) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, userID int64) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.logger.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Warn("WebSocket read error")
			}
			return
		}
	}
}
