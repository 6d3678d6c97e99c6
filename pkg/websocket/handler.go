package websocket

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Serve 升级连接并订阅 subject，直到连接断开
func (h *Hub) Serve(c *gin.Context, subject string) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写过错误响应
		logrus.Warnf("websocket upgrade: %v", err)
		return
	}
	conn := newConnection(h, ws, subject)
	if !h.register(conn) {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.config.WriteWait))
		_ = ws.Close()
		return
	}
	go conn.writePump()
	conn.readPump()
}
