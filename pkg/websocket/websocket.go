package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Message 推送给看护端的消息
type Message struct {
	Type      string `json:"type"`
	Subject   string `json:"userId"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Connection 一个看护端连接，只订阅一个被照护者
type Connection struct {
	ID      string
	Subject string
	Conn    *websocket.Conn
	Send    chan []byte
	hub     *Hub
	closed  sync.Once
}

// Config WebSocket配置
type Config struct {
	// 单个被照护者的最大连接数
	MaxPerSubject int
	// 心跳间隔
	HeartbeatInterval time.Duration
	// 读超时，超过未收到 pong 即断开
	PongWait time.Duration
	// 写超时
	WriteWait time.Duration
	// 消息缓冲区大小
	MessageBufferSize int
	// 读缓冲区大小
	ReadBufferSize int
	// 写缓冲区大小
	WriteBufferSize int
	// 最大入站消息大小，看护端只发控制帧
	MaxMessageSize int64
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxPerSubject:     32,
		HeartbeatInterval: 30 * time.Second,
		PongWait:          60 * time.Second,
		WriteWait:         10 * time.Second,
		MessageBufferSize: 64,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		MaxMessageSize:    512,
	}
}

// Hub 按被照护者分组管理连接
type Hub struct {
	config   *Config
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	subjects map[string]map[string]*Connection

	connectionCount int64
	dropped         int64
}

// NewHub 创建新的Hub实例
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subjects: make(map[string]map[string]*Connection),
	}
}

func (h *Hub) register(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subjects[conn.Subject]
	if set == nil {
		set = make(map[string]*Connection)
		h.subjects[conn.Subject] = set
	}
	if h.config.MaxPerSubject > 0 && len(set) >= h.config.MaxPerSubject {
		logrus.Warnf("websocket: subject %s reached %d connections", conn.Subject, h.config.MaxPerSubject)
		return false
	}
	set[conn.ID] = conn
	atomic.AddInt64(&h.connectionCount, 1)
	return true
}

func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	if set, ok := h.subjects[conn.Subject]; ok {
		if _, ok := set[conn.ID]; ok {
			delete(set, conn.ID)
			atomic.AddInt64(&h.connectionCount, -1)
			if len(set) == 0 {
				delete(h.subjects, conn.Subject)
			}
		}
	}
	h.mu.Unlock()
	conn.closed.Do(func() { close(conn.Send) })
}

// Publish 发送给订阅 subject 的所有连接，返回投递成功的连接数。
// 缓冲区满的慢连接直接丢弃这条消息。
func (h *Hub) Publish(subject, event string, v any) (int, error) {
	data, err := json.Marshal(Message{Type: event, Subject: subject, Data: v, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return 0, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, conn := range h.subjects[subject] {
		select {
		case conn.Send <- data:
			delivered++
		default:
			atomic.AddInt64(&h.dropped, 1)
		}
	}
	return delivered, nil
}

// GetConnectionCount 当前连接总数
func (h *Hub) GetConnectionCount() int64 { return atomic.LoadInt64(&h.connectionCount) }

// Subscribers 订阅某个被照护者的连接数
func (h *Hub) Subscribers(subject string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subjects[subject])
}

// Close 断开所有连接
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Connection
	for _, set := range h.subjects {
		for _, c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		_ = c.Conn.Close()
	}
}

func newConnection(h *Hub, ws *websocket.Conn, subject string) *Connection {
	return &Connection{
		ID:      uuid.NewString(),
		Subject: subject,
		Conn:    ws,
		Send:    make(chan []byte, h.config.MessageBufferSize),
		hub:     h,
	}
}

// readPump 只处理 pong 和关闭；看护端不上行业务消息
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.Conn.Close()
	}()
	cfg := c.hub.config
	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("websocket %s read: %v", c.ID, err)
			}
			return
		}
	}
}

func (c *Connection) writePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}
