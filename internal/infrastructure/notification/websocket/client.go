package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = 54 * time.Second

	// Максимальный размер сообщения
	maxMessageSize = 512
)

// Client представляет WebSocket клиента
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	// Канал для отправки сообщений
	send chan Message

	// Сервис, на обновления которого подписан клиент; пустой - все сервисы
	mu    sync.RWMutex
	scope string

	logger *logger.Logger
}

// subscribeRequest - сообщение клиента для смены подписки
type subscribeRequest struct {
	Type    string `json:"type"`
	Project string `json:"project"`
	Stage   string `json:"stage"`
	Service string `json:"service"`
}

// NewClient создает нового WebSocket клиента с начальной подпиской
func NewClient(hub *Hub, conn *websocket.Conn, scope valueobject.Scope, logger *logger.Logger) *Client {
	c := &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, 256),
		logger: logger,
	}
	c.Subscribe(scope)
	return c
}

// Subscribe меняет подписку клиента. Нулевой Scope подписывает на все сервисы.
func (c *Client) Subscribe(scope valueobject.Scope) {
	key := ""
	if !scope.IsZero() {
		key = scope.Key()
	}
	c.mu.Lock()
	c.scope = key
	c.mu.Unlock()
}

// ScopeKey возвращает текущую подписку
func (c *Client) ScopeKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

// Accepts сообщает, нужно ли отправлять клиенту сообщение сервиса key
func (c *Client) Accepts(key string) bool {
	scope := c.ScopeKey()
	return scope == "" || scope == key
}

// ReadPump читает сообщения от клиента
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error", err)
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			break
		}
		c.handleInbound(data)
	}
}

func (c *Client) handleInbound(data []byte) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Type != "subscribe" {
		return
	}

	if req.Project == "" && req.Stage == "" && req.Service == "" {
		c.Subscribe(valueobject.Scope{})
		return
	}

	scope, err := valueobject.NewScope(req.Project, req.Stage, req.Service)
	if err != nil {
		c.logger.Warn("Invalid WebSocket subscription", "error", err.Error())
		return
	}
	c.Subscribe(scope)
	c.logger.Debug("WebSocket subscription changed", "scope", scope.Key())
}

// WritePump отправляет сообщения клиенту
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error", err)
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if !ok {
				// Hub закрыл канал
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Error("WebSocket close message error", err)
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("WebSocket write error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
