package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

const (
	MessageTypeGrid       = "grid"
	MessageTypeEvaluation = "evaluation"
)

// Hub управляет WebSocket клиентами и рассылает обновления heatmap
// Реализует интерфейс port.NotificationService
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для broadcast сообщений
	broadcast chan scopedMessage

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для удаления клиентов
	unregister chan *Client

	// Mutex для защиты clients map
	mu sync.RWMutex

	logger *logger.Logger
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // "grid" или "evaluation"
	Data interface{} `json:"data"`
}

type scopedMessage struct {
	scopeKey string
	message  Message
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan scopedMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine) до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", total, "scope", client.ScopeKey())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg scopedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.Accepts(msg.scopeKey) {
			continue
		}
		select {
		case client.send <- msg.message:
		default:
			// Канал клиента заполнен, закрываем соединение
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("Client channel full, disconnected")
		}
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastGrid отправляет сетку клиентам, подписанным на ее сервис (реализация port.NotificationService)
func (h *Hub) BroadcastGrid(grid *dto.GridDTO) {
	h.enqueue(scopeKey(grid.Project, grid.Stage, grid.Service), Message{Type: MessageTypeGrid, Data: grid})
}

// BroadcastEvaluation отправляет сводку новой оценки (реализация port.NotificationService)
func (h *Hub) BroadcastEvaluation(summary *dto.EvaluationSummaryDTO) {
	h.enqueue(scopeKey(summary.Project, summary.Stage, summary.Service), Message{Type: MessageTypeEvaluation, Data: summary})
}

func (h *Hub) enqueue(key string, message Message) {
	select {
	case h.broadcast <- scopedMessage{scopeKey: key, message: message}:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", "type", message.Type, "scope", key)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func scopeKey(project, stage, service string) string {
	return project + "." + stage + "." + service
}
