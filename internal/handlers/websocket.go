package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"casino-backend/internal/models"
	"casino-backend/internal/wallet"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	walletService *wallet.Service
	hub           *WebSocketHub
	log           zerolog.Logger
}

type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[int64][]*Client
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn

	mu sync.Mutex // serializes writes to Conn
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler(walletService *wallet.Service, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		walletService: walletService,
		hub:           &WebSocketHub{clients: make(map[int64][]*Client)},
		log:           log,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.add(client)

	defer func() {
		h.hub.remove(client)
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Int64("user_id", userID).Msg("websocket read error")
			}
			break
		}

		switch msg.Type {
		case "PING":
			client.send(&Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

// BroadcastRoundSettled pushes the settled round to everyone for the lobby
// feed and a fresh balance to the round's owner.
func (h *WebSocketHandler) BroadcastRoundSettled(round *models.Round) {
	h.hub.broadcast(&Message{
		Type: "ROUND_SETTLED",
		Data: round,
	})

	for _, client := range h.hub.forUser(round.UserID) {
		h.sendBalanceTo(client)
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	balance, err := h.walletService.Balance(c.Request.Context(), client.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", client.UserID).Msg("failed to load balance for ws")
		return
	}

	client.send(&Message{
		Type: "BALANCE_UPDATE",
		Data: balance,
	})
}

func (h *WebSocketHandler) sendBalanceTo(client *Client) {
	balance, err := h.walletService.Balance(context.Background(), client.UserID)
	if err != nil {
		return
	}

	client.send(&Message{
		Type: "BALANCE_UPDATE",
		Data: balance,
	})
}

func (c *Client) send(msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.WriteJSON(msg)
}

func (hub *WebSocketHub) add(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.clients[client.UserID] = append(hub.clients[client.UserID], client)
}

func (hub *WebSocketHub) remove(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	conns := hub.clients[client.UserID]
	for i, c := range conns {
		if c == client {
			hub.clients[client.UserID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(hub.clients[client.UserID]) == 0 {
		delete(hub.clients, client.UserID)
	}
}

func (hub *WebSocketHub) forUser(userID int64) []*Client {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return append([]*Client(nil), hub.clients[userID]...)
}

func (hub *WebSocketHub) broadcast(msg *Message) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, conns := range hub.clients {
		for _, client := range conns {
			client.send(msg)
		}
	}
}
