package stream

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// TopicLive é o grupo global "todos os jogos ao vivo"
const TopicLive = "live"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// FixtureID: id do jogo, ou "live" para o grupo global
type ClientMsg struct {
	Type      string `json:"type"`
	FixtureID string `json:"fixtureId"`
}

// Hub gerencia conexões WebSocket e assinaturas por jogo e pelo grupo
// global ao vivo. Entrega é at-most-once, sem retry nem confirmação.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// tópico (fixtureID ou "live") -> conjunto de conexões inscritas
	subs map[string]map[*websocket.Conn]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Cada cliente pode se inscrever em vários jogos e no grupo "live"
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		topic := msg.FixtureID
		if topic == "" {
			topic = TopicLive
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[topic]; !ok {
				h.subs[topic] = make(map[*websocket.Conn]struct{})
			}
			h.subs[topic][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[topic]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, topic)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	h.mu.Unlock()
}

// Broadcast envia o payload para todos os inscritos no tópico, na ordem em
// que as mensagens chegam do Pub/Sub (ordem preservada por jogo)
func (h *Hub) Broadcast(topic string, payload json.RawMessage) {
	h.mu.RLock()
	conns := h.subs[topic]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	for c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, payload)
	}
}
