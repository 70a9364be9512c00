// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message is exchanged on the read stream. Clients send SUBSCRIBE with the
// node IDs to follow (none means all) and PING; the server sends ACK, VALUE,
// PONG and ERROR.
type Message struct {
	Type           string   `json:"type"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
	NodeIDs        []string `json:"nodeIds,omitempty"`
	NodeID         string   `json:"nodeId,omitempty"`
	Value          any      `json:"value,omitempty"`
	Quality        string   `json:"quality,omitempty"`
	Timestamp      int64    `json:"timestamp,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Hub fans node value changes out to stream clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
	debugf  func(string, ...any)
}

func NewHub(debugf func(string, ...any)) *Hub {
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	return &Hub{clients: make(map[*wsClient]bool), debugf: debugf}
}

// Broadcast queues n for every client following it. Slow clients whose
// buffer is full are dropped.
func (h *Hub) Broadcast(n NodeValue) {
	msg := Message{Type: MsgTypeValue, NodeID: n.NodeID, Value: n.Value, Quality: n.Quality, Timestamp: n.Timestamp}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.follows(n.NodeID) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			log.Printf("Dropping slow stream client %s", c.id)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// sendJSON queues msg unless the client is gone or its buffer is full.
func (h *Hub) sendJSON(c *wsClient, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

type wsClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	mu     sync.Mutex
	filter map[string]bool
}

func (c *wsClient) follows(nodeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filter) == 0 || c.filter[nodeID]
}

func (c *wsClient) subscribe(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.filter[id] = true
	}
}

// serveStream upgrades the request and starts the client pumps.
func (h *Hub) serveStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Stream upgrade failed: %v", err)
		return
	}
	c := &wsClient{id: uuid.New().String(), hub: h, conn: conn, send: make(chan Message, sendBuffer)}
	if ids := r.URL.Query()["nodeId"]; len(ids) > 0 {
		c.subscribe(ids)
	}
	h.register(c)
	h.debugf("stream client %s connected", c.id)
	h.sendJSON(c, Message{Type: MsgTypeAck, SubscriptionID: c.id})

	go c.writePump()
	go c.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.hub.debugf("stream client %s disconnected", c.id)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypeSubscribe:
			c.subscribe(msg.NodeIDs)
			c.hub.sendJSON(c, Message{Type: MsgTypeAck, SubscriptionID: c.id, NodeIDs: msg.NodeIDs})
		case MsgTypePing:
			c.hub.sendJSON(c, Message{Type: MsgTypePong})
		default:
			log.Printf("Unknown message type: %s", msg.Type)
			c.hub.sendJSON(c, Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
