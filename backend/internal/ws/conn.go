package ws

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type Conn struct {
	ws     *websocket.Conn
	hub    *Hub
	userID uint64
	send   chan ServerMessage
}

func NewConn(ws *websocket.Conn, hub *Hub, userID uint64) *Conn {
	return &Conn{ws: ws, hub: hub, userID: userID, send: make(chan ServerMessage, 16)}
}

// Enqueue 队列满了直接丢，poke 只是提示，下一次 poke 会带更新的版本
func (c *Conn) Enqueue(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Conn) readLoop() {
	defer func() {
		c.hub.Leave(c.userID, c)
		close(c.send)
	}()
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error (user=%d): %v", c.userID, err)
			}
			return
		}
		switch msg.Type {
		case "ping":
			c.Enqueue(ServerMessage{Type: TypePong})
		default:
			// 客户端只需要收 poke
		}
	}
}

func (c *Conn) writeLoop() {
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			log.Printf("[ws] write error (user=%d): %v", c.userID, err)
			// 让 readLoop 退出
			_ = c.ws.Close()
			for range c.send {
			}
			return
		}
	}
}
