package devicehub

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	// readWait is reset on every inbound frame and pong; a device that stays
	// silent longer is considered gone.
	readWait = 5 * time.Minute

	maxMessageSize = 4 * 1024
)

type inbound struct {
	MessageType string `json:"message_type"`
	DeviceID    string `json:"device_id"`
}

type ack struct {
	Event    string `json:"event"`
	DeviceID string `json:"device_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// UpgradeRequired gates the websocket route so plain HTTP requests get a 426
// instead of a panic from the upgrader.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket route handler. A device identifies itself
// with a register_device message; only devices present in the booth directory
// are bound to the connection. Whatever the device did, the directory entry
// is cleared when the socket closes.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		var deviceID string
		defer func() {
			if deviceID != "" {
				h.Unregister(deviceID, conn)
			}
			conn.Close()
		}()

		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(readWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(readWait))
			return nil
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("device socket read: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(readWait))

			var msg inbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				h.writeAck(conn, deviceID, ack{Event: "error", Message: "malformed message"})
				continue
			}

			switch msg.MessageType {
			case "register_device":
				deviceID = h.handleRegister(conn, msg.DeviceID, deviceID)
			case "ping":
				h.writeAck(conn, deviceID, ack{Event: "pong", DeviceID: deviceID})
			default:
				h.writeAck(conn, deviceID, ack{Event: "error", Message: "unknown message_type"})
			}
		}
	})
}

// handleRegister binds the connection to the device id when the device is
// known, returning the id now bound to this socket.
func (h *Hub) handleRegister(conn *websocket.Conn, requested, current string) string {
	if requested == "" {
		h.writeAck(conn, current, ack{Event: "error", Message: "device_id is required"})
		return current
	}
	if _, err := h.booths.GetDevice(requested); err != nil {
		log.Warnf("register_device for unknown device %s", requested)
		h.writeAck(conn, current, ack{Event: "error", DeviceID: requested, Message: "unknown device"})
		return current
	}

	if current != "" && current != requested {
		h.Unregister(current, conn)
	}
	h.Register(requested, conn)
	h.writeAck(conn, requested, ack{Event: "registered", DeviceID: requested})
	return requested
}

// writeAck replies on the device socket. Once the connection is registered,
// writes go through the directory entry's lock so they cannot interleave with
// a concurrent Notify on the same socket.
func (h *Hub) writeAck(conn *websocket.Conn, deviceID string, a ack) {
	data, err := json.Marshal(a)
	if err != nil {
		return
	}

	if deviceID != "" {
		h.mu.RLock()
		c, ok := h.conns[deviceID]
		h.mu.RUnlock()
		if ok && c.conn == Conn(conn) {
			if err := c.write(data); err != nil {
				log.Warnf("device socket ack write: %v", err)
			}
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warnf("device socket ack write: %v", err)
	}
}
