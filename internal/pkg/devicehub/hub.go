// Package devicehub manages the live WebSocket connections of booth devices
// (displays, cameras, barriers) and delivers screen events to them. The
// connection directory is decoupled from the persisted booth configuration: a
// device registers its connection by device id after the socket is
// established, and the directory entry is cleared when the socket dies.
package devicehub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/ticketless-io/ticketless/app/repository"
)

const (
	// writeWait bounds a single outbound frame so one dead device cannot
	// stall delivery to the rest.
	writeWait = 10 * time.Second

	// pingWait bounds the control frame used by the stale sweep.
	pingWait = 5 * time.Second
)

// Conn is the subset of the websocket connection the hub needs. The contrib
// websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// MessageQueue buffers events for devices that are known but offline.
type MessageQueue interface {
	Append(deviceID string, msg []byte) error
	Drain(deviceID string) ([][]byte, error)
}

// Envelope is the frame format devices receive.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn Conn
	mu   sync.Mutex // serializes data frames per connection
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWait))
}

// Hub is the connection directory. All lookups go through the booth
// directory so callers address devices by booth code and role, never by raw
// connection handles.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*client
	booths repository.BoothRepository
	queue  MessageQueue
}

// NewHub creates a hub backed by the given booth directory and offline queue.
func NewHub(booths repository.BoothRepository, queue MessageQueue) *Hub {
	return &Hub{
		conns:  make(map[string]*client),
		booths: booths,
		queue:  queue,
	}
}

// Register binds a live connection to a device id, replacing any previous
// handle, and replays messages queued while the device was offline.
func (h *Hub) Register(deviceID string, conn Conn) {
	h.mu.Lock()
	if old, ok := h.conns[deviceID]; ok && old.conn != conn {
		old.conn.Close()
	}
	c := &client{conn: conn}
	h.conns[deviceID] = c
	total := len(h.conns)
	h.mu.Unlock()

	log.Infof("device %s registered (connected: %d)", deviceID, total)
	h.drainInto(deviceID, c)
}

func (h *Hub) drainInto(deviceID string, c *client) {
	pending, err := h.queue.Drain(deviceID)
	if err != nil {
		log.Errorf("offline queue drain for device %s: %v", deviceID, err)
		return
	}
	for _, msg := range pending {
		if err := c.write(msg); err != nil {
			log.Warnf("offline replay to device %s aborted: %v", deviceID, err)
			return
		}
	}
	if len(pending) > 0 {
		log.Infof("replayed %d queued messages to device %s", len(pending), deviceID)
	}
}

// Unregister clears the directory entry if it still holds the given
// connection. A newer registration for the same device id is left alone.
func (h *Hub) Unregister(deviceID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[deviceID]; ok && c.conn == conn {
		delete(h.conns, deviceID)
		log.Infof("device %s unregistered (connected: %d)", deviceID, len(h.conns))
	}
}

// Connected reports whether a device currently holds a live connection.
func (h *Hub) Connected(deviceID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[deviceID]
	return ok
}

// Notify delivers an event to the device with the given role at the given
// booth. Delivery is best-effort: when the booth or device is unknown the
// event is dropped with a log line; when the device exists but is offline the
// event is parked on its offline queue. The return value reports live
// delivery only.
func (h *Hub) Notify(boothCode, role, event string, payload interface{}) bool {
	booth, err := h.booths.GetByCode(boothCode)
	if err != nil {
		log.Warnf("notify: booth %s not found", boothCode)
		return false
	}
	device := booth.DeviceByRole(role)
	if device == nil {
		log.Warnf("notify: booth %s has no %s device", boothCode, role)
		return false
	}

	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Errorf("notify: encoding event %s for device %s: %v", event, device.DeviceID, err)
		return false
	}

	h.mu.RLock()
	c, ok := h.conns[device.DeviceID]
	h.mu.RUnlock()

	if !ok {
		h.park(device.DeviceID, data)
		return false
	}

	if err := c.write(data); err != nil {
		log.Warnf("notify: write to device %s failed, queueing: %v", device.DeviceID, err)
		h.Unregister(device.DeviceID, c.conn)
		c.conn.Close()
		h.park(device.DeviceID, data)
		return false
	}
	return true
}

func (h *Hub) park(deviceID string, msg []byte) {
	if err := h.queue.Append(deviceID, msg); err != nil {
		log.Errorf("offline queue append for device %s: %v", deviceID, err)
	}
}

// Sweep pings every registered connection and clears the entries whose socket
// has gone dead. It only ever removes entries; registration happens solely
// through Register.
func (h *Hub) Sweep() {
	h.mu.RLock()
	snapshot := make(map[string]*client, len(h.conns))
	for id, c := range h.conns {
		snapshot[id] = c
	}
	h.mu.RUnlock()

	for id, c := range snapshot {
		if err := c.ping(); err != nil {
			log.Warnf("sweep: device %s connection is dead: %v", id, err)
			h.Unregister(id, c.conn)
			c.conn.Close()
		}
	}
}

// ClearAll drops every connection handle. Called at startup so entries left
// over from a previous process never shadow fresh registrations.
func (h *Hub) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.conns {
		c.conn.Close()
		delete(h.conns, id)
	}
}

// StartSweeper runs Sweep on a fixed schedule until the returned cron is
// stopped.
func (h *Hub) StartSweeper() *cron.Cron {
	c := cron.New()
	c.AddFunc("@every 1m", h.Sweep)
	c.Start()
	return c
}
