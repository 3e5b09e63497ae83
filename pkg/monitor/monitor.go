// Package monitor streams the status of a running console to websocket
// clients, one message per frame.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/gorilla/websocket"
	"github.com/thelolagemann/nescore/internal/nes"
	"github.com/thelolagemann/nescore/pkg/log"
)

// Status is the message sent to clients after every frame.
type Status struct {
	Frame     uint32 `json:"frame"`
	Hash      uint64 `json:"hash"` // xxhash of the RGBA frame buffer
	CpuCycles uint32 `json:"cpuCycles"`
	PpuCycles uint32 `json:"ppuCycles"`
	PC        uint16 `json:"pc"`
	Mapper    string `json:"mapper"`
	IrqLine   bool   `json:"irq"`
	Samples   int    `json:"samples"`
}

// StatusOf returns the status of n.
func StatusOf(n *nes.NES) Status {
	b := n.Bus()
	return Status{
		Frame:     n.FrameCount(),
		Hash:      xxhash.Sum64(n.FrameBuffer().Pix),
		CpuCycles: b.CpuCycleCount(),
		PpuCycles: b.PpuCycleCount(),
		PC:        n.CPU.Registers().PC,
		Mapper:    n.Cart().Name(),
		IrqLine:   b.IrqLine(),
		Samples:   len(n.Samples()),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 4,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub keeps track of the connected clients and broadcasts to them.
type Hub struct {
	clients              map[*client]bool
	broadcast            chan []byte
	register, unregister chan *client
	done                 chan struct{}
	connected            atomic.Int32

	log log.Logger
}

// NewHub returns a Hub, which does nothing until Run is called.
func NewHub(l log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log.WithComponent(l, "monitor"),
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("upgrading %s: %v", r.RemoteAddr, err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 8)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	h.log.Infof("client %s connected", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

// Run handles registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// too slow to keep up
					h.remove(c)
				}
			}
		case <-h.done:
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Publish sends s to every client. It never blocks the emulation, the
// status is dropped when the hub is busy.
func (h *Hub) Publish(s Status) {
	msg, err := json.Marshal(s)
	if err != nil {
		h.log.Errorf("encoding status: %v", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	close(h.done)
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump discards incoming messages until the connection is closed.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
