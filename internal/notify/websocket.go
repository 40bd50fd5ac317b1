package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cesargomez89/tidarr/internal/constants"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a websocket subscriber with its own buffered send queue.
type Client struct {
	id   string
	bus  *Bus
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(bus *Bus, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		bus:  bus,
		conn: conn,
		send: make(chan []byte, constants.WSSendBufferSize),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues payload without blocking.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSlow
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ServeList upgrades the request and subscribes it to the list channel.
// initial, when non-nil, is sent before any update.
func (b *Bus) ServeList(w http.ResponseWriter, r *http.Request, initial []byte) error {
	c, err := b.upgrade(w, r, initial)
	if err != nil {
		return err
	}
	b.SubscribeList(c)
	c.start()
	return nil
}

// ServeItem upgrades the request and subscribes it to one item's output.
func (b *Bus) ServeItem(w http.ResponseWriter, r *http.Request, itemID string, initial []byte) error {
	c, err := b.upgrade(w, r, initial)
	if err != nil {
		return err
	}
	b.SubscribeItem(itemID, c)
	c.start()
	return nil
}

func (b *Bus) upgrade(w http.ResponseWriter, r *http.Request, initial []byte) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := newClient(b, conn)
	if initial != nil {
		_ = c.Send(initial)
	}
	return c, nil
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// readPump only exists to notice the peer going away and to answer pongs.
func (c *Client) readPump() {
	defer func() {
		c.bus.Unsubscribe(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.WSMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.bus.log.Debug("Websocket closed unexpectedly", "subscriber", c.id, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WSPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.bus.log.Warn("Websocket write failed", "subscriber", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
