package push

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"delta-trader/internal/infrastructure"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// PushGateway relays candle and trade events from NATS to dashboard
// websocket clients. The bot runs a single symbol, so every client receives
// the full event stream; no per-topic subscription protocol.
type PushGateway struct {
	logger  *zap.Logger
	js      nats.JetStreamContext
	mu      sync.Mutex
	clients map[*client]bool
}

func NewPushGateway(js nats.JetStreamContext, logger *zap.Logger) *PushGateway {
	return &PushGateway{
		logger:  logger,
		js:      js,
		clients: make(map[*client]bool),
	}
}

// Start subscribes to the trader subjects and begins broadcasting.
func (g *PushGateway) Start() error {
	for _, subject := range []string{"trader.candle.*", "trader.event.*"} {
		if _, err := g.js.Subscribe(subject, func(m *nats.Msg) {
			g.broadcast(m.Data)
		}, nats.DeliverNew()); err != nil {
			return err
		}
	}
	return nil
}

func (g *PushGateway) broadcast(message []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.clients {
		select {
		case c.send <- message:
		default:
			// slow consumer, drop it
			close(c.send)
			delete(g.clients, c)
		}
	}
}

func (g *PushGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[c] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(c)
	g.readPump(c)
}

func (g *PushGateway) readPump(c *client) {
	defer func() {
		g.mu.Lock()
		if _, ok := g.clients[c]; ok {
			close(c.send)
			delete(g.clients, c)
		}
		g.mu.Unlock()
		infrastructure.WSConnections.Dec()
		c.conn.Close()
	}()

	// Clients only receive; discard anything they send until disconnect.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *PushGateway) writePump(c *client) {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
