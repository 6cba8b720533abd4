package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Thykp/SPM-Team2-sub002/pkg/logger"
	"github.com/Thykp/SPM-Team2-sub002/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin browser clients are expected; the frontend is served
	// from a different origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway accepts client connections on /ws, associates each with a recipient
// identity and keeps them alive with ping/pong heartbeats.
type Gateway struct {
	registry          *Registry
	heartbeatInterval time.Duration
	logger            *logger.Logger
	metrics           *metrics.Metrics

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewGateway(registry *Registry, heartbeatInterval time.Duration, l *logger.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		registry:          registry,
		heartbeatInterval: heartbeatInterval,
		logger:            l.WithComponent("ws-gateway"),
		metrics:           m,
		clients:           make(map[*Client]struct{}),
	}
}

func (g *Gateway) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", g.handleConnection)
}

// handleConnection upgrades the request and registers the client. A missing
// or invalid userId closes the connection before it ever reaches the
// registry.
func (g *Gateway) handleConnection(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Error(err, "websocket upgrade failed")
		return
	}

	client := NewClient(userID, conn)

	conn.SetPongHandler(func(string) error {
		client.setAlive(true)
		return nil
	})

	g.registry.Register(userID, client)
	g.track(client)
	g.metrics.ActiveConnections.Set(float64(g.registry.Len()))
	g.logger.Info("client connected", "user_id", userID.String())

	go g.readLoop(client)
}

// readLoop drains inbound frames so pong handlers fire; the identify message
// clients send after connecting is accepted but not required. Exit means the
// connection closed.
func (g *Gateway) readLoop(client *Client) {
	defer g.drop(client)

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run probes every open connection on a fixed interval. A connection that did
// not answer the previous probe is terminated; the rest are marked
// not-yet-answered and probed again.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.probe()
		}
	}
}

func (g *Gateway) probe() {
	for _, client := range g.snapshot() {
		if !client.Alive() {
			g.logger.Info("heartbeat timeout, terminating", "user_id", client.UserID.String())
			client.Close()
			g.drop(client)
			continue
		}

		client.setAlive(false)
		if err := client.Ping(); err != nil {
			client.Close()
			g.drop(client)
		}
	}
}

func (g *Gateway) track(client *Client) {
	g.mu.Lock()
	g.clients[client] = struct{}{}
	g.mu.Unlock()
}

func (g *Gateway) drop(client *Client) {
	g.mu.Lock()
	_, tracked := g.clients[client]
	delete(g.clients, client)
	g.mu.Unlock()

	if !tracked {
		return
	}

	client.Close()
	g.registry.Unregister(client.UserID, client)
	g.metrics.ActiveConnections.Set(float64(g.registry.Len()))
	g.logger.Info("client disconnected", "user_id", client.UserID.String())
}

func (g *Gateway) snapshot() []*Client {
	g.mu.Lock()
	defer g.mu.Unlock()

	clients := make([]*Client, 0, len(g.clients))
	for client := range g.clients {
		clients = append(clients, client)
	}
	return clients
}
