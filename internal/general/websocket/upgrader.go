package websocket

import (
	"net/http"
	"sync"
	"time"

	"fleet-track/internal/general/logger"
	"fleet-track/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
)

var (
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// dashboard clients come from anywhere on the operator network
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocket handles the dashboard feed and replay session connections.
type WebSocket struct {
	logger    *logger.Logger
	tripRepo  ports.TripRepository
	routeRepo ports.RouteRepository
	uow       ports.UnitOfWork

	writeLocks sync.Map // key: *websocket.Conn -> *sync.Mutex
	feedConns  sync.Map // key: *websocket.Conn -> struct{}
}

// NewWebSocket creates the WebSocket handler.
func NewWebSocket(logger *logger.Logger, uow ports.UnitOfWork, tripRepo ports.TripRepository, routeRepo ports.RouteRepository) *WebSocket {
	return &WebSocket{
		logger:    logger,
		tripRepo:  tripRepo,
		routeRepo: routeRepo,
		uow:       uow,
	}
}

// ConnectFeed handles GET /ws/feed. Subscribers receive every accepted
// location update as a vehicle_location_update frame until they disconnect.
func (ws *WebSocket) ConnectFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()
	defer ws.writeLocks.Delete(conn)

	conn.SetReadLimit(1 << 20) // 1 MiB
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	ws.logger.Info(r.Context(), "ws_feed_connected", "Dashboard feed subscriber connected", nil)

	stopPings := ws.pingLoop(conn)
	defer stopPings()

	ws.feedConns.Store(conn, struct{}{})
	defer ws.feedConns.Delete(conn)

	// the feed is one-way; the read loop only services pongs and close frames
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Error(r.Context(), "ws_unexpected_close", "Feed connection closed unexpectedly", err, nil)
				ws.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				ws.logger.Info(r.Context(), "ws_connection_closed", "Feed connection closed normally", nil)
				ws.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			return
		}
	}
}

// pingLoop keeps a connection alive for clients that never send application
// messages: the peer's pongs extend the read deadline through the installed
// pong handler. The returned stop func ends the loop; a failed ping closes
// the socket to unblock the reader.
func (ws *WebSocket) pingLoop(conn *websocket.Conn) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu := ws.lockOf(conn)
				mu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
				mu.Unlock()
				if err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
