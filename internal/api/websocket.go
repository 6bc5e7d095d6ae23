// internal/api/websocket.go
package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/DreamScape/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxReadBytes = 4096
	frameQueue   = 2
	controlQueue = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamClient is one render websocket. Frames are lossy; control messages
// have their own queue so errors reach the client while frames back up.
type StreamClient struct {
	conn      *websocket.Conn
	sessionID string
	dreamID   string
	sceneID   string
	mode      string
	frames    chan []byte
	control   chan []byte
	closed    int32
	dropped   int64
	sent      int64
	createdAt time.Time
	lastPing  atomic.Int64
}

func newStreamClient(conn *websocket.Conn, sessionID, dreamID, sceneID, mode string) *StreamClient {
	client := &StreamClient{
		conn:      conn,
		sessionID: sessionID,
		dreamID:   dreamID,
		sceneID:   sceneID,
		mode:      mode,
		frames:    make(chan []byte, frameQueue),
		control:   make(chan []byte, controlQueue),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close closes the socket once.
func (client *StreamClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		client.conn.Close()
	}
}

// IsClosed reports whether Close ran.
func (client *StreamClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing records client liveness.
func (client *StreamClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// busy reports a full frame queue so the caller can skip encoding a frame.
func (client *StreamClient) busy() bool {
	if len(client.frames) < cap(client.frames) {
		return false
	}
	atomic.AddInt64(&client.dropped, 1)
	return true
}

// SendFrame queues an encoded PNG frame without blocking. A slow client
// loses frames.
func (client *StreamClient) SendFrame(png []byte) bool {
	if client.IsClosed() {
		return false
	}
	select {
	case client.frames <- png:
		return true
	default:
		atomic.AddInt64(&client.dropped, 1)
		return false
	}
}

// SendJSON queues a text control message without blocking.
func (client *StreamClient) SendJSON(data []byte) bool {
	if client.IsClosed() {
		return false
	}
	select {
	case client.control <- data:
		return true
	default:
		return false
	}
}

// finish closes the control queue; the write pump flushes it, sends a close
// frame and exits. Only the handler goroutine calls it, after the last send.
func (client *StreamClient) finish() {
	close(client.control)
}

// writePump owns all writes to the connection.
func (client *StreamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	write := func(kind int, data []byte) bool {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return client.conn.WriteMessage(kind, data) == nil
	}

	for {
		select {
		case msg, ok := <-client.control:
			if !ok {
				write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if !write(websocket.TextMessage, msg) {
				return
			}
		case frame := <-client.frames:
			if !write(websocket.BinaryMessage, frame) {
				return
			}
			atomic.AddInt64(&client.sent, 1)
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// StreamManager tracks the open render websockets.
type StreamManager struct {
	mu      sync.RWMutex
	clients map[*StreamClient]struct{}
	logger  *utils.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		clients: make(map[*StreamClient]struct{}),
		logger:  utils.GetLogger().WithComponent("websocket"),
	}
}

func (manager *StreamManager) register(client *StreamClient) {
	manager.mu.Lock()
	manager.clients[client] = struct{}{}
	manager.mu.Unlock()

	manager.logger.Info("render stream connected", map[string]interface{}{
		"session": client.sessionID,
		"dream":   client.dreamID,
		"mode":    client.mode,
	})
}

func (manager *StreamManager) unregister(client *StreamClient) {
	manager.mu.Lock()
	delete(manager.clients, client)
	manager.mu.Unlock()

	manager.logger.Info("render stream closed", map[string]interface{}{
		"session": client.sessionID,
		"dream":   client.dreamID,
		"sent":    atomic.LoadInt64(&client.sent),
		"dropped": atomic.LoadInt64(&client.dropped),
	})
}

// Count returns the number of open streams.
func (manager *StreamManager) Count() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients)
}

// CloseAll closes every open stream. Used on shutdown.
func (manager *StreamManager) CloseAll() {
	manager.mu.RLock()
	clients := make([]*StreamClient, 0, len(manager.clients))
	for client := range manager.clients {
		clients = append(clients, client)
	}
	manager.mu.RUnlock()

	for _, client := range clients {
		client.Close()
	}
}

// GetStatus summarises the open streams per session.
func (manager *StreamManager) GetStatus() map[string]interface{} {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	sessions := make(map[string][]map[string]interface{})
	for client := range manager.clients {
		sessions[client.sessionID] = append(sessions[client.sessionID], map[string]interface{}{
			"dream_id":     client.dreamID,
			"scene_id":     client.sceneID,
			"mode":         client.mode,
			"connected_at": client.createdAt.Format(time.RFC3339),
			"last_ping":    time.Unix(0, client.lastPing.Load()).Format(time.RFC3339),
			"frames_sent":  atomic.LoadInt64(&client.sent),
			"dropped":      atomic.LoadInt64(&client.dropped),
		})
	}
	return map[string]interface{}{
		"total_connections": len(manager.clients),
		"sessions":          sessions,
	}
}
