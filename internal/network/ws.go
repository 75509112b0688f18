package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"imbridge/pkg/rbac"
)

const writeWait = 10 * time.Second

type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // protects conn writes
	done chan struct{}
	once sync.Once
}

func (c *wsClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	})
}

// WSServer pushes envelopes as JSON text frames to every authenticated
// websocket client. It is mounted as an http.Handler.
type WSServer struct {
	secret       string
	pingInterval time.Duration
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool

	logger *zap.Logger
}

func NewWSServer(secret string, pingInterval time.Duration, logger *zap.Logger) *WSServer {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &WSServer{
		secret:       secret,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 客户端靠 JWT 鉴权，不限制 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

func (s *WSServer) Name() string {
	return "websocket"
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client, err := ParseClientToken(ExtractToken(r), s.secret)
	if err != nil {
		s.logger.Warn("Rejected websocket client",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := rbac.CheckPermission(client.ID, client.Role, rbac.PermissionSubscribeEvents); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	clientID := client.ID

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		s.logger.Warn("Websocket upgrade failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	c := &wsClient{id: clientID, conn: conn, done: make(chan struct{})}
	if !s.add(c) {
		c.close()
		return
	}
	s.logger.Info("Websocket client connected",
		zap.String("client_id", clientID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go s.keepAlive(c)
	s.readLoop(c)
}

func (s *WSServer) add(c *wsClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *WSServer) remove(c *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	c.close()
	if ok {
		s.logger.Info("Websocket client disconnected", zap.String("client_id", c.id))
	}
}

// readLoop 只处理控制帧；客户端发来的数据帧被丢弃
func (s *WSServer) readLoop(c *wsClient) {
	defer s.remove(c)

	wait := 2 * s.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (s *WSServer) keepAlive(c *wsClient) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				s.remove(c)
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *WSServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Send writes env to every client. A client whose write fails is dropped;
// that does not fail the send for the others.
func (s *WSServer) Send(_ context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.write(websocket.TextMessage, data); err != nil {
			s.logger.Warn("Dropping websocket client after write failure",
				zap.String("client_id", c.id),
				zap.Error(err),
			)
			s.remove(c)
		}
	}
	return nil
}

func (s *WSServer) Close() error {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[*wsClient]struct{})
	s.mu.Unlock()

	for c := range clients {
		c.close()
	}
	return nil
}
