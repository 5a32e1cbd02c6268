// Package preview serves the latest synthesized model to browser viewers over
// HTTP and WebSocket.
package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/log"
)

// Config holds server configuration.
type Config struct {
	// HTTP address to listen on (e.g., ":7125")
	Addr string

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server pushes models to connected viewers.
type Server struct {
	addr       string
	httpServer *http.Server
	mux        *http.ServeMux
	log        *log.Logger

	modelMu sync.RWMutex
	model   *Model

	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*wsClient
	wsClientMu sync.RWMutex
	nextWSID   int64

	running atomic.Bool
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      any    `json:"id,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
	ID      any           `json:"id,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// New creates a preview server.
func New(cfg Config) *Server {
	s := &Server{
		addr:      cfg.Addr,
		mux:       http.NewServeMux(),
		log:       log.GetLogger("preview"),
		wsClients: make(map[int64]*wsClient),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // viewers are served from file:// or other ports
		},
	}

	s.mux.HandleFunc("/model", s.handleModel)
	s.mux.HandleFunc("/websocket", s.handleWebSocket)
	if cfg.Metrics != nil {
		s.mux.Handle("/metrics", cfg.Metrics)
	}
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Publish replaces the current model and notifies every connected viewer.
func (s *Server) Publish(m *Model) {
	s.modelMu.Lock()
	s.model = m
	s.modelMu.Unlock()

	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()
	for _, c := range s.wsClients {
		c.send(notification{JSONRPC: "2.0", Method: "notify_model", Params: m})
	}
}

// Model returns the current model, or nil if none was published.
func (s *Server) Model() *Model {
	s.modelMu.RLock()
	defer s.modelMu.RUnlock()
	return s.model
}

// ClientCount returns the number of connected viewers.
func (s *Server) ClientCount() int {
	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()
	return len(s.wsClients)
}

// Start serves until the server is shut down.
func (s *Server) Start() error {
	s.running.Store(true)
	s.log.WithField("addr", s.addr).Info("preview server starting")

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes every viewer and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	s.wsClientMu.Lock()
	for _, c := range s.wsClients {
		c.close()
	}
	s.wsClients = make(map[int64]*wsClient)
	s.wsClientMu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m := s.Model()
	if m == nil {
		http.Error(w, "no model", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		s.log.WithError(err).Warn("model encode failed")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &wsClient{
		id:     atomic.AddInt64(&s.nextWSID, 1),
		conn:   conn,
		server: s,
		sendCh: make(chan any, 16),
		done:   make(chan struct{}),
	}
	s.wsClientMu.Lock()
	s.wsClients[c.id] = c
	s.wsClientMu.Unlock()
	s.log.WithField("client", c.id).Debug("viewer connected")

	go c.writePump()
	go c.readPump()

	if m := s.Model(); m != nil {
		c.send(notification{JSONRPC: "2.0", Method: "notify_model", Params: m})
	}
}

func (s *Server) removeClient(c *wsClient) {
	s.wsClientMu.Lock()
	delete(s.wsClients, c.id)
	s.wsClientMu.Unlock()
	s.log.WithField("client", c.id).Debug("viewer disconnected")
}

func (s *Server) dispatch(req jsonRPCRequest) jsonRPCResponse {
	resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "model.get":
		if m := s.Model(); m != nil {
			resp.Result = m
		} else {
			resp.Error = &jsonRPCError{Code: -32000, Message: "no model"}
		}
	case "server.info":
		resp.Result = map[string]any{
			"running":   s.running.Load(),
			"viewers":   s.ClientCount(),
			"has_model": s.Model() != nil,
		}
	default:
		resp.Error = &jsonRPCError{Code: -32601, Message: "Method not found"}
	}
	return resp
}

type wsClient struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan any
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) send(msg any) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		c.server.log.WithField("client", c.id).Warn("dropping message (channel full)")
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.WithError(err).Warn("websocket read error")
			}
			return
		}
		var req jsonRPCRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.send(jsonRPCResponse{JSONRPC: "2.0", Error: &jsonRPCError{Code: -32700, Message: "Parse error"}})
			continue
		}
		c.send(c.server.dispatch(req))
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.log.WithError(err).Warn("websocket write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
