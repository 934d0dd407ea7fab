package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is one frame sent to WebSocket clients.
type Message struct {
	Kind      string         `json:"kind"`
	Event     *StepEvent     `json:"event,omitempty"`
	Dashboard *DashboardData `json:"dashboard,omitempty"`
}

// Server streams run events to WebSocket clients at /ws and
// serves /stats, /dashboard, /health and, when set, /metrics.
type Server struct {
	mu        sync.RWMutex
	collector *EventCollector
	dashboard *DashboardData
	metrics   http.Handler
	clients   map[chan []byte]struct{}
	addr      string
	server    *http.Server
	listener  net.Listener
}

// NewServer creates a monitor server for run runID and
// subscribes it to the collector. Events collected before the
// call are replayed onto the dashboard.
func NewServer(
	addr string,
	collector *EventCollector,
	runID string,
) *Server {
	s := &Server{
		addr:      addr,
		collector: collector,
		dashboard: BuildDashboardData(runID, collector),
		clients:   make(map[chan []byte]struct{}),
	}
	collector.OnEvent(func(event StepEvent) {
		s.dashboard.UpdateFromEvent(event)
		data, err := json.Marshal(Message{Kind: "event", Event: &event})
		if err != nil {
			return
		}
		s.broadcast(data)
	})
	return s
}

// Finish sets the overall run status and pushes the final
// dashboard to connected clients.
func (s *Server) Finish(status string) {
	s.dashboard.SetStatus(status)
	data, err := json.Marshal(Message{
		Kind: "dashboard", Dashboard: s.dashboard.Snapshot(),
	})
	if err != nil {
		return
	}
	s.broadcast(data)
}

// WithMetrics serves h at /metrics.
func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Listen binds the address so Addr is known before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("monitor server: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or the configured one before
// Listen.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start serves until ctx is done. It calls Listen if needed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.RLock()
	bound := s.listener != nil
	s.mu.RUnlock()
	if !bound {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.RLock()
	srv, ln := s.server, s.listener
	s.mu.RUnlock()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected WebSocket
// clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := make(chan []byte, sendBuffer)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
	}()

	snap := s.dashboard.Snapshot()
	if data, err := json.Marshal(Message{
		Kind: "dashboard", Dashboard: snap,
	}); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	// Reads detect the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case data := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.collector.Stats())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.dashboard.Snapshot())
}

func (s *Server) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
			// Client too slow, skip
		}
	}
}
