package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/usecase"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// DisplaySurface is what the audience screen renders
type DisplaySurface struct {
	Current *domain.Message      `json:"current,omitempty"`
	Config  domain.DisplayConfig `json:"config"`
}

// PresenterSurface drives the presenter's queue controls
type PresenterSurface struct {
	Queue    domain.DisplayQueue    `json:"queue"`
	Total    int                    `json:"total"`
	Counts   []domain.PlatformStats `json:"counts"`
	Config   domain.DisplayConfig   `json:"config"`
	Programs []domain.Program       `json:"programs"`
}

// ManagerSurface is the moderation view
type ManagerSurface struct {
	Messages    []domain.Message       `json:"messages"`
	Connections []domain.Connection    `json:"connections"`
	Counts      []domain.PlatformStats `json:"counts"`
	Displayed   []string               `json:"displayed"`
}

func (s *Server) displaySnapshot() interface{} {
	return map[string]interface{}{
		"type":    "display",
		"display": s.board.Display(),
		"config":  s.settings.DisplayConfig(),
	}
}

func (s *Server) handleDisplaySurface(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, DisplaySurface{
		Current: s.board.Display().Current,
		Config:  s.settings.DisplayConfig(),
	})
}

func (s *Server) handlePresenterSurface(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	queue := s.board.Display()
	s.writeJSON(w, PresenterSurface{
		Queue:    queue,
		Total:    len(queue.Messages),
		Counts:   s.board.PlatformCounts(),
		Config:   s.settings.DisplayConfig(),
		Programs: s.settings.Programs(),
	})
}

func (s *Server) handleManagerSurface(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := usecase.MessageFilter{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("platform"); raw != "" && raw != "all" {
		p, ok := s.parsePlatform(w, raw)
		if !ok {
			return
		}
		filter.Platform = p
	}

	displayed := []string{}
	for _, m := range s.board.Display().Messages {
		displayed = append(displayed, m.ID)
	}
	s.writeJSON(w, ManagerSurface{
		Messages:    s.board.Messages(filter),
		Connections: s.board.Connections(),
		Counts:      s.board.PlatformCounts(),
		Displayed:   displayed,
	})
}

// ============ WebSocket ============

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub pushes a fresh snapshot to every websocket client after each change.
// Bursts of changes collapse into one push.
type hub struct {
	snapshot func() interface{}

	mu      sync.Mutex
	clients map[*wsClient]bool

	notify   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newHub(snapshot func() interface{}) *hub {
	return &hub{
		snapshot: snapshot,
		clients:  make(map[*wsClient]bool),
		notify:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (h *hub) broadcast() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *hub) run() {
	for {
		select {
		case <-h.notify:
			data, err := json.Marshal(h.snapshot())
			if err != nil {
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
				}
			}
			h.mu.Unlock()
		case <-h.stopCh:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *hub) stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.stopCh:
		return false
	default:
	}
	h.clients[c] = true
	return true
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	if data, err := json.Marshal(s.displaySnapshot()); err == nil {
		c.send <- data
	}
	if !s.hub.register(c) {
		conn.Close()
		return
	}
	s.logger.Debug().Int("clients", s.hub.count()).Msg("websocket client connected")

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client frames and detects disconnects
func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
