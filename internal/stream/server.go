// Package stream serves the evolving terrain to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/terrain"
)

// Control is the part of the engine clients may drive.
type Control interface {
	Start(erosion.Backend) error
	Stop()
	Step() int
	Eroding() bool
}

// FrameMessage carries one regenerated surface.
type FrameMessage struct {
	Type    string    `json:"type"`
	Step    int       `json:"step"`
	Width   int       `json:"width"`
	Heights []float32 `json:"heights"`
	Water   []float32 `json:"water,omitempty"`
}

type StatusMessage struct {
	Type    string `json:"type"`
	Step    int    `json:"step"`
	Eroding bool   `json:"eroding"`
	Error   string `json:"error,omitempty"`
}

// CommandMessage is what clients send: {"action":"start","backend":"cpu"}
// or {"action":"stop"}.
type CommandMessage struct {
	Action  string `json:"action"`
	Backend string `json:"backend"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server broadcasts a frame to every client each time the engine asks
// for a regenerate. It implements erosion.MeshConsumer.
type Server struct {
	mesh    *terrain.Mesh
	control Control

	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client

	lastMu sync.RWMutex
	last   *FrameMessage
}

func NewServer(src terrain.Source, control Control) *Server {
	return &Server{
		mesh:    terrain.NewMesh(src, 1),
		control: control,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*client),
	}
}

func (s *Server) NeedsUpload() bool { return s.mesh.NeedsUpload() }

func (s *Server) Regenerate(includeWater bool) { s.mesh.Regenerate(includeWater) }

// Handler routes /ws to the websocket endpoint and /status to a JSON
// snapshot of the engine state.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.status(nil))
	})
	return mux
}

// Run forwards finished frames to clients until ctx is done.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-s.mesh.Ready():
			f, ok := s.mesh.Upload()
			if !ok {
				continue
			}
			msg := &FrameMessage{
				Type:    "frame",
				Step:    s.control.Step(),
				Width:   f.Width,
				Heights: f.Heights,
				Water:   f.WaterSurface,
			}
			s.lastMu.Lock()
			s.last = msg
			s.lastMu.Unlock()
			s.broadcast(msg)
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		erosion.Logger().Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	s.clientsMu.Lock()
	s.clients[conn] = c
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	s.lastMu.RLock()
	last := s.last
	s.lastMu.RUnlock()
	if last != nil {
		_ = c.send(last)
	}
	_ = c.send(s.status(nil))

	for {
		var cmd CommandMessage
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		_ = c.send(s.status(s.apply(cmd)))
	}
}

func (s *Server) apply(cmd CommandMessage) error {
	switch cmd.Action {
	case "start":
		b, err := erosion.ParseBackend(cmd.Backend)
		if err != nil {
			return err
		}
		if b == erosion.GPU {
			// GPU runs block; keep reading commands meanwhile
			go func() {
				if err := s.control.Start(b); err != nil {
					erosion.Logger().Warn("gpu run from client failed", "err", err)
				}
			}()
			return nil
		}
		return s.control.Start(b)
	case "stop":
		s.control.Stop()
		return nil
	case "status", "":
		return nil
	}
	erosion.Logger().Debug("unknown client command", "action", cmd.Action)
	return nil
}

func (s *Server) status(err error) StatusMessage {
	msg := StatusMessage{Type: "status", Step: s.control.Step(), Eroding: s.control.Eroding()}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

func (s *Server) broadcast(v any) {
	s.clientsMu.RLock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range targets {
		if err := c.send(v); err != nil {
			erosion.Logger().Debug("dropping websocket client", "err", err)
			c.conn.Close()
		}
	}
}

func (s *Server) closeAll() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for conn := range s.clients {
		conn.Close()
	}
}
