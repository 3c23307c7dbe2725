package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// syncQueue bounds the events buffered between network and frame loop.
const syncQueue = 64

// message is the JSON wire form of a sync event:
//
//	{"type":"seek","row":120}
//	{"type":"pause","paused":true}
type message struct {
	Type   string   `json:"type"`
	Row    *float64 `json:"row,omitempty"`
	Paused *bool    `json:"paused,omitempty"`
}

func (m message) event() (SyncEvent, error) {
	switch m.Type {
	case "seek":
		if m.Row == nil {
			return nil, errors.New("seek without row")
		}
		return Seek{T: TimeAt(*m.Row)}, nil
	case "pause":
		if m.Paused == nil {
			return nil, errors.New("pause without paused")
		}
		return Pause{Paused: *m.Paused}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", m.Type)
}

// WebSocketSyncer accepts timeline commands from websocket clients on
// /sync. Events are queued for the frame loop; when the queue is full new
// events are dropped.
type WebSocketSyncer struct {
	events   chan SyncEvent
	upgrader websocket.Upgrader
	logger   *slog.Logger

	ln  net.Listener
	srv *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// ListenWebSocket starts serving on addr ("host:port"; port 0 picks a free
// one).
func ListenWebSocket(addr string, logger *slog.Logger) (*WebSocketSyncer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	s := &WebSocketSyncer{
		events: make(chan SyncEvent, syncQueue),
		logger: logger,
		ln:     ln,
		conns:  make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("sync server stopped", "err", err)
		}
	}()
	logger.Info("timeline sync listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the listening address.
func (s *WebSocketSyncer) Addr() string {
	return s.ln.Addr().String()
}

// Poll returns the next queued event without blocking.
func (s *WebSocketSyncer) Poll() (SyncEvent, bool) {
	select {
	case ev := <-s.events:
		return ev, true
	default:
		return nil, false
	}
}

// Close stops the server and disconnects all clients.
func (s *WebSocketSyncer) Close() error {
	s.mu.Lock()
	for c := range s.conns {
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.Close()
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *WebSocketSyncer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("sync upgrade failed", "err", err)
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("sync client gone", "err", err)
			}
			return
		}
		var m message
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Warn("bad sync message", "err", err)
			continue
		}
		ev, err := m.event()
		if err != nil {
			s.logger.Warn("bad sync message", "err", err)
			continue
		}
		select {
		case s.events <- ev:
		default:
			s.logger.Warn("sync queue full, dropping event", "type", m.Type)
		}
	}
}
