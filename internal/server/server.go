package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oleksiiilienko/mxtoo/internal/config"
	"github.com/oleksiiilienko/mxtoo/internal/hub"
	"github.com/oleksiiilienko/mxtoo/internal/logging"
	"github.com/oleksiiilienko/mxtoo/internal/telemetry"
)

const (
	RouteData = "/realtime/data"
	RouteCPUs = "/realtime/cpus"

	// Viewers never send data; anything larger than this is a misbehaving client.
	maxClientMessage = 512
)

// HealthChecker reports why sampling stopped, or nil.
type HealthChecker interface {
	Err() error
}

type healthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Error       string `json:"error,omitempty"`
}

type Server struct {
	config   *config.Config
	hub      *hub.Hub
	health   HealthChecker
	metrics  *telemetry.Metrics
	logger   logging.Logger
	upgrader websocket.Upgrader

	wg     sync.WaitGroup
	active atomic.Int64
}

// New wires the HTTP side to h. health and metrics may be nil.
func New(cfg *config.Config, h *hub.Hub, health HealthChecker, metrics *telemetry.Metrics, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		config:  cfg,
		hub:     h,
		health:  health,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RouteData, s.handleStream(RouteData, ProjectFull))
	mux.HandleFunc(RouteCPUs, s.handleStream(RouteCPUs, ProjectCores))
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.HandleFunc("/metrics", s.handleMetrics)
	}
	mux.Handle("/", http.FileServer(http.Dir(s.config.PublicDir)))
	return mux
}

// ActiveConnections returns the number of streaming connections being served.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

// Wait blocks until every connection goroutine has exited or ctx is done.
// Close the hub first so relays can finish.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleStream(route string, proj Projection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// counted before the hijack: Shutdown stops tracking the conn after it
		s.wg.Add(1)
		defer s.wg.Done()

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Debug("ws upgrade failed", logging.String("route", route), logging.Err(err))
			return
		}
		s.relay(r.Context(), conn, route, proj)
	}
}

// relay forwards every snapshot from a fresh subscription to conn until the
// client goes away, a write fails or the hub closes.
func (s *Server) relay(ctx context.Context, conn *websocket.Conn, route string, proj Projection) {
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer sub.Close()

	s.active.Add(1)
	defer s.active.Add(-1)
	if s.metrics != nil {
		s.metrics.ConnectionOpened(route)
		defer s.metrics.ConnectionClosed(route)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.wg.Add(2)
	go s.readPump(conn, cancel)
	go s.pinger(ctx, conn)

	remote := conn.RemoteAddr().String()
	s.logger.Debug("viewer connected", logging.String("route", route), logging.String("remote", remote))

	for {
		snap, err := sub.Recv(ctx)
		if err != nil {
			if errors.Is(err, hub.ErrClosed) {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			}
			s.logger.Debug("viewer disconnected",
				logging.String("route", route),
				logging.String("remote", remote),
				logging.Uint64("lagged", sub.Lagged()))
			return
		}

		if err := s.sendSnapshot(conn, proj.Apply(snap)); err != nil {
			s.logger.Debug("relay write failed",
				logging.String("route", route),
				logging.String("remote", remote),
				logging.Err(err))
			return
		}
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Debug("encoding snapshot failed", logging.Err(err))
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readPump discards client frames. Its only job is to notice the peer going
// away (and answer control frames), which cancels the relay.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer s.wg.Done()
	defer cancel()

	pongWait := 2 * s.config.PingInterval
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) pinger(ctx context.Context, conn *websocket.Conn) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Subscribers: s.hub.Subscribers()}
	code := http.StatusOK
	if s.health != nil {
		if err := s.health.Err(); err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.metrics.WritePrometheus(w, r)
}
