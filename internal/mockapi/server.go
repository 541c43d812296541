package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultClaimLimit     = 100
	defaultStreamInterval = 5 * time.Second
	writeTimeout          = 10 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Route names accepted by SetFault.
const (
	RouteStart         = "start-session"
	RouteStop          = "stop-session"
	RouteSessionStatus = "session-status"
	RouteWalletStats   = "wallet-stats"
	RouteClaimLogs     = "claim-logs"
	RouteFaucetSites   = "faucet-sites"
)

type fault struct {
	status int
	detail string
}

type Options struct {
	// Token, when set, is required as a bearer token or ?token= query.
	Token          string
	StreamInterval time.Duration
	Sites          []client.FaucetSite
	Logger         *zap.Logger
}

// Server serves the backend contract from a Store.
type Server struct {
	store          *Store
	sites          []client.FaucetSite
	token          string
	streamInterval time.Duration
	logger         *zap.Logger
	upgrader       websocket.Upgrader

	mu     sync.Mutex
	faults map[string]fault
}

func NewServer(store *Store, opts Options) *Server {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = defaultStreamInterval
	}
	if len(opts.Sites) == 0 {
		opts.Sites = Catalog
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		store:          store,
		sites:          opts.Sites,
		token:          opts.Token,
		streamInterval: opts.StreamInterval,
		logger:         opts.Logger,
		faults:         make(map[string]fault),
	}
}

// SetFault makes route answer with status and detail until cleared.
func (s *Server) SetFault(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = fault{status: status, detail: detail}
}

// ClearFault restores normal handling of route.
func (s *Server) ClearFault(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Routes returns the HTTP handler: the REST API under /api and the stats
// stream at /ws.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requireToken)
	r.Get("/ws", s.handleWS)
	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Post("/start-session", s.handleStart)
		r.Get("/session-status/{sessionID}", s.handleStatus)
		r.Get("/active-sessions", s.handleActive)
		r.Delete("/stop-session/{sessionID}", s.handleStop)
		r.Get("/wallet-stats", s.handleWalletStats)
		r.Get("/claim-logs", s.handleClaimLogs)
		r.Get("/faucet-sites", s.handleFaucetSites)
	})
	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(r) {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.token {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.token
}

// injected writes the configured fault for route, if any.
func (s *Server) injected(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	f, ok := s.faults[route]
	s.mu.Unlock()
	if !ok {
		return false
	}
	writeDetail(w, f.status, f.detail)
	return true
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, client.HealthResponse{Message: "Claim panel mock API"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteStart) {
		return
	}
	var cfg client.SessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeValidation(w, "body", "invalid JSON body")
		return
	}
	if cfg.SessionCount < config.MinSessionCount || cfg.SessionCount > config.MaxSessionCount {
		writeValidation(w, "session_count",
			fmt.Sprintf("ensure this value is between %d and %d", config.MinSessionCount, config.MaxSessionCount))
		return
	}

	id := s.store.Start(cfg)
	s.logger.Info("mock session started", zap.String("session_id", id), zap.Int("session_count", cfg.SessionCount))
	writeJSON(w, http.StatusOK, client.StartSessionResponse{
		SessionID:    id,
		Status:       "started",
		SessionCount: cfg.SessionCount,
		Message:      fmt.Sprintf("Started %d claiming sessions", cfg.SessionCount),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteSessionStatus) {
		return
	}
	st, ok := s.store.Status(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.SessionIDs())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteStop) {
		return
	}
	id := chi.URLParam(r, "sessionID")
	if !s.store.Stop(id) {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	s.logger.Info("mock session stopped", zap.String("session_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Session %s stopped", id)})
}

func (s *Server) handleWalletStats(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteWalletStats) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.WalletStats())
}

func (s *Server) handleClaimLogs(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteClaimLogs) {
		return
	}
	limit := defaultClaimLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeValidation(w, "limit", "value is not a valid integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.store.Claims(limit))
}

func (s *Server) handleFaucetSites(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteFaucetSites) {
		return
	}
	writeJSON(w, http.StatusOK, s.sites)
}

// handleWS pushes a stats_update frame immediately and then every stream
// interval until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		msg := client.StreamMessage{Type: client.MsgStatsUpdate, Data: s.store.WalletStats()}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation answers 422 with a field-level detail list.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
