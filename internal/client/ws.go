package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	readTimeout        = 60 * time.Second
)

// StatsStream listens on the backend's /ws endpoint for pushed wallet stats.
type StatsStream struct {
	url    string
	token  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStatsStream creates a stream for the given websocket URL.
func NewStatsStream(wsURL, token string, logger *zap.Logger) *StatsStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsStream{url: wsURL, token: token, logger: logger}
}

// --- Bubble Tea messages ---

// StreamConnectedMsg is sent when the websocket connects.
type StreamConnectedMsg struct{}

// StreamDisconnectedMsg is sent when the connection drops.
type StreamDisconnectedMsg struct{ Err error }

// StreamStatsMsg delivers a pushed wallet stats snapshot.
type StreamStatsMsg struct{ Stats WalletStats }

// Listen returns a command that dials until connected or ctx is done.
func (s *StatsStream) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			var header http.Header
			if s.token != "" {
				header = http.Header{"Authorization": []string{"Bearer " + s.token}}
			}
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
			if err == nil {
				s.mu.Lock()
				s.conn = conn
				s.mu.Unlock()
				return StreamConnectedMsg{}
			}

			s.logger.Debug("stats stream dial failed",
				zap.String("url", s.url), zap.Duration("retry_in", delay), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
		}
	}
}

// ReadLoop returns a command that blocks until the next stats frame arrives.
// It should be reissued after every StreamStatsMsg.
func (s *StatsStream) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return StreamDisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		for {
			if ctx.Err() != nil {
				s.Close()
				return nil
			}
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, data, err := conn.ReadMessage()
			if err != nil {
				s.mu.Lock()
				if s.conn == conn {
					s.conn = nil
				}
				s.mu.Unlock()
				conn.Close()
				if ctx.Err() != nil {
					return nil
				}
				return StreamDisconnectedMsg{Err: err}
			}

			var msg StreamMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.logger.Debug("stats stream: undecodable frame", zap.Error(err))
				continue
			}
			if msg.Type == MsgStatsUpdate {
				return StreamStatsMsg{Stats: msg.Data}
			}
		}
	}
}

// Close drops the current connection, if any.
func (s *StatsStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// StreamURL derives the websocket URL from an API base URL. The backend
// serves /ws at its root, beside the /api prefix:
// http://host:8001/api → ws://host:8001/ws.
func StreamURL(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	scheme := "ws"
	if strings.HasPrefix(u.Scheme, "https") {
		scheme = "wss"
	}
	path := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
	return fmt.Sprintf("%s://%s%s/ws", scheme, u.Host, path), nil
}
