// Package session owns the panel's desired state: how many sessions to
// launch, whether a batch is running, and the id of the one batch this
// client tracks. All mutation goes through Controller's methods, which are
// called only from the Bubble Tea update loop.
package session

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/config"
	"go.uber.org/zap"
)

// Phase is the client-observed lifecycle of the tracked session.
type Phase int

const (
	Idle Phase = iota
	Starting
	Running
	Stopping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	ErrCountOutOfRange  = fmt.Errorf("session count must be between %d and %d", config.MinSessionCount, config.MaxSessionCount)
	ErrAlreadyActive    = errors.New("a session is already starting or running")
	ErrNoSession        = errors.New("no session to stop")
	ErrBusy             = errors.New("a session command is already in flight")
	ErrMissingSessionID = errors.New("backend returned no session id")
)

// Backend is the subset of the API the controller issues commands to.
type Backend interface {
	StartSession(ctx context.Context, cfg client.SessionConfig) (*client.StartSessionResponse, error)
	StopSession(ctx context.Context, sessionID string) error
}

// StartedMsg carries the backend's answer to a start command.
type StartedMsg struct {
	Count    int
	Response *client.StartSessionResponse
	Err      error
}

// StoppedMsg carries the backend's answer to a stop command.
type StoppedMsg struct {
	SessionID string
	Err       error
}

// Notice is an operator-facing confirmation or error produced by a command.
type Notice struct {
	Text  string
	Error bool
}

// Controller translates operator intent into backend commands.
type Controller struct {
	ctx      context.Context
	backend  Backend
	defaults config.SessionDefaults
	logger   *zap.Logger

	phase     Phase
	count     int
	sessionID string
	status    *client.SessionStatus
}

// New creates an idle controller. The initial count comes from defaults.
func New(ctx context.Context, backend Backend, defaults config.SessionDefaults, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	count := defaults.Count
	if count < config.MinSessionCount || count > config.MaxSessionCount {
		count = config.MinSessionCount
	}
	return &Controller{
		ctx:      ctx,
		backend:  backend,
		defaults: defaults,
		logger:   logger,
		count:    count,
	}
}

func (c *Controller) Phase() Phase { return c.phase }

// Running reports the running flag: true from a successful start until a
// successful stop.
func (c *Controller) Running() bool {
	return c.phase == Running || c.phase == Stopping
}

// SessionID returns the held session id, if any.
func (c *Controller) SessionID() (string, bool) {
	return c.sessionID, c.sessionID != ""
}

// Status returns the last applied SessionStatus, or nil.
func (c *Controller) Status() *client.SessionStatus { return c.status }

// Count returns the desired session count.
func (c *Controller) Count() int { return c.count }

// Editable reports whether the count selector accepts input.
func (c *Controller) Editable() bool { return c.phase == Idle }

// SetCount sets the desired count, clamped to the backend's bounds. It is
// ignored unless idle.
func (c *Controller) SetCount(n int) bool {
	if !c.Editable() {
		return false
	}
	c.count = max(config.MinSessionCount, min(n, config.MaxSessionCount))
	return true
}

// AdjustCount moves the desired count by delta.
func (c *Controller) AdjustCount(delta int) bool {
	return c.SetCount(c.count + delta)
}

// BuildConfig returns the launch parameters for count using the configured
// defaults.
func (c *Controller) BuildConfig(count int) client.SessionConfig {
	return client.SessionConfig{
		SessionCount:        count,
		AutoWithdrawal:      c.defaults.AutoWithdrawal,
		WithdrawalThreshold: c.defaults.WithdrawalThreshold,
		WithdrawalAddress:   c.defaults.WithdrawalAddress,
		ProxyEnabled:        c.defaults.ProxyEnabled,
		CaptchaSolving:      c.defaults.CaptchaSolving,
	}
}

// Start validates count, moves to Starting and returns the command that
// submits the launch. Nothing is sent when an error is returned.
func (c *Controller) Start(count int) (tea.Cmd, error) {
	if count < config.MinSessionCount || count > config.MaxSessionCount {
		return nil, ErrCountOutOfRange
	}
	if c.phase != Idle {
		return nil, ErrAlreadyActive
	}

	cfg := c.BuildConfig(count)
	c.phase = Starting
	c.count = count
	c.logger.Info("starting session", zap.Int("session_count", count))

	ctx, backend := c.ctx, c.backend
	return func() tea.Msg {
		resp, err := backend.StartSession(ctx, cfg)
		return StartedMsg{Count: count, Response: resp, Err: err}
	}, nil
}

// HandleStarted applies a start acknowledgement. Results arriving outside
// Starting are ignored and produce an empty notice.
func (c *Controller) HandleStarted(msg StartedMsg) Notice {
	if c.phase != Starting {
		return Notice{}
	}
	if msg.Err == nil && (msg.Response == nil || msg.Response.SessionID == "") {
		c.phase = Idle
		c.logger.Warn("start session failed", zap.Error(ErrMissingSessionID))
		return Notice{Text: "Failed to start session: " + ErrMissingSessionID.Error(), Error: true}
	}
	if msg.Err != nil {
		c.phase = Idle
		c.logger.Warn("start session failed", zap.Error(msg.Err))
		return Notice{Text: "Failed to start session: " + errorDetail(msg.Err), Error: true}
	}

	c.sessionID = msg.Response.SessionID
	c.status = nil
	c.phase = Running
	c.logger.Info("session started", zap.String("session_id", c.sessionID), zap.Int("session_count", msg.Count))
	return Notice{Text: fmt.Sprintf("Started %d claiming sessions!", msg.Count)}
}

// Stop moves to Stopping and returns the command that terminates the held
// session.
func (c *Controller) Stop() (tea.Cmd, error) {
	if c.sessionID == "" {
		return nil, ErrNoSession
	}
	if c.phase != Running {
		return nil, ErrBusy
	}

	c.phase = Stopping
	id := c.sessionID
	c.logger.Info("stopping session", zap.String("session_id", id))

	ctx, backend := c.ctx, c.backend
	return func() tea.Msg {
		return StoppedMsg{SessionID: id, Err: backend.StopSession(ctx, id)}
	}, nil
}

// HandleStopped applies a stop acknowledgement. On failure the id is kept so
// Stop can be retried.
func (c *Controller) HandleStopped(msg StoppedMsg) Notice {
	if c.phase != Stopping || msg.SessionID != c.sessionID {
		return Notice{}
	}
	if msg.Err != nil {
		c.phase = Running
		c.logger.Warn("stop session failed", zap.String("session_id", msg.SessionID), zap.Error(msg.Err))
		return Notice{Text: "Failed to stop session", Error: true}
	}

	c.phase = Idle
	c.sessionID = ""
	c.status = nil
	c.logger.Info("session stopped", zap.String("session_id", msg.SessionID))
	return Notice{Text: "Session stopped!"}
}

// ApplyStatus stores status if it was fetched for the currently held id.
// Responses for an id that is no longer held are dropped.
func (c *Controller) ApplyStatus(forID string, status *client.SessionStatus) bool {
	if forID == "" || forID != c.sessionID || status == nil {
		return false
	}
	c.status = status
	return true
}

// errorDetail returns the backend's detail text when present, else a
// generic message.
func errorDetail(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return "unknown error"
}
