// Package poller keeps the panel's read-state fresh. A Synchronizer refreshes
// wallet stats and the claim log on a fixed cadence, fetches the faucet
// catalog once, and polls the active session's status while one is bound.
//
// Every refresh runs as its own tea.Cmd and reports back as a message, so the
// Bubble Tea update loop stays the only writer of the synchronizer's state.
package poller

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/config"
	"github.com/claim-panel/tui/internal/metrics"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Source is the read side of the backend API.
type Source interface {
	GetWalletStats(ctx context.Context) (*client.WalletStats, error)
	GetClaimLogs(ctx context.Context, limit int) ([]client.ClaimLogEntry, error)
	GetFaucetSites(ctx context.Context) ([]client.FaucetSite, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*client.SessionStatus, error)
}

// StatusSink receives session status results. It decides whether a result
// fetched for sessionID still applies.
type StatusSink interface {
	ApplyStatus(sessionID string, status *client.SessionStatus) bool
}

// Binding says whether a session is being tracked. The zero value is
// NoActiveSession.
type Binding struct {
	sessionID string
}

// NoActiveSession disables per-session status polling.
var NoActiveSession = Binding{}

// ActiveSession enables status polling for id.
func ActiveSession(id string) Binding {
	return Binding{sessionID: id}
}

// BindingFor maps an optional session id to a Binding.
func BindingFor(id string, ok bool) Binding {
	if !ok || id == "" {
		return NoActiveSession
	}
	return ActiveSession(id)
}

// SessionID returns the bound id, if any.
func (b Binding) SessionID() (string, bool) {
	return b.sessionID, b.sessionID != ""
}

func (b Binding) String() string {
	if b.sessionID == "" {
		return "none"
	}
	return b.sessionID
}

// --- Bubble Tea messages ---

// TickMsg fires a scheduled refresh. Gen identifies the tick chain that
// scheduled it; ticks from a superseded chain are dropped.
type TickMsg struct {
	Gen int
}

// RefreshMsg fires a manual refresh once the rate limiter allows it.
type RefreshMsg struct{}

// WalletStatsMsg carries the result of a wallet stats refresh.
type WalletStatsMsg struct {
	Stats *client.WalletStats
	Err   error
}

// ClaimLogsMsg carries the result of a claim log refresh.
type ClaimLogsMsg struct {
	Entries []client.ClaimLogEntry
	Err     error
}

// FaucetSitesMsg carries the result of the catalog fetch.
type FaucetSitesMsg struct {
	Sites []client.FaucetSite
	Err   error
}

// SessionStatusMsg carries a status result tagged with the id it was
// requested for.
type SessionStatusMsg struct {
	SessionID string
	Status    *client.SessionStatus
	Err       error
}

// Result is implemented by every refresh result message.
type Result interface {
	Resource() string
	Failure() error
}

func (m WalletStatsMsg) Resource() string   { return metrics.ResourceWallet }
func (m WalletStatsMsg) Failure() error     { return m.Err }
func (m ClaimLogsMsg) Resource() string     { return metrics.ResourceClaims }
func (m ClaimLogsMsg) Failure() error       { return m.Err }
func (m FaucetSitesMsg) Resource() string   { return metrics.ResourceSites }
func (m FaucetSitesMsg) Failure() error     { return m.Err }
func (m SessionStatusMsg) Resource() string { return metrics.ResourceSession }
func (m SessionStatusMsg) Failure() error   { return m.Err }

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger used for refresh failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimiter replaces the manual refresh limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Synchronizer) { s.limiter = l }
}

// WithStream enables the live stats push alongside polling.
func WithStream(stream *client.StatsStream) Option {
	return func(s *Synchronizer) { s.stream = stream }
}

// Synchronizer owns the read-state shown by the views.
type Synchronizer struct {
	ctx     context.Context
	cancel  context.CancelFunc
	source  Source
	sink    StatusSink
	cfg     config.PollConfig
	logger  *zap.Logger
	limiter ratelimit.Limiter
	stream  *client.StatsStream

	gen            int
	binding        Binding
	stopped        bool
	refreshPending bool
	streamUp       bool

	wallet      *client.WalletStats
	claims      []client.ClaimLogEntry
	sites       []client.FaucetSite
	sitesLoaded bool
	lastRefresh time.Time
	lastErr     error
	lastErrAt   time.Time
}

// New creates a synchronizer. Its context is derived from ctx and cancelled
// by Stop.
func New(ctx context.Context, source Source, sink StatusSink, cfg config.PollConfig, opts ...Option) *Synchronizer {
	ctx, cancel := context.WithCancel(ctx)
	if cfg.ClaimLogLimit <= 0 || cfg.ClaimLogLimit > config.MaxClaimLogLimit {
		cfg.ClaimLogLimit = config.MaxClaimLogLimit
	}
	if cfg.CatalogAttempts == 0 {
		cfg.CatalogAttempts = 1
	}
	rps := cfg.RefreshPerSecond
	if rps <= 0 {
		rps = 1
	}
	s := &Synchronizer{
		ctx:     ctx,
		cancel:  cancel,
		source:  source,
		sink:    sink,
		cfg:     cfg,
		logger:  zap.NewNop(),
		limiter: ratelimit.New(rps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init performs the on-mount fetch: wallet stats, claim logs and the
// catalog, then schedules the first tick.
func (s *Synchronizer) Init() tea.Cmd {
	cmds := []tea.Cmd{
		s.fetchWallet(),
		s.fetchClaims(),
		s.fetchSites(),
		s.scheduleTick(),
	}
	if s.stream != nil {
		cmds = append(cmds, s.stream.Listen(s.ctx))
	}
	return tea.Batch(cmds...)
}

// Update applies a message addressed to the synchronizer. The boolean
// reports whether the message was one of its own.
func (s *Synchronizer) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case TickMsg:
		if s.stopped || msg.Gen != s.gen {
			return nil, true
		}
		return tea.Batch(append(s.refreshCmds(), s.scheduleTick())...), true

	case RefreshMsg:
		s.refreshPending = false
		if s.stopped {
			return nil, true
		}
		cmds := s.refreshCmds()
		if !s.sitesLoaded {
			cmds = append(cmds, s.fetchSites())
		}
		return tea.Batch(cmds...), true

	case WalletStatsMsg:
		if s.record(msg) {
			s.wallet = msg.Stats
		}
		return nil, true

	case ClaimLogsMsg:
		if s.record(msg) {
			s.claims = msg.Entries
		}
		return nil, true

	case FaucetSitesMsg:
		if s.record(msg) {
			s.sites = msg.Sites
			s.sitesLoaded = true
		}
		return nil, true

	case SessionStatusMsg:
		if s.record(msg) && s.sink != nil {
			if !s.sink.ApplyStatus(msg.SessionID, msg.Status) {
				s.logger.Debug("discarded status for session no longer held", zap.String("session_id", msg.SessionID))
			}
		}
		return nil, true

	case client.StreamConnectedMsg:
		s.streamUp = true
		metrics.ObserveStream("connected")
		return s.readStream(), true

	case client.StreamStatsMsg:
		metrics.ObserveStream("stats")
		if !s.stopped {
			stats := msg.Stats
			s.wallet = &stats
			s.lastRefresh = time.Now()
		}
		return s.readStream(), true

	case client.StreamDisconnectedMsg:
		s.streamUp = false
		metrics.ObserveStream("disconnected")
		if s.stopped || s.stream == nil {
			return nil, true
		}
		s.logger.Debug("stats stream disconnected", zap.Error(msg.Err))
		return s.stream.Listen(s.ctx), true
	}
	return nil, false
}

// Bind points status polling at b. A change of identity restarts the tick
// chain at the full interval; rebinding the same identity does nothing.
func (s *Synchronizer) Bind(b Binding) tea.Cmd {
	if b == s.binding {
		return nil
	}
	s.logger.Debug("rebinding poller", zap.Stringer("from", s.binding), zap.Stringer("to", b))
	s.binding = b
	s.gen++
	if s.stopped {
		return nil
	}
	return s.scheduleTick()
}

// Binding returns the current binding.
func (s *Synchronizer) Binding() Binding { return s.binding }

// Refresh requests an immediate refresh of the same resources a tick
// refreshes. Requests are throttled by the limiter and coalesced while one
// is waiting. The tick cadence is unaffected.
func (s *Synchronizer) Refresh() tea.Cmd {
	if s.stopped || s.refreshPending {
		return nil
	}
	s.refreshPending = true
	limiter := s.limiter
	return func() tea.Msg {
		limiter.Take()
		return RefreshMsg{}
	}
}

// Stop ends the tick chain and aborts in-flight requests. It is safe to call
// more than once.
func (s *Synchronizer) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.gen++
	s.cancel()
	if s.stream != nil {
		s.stream.Close()
	}
}

// Stopped reports whether Stop has been called.
func (s *Synchronizer) Stopped() bool { return s.stopped }

// Wallet returns the last wallet stats, or nil before the first success.
func (s *Synchronizer) Wallet() *client.WalletStats { return s.wallet }

// Claims returns the last claim log, newest first.
func (s *Synchronizer) Claims() []client.ClaimLogEntry { return s.claims }

// Sites returns the faucet catalog.
func (s *Synchronizer) Sites() []client.FaucetSite { return s.sites }

// SitesLoaded reports whether the catalog fetch has succeeded.
func (s *Synchronizer) SitesLoaded() bool { return s.sitesLoaded }

// LastRefresh returns the time of the last successful refresh.
func (s *Synchronizer) LastRefresh() time.Time { return s.lastRefresh }

// LastError returns the most recent refresh failure, or nil.
func (s *Synchronizer) LastError() error { return s.lastErr }

// LastErrorAt returns when LastError happened.
func (s *Synchronizer) LastErrorAt() time.Time { return s.lastErrAt }

// StreamConnected reports whether the live stats stream is up.
func (s *Synchronizer) StreamConnected() bool { return s.streamUp }

// Interval returns the tick interval.
func (s *Synchronizer) Interval() time.Duration { return s.cfg.Interval }

// record notes the outcome of a refresh and reports whether its payload
// should replace the held value. Results arriving after Stop are dropped.
func (s *Synchronizer) record(r Result) bool {
	if s.stopped {
		return false
	}
	if err := r.Failure(); err != nil {
		s.lastErr = err
		s.lastErrAt = time.Now()
		s.logger.Warn("refresh failed", zap.String("resource", r.Resource()), zap.Error(err))
		return false
	}
	s.lastRefresh = time.Now()
	return true
}

func (s *Synchronizer) scheduleTick() tea.Cmd {
	gen := s.gen
	return tea.Tick(s.cfg.Interval, func(time.Time) tea.Msg {
		return TickMsg{Gen: gen}
	})
}

// refreshCmds returns one command per resource due on a tick.
func (s *Synchronizer) refreshCmds() []tea.Cmd {
	cmds := []tea.Cmd{s.fetchWallet(), s.fetchClaims()}
	if id, ok := s.binding.SessionID(); ok {
		cmds = append(cmds, s.fetchStatus(id))
	}
	return cmds
}

func (s *Synchronizer) readStream() tea.Cmd {
	if s.stopped || s.stream == nil {
		return nil
	}
	return s.stream.ReadLoop(s.ctx)
}

func (s *Synchronizer) fetchWallet() tea.Cmd {
	ctx, source := s.ctx, s.source
	return func() tea.Msg {
		started := time.Now()
		stats, err := source.GetWalletStats(ctx)
		metrics.ObserveRefresh(metrics.ResourceWallet, err, started)
		return WalletStatsMsg{Stats: stats, Err: err}
	}
}

func (s *Synchronizer) fetchClaims() tea.Cmd {
	ctx, source, limit := s.ctx, s.source, s.cfg.ClaimLogLimit
	return func() tea.Msg {
		started := time.Now()
		entries, err := source.GetClaimLogs(ctx, limit)
		metrics.ObserveRefresh(metrics.ResourceClaims, err, started)
		return ClaimLogsMsg{Entries: entries, Err: err}
	}
}

func (s *Synchronizer) fetchStatus(id string) tea.Cmd {
	ctx, source := s.ctx, s.source
	return func() tea.Msg {
		started := time.Now()
		status, err := source.GetSessionStatus(ctx, id)
		metrics.ObserveRefresh(metrics.ResourceSession, err, started)
		return SessionStatusMsg{SessionID: id, Status: status, Err: err}
	}
}

// fetchSites loads the catalog with a bounded retry. The catalog is static,
// so it is fetched once per run.
func (s *Synchronizer) fetchSites() tea.Cmd {
	ctx, source, cfg, logger := s.ctx, s.source, s.cfg, s.logger
	return func() tea.Msg {
		started := time.Now()
		sites, err := retry.DoWithData(
			func() ([]client.FaucetSite, error) {
				return source.GetFaucetSites(ctx)
			},
			retry.Context(ctx),
			retry.Attempts(cfg.CatalogAttempts),
			retry.Delay(cfg.CatalogRetryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				logger.Debug("retrying catalog fetch",
					zap.Uint("attempt", n+1),
					zap.Uint("max_attempts", cfg.CatalogAttempts),
					zap.Error(err))
			}),
		)
		metrics.ObserveRefresh(metrics.ResourceSites, err, started)
		return FaucetSitesMsg{Sites: sites, Err: err}
	}
}
