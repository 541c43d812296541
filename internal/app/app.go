package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/config"
	"github.com/claim-panel/tui/internal/metrics"
	"github.com/claim-panel/tui/internal/poller"
	"github.com/claim-panel/tui/internal/session"
	"github.com/claim-panel/tui/internal/theme"
	"github.com/claim-panel/tui/internal/views/claims"
	"github.com/claim-panel/tui/internal/views/control"
	"github.com/claim-panel/tui/internal/views/debug"
	"github.com/claim-panel/tui/internal/views/help"
	"github.com/claim-panel/tui/internal/views/sites"
	"github.com/claim-panel/tui/internal/views/status"
	"github.com/claim-panel/tui/internal/views/wallet"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDebug
	OverlayHelp
)

const bigStep = 100

// API is the backend surface the panel needs.
type API interface {
	session.Backend
	poller.Source
}

// Options carries optional collaborators for New.
type Options struct {
	Logger *zap.Logger
	// Stream, when set, is listened to alongside polling.
	Stream *client.StatsStream
	// Limiter throttles manual refreshes. Defaults to the configured rate.
	Limiter ratelimit.Limiter
	// HelpStyle is the glamour style for the help overlay.
	HelpStyle string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	ctrl *session.Controller
	sync *poller.Synchronizer

	keys    KeyMap
	width   int
	height  int
	overlay Overlay

	// Sub-views.
	statusBar status.Model
	wallet    wallet.Model
	control   control.Model
	claims    claims.Model
	sites     sites.Model
	debug     debug.Model
	help      *help.Model
}

// New creates the root model, its session controller and its synchronizer.
func New(api API, cfg *config.Config, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HelpStyle == "" {
		opts.HelpStyle = "dark"
	}
	ctx, cancel := context.WithCancel(context.Background())

	ctrl := session.New(ctx, api, cfg.Session, opts.Logger)
	pollOpts := []poller.Option{poller.WithLogger(opts.Logger)}
	if opts.Limiter != nil {
		pollOpts = append(pollOpts, poller.WithLimiter(opts.Limiter))
	}
	if opts.Stream != nil {
		pollOpts = append(pollOpts, poller.WithStream(opts.Stream))
	}
	syncer := poller.New(ctx, api, ctrl, cfg.Poll, pollOpts...)

	statusBar := status.New()
	statusBar.StreamEnabled = opts.Stream != nil
	helpView := help.NewWithStyle(opts.HelpStyle)

	m := Model{
		ctx:       ctx,
		cancel:    cancel,
		logger:    opts.Logger,
		ctrl:      ctrl,
		sync:      syncer,
		keys:      DefaultKeyMap(),
		statusBar: statusBar,
		wallet:    wallet.New(cfg.Session.WithdrawalThreshold, cfg.Session.AutoWithdrawal),
		control:   control.New(),
		claims:    claims.New(),
		sites:     sites.New(),
		debug:     debug.New(),
		help:      &helpView,
	}
	m.syncViews()
	return m
}

// Init fetches the initial read state and starts the poll cadence.
func (m Model) Init() tea.Cmd {
	return m.sync.Init()
}

// Controller exposes the session controller.
func (m Model) Controller() *session.Controller { return m.ctrl }

// Synchronizer exposes the read-state synchronizer.
func (m Model) Synchronizer() *poller.Synchronizer { return m.sync }

// ActiveOverlay returns the open overlay.
func (m Model) ActiveOverlay() Overlay { return m.overlay }

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case session.StartedMsg:
		m.control.Notice = m.ctrl.HandleStarted(msg)
		metrics.ObserveCommand("start", msg.Err)
		m.logNotice()
		m.syncViews()
		cmd := m.bind()
		return m, cmd

	case session.StoppedMsg:
		m.control.Notice = m.ctrl.HandleStopped(msg)
		metrics.ObserveCommand("stop", msg.Err)
		m.logNotice()
		m.syncViews()
		cmd := m.bind()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.control, cmd = m.control.Update(msg)
		return m, cmd

	case wallet.FrameMsg:
		cmd := m.wallet.Update(msg)
		return m, cmd
	}

	cmd, handled := m.sync.Update(msg)
	if !handled {
		return m, nil
	}
	m.trace(msg)
	if r, ok := msg.(poller.FaucetSitesMsg); ok && r.Err != nil {
		m.sites.SetError(r.Err)
	}
	anim := m.syncViews()
	return m, tea.Batch(cmd, anim)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.sync.Stop()
		m.cancel()
		return m, tea.Quit
	}

	// Overlay key handling.
	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.Debug):
			m.overlay = OverlayNone
		case m.overlay == OverlayHelp && key.Matches(msg, m.keys.Help):
			m.overlay = OverlayNone
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.Filter):
			m.debug.CycleFilter()
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.ScrollUp):
			m.debug.ScrollUp(1)
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.ScrollDown):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m.toggle()

	case key.Matches(msg, m.keys.Inc):
		m.adjust(1)
	case key.Matches(msg, m.keys.Dec):
		m.adjust(-1)
	case key.Matches(msg, m.keys.IncMore):
		m.adjust(bigStep)
	case key.Matches(msg, m.keys.DecMore):
		m.adjust(-bigStep)

	case key.Matches(msg, m.keys.Refresh):
		m.debug.Add(debug.KindPoll, "manual refresh")
		return m, m.sync.Refresh()

	case key.Matches(msg, m.keys.ScrollDown):
		m.claims.ScrollDown(1)
	case key.Matches(msg, m.keys.ScrollUp):
		m.claims.ScrollUp(1)

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
	}
	return m, nil
}

// toggle starts a session when idle and stops the held one when running.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	var (
		cmd tea.Cmd
		err error
		op  string
	)
	if m.ctrl.Running() {
		op = "stop"
		cmd, err = m.ctrl.Stop()
	} else {
		op = "start"
		cmd, err = m.ctrl.Start(m.ctrl.Count())
	}
	if err != nil {
		m.control.Notice = session.Notice{Text: "Cannot " + op + ": " + err.Error(), Error: true}
		m.debug.Addf(debug.KindErr, "%s rejected: %v", op, err)
		return m, nil
	}

	m.debug.Addf(debug.KindCmd, "%s requested (count %d)", op, m.ctrl.Count())
	m.control.Notice = session.Notice{}
	m.syncViews()
	return m, tea.Batch(cmd, m.control.SpinnerTick())
}

func (m *Model) adjust(delta int) {
	if !m.ctrl.AdjustCount(delta) {
		return
	}
	m.control.Count = m.ctrl.Count()
}

// bind points the synchronizer at the controller's current session.
func (m *Model) bind() tea.Cmd {
	b := poller.BindingFor(m.ctrl.SessionID())
	cmd := m.sync.Bind(b)
	if cmd != nil {
		m.debug.Addf(debug.KindPoll, "status polling bound to %s", b)
	}
	return cmd
}

// syncViews copies controller and synchronizer state into the sub-views and
// returns the wallet animation command when the stats changed.
func (m *Model) syncViews() tea.Cmd {
	m.control.Count = m.ctrl.Count()
	m.control.Phase = m.ctrl.Phase()
	m.control.SessionID, _ = m.ctrl.SessionID()
	m.control.Status = m.ctrl.Status()

	m.statusBar.Phase = m.ctrl.Phase().String()
	m.statusBar.LastRefresh = m.sync.LastRefresh()
	m.statusBar.LastError = m.sync.LastError()
	m.statusBar.LastErrorAt = m.sync.LastErrorAt()
	m.statusBar.Streaming = m.sync.StreamConnected()

	m.claims.SetEntries(m.sync.Claims())
	if m.sync.SitesLoaded() {
		m.sites.SetSites(m.sync.Sites())
	}

	if w := m.sync.Wallet(); w != m.wallet.Stats() {
		return m.wallet.SetStats(w)
	}
	return nil
}

// trace records refresh failures and stream events in the event log.
func (m *Model) trace(msg tea.Msg) {
	switch msg := msg.(type) {
	case poller.Result:
		if err := msg.Failure(); err != nil {
			m.debug.Addf(debug.KindErr, "%s refresh failed: %v", msg.Resource(), err)
		}
	case client.StreamConnectedMsg:
		m.debug.Add(debug.KindStream, "stream connected")
	case client.StreamDisconnectedMsg:
		m.debug.Addf(debug.KindStream, "stream disconnected: %v", msg.Err)
	}
}

func (m *Model) logNotice() {
	n := m.control.Notice
	if n.Text == "" {
		return
	}
	if n.Error {
		m.debug.Add(debug.KindErr, n.Text)
		return
	}
	m.debug.Add(debug.KindCmd, n.Text)
}

// layout distributes the terminal size over the panels.
func (m *Model) layout() {
	half := max(m.width/2-1, 30)
	m.wallet.Width = half
	m.control.Width = half
	m.claims.Width = m.width - 2
	m.claims.Height = max(m.height-22, 8)
	m.sites.Width = m.width - 2
	m.statusBar.Width = m.width
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayDebug:
		body = m.debug.View(m.width, m.height-2)
	case OverlayHelp:
		body = m.help.View(m.width)
	default:
		top := lipgloss.JoinHorizontal(lipgloss.Top, m.wallet.View(), m.control.View())
		body = lipgloss.JoinVertical(lipgloss.Left, top, m.claims.View(), m.sites.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.statusBar.View(),
		theme.StyleDimmed.Render(m.footer()),
	)
}

func (m Model) footer() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		parts = append(parts, b.Help().Key+":"+b.Help().Desc)
	}
	return "  " + strings.Join(parts, "  ")
}
