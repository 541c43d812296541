package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
)

type fakeSource struct {
	mu sync.Mutex

	wallet    *client.WalletStats
	walletErr error
	logs      []client.ClaimLogEntry
	logsErr   error
	sites     []client.FaucetSite
	// sitesFailures is the number of catalog calls that fail before one
	// succeeds. A negative value fails forever.
	sitesFailures int
	status        *client.SessionStatus

	walletCalls int
	logsCalls   int
	sitesCalls  int
	statusCalls []string
	lastLimit   int
	lastCtx     context.Context
}

func (f *fakeSource) GetWalletStats(ctx context.Context) (*client.WalletStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walletCalls++
	f.lastCtx = ctx
	if f.walletErr != nil {
		return nil, f.walletErr
	}
	w := *f.wallet
	return &w, nil
}

func (f *fakeSource) GetClaimLogs(_ context.Context, limit int) ([]client.ClaimLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logsCalls++
	f.lastLimit = limit
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return append([]client.ClaimLogEntry(nil), f.logs...), nil
}

func (f *fakeSource) GetFaucetSites(context.Context) ([]client.FaucetSite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sitesCalls++
	if f.sitesFailures < 0 || f.sitesCalls <= f.sitesFailures {
		return nil, errors.New("catalog unavailable")
	}
	return f.sites, nil
}

func (f *fakeSource) GetSessionStatus(_ context.Context, id string) (*client.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, id)
	return f.status, nil
}

type fakeSink struct {
	held    string
	applied []string
}

func (f *fakeSink) ApplyStatus(id string, _ *client.SessionStatus) bool {
	if id != f.held {
		return false
	}
	f.applied = append(f.applied, id)
	return true
}

func newSource() *fakeSource {
	return &fakeSource{
		wallet: &client.WalletStats{TotalBalance: 0.001, SuccessfulClaims: 3},
		logs: []client.ClaimLogEntry{
			{FaucetName: "Cointiply", Status: client.ClaimSuccess, Amount: 0.00000120},
			{FaucetName: "FireFaucet", Status: client.ClaimFailed},
		},
		sites:  []client.FaucetSite{{Name: "Cointiply", Cooldown: 60}},
		status: &client.SessionStatus{Status: client.RunRunning},
	}
}

func testConfig() config.PollConfig {
	return config.PollConfig{
		Interval:          5 * time.Millisecond,
		ClaimLogLimit:     50,
		CatalogAttempts:   3,
		CatalogRetryDelay: time.Millisecond,
		RefreshPerSecond:  1,
	}
}

func newSync(src *fakeSource, sink *fakeSink) *Synchronizer {
	return New(context.Background(), src, sink, testConfig(), WithLimiter(ratelimit.NewUnlimited()))
}

// run executes cmd and every command batched inside it and returns the
// messages they produce. Tick commands block for the configured interval.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// deliver feeds msgs back into s and returns any tick messages among them.
func deliver(t *testing.T, s *Synchronizer, msgs []tea.Msg) []TickMsg {
	t.Helper()
	var ticks []TickMsg
	for _, msg := range msgs {
		if tick, ok := msg.(TickMsg); ok {
			ticks = append(ticks, tick)
			continue
		}
		_, handled := s.Update(msg)
		require.True(t, handled, "unhandled %T", msg)
	}
	return ticks
}

func countOf[T any](msgs []tea.Msg) int {
	n := 0
	for _, m := range msgs {
		if _, ok := m.(T); ok {
			n++
		}
	}
	return n
}

func TestInitFetchesOnMount(t *testing.T) {
	src := newSource()
	s := newSync(src, &fakeSink{})

	msgs := run(s.Init())
	assert.Equal(t, 1, countOf[WalletStatsMsg](msgs))
	assert.Equal(t, 1, countOf[ClaimLogsMsg](msgs))
	assert.Equal(t, 1, countOf[FaucetSitesMsg](msgs))
	assert.Equal(t, 0, countOf[SessionStatusMsg](msgs))

	ticks := deliver(t, s, msgs)
	require.Equal(t, []TickMsg{{Gen: 0}}, ticks)

	require.NotNil(t, s.Wallet())
	assert.Equal(t, 0.001, s.Wallet().TotalBalance)
	assert.Len(t, s.Claims(), 2)
	assert.True(t, s.SitesLoaded())
	assert.Equal(t, src.sites, s.Sites())
	assert.False(t, s.LastRefresh().IsZero())
	assert.NoError(t, s.LastError())
}

func TestTickRefreshesWalletAndLogs(t *testing.T) {
	src := newSource()
	s := newSync(src, &fakeSink{})

	for i := 0; i < 3; i++ {
		cmd, handled := s.Update(TickMsg{Gen: 0})
		require.True(t, handled)
		msgs := run(cmd)
		assert.Equal(t, 1, countOf[WalletStatsMsg](msgs))
		assert.Equal(t, 1, countOf[ClaimLogsMsg](msgs))
		assert.Equal(t, 0, countOf[SessionStatusMsg](msgs))
		assert.Equal(t, 0, countOf[FaucetSitesMsg](msgs))
		assert.Equal(t, []TickMsg{{Gen: 0}}, deliver(t, s, msgs))
	}

	assert.Equal(t, 3, src.walletCalls)
	assert.Equal(t, 3, src.logsCalls)
	assert.Equal(t, 0, src.sitesCalls)
	assert.Equal(t, 50, src.lastLimit)
	assert.Empty(t, src.statusCalls)
}

func TestStatusPolledWhileBound(t *testing.T) {
	src := newSource()
	sink := &fakeSink{held: "abc"}
	s := newSync(src, sink)

	msgs := run(s.Bind(ActiveSession("abc")))
	require.Equal(t, []tea.Msg{TickMsg{Gen: 1}}, msgs)

	cmd, _ := s.Update(TickMsg{Gen: 1})
	msgs = run(cmd)
	require.Equal(t, 1, countOf[SessionStatusMsg](msgs))
	deliver(t, s, msgs)

	assert.Equal(t, []string{"abc"}, src.statusCalls)
	assert.Equal(t, []string{"abc"}, sink.applied)
}

func TestRebindingSameIdentityIsNoop(t *testing.T) {
	s := newSync(newSource(), &fakeSink{})
	assert.Nil(t, s.Bind(NoActiveSession))

	require.NotNil(t, s.Bind(ActiveSession("abc")))
	assert.Nil(t, s.Bind(ActiveSession("abc")))
	assert.Nil(t, s.Bind(BindingFor("abc", true)))
	assert.Equal(t, ActiveSession("abc"), s.Binding())
}

func TestStaleTickDropped(t *testing.T) {
	src := newSource()
	s := newSync(src, &fakeSink{})

	s.Bind(ActiveSession("abc"))
	cmd, handled := s.Update(TickMsg{Gen: 0})
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, src.walletCalls)
}

func TestUnbindStopsStatusPolling(t *testing.T) {
	src := newSource()
	sink := &fakeSink{held: "abc"}
	s := newSync(src, sink)

	s.Bind(ActiveSession("abc"))
	cmd, _ := s.Update(TickMsg{Gen: 1})
	deliver(t, s, run(cmd))
	require.Len(t, src.statusCalls, 1)

	// Stop succeeds: the controller drops the id and the poller is unbound.
	sink.held = ""
	msgs := run(s.Bind(NoActiveSession))
	require.Equal(t, []tea.Msg{TickMsg{Gen: 2}}, msgs)

	for i := 0; i < 3; i++ {
		cmd, _ = s.Update(TickMsg{Gen: 2})
		msgs = run(cmd)
		assert.Equal(t, 0, countOf[SessionStatusMsg](msgs))
		deliver(t, s, msgs)
	}
	assert.Len(t, src.statusCalls, 1)

	// The old chain's tick no longer fires anything.
	cmd, _ = s.Update(TickMsg{Gen: 1})
	assert.Nil(t, cmd)
}

func TestLateStatusForDroppedSessionDiscarded(t *testing.T) {
	sink := &fakeSink{held: ""}
	s := newSync(newSource(), sink)

	_, handled := s.Update(SessionStatusMsg{SessionID: "abc", Status: &client.SessionStatus{Status: client.RunRunning}})
	assert.True(t, handled)
	assert.Empty(t, sink.applied)
}

func TestFailedWalletRefreshKeepsPreviousValue(t *testing.T) {
	src := newSource()
	s := newSync(src, &fakeSink{})
	deliver(t, s, run(s.Init()))
	before := s.Wallet()

	src.walletErr = errors.New("connection refused")
	src.logs = append(src.logs, client.ClaimLogEntry{FaucetName: "BitFun", Status: client.ClaimSuccess})

	cmd, _ := s.Update(TickMsg{Gen: 0})
	deliver(t, s, run(cmd))

	assert.Same(t, before, s.Wallet())
	assert.Len(t, s.Claims(), 3, "claim logs refresh independently")
	assert.EqualError(t, s.LastError(), "connection refused")
	assert.False(t, s.LastErrorAt().IsZero())
}

func TestFailedClaimLogsRefreshKeepsList(t *testing.T) {
	src := newSource()
	s := newSync(src, &fakeSink{})
	deliver(t, s, run(s.Init()))
	require.Len(t, s.Claims(), 2)

	src.logsErr = &client.APIError{Op: "GET /claim-logs", StatusCode: 500}
	src.wallet = &client.WalletStats{TotalBalance: 0.002}

	cmd, _ := s.Update(TickMsg{Gen: 0})
	deliver(t, s, run(cmd))

	assert.Len(t, s.Claims(), 2)
	assert.Equal(t, "Cointiply", s.Claims()[0].FaucetName)
	assert.Equal(t, 0.002, s.Wallet().TotalBalance)

	var apiErr *client.APIError
	require.ErrorAs(t, s.LastError(), &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestCatalogRetriedUntilSuccess(t *testing.T) {
	src := newSource()
	src.sitesFailures = 2
	s := newSync(src, &fakeSink{})

	msgs := run(s.fetchSites())
	require.Len(t, msgs, 1)
	deliver(t, s, msgs)

	assert.Equal(t, 3, src.sitesCalls)
	assert.True(t, s.SitesLoaded())
	assert.Len(t, s.Sites(), 1)
}

func TestCatalogGivesUpAfterAttempts(t *testing.T) {
	src := newSource()
	src.sitesFailures = -1
	s := newSync(src, &fakeSink{})

	msgs := run(s.fetchSites())
	require.Len(t, msgs, 1)
	result := msgs[0].(FaucetSitesMsg)
	require.Error(t, result.Err)
	deliver(t, s, msgs)

	assert.Equal(t, 3, src.sitesCalls)
	assert.False(t, s.SitesLoaded())
	assert.Nil(t, s.Sites())
	assert.Error(t, s.LastError())
}

func TestManualRefreshRecoversCatalog(t *testing.T) {
	src := newSource()
	src.sitesFailures = 3
	s := newSync(src, &fakeSink{})

	deliver(t, s, run(s.fetchSites()))
	require.False(t, s.SitesLoaded())

	next, handled := s.Update(RefreshMsg{})
	require.True(t, handled)
	msgs := run(next)
	require.Equal(t, 1, countOf[FaucetSitesMsg](msgs))
	deliver(t, s, msgs)

	assert.Equal(t, 4, src.sitesCalls)
	assert.True(t, s.SitesLoaded())
	assert.Len(t, s.Sites(), 1)

	// A loaded catalog is not fetched again.
	next, _ = s.Update(RefreshMsg{})
	assert.Equal(t, 0, countOf[FaucetSitesMsg](run(next)))
	assert.Equal(t, 4, src.sitesCalls)
}

func TestManualRefresh(t *testing.T) {
	src := newSource()
	sink := &fakeSink{held: "abc"}
	s := newSync(src, sink)
	s.Bind(ActiveSession("abc"))

	cmd := s.Refresh()
	require.NotNil(t, cmd)
	assert.Nil(t, s.Refresh(), "coalesced while pending")

	msgs := run(cmd)
	require.Equal(t, []tea.Msg{RefreshMsg{}}, msgs)

	next, handled := s.Update(RefreshMsg{})
	require.True(t, handled)
	msgs = run(next)
	assert.Equal(t, 1, countOf[WalletStatsMsg](msgs))
	assert.Equal(t, 1, countOf[ClaimLogsMsg](msgs))
	assert.Equal(t, 1, countOf[SessionStatusMsg](msgs))
	assert.Equal(t, 0, countOf[TickMsg](msgs), "cadence unaffected")

	assert.NotNil(t, s.Refresh())
}

func TestStopEndsPolling(t *testing.T) {
	src := newSource()
	s := newSync(src, &fakeSink{})
	deliver(t, s, run(s.Init()))
	before := s.Wallet()

	s.Stop()
	s.Stop()
	assert.True(t, s.Stopped())

	cmd, handled := s.Update(TickMsg{Gen: 0})
	assert.True(t, handled)
	assert.Nil(t, cmd)
	cmd, _ = s.Update(TickMsg{Gen: 1})
	assert.Nil(t, cmd)

	assert.Nil(t, s.Bind(ActiveSession("abc")))
	assert.Nil(t, s.Refresh())

	s.Update(WalletStatsMsg{Stats: &client.WalletStats{TotalBalance: 9}})
	assert.Same(t, before, s.Wallet())

	require.NotNil(t, src.lastCtx)
	assert.ErrorIs(t, src.lastCtx.Err(), context.Canceled)
}

func TestStreamStatsApplied(t *testing.T) {
	s := newSync(newSource(), &fakeSink{})

	cmd, handled := s.Update(client.StreamStatsMsg{Stats: client.WalletStats{TotalBalance: 0.5, ActiveSessions: 4}})
	assert.True(t, handled)
	assert.Nil(t, cmd)
	require.NotNil(t, s.Wallet())
	assert.Equal(t, 4, s.Wallet().ActiveSessions)

	s.Update(client.StreamConnectedMsg{})
	assert.True(t, s.StreamConnected())
	s.Update(client.StreamDisconnectedMsg{Err: errors.New("eof")})
	assert.False(t, s.StreamConnected())
}

func TestForeignMessageNotHandled(t *testing.T) {
	s := newSync(newSource(), &fakeSink{})
	cmd, handled := s.Update(tea.KeyMsg{})
	assert.False(t, handled)
	assert.Nil(t, cmd)
}

func TestNewNormalisesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ClaimLogLimit = 500
	cfg.CatalogAttempts = 0
	s := New(context.Background(), newSource(), nil, cfg)
	assert.Equal(t, 50, s.cfg.ClaimLogLimit)
	assert.Equal(t, uint(1), s.cfg.CatalogAttempts)
	assert.Equal(t, 5*time.Millisecond, s.Interval())
}

func TestBindingFor(t *testing.T) {
	assert.Equal(t, NoActiveSession, BindingFor("", true))
	assert.Equal(t, NoActiveSession, BindingFor("abc", false))
	id, ok := BindingFor("abc", true).SessionID()
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "none", NoActiveSession.String())
}
