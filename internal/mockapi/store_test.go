package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/claim-panel/tui/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUpdatesCountersAndBalance(t *testing.T) {
	s := NewStore()
	id := s.Start(client.SessionConfig{SessionCount: 1})

	require.True(t, s.Record(client.ClaimLogEntry{SessionID: id, Status: client.ClaimSuccess, Amount: 0.00001}, 0))
	require.True(t, s.Record(client.ClaimLogEntry{SessionID: id, Status: client.ClaimCaptchaFailed}, 0))

	st, ok := s.Status(id)
	require.True(t, ok)
	assert.Equal(t, client.SessionStats{TotalClaims: 2, SuccessfulClaims: 1, FailedClaims: 1, TotalEarned: 0.00001}, st.Stats)

	stats := s.WalletStats()
	assert.InDelta(t, 0.00001, stats.TotalBalance, 1e-12)
	assert.InDelta(t, 0.00001, stats.TotalClaimedToday, 1e-12)
	assert.Equal(t, 1, stats.SuccessfulClaims)
	assert.Equal(t, 1, stats.FailedClaims)
}

func TestRecordIgnoresUnknownAndStoppedSessions(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Record(client.ClaimLogEntry{SessionID: "nope"}, 0))

	id := s.Start(client.SessionConfig{SessionCount: 1})
	require.True(t, s.Stop(id))
	assert.False(t, s.Record(client.ClaimLogEntry{SessionID: id, Status: client.ClaimSuccess}, 0))
	assert.Empty(t, s.Claims(50))
}

func TestSessionCompletesAtLimit(t *testing.T) {
	s := NewStore()
	sites := []client.FaucetSite{{Name: "A", Cooldown: 5}, {Name: "B", Cooldown: 5}}
	id := s.Start(client.SessionConfig{SessionCount: 1})
	g := NewGenerator(s, sites, 1)

	assert.Equal(t, 1, g.Step())
	assert.Equal(t, 1, g.Step())
	st, _ := s.Status(id)
	assert.Equal(t, client.RunCompleted, st.Status)
	assert.Equal(t, 0, g.Step())

	// Stopping an already completed session still succeeds.
	assert.True(t, s.Stop(id))
}

func TestFailMarksRunningSession(t *testing.T) {
	s := NewStore()
	id := s.Start(client.SessionConfig{SessionCount: 1})
	require.True(t, s.Fail(id, "browser crashed"))
	st, _ := s.Status(id)
	assert.Equal(t, client.RunFailed, st.Status)
	assert.Equal(t, "browser crashed", st.Error)
	assert.False(t, s.Fail(id, "again"))
}

func TestClaimsHistoryIsCapped(t *testing.T) {
	s := NewStore()
	id := s.Start(client.SessionConfig{SessionCount: 1})
	for i := 0; i < maxClaims+20; i++ {
		s.Record(client.ClaimLogEntry{SessionID: id, Status: client.ClaimFailed}, 0)
	}
	assert.Len(t, s.Claims(-1), maxClaims)
	assert.Len(t, s.Claims(50), 50)
}

func TestGeneratedClaimsUseCatalog(t *testing.T) {
	s := NewStore()
	s.Start(client.SessionConfig{SessionCount: 3})
	g := NewGenerator(s, nil, 42)
	for i := 0; i < 10; i++ {
		g.Step()
	}

	names := make(map[string]bool)
	for _, site := range Catalog {
		names[site.Name] = true
	}
	for _, c := range s.Claims(-1) {
		assert.True(t, names[c.FaucetName], c.FaucetName)
		assert.NotEmpty(t, c.ID)
		if c.Status == client.ClaimSuccess {
			assert.GreaterOrEqual(t, c.Amount, minClaimAmount)
			assert.LessOrEqual(t, c.Amount, maxClaimAmount)
		} else {
			assert.Zero(t, c.Amount)
		}
	}
}

func TestGeneratorRunStopsOnCancel(t *testing.T) {
	s := NewStore()
	s.Start(client.SessionConfig{SessionCount: 10000})
	g := NewGenerator(s, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(s.Claims(1)) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("generator did not stop")
	}
}
