package wallet

import (
	"testing"

	"github.com/claim-panel/tui/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settle drives the animation until it stops asking for frames.
func settle(t *testing.T, m *Model) int {
	t.Helper()
	for i := 0; i < 5000; i++ {
		if m.Update(FrameMsg{}) == nil {
			return i + 1
		}
	}
	t.Fatal("gauge never settled")
	return 0
}

func TestViewLoading(t *testing.T) {
	m := New(0.0000093, true)
	m.Width = 60
	assert.Contains(t, m.View(), "Loading wallet stats")
}

func TestViewShowsStats(t *testing.T) {
	m := New(0.0000093, true)
	m.Width = 60
	m.SetStats(&client.WalletStats{
		TotalBalance:      0.00000465,
		TotalClaimedToday: 0.000001,
		SuccessfulClaims:  12,
		FailedClaims:      4,
		ActiveSessions:    2,
	})

	v := m.View()
	assert.Contains(t, v, "0.00000465 BTC")
	assert.Contains(t, v, "0.00000100 BTC")
	assert.Contains(t, v, "12")
	assert.Contains(t, v, "Auto-withdrawal at 0.00000930 BTC")
}

func TestGaugeAnimatesToTarget(t *testing.T) {
	m := New(0.00001, true)
	cmd := m.SetStats(&client.WalletStats{TotalBalance: 0.000005})
	require.NotNil(t, cmd, "animation starts")
	assert.Nil(t, m.SetStats(&client.WalletStats{TotalBalance: 0.000005}), "no second frame chain")

	frames := settle(t, &m)
	assert.Greater(t, frames, 1)
	assert.InDelta(t, 0.5, m.Fill(), 0.001)
	assert.Contains(t, m.View(), "50%")
}

func TestGaugeClampsAtThreshold(t *testing.T) {
	m := New(0.00001, true)
	m.SetStats(&client.WalletStats{TotalBalance: 1})
	settle(t, &m)
	assert.InDelta(t, 1.0, m.Fill(), 0.001)
}

func TestUnchangedStatsNeedNoAnimation(t *testing.T) {
	m := New(0.00001, true)
	assert.Nil(t, m.SetStats(&client.WalletStats{}))
	assert.Nil(t, m.SetStats(nil))
	assert.Nil(t, m.Update(struct{}{}))
}

func TestAutoWithdrawalOff(t *testing.T) {
	m := New(0.00001, false)
	m.Width = 60
	m.SetStats(&client.WalletStats{})
	assert.Contains(t, m.View(), "Auto-withdrawal off")
}

func TestFillWithoutThreshold(t *testing.T) {
	assert.Equal(t, 0.0, fill(1, 0))
	assert.Equal(t, 0.25, fill(1, 4))
}
