// Package client provides REST and WebSocket clients for the claiming backend.
// Types mirror the backend wire format without importing any server code.
package client

import (
	"bytes"
	"fmt"
	"time"
)

// naiveLayout is how the backend serialises UTC datetimes without a zone.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Timestamp decodes both RFC 3339 and zone-less backend datetimes. Zone-less
// values are taken as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp: expected string, got %s", data)
	}
	raw := string(data[1 : len(data)-1])
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.Time.UTC().MarshalJSON()
}

// WalletStats is the aggregate snapshot returned by /wallet-stats.
type WalletStats struct {
	TotalBalance      float64 `json:"total_balance"`
	TotalClaimedToday float64 `json:"total_claimed_today"`
	SuccessfulClaims  int     `json:"successful_claims"`
	FailedClaims      int     `json:"failed_claims"`
	ActiveSessions    int     `json:"active_sessions"`
}

// ClaimStatus is the outcome recorded for a single claim.
type ClaimStatus string

const (
	ClaimSuccess       ClaimStatus = "success"
	ClaimFailed        ClaimStatus = "failed"
	ClaimCaptchaFailed ClaimStatus = "captcha_failed"
	ClaimCooldown      ClaimStatus = "cooldown"
	ClaimOther         ClaimStatus = "other"
)

// Kind folds the raw status into one of the four display classes.
func (s ClaimStatus) Kind() ClaimStatus {
	switch s {
	case ClaimSuccess, ClaimFailed, ClaimCaptchaFailed:
		return s
	default:
		return ClaimOther
	}
}

// ClaimLogEntry is one row of /claim-logs, newest first.
type ClaimLogEntry struct {
	ID         string      `json:"id,omitempty"`
	SessionID  string      `json:"session_id,omitempty"`
	FaucetName string      `json:"faucet_name"`
	Status     ClaimStatus `json:"status"`
	Amount     float64     `json:"amount"`
	Timestamp  Timestamp   `json:"timestamp"`
	Error      string      `json:"error,omitempty"`
	TxHash     string      `json:"tx_hash,omitempty"`
}

// FaucetSite is a catalog entry from /faucet-sites. Cooldown is in minutes.
type FaucetSite struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Cooldown int    `json:"cooldown"`
}

// SessionConfig is the body of POST /start-session.
type SessionConfig struct {
	SessionCount        int     `json:"session_count"`
	AutoWithdrawal      bool    `json:"auto_withdrawal"`
	WithdrawalThreshold float64 `json:"withdrawal_threshold"`
	WithdrawalAddress   string  `json:"withdrawal_address"`
	ProxyEnabled        bool    `json:"proxy_enabled"`
	CaptchaSolving      bool    `json:"captcha_solving"`
}

// StartSessionResponse is returned by POST /start-session.
type StartSessionResponse struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status,omitempty"`
	SessionCount int    `json:"session_count,omitempty"`
	Message      string `json:"message,omitempty"`
}

// RunState is the backend's view of a session.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunStopped   RunState = "stopped"
)

// SessionStats are the per-session counters inside SessionStatus.
type SessionStats struct {
	TotalClaims      int     `json:"total_claims"`
	SuccessfulClaims int     `json:"successful_claims"`
	FailedClaims     int     `json:"failed_claims"`
	TotalEarned      float64 `json:"total_earned"`
}

// SessionStatus is returned by /session-status/{id}.
type SessionStatus struct {
	Status    RunState     `json:"status"`
	Stats     SessionStats `json:"stats"`
	StartTime *Timestamp   `json:"start_time,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// HealthResponse is returned by the API root.
type HealthResponse struct {
	Message string `json:"message"`
}

// StreamMessage is the envelope pushed over /ws.
type StreamMessage struct {
	Type string      `json:"type"`
	Data WalletStats `json:"data"`
}

// MsgStatsUpdate is the only stream message type the backend emits.
const MsgStatsUpdate = "stats_update"
