// Package mockapi is an in-process stand-in for the claiming backend. It
// serves the same REST and websocket contract with simulated claim activity
// so the panel can be demonstrated and tested without the real service.
package mockapi

import (
	"sort"
	"sync"
	"time"

	"github.com/claim-panel/tui/internal/client"
	"github.com/google/uuid"
)

const maxClaims = 500

type sessionRecord struct {
	config    client.SessionConfig
	status    client.RunState
	stats     client.SessionStats
	startTime time.Time
	errText   string
}

// Store holds the mock backend's sessions, claim history and balance.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	order    []string
	claims   []client.ClaimLogEntry
	balance  float64
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start registers a running session for cfg and returns its id.
func (s *Store) Start(cfg client.SessionConfig) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sessionRecord{
		config:    cfg,
		status:    client.RunRunning,
		startTime: s.now(),
	}
	s.order = append(s.order, id)
	return id
}

// Status returns a copy of the session's status.
func (s *Store) Status(id string) (client.SessionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return client.SessionStatus{}, false
	}
	start := client.Timestamp{Time: rec.startTime}
	return client.SessionStatus{
		Status:    rec.status,
		Stats:     rec.stats,
		StartTime: &start,
		Error:     rec.errText,
	}, true
}

// Stop marks a session stopped. Stopping a finished session succeeds and
// leaves it stopped.
func (s *Store) Stop(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return false
	}
	rec.status = client.RunStopped
	return true
}

// Fail marks a running session failed with reason.
func (s *Store) Fail(id, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok || rec.status != client.RunRunning {
		return false
	}
	rec.status = client.RunFailed
	rec.errText = reason
	return true
}

// SessionIDs returns every known session id in creation order.
func (s *Store) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

// running returns the ids and configs of sessions still running.
func (s *Store) running() map[string]client.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]client.SessionConfig)
	for id, rec := range s.sessions {
		if rec.status == client.RunRunning {
			out[id] = rec.config
		}
	}
	return out
}

// Record appends a claim to the history and updates the owning session's
// counters and the balance. Claims for sessions that are no longer running
// are dropped. The session completes once it has made limit claims.
func (s *Store) Record(entry client.ClaimLogEntry, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[entry.SessionID]
	if !ok || rec.status != client.RunRunning {
		return false
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = client.Timestamp{Time: s.now()}
	}

	rec.stats.TotalClaims++
	if entry.Status == client.ClaimSuccess {
		rec.stats.SuccessfulClaims++
		rec.stats.TotalEarned += entry.Amount
		s.balance += entry.Amount
	} else {
		rec.stats.FailedClaims++
	}
	if limit > 0 && rec.stats.TotalClaims >= limit {
		rec.status = client.RunCompleted
	}

	s.claims = append([]client.ClaimLogEntry{entry}, s.claims...)
	if len(s.claims) > maxClaims {
		s.claims = s.claims[:maxClaims]
	}
	return true
}

// Claims returns up to limit claims, newest first.
func (s *Store) Claims(limit int) []client.ClaimLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.claims)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]client.ClaimLogEntry, n)
	copy(out, s.claims[:n])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}

// WalletStats aggregates today's claims and the running session count.
func (s *Store) WalletStats() client.WalletStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := client.WalletStats{TotalBalance: s.balance}
	for _, c := range s.claims {
		if c.Timestamp.Before(dayStart) {
			continue
		}
		if c.Status == client.ClaimSuccess {
			stats.SuccessfulClaims++
			stats.TotalClaimedToday += c.Amount
		} else {
			stats.FailedClaims++
		}
	}
	for _, rec := range s.sessions {
		if rec.status == client.RunRunning {
			stats.ActiveSessions++
		}
	}
	return stats
}
