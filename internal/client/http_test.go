package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/api/", "tok", 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestGetWalletStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/wallet-stats", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"total_balance":0.0012,"total_claimed_today":0.0001,"successful_claims":7,"failed_claims":3,"active_sessions":1}`)
	})

	stats, err := c.GetWalletStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WalletStats{
		TotalBalance:      0.0012,
		TotalClaimedToday: 0.0001,
		SuccessfulClaims:  7,
		FailedClaims:      3,
		ActiveSessions:    1,
	}, *stats)
}

func TestGetClaimLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/claim-logs", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `[
			{"_id":"x1","session_id":"abc","faucet_name":"Cointiply","status":"success","amount":0.00000123,"timestamp":"2025-03-01T10:00:05.123456"},
			{"faucet_name":"FireFaucet","status":"captcha_failed","amount":0,"timestamp":"2025-03-01T09:59:00Z","error":"captcha"}
		]`)
	})

	logs, err := c.GetClaimLogs(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, "Cointiply", logs[0].FaucetName)
	assert.Equal(t, ClaimSuccess, logs[0].Status)
	assert.Equal(t, "abc", logs[0].SessionID)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 5, 123456000, time.UTC), logs[0].Timestamp.Time)

	assert.Equal(t, ClaimCaptchaFailed, logs[1].Status)
	assert.Equal(t, "captcha", logs[1].Error)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 59, 0, 0, time.UTC), logs[1].Timestamp.UTC())
}

func TestGetClaimLogsEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	logs, err := c.GetClaimLogs(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

func TestGetFaucetSites(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/faucet-sites", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"name":"Cointiply","url":"https://cointiply.com/faucet","claim_selector":"#claim-btn","cooldown":60},{"name":"BitFun","cooldown":3}]`)
	})
	sites, err := c.GetFaucetSites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []FaucetSite{
		{Name: "Cointiply", URL: "https://cointiply.com/faucet", Cooldown: 60},
		{Name: "BitFun", Cooldown: 3},
	}, sites)
}

func TestGetSessionStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session-status/abc", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"status":"running","stats":{"total_claims":12,"successful_claims":9,"failed_claims":3,"total_earned":0.00004},"start_time":"2025-03-01T10:00:00"}`)
	})
	st, err := c.GetSessionStatus(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, st.Status)
	assert.Equal(t, 12, st.Stats.TotalClaims)
	assert.Equal(t, 9, st.Stats.SuccessfulClaims)
	assert.InDelta(t, 0.00004, st.Stats.TotalEarned, 1e-12)
	require.NotNil(t, st.StartTime)
	assert.Equal(t, 2025, st.StartTime.Year())
}

func TestStartSessionSendsConfig(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/start-session", r.URL.Path)

		var cfg SessionConfig
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cfg))
		assert.Equal(t, 10, cfg.SessionCount)
		assert.True(t, cfg.CaptchaSolving)

		writeJSON(w, http.StatusOK, `{"session_id":"abc","status":"started","session_count":10,"message":"Started 10 claiming sessions"}`)
	})

	resp, err := c.StartSession(context.Background(), SessionConfig{SessionCount: 10, CaptchaSolving: true})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, 10, resp.SessionCount)
}

func TestStartSessionSurfacesDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"string detail", http.StatusBadRequest, `{"detail":"Session already running"}`, "Session already running"},
		{"validation detail", http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","session_count"],"msg":"ensure this value is less than or equal to 10000","type":"value_error"}]}`,
			"session_count: ensure this value is less than or equal to 10000"},
		{"no detail", http.StatusInternalServerError, `{}`, ""},
		{"non-json body", http.StatusBadGateway, `bad gateway`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.body == "bad gateway" {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(tt.body))
					return
				}
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.StartSession(context.Background(), SessionConfig{SessionCount: 1})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
		})
	}
}

func TestStartSessionMissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"started"}`)
	})
	resp, err := c.StartSession(context.Background(), SessionConfig{SessionCount: 1})
	require.NoError(t, err)
	assert.Empty(t, resp.SessionID)
	assert.Equal(t, "started", resp.Status)
}

func TestStopSession(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/stop-session/abc", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"message":"Session abc stopped"}`)
	})
	require.NoError(t, c.StopSession(context.Background(), "abc"))
	assert.True(t, called)
}

func TestStopSessionNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Session not found"}`)
	})
	err := c.StopSession(context.Background(), "gone")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "Session not found")
}

func TestRequestHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetWalletStats(ctx)
	require.Error(t, err)
}

func TestClaimStatusKind(t *testing.T) {
	assert.Equal(t, ClaimSuccess, ClaimSuccess.Kind())
	assert.Equal(t, ClaimFailed, ClaimFailed.Kind())
	assert.Equal(t, ClaimCaptchaFailed, ClaimCaptchaFailed.Kind())
	assert.Equal(t, ClaimOther, ClaimCooldown.Kind())
	assert.Equal(t, ClaimOther, ClaimStatus("proxy_error").Kind())
}

func TestTimestampRejectsNonString(t *testing.T) {
	var ts Timestamp
	require.Error(t, json.Unmarshal([]byte(`12345`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
}
