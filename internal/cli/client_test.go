package cli

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/leaderboard", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"game_type":"all","entries":[{"rank":1,"user_id":"alice","points":4}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL + "/")
	var board Leaderboard
	require.NoError(t, c.Get(Query("/api/v1/leaderboard", map[string]string{"limit": "5"}), &board))

	require.Len(t, board.Entries, 1)
	assert.Equal(t, "alice", board.Entries[0].UserID)
	assert.Equal(t, 4, board.Entries[0].Points)
}

func TestClientReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"UNKNOWN_GAME_TYPE","message":"unknown game type"}}`))
	}))
	defer server.Close()

	err := NewClient(server.URL).Get("/api/v1/leaderboard/chess", nil)

	require.Error(t, err)
	assert.Equal(t, "unknown game type (UNKNOWN_GAME_TYPE)", err.Error())
}

func TestClientReturnsRawBodyForNonAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL).Get("/api/v1/health", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestClientPostSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user_id":"guest_1_abc","display_name":"Alice","is_guest":true}`))
	}))
	defer server.Close()

	var guest Guest
	require.NoError(t, NewClient(server.URL).Post("/api/v1/players/guest", map[string]string{"display_name": "Alice"}, &guest))
	assert.Equal(t, "guest_1_abc", guest.UserID)
	assert.True(t, guest.IsGuest)
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "/x", Query("/x", nil))
	assert.Equal(t, "/x", Query("/x", map[string]string{"limit": ""}))
	assert.Equal(t, "/x?limit=3", Query("/x", map[string]string{"limit": "3"}))
}

func TestCheckHealthRetriesUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	result, err := checkHealth(NewClient(server.URL), 2*time.Second, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCheckHealthGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := checkHealth(NewClient(server.URL), 20*time.Millisecond, 5*time.Millisecond)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server not healthy after 20ms")
}
