package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("BLITZ_SERVER", "http://arena.test:9000")
	t.Setenv("BLITZ_USER", "alice")
	t.Setenv("BLITZ_IDENTITY_FILE", "/tmp/blitz-identity")

	c := DefaultConfig()

	assert.Equal(t, "http://arena.test:9000", c.ServerURL)
	assert.Equal(t, "alice", c.UserID)
	assert.Equal(t, "/tmp/blitz-identity", c.IdentityFile)
	assert.Equal(t, "text", c.Output)
}

func TestIdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity")
	c := &Config{IdentityFile: path}

	require.NoError(t, c.SaveIdentity("guest_1_abc"))

	loaded := &Config{IdentityFile: path}
	require.NoError(t, loaded.LoadIdentity())
	assert.Equal(t, "guest_1_abc", loaded.UserID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadIdentityKeepsExplicitUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity")
	require.NoError(t, os.WriteFile(path, []byte("saved"), 0600))

	c := &Config{IdentityFile: path, UserID: "explicit"}
	require.NoError(t, c.LoadIdentity())
	assert.Equal(t, "explicit", c.UserID)
}

func TestLoadIdentityMissingFile(t *testing.T) {
	c := &Config{IdentityFile: filepath.Join(t.TempDir(), "missing")}
	require.NoError(t, c.LoadIdentity())
	assert.Empty(t, c.UserID)
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/v1/ws"},
		{"https://arena.example.com/", "wss://arena.example.com/api/v1/ws"},
		{"ws://already:1", "ws://already:1/api/v1/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			c := &Config{ServerURL: tt.server}
			assert.Equal(t, tt.want, c.WebSocketURL())
		})
	}
}
