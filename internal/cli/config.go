package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL    string
	UserID       string
	IdentityFile string
	Output       string
	Verbose      bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("BLITZ_SERVER", "http://localhost:8080"),
		UserID:       os.Getenv("BLITZ_USER"),
		IdentityFile: getEnvOrDefault("BLITZ_IDENTITY_FILE", defaultIdentityFile()),
		Output:       "text",
		Verbose:      false,
	}
}

// LoadIdentity loads the saved user id if one was not already given
func (c *Config) LoadIdentity() error {
	if c.UserID != "" {
		return nil
	}

	data, err := os.ReadFile(c.IdentityFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No saved identity is fine
		}
		return err
	}

	c.UserID = strings.TrimSpace(string(data))
	return nil
}

// SaveIdentity saves the user id to the identity file
func (c *Config) SaveIdentity(userID string) error {
	c.UserID = userID

	dir := filepath.Dir(c.IdentityFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.IdentityFile, []byte(userID), 0600)
}

// WebSocketURL returns the game connection endpoint for the configured server
func (c *Config) WebSocketURL() string {
	base := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/v1/ws"
}

func defaultIdentityFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blitz/identity"
	}
	return filepath.Join(home, ".blitz", "identity")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
