package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, scheme validation and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing gateway URL.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Wrong scheme.
	cfg = &Config{
		GatewayURL: "https://gateway.local/ws",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults applied.
	cfg = &Config{
		GatewayURL: "ws://127.0.0.1:8750/ws",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultEntityStateFilename, cfg.EntityStateFile)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		GatewayURL: "wss://gateway.local/ws",
		AuthToken:  "secret",
		Timeout:    3 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.GatewayURL, loaded.GatewayURL)
	require.Equal(t, cfg.AuthToken, loaded.AuthToken)
	require.Equal(t, cfg.Timeout, loaded.Timeout)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
