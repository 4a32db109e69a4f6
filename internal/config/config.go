package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds connection parameters shared by the pulse-sync binaries.
type Config struct {
	// GatewayURL is the websocket URL of the panel gateway (ws:// or wss://).
	GatewayURL string `yaml:"gateway_url"`
	// AuthToken authenticates the client against the gateway.
	AuthToken string `yaml:"auth_token"`
	// EntityStateFile is the path to the JSON file storing last known entity states.
	EntityStateFile string `yaml:"entity_state_file"`
	// Timeout is the duration for dialing and individual command calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for connection settings.
	DefaultConfigFilename = "pulse-sync-settings.yaml"

	// DefaultEntityStateFilename is the default filename for entity states JSON.
	DefaultEntityStateFilename = "pulse-sync-entities.json"

	// DefaultTimeout is the default duration for dialing and command calls.
	DefaultTimeout = 10 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errGatewayURLRequired is returned when the gateway URL is missing.
	errGatewayURLRequired = errors.New("gateway URL must be provided")
	// errGatewayURLScheme is returned when the gateway URL is not a websocket URL.
	errGatewayURLScheme = errors.New("gateway URL must use the ws or wss scheme")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file carries the auth token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg.GatewayURL == "" {
		return errGatewayURLRequired
	}

	parsed, err := url.Parse(cfg.GatewayURL)
	if err != nil {
		return fmt.Errorf("invalid gateway URL: %w", err)
	}

	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return errGatewayURLScheme
	}

	// Set default timeout if not specified.
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	// Set default entity state file if not specified.
	if cfg.EntityStateFile == "" {
		cfg.EntityStateFile = DefaultEntityStateFilename
	}

	return nil
}
