// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/tradebridge/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config         string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host           string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port           int    `kong:"short='p',help='External listen port (overrides config).',env='PORT'"`
	BackendPort    int    `kong:"help='Internal backend port (overrides config).',env='BACKEND_PORT'"`
	BackendCommand string `kong:"help='Backend launch command (overrides config).',env='BACKEND_COMMAND'"`
	BackendDir     string `kong:"help='Backend working directory (overrides config).',env='BACKEND_DIR'"`
	LogLevel       string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Backend   BackendConfig   `toml:"backend"`
	Proxy     ProxyConfig     `toml:"proxy"`
	WebSocket WebSocketConfig `toml:"ws"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds settings for the externally facing HTTP server.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"` // 0 means "use default" (5000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64  `toml:"body_max_bytes"`
}

// BackendConfig describes the supervised backend process and how to reach it.
type BackendConfig struct {
	Command          string   `toml:"command"`
	Args             []string `toml:"args"`
	Dir              string   `toml:"dir"`
	Host             string   `toml:"host"`
	Port             int      `toml:"port"` // internal-only port, never exposed externally
	Env              []string `toml:"env"`  // extra KEY=VALUE pairs; PORT is always injected
	ReadyPhrase      string   `toml:"ready_phrase"`
	ReadyTimeoutSecs int      `toml:"ready_timeout_seconds"`
	ReadyPollMillis  int      `toml:"ready_poll_ms"`
	StopGraceSecs    int      `toml:"stop_grace_seconds"`
}

// ProxyConfig holds outbound forwarding settings.
type ProxyConfig struct {
	TimeoutSeconds  int `toml:"timeout_seconds"`
	IdleConnections int `toml:"idle_connections"`
}

// WebSocketConfig holds the upgrade bridge settings.
type WebSocketConfig struct {
	Path                 string `toml:"path"`
	BackendPath          string `toml:"backend_path"`
	HandshakeTimeoutSecs int    `toml:"handshake_timeout_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/tradebridge/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.BackendPort != 0 {
		c.Backend.Port = cli.BackendPort
	}
	if cli.BackendCommand != "" {
		c.Backend.Command = cli.BackendCommand
	}
	if cli.BackendDir != "" {
		c.Backend.Dir = cli.BackendDir
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Backend.Command == "" {
		return fmt.Errorf("backend.command is required")
	}

	// Port bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0-65535; got %d", c.Server.Port)
	}
	if c.Backend.Port < 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port must be 0-65535; got %d", c.Backend.Port)
	}
	if c.Server.Port != 0 && c.Server.Port == c.Backend.Port {
		return fmt.Errorf("server.port and backend.port must differ; both are %d", c.Server.Port)
	}

	// Numeric bounds.
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Proxy.TimeoutSeconds < 0 {
		return fmt.Errorf("proxy.timeout_seconds must be non-negative; got %d", c.Proxy.TimeoutSeconds)
	}
	if c.Proxy.IdleConnections < 0 {
		return fmt.Errorf("proxy.idle_connections must be non-negative; got %d", c.Proxy.IdleConnections)
	}
	if c.Backend.ReadyTimeoutSecs < 0 {
		return fmt.Errorf("backend.ready_timeout_seconds must be non-negative; got %d", c.Backend.ReadyTimeoutSecs)
	}
	if c.Backend.ReadyPollMillis < 0 {
		return fmt.Errorf("backend.ready_poll_ms must be non-negative; got %d", c.Backend.ReadyPollMillis)
	}
	if c.Backend.StopGraceSecs < 0 {
		return fmt.Errorf("backend.stop_grace_seconds must be non-negative; got %d", c.Backend.StopGraceSecs)
	}

	for _, kv := range c.Backend.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("backend.env entries must be KEY=VALUE; got %q", kv)
		}
	}

	// Routed paths must be rooted.
	if c.WebSocket.Path != "" && c.WebSocket.Path[0] != '/' {
		return fmt.Errorf("ws.path must start with '/'; got %q", c.WebSocket.Path)
	}
	if c.WebSocket.BackendPath != "" && c.WebSocket.BackendPath[0] != '/' {
		return fmt.Errorf("ws.backend_path must start with '/'; got %q", c.WebSocket.BackendPath)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		reserved := []string{"/proxy/status"}
		if c.WebSocket.Path != "" {
			reserved = append(reserved, c.WebSocket.Path)
		}
		for _, r := range reserved {
			if p == r || strings.HasPrefix(p, r+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, r)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields, zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key. Setting port=0 in the config file
// therefore results in the default port (5000).
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Backend.Host == "" {
		c.Backend.Host = "127.0.0.1"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 5001
	}
	if c.Backend.ReadyPhrase == "" {
		c.Backend.ReadyPhrase = "serving on port"
	}
	if c.Backend.ReadyTimeoutSecs == 0 {
		c.Backend.ReadyTimeoutSecs = 30
	}
	if c.Backend.ReadyPollMillis == 0 {
		c.Backend.ReadyPollMillis = 1000
	}
	if c.Backend.StopGraceSecs == 0 {
		c.Backend.StopGraceSecs = 10
	}
	if c.Proxy.TimeoutSeconds == 0 {
		c.Proxy.TimeoutSeconds = 30
	}
	if c.Proxy.IdleConnections == 0 {
		c.Proxy.IdleConnections = 100
	}
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = "/ws"
	}
	if c.WebSocket.BackendPath == "" {
		c.WebSocket.BackendPath = "/ws"
	}
	if c.WebSocket.HandshakeTimeoutSecs == 0 {
		c.WebSocket.HandshakeTimeoutSecs = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the external server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the internal backend address as host:port.
func (c *BackendConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
