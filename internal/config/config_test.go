package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[backend]
command = "node"
args = ["server/index.js"]
dir = "/srv/app"
port = 9001
ready_phrase = "serving on port"
ready_timeout_seconds = 15

[proxy]
timeout_seconds = 20
idle_connections = 50

[ws]
path = "/ws"
backend_path = "/stream"

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Backend.Command != "node" {
		t.Errorf("Backend.Command = %q, want %q", cfg.Backend.Command, "node")
	}
	if len(cfg.Backend.Args) != 1 || cfg.Backend.Args[0] != "server/index.js" {
		t.Errorf("Backend.Args = %v, want [server/index.js]", cfg.Backend.Args)
	}
	if cfg.Backend.Port != 9001 {
		t.Errorf("Backend.Port = %d, want %d", cfg.Backend.Port, 9001)
	}
	if cfg.Backend.ReadyTimeoutSecs != 15 {
		t.Errorf("Backend.ReadyTimeoutSecs = %d, want %d", cfg.Backend.ReadyTimeoutSecs, 15)
	}
	if cfg.Proxy.TimeoutSeconds != 20 {
		t.Errorf("Proxy.TimeoutSeconds = %d, want %d", cfg.Proxy.TimeoutSeconds, 20)
	}
	if cfg.WebSocket.BackendPath != "/stream" {
		t.Errorf("WebSocket.BackendPath = %q, want %q", cfg.WebSocket.BackendPath, "/stream")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[backend]
command = "./backend"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Server.Host", cfg.Server.Host, "0.0.0.0"},
		{"Server.Port", cfg.Server.Port, 5000},
		{"Server.BodyMaxBytes", cfg.Server.BodyMaxBytes, int64(10 * 1024 * 1024)},
		{"Backend.Host", cfg.Backend.Host, "127.0.0.1"},
		{"Backend.Port", cfg.Backend.Port, 5001},
		{"Backend.ReadyPhrase", cfg.Backend.ReadyPhrase, "serving on port"},
		{"Backend.ReadyTimeoutSecs", cfg.Backend.ReadyTimeoutSecs, 30},
		{"Backend.ReadyPollMillis", cfg.Backend.ReadyPollMillis, 1000},
		{"Backend.StopGraceSecs", cfg.Backend.StopGraceSecs, 10},
		{"Proxy.TimeoutSeconds", cfg.Proxy.TimeoutSeconds, 30},
		{"Proxy.IdleConnections", cfg.Proxy.IdleConnections, 100},
		{"WebSocket.Path", cfg.WebSocket.Path, "/ws"},
		{"WebSocket.BackendPath", cfg.WebSocket.BackendPath, "/ws"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "json"},
		{"Metrics.Path", cfg.Metrics.Path, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9000

[backend]
command = "./backend"
port = 9001
`)

	cli := &CLI{
		Config:         path,
		Host:           "10.0.0.1",
		Port:           8080,
		BackendPort:    8081,
		BackendCommand: "python3",
		BackendDir:     "/opt/backend",
		LogLevel:       "warn",
	}

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "10.0.0.1")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Backend.Port != 8081 {
		t.Errorf("Backend.Port = %d, want %d", cfg.Backend.Port, 8081)
	}
	if cfg.Backend.Command != "python3" {
		t.Errorf("Backend.Command = %q, want %q", cfg.Backend.Command, "python3")
	}
	if cfg.Backend.Dir != "/opt/backend" {
		t.Errorf("Backend.Dir = %q, want %q", cfg.Backend.Dir, "/opt/backend")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "missing backend command",
			data:    "[server]\nport = 9000\n",
			wantErr: "backend.command is required",
		},
		{
			name: "same ports",
			data: `
[server]
port = 9000

[backend]
command = "./backend"
port = 9000
`,
			wantErr: "must differ",
		},
		{
			name: "bad log level",
			data: `
[backend]
command = "./backend"

[log]
level = "verbose"
`,
			wantErr: "log.level",
		},
		{
			name: "bad ws path",
			data: `
[backend]
command = "./backend"

[ws]
path = "ws"
`,
			wantErr: "ws.path",
		},
		{
			name: "bad env entry",
			data: `
[backend]
command = "./backend"
env = ["NODE_ENV"]
`,
			wantErr: "KEY=VALUE",
		},
		{
			name: "metrics path conflicts with ws path",
			data: `
[backend]
command = "./backend"

[ws]
path = "/ws"

[metrics]
enabled = true
path = "/ws/metrics"
`,
			wantErr: "conflicts with reserved route",
		},
		{
			name: "negative timeout",
			data: `
[backend]
command = "./backend"

[proxy]
timeout_seconds = -1
`,
			wantErr: "proxy.timeout_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.data)
			_, err := Load(cliWithPath(path))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(cliWithPath(filepath.Join(t.TempDir(), "nope.toml")))
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 5000}
	if got := s.Addr(); got != "0.0.0.0:5000" {
		t.Errorf("ServerConfig.Addr() = %q, want %q", got, "0.0.0.0:5000")
	}

	b := BackendConfig{Host: "127.0.0.1", Port: 5001}
	if got := b.Addr(); got != "127.0.0.1:5001" {
		t.Errorf("BackendConfig.Addr() = %q, want %q", got, "127.0.0.1:5001")
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(existing, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml"), existing})
	if got != existing {
		t.Errorf("findConfigInPaths() = %q, want %q", got, existing)
	}

	if got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml")}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}
