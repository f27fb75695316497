// Package config provides configuration management for the dark CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	State        StateConfig      `koanf:"state"`
	Server       ServerConfig     `koanf:"server"`
	Log          LogConfig        `koanf:"log"`
	Verbose      bool             `koanf:"verbose"`
	OutputFormat string           `koanf:"output"`
	Endpoints    []EndpointConfig `koanf:"endpoints"`
}

// StateConfig selects where snapshots are stored.
type StateConfig struct {
	// Driver is sqlite, postgres or file.
	Driver string `koanf:"driver"`
	// DSN is a path for sqlite and file, a connection string for postgres.
	DSN string `koanf:"dsn"`
	// KeepSnapshots bounds history after each commit; 0 keeps all.
	KeepSnapshots int `koanf:"keep_snapshots"`
}

// ServerConfig holds configuration for the editor server.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
	Dev           bool   `koanf:"dev"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// EndpointConfig exposes a datasource or datasink node as a route.
type EndpointConfig struct {
	Name     string `koanf:"name"`
	Role     string `koanf:"role"`
	Method   string `koanf:"method"`
	Path     string `koanf:"path"`
	Redirect string `koanf:"redirect"`
	// Datastore backs the endpoint: a datasource appends submissions to it,
	// a datasink renders its records. Empty leaves the endpoint unrun.
	Datastore string `koanf:"datastore"`
}

// Default configuration values.
const (
	DefaultDriver        = "sqlite"
	DefaultSQLiteDSN     = ".dark/graph.db"
	DefaultFileDSN       = ".dark/graph.yaml"
	DefaultKeepSnapshots = 20
	DefaultPort          = 8765
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultSessionSecret = "dark-dev-secret-change-in-production" //nolint:gosec
)

// StateDir returns the directory holding local state, used for REPL
// history. Postgres keeps state remotely, so the default directory is used.
func (c *Config) StateDir() string {
	switch c.State.Driver {
	case "sqlite", "file":
		return dirOf(c.State.DSN)
	default:
		return dirOf(DefaultSQLiteDSN)
	}
}
