package config

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	validDrivers    = []string{"sqlite", "postgres", "file"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
	validOutputs    = []string{"auto", "text", "markdown", "json"}
	validRoles      = []string{"datasource", "datasink"}
	reservedPrefix  = []string{"/admin/", "/static/"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !oneOf(c.State.Driver, validDrivers) {
		return fmt.Errorf("unknown state driver %q (want one of %s)", c.State.Driver, strings.Join(validDrivers, ", "))
	}
	if c.State.DSN == "" {
		return fmt.Errorf("state.dsn is required for the %s driver", c.State.Driver)
	}
	if c.State.KeepSnapshots < 0 {
		return fmt.Errorf("state.keep_snapshots must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if !oneOf(c.Log.Level, validLogLevels) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if !oneOf(c.Log.Format, validLogFormats) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if !oneOf(c.OutputFormat, validOutputs) {
		return fmt.Errorf("unknown output format %q (want one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	return c.validateEndpoints()
}

func (c *Config) validateEndpoints() error {
	names := make(map[string]bool, len(c.Endpoints))
	routes := make(map[string]bool, len(c.Endpoints))

	for i, ep := range c.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoints[%d]: name is required", i)
		}
		if names[ep.Name] {
			return fmt.Errorf("endpoints[%d]: duplicate name %q", i, ep.Name)
		}
		names[ep.Name] = true

		if !oneOf(ep.Role, validRoles) {
			return fmt.Errorf("endpoint %s: role must be datasource or datasink, got %q", ep.Name, ep.Role)
		}
		if !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("endpoint %s: path %q must start with /", ep.Name, ep.Path)
		}
		for _, prefix := range reservedPrefix {
			if strings.HasPrefix(ep.Path, prefix) {
				return fmt.Errorf("endpoint %s: path %q is reserved", ep.Name, ep.Path)
			}
		}
		if ep.Method != "" && !oneOf(strings.ToUpper(ep.Method), []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		}) {
			return fmt.Errorf("endpoint %s: unsupported method %q", ep.Name, ep.Method)
		}

		route := ep.EffectiveMethod() + " " + ep.Path
		if routes[route] {
			return fmt.Errorf("endpoint %s: route %s is already taken", ep.Name, route)
		}
		routes[route] = true
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func dirOf(path string) string {
	if path == "" || path == ":memory:" {
		return "."
	}
	return filepath.Dir(path)
}

// EffectiveMethod returns the configured method, defaulting to GET for
// datasinks and POST for datasources.
func (e EndpointConfig) EffectiveMethod() string {
	if e.Method != "" {
		return strings.ToUpper(e.Method)
	}
	if e.Role == "datasource" {
		return http.MethodPost
	}
	return http.MethodGet
}
