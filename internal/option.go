package internal

import "github.com/starford/laguz/internal/remote"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	remote remote.Client
	mcp    bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRemoteClient overrides the remote client, mainly for tests.
func WithRemoteClient(c remote.Client) Option {
	return func(a *application) {
		a.remote = c
	}
}

// WithMCP serves the MCP stdio transport instead of the HTTP API.
func WithMCP() Option {
	return func(a *application) {
		a.mcp = true
	}
}
