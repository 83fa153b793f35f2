package internal

import (
	"io"
	"log/slog"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger

	// RPC channel to the editor.
	in     io.Reader
	out    io.Writer
	closer io.Closer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithRPC sets the streams the editor speaks msgpack-RPC on. Defaults to
// stdin and stdout.
func WithRPC(in io.Reader, out io.Writer, closer io.Closer) Option {
	return func(a *application) {
		a.in = in
		a.out = out
		a.closer = closer
	}
}
