// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tempo/internal/host/nvimhost"
	"github.com/starford/tempo/internal/ledger"
	"github.com/starford/tempo/internal/lifecycle"
	"github.com/starford/tempo/internal/preview"
	"github.com/starford/tempo/internal/views"
	"github.com/starford/tempo/internal/visibility"
)

// Run serves the editor plugin on the configured RPC streams until the
// editor disconnects, ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		in:     os.Stdin,
		out:    os.Stdout,
		closer: os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		l, closeLog, err := NewLogger(cfg.App)
		if err != nil {
			return err
		}
		defer closeLog()
		logger = l
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("tracking_root", cfg.Tracking.Root),
		slog.String("formatter", cfg.Tracking.Formatter),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	settings, err := newSettings(cfg.Tracking)
	if err != nil {
		return fmt.Errorf("init formatter: %w", err)
	}

	v, err := nvim.New(app.in, app.out, app.closer, func(format string, args ...any) {
		logger.Debug("rpc: " + fmt.Sprintf(format, args...))
	})
	if err != nil {
		return fmt.Errorf("connect editor: %w", err)
	}

	api := nvimhost.New(v)
	registry := views.NewRegistry(api)
	surface := preview.New(api, registry, preview.Options{
		WidthDivisor: cfg.Preview.WidthDivisor,
		MinWidth:     cfg.Preview.MinWidth,
	}, logger.With(slog.String("component", "preview")))
	ctrl := lifecycle.New(api, surface, visibility.New(registry), settings,
		lifecycle.WithDelays(cfg.Preview.OpenDelay, cfg.Preview.CloseDelay),
		lifecycle.WithLogger(logger.With(slog.String("component", "lifecycle"))),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	nvimhost.Register(gCtx, plugin.New(v), ctrl, logger.With(slog.String("component", "plugin")))

	if cfg.Ledger.Enabled() {
		db, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("init ledger: %w", err)
		}
		defer db.Close()

		ledgerLogger := logger.With(slog.String("component", "ledger"))
		if err := ledger.Sync(db, cfg.Tracking.Root, ledgerLogger); err != nil {
			ledgerLogger.Warn("initial sync failed", slog.String("error", err.Error()))
		}

		if cfg.Ledger.Watch {
			g.Go(func() error {
				err := ledger.Watch(gCtx, db, cfg.Tracking.Root, ledgerLogger, func(kind, path string) {
					ledgerLogger.Info("ledger: day changed", slog.String("op", kind), slog.String("path", path))
				})
				if err != nil {
					ledgerLogger.Warn("watcher: not running", slog.String("error", err.Error()))
				}
				return nil
			})
		}
	}

	// stopping is set once the host closes the channel itself.
	var stopping atomic.Bool

	// Serve the RPC channel; its end is the end of the process.
	g.Go(func() error {
		defer cancel()
		logger.Info("Plugin host serving")
		if err := v.Serve(); err != nil && !stopping.Load() && !errors.Is(err, io.EOF) {
			return fmt.Errorf("rpc serve: %w", err)
		}
		logger.Info("Editor disconnected")
		return nil
	})

	// The host is started lazily, usually after VimEnter has fired.
	go ctrl.AutoOpen(gCtx)

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		stopping.Store(true)
		if err := v.Close(); err != nil {
			logger.Debug("rpc close", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Plugin host stopped")
	return nil
}

// NewLogger builds the JSON logger described by cfg. The returned func
// closes the log file, if any.
func NewLogger(cfg ApplicationConfig) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closeFn, nil
}
