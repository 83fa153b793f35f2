// Package lifecycle reacts to editor events and decides when the preview is
// opened, refreshed, closed or destroyed.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/tempo/internal/classify"
	"github.com/starford/tempo/internal/host"
	"github.com/starford/tempo/internal/preview"
	"github.com/starford/tempo/internal/summary"
	"github.com/starford/tempo/internal/visibility"
)

// Default settle delays before automatic transitions inspect the layout.
const (
	DefaultOpenDelay  = 200 * time.Millisecond
	DefaultCloseDelay = 30 * time.Millisecond
)

// Settings supplies the values read on every transition.
type Settings interface {
	TrackingRoot() string
	Prefix() string
	Suffix() string
	Formatter() summary.Formatter
}

// Controller is the preview state machine. It holds no state about the
// preview itself; every transition re-reads the editor.
type Controller struct {
	api      host.API
	surface  *preview.Surface
	visible  *visibility.Aggregator
	settings Settings
	logger   *slog.Logger

	openDelay  time.Duration
	closeDelay time.Duration

	// mu serialises transitions; the RPC host may deliver events on
	// separate goroutines.
	mu sync.Mutex
	// recheck is set when a visibility check arrived during a transition.
	recheck atomic.Bool

	openGen  atomic.Uint64
	closeGen atomic.Uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelays overrides the settle delays of AutoOpen and AutoClose.
func WithDelays(openDelay, closeDelay time.Duration) Option {
	return func(c *Controller) {
		c.openDelay = openDelay
		c.closeDelay = closeDelay
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a Controller.
func New(api host.API, surface *preview.Surface, visible *visibility.Aggregator, settings Settings, opts ...Option) *Controller {
	c := &Controller{
		api:        api,
		surface:    surface,
		visible:    visible,
		settings:   settings,
		logger:     slog.Default(),
		openDelay:  DefaultOpenDelay,
		closeDelay: DefaultCloseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Toggle closes the preview if it is shown, otherwise renders the current
// buffer into it. Outside a day file it does nothing.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	tracked, err := c.currentTracked()
	if err != nil || !tracked {
		return err
	}
	open, err := c.surface.IsOpen()
	if err != nil {
		return err
	}
	if open {
		return c.surface.Close()
	}
	return c.render()
}

// Update re-renders the preview from the current buffer if the buffer is a
// day file and the preview is shown.
func (c *Controller) Update(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	tracked, err := c.currentTracked()
	if err != nil || !tracked {
		return err
	}
	open, err := c.surface.IsOpen()
	if err != nil || !open {
		return err
	}
	return c.render()
}

// AutoOpen waits for the layout to settle, then opens the preview for a day
// file that is not previewed yet. Failures are logged, never returned.
func (c *Controller) AutoOpen(ctx context.Context) {
	gen := c.openGen.Add(1)
	if !c.settle(ctx, c.openDelay) {
		return
	}
	if c.openGen.Load() != gen {
		c.logger.Debug("lifecycle: auto-open superseded")
		return
	}

	c.mu.Lock()
	defer c.unlock()
	if err := c.autoOpen(); err != nil {
		c.report("auto-open", err)
	}
}

func (c *Controller) autoOpen() error {
	tracked, err := c.currentTracked()
	if err != nil {
		return err
	}
	if !tracked {
		c.logger.Debug("lifecycle: auto-open skipped, not a day file")
		return nil
	}
	open, err := c.surface.IsOpen()
	if err != nil || open {
		return err
	}
	return c.render()
}

// AutoClose waits briefly, then closes the preview. It is bound to leaving
// a markdown buffer, so it does not classify again. Failures are logged,
// never returned.
func (c *Controller) AutoClose(ctx context.Context) {
	gen := c.closeGen.Add(1)
	if !c.settle(ctx, c.closeDelay) {
		return
	}
	if c.closeGen.Load() != gen {
		c.logger.Debug("lifecycle: auto-close superseded")
		return
	}

	c.mu.Lock()
	defer c.unlock()
	if err := c.surface.Close(); err != nil {
		c.report("auto-close", err)
	}
}

// Close closes the preview window.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()
	return c.surface.Close()
}

// MaybeCloseIfInvisible closes the preview once no day file is on screen.
//
// Layout changes made by a running transition fire the events bound here,
// possibly while the editor waits for that transition. The check then does
// not wait for the lock; it is deferred until the transition ends.
func (c *Controller) MaybeCloseIfInvisible(ctx context.Context) error {
	if !c.mu.TryLock() {
		c.recheck.Store(true)
		// The holder may have unlocked before seeing the flag.
		if !c.mu.TryLock() {
			c.logger.Debug("lifecycle: visibility check deferred")
			return nil
		}
	}
	defer c.unlock()
	c.recheck.Store(false)
	return c.closeIfInvisible()
}

func (c *Controller) closeIfInvisible() error {
	visible, err := c.visible.AnyTrackedVisible(c.settings.TrackingRoot())
	if err != nil || visible {
		return err
	}
	return c.surface.Close()
}

// unlock ends a transition and runs any visibility check deferred while it
// held the lock.
func (c *Controller) unlock() {
	c.mu.Unlock()
	for c.recheck.Load() {
		if !c.mu.TryLock() {
			// The current holder runs the check when it unlocks.
			return
		}
		c.recheck.Store(false)
		err := c.closeIfInvisible()
		c.mu.Unlock()
		if err != nil {
			c.logger.Warn("lifecycle: deferred visibility check failed", slog.String("error", err.Error()))
		}
	}
}

// Shutdown wipes the preview buffer outright.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()
	return c.surface.Destroy()
}

func (c *Controller) currentTracked() (bool, error) {
	buf, err := c.api.CurrentBuffer()
	if err != nil {
		return false, fmt.Errorf("lifecycle: current buffer: %w", err)
	}
	name, err := c.api.BufferName(buf)
	if err != nil {
		return false, fmt.Errorf("lifecycle: buffer name: %w", err)
	}
	if preview.IsPreviewName(name) {
		return false, nil
	}
	return classify.Classify(name, c.settings.TrackingRoot()), nil
}

// render formats the current buffer and pushes it into the preview.
func (c *Controller) render() error {
	buf, err := c.api.CurrentBuffer()
	if err != nil {
		return fmt.Errorf("lifecycle: current buffer: %w", err)
	}
	lines, err := c.api.BufferLines(buf)
	if err != nil {
		return fmt.Errorf("lifecycle: read buffer: %w", err)
	}
	text := c.settings.Formatter().DaySummary(
		strings.Join(lines, "\n"),
		"",
		c.settings.Prefix(),
		c.settings.Suffix(),
	)
	return c.surface.CreateOrUpdate(text)
}

// settle sleeps for d unless ctx ends first.
func (c *Controller) settle(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Controller) report(op string, err error) {
	c.logger.Error("lifecycle: "+op+" failed", slog.String("error", err.Error()))
	if nerr := c.api.Notify(fmt.Sprintf("[time-tracking] %s failed: %v", op, err), host.LevelError); nerr != nil {
		c.logger.Debug("lifecycle: notify failed", slog.String("error", nerr.Error()))
	}
}
