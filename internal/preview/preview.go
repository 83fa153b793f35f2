// Package preview owns the singleton read-only preview buffer and the split
// window that shows it.
//
// The preview is found by name on every call; no buffer or window handle is
// kept between calls, so a preview wiped and recreated by the editor is
// picked up transparently.
package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/tempo/internal/apperr"
	"github.com/starford/tempo/internal/host"
	"github.com/starford/tempo/internal/views"
)

// Name is the reserved buffer name of the preview. No file on disk can be
// mistaken for it: the editor may prefix it with a directory, so identity
// is a suffix match (see IsPreviewName).
const Name = "[Time Tracking Preview]"

// Default layout of the preview split.
const (
	DefaultWidthDivisor = 3
	DefaultMinWidth     = 20
)

// IsPreviewName reports whether a buffer name identifies the preview.
func IsPreviewName(name string) bool {
	return strings.HasSuffix(name, Name)
}

// Options configures the preview split width.
type Options struct {
	WidthDivisor int
	MinWidth     int
}

// Surface creates, fills, shows and hides the preview.
type Surface struct {
	api    host.API
	views  *views.Registry
	opts   Options
	logger *slog.Logger
}

// New creates a Surface. Zero option fields fall back to the defaults.
func New(api host.API, registry *views.Registry, opts Options, logger *slog.Logger) *Surface {
	if opts.WidthDivisor <= 0 {
		opts.WidthDivisor = DefaultWidthDivisor
	}
	if opts.MinWidth <= 0 {
		opts.MinWidth = DefaultMinWidth
	}
	return &Surface{api: api, views: registry, opts: opts, logger: logger}
}

// Resolve returns the preview buffer if one exists. The first match wins.
func (s *Surface) Resolve() (host.Buffer, bool, error) {
	bufs, err := s.api.Buffers()
	if err != nil {
		return 0, false, fmt.Errorf("preview: list buffers: %w", err)
	}
	for _, b := range bufs {
		name, err := s.api.BufferName(b)
		if err != nil {
			return 0, false, fmt.Errorf("preview: name of buffer %d: %w", b, err)
		}
		if IsPreviewName(name) {
			return b, true, nil
		}
	}
	return 0, false, nil
}

// IsOpen reports whether some window shows the preview.
func (s *Surface) IsOpen() (bool, error) {
	return s.views.AnyShowing(IsPreviewName)
}

// CreateOrUpdate replaces the preview content with text, creating the
// preview buffer if needed, and shows it in a right-hand split if no window
// shows it yet. It is a no-op while the editor has no windows.
//
// Failures to split or bind the window are logged and reported as success;
// the next trigger retries.
func (s *Surface) CreateOrUpdate(text string) error {
	n, err := s.views.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	buf, err := s.ensureBuffer()
	if err != nil {
		return err
	}
	if err := s.write(buf, SplitLines(text)); err != nil {
		return err
	}

	open, err := s.IsOpen()
	if err != nil {
		return err
	}
	if !open {
		s.show(buf)
	}
	return nil
}

// Close closes the window showing the preview. The buffer itself goes away
// only if the editor's hide policy wipes it.
func (s *Surface) Close() error {
	p, ok, err := s.views.Find(IsPreviewName)
	if err != nil || !ok {
		return err
	}
	if err := s.api.CloseWindow(p.Window, false); err != nil {
		return fmt.Errorf("preview: close window %d: %w", p.Window, err)
	}
	return nil
}

// Destroy wipes the preview buffer and every window showing it.
func (s *Surface) Destroy() error {
	buf, ok, err := s.Resolve()
	if err != nil || !ok {
		return err
	}
	if err := s.api.DeleteBuffer(buf, true); err != nil {
		return fmt.Errorf("preview: wipe buffer %d: %w", buf, err)
	}
	return nil
}

func (s *Surface) ensureBuffer() (host.Buffer, error) {
	buf, ok, err := s.Resolve()
	if err != nil {
		return 0, err
	}
	if ok {
		return buf, nil
	}

	buf, err = s.api.CreateBuffer(false, true)
	if err != nil {
		return 0, fmt.Errorf("preview: create buffer: %w", err)
	}
	if err := s.api.SetBufferName(buf, Name); err != nil {
		return 0, fmt.Errorf("preview: name buffer: %w", err)
	}
	// 'readonly' is left alone: 'modifiable' alone keeps users out.
	for _, opt := range []struct {
		name  string
		value any
	}{
		{"buflisted", false},
		{"modifiable", false},
		{"bufhidden", "wipe"},
		{"swapfile", false},
	} {
		if err := s.api.SetBufferOption(buf, opt.name, opt.value); err != nil {
			return 0, fmt.Errorf("preview: set %s: %w", opt.name, err)
		}
	}
	return buf, nil
}

// write unlocks the buffer for exactly one replacement of all its lines.
func (s *Surface) write(buf host.Buffer, lines []string) (err error) {
	if err := s.api.SetBufferOption(buf, "modifiable", true); err != nil {
		return fmt.Errorf("preview: unlock: %w", err)
	}
	defer func() {
		if lockErr := s.api.SetBufferOption(buf, "modifiable", false); lockErr != nil && err == nil {
			err = fmt.Errorf("preview: lock: %w", lockErr)
		}
	}()
	if err := s.api.SetBufferLines(buf, lines); err != nil {
		return fmt.Errorf("preview: set lines: %w", err)
	}
	return nil
}

func (s *Surface) show(buf host.Buffer) {
	if err := s.api.Command("rightbelow vsplit"); err != nil {
		if errors.Is(err, apperr.ErrLayoutConflict) {
			s.logger.Debug("preview: split skipped, layout busy")
			return
		}
		s.logger.Warn("preview: split failed", slog.String("error", err.Error()))
		return
	}

	win, err := s.api.CurrentWindow()
	if err != nil {
		s.logger.Warn("preview: current window", slog.String("error", err.Error()))
		return
	}
	if err := s.api.SetWindowBuffer(win, buf); err != nil {
		s.logger.Warn("preview: bind buffer failed", slog.String("error", err.Error()))
		_ = s.api.CloseWindow(win, false)
		return
	}

	if err := s.api.SetWindowOption(win, "winfixwidth", true); err != nil {
		s.logger.Debug("preview: set winfixwidth", slog.String("error", err.Error()))
	}
	if cols, err := s.api.Columns(); err != nil {
		s.logger.Debug("preview: read columns", slog.String("error", err.Error()))
	} else if err := s.api.SetWindowWidth(win, max(cols/s.opts.WidthDivisor, s.opts.MinWidth)); err != nil {
		s.logger.Debug("preview: set width", slog.String("error", err.Error()))
	}

	if err := s.api.Command("wincmd p"); err != nil {
		s.logger.Debug("preview: return to previous window", slog.String("error", err.Error()))
	}
}

// SplitLines splits text into buffer lines. One trailing line break is
// dropped and "\r\n" counts as a single break; "" yields no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
