// Package nvimhost implements host.API on a Neovim msgpack-RPC connection.
package nvimhost

import (
	"fmt"
	"strings"

	"github.com/neovim/go-client/nvim"

	"github.com/starford/tempo/internal/apperr"
	"github.com/starford/tempo/internal/host"
)

// Host adapts *nvim.Nvim to host.API. Each method is one API call; errors
// are returned as the client reports them.
type Host struct {
	v *nvim.Nvim
}

var _ host.API = (*Host)(nil)

// New wraps v.
func New(v *nvim.Nvim) *Host {
	return &Host{v: v}
}

// Windows lists the windows of the current tab page.
func (h *Host) Windows() ([]host.Window, error) {
	wins, err := h.v.Windows()
	if err != nil {
		return nil, err
	}
	out := make([]host.Window, len(wins))
	for i, w := range wins {
		out[i] = host.Window(w)
	}
	return out, nil
}

// WindowBuffer returns the buffer shown in w.
func (h *Host) WindowBuffer(w host.Window) (host.Buffer, error) {
	b, err := h.v.WindowBuffer(nvim.Window(w))
	return host.Buffer(b), err
}

// CurrentWindow returns the window with focus.
func (h *Host) CurrentWindow() (host.Window, error) {
	w, err := h.v.CurrentWindow()
	return host.Window(w), err
}

// SetWindowBuffer shows b in w.
func (h *Host) SetWindowBuffer(w host.Window, b host.Buffer) error {
	return h.v.SetBufferToWindow(nvim.Window(w), nvim.Buffer(b))
}

// SetWindowWidth resizes w.
func (h *Host) SetWindowWidth(w host.Window, width int) error {
	return h.v.SetWindowWidth(nvim.Window(w), width)
}

// SetWindowOption sets a window-local option.
func (h *Host) SetWindowOption(w host.Window, name string, value any) error {
	return h.v.SetWindowOption(nvim.Window(w), name, value)
}

// CloseWindow closes w.
func (h *Host) CloseWindow(w host.Window, force bool) error {
	return h.v.CloseWindow(nvim.Window(w), force)
}

// CurrentBuffer returns the buffer in the current window.
func (h *Host) CurrentBuffer() (host.Buffer, error) {
	b, err := h.v.CurrentBuffer()
	return host.Buffer(b), err
}

// CreateBuffer creates a new buffer.
func (h *Host) CreateBuffer(listed, scratch bool) (host.Buffer, error) {
	b, err := h.v.CreateBuffer(listed, scratch)
	return host.Buffer(b), err
}

// DeleteBuffer wipes b.
func (h *Host) DeleteBuffer(b host.Buffer, force bool) error {
	return h.v.DeleteBuffer(nvim.Buffer(b), map[string]bool{"force": force})
}

// Buffers lists every buffer handle.
func (h *Host) Buffers() ([]host.Buffer, error) {
	bufs, err := h.v.Buffers()
	if err != nil {
		return nil, err
	}
	out := make([]host.Buffer, len(bufs))
	for i, b := range bufs {
		out[i] = host.Buffer(b)
	}
	return out, nil
}

// BufferName returns the full name of b.
func (h *Host) BufferName(b host.Buffer) (string, error) {
	return h.v.BufferName(nvim.Buffer(b))
}

// SetBufferName renames b.
func (h *Host) SetBufferName(b host.Buffer, name string) error {
	return h.v.SetBufferName(nvim.Buffer(b), name)
}

// BufferLines returns every line of b.
func (h *Host) BufferLines(b host.Buffer) ([]string, error) {
	raw, err := h.v.BufferLines(nvim.Buffer(b), 0, -1, false)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return lines, nil
}

// SetBufferLines replaces every line of b.
func (h *Host) SetBufferLines(b host.Buffer, lines []string) error {
	raw := make([][]byte, len(lines))
	for i, l := range lines {
		raw[i] = []byte(l)
	}
	return h.v.SetBufferLines(nvim.Buffer(b), 0, -1, false, raw)
}

// SetBufferOption sets a buffer-local option.
func (h *Host) SetBufferOption(b host.Buffer, name string, value any) error {
	return h.v.SetBufferOption(nvim.Buffer(b), name, value)
}

// Columns returns the 'columns' option.
func (h *Host) Columns() (int, error) {
	var n int
	if err := h.v.Option("columns", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Command runs an Ex command. E242 is reported as apperr.ErrLayoutConflict.
func (h *Host) Command(cmd string) error {
	err := h.v.Command(cmd)
	if err != nil && isLayoutConflict(err) {
		return fmt.Errorf("%w: %v", apperr.ErrLayoutConflict, err)
	}
	return err
}

// Notify echoes msg; warnings and errors go to the error channel.
func (h *Host) Notify(msg string, level host.Level) error {
	if level >= host.LevelWarn {
		return h.v.WritelnErr(msg)
	}
	return h.v.WriteOut(msg + "\n")
}

// isLayoutConflict reports whether err is Neovim refusing to split while a
// window is being closed.
func isLayoutConflict(err error) bool {
	return strings.Contains(err.Error(), "E242")
}
