package testutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/starford/tempo/internal/host"
)

// Host is an in-memory host.API with the editor semantics tempo relies on:
// relative buffer names are made absolute against Cwd, duplicate names are
// rejected, 'modifiable' guards writes, closing the last window fails, and
// hiding a buffer with bufhidden=wipe wipes it.
type Host struct {
	mu sync.Mutex

	Cwd     string
	columns int

	nextBuf int
	nextWin int
	bufs    map[host.Buffer]*fakeBuffer
	order   []host.Buffer
	wins    []*fakeWindow
	cur     host.Window
	prev    host.Window

	fail     map[string]error
	cmdFail  map[string]error
	commands []string
	notes    []string

	onEvent func(event string)
}

type fakeBuffer struct {
	name  string
	lines []string
	opts  map[string]any
}

type fakeWindow struct {
	id    host.Window
	buf   host.Buffer
	width int
	opts  map[string]any
}

var _ host.API = (*Host)(nil)

// NewHost returns a host with one window showing an empty unnamed buffer.
func NewHost() *Host {
	h := &Host{
		Cwd:     "/work",
		columns: 120,
		bufs:    make(map[host.Buffer]*fakeBuffer),
		fail:    make(map[string]error),
		cmdFail: make(map[string]error),
	}
	b := h.newBuffer(true)
	h.cur = h.newWindow(b, h.columns)
	return h
}

// NewEmptyHost returns a host without any window, as during startup.
func NewEmptyHost() *Host {
	h := NewHost()
	h.wins = nil
	h.cur, h.prev = 0, 0
	return h
}

// Edit loads path with lines into the current window, like :edit.
func (h *Host) Edit(path string, lines ...string) host.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.newBuffer(true)
	h.bufs[b].name = h.abs(path)
	if len(lines) > 0 {
		h.bufs[b].lines = slices.Clone(lines)
	}
	if w := h.window(h.cur); w != nil {
		h.hide(w.buf, w.id)
		w.buf = b
	}
	return b
}

// SetLines replaces the lines of b, bypassing 'modifiable'.
func (h *Host) SetLines(b host.Buffer, lines ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fb, ok := h.bufs[b]; ok {
		fb.lines = slices.Clone(lines)
	}
}

// SplitEdit opens path in a new window that becomes current.
func (h *Host) SplitEdit(path string, lines ...string) host.Window {
	h.mu.Lock()
	b := h.newBuffer(true)
	h.bufs[b].name = h.abs(path)
	if len(lines) > 0 {
		h.bufs[b].lines = slices.Clone(lines)
	}
	w := h.newWindow(b, h.columns/2)
	h.prev, h.cur = h.cur, w
	h.mu.Unlock()
	return w
}

// Focus makes w the current window.
func (h *Host) Focus(w host.Window) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.window(w) != nil && w != h.cur {
		h.prev, h.cur = h.cur, w
	}
}

// SetColumns sets the screen width.
func (h *Host) SetColumns(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.columns = n
}

// FailOn makes the named API method return err until cleared with nil.
func (h *Host) FailOn(method string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.fail, method)
		return
	}
	h.fail[method] = err
}

// FailCommand makes Command(cmd) return err until cleared with nil.
func (h *Host) FailCommand(cmd string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.cmdFail, cmd)
		return
	}
	h.cmdFail[cmd] = err
}

// OnEvent installs fn to run for the editor events raised by API calls:
// "BufEnter" after a window changes buffer or focus, "WinClosed" after a
// window closes. fn runs on the calling goroutine before the API call
// returns, like a synchronous autocmd, and may call back into the host.
func (h *Host) OnEvent(fn func(event string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = fn
}

func (h *Host) fire(event string) {
	h.mu.Lock()
	fn := h.onEvent
	h.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}

// BuffersNamed returns every buffer whose name ends with suffix.
func (h *Host) BuffersNamed(suffix string) []host.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []host.Buffer
	for _, b := range h.order {
		if strings.HasSuffix(h.bufs[b].name, suffix) {
			out = append(out, b)
		}
	}
	return out
}

// WindowsShowing returns the windows bound to b.
func (h *Host) WindowsShowing(b host.Buffer) []host.Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []host.Window
	for _, w := range h.wins {
		if w.buf == b {
			out = append(out, w.id)
		}
	}
	return out
}

// Lines returns a copy of the lines of b.
func (h *Host) Lines(b host.Buffer) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fb, ok := h.bufs[b]; ok {
		return slices.Clone(fb.lines)
	}
	return nil
}

// BufferOpt returns a buffer option value.
func (h *Host) BufferOpt(b host.Buffer, name string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fb, ok := h.bufs[b]; ok {
		return fb.opts[name]
	}
	return nil
}

// WindowOpt returns a window option value.
func (h *Host) WindowOpt(w host.Window, name string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fw := h.window(w); fw != nil {
		return fw.opts[name]
	}
	return nil
}

// Width returns the width of w.
func (h *Host) Width(w host.Window) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fw := h.window(w); fw != nil {
		return fw.width
	}
	return 0
}

// Current returns the current window.
func (h *Host) Current() host.Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

// Commands returns the Ex commands run so far.
func (h *Host) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.commands)
}

// Notifications returns the messages passed to Notify.
func (h *Host) Notifications() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.notes)
}

// --- host.API ---

func (h *Host) Windows() ([]host.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["Windows"]; err != nil {
		return nil, err
	}
	out := make([]host.Window, 0, len(h.wins))
	for _, w := range h.wins {
		out = append(out, w.id)
	}
	return out, nil
}

func (h *Host) WindowBuffer(w host.Window) (host.Buffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["WindowBuffer"]; err != nil {
		return 0, err
	}
	fw := h.window(w)
	if fw == nil {
		return 0, fmt.Errorf("invalid window id: %d", w)
	}
	return fw.buf, nil
}

func (h *Host) CurrentWindow() (host.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["CurrentWindow"]; err != nil {
		return 0, err
	}
	return h.cur, nil
}

func (h *Host) SetWindowBuffer(w host.Window, b host.Buffer) error {
	if err := h.setWindowBuffer(w, b); err != nil {
		return err
	}
	h.fire("BufEnter")
	return nil
}

func (h *Host) setWindowBuffer(w host.Window, b host.Buffer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["SetWindowBuffer"]; err != nil {
		return err
	}
	fw := h.window(w)
	if fw == nil {
		return fmt.Errorf("invalid window id: %d", w)
	}
	if _, ok := h.bufs[b]; !ok {
		return fmt.Errorf("invalid buffer id: %d", b)
	}
	old := fw.buf
	fw.buf = b
	if old != b {
		h.hide(old, w)
	}
	return nil
}

func (h *Host) SetWindowWidth(w host.Window, width int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["SetWindowWidth"]; err != nil {
		return err
	}
	fw := h.window(w)
	if fw == nil {
		return fmt.Errorf("invalid window id: %d", w)
	}
	fw.width = width
	return nil
}

func (h *Host) SetWindowOption(w host.Window, name string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["SetWindowOption"]; err != nil {
		return err
	}
	fw := h.window(w)
	if fw == nil {
		return fmt.Errorf("invalid window id: %d", w)
	}
	fw.opts[name] = value
	return nil
}

func (h *Host) CloseWindow(w host.Window, _ bool) error {
	h.mu.Lock()
	err := h.fail["CloseWindow"]
	if err == nil {
		err = h.closeWindow(w)
	}
	h.mu.Unlock()
	if err != nil {
		return err
	}
	h.fire("WinClosed")
	return nil
}

func (h *Host) CurrentBuffer() (host.Buffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["CurrentBuffer"]; err != nil {
		return 0, err
	}
	fw := h.window(h.cur)
	if fw == nil {
		return 0, errors.New("no current window")
	}
	return fw.buf, nil
}

func (h *Host) CreateBuffer(listed, scratch bool) (host.Buffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["CreateBuffer"]; err != nil {
		return 0, err
	}
	b := h.newBuffer(listed)
	if scratch {
		h.bufs[b].opts["buftype"] = "nofile"
		h.bufs[b].opts["bufhidden"] = "hide"
		h.bufs[b].opts["swapfile"] = false
	}
	return b, nil
}

func (h *Host) DeleteBuffer(b host.Buffer, _ bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["DeleteBuffer"]; err != nil {
		return err
	}
	if _, ok := h.bufs[b]; !ok {
		return fmt.Errorf("invalid buffer id: %d", b)
	}
	for _, w := range slices.Clone(h.wins) {
		if w.buf != b {
			continue
		}
		if len(h.wins) == 1 {
			w.buf = h.newBuffer(true)
			continue
		}
		h.removeWindow(w.id)
	}
	h.wipe(b)
	return nil
}

func (h *Host) Buffers() ([]host.Buffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["Buffers"]; err != nil {
		return nil, err
	}
	return slices.Clone(h.order), nil
}

func (h *Host) BufferName(b host.Buffer) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["BufferName"]; err != nil {
		return "", err
	}
	fb, ok := h.bufs[b]
	if !ok {
		return "", fmt.Errorf("invalid buffer id: %d", b)
	}
	return fb.name, nil
}

func (h *Host) SetBufferName(b host.Buffer, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["SetBufferName"]; err != nil {
		return err
	}
	fb, ok := h.bufs[b]
	if !ok {
		return fmt.Errorf("invalid buffer id: %d", b)
	}
	name = h.abs(name)
	for id, other := range h.bufs {
		if id != b && other.name == name {
			return errors.New("E95: Buffer with this name already exists")
		}
	}
	fb.name = name
	return nil
}

func (h *Host) BufferLines(b host.Buffer) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["BufferLines"]; err != nil {
		return nil, err
	}
	fb, ok := h.bufs[b]
	if !ok {
		return nil, fmt.Errorf("invalid buffer id: %d", b)
	}
	return slices.Clone(fb.lines), nil
}

func (h *Host) SetBufferLines(b host.Buffer, lines []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["SetBufferLines"]; err != nil {
		return err
	}
	fb, ok := h.bufs[b]
	if !ok {
		return fmt.Errorf("invalid buffer id: %d", b)
	}
	if m, ok := fb.opts["modifiable"].(bool); ok && !m {
		return errors.New("E21: Cannot make changes, 'modifiable' is off")
	}
	if len(lines) == 0 {
		// A buffer always has at least one line.
		fb.lines = []string{""}
		return nil
	}
	fb.lines = slices.Clone(lines)
	return nil
}

func (h *Host) SetBufferOption(b host.Buffer, name string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["SetBufferOption"]; err != nil {
		return err
	}
	fb, ok := h.bufs[b]
	if !ok {
		return fmt.Errorf("invalid buffer id: %d", b)
	}
	fb.opts[name] = value
	return nil
}

func (h *Host) Columns() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail["Columns"]; err != nil {
		return 0, err
	}
	return h.columns, nil
}

// Command understands "rightbelow vsplit" and "wincmd p"; anything else is
// only recorded.
func (h *Host) Command(cmd string) error {
	if err := h.command(cmd); err != nil {
		return err
	}
	if cmd == "wincmd p" {
		h.fire("BufEnter")
	}
	return nil
}

func (h *Host) command(cmd string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.cmdFail[cmd]; err != nil {
		return err
	}
	h.commands = append(h.commands, cmd)
	switch cmd {
	case "rightbelow vsplit":
		cur := h.window(h.cur)
		if cur == nil {
			return errors.New("E36: Not enough room")
		}
		cur.width /= 2
		w := h.newWindow(cur.buf, cur.width)
		h.prev, h.cur = h.cur, w
	case "wincmd p":
		if h.window(h.prev) != nil {
			h.prev, h.cur = h.cur, h.prev
		}
	}
	return nil
}

func (h *Host) Notify(msg string, _ host.Level) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, msg)
	return nil
}

// --- internals, h.mu held ---

func (h *Host) abs(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(h.Cwd, name)
}

func (h *Host) newBuffer(listed bool) host.Buffer {
	h.nextBuf++
	b := host.Buffer(h.nextBuf)
	h.bufs[b] = &fakeBuffer{
		lines: []string{""},
		opts:  map[string]any{"buflisted": listed, "modifiable": true, "bufhidden": ""},
	}
	h.order = append(h.order, b)
	return b
}

func (h *Host) newWindow(b host.Buffer, width int) host.Window {
	h.nextWin++
	w := host.Window(1000 + h.nextWin)
	h.wins = append(h.wins, &fakeWindow{id: w, buf: b, width: width, opts: map[string]any{}})
	return w
}

func (h *Host) window(w host.Window) *fakeWindow {
	for _, fw := range h.wins {
		if fw.id == w {
			return fw
		}
	}
	return nil
}

func (h *Host) closeWindow(w host.Window) error {
	fw := h.window(w)
	if fw == nil {
		return fmt.Errorf("invalid window id: %d", w)
	}
	if len(h.wins) == 1 {
		return errors.New("E444: Cannot close last window")
	}
	h.removeWindow(w)
	h.hide(fw.buf, w)
	return nil
}

func (h *Host) removeWindow(w host.Window) {
	h.wins = slices.DeleteFunc(h.wins, func(fw *fakeWindow) bool { return fw.id == w })
	if h.cur == w {
		if h.window(h.prev) != nil {
			h.cur = h.prev
		} else {
			h.cur = h.wins[0].id
		}
	}
	if h.prev == w {
		h.prev = 0
	}
}

// hide applies bufhidden=wipe once b is no longer shown by any window
// other than except.
func (h *Host) hide(b host.Buffer, except host.Window) {
	fb, ok := h.bufs[b]
	if !ok || fb.opts["bufhidden"] != "wipe" {
		return
	}
	for _, w := range h.wins {
		if w.buf == b && w.id != except {
			return
		}
	}
	h.wipe(b)
}

func (h *Host) wipe(b host.Buffer) {
	delete(h.bufs, b)
	h.order = slices.DeleteFunc(h.order, func(x host.Buffer) bool { return x == b })
}
