// Package host defines the editor surface tempo drives: buffers, windows and
// their options. The live state is owned by the editor; callers re-resolve
// handles on every use instead of caching them.
package host

// Buffer is a host buffer handle.
type Buffer int

// Window is a host window handle.
type Window int

// Level is the severity of a user-facing notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// API is the subset of the editor API used by tempo.
type API interface {
	Windows() ([]Window, error)
	WindowBuffer(w Window) (Buffer, error)
	CurrentWindow() (Window, error)
	SetWindowBuffer(w Window, b Buffer) error
	SetWindowWidth(w Window, width int) error
	SetWindowOption(w Window, name string, value any) error
	CloseWindow(w Window, force bool) error

	CurrentBuffer() (Buffer, error)
	CreateBuffer(listed, scratch bool) (Buffer, error)
	DeleteBuffer(b Buffer, force bool) error
	Buffers() ([]Buffer, error)
	BufferName(b Buffer) (string, error)
	SetBufferName(b Buffer, name string) error
	BufferLines(b Buffer) ([]string, error)
	SetBufferLines(b Buffer, lines []string) error
	SetBufferOption(b Buffer, name string, value any) error

	// Columns returns the total screen width in columns.
	Columns() (int, error)
	// Command runs an Ex command string.
	Command(cmd string) error
	Notify(msg string, level Level) error
}
