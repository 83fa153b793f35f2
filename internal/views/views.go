// Package views is a read-only query layer over the host's open windows.
package views

import (
	"fmt"

	"github.com/starford/tempo/internal/host"
)

// Pair is a window together with the buffer it shows.
type Pair struct {
	Window host.Window
	Buffer host.Buffer
	Name   string
}

// Registry enumerates windows and their buffers. Nothing is cached: every
// call reflects the host's state at that moment.
type Registry struct {
	api host.API
}

// NewRegistry creates a registry over api.
func NewRegistry(api host.API) *Registry {
	return &Registry{api: api}
}

// Count returns the number of open windows.
func (r *Registry) Count() (int, error) {
	wins, err := r.api.Windows()
	if err != nil {
		return 0, fmt.Errorf("views: list windows: %w", err)
	}
	return len(wins), nil
}

// Pairs returns every window with its buffer, in host order.
func (r *Registry) Pairs() ([]Pair, error) {
	wins, err := r.api.Windows()
	if err != nil {
		return nil, fmt.Errorf("views: list windows: %w", err)
	}
	out := make([]Pair, 0, len(wins))
	for _, w := range wins {
		p, err := r.pair(w)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Find returns the first window whose buffer name satisfies match.
func (r *Registry) Find(match func(name string) bool) (Pair, bool, error) {
	wins, err := r.api.Windows()
	if err != nil {
		return Pair{}, false, fmt.Errorf("views: list windows: %w", err)
	}
	for _, w := range wins {
		p, err := r.pair(w)
		if err != nil {
			return Pair{}, false, err
		}
		if match(p.Name) {
			return p, true, nil
		}
	}
	return Pair{}, false, nil
}

// AnyShowing reports whether some window shows a buffer matching match.
func (r *Registry) AnyShowing(match func(name string) bool) (bool, error) {
	_, ok, err := r.Find(match)
	return ok, err
}

func (r *Registry) pair(w host.Window) (Pair, error) {
	b, err := r.api.WindowBuffer(w)
	if err != nil {
		return Pair{}, fmt.Errorf("views: buffer of window %d: %w", w, err)
	}
	name, err := r.api.BufferName(b)
	if err != nil {
		return Pair{}, fmt.Errorf("views: name of buffer %d: %w", b, err)
	}
	return Pair{Window: w, Buffer: b, Name: name}, nil
}
