package nvimhost

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIsLayoutConflict(t *testing.T) {
	if !isLayoutConflict(errors.New("Vim(vsplit):E242: Can't split a window while closing another")) {
		t.Error("E242 should be a layout conflict")
	}
	if isLayoutConflict(errors.New("Vim(vsplit):E36: Not enough room")) {
		t.Error("E36 is not a layout conflict")
	}
}

// recorder reports every controller call on calls.
type recorder struct {
	calls chan string
}

func newRecorder() *recorder { return &recorder{calls: make(chan string, 4)} }

func (r *recorder) record(name string) error {
	r.calls <- name
	return nil
}

func (r *recorder) Toggle(context.Context) error                { return r.record("Toggle") }
func (r *recorder) Update(context.Context) error                { return r.record("Update") }
func (r *recorder) AutoOpen(context.Context)                    { _ = r.record("AutoOpen") }
func (r *recorder) AutoClose(context.Context)                   { _ = r.record("AutoClose") }
func (r *recorder) Close(context.Context) error                 { return r.record("Close") }
func (r *recorder) MaybeCloseIfInvisible(context.Context) error { return r.record("MaybeCloseIfInvisible") }
func (r *recorder) Shutdown(context.Context) error              { return r.record("Shutdown") }

var wantBindings = map[string]struct {
	method string
	sync   bool
}{
	KindCommand + ":" + CmdToggle:                {"Toggle", true},
	KindCommand + ":" + CmdUpdate:                {"Update", true},
	KindCommand + ":" + CmdClose:                 {"Close", true},
	KindCommand + ":" + CmdMaybeCloseIfInvisible: {"MaybeCloseIfInvisible", true},
	KindCommand + ":" + CmdAutoOpen:              {"AutoOpen", true},
	KindCommand + ":" + CmdAutoClose:             {"AutoClose", true},
	KindAutocmd + ":TextChanged,TextChangedI":    {"Update", false},
	KindAutocmd + ":VimEnter":                    {"AutoOpen", false},
	KindAutocmd + ":BufWinEnter":                 {"AutoOpen", false},
	KindAutocmd + ":BufLeave":                    {"AutoClose", false},
	KindAutocmd + ":BufEnter,WinClosed,TabEnter": {"MaybeCloseIfInvisible", false},
	KindAutocmd + ":QuitPre":                     {"Close", true},
	KindAutocmd + ":VimLeavePre":                 {"Shutdown", true},
}

func TestBindings_MapToController(t *testing.T) {
	rec := newRecorder()
	bindings := Bindings(rec)
	if len(bindings) != len(wantBindings) {
		t.Errorf("bindings = %d, want %d", len(bindings), len(wantBindings))
	}
	for _, b := range bindings {
		key := b.Kind + ":" + b.Name
		want, ok := wantBindings[key]
		if !ok {
			t.Errorf("unexpected binding %s", key)
			continue
		}
		if b.Sync != want.sync {
			t.Errorf("%s sync = %v, want %v", key, b.Sync, want.sync)
		}
		if err := b.Run(context.Background()); err != nil {
			t.Errorf("%s: %v", key, err)
		}
		select {
		case got := <-rec.calls:
			if got != want.method {
				t.Errorf("%s called %s, want %s", key, got, want.method)
			}
		case <-time.After(time.Second):
			t.Errorf("%s did not call %s", key, want.method)
		}
	}
}

func TestBindings_DayFilePatterns(t *testing.T) {
	for _, b := range Bindings(newRecorder()) {
		switch b.Name {
		case "BufWinEnter", "BufLeave", "TextChanged,TextChangedI":
			if b.Pattern != "*.md" {
				t.Errorf("%s pattern = %q, want *.md", b.Name, b.Pattern)
			}
		}
	}
}

func TestManifest_SyncFlags(t *testing.T) {
	m := string(Manifest("tempo"))
	specs := strings.Split(m, "{'type'")
	for _, b := range Bindings(nopController{}) {
		var spec string
		for _, s := range specs {
			if strings.Contains(s, "'name': '"+b.Name+"'") {
				spec = s
				break
			}
		}
		if spec == "" {
			t.Errorf("manifest missing %s:\n%s", b.Name, m)
			continue
		}
		if got := strings.Contains(spec, "'sync': 1"); got != b.Sync {
			t.Errorf("%s registered sync = %v, want %v:\n%s", b.Name, got, b.Sync, spec)
		}
	}
	if !strings.Contains(m, "*.md") {
		t.Errorf("manifest missing day file pattern:\n%s", m)
	}
}
