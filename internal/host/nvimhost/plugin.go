package nvimhost

import (
	"context"
	"log/slog"

	"github.com/neovim/go-client/nvim/plugin"

	"github.com/starford/tempo/internal/classify"
)

// Controller is the set of transitions bound to editor commands and events.
type Controller interface {
	Toggle(ctx context.Context) error
	Update(ctx context.Context) error
	AutoOpen(ctx context.Context)
	AutoClose(ctx context.Context)
	Close(ctx context.Context) error
	MaybeCloseIfInvisible(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Command names exposed to the editor.
const (
	CmdToggle                = "TimeTrackingToggle"
	CmdUpdate                = "TimeTrackingUpdate"
	CmdAutoOpen              = "TimeTrackingAutoOpen"
	CmdAutoClose             = "TimeTrackingAutoClose"
	CmdClose                 = "TimeTrackingClose"
	CmdMaybeCloseIfInvisible = "TimeTrackingMaybeCloseIfInvisible"
)

// Binding kinds.
const (
	KindCommand = "command"
	KindAutocmd = "autocmd"
)

// Binding ties one editor command or autocmd to a controller transition.
//
// Sync bindings are requests: the editor waits for the handler. Only events
// whose handlers cannot raise further bound events while the editor waits
// are sync. Everything else is a notification, delivered in order and never
// blocking the editor.
type Binding struct {
	Kind    string
	Name    string // command name or comma separated events
	Pattern string
	Sync    bool
	Run     func(ctx context.Context) error
}

// Bindings returns the command and autocmd table for ctrl.
//
// Commands are sync so their errors reach the user. QuitPre closes the
// preview before the editor decides whether it is the last window, and
// VimLeavePre wipes it before exit; both must finish first.
func Bindings(ctrl Controller) []Binding {
	autoOpen := background(ctrl.AutoOpen)
	autoClose := background(ctrl.AutoClose)
	return []Binding{
		{Kind: KindCommand, Name: CmdToggle, Sync: true, Run: ctrl.Toggle},
		{Kind: KindCommand, Name: CmdUpdate, Sync: true, Run: ctrl.Update},
		{Kind: KindCommand, Name: CmdClose, Sync: true, Run: ctrl.Close},
		{Kind: KindCommand, Name: CmdMaybeCloseIfInvisible, Sync: true, Run: ctrl.MaybeCloseIfInvisible},
		{Kind: KindCommand, Name: CmdAutoOpen, Sync: true, Run: autoOpen},
		{Kind: KindCommand, Name: CmdAutoClose, Sync: true, Run: autoClose},

		{Kind: KindAutocmd, Name: "TextChanged,TextChangedI", Pattern: classify.Pattern, Run: ctrl.Update},
		{Kind: KindAutocmd, Name: "VimEnter", Pattern: "*", Run: autoOpen},
		{Kind: KindAutocmd, Name: "BufWinEnter", Pattern: classify.Pattern, Run: autoOpen},
		{Kind: KindAutocmd, Name: "BufLeave", Pattern: classify.Pattern, Run: autoClose},
		{Kind: KindAutocmd, Name: "BufEnter,WinClosed,TabEnter", Pattern: "*", Run: ctrl.MaybeCloseIfInvisible},
		{Kind: KindAutocmd, Name: "QuitPre", Pattern: "*", Sync: true, Run: ctrl.Close},
		{Kind: KindAutocmd, Name: "VimLeavePre", Pattern: "*", Sync: true, Run: ctrl.Shutdown},
	}
}

// Register binds ctrl to commands and autocmds on p. Handlers use ctx as
// their parent context; cancelling it aborts pending settle delays.
func Register(ctx context.Context, p *plugin.Plugin, ctrl Controller, logger *slog.Logger) {
	for _, b := range Bindings(ctrl) {
		register(ctx, p, b, logger)
	}
}

// Manifest returns the remote-plugin manifest for the given host name.
func Manifest(hostName string) []byte {
	p := plugin.New(nil)
	Register(context.Background(), p, nopController{}, slog.Default())
	return p.Manifest(hostName)
}

// register picks the handler signature: go-client makes a handler with a
// return value a request and one without a notification.
func register(ctx context.Context, p *plugin.Plugin, b Binding, logger *slog.Logger) {
	call := func() error {
		if err := b.Run(ctx); err != nil {
			logger.Error("plugin: handler failed",
				slog.String("handler", b.Name),
				slog.String("error", err.Error()),
			)
			return err
		}
		return nil
	}
	notify := func() { _ = call() }

	switch b.Kind {
	case KindCommand:
		opts := &plugin.CommandOptions{Name: b.Name}
		if b.Sync {
			p.HandleCommand(opts, call)
		} else {
			p.HandleCommand(opts, notify)
		}
	case KindAutocmd:
		opts := &plugin.AutocmdOptions{Event: b.Name, Pattern: b.Pattern}
		if b.Sync {
			p.HandleAutocmd(opts, call)
		} else {
			p.HandleAutocmd(opts, notify)
		}
	}
}

// background runs fn on its own goroutine so a settle delay never holds up
// the editor or later events.
func background(fn func(context.Context)) func(context.Context) error {
	return func(ctx context.Context) error {
		go fn(ctx)
		return nil
	}
}

type nopController struct{}

func (nopController) Toggle(context.Context) error                { return nil }
func (nopController) Update(context.Context) error                { return nil }
func (nopController) AutoOpen(context.Context)                    {}
func (nopController) AutoClose(context.Context)                   {}
func (nopController) Close(context.Context) error                 { return nil }
func (nopController) MaybeCloseIfInvisible(context.Context) error { return nil }
func (nopController) Shutdown(context.Context) error              { return nil }
