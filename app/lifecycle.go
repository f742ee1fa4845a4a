package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
	"github.com/zclconf/go-cty/cty"
)

// ActivationOption is the built-in option listing plugin names to activate
// in addition to those requested in code. It may be given in the config file
// or repeated on the command line.
const ActivationOption = "plugin"

// Initialize resolves options and initializes the requested plugins plus
// every plugin named by the activation option, each call recursing through
// dependencies first. The first configuration-level error aborts the
// sequence; already-initialized plugins are left as they are.
func (a *App) Initialize(ctx context.Context, requested ...plugin.Plugin) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.opts == nil {
		vals, err := a.resolveOptions(ctx)
		if err != nil {
			return fmt.Errorf("resolve options: %w", err)
		}
		a.opts = vals
	}

	targets := make([]plugin.Plugin, 0, len(requested))
	targets = append(targets, requested...)

	activated, err := a.opts.StringList(ActivationOption)
	if err != nil {
		return err
	}
	for _, name := range activated {
		p, ok := a.Lookup(name)
		if !ok {
			return fmt.Errorf("option '%s' names unknown plugin '%s'", ActivationOption, name)
		}
		targets = append(targets, p)
	}

	for _, p := range targets {
		if err := p.Initialize(ctx, a.opts); err != nil {
			a.logger.Error("Plugin initialization failed, aborting startup.", "plugin", p.Name(), "error", err)
			return err
		}
	}
	a.logger.Debug("All requested plugins initialized.", "count", len(a.initialized))
	return nil
}

// Startup starts every initialized plugin in initialization order. Each call
// recurses through dependencies first, so the started-completion order also
// places every dependency before its dependents.
func (a *App) Startup(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	for i := 0; i < len(a.initialized); i++ {
		if err := a.initialized[i].Startup(ctx); err != nil {
			a.logger.Error("Plugin startup failed.", "plugin", a.initialized[i].Name(), "error", err)
			return err
		}
	}
	a.logger.Info("🚀 All plugins started.", "order", a.StartedOrder())
	return nil
}

// Start is Initialize followed by Startup: the whole bring-up sequence for
// the requested set plus the config-activated set.
func (a *App) Start(ctx context.Context, requested ...plugin.Plugin) error {
	if err := a.Initialize(ctx, requested...); err != nil {
		return err
	}
	return a.Startup(ctx)
}

// Shutdown walks the started-completion list in reverse, stopping each
// plugin. Because dependents always completed startup after their
// dependencies, a plugin's OnShutdown hook may assume all of its
// dependencies are still alive when it runs; this is a guaranteed invariant.
//
// Hook errors and panics are logged and swallowed so one misbehaving plugin
// cannot block teardown of the rest. The reactor is released at the end;
// the App is not reusable afterwards.
func (a *App) Shutdown(ctx context.Context) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	for i := len(a.started) - 1; i >= 0; i-- {
		a.shutdownOne(ctx, a.started[i])
	}
	a.reactor.Release()
	a.logger.Info("🏁 Shutdown complete.")
}

func (a *App) shutdownOne(ctx context.Context, p plugin.Plugin) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Plugin shutdown panicked.", "plugin", p.Name(), "panic", r)
		}
	}()
	if err := p.Shutdown(ctx); err != nil {
		a.logger.Error("Plugin shutdown failed.", "plugin", p.Name(), "error", err)
	}
}

// Exec blocks until Quit is called, the context is canceled, or SIGINT or
// SIGTERM arrives, then runs Shutdown.
func (a *App) Exec(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logger.Info("Signal received, shutting down.", "signal", sig.String())
	case <-a.quitCh:
		a.logger.Info("Quit requested, shutting down.")
	case <-ctx.Done():
		a.logger.Info("Context canceled, shutting down.")
	}
	a.Shutdown(ctx)
}

// Quit unblocks Exec. Safe to call from any goroutine, any number of times.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quitCh) })
}

// Run is the full daemon lifecycle: Start, then Exec until quit or signal.
func (a *App) Run(ctx context.Context, requested ...plugin.Plugin) error {
	if err := a.Start(ctx, requested...); err != nil {
		return err
	}
	a.Exec(ctx)
	return nil
}

// PluginInitialized appends p to the initialized-completion list. Called
// only by plugin.Base, never by user code.
func (a *App) PluginInitialized(p plugin.Plugin) {
	a.initialized = append(a.initialized, p)
}

// PluginStarted appends p to the started-completion list. Called only by
// plugin.Base, never by user code.
func (a *App) PluginStarted(p plugin.Plugin) {
	a.started = append(a.started, p)
}

// resolveOptions collects every registered plugin's schemas plus the
// built-in activation option and resolves them through the loader. With no
// loader, declared defaults are used as-is.
func (a *App) resolveOptions(ctx context.Context) (options.Values, error) {
	cli := options.NewSchema()
	cfg := options.NewSchema()
	cfg.Add(ActivationOption, cty.List(cty.String), cty.ListValEmpty(cty.String),
		"Plugin(s) to activate; may be specified multiple times.")

	for _, p := range a.regOrder {
		p.DeclareOptions(cli, cfg)
	}

	if a.loader == nil {
		vals := options.Values{}
		for _, schema := range []*options.Schema{cli, cfg} {
			for _, d := range schema.Defs() {
				if !d.Required() {
					vals[d.Name] = d.Default
				}
			}
		}
		return vals, nil
	}
	return a.loader.Load(ctx, cli, cfg)
}
