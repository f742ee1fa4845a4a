// Package healthplug exposes liveness and readiness endpoints for the demo
// daemon. Readiness is tied to the application's shared reactor so the
// process reports unready once teardown begins.
package healthplug

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
	"github.com/zclconf/go-cty/cty"
)

// Descriptor registers the health plugin.
var Descriptor = &plugin.Descriptor{
	Name: "health",
}

func init() {
	Descriptor.New = func(host plugin.Host) plugin.Plugin {
		a, ok := host.(*app.App)
		if !ok {
			panic("healthplug: host must be an *app.App")
		}
		p := &Plugin{app: a}
		p.Base = plugin.NewBase(host, Descriptor, p)
		return p
	}
}

// Plugin serves /live and /ready.
type Plugin struct {
	*plugin.Base
	app *app.App

	addr    string
	handler healthcheck.Handler
	server  *http.Server
}

// DeclareOptions declares the health listen address.
func (p *Plugin) DeclareOptions(_, cfg *options.Schema) {
	cfg.Add("health-listen", cty.String, cty.StringVal(":9778"),
		"Address the health plugin serves /live and /ready on.")
}

// OnInit wires the checks.
func (p *Plugin) OnInit(_ context.Context, opts options.Values) error {
	addr, err := opts.String("health-listen")
	if err != nil {
		return err
	}
	p.addr = addr

	p.handler = healthcheck.NewHandler()
	p.handler.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(500))
	p.handler.AddReadinessCheck("reactor", func() error {
		if p.app.Reactor().Released() {
			return errors.New("reactor released")
		}
		return nil
	})
	return nil
}

// OnStart serves the checks in the background.
func (p *Plugin) OnStart(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	p.server = &http.Server{Addr: p.addr, Handler: p.handler}

	go func() {
		logger.Info("🩺 Health endpoints serving.", "addr", p.addr)
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server failed unexpectedly.", "error", err)
		}
	}()
	return nil
}

// OnShutdown drains the health server.
func (p *Plugin) OnShutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.server.Shutdown(shutdownCtx)
}
