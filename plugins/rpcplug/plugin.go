// Package rpcplug is the demo RPC plugin: a small HTTP facade over the
// chain. It calls the chain through the Head method slot and tracks the
// latest block via the BlockApplied channel, never touching the chain
// plugin's concrete type beyond declaring the dependency.
package rpcplug

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/bus"
	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
	"github.com/vk/plugstack/plugins/chainplug"
	"github.com/zclconf/go-cty/cty"
)

// Descriptor registers the rpc plugin and its dependency on chain.
var Descriptor = &plugin.Descriptor{
	Name:     "rpc",
	Requires: []*plugin.Descriptor{chainplug.Descriptor},
}

func init() {
	Descriptor.New = func(host plugin.Host) plugin.Plugin {
		a, ok := host.(*app.App)
		if !ok {
			panic("rpcplug: host must be an *app.App")
		}
		p := &Plugin{app: a}
		p.Base = plugin.NewBase(host, Descriptor, p)
		return p
	}
}

// Plugin serves /head and /status over HTTP.
type Plugin struct {
	*plugin.Base
	app *app.App

	addr string
	head *bus.Method[struct{}, chainplug.HeadInfo]

	mu        sync.Mutex
	lastBlock chainplug.BlockInfo

	blockSub *bus.Subscription[chainplug.BlockInfo]
	server   *http.Server
}

// DeclareOptions declares the HTTP listen address.
func (p *Plugin) DeclareOptions(_, cfg *options.Schema) {
	cfg.Add("rpc-listen", cty.String, cty.StringVal(":9777"),
		"Address the rpc plugin serves HTTP on.")
}

// OnInit obtains the chain slots.
func (p *Plugin) OnInit(_ context.Context, opts options.Values) error {
	addr, err := opts.String("rpc-listen")
	if err != nil {
		return err
	}
	p.addr = addr

	p.head = app.ObtainMethod(p.app, chainplug.Head)
	p.blockSub = app.ObtainChannel(p.app, chainplug.BlockApplied).Subscribe(func(b chainplug.BlockInfo) {
		p.mu.Lock()
		p.lastBlock = b
		p.mu.Unlock()
	})
	return nil
}

// OnStart serves HTTP in the background.
func (p *Plugin) OnStart(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/head", p.handleHead)
	mux.HandleFunc("/status", p.handleStatus)
	p.server = &http.Server{Addr: p.addr, Handler: mux}

	go func() {
		logger.Info("RPC plugin serving.", "addr", p.addr)
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed unexpectedly.", "error", err)
		}
	}()
	return nil
}

// OnShutdown drains the HTTP server and detaches from the block channel.
func (p *Plugin) OnShutdown(ctx context.Context) error {
	p.blockSub.Cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.server.Shutdown(shutdownCtx)
}

func (p *Plugin) handleHead(w http.ResponseWriter, r *http.Request) {
	head, err := p.head.Call(r.Context(), struct{}{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, head)
}

func (p *Plugin) handleStatus(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	last := p.lastBlock
	p.mu.Unlock()
	writeJSON(w, last)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
