// Package netplug is the demo network plugin: it owns a TCP listener and
// announces every inbound connection on the PeerConnected channel. It has no
// dependencies and sits at the bottom of the demo plugin stack.
package netplug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/bus"
	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
	"github.com/zclconf/go-cty/cty"
)

// PeerInfo is the event payload published for each inbound connection.
type PeerInfo struct {
	Addr string
}

// PeerConnected is the channel declaration other plugins subscribe to
// without importing any of this plugin's behavior.
var PeerConnected = bus.NewChannelKey[PeerInfo]("net.peer_connected")

// Descriptor registers the net plugin.
var Descriptor = &plugin.Descriptor{
	Name: "net",
}

func init() {
	Descriptor.New = func(host plugin.Host) plugin.Plugin {
		a, ok := host.(*app.App)
		if !ok {
			panic("netplug: host must be an *app.App")
		}
		p := &Plugin{app: a}
		p.Base = plugin.NewBase(host, Descriptor, p)
		return p
	}
}

// Plugin accepts TCP connections and broadcasts peer events.
type Plugin struct {
	*plugin.Base
	app *app.App

	addr  string
	peers *bus.Channel[PeerInfo]

	ln   net.Listener
	done chan struct{}
	wg   sync.WaitGroup
}

// DeclareOptions declares the listener address.
func (p *Plugin) DeclareOptions(_, cfg *options.Schema) {
	cfg.Add("net-listen", cty.String, cty.StringVal(":9776"),
		"Address the net plugin listens on for peer connections.")
}

// OnInit resolves options and obtains the peer channel slot.
func (p *Plugin) OnInit(_ context.Context, opts options.Values) error {
	addr, err := opts.String("net-listen")
	if err != nil {
		return err
	}
	p.addr = addr
	p.peers = app.ObtainChannel(p.app, PeerConnected)
	return nil
}

// OnStart binds the listener, retrying briefly in case the previous process
// instance still holds the port, then serves accepts in the background.
func (p *Plugin) OnStart(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	bind := func() error {
		ln, err := net.Listen("tcp", p.addr)
		if err != nil {
			logger.Warn("Listener bind failed, retrying.", "addr", p.addr, "error", err)
			return err
		}
		p.ln = ln
		return nil
	}
	if err := backoff.Retry(bind, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)); err != nil {
		return fmt.Errorf("bind '%s': %w", p.addr, err)
	}
	logger.Info("Net plugin listening.", "addr", p.ln.Addr().String())

	p.done = make(chan struct{})
	p.wg.Add(1)
	go p.acceptLoop()
	return nil
}

// OnShutdown closes the listener and waits for the accept loop to drain.
func (p *Plugin) OnShutdown(_ context.Context) error {
	close(p.done)
	err := p.ln.Close()
	p.wg.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Addr returns the bound listener address. Only valid while started.
func (p *Plugin) Addr() net.Addr {
	return p.ln.Addr()
}

func (p *Plugin) acceptLoop() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		p.peers.Publish(PeerInfo{Addr: conn.RemoteAddr().String()})
		conn.Close()
	}
}
