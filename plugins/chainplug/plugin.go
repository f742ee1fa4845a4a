// Package chainplug is the demo chain plugin: it produces a block every
// interval, broadcasts each block on the BlockApplied channel, and answers
// head queries through the Head method slot. It depends on the net plugin
// and counts the peers it announces.
package chainplug

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/bus"
	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
	"github.com/vk/plugstack/plugins/netplug"
	"github.com/zclconf/go-cty/cty"
)

// BlockInfo is the event payload broadcast for every applied block.
type BlockInfo struct {
	Height uint64
	Time   time.Time
}

// HeadInfo answers a head query.
type HeadInfo struct {
	Height uint64
	Peers  int64
}

// BlockApplied is broadcast after each block is applied.
var BlockApplied = bus.NewChannelKey[BlockInfo]("chain.block_applied")

// Head is the single-provider query slot this plugin binds.
var Head = bus.NewMethodKey[struct{}, HeadInfo]("chain.head")

// Descriptor registers the chain plugin and its dependency on net.
var Descriptor = &plugin.Descriptor{
	Name:     "chain",
	Requires: []*plugin.Descriptor{netplug.Descriptor},
}

func init() {
	Descriptor.New = func(host plugin.Host) plugin.Plugin {
		a, ok := host.(*app.App)
		if !ok {
			panic("chainplug: host must be an *app.App")
		}
		p := &Plugin{app: a}
		p.Base = plugin.NewBase(host, Descriptor, p)
		return p
	}
}

// Plugin maintains the demo chain state.
type Plugin struct {
	*plugin.Base
	app *app.App

	interval time.Duration
	height   atomic.Uint64
	peers    atomic.Int64

	blocks  *bus.Channel[BlockInfo]
	peerSub *bus.Subscription[netplug.PeerInfo]

	stop chan struct{}
	wg   sync.WaitGroup
}

// DeclareOptions declares the block production interval.
func (p *Plugin) DeclareOptions(_, cfg *options.Schema) {
	cfg.Add("chain-block-interval", cty.String, cty.StringVal("2s"),
		"Interval between produced blocks, as a Go duration.")
}

// OnInit binds the Head method, obtains the block channel, and subscribes to
// peer announcements.
func (p *Plugin) OnInit(_ context.Context, opts options.Values) error {
	raw, err := opts.String("chain-block-interval")
	if err != nil {
		return err
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("option 'chain-block-interval': %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("option 'chain-block-interval' must be positive, got %s", interval)
	}
	p.interval = interval

	p.blocks = app.ObtainChannel(p.app, BlockApplied)
	p.peerSub = app.ObtainChannel(p.app, netplug.PeerConnected).Subscribe(func(netplug.PeerInfo) {
		p.peers.Add(1)
	})

	app.ObtainMethod(p.app, Head).Bind(func(context.Context, struct{}) (HeadInfo, error) {
		return HeadInfo{Height: p.height.Load(), Peers: p.peers.Load()}, nil
	})
	return nil
}

// OnStart begins block production.
func (p *Plugin) OnStart(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Chain plugin producing blocks.", "interval", p.interval.String())

	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.produce()
	return nil
}

// OnShutdown stops block production and detaches from the peer channel. The
// net plugin is still alive here (reverse-completion-order teardown), so the
// subscription is cancelled cleanly before the channel goes quiet.
func (p *Plugin) OnShutdown(_ context.Context) error {
	close(p.stop)
	p.wg.Wait()
	p.peerSub.Cancel()
	return nil
}

func (p *Plugin) produce() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case t := <-ticker.C:
			h := p.height.Add(1)
			p.blocks.Publish(BlockInfo{Height: h, Time: t})
		}
	}
}
