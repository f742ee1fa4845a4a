package plugin

import (
	"context"
	"fmt"

	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/options"
)

// Base implements the dependency walk and state transitions shared by every
// plugin. A concrete plugin embeds *Base and supplies only its hooks:
//
//	type Plugin struct {
//		*plugin.Base
//	}
//
//	var Descriptor = &plugin.Descriptor{
//		Name:     "chain",
//		Requires: []*plugin.Descriptor{netplug.Descriptor},
//		New: func(host plugin.Host) plugin.Plugin {
//			p := &Plugin{}
//			p.Base = plugin.NewBase(host, Descriptor, p)
//			return p
//		},
//	}
//
// Base is not internally synchronized: registration, Initialize and Startup
// run on the single orchestrating goroutine during bring-up.
type Base struct {
	host  Host
	desc  *Descriptor
	hooks Hooks
	state State
}

// NewBase wires a plugin skeleton to its host, descriptor and hooks. hooks
// is normally the embedding plugin struct itself.
func NewBase(host Host, desc *Descriptor, hooks Hooks) *Base {
	if desc.Name == "" {
		panic("plugin: descriptor name must not be empty")
	}
	return &Base{host: host, desc: desc, hooks: hooks}
}

// Name returns the descriptor's stable name.
func (b *Base) Name() string { return b.desc.Name }

// State returns the current lifecycle state.
func (b *Base) State() State { return b.state }

// Describe returns the descriptor this instance was built from.
func (b *Base) Describe() *Descriptor { return b.desc }

// DeclareOptions declares nothing. Plugins with options shadow this method
// on the embedding struct.
func (b *Base) DeclareOptions(cli, cfg *options.Schema) {}

// Initialize moves the plugin from Registered to Initialized: dependencies
// first (depth-first), then the plugin's own OnInit, then completion is
// reported to the host. Calling it when already Initialized or Started is a
// no-op; calling it on a Stopped plugin panics.
//
// On a hook error the state remains Initialized and nothing is rolled back;
// the application is expected to terminate rather than run partially
// composed.
func (b *Base) Initialize(ctx context.Context, opts options.Values) error {
	switch b.state {
	case Registered:
		// proceed
	case Initialized, Started:
		return nil
	default:
		panic(fmt.Sprintf("plugin '%s': invalid lifecycle transition: initialize from %s", b.desc.Name, b.state))
	}

	b.state = Initialized
	for _, dep := range b.desc.Requires {
		p, ok := b.host.Lookup(dep.Name)
		if !ok {
			panic(fmt.Sprintf("plugin '%s': dependency '%s' was never registered", b.desc.Name, dep.Name))
		}
		if err := p.Initialize(ctx, opts); err != nil {
			return err
		}
	}
	if err := b.hooks.OnInit(ctx, opts); err != nil {
		return fmt.Errorf("initialize plugin '%s': %w", b.desc.Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Plugin initialized.", "plugin", b.desc.Name)
	b.host.PluginInitialized(b.self())
	return nil
}

// Startup moves the plugin from Initialized to Started, dependencies first.
// Calling it when already Started is a no-op; calling it on a plugin that
// was never initialized (or already stopped) panics.
func (b *Base) Startup(ctx context.Context) error {
	switch b.state {
	case Initialized:
		// proceed
	case Started:
		return nil
	default:
		panic(fmt.Sprintf("plugin '%s': invalid lifecycle transition: startup from %s", b.desc.Name, b.state))
	}

	b.state = Started
	for _, dep := range b.desc.Requires {
		p, ok := b.host.Lookup(dep.Name)
		if !ok {
			panic(fmt.Sprintf("plugin '%s': dependency '%s' was never registered", b.desc.Name, dep.Name))
		}
		if err := p.Startup(ctx); err != nil {
			return err
		}
	}
	if err := b.hooks.OnStart(ctx); err != nil {
		return fmt.Errorf("start plugin '%s': %w", b.desc.Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Plugin started.", "plugin", b.desc.Name)
	b.host.PluginStarted(b.self())
	return nil
}

// Shutdown moves the plugin from Started to Stopped. Dependencies are not
// walked: the registry tears all plugins down in reverse completion order,
// which guarantees this plugin's dependents are already stopped and its
// dependencies are still alive while OnShutdown runs. Calling it when
// already Stopped is a no-op; on a plugin that never started it panics.
func (b *Base) Shutdown(ctx context.Context) error {
	switch b.state {
	case Started:
		// proceed
	case Stopped:
		return nil
	default:
		panic(fmt.Sprintf("plugin '%s': invalid lifecycle transition: shutdown from %s", b.desc.Name, b.state))
	}

	b.state = Stopped
	ctxlog.FromContext(ctx).Debug("Plugin shutting down.", "plugin", b.desc.Name)
	return b.hooks.OnShutdown(ctx)
}

// self returns the outermost plugin value for completion reporting, so the
// registry's ordered lists hold the same instances Lookup returns.
func (b *Base) self() Plugin {
	if p, ok := b.hooks.(Plugin); ok {
		return p
	}
	return b
}
