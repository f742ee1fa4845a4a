// Package plugin defines the contract every composable plugin satisfies and
// the shared Base skeleton that implements the lifecycle state machine once.
//
// A plugin moves through four states, strictly in order:
//
//	Registered → Initialized → Started → Stopped
//
// Repeating a transition the plugin is already past is a silent no-op (this
// is what keeps the recursive dependency walk from doing duplicate work when
// two plugins share a dependency). Any other out-of-order call is a bug in
// the composing application and panics.
package plugin

import (
	"context"

	"github.com/vk/plugstack/options"
)

// State is a plugin's lifecycle position.
type State int

const (
	// Registered means the plugin is constructed but does nothing yet.
	Registered State = iota
	// Initialized means the plugin has set up its state but is idle.
	Initialized
	// Started means the plugin is actively running.
	Started
	// Stopped means the plugin is no longer running.
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Registered:
		return "registered"
	case Initialized:
		return "initialized"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Plugin is the capability surface every plugin exposes to the registry.
// Concrete plugins embed *Base, which provides everything except the three
// hook bodies.
type Plugin interface {
	// Name is the plugin's stable identity. Never empty, never changes.
	Name() string
	// State returns the current lifecycle state.
	State() State
	// DeclareOptions describes the plugin's options on the cli-only and
	// config-file schemas. Pure description; called once before any
	// activation.
	DeclareOptions(cli, cfg *options.Schema)
	// Initialize brings the plugin (and, first, its dependencies) to
	// Initialized. The returned error is a configuration-level failure and
	// aborts application startup.
	Initialize(ctx context.Context, opts options.Values) error
	// Startup brings the plugin (and, first, its dependencies) to Started.
	Startup(ctx context.Context) error
	// Shutdown stops this plugin only. Global reverse-completion-order
	// teardown is the registry's job, so dependencies are not walked here.
	Shutdown(ctx context.Context) error
	// Describe returns the descriptor this instance was built from.
	Describe() *Descriptor
}

// Hooks are the lifecycle bodies a concrete plugin supplies. Base invokes
// each at the right point in the state machine.
type Hooks interface {
	// OnInit runs plugin-specific initialization. An error here is the one
	// recoverable failure in the whole lifecycle; it aborts startup.
	OnInit(ctx context.Context, opts options.Values) error
	// OnStart begins the plugin's active work.
	OnStart(ctx context.Context) error
	// OnShutdown drains or cancels the plugin's outstanding work. Errors
	// are logged by the registry, never propagated, so one misbehaving
	// plugin cannot block teardown of the rest.
	OnShutdown(ctx context.Context) error
}

// Host is the registry surface Base needs: dependency lookup and completion
// reporting. It is implemented by app.App; plugins receive it at
// construction instead of reaching for a process-wide singleton.
type Host interface {
	// Register idempotently constructs the plugin described by d and,
	// transitively, everything it requires. Construction only — nothing is
	// activated.
	Register(d *Descriptor) Plugin
	// Lookup returns the instance registered under name, never constructing.
	Lookup(name string) (Plugin, bool)
	// PluginInitialized records that p completed Initialize. Called only by
	// Base.
	PluginInitialized(p Plugin)
	// PluginStarted records that p completed Startup. Called only by Base.
	PluginStarted(p Plugin)
}
