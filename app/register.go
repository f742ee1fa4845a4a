package app

import (
	"fmt"

	"github.com/vk/plugstack/plugin"
)

// Register idempotently constructs the plugin described by d: if an instance
// already exists it is returned unchanged, otherwise one is built and
// stored, and every descriptor in d.Requires is registered recursively.
// Registration only constructs — nothing is initialized or started.
//
// Two distinct descriptors carrying the same name is a wiring bug and
// panics.
func (a *App) Register(d *plugin.Descriptor) plugin.Plugin {
	if p, ok := a.byDesc[d]; ok {
		return p
	}
	if _, taken := a.byName[d.Name]; taken {
		panic(fmt.Sprintf("app: plugin name '%s' registered by two different descriptors", d.Name))
	}

	a.logger.Debug("Registering plugin.", "plugin", d.Name, "requires", len(d.Requires))
	p := d.New(a)
	if p.Name() != d.Name {
		panic(fmt.Sprintf("app: plugin constructed from descriptor '%s' reports name '%s'", d.Name, p.Name()))
	}
	a.byDesc[d] = p
	a.byName[d.Name] = p
	a.regOrder = append(a.regOrder, p)

	// Store before walking dependencies so dependency cycles terminate at
	// the idempotence check above.
	for _, dep := range d.Requires {
		a.Register(dep)
	}
	return p
}

// Lookup returns the plugin registered under name. It never constructs.
func (a *App) Lookup(name string) (plugin.Plugin, bool) {
	p, ok := a.byName[name]
	return p, ok
}

// Find is the type-checked lookup: it returns the instance registered for d
// as the concrete type P. It reports not-found both when nothing is
// registered for d and when the registered instance is not a P — the latter
// signals an identity collision and is deliberately not a cast that could
// misbehave silently.
func Find[P plugin.Plugin](a *App, d *plugin.Descriptor) (P, bool) {
	var zero P
	p, ok := a.byDesc[d]
	if !ok {
		return zero, false
	}
	cp, ok := p.(P)
	if !ok {
		return zero, false
	}
	return cp, true
}
