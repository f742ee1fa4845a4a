package plugin

// Descriptor is the registration-time tag for a plugin type. Each plugin
// package exports exactly one Descriptor as a package-level variable; the
// variable's pointer identity is what the registry keys instances by, so
// there is never more than one instance per descriptor.
//
// Requires is the plugin's complete, fixed dependency list. The registry
// walks it; the plugin only owns the list.
type Descriptor struct {
	// Name is the stable identity instances of this plugin report. Must be
	// unique across all descriptors registered with one application.
	Name string
	// Requires enumerates the plugin's dependencies. Fixed at declaration
	// time and never changed afterward.
	Requires []*Descriptor
	// New constructs an instance. The registry passes itself as the Host.
	New func(host Host) Plugin
}
