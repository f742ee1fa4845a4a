// Package bus provides the typed endpoint slots plugins communicate through.
//
// A slot is named by a declaration key — a package-level variable shared (by
// import) between the plugin that provides an implementation and the plugins
// that consume it. Neither side ever references the other's concrete type.
// Methods are single-provider call slots; channels are multi-subscriber
// broadcast slots dispatched on the application's shared reactor.
//
// Slots are constructed lazily by the application registry, exactly once per
// declaration, and live for the rest of the process.
package bus
