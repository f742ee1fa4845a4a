// Package app contains the composition registry. It defines the App struct
// that owns every plugin instance, sequences the global
// initialize→startup→shutdown lifecycle, and hands out the typed method and
// channel slots plugins communicate through — decoupled from any specific
// entrypoint like a CLI or server.
//
// An App is constructed explicitly and passed explicitly; there is no
// process-wide singleton. Construct one per process, register descriptors,
// call Start (or Run), and tear down with Shutdown.
package app
