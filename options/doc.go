// Package options carries the option-declaration and option-resolution
// boundary between the composition core and whatever parses configuration.
//
// Plugins describe the options they understand through two Schema objects
// (one for command-line-only options, one for options that may also appear
// in a config file). A Loader implementation resolves both schemas into a
// single Values map before any plugin is initialized. The core never parses
// anything itself; it only collects schemas and hands out resolved values.
package options
