// Package cli parses stackd's command line into an app configuration plus
// raw option overrides for the hclopts loader.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/plugstack/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options is everything parsed from the command line.
type Options struct {
	App        *app.Config
	ConfigPath string
	// Overrides feeds hclopts.Loader: option name → raw values, one per
	// occurrence of -plugin / -set.
	Overrides   map[string][]string
	ShowVersion bool
}

// listFlag accumulates repeated flag occurrences.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Parse processes command-line arguments. It returns the parsed Options, a
// boolean indicating the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("stackd", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stackd - a daemon composed from plugins.

Usage:
  stackd [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an .hcl config file or a directory of them.")
	dataDirFlag := flagSet.String("data-dir", "data-dir", "Directory plugins keep their state in.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Size of the shared reactor pool. 0 uses the default.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	var plugins listFlag
	flagSet.Var(&plugins, "plugin", "Plugin to activate; may be repeated.")
	var sets listFlag
	flagSet.Var(&sets, "set", "Override a plugin option as name=value; may be repeated.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	overrides := make(map[string][]string)
	for _, p := range plugins {
		overrides[app.ActivationOption] = append(overrides[app.ActivationOption], p)
	}
	for _, s := range sets {
		name, value, found := strings.Cut(s, "=")
		if !found || name == "" {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid -set value '%s': expected name=value", s)}
		}
		overrides[name] = append(overrides[name], value)
	}

	return &Options{
		App: &app.Config{
			DataDir:   *dataDirFlag,
			LogFormat: logFormat,
			LogLevel:  logLevel,
			Workers:   *workersFlag,
		},
		ConfigPath:  *configFlag,
		Overrides:   overrides,
		ShowVersion: *versionFlag,
	}, false, nil
}
