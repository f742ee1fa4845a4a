package app

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
	"github.com/vk/plugstack/reactor"
)

// Config holds everything an App instance needs to run.
type Config struct {
	// Version is reported by Version() and printed by the -version flag.
	Version string
	// DataDir is where plugins keep their state. Defaults to "data-dir".
	DataDir string

	LogFormat string
	LogLevel  string
	// Workers sizes the shared reactor pool. Zero means reactor.DefaultSize.
	Workers int
}

// App is the composition registry: it exclusively owns every plugin
// instance, records the order plugins complete each lifecycle transition,
// and owns the method/channel slot stores and the shared reactor handle.
//
// Registration, Initialize and Startup are not internally synchronized; they
// run on a single orchestrating goroutine during bring-up. The slot stores
// and the reactor are safe for concurrent use after startup.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	cfg     *Config
	loader  options.Loader
	reactor *reactor.Reactor

	byDesc map[*plugin.Descriptor]plugin.Plugin
	byName map[string]plugin.Plugin
	// regOrder preserves registration order so option schemas are collected
	// deterministically.
	regOrder []plugin.Plugin

	// initialized and started are exact completion orders, append-only. A
	// dependency always precedes its dependents in both, because a plugin
	// reports completion only after its dependencies have.
	initialized []plugin.Plugin
	started     []plugin.Plugin

	opts options.Values

	methods   cmap.ConcurrentMap[string, any]
	channels  cmap.ConcurrentMap[string, any]
	methodMu  sync.Mutex
	channelMu sync.Mutex

	quitCh   chan struct{}
	quitOnce sync.Once
}

// New constructs an App with an isolated logger, a fresh reactor, and the
// given descriptors (plus their transitive dependencies) registered. loader
// may be nil, in which case options resolve to their declared defaults.
func New(outW io.Writer, cfg *Config, loader options.Loader, descriptors ...*plugin.Descriptor) (*App, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data-dir"
	}

	r, err := reactor.New(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create reactor: %w", err)
	}

	a := &App{
		outW:     outW,
		logger:   newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		cfg:      cfg,
		loader:   loader,
		reactor:  r,
		byDesc:   make(map[*plugin.Descriptor]plugin.Plugin),
		byName:   make(map[string]plugin.Plugin),
		methods:  cmap.New[any](),
		channels: cmap.New[any](),
		quitCh:   make(chan struct{}),
	}
	a.logger.Debug("App constructed.", "version", cfg.Version, "workers", cfg.Workers)

	for _, d := range descriptors {
		a.Register(d)
	}
	return a, nil
}

// Logger returns the application's isolated logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Reactor returns the shared execution handle. The same handle is passed to
// every channel the App builds.
func (a *App) Reactor() *reactor.Reactor { return a.reactor }

// Version returns the configured version string.
func (a *App) Version() string { return a.cfg.Version }

// DataDir returns the resolved data directory.
func (a *App) DataDir() string { return a.cfg.DataDir }

// Options returns the resolved option values. Nil before Initialize.
func (a *App) Options() options.Values { return a.opts }

// InitializedOrder returns the names of plugins that completed Initialize,
// in completion order.
func (a *App) InitializedOrder() []string {
	return pluginNames(a.initialized)
}

// StartedOrder returns the names of plugins that completed Startup, in
// completion order.
func (a *App) StartedOrder() []string {
	return pluginNames(a.started)
}

func pluginNames(ps []plugin.Plugin) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}
