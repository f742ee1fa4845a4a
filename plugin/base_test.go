package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstack/options"
	"github.com/vk/plugstack/plugin"
)

// testPlugin records its hook invocations into a shared event log.
type testPlugin struct {
	*plugin.Base
	tag      string
	events   *[]string
	initErr  error
	startErr error
}

func (p *testPlugin) OnInit(_ context.Context, _ options.Values) error {
	if p.initErr != nil {
		return p.initErr
	}
	*p.events = append(*p.events, "init:"+p.tag)
	return nil
}

func (p *testPlugin) OnStart(_ context.Context) error {
	if p.startErr != nil {
		return p.startErr
	}
	*p.events = append(*p.events, "start:"+p.tag)
	return nil
}

func (p *testPlugin) OnShutdown(_ context.Context) error {
	*p.events = append(*p.events, "stop:"+p.tag)
	return nil
}

func newTestDescriptor(name string, events *[]string, requires ...*plugin.Descriptor) *plugin.Descriptor {
	d := &plugin.Descriptor{Name: name, Requires: requires}
	d.New = func(host plugin.Host) plugin.Plugin {
		p := &testPlugin{tag: name, events: events}
		p.Base = plugin.NewBase(host, d, p)
		return p
	}
	return d
}

// fakeHost is a minimal registry standing in for app.App.
type fakeHost struct {
	plugins     map[string]plugin.Plugin
	initialized []string
	started     []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{plugins: make(map[string]plugin.Plugin)}
}

func (h *fakeHost) Register(d *plugin.Descriptor) plugin.Plugin {
	if p, ok := h.plugins[d.Name]; ok {
		return p
	}
	p := d.New(h)
	h.plugins[d.Name] = p
	for _, dep := range d.Requires {
		h.Register(dep)
	}
	return p
}

func (h *fakeHost) Lookup(name string) (plugin.Plugin, bool) {
	p, ok := h.plugins[name]
	return p, ok
}

func (h *fakeHost) PluginInitialized(p plugin.Plugin) {
	h.initialized = append(h.initialized, p.Name())
}

func (h *fakeHost) PluginStarted(p plugin.Plugin) {
	h.started = append(h.started, p.Name())
}

func TestBase_LifecycleHappyPath(t *testing.T) {
	var events []string
	host := newFakeHost()
	p := host.Register(newTestDescriptor("solo", &events))
	ctx := context.Background()

	require.Equal(t, plugin.Registered, p.State())

	require.NoError(t, p.Initialize(ctx, nil))
	require.Equal(t, plugin.Initialized, p.State())

	require.NoError(t, p.Startup(ctx))
	require.Equal(t, plugin.Started, p.State())

	require.NoError(t, p.Shutdown(ctx))
	require.Equal(t, plugin.Stopped, p.State())

	assert.Equal(t, []string{"init:solo", "start:solo", "stop:solo"}, events)
	assert.Equal(t, []string{"solo"}, host.initialized)
	assert.Equal(t, []string{"solo"}, host.started)
}

func TestBase_DependenciesRunBeforeSelf(t *testing.T) {
	var events []string
	host := newFakeHost()
	b := newTestDescriptor("b", &events)
	a := newTestDescriptor("a", &events, b)
	p := host.Register(a)
	ctx := context.Background()

	require.NoError(t, p.Initialize(ctx, nil))
	require.NoError(t, p.Startup(ctx))

	assert.Equal(t, []string{"init:b", "init:a", "start:b", "start:a"}, events)
	assert.Equal(t, []string{"b", "a"}, host.initialized, "dependency must report completion first")
	assert.Equal(t, []string{"b", "a"}, host.started)
}

func TestBase_RepeatedCallsAreNoOps(t *testing.T) {
	var events []string
	host := newFakeHost()
	// Both plugins depend on shared; the second walk must not re-run hooks.
	shared := newTestDescriptor("shared", &events)
	left := newTestDescriptor("left", &events, shared)
	right := newTestDescriptor("right", &events, shared)
	host.Register(left)
	host.Register(right)
	ctx := context.Background()

	for _, name := range []string{"left", "right"} {
		p, ok := host.Lookup(name)
		require.True(t, ok)
		require.NoError(t, p.Initialize(ctx, nil))
		require.NoError(t, p.Startup(ctx))
	}

	assert.Equal(t, []string{
		"init:shared", "init:left", "start:shared", "start:left",
		"init:right", "start:right",
	}, events)
	assert.Equal(t, []string{"shared", "left", "right"}, host.initialized)
}

func TestBase_ShutdownTwiceIsNoOp(t *testing.T) {
	var events []string
	host := newFakeHost()
	p := host.Register(newTestDescriptor("solo", &events))
	ctx := context.Background()

	require.NoError(t, p.Initialize(ctx, nil))
	require.NoError(t, p.Startup(ctx))
	require.NoError(t, p.Shutdown(ctx))
	require.NoError(t, p.Shutdown(ctx))

	assert.Equal(t, []string{"init:solo", "start:solo", "stop:solo"}, events)
}

func TestBase_InvalidTransitionsPanic(t *testing.T) {
	ctx := context.Background()

	t.Run("startup before initialize", func(t *testing.T) {
		var events []string
		p := newFakeHost().Register(newTestDescriptor("p", &events))
		require.PanicsWithValue(t,
			"plugin 'p': invalid lifecycle transition: startup from registered",
			func() { _ = p.Startup(ctx) })
	})

	t.Run("shutdown before startup", func(t *testing.T) {
		var events []string
		p := newFakeHost().Register(newTestDescriptor("p", &events))
		require.NoError(t, p.Initialize(ctx, nil))
		require.Panics(t, func() { _ = p.Shutdown(ctx) })
	})

	t.Run("initialize after shutdown", func(t *testing.T) {
		var events []string
		p := newFakeHost().Register(newTestDescriptor("p", &events))
		require.NoError(t, p.Initialize(ctx, nil))
		require.NoError(t, p.Startup(ctx))
		require.NoError(t, p.Shutdown(ctx))
		require.Panics(t, func() { _ = p.Initialize(ctx, nil) })
	})
}

func TestBase_InitErrorPropagatesAndIsNotReported(t *testing.T) {
	var events []string
	host := newFakeHost()
	d := &plugin.Descriptor{Name: "broken"}
	bootErr := errors.New("resource unavailable")
	d.New = func(h plugin.Host) plugin.Plugin {
		p := &testPlugin{tag: "broken", events: &events, initErr: bootErr}
		p.Base = plugin.NewBase(h, d, p)
		return p
	}
	p := host.Register(d)

	err := p.Initialize(context.Background(), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, bootErr)

	// State advanced (no rollback), but completion was never reported.
	assert.Equal(t, plugin.Initialized, p.State())
	assert.Empty(t, host.initialized)
}

func TestBase_DependencyInitErrorPropagates(t *testing.T) {
	var events []string
	host := newFakeHost()
	bootErr := errors.New("dep exploded")
	dep := &plugin.Descriptor{Name: "dep"}
	dep.New = func(h plugin.Host) plugin.Plugin {
		p := &testPlugin{tag: "dep", events: &events, initErr: bootErr}
		p.Base = plugin.NewBase(h, dep, p)
		return p
	}
	top := newTestDescriptor("top", &events, dep)
	p := host.Register(top)

	err := p.Initialize(context.Background(), nil)
	require.ErrorIs(t, err, bootErr)
	assert.Empty(t, events, "top's own hook must not run when a dependency fails")
	assert.Empty(t, host.initialized)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "registered", plugin.Registered.String())
	assert.Equal(t, "initialized", plugin.Initialized.String())
	assert.Equal(t, "started", plugin.Started.String())
	assert.Equal(t, "stopped", plugin.Stopped.String())
}
