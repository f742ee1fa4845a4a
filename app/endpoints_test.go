package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/bus"
)

type pingEvent struct{ Seq int }

func TestObtainChannel_ConstructsOnceAndSharesReactor(t *testing.T) {
	a := newApp(t)
	key := bus.NewChannelKey[pingEvent]("test.ping")

	first := app.ObtainChannel(a, key)
	second := app.ObtainChannel(a, key)
	third := app.ObtainChannel(a, key)

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Same(t, first, third)
	assert.Same(t, a.Reactor(), first.Reactor(),
		"channels must dispatch on the App's shared execution handle")
}

func TestObtainMethod_ConstructsOnce(t *testing.T) {
	a := newApp(t)
	key := bus.NewMethodKey[int, string]("test.render")

	first := app.ObtainMethod(a, key)
	second := app.ObtainMethod(a, key)

	assert.Same(t, first, second)

	// The slot is live: binding through one reference serves calls through
	// the other.
	first.Bind(func(_ context.Context, n int) (string, error) {
		if n == 42 {
			return "answer", nil
		}
		return "question", nil
	})
	out, err := second.Call(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestObtainMethod_SignatureCollisionPanics(t *testing.T) {
	a := newApp(t)
	app.ObtainMethod(a, bus.NewMethodKey[int, string]("test.collide"))

	require.Panics(t, func() {
		app.ObtainMethod(a, bus.NewMethodKey[string, string]("test.collide"))
	})
}

func TestObtainChannel_EventTypeCollisionPanics(t *testing.T) {
	a := newApp(t)
	app.ObtainChannel(a, bus.NewChannelKey[pingEvent]("test.collide-ch"))

	require.Panics(t, func() {
		app.ObtainChannel(a, bus.NewChannelKey[int]("test.collide-ch"))
	})
}

func TestObtainChannel_DistinctKeysGetDistinctSlots(t *testing.T) {
	a := newApp(t)

	c1 := app.ObtainChannel(a, bus.NewChannelKey[pingEvent]("test.a"))
	c2 := app.ObtainChannel(a, bus.NewChannelKey[pingEvent]("test.b"))

	assert.NotSame(t, c1, c2)
}
