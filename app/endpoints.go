package app

import (
	"fmt"

	"github.com/vk/plugstack/bus"
)

// ObtainMethod returns the method slot for key, constructing it on first
// access and caching it for the process lifetime. This is the loose-binding
// point between a provider plugin and its callers: both obtain the slot by
// declaration key, neither depends on the other's concrete type.
//
// Two method keys sharing a name but carrying different request/response
// types is a declaration collision and panics.
func ObtainMethod[Req, Resp any](a *App, key *bus.MethodKey[Req, Resp]) *bus.Method[Req, Resp] {
	if v, ok := a.methods.Get(key.Name()); ok {
		return assertMethod[Req, Resp](key.Name(), v)
	}

	a.methodMu.Lock()
	defer a.methodMu.Unlock()
	if v, ok := a.methods.Get(key.Name()); ok {
		return assertMethod[Req, Resp](key.Name(), v)
	}
	m := bus.NewMethod[Req, Resp](key.Name())
	a.methods.Set(key.Name(), m)
	a.logger.Debug("Method slot constructed.", "slot", key.Name())
	return m
}

// ObtainChannel returns the broadcast channel for key, constructing it on
// first access with the App's shared reactor handle and caching it for the
// process lifetime.
//
// Two channel keys sharing a name but carrying different event types is a
// declaration collision and panics.
func ObtainChannel[T any](a *App, key *bus.ChannelKey[T]) *bus.Channel[T] {
	if v, ok := a.channels.Get(key.Name()); ok {
		return assertChannel[T](key.Name(), v)
	}

	a.channelMu.Lock()
	defer a.channelMu.Unlock()
	if v, ok := a.channels.Get(key.Name()); ok {
		return assertChannel[T](key.Name(), v)
	}
	c := bus.NewChannel[T](key.Name(), a.reactor)
	a.channels.Set(key.Name(), c)
	a.logger.Debug("Channel slot constructed.", "slot", key.Name())
	return c
}

func assertMethod[Req, Resp any](name string, v any) *bus.Method[Req, Resp] {
	m, ok := v.(*bus.Method[Req, Resp])
	if !ok {
		panic(fmt.Sprintf("app: method slot '%s' already constructed with a different signature", name))
	}
	return m
}

func assertChannel[T any](name string, v any) *bus.Channel[T] {
	c, ok := v.(*bus.Channel[T])
	if !ok {
		panic(fmt.Sprintf("app: channel slot '%s' already constructed with a different event type", name))
	}
	return c
}
