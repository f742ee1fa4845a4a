package bus

import (
	"log/slog"
	"sync"

	"github.com/vk/plugstack/reactor"
)

// Channel is a typed broadcast slot. Any number of plugins publish; any
// number subscribe. Callbacks run on the shared reactor, in FIFO order per
// subscription, with no ordering guarantee across subscriptions or across
// distinct channels.
type Channel[T any] struct {
	name string
	r    *reactor.Reactor

	mu   sync.Mutex
	subs []*Subscription[T]
}

// Subscription represents one subscriber's attachment to a channel.
type Subscription[T any] struct {
	ch *Channel[T]
	fn func(T)

	mu       sync.Mutex
	queue    []T
	draining bool
	canceled bool
}

// NewChannel constructs an empty channel dispatching on r. Application code
// obtains channels through the registry rather than calling this directly.
func NewChannel[T any](name string, r *reactor.Reactor) *Channel[T] {
	return &Channel[T]{name: name, r: r}
}

// Name returns the slot name.
func (c *Channel[T]) Name() string { return c.name }

// Reactor returns the execution handle this channel dispatches on. Every
// channel built by the same application shares the same handle.
func (c *Channel[T]) Reactor() *reactor.Reactor { return c.r }

// Subscribe registers fn to receive every subsequent publish. The callback
// runs on reactor goroutines and must be safe for whatever threads drive
// the reactor.
func (c *Channel[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{ch: c, fn: fn}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Publish broadcasts v to every current subscriber. It never blocks on
// subscriber work; each subscription drains its own queue serially on the
// reactor.
func (c *Channel[T]) Publish(v T) {
	c.mu.Lock()
	subs := make([]*Subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.enqueue(v)
	}
}

// Cancel detaches the subscription. Events already queued may still be
// delivered; no new events will be.
func (s *Subscription[T]) Cancel() {
	s.mu.Lock()
	s.canceled = true
	s.queue = nil
	s.mu.Unlock()

	c := s.ch
	c.mu.Lock()
	for i, sub := range c.subs {
		if sub == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

func (s *Subscription[T]) enqueue(v T) {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, v)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	if err := s.ch.r.Submit(s.drain); err != nil {
		// Reactor released during teardown; the event is dropped.
		slog.Warn("Channel dispatch dropped, reactor unavailable.", "channel", s.ch.name, "error", err)
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}
}

// drain delivers queued events one at a time. Only one drain task exists per
// subscription at any moment, which is what provides per-subscriber FIFO.
func (s *Subscription[T]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.canceled {
			s.draining = false
			s.mu.Unlock()
			return
		}
		v := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.fn(v)
	}
}
