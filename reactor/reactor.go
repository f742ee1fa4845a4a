// Package reactor wraps the shared execution substrate that channel dispatch
// (and any plugin that wants to defer work) runs on. The composition core
// creates exactly one Reactor per App and hands the same handle to every
// channel it builds; it never drives the reactor itself.
package reactor

import (
	"github.com/panjf2000/ants/v2"
)

// DefaultSize is the pool size used when the application does not configure
// a worker count.
const DefaultSize = 8

// Reactor is a shared handle over a fixed-size goroutine pool. Handles are
// shared by pointer: every channel built by the same App holds the same
// Reactor.
type Reactor struct {
	pool *ants.Pool
}

// New creates a reactor backed by a pool of the given size. A size of zero
// or less falls back to DefaultSize.
func New(size int) (*Reactor, error) {
	if size <= 0 {
		size = DefaultSize
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Reactor{pool: pool}, nil
}

// Submit schedules a task on the pool. It blocks when all workers are busy
// and returns an error only after Release.
func (r *Reactor) Submit(task func()) error {
	return r.pool.Submit(task)
}

// Running returns the number of tasks currently executing.
func (r *Reactor) Running() int {
	return r.pool.Running()
}

// Released reports whether the reactor has been shut down.
func (r *Reactor) Released() bool {
	return r.pool.IsClosed()
}

// Release shuts the pool down. In-flight tasks finish; new submissions fail.
func (r *Reactor) Release() {
	r.pool.Release()
}
