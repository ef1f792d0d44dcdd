// Package parallel runs independent compute workgroups on a fixed set of
// worker goroutines.
package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("parallel: dispatcher is closed")

// GroupID identifies a workgroup in a two-dimensional dispatch grid.
type GroupID struct {
	X, Y int
}

// Dispatcher executes workgroups of a dispatch grid.
//
// Workgroups have no ordering guarantee and never communicate, so they are
// fed to the workers from a single queue in row-major order. Each worker
// runs one group at a time; a group may start goroutines of its own.
//
// Thread safety: Dispatcher is safe for concurrent use. Concurrent Dispatch
// calls share the workers.
type Dispatcher struct {
	workers int

	// queue carries group tasks to the workers.
	queue chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// mu keeps Close from stopping the workers while a dispatch is still
	// queueing groups.
	mu      sync.RWMutex
	running atomic.Bool
}

// NewDispatcher creates a dispatcher with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	d := &Dispatcher{
		workers: workers,
		queue:   make(chan func(), max(workers*4, 8)),
		done:    make(chan struct{}),
	}
	d.running.Store(true)

	d.wg.Add(workers)
	for range workers {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case task := <-d.queue:
			task()
		}
	}
}

// Dispatch runs fn for every group of a groupsX x groupsY grid and waits
// for all of them to return.
func (d *Dispatcher) Dispatch(groupsX, groupsY int, fn func(GroupID)) error {
	if groupsX <= 0 || groupsY <= 0 {
		if !d.running.Load() {
			return ErrClosed
		}
		return nil
	}

	d.mu.RLock()
	if !d.running.Load() {
		d.mu.RUnlock()
		return ErrClosed
	}

	var pending sync.WaitGroup
	pending.Add(groupsX * groupsY)
	for y := range groupsY {
		for x := range groupsX {
			id := GroupID{X: x, Y: y}
			d.queue <- func() {
				defer pending.Done()
				fn(id)
			}
		}
	}
	d.mu.RUnlock()

	pending.Wait()
	return nil
}

// Close stops the workers after the groups already queued have run.
// Close is safe to call multiple times.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.running.CompareAndSwap(true, false) {
		d.mu.Unlock()
		return
	}
	close(d.done)
	d.mu.Unlock()
	d.wg.Wait()

	// Run anything a worker did not pick up before stopping.
	for {
		select {
		case task := <-d.queue:
			task()
		default:
			return
		}
	}
}

// Workers returns the number of workers.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// IsRunning reports whether the dispatcher accepts work.
func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}
