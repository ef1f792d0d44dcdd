// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "sync"

// Barrier is a reusable rendezvous for a fixed number of goroutines: the
// CPU counterpart of a workgroup memory barrier with group sync. No goroutine
// returns from Wait until all parties have called it, and every write made
// before Wait is visible to every party after it.
type Barrier struct {
	mu      sync.Mutex
	cond    sync.Cond
	parties int
	waiting int
	phase   uint64
}

// NewBarrier returns a barrier for parties goroutines.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond.L = &b.mu
	return b
}

// Wait blocks until all parties reach the barrier.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	phase := b.phase
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.phase++
		b.cond.Broadcast()
		return
	}
	for phase == b.phase {
		b.cond.Wait()
	}
}
