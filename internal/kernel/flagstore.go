// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "sync/atomic"

// FlagBits is the number of difference flags packed into one word.
const FlagBits = 32

// FlagStore is the group-shared packed difference flag array. Bit i%32 of
// word i/32 is set when sample i is similar to sample i+1.
//
// Threads write the store only through Or, between the two group barriers.
// After the second barrier the store is read-only.
type FlagStore struct {
	words []atomic.Uint32
}

// NewFlagStore returns a store for groupSize samples.
func NewFlagStore(groupSize int) *FlagStore {
	return &FlagStore{words: make([]atomic.Uint32, groupSize/FlagBits)}
}

// Len returns the number of packed words.
func (s *FlagStore) Len() int { return len(s.words) }

// Reset clears one word. Each word is cleared by exactly one thread.
func (s *FlagStore) Reset(word int) { s.words[word].Store(0) }

// Or merges the flag of a sample. Neighbouring threads share words, so the
// merge is an atomic OR.
func (s *FlagStore) Or(sample int, similar bool) {
	var bit uint32
	if similar {
		bit = 1 << (sample % FlagBits)
	}
	s.words[sample/FlagBits].Or(bit)
}

// Snapshot copies the store into dst, which must hold Len words, and
// returns it.
func (s *FlagStore) Snapshot(dst []uint32) []uint32 {
	dst = dst[:len(s.words)]
	for i := range s.words {
		dst[i] = s.words[i].Load()
	}
	return dst
}
