// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"sync"
)

// Scratch keeps one reusable byte slice per owner. Owners are pool workers,
// which run a single task at a time, so a slot is never shared concurrently.
type Scratch struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewScratch creates an empty scratch table.
func NewScratch() *Scratch {
	return &Scratch{slots: make(map[string][]byte)}
}

// Buffer returns owner's slot resized to size, growing it when needed.
func (s *Scratch) Buffer(owner string, size int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.slots[owner]
	if cap(buf) < size {
		buf = make([]byte, size)
		s.slots[owner] = buf
	}
	return buf[:size]
}

// Release drops owner's slot.
func (s *Scratch) Release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, owner)
}

// Len returns the number of owners holding a slot.
func (s *Scratch) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Clear drops every slot.
func (s *Scratch) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.slots)
}

type scratchKey struct{}

type scratchRef struct {
	scratch *Scratch
	owner   string
}

// WithScratch returns a context whose ScratchBuffer calls use owner's slot.
func WithScratch(ctx context.Context, s *Scratch, owner string) context.Context {
	return context.WithValue(ctx, scratchKey{}, scratchRef{scratch: s, owner: owner})
}

// ScratchBuffer returns a buffer of length size. Inside a pool task it is the
// worker's slot and must not be retained after the task returns; elsewhere it
// is freshly allocated.
func ScratchBuffer(ctx context.Context, size int) []byte {
	if ref, ok := ctx.Value(scratchKey{}).(scratchRef); ok && ref.scratch != nil {
		return ref.scratch.Buffer(ref.owner, size)
	}
	return make([]byte, size)
}
