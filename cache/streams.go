// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"bytes"
	"sync"
)

const (
	// DefaultStreamsSize is the number of idle buffers Streams retains.
	DefaultStreamsSize = 64

	// maxRetainedBuffer keeps one oversized payload from pinning memory.
	maxRetainedBuffer = 1 << 20
)

// Streams is a bounded free list of *bytes.Buffer.
type Streams struct {
	mu   sync.Mutex
	free []*bytes.Buffer
	max  int
}

// NewStreams creates a free list retaining at most max idle buffers.
func NewStreams(max int) *Streams {
	if max <= 0 {
		max = DefaultStreamsSize
	}
	return &Streams{max: max}
}

// Get returns an empty buffer, reusing an idle one when available.
func (s *Streams) Get() *bytes.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.free); n > 0 {
		b := s.free[n-1]
		s.free[n-1] = nil
		s.free = s.free[:n-1]
		return b
	}
	return new(bytes.Buffer)
}

// Put returns b to the free list. The caller must not use b afterwards.
func (s *Streams) Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > maxRetainedBuffer {
		return
	}
	b.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.free) < s.max {
		s.free = append(s.free, b)
	}
}

// Len returns the number of idle buffers.
func (s *Streams) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.free)
}

// Clear drops all idle buffers. Buffers currently checked out are unaffected
// and may still be Put back.
func (s *Streams) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.free)
	s.free = s.free[:0]
}
