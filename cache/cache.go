// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache holds process-wide scratch state shared by admin clients and
// their transports.
//
// Two kinds of state live here:
//
//   - Streams: a bounded free list of encode buffers used by transports.
//   - Scratch: one reusable byte slice per pool worker.
//
// Both outlive any single client. A client closing only clears them; other
// clients in the same process keep using the same structures.
package cache

// Set bundles the shared state a client contributes to and clears on close.
type Set struct {
	Streams *Streams
	Scratch *Scratch
}

// NewSet creates an independent set. Most callers should use Default.
func NewSet() *Set {
	return &Set{
		Streams: NewStreams(DefaultStreamsSize),
		Scratch: NewScratch(),
	}
}

// Default is the process-wide set used when a client is not given its own.
var Default = NewSet()

// Clear drops every cached buffer in the set.
func (s *Set) Clear() {
	s.Streams.Clear()
	s.Scratch.Clear()
}
