// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamsReuse(t *testing.T) {
	s := NewStreams(2)

	b := s.Get()
	b.WriteString("payload")
	s.Put(b)
	require.Equal(t, 1, s.Len())

	again := s.Get()
	assert.Same(t, b, again)
	assert.Zero(t, again.Len(), "buffer must come back reset")
	assert.Equal(t, 0, s.Len())
}

func TestStreamsBounded(t *testing.T) {
	s := NewStreams(2)
	for i := 0; i < 5; i++ {
		s.Put(new(bytes.Buffer))
	}
	assert.Equal(t, 2, s.Len())

	big := bytes.NewBuffer(make([]byte, 0, maxRetainedBuffer+1))
	s.Clear()
	s.Put(big)
	assert.Equal(t, 0, s.Len(), "oversized buffers are not retained")
}

func TestStreamsClearKeepsStructure(t *testing.T) {
	s := NewStreams(4)
	s.Put(new(bytes.Buffer))
	s.Put(new(bytes.Buffer))

	s.Clear()
	require.Equal(t, 0, s.Len())

	// Still usable after clearing.
	s.Put(s.Get())
	assert.Equal(t, 1, s.Len())
}

func TestScratchBufferFromContext(t *testing.T) {
	s := NewScratch()
	ctx := WithScratch(context.Background(), s, "pool-0")

	first := ScratchBuffer(ctx, 16)
	require.Len(t, first, 16)
	first[0] = 0xAB

	second := ScratchBuffer(ctx, 8)
	require.Len(t, second, 8)
	assert.Equal(t, byte(0xAB), second[0], "same owner reuses the slot")
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestScratchBufferWithoutOwner(t *testing.T) {
	buf := ScratchBuffer(context.Background(), 4)
	assert.Len(t, buf, 4)
}

func TestSetClear(t *testing.T) {
	set := NewSet()
	set.Streams.Put(new(bytes.Buffer))
	set.Scratch.Buffer("w", 1)

	set.Clear()

	assert.Equal(t, 0, set.Streams.Len())
	assert.Equal(t, 0, set.Scratch.Len())
}
