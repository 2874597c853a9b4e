// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct{ id int }

func (*stubHandler) Execute(context.Context, *Client, any, Listener[any]) {}

func TestRegistryLookupReturnsRegisteredInstance(t *testing.T) {
	h1, h2 := &stubHandler{id: 1}, &stubHandler{id: 2}
	r, err := NewRegistry(Bind("ping", h1), Bind("pong", h2))
	require.NoError(t, err)

	got, err := r.Lookup("ping")
	require.NoError(t, err)
	assert.Same(t, h1, got)

	got, err = r.Lookup("pong")
	require.NoError(t, err)
	assert.Same(t, h2, got)

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has("ping"))
	assert.False(t, r.Has("ghost"))
}

func TestRegistryLookupUnknown(t *testing.T) {
	r, err := NewRegistry(Bind("ping", &stubHandler{}))
	require.NoError(t, err)

	h, err := r.Lookup("ghost")
	assert.Nil(t, h)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ghost", nf.Action)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	tests := []struct {
		name string
		regs []Registration
		want error
	}{
		{
			name: "duplicate",
			regs: []Registration{Bind("ping", &stubHandler{}), Bind("ping", &stubHandler{})},
			want: ErrDuplicateAction,
		},
		{
			name: "empty name",
			regs: []Registration{Bind("", &stubHandler{})},
			want: ErrInvalidRegistration,
		},
		{
			name: "nil handler",
			regs: []Registration{Bind("ping", nil)},
			want: ErrInvalidRegistration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.regs...)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegistryNames(t *testing.T) {
	r, err := NewRegistry(Bind("b", &stubHandler{}), Bind("a", &stubHandler{}), Bind("c", &stubHandler{}))
	require.NoError(t, err)

	names := r.Names()
	assert.Equal(t, []string{"a", "b", "c"}, names)

	names[0] = "mutated"
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
}

func TestEmptyRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Names())
	_, err = r.Lookup("anything")
	assert.True(t, IsNotFound(err))
}
