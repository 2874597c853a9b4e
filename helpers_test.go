// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/admin/cache"
)

type pingRequest struct {
	Name string
}

type pingResponse struct {
	Message string
}

var (
	pingAction  = NewAction[pingRequest, pingResponse]("ping", nil)
	pingCluster = NewClusterAction[pingRequest, pingResponse]("ping", nil)
)

func pingHandler() HandlerFunc[pingRequest, pingResponse] {
	return func(_ context.Context, _ *Client, req pingRequest) (pingResponse, error) {
		if req.Name == "" {
			return pingResponse{Message: "pong"}, nil
		}
		return pingResponse{Message: "pong " + req.Name}, nil
	}
}

type fakeTransport struct {
	closed       atomic.Bool
	panicOnClose bool
}

func (*fakeTransport) Call(context.Context, string, string, any, any) error { return nil }

func (t *fakeTransport) Close() error {
	if t.panicOnClose {
		panic("close exploded")
	}
	t.closed.Store(true)
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// newTestClient builds a client that never touches the network or the
// process-wide caches.
func newTestClient(t *testing.T, settings map[string]string, opts ...Option) *Client {
	t.Helper()
	s := NewSettingsBuilder().
		Put(SettingPathHome, t.TempDir()).
		PutMap(settings).
		Build()
	base := []Option{
		WithTransport(&fakeTransport{}),
		WithSharedState(cache.NewSet()),
		WithLogger(quietLogger()),
	}
	c, err := New(s, false, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// recorder is a Listener that remembers every notification it receives.
type recorder[T any] struct {
	mu        sync.Mutex
	responses []T
	failures  []error
	first     chan struct{}
	once      sync.Once
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{first: make(chan struct{})}
}

func (r *recorder[T]) OnResponse(v T) {
	r.mu.Lock()
	r.responses = append(r.responses, v)
	r.mu.Unlock()
	r.once.Do(func() { close(r.first) })
}

func (r *recorder[T]) OnFailure(err error) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
	r.once.Do(func() { close(r.first) })
}

func (r *recorder[T]) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses), len(r.failures)
}
