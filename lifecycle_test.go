// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/admin/cache"
)

func TestCloseWithNoWork(t *testing.T) {
	shared := cache.NewSet()
	tr := &fakeTransport{}
	c := newTestClient(t, nil, WithSharedState(shared), WithTransport(tr))

	shared.Streams.Put(shared.Streams.Get())
	shared.Scratch.Buffer("caller", 32)
	require.Equal(t, 1, shared.Streams.Len())
	require.Equal(t, 1, shared.Scratch.Len())

	start := time.Now()
	require.NoError(t, c.Close())
	assert.Less(t, time.Since(start), DefaultShutdownTimeout)

	assert.Equal(t, StateClosed, c.State())
	assert.True(t, c.Pool().IsTerminated())
	assert.True(t, tr.closed.Load())
	assert.Zero(t, shared.Streams.Len())
	assert.Zero(t, shared.Scratch.Len())
}

func TestCloseTwice(t *testing.T) {
	c := newTestClient(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Go(func() { assert.NoError(t, c.Close()) })
		}
		wg.Wait()
		assert.NoError(t, c.Close())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close deadlocked")
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestNoWorkAfterClose(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))
	require.NoError(t, c.Close())

	_, err := Execute(ctx, c, pingAction, pingRequest{})
	assert.ErrorIs(t, err, ErrClosed)

	err = ExecuteWithListener(ctx, c, pingAction, pingRequest{}, newRecorder[pingResponse]())
	assert.ErrorIs(t, err, ErrClosed)

	err = c.Pool().Submit(ctx, func(context.Context) {}, nil)
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestCloseForcesStuckWork(t *testing.T) {
	ctx := testContext(t)
	started := make(chan struct{}, 1)
	stuck := HandlerFunc[pingRequest, pingResponse](func(ctx context.Context, _ *Client, _ pingRequest) (pingResponse, error) {
		started <- struct{}{}
		<-ctx.Done()
		return pingResponse{}, ctx.Err()
	})
	c := newTestClient(t, map[string]string{
		SettingShutdownTimeout: "50ms",
		SettingPoolSize:        "1",
	}, WithActions(Bind("ping", stuck), Bind("ping2", pingHandler())))

	running, err := Execute(ctx, c, pingAction, pingRequest{})
	require.NoError(t, err)
	<-started

	queued, err := Execute(ctx, c, NewAction[pingRequest, pingResponse]("ping2", nil), pingRequest{})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, c.Close())
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)

	_, err = running.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = queued.Get(ctx)
	assert.ErrorIs(t, err, ErrPoolTerminated)
}

func TestCloseSurvivesFailingStep(t *testing.T) {
	shared := cache.NewSet()
	c := newTestClient(t, nil,
		WithSharedState(shared),
		WithTransport(&fakeTransport{panicOnClose: true}),
	)
	shared.Scratch.Buffer("caller", 8)

	assert.NotPanics(t, func() { assert.NoError(t, c.Close()) })
	assert.Equal(t, StateClosed, c.State())
	assert.Zero(t, shared.Scratch.Len(), "later steps still run")
}

func TestRunShutdownStep(t *testing.T) {
	assert.Nil(t, runShutdownStep(shutdownStep{name: "ok", run: func() error { return nil }}))

	err := runShutdownStep(shutdownStep{name: "explode", run: func() error { panic("nope") }})
	require.NotNil(t, err)
	assert.Equal(t, "explode", err.Step)
	assert.Contains(t, err.Error(), "panic: nope")
}

func TestCloseUnregistersMetrics(t *testing.T) {
	ctx := testContext(t)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, nil, WithMetrics(reg), WithActions(Bind("ping", pingHandler())))

	_, err := PrepareExecute(c, pingAction).Get(ctx)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["luxadmin_dispatch_total"])
	assert.True(t, names["luxadmin_pool_queue_depth"])

	require.NoError(t, c.Close())
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "State(7)", State(7).String())
}
