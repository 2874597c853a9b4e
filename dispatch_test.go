// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestExecutePing(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))

	f, err := Execute(ctx, c, pingAction, pingRequest{})
	require.NoError(t, err)

	resp, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, pingResponse{Message: "pong"}, resp)
}

func TestExecuteGhostFailsSynchronously(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))
	ghost := NewAction[pingRequest, pingResponse]("ghost", nil)

	f, err := Execute(ctx, c, ghost, pingRequest{})
	assert.Nil(t, f)
	require.True(t, IsNotFound(err), "got %v", err)

	rec := newRecorder[pingResponse]()
	err = ExecuteWithListener(ctx, c, ghost, pingRequest{}, rec)
	require.True(t, IsNotFound(err), "got %v", err)

	_, err = PrepareExecute(c, ghost).Execute(ctx)
	require.True(t, IsNotFound(err), "got %v", err)

	responses, failures := rec.counts()
	assert.Zero(t, responses)
	assert.Zero(t, failures)
	assert.Zero(t, c.Pool().Stats().Completed)
}

func TestListenerSlowHandler(t *testing.T) {
	ctx := testContext(t)
	slow := HandlerFunc[pingRequest, pingResponse](func(ctx context.Context, _ *Client, _ pingRequest) (pingResponse, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return pingResponse{Message: "slow"}, nil
		case <-ctx.Done():
			return pingResponse{}, ctx.Err()
		}
	})
	c := newTestClient(t, nil, WithActions(Bind("slow", slow)))
	action := NewAction[pingRequest, pingResponse]("slow", nil)

	rec := newRecorder[pingResponse]()
	start := time.Now()
	require.NoError(t, ExecuteWithListener(ctx, c, action, pingRequest{}, rec))

	select {
	case <-rec.first:
	case <-ctx.Done():
		t.Fatal("listener never fired")
	}
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// Give a stray second notification a chance to show up.
	time.Sleep(20 * time.Millisecond)
	responses, failures := rec.counts()
	assert.Equal(t, 1, responses)
	assert.Zero(t, failures)
	assert.Equal(t, "slow", rec.responses[0].Message)
}

func TestFutureAndListenerAgree(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))
	req := pingRequest{Name: "lux"}

	f, err := Execute(ctx, c, pingAction, req)
	require.NoError(t, err)
	fromFuture, err := f.Get(ctx)
	require.NoError(t, err)

	rec := newRecorder[pingResponse]()
	require.NoError(t, ExecuteWithListener(ctx, c, pingAction, req, rec))
	<-rec.first

	require.Len(t, rec.responses, 1)
	assert.Equal(t, fromFuture, rec.responses[0])
}

func TestBuilderMatchesExecute(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))
	named := func(r *pingRequest) { r.Name = "builder" }

	b := PrepareExecute(c, pingAction).With(named)
	assert.Equal(t, pingRequest{Name: "builder"}, b.Request())

	viaBuilder, err := b.Get(ctx)
	require.NoError(t, err)

	f, err := Execute(ctx, c, pingAction, pingRequest{Name: "builder"})
	require.NoError(t, err)
	direct, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, direct, viaBuilder)

	rec := newRecorder[pingResponse]()
	require.NoError(t, b.ExecuteWithListener(ctx, rec))
	<-rec.first
	require.Len(t, rec.responses, 1)
	assert.Equal(t, direct, rec.responses[0])
}

func TestBuilderStartsFromActionDefaults(t *testing.T) {
	action := NewAction[pingRequest, pingResponse]("ping", func() pingRequest {
		return pingRequest{Name: "default"}
	})
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))

	assert.Equal(t, "default", PrepareExecute(c, action).Request().Name)
	assert.Equal(t, "", PrepareExecute(c, pingAction).Request().Name)
}

func TestClusterFamilyMatchesGeneric(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))
	req := pingRequest{Name: "family"}

	f, err := Execute(ctx, c, pingAction, req)
	require.NoError(t, err)
	generic, err := f.Get(ctx)
	require.NoError(t, err)

	cf, err := ExecuteCluster(ctx, c, pingCluster, req)
	require.NoError(t, err)
	viaCluster, err := cf.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, generic, viaCluster)

	rec := newRecorder[pingResponse]()
	require.NoError(t, ExecuteClusterWithListener(ctx, c, pingCluster, req, rec))
	<-rec.first
	require.Len(t, rec.responses, 1)
	assert.Equal(t, generic, rec.responses[0])

	viaBuilder, err := PrepareExecuteCluster(c, pingCluster).With(func(r *pingRequest) { *r = req }).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, generic, viaBuilder)
}

func TestHandlerErrorIsWrapped(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("boom")
	failing := HandlerFunc[pingRequest, pingResponse](func(context.Context, *Client, pingRequest) (pingResponse, error) {
		return pingResponse{}, boom
	})
	c := newTestClient(t, nil, WithActions(Bind("ping", failing)))

	f, err := Execute(ctx, c, pingAction, pingRequest{})
	require.NoError(t, err)

	_, err = f.Get(ctx)
	require.ErrorIs(t, err, boom)
	var herr *HandlerExecutionError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "ping", herr.Action)
	assert.Len(t, herr.RequestID, 26)
}

func TestHandlerPanicBecomesFailure(t *testing.T) {
	ctx := testContext(t)
	onPool := HandlerFunc[pingRequest, pingResponse](func(context.Context, *Client, pingRequest) (pingResponse, error) {
		panic("pool boom")
	})
	inline := AsyncHandlerFunc[pingRequest, pingResponse](func(context.Context, *Client, pingRequest, Listener[pingResponse]) {
		panic("inline boom")
	})
	c := newTestClient(t, nil, WithActions(Bind("pool", onPool), Bind("inline", inline)))

	for _, name := range []string{"pool", "inline"} {
		t.Run(name, func(t *testing.T) {
			action := NewAction[pingRequest, pingResponse](name, nil)
			f, err := Execute(ctx, c, action, pingRequest{})
			require.NoError(t, err)

			_, err = f.Get(ctx)
			require.ErrorIs(t, err, errTaskPanicked)
			assert.Contains(t, err.Error(), name+" boom")
		})
	}

	// The pool keeps working after a task panics.
	c2 := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))
	_, err := PrepareExecute(c2, pingAction).Get(ctx)
	assert.NoError(t, err)
}

func TestListenerFiresExactlyOnce(t *testing.T) {
	ctx := testContext(t)
	chatty := AsyncHandlerFunc[pingRequest, pingResponse](func(_ context.Context, _ *Client, _ pingRequest, l Listener[pingResponse]) {
		l.OnResponse(pingResponse{Message: "first"})
		l.OnResponse(pingResponse{Message: "second"})
		l.OnFailure(errors.New("late"))
	})
	c := newTestClient(t, nil, WithActions(Bind("ping", chatty)))

	rec := newRecorder[pingResponse]()
	require.NoError(t, ExecuteWithListener(ctx, c, pingAction, pingRequest{}, rec))

	responses, failures := rec.counts()
	assert.Equal(t, 1, responses)
	assert.Zero(t, failures)
	assert.Equal(t, "first", rec.responses[0].Message)
}

type checkedRequest struct {
	Count int
}

func (r checkedRequest) Validate() error {
	if r.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func TestValidationFailureUsesCallerChannel(t *testing.T) {
	ctx := testContext(t)
	calls := 0
	h := HandlerFunc[checkedRequest, int](func(_ context.Context, _ *Client, r checkedRequest) (int, error) {
		calls++
		return r.Count * 2, nil
	})
	c := newTestClient(t, nil, WithActions(Bind("double", h)))
	double := NewAction[checkedRequest, int]("double", nil)

	f, err := Execute(ctx, c, double, checkedRequest{Count: -1})
	require.NoError(t, err)
	_, err = f.Get(ctx)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "double", verr.Action)
	assert.Zero(t, calls)

	f, err = Execute(ctx, c, double, checkedRequest{Count: 21})
	require.NoError(t, err)
	got, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestMismatchedTypes(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))

	wrongResponse := NewAction[pingRequest, string]("ping", nil)
	f, err := Execute(ctx, c, wrongResponse, pingRequest{})
	require.NoError(t, err)
	_, err = f.Get(ctx)
	assert.ErrorIs(t, err, ErrResponseType)

	wrongRequest := NewAction[string, pingResponse]("ping", nil)
	pf, err := Execute(ctx, c, wrongRequest, "not a ping")
	require.NoError(t, err)
	_, err = pf.Get(ctx)
	assert.ErrorIs(t, err, ErrRequestType)
}

func TestDispatchUntyped(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))

	rec := newRecorder[any]()
	require.NoError(t, c.Dispatch(ctx, "ping", pingRequest{Name: "raw"}, rec))
	<-rec.first
	require.Len(t, rec.responses, 1)
	assert.Equal(t, pingResponse{Message: "pong raw"}, rec.responses[0])

	assert.NoError(t, c.Dispatch(ctx, "ping", pingRequest{}, nil))
}

func TestFutureCancel(t *testing.T) {
	ctx := testContext(t)
	started := make(chan struct{})
	observed := make(chan error, 1)
	blocking := HandlerFunc[pingRequest, pingResponse](func(ctx context.Context, _ *Client, _ pingRequest) (pingResponse, error) {
		close(started)
		<-ctx.Done()
		observed <- ctx.Err()
		return pingResponse{}, ctx.Err()
	})
	c := newTestClient(t, nil, WithActions(Bind("ping", blocking)))

	f, err := Execute(ctx, c, pingAction, pingRequest{})
	require.NoError(t, err)
	<-started

	_, done, err := f.Poll()
	assert.False(t, done)
	assert.NoError(t, err)

	assert.True(t, f.Cancel())
	assert.False(t, f.Cancel())
	assert.True(t, f.IsCancelled())

	_, err = f.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, <-observed, context.Canceled)

	_, done, err = f.Poll()
	assert.True(t, done)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFutureCancelAfterCompletion(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t, nil, WithActions(Bind("ping", pingHandler())))

	f, err := Execute(ctx, c, pingAction, pingRequest{})
	require.NoError(t, err)
	<-f.Done()

	assert.False(t, f.Cancel())
	assert.False(t, f.IsCancelled())
	resp, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Message)
}

func TestFutureGetHonoursContext(t *testing.T) {
	f := newFuture[int](nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
