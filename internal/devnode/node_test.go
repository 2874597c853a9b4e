// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package devnode

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/admin/cluster"
)

func newTestNode() *Node {
	return New(Config{
		ClusterName: "test",
		Nodes:       []string{"n0", "n1"},
		Indices:     map[string]int{"blocks": 2, "txs": 1},
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	n := newTestNode()

	resp, err := n.Health(ctx, &cluster.HealthRequest{})
	require.NoError(t, err)
	assert.Equal(t, "test", resp.ClusterName)
	assert.Equal(t, cluster.StatusGreen, resp.Status)
	assert.Equal(t, 2, resp.NumberOfNodes)
	assert.Equal(t, 3, resp.ActivePrimaryShards)
	assert.False(t, resp.TimedOut)

	resp, err = n.Health(ctx, &cluster.HealthRequest{Indices: []string{"txs"}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ActiveShards)

	resp, err = n.Health(ctx, &cluster.HealthRequest{WaitForNodes: 5})
	require.NoError(t, err)
	assert.True(t, resp.TimedOut)

	_, err = n.Health(ctx, &cluster.HealthRequest{Indices: []string{"missing"}})
	assert.ErrorIs(t, err, ErrNoSuchIndex)
}

func TestState(t *testing.T) {
	ctx := context.Background()
	n := newTestNode()

	resp, err := n.State(ctx, &cluster.StateRequest{Metadata: true, Nodes: true, Routing: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Version)
	assert.Len(t, resp.Nodes, 2)
	assert.Contains(t, resp.Nodes, resp.MasterNode)
	assert.Equal(t, []string{"blocks", "txs"}, resp.Metadata.Indices)
	assert.Len(t, resp.Routing["blocks"], 2)
	assert.Equal(t, "n0", resp.Routing["blocks"][0].Node)
	assert.Equal(t, "n1", resp.Routing["blocks"][1].Node)

	resp, err = n.State(ctx, &cluster.StateRequest{})
	require.NoError(t, err)
	assert.Nil(t, resp.Nodes)
	assert.Nil(t, resp.Metadata)
	assert.Nil(t, resp.Routing)
}

func TestNodesInfo(t *testing.T) {
	ctx := context.Background()
	n := newTestNode()

	all, err := n.NodesInfo(ctx, &cluster.NodesInfoRequest{})
	require.NoError(t, err)
	require.Len(t, all.Nodes, 2)
	assert.Equal(t, []string{"master", "data"}, all.Nodes[0].Roles)

	one, err := n.NodesInfo(ctx, &cluster.NodesInfoRequest{NodeIDs: []string{all.Nodes[1].ID}})
	require.NoError(t, err)
	require.Len(t, one.Nodes, 1)
	assert.Equal(t, "n1", one.Nodes[0].Name)

	none, err := n.NodesInfo(ctx, &cluster.NodesInfoRequest{NodeIDs: []string{"nobody"}})
	require.NoError(t, err)
	assert.Empty(t, none.Nodes)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	n := newTestNode()

	resp, err := n.UpdateSettings(ctx, &cluster.UpdateSettingsRequest{
		Persistent: map[string]string{"a": "1", "b": "2"},
		Transient:  map[string]string{"t": "x"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Acknowledged)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, resp.Persistent)

	resp, err = n.UpdateSettings(ctx, &cluster.UpdateSettingsRequest{Persistent: map[string]string{"a": ""}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "2"}, resp.Persistent)
	assert.Equal(t, map[string]string{"t": "x"}, resp.Transient)

	state, err := n.State(ctx, &cluster.StateRequest{Metadata: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, state.Version)

	_, err = n.UpdateSettings(ctx, &cluster.UpdateSettingsRequest{})
	assert.Error(t, err)
}

func TestReroute(t *testing.T) {
	ctx := context.Background()
	n := newTestNode()

	dry, err := n.Reroute(ctx, &cluster.RerouteRequest{
		DryRun:   true,
		Commands: []cluster.RerouteCommand{{Kind: cluster.CommandMove, Index: "txs", Shard: 0, FromNode: "n0", ToNode: "n1"}},
	})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, []string{"moved [txs][0] from n0 to n1"}, dry.Explanations)

	state, err := n.State(ctx, &cluster.StateRequest{Routing: true})
	require.NoError(t, err)
	assert.Equal(t, "n0", state.Routing["txs"][0].Node, "dry run leaves routing alone")

	_, err = n.Reroute(ctx, &cluster.RerouteRequest{
		Commands: []cluster.RerouteCommand{{Kind: cluster.CommandCancel, Index: "txs", Shard: 0, FromNode: "n0"}},
	})
	require.NoError(t, err)
	health, err := n.Health(ctx, &cluster.HealthRequest{WaitForStatus: cluster.StatusGreen})
	require.NoError(t, err)
	assert.Equal(t, cluster.StatusRed, health.Status)
	assert.Equal(t, 1, health.UnassignedShards)
	assert.True(t, health.TimedOut)

	_, err = n.Reroute(ctx, &cluster.RerouteRequest{
		Commands: []cluster.RerouteCommand{{Kind: cluster.CommandAllocate, Index: "txs", Shard: 0, ToNode: "n1"}},
	})
	require.NoError(t, err)
	health, err = n.Health(ctx, &cluster.HealthRequest{})
	require.NoError(t, err)
	assert.Equal(t, cluster.StatusGreen, health.Status)
}

func TestRerouteIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	n := newTestNode()

	_, err := n.Reroute(ctx, &cluster.RerouteRequest{Commands: []cluster.RerouteCommand{
		{Kind: cluster.CommandMove, Index: "txs", Shard: 0, FromNode: "n0", ToNode: "n1"},
		{Kind: cluster.CommandMove, Index: "txs", Shard: 9, FromNode: "n0", ToNode: "n1"},
	}})
	require.ErrorIs(t, err, ErrNoSuchShard)

	state, err := n.State(ctx, &cluster.StateRequest{Routing: true})
	require.NoError(t, err)
	assert.Equal(t, "n0", state.Routing["txs"][0].Node)
	assert.EqualValues(t, 1, state.Version)

	_, err = n.Reroute(ctx, &cluster.RerouteRequest{Commands: []cluster.RerouteCommand{
		{Kind: cluster.CommandAllocate, Index: "txs", Shard: 0, ToNode: "ghost"},
	}})
	assert.ErrorIs(t, err, ErrNoSuchNode)
}

func TestCallUnknownMethod(t *testing.T) {
	n := newTestNode()
	_, err := n.Call(context.Background(), "Cluster.Nope", nil, "test")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = n.Call(context.Background(), cluster.MethodHealth, []byte("{not json"), "test")
	assert.ErrorContains(t, err, "decode request")
}

func TestRouterHealthzAndMetrics(t *testing.T) {
	n := newTestNode()
	router, err := n.Router()
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "green", body["status"])

	_, err = n.Call(context.Background(), cluster.MethodHealth, nil, "test")
	require.NoError(t, err)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	data, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "luxadmin_devnode_requests_total")
}

func TestServeStopsOnCancel(t *testing.T) {
	n := newTestNode()
	var ls Listeners
	for _, l := range []*net.Listener{&ls.HTTP, &ls.GRPC, &ls.Framed} {
		var err error
		*l, err = net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Serve(ctx, ls) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
