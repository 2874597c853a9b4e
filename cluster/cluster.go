// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cluster defines the cluster administration actions and the
// handlers that run them against a remote node.
//
// Register the module when building a client:
//
//	client, err := admin.New(settings, true, admin.WithActions(cluster.Actions()...))
//
// Every handler picks the next address from the client and sends the request
// over the client's transport as "Cluster.<Method>".
package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/admin"
)

// Action identifiers.
const (
	HealthName         = "cluster:monitor/health"
	StateName          = "cluster:monitor/state"
	NodesInfoName      = "cluster:monitor/nodes/info"
	UpdateSettingsName = "cluster:admin/settings/update"
	RerouteName        = "cluster:admin/reroute"
)

// Wire methods served by nodes.
const (
	MethodHealth         = "Cluster.Health"
	MethodState          = "Cluster.State"
	MethodNodesInfo      = "Cluster.NodesInfo"
	MethodUpdateSettings = "Cluster.UpdateSettings"
	MethodReroute        = "Cluster.Reroute"
)

// DefaultTimeout is the server-side wait a fresh HealthRequest carries.
const DefaultTimeout = 30 * time.Second

var (
	Health = admin.NewClusterAction[HealthRequest, HealthResponse](HealthName, func() HealthRequest {
		return HealthRequest{Timeout: DefaultTimeout.String()}
	})
	State = admin.NewClusterAction[StateRequest, StateResponse](StateName, func() StateRequest {
		return StateRequest{Metadata: true, Nodes: true, Routing: true}
	})
	NodesInfo      = admin.NewClusterAction[NodesInfoRequest, NodesInfoResponse](NodesInfoName, nil)
	UpdateSettings = admin.NewClusterAction[UpdateSettingsRequest, UpdateSettingsResponse](UpdateSettingsName, nil)
	Reroute        = admin.NewClusterAction[RerouteRequest, RerouteResponse](RerouteName, nil)
)

// Actions returns the registrations for every cluster action.
func Actions() []admin.Registration {
	return []admin.Registration{
		admin.Bind(HealthName, remote[HealthRequest, HealthResponse](MethodHealth)),
		admin.Bind(StateName, remote[StateRequest, StateResponse](MethodState)),
		admin.Bind(NodesInfoName, remote[NodesInfoRequest, NodesInfoResponse](MethodNodesInfo)),
		admin.Bind(UpdateSettingsName, remote[UpdateSettingsRequest, UpdateSettingsResponse](MethodUpdateSettings)),
		admin.Bind(RerouteName, remote[RerouteRequest, RerouteResponse](MethodReroute)),
	}
}

// remote returns a handler that forwards the request to the next node.
func remote[Req, Resp any](method string) admin.HandlerFunc[Req, Resp] {
	return func(ctx context.Context, c *admin.Client, req Req) (Resp, error) {
		var resp Resp
		addr, err := c.NextAddress()
		if err != nil {
			return resp, err
		}
		if err := c.Transport().Call(ctx, addr, method, req, &resp); err != nil {
			return resp, fmt.Errorf("%s on %s: %w", method, addr, err)
		}
		return resp, nil
	}
}
