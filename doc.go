// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package admin provides a transport-agnostic administrative client for Lux
// clusters.
//
// Every call names an action. The client looks the action up in an immutable
// registry built at construction and hands the request to the handler bound
// to it. Callers never see which handler or transport serves an action.
//
// # Transport Selection
//
// Remote handlers reach nodes through the transport named by the
// transport.type setting:
//
//	transport.type: http     # JSON-RPC 2.0 over HTTP (default)
//	transport.type: grpc     # gRPC with a JSON codec
//	transport.type: framed   # length-prefixed frames over TCP
//
// # Usage
//
// Future form:
//
//	client, err := admin.New(admin.SettingsFrom(map[string]string{
//	    admin.SettingAddresses: "127.0.0.1:9200",
//	}), true, admin.WithActions(cluster.Actions()...))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	f, err := admin.ExecuteCluster(ctx, client, cluster.Health, cluster.HealthRequest{})
//	if err != nil {
//	    log.Fatal(err) // unknown action or closed client
//	}
//	health, err := f.Get(ctx)
//
// Listener form:
//
//	err = admin.ExecuteClusterWithListener(ctx, client, cluster.Health, req,
//	    admin.NewListener(
//	        func(r cluster.HealthResponse) { ... },
//	        func(err error) { ... },
//	    ))
//
// Builder form:
//
//	health, err := admin.PrepareExecuteCluster(client, cluster.Health).
//	    With(cluster.WaitForStatus(cluster.StatusGreen)).
//	    Get(ctx)
//
// # Settings
//
// New merges, lowest precedence first, <path.conf>/admin.yml, LUXADMIN_
// environment variables and the settings passed in. The file and environment
// are only read when loadConfig is true.
//
// # Shutdown
//
// Close stops the worker pool, waits up to client.shutdown_timeout for it to
// drain, forces it down if needed, closes the transport and clears the shared
// caches in package cache. It never fails.
package admin
