// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import "time"

// Request mutators for use with admin.RequestBuilder.With.

func WaitForStatus(s HealthStatus) func(*HealthRequest) {
	return func(r *HealthRequest) { r.WaitForStatus = s }
}

func WaitForNodes(n int) func(*HealthRequest) {
	return func(r *HealthRequest) { r.WaitForNodes = n }
}

func HealthTimeout(d time.Duration) func(*HealthRequest) {
	return func(r *HealthRequest) { r.Timeout = d.String() }
}

func HealthIndices(indices ...string) func(*HealthRequest) {
	return func(r *HealthRequest) { r.Indices = append(r.Indices, indices...) }
}

func Local() func(*HealthRequest) {
	return func(r *HealthRequest) { r.Local = true }
}

func StateIndices(indices ...string) func(*StateRequest) {
	return func(r *StateRequest) { r.Indices = append(r.Indices, indices...) }
}

// StateParts selects which parts of the state are returned.
func StateParts(metadata, nodes, routing bool) func(*StateRequest) {
	return func(r *StateRequest) {
		r.Metadata, r.Nodes, r.Routing = metadata, nodes, routing
	}
}

func NodeIDs(ids ...string) func(*NodesInfoRequest) {
	return func(r *NodesInfoRequest) { r.NodeIDs = append(r.NodeIDs, ids...) }
}

func PersistentSetting(key, value string) func(*UpdateSettingsRequest) {
	return func(r *UpdateSettingsRequest) {
		if r.Persistent == nil {
			r.Persistent = make(map[string]string)
		}
		r.Persistent[key] = value
	}
}

func TransientSetting(key, value string) func(*UpdateSettingsRequest) {
	return func(r *UpdateSettingsRequest) {
		if r.Transient == nil {
			r.Transient = make(map[string]string)
		}
		r.Transient[key] = value
	}
}

func Move(index string, shard int, from, to string) func(*RerouteRequest) {
	return addCommand(RerouteCommand{Kind: CommandMove, Index: index, Shard: shard, FromNode: from, ToNode: to})
}

func Cancel(index string, shard int, node string) func(*RerouteRequest) {
	return addCommand(RerouteCommand{Kind: CommandCancel, Index: index, Shard: shard, FromNode: node})
}

func Allocate(index string, shard int, node string) func(*RerouteRequest) {
	return addCommand(RerouteCommand{Kind: CommandAllocate, Index: index, Shard: shard, ToNode: node})
}

func DryRun() func(*RerouteRequest) {
	return func(r *RerouteRequest) { r.DryRun = true }
}

func addCommand(c RerouteCommand) func(*RerouteRequest) {
	return func(r *RerouteRequest) { r.Commands = append(r.Commands, c) }
}
