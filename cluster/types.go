// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"errors"
	"fmt"
	"time"
)

// HealthStatus is the coarse health of a cluster or index.
type HealthStatus string

const (
	StatusGreen  HealthStatus = "green"
	StatusYellow HealthStatus = "yellow"
	StatusRed    HealthStatus = "red"
)

// Rank orders statuses from best (0) to worst. Unknown statuses rank worst.
func (s HealthStatus) Rank() int {
	switch s {
	case StatusGreen:
		return 0
	case StatusYellow:
		return 1
	default:
		return 2
	}
}

func (s HealthStatus) valid() bool {
	return s == StatusGreen || s == StatusYellow || s == StatusRed
}

type HealthRequest struct {
	Indices       []string     `json:"indices,omitempty"`
	WaitForStatus HealthStatus `json:"wait_for_status,omitempty"`
	WaitForNodes  int          `json:"wait_for_nodes,omitempty"`
	Timeout       string       `json:"timeout,omitempty"`
	Local         bool         `json:"local,omitempty"`
}

func (r HealthRequest) Validate() error {
	if r.WaitForStatus != "" && !r.WaitForStatus.valid() {
		return fmt.Errorf("unknown status %q", r.WaitForStatus)
	}
	if r.WaitForNodes < 0 {
		return errors.New("wait_for_nodes must not be negative")
	}
	if r.Timeout != "" {
		if _, err := time.ParseDuration(r.Timeout); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	return nil
}

type HealthResponse struct {
	ClusterName         string       `json:"cluster_name"`
	Status              HealthStatus `json:"status"`
	TimedOut            bool         `json:"timed_out"`
	NumberOfNodes       int          `json:"number_of_nodes"`
	NumberOfDataNodes   int          `json:"number_of_data_nodes"`
	ActivePrimaryShards int          `json:"active_primary_shards"`
	ActiveShards        int          `json:"active_shards"`
	RelocatingShards    int          `json:"relocating_shards"`
	InitializingShards  int          `json:"initializing_shards"`
	UnassignedShards    int          `json:"unassigned_shards"`
}

type StateRequest struct {
	Metadata bool     `json:"metadata,omitempty"`
	Nodes    bool     `json:"nodes,omitempty"`
	Routing  bool     `json:"routing,omitempty"`
	Indices  []string `json:"indices,omitempty"`
}

type StateResponse struct {
	ClusterName string             `json:"cluster_name"`
	Version     int64              `json:"version"`
	MasterNode  string             `json:"master_node"`
	Nodes       map[string]Node    `json:"nodes,omitempty"`
	Metadata    *Metadata          `json:"metadata,omitempty"`
	Routing     map[string][]Shard `json:"routing,omitempty"`
}

type Node struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Metadata struct {
	Persistent map[string]string `json:"persistent,omitempty"`
	Transient  map[string]string `json:"transient,omitempty"`
	Indices    []string          `json:"indices,omitempty"`
}

// Shard is one copy of one shard of an index.
type Shard struct {
	Index   string `json:"index"`
	Shard   int    `json:"shard"`
	Primary bool   `json:"primary"`
	Node    string `json:"node"`
	State   string `json:"state"`
}

type NodesInfoRequest struct {
	NodeIDs []string `json:"node_ids,omitempty"`
}

type NodesInfoResponse struct {
	ClusterName string     `json:"cluster_name"`
	Nodes       []NodeInfo `json:"nodes"`
}

type NodeInfo struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	Version    string            `json:"version"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// UpdateSettingsRequest changes cluster settings. An empty value removes
// the key.
type UpdateSettingsRequest struct {
	Persistent map[string]string `json:"persistent,omitempty"`
	Transient  map[string]string `json:"transient,omitempty"`
}

func (r UpdateSettingsRequest) Validate() error {
	if len(r.Persistent) == 0 && len(r.Transient) == 0 {
		return errors.New("no settings to update")
	}
	for k := range r.Persistent {
		if k == "" {
			return errors.New("empty persistent setting key")
		}
	}
	for k := range r.Transient {
		if k == "" {
			return errors.New("empty transient setting key")
		}
	}
	return nil
}

type UpdateSettingsResponse struct {
	Acknowledged bool              `json:"acknowledged"`
	Persistent   map[string]string `json:"persistent"`
	Transient    map[string]string `json:"transient"`
}

// Reroute command kinds.
const (
	CommandMove     = "move"
	CommandCancel   = "cancel"
	CommandAllocate = "allocate"
)

type RerouteCommand struct {
	Kind     string `json:"kind"`
	Index    string `json:"index"`
	Shard    int    `json:"shard"`
	FromNode string `json:"from_node,omitempty"`
	ToNode   string `json:"to_node,omitempty"`
}

func (c RerouteCommand) validate() error {
	if c.Index == "" {
		return errors.New("index is required")
	}
	if c.Shard < 0 {
		return errors.New("shard must not be negative")
	}
	switch c.Kind {
	case CommandMove:
		if c.FromNode == "" || c.ToNode == "" {
			return errors.New("move needs from_node and to_node")
		}
	case CommandCancel:
		if c.FromNode == "" {
			return errors.New("cancel needs from_node")
		}
	case CommandAllocate:
		if c.ToNode == "" {
			return errors.New("allocate needs to_node")
		}
	default:
		return fmt.Errorf("unknown command %q", c.Kind)
	}
	return nil
}

type RerouteRequest struct {
	DryRun   bool             `json:"dry_run,omitempty"`
	Commands []RerouteCommand `json:"commands"`
}

func (r RerouteRequest) Validate() error {
	if len(r.Commands) == 0 {
		return errors.New("no reroute commands")
	}
	for i, c := range r.Commands {
		if err := c.validate(); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

type RerouteResponse struct {
	Acknowledged bool     `json:"acknowledged"`
	DryRun       bool     `json:"dry_run"`
	Explanations []string `json:"explanations"`
	Routing      []Shard  `json:"routing,omitempty"`
}
