// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package devnode is an in-memory cluster that answers the cluster admin
// actions over every admin transport. It backs tests and "luxadmin devnode".
package devnode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/luxfi/admin/cluster"
)

const (
	stateStarted    = "STARTED"
	stateUnassigned = "UNASSIGNED"
)

var (
	ErrNoSuchIndex = errors.New("no such index")
	ErrNoSuchNode  = errors.New("no such node")
	ErrNoSuchShard = errors.New("no such shard")
)

// Config describes the simulated cluster.
type Config struct {
	ClusterName string
	// Nodes names the simulated nodes. The first is the master.
	Nodes []string
	// Indices maps index name to primary shard count.
	Indices map[string]int
	Version string
	Logger  *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ClusterName == "" {
		c.ClusterName = "lux-dev"
	}
	if len(c.Nodes) == 0 {
		c.Nodes = []string{"node-0"}
	}
	if c.Indices == nil {
		c.Indices = map[string]int{"blocks": 2, "txs": 1}
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type simNode struct {
	id      string
	name    string
	address string
}

// Node holds the simulated cluster state.
type Node struct {
	cfg   Config
	nodes []simNode
	log   *slog.Logger

	mu         sync.RWMutex
	version    int64
	persistent map[string]string
	transient  map[string]string
	shards     []cluster.Shard

	metrics *nodeMetrics
	methods map[string]method
}

// New builds a cluster with every primary shard started, assigned round
// robin across the nodes.
func New(cfg Config) *Node {
	cfg = cfg.withDefaults()
	n := &Node{
		cfg:        cfg,
		log:        cfg.Logger.With("component", "devnode", "cluster", cfg.ClusterName),
		version:    1,
		persistent: make(map[string]string),
		transient:  make(map[string]string),
		metrics:    newNodeMetrics(),
	}
	for i, name := range cfg.Nodes {
		n.nodes = append(n.nodes, simNode{
			id:      ulid.Make().String(),
			name:    name,
			address: fmt.Sprintf("127.0.0.1:%d", 9300+i),
		})
	}

	indices := slices.Sorted(maps.Keys(cfg.Indices))
	next := 0
	for _, index := range indices {
		for shard := 0; shard < cfg.Indices[index]; shard++ {
			n.shards = append(n.shards, cluster.Shard{
				Index:   index,
				Shard:   shard,
				Primary: true,
				Node:    n.nodes[next%len(n.nodes)].name,
				State:   stateStarted,
			})
			next++
		}
	}
	n.methods = n.methodTable()
	return n
}

// Name returns the cluster name.
func (n *Node) Name() string { return n.cfg.ClusterName }

func (n *Node) hasIndex(index string) bool {
	_, ok := n.cfg.Indices[index]
	return ok
}

func (n *Node) hasNode(name string) bool {
	for _, sn := range n.nodes {
		if sn.name == name {
			return true
		}
	}
	return false
}

// Health summarises shard allocation. A cluster with an unassigned primary
// is red.
func (n *Node) Health(_ context.Context, req *cluster.HealthRequest) (*cluster.HealthResponse, error) {
	for _, index := range req.Indices {
		if !n.hasIndex(index) {
			return nil, fmt.Errorf("%w [%s]", ErrNoSuchIndex, index)
		}
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	resp := &cluster.HealthResponse{
		ClusterName:       n.cfg.ClusterName,
		Status:            cluster.StatusGreen,
		NumberOfNodes:     len(n.nodes),
		NumberOfDataNodes: len(n.nodes),
	}
	for _, s := range n.shards {
		if len(req.Indices) > 0 && !slices.Contains(req.Indices, s.Index) {
			continue
		}
		switch s.State {
		case stateStarted:
			resp.ActiveShards++
			if s.Primary {
				resp.ActivePrimaryShards++
			}
		case stateUnassigned:
			resp.UnassignedShards++
			resp.Status = cluster.StatusRed
		}
	}

	if req.WaitForStatus != "" && resp.Status.Rank() > req.WaitForStatus.Rank() {
		resp.TimedOut = true
	}
	if req.WaitForNodes > len(n.nodes) {
		resp.TimedOut = true
	}
	return resp, nil
}

// State returns the parts of the cluster state the request selects.
func (n *Node) State(_ context.Context, req *cluster.StateRequest) (*cluster.StateResponse, error) {
	for _, index := range req.Indices {
		if !n.hasIndex(index) {
			return nil, fmt.Errorf("%w [%s]", ErrNoSuchIndex, index)
		}
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	resp := &cluster.StateResponse{
		ClusterName: n.cfg.ClusterName,
		Version:     n.version,
		MasterNode:  n.nodes[0].id,
	}
	if req.Nodes {
		resp.Nodes = make(map[string]cluster.Node, len(n.nodes))
		for _, sn := range n.nodes {
			resp.Nodes[sn.id] = cluster.Node{Name: sn.name, Address: sn.address}
		}
	}
	if req.Metadata {
		indices := req.Indices
		if len(indices) == 0 {
			indices = slices.Sorted(maps.Keys(n.cfg.Indices))
		}
		resp.Metadata = &cluster.Metadata{
			Persistent: maps.Clone(n.persistent),
			Transient:  maps.Clone(n.transient),
			Indices:    indices,
		}
	}
	if req.Routing {
		resp.Routing = make(map[string][]cluster.Shard)
		for _, s := range n.shards {
			if len(req.Indices) > 0 && !slices.Contains(req.Indices, s.Index) {
				continue
			}
			resp.Routing[s.Index] = append(resp.Routing[s.Index], s)
		}
	}
	return resp, nil
}

// NodesInfo describes the requested nodes. An empty request, "_all" or
// "_local" select every node; ids and names select individual nodes.
func (n *Node) NodesInfo(_ context.Context, req *cluster.NodesInfoRequest) (*cluster.NodesInfoResponse, error) {
	all := len(req.NodeIDs) == 0 || slices.Contains(req.NodeIDs, "_all") || slices.Contains(req.NodeIDs, "_local")

	resp := &cluster.NodesInfoResponse{ClusterName: n.cfg.ClusterName, Nodes: []cluster.NodeInfo{}}
	for i, sn := range n.nodes {
		if !all && !slices.Contains(req.NodeIDs, sn.id) && !slices.Contains(req.NodeIDs, sn.name) {
			continue
		}
		roles := []string{"data"}
		if i == 0 {
			roles = append([]string{"master"}, roles...)
		}
		resp.Nodes = append(resp.Nodes, cluster.NodeInfo{
			ID:         sn.id,
			Name:       sn.name,
			Address:    sn.address,
			Version:    n.cfg.Version,
			Roles:      roles,
			Attributes: map[string]string{"simulated": "true"},
		})
	}
	return resp, nil
}

// UpdateSettings merges the request into the cluster settings. Empty values
// remove keys.
func (n *Node) UpdateSettings(_ context.Context, req *cluster.UpdateSettingsRequest) (*cluster.UpdateSettingsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	apply(n.persistent, req.Persistent)
	apply(n.transient, req.Transient)
	n.version++
	n.log.Info("cluster settings updated", "version", n.version,
		"persistent", len(req.Persistent), "transient", len(req.Transient))

	return &cluster.UpdateSettingsResponse{
		Acknowledged: true,
		Persistent:   maps.Clone(n.persistent),
		Transient:    maps.Clone(n.transient),
	}, nil
}

func apply(dst, changes map[string]string) {
	for k, v := range changes {
		if v == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

// Reroute applies allocation commands in order. A dry run computes the
// result without changing the cluster. Commands are all-or-nothing.
func (n *Node) Reroute(_ context.Context, req *cluster.RerouteRequest) (*cluster.RerouteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	shards := slices.Clone(n.shards)
	explanations := make([]string, 0, len(req.Commands))
	for _, c := range req.Commands {
		msg, err := n.applyCommand(shards, c)
		if err != nil {
			return nil, err
		}
		explanations = append(explanations, msg)
	}

	if !req.DryRun {
		n.shards = shards
		n.version++
		n.log.Info("shards rerouted", "commands", len(req.Commands), "version", n.version)
	}
	return &cluster.RerouteResponse{
		Acknowledged: true,
		DryRun:       req.DryRun,
		Explanations: explanations,
		Routing:      shards,
	}, nil
}

func (n *Node) applyCommand(shards []cluster.Shard, c cluster.RerouteCommand) (string, error) {
	if !n.hasIndex(c.Index) {
		return "", fmt.Errorf("%w [%s]", ErrNoSuchIndex, c.Index)
	}
	for _, node := range []string{c.FromNode, c.ToNode} {
		if node != "" && !n.hasNode(node) {
			return "", fmt.Errorf("%w [%s]", ErrNoSuchNode, node)
		}
	}
	i := slices.IndexFunc(shards, func(s cluster.Shard) bool {
		return s.Index == c.Index && s.Shard == c.Shard
	})
	if i < 0 {
		return "", fmt.Errorf("%w [%s][%d]", ErrNoSuchShard, c.Index, c.Shard)
	}
	s := &shards[i]

	switch c.Kind {
	case cluster.CommandMove:
		if s.State != stateStarted || s.Node != c.FromNode {
			return "", fmt.Errorf("[%s][%d] is not started on %s", c.Index, c.Shard, c.FromNode)
		}
		s.Node = c.ToNode
		return fmt.Sprintf("moved [%s][%d] from %s to %s", c.Index, c.Shard, c.FromNode, c.ToNode), nil
	case cluster.CommandCancel:
		if s.State != stateStarted || s.Node != c.FromNode {
			return "", fmt.Errorf("[%s][%d] is not allocated to %s", c.Index, c.Shard, c.FromNode)
		}
		s.Node, s.State = "", stateUnassigned
		return fmt.Sprintf("cancelled [%s][%d] on %s", c.Index, c.Shard, c.FromNode), nil
	case cluster.CommandAllocate:
		if s.State != stateUnassigned {
			return "", fmt.Errorf("[%s][%d] is already allocated to %s", c.Index, c.Shard, s.Node)
		}
		s.Node, s.State = c.ToNode, stateStarted
		return fmt.Sprintf("allocated [%s][%d] to %s", c.Index, c.Shard, c.ToNode), nil
	default:
		return "", fmt.Errorf("unknown command %q", c.Kind)
	}
}
