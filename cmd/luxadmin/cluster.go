// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/luxfi/admin"
	"github.com/luxfi/admin/cluster"
)

func newHealthCmd(opts *globalOptions) *cobra.Command {
	var (
		status  string
		nodes   int
		indices []string
		local   bool
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show cluster health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				b := admin.PrepareExecuteCluster(c, cluster.Health).
					With(cluster.HealthIndices(indices...), cluster.HealthTimeout(opts.timeout))
				if status != "" {
					b.With(cluster.WaitForStatus(cluster.HealthStatus(status)))
				}
				if nodes > 0 {
					b.With(cluster.WaitForNodes(nodes))
				}
				if local {
					b.With(cluster.Local())
				}
				resp, err := b.Get(ctx)
				if err != nil {
					return err
				}
				return opts.render(resp, func(t table.Writer) {
					t.AppendHeader(table.Row{"Cluster", "Status", "Nodes", "Primaries", "Active", "Unassigned", "Timed out"})
					t.AppendRow(table.Row{
						resp.ClusterName, colorStatus(resp.Status), resp.NumberOfNodes,
						resp.ActivePrimaryShards, resp.ActiveShards, resp.UnassignedShards, yesNo(resp.TimedOut),
					})
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "wait-for-status", "", "status to wait for: green, yellow or red")
	cmd.Flags().IntVar(&nodes, "wait-for-nodes", 0, "number of nodes to wait for")
	cmd.Flags().StringSliceVar(&indices, "index", nil, "restrict to these indices")
	cmd.Flags().BoolVar(&local, "local", false, "answer from the contacted node only")
	return cmd
}

func newStateCmd(opts *globalOptions) *cobra.Command {
	var (
		metadata, nodes, routing bool
		indices                  []string
	)
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show cluster state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				b := admin.PrepareExecuteCluster(c, cluster.State).With(cluster.StateIndices(indices...))
				if metadata || nodes || routing {
					b.With(cluster.StateParts(metadata, nodes, routing))
				}
				resp, err := b.Get(ctx)
				if err != nil {
					return err
				}
				return opts.render(resp, func(t table.Writer) { stateTable(t, resp) })
			})
		},
	}
	cmd.Flags().BoolVar(&metadata, "metadata", false, "include metadata")
	cmd.Flags().BoolVar(&nodes, "nodes", false, "include nodes")
	cmd.Flags().BoolVar(&routing, "routing", false, "include the routing table")
	cmd.Flags().StringSliceVar(&indices, "index", nil, "restrict to these indices")
	return cmd
}

func stateTable(t table.Writer, resp cluster.StateResponse) {
	t.SetTitle(fmt.Sprintf("%s (version %d)", resp.ClusterName, resp.Version))
	t.AppendHeader(table.Row{"Index", "Shard", "Primary", "Node", "State"})
	for _, index := range slices.Sorted(maps.Keys(resp.Routing)) {
		for _, s := range resp.Routing[index] {
			t.AppendRow(table.Row{s.Index, s.Shard, yesNo(s.Primary), s.Node, s.State})
		}
	}
	if resp.Metadata != nil {
		t.AppendSeparator()
		for _, k := range slices.Sorted(maps.Keys(resp.Metadata.Persistent)) {
			t.AppendRow(table.Row{"persistent", k, "", resp.Metadata.Persistent[k], ""})
		}
		for _, k := range slices.Sorted(maps.Keys(resp.Metadata.Transient)) {
			t.AppendRow(table.Row{"transient", k, "", resp.Metadata.Transient[k], ""})
		}
	}
	t.AppendFooter(table.Row{"master", resp.MasterNode, "", fmt.Sprintf("%d nodes", len(resp.Nodes)), ""})
}

func newNodesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes [node-id...]",
		Short: "Describe cluster nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				resp, err := admin.PrepareExecuteCluster(c, cluster.NodesInfo).
					With(cluster.NodeIDs(args...)).
					Get(ctx)
				if err != nil {
					return err
				}
				return opts.render(resp, func(t table.Writer) {
					t.AppendHeader(table.Row{"ID", "Name", "Address", "Version", "Roles"})
					for _, n := range resp.Nodes {
						t.AppendRow(table.Row{n.ID, n.Name, n.Address, n.Version, strings.Join(n.Roles, ",")})
					}
				})
			})
		},
	}
}

func newSettingsCmd(opts *globalOptions) *cobra.Command {
	var transient bool
	cmd := &cobra.Command{
		Use:   "settings key=value...",
		Short: "Update cluster settings",
		Long:  "Update persistent (or, with --transient, transient) cluster settings. An empty value removes the key.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := cluster.PersistentSetting
			if transient {
				set = cluster.TransientSetting
			}
			var mutators []func(*cluster.UpdateSettingsRequest)
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				mutators = append(mutators, set(k, v))
			}
			return opts.withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				resp, err := admin.PrepareExecuteCluster(c, cluster.UpdateSettings).With(mutators...).Get(ctx)
				if err != nil {
					return err
				}
				return opts.render(resp, func(t table.Writer) {
					t.AppendHeader(table.Row{"Scope", "Key", "Value"})
					for _, k := range slices.Sorted(maps.Keys(resp.Persistent)) {
						t.AppendRow(table.Row{"persistent", k, resp.Persistent[k]})
					}
					for _, k := range slices.Sorted(maps.Keys(resp.Transient)) {
						t.AppendRow(table.Row{"transient", k, resp.Transient[k]})
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&transient, "transient", false, "update transient settings")
	return cmd
}

func newRerouteCmd(opts *globalOptions) *cobra.Command {
	var (
		moves, cancels, allocates []string
		dryRun                    bool
	)
	cmd := &cobra.Command{
		Use:   "reroute",
		Short: "Move, cancel or allocate shards",
		Example: `  luxadmin reroute --move blocks:0:n0:n1
  luxadmin reroute --cancel blocks:0:n0 --dry-run
  luxadmin reroute --allocate blocks:0:n1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mutators, err := rerouteMutators(moves, cancels, allocates)
			if err != nil {
				return err
			}
			if dryRun {
				mutators = append(mutators, cluster.DryRun())
			}
			return opts.withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				resp, err := admin.PrepareExecuteCluster(c, cluster.Reroute).With(mutators...).Get(ctx)
				if err != nil {
					return err
				}
				return opts.render(resp, func(t table.Writer) {
					if resp.DryRun {
						t.SetTitle("dry run")
					}
					t.AppendHeader(table.Row{"#", "Explanation"})
					for i, e := range resp.Explanations {
						t.AppendRow(table.Row{i, e})
					}
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&moves, "move", nil, "index:shard:from:to")
	cmd.Flags().StringArrayVar(&cancels, "cancel", nil, "index:shard:node")
	cmd.Flags().StringArrayVar(&allocates, "allocate", nil, "index:shard:node")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the result without applying it")
	return cmd
}

var errNoCommands = errors.New("at least one of --move, --cancel or --allocate is required")

func rerouteMutators(moves, cancels, allocates []string) ([]func(*cluster.RerouteRequest), error) {
	var out []func(*cluster.RerouteRequest)
	for _, m := range moves {
		index, shard, nodes, err := parseShardRef(m, 2)
		if err != nil {
			return nil, fmt.Errorf("--move %q: %w", m, err)
		}
		out = append(out, cluster.Move(index, shard, nodes[0], nodes[1]))
	}
	for _, m := range cancels {
		index, shard, nodes, err := parseShardRef(m, 1)
		if err != nil {
			return nil, fmt.Errorf("--cancel %q: %w", m, err)
		}
		out = append(out, cluster.Cancel(index, shard, nodes[0]))
	}
	for _, m := range allocates {
		index, shard, nodes, err := parseShardRef(m, 1)
		if err != nil {
			return nil, fmt.Errorf("--allocate %q: %w", m, err)
		}
		out = append(out, cluster.Allocate(index, shard, nodes[0]))
	}
	if len(out) == 0 {
		return nil, errNoCommands
	}
	return out, nil
}

// parseShardRef splits "index:shard:node..." with exactly n trailing nodes.
func parseShardRef(s string, n int) (string, int, []string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2+n {
		return "", 0, nil, fmt.Errorf("want %d fields separated by ':'", 2+n)
	}
	shard, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, nil, fmt.Errorf("shard: %w", err)
	}
	return parts[0], shard, parts[2:], nil
}
