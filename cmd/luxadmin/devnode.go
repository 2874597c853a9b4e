// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/admin/internal/devnode"
)

func newDevnodeCmd(opts *globalOptions) *cobra.Command {
	var (
		httpAddr, grpcAddr, framedAddr string
		clusterName                    string
		nodes                          []string
	)
	cmd := &cobra.Command{
		Use:   "devnode",
		Short: "Serve an in-memory development cluster",
		Long:  "Serve an in-memory cluster on every admin transport until interrupted. Empty listen addresses disable a transport.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ls, err := listenAll(ctx, httpAddr, grpcAddr, framedAddr)
			if err != nil {
				return err
			}
			node := devnode.New(devnode.Config{
				ClusterName: clusterName,
				Nodes:       nodes,
				Version:     version,
				Logger:      opts.logger(),
			})
			return node.Serve(ctx, ls)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "127.0.0.1:9650", "JSON-RPC listen address")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "127.0.0.1:9651", "gRPC listen address")
	cmd.Flags().StringVar(&framedAddr, "framed", "127.0.0.1:9652", "framed TCP listen address")
	cmd.Flags().StringVar(&clusterName, "cluster-name", "lux-dev", "simulated cluster name")
	cmd.Flags().StringSliceVar(&nodes, "node", []string{"node-0", "node-1"}, "simulated node names")
	return cmd
}

func listenAll(ctx context.Context, httpAddr, grpcAddr, framedAddr string) (ls devnode.Listeners, err error) {
	var lc net.ListenConfig
	defer func() {
		if err == nil {
			return
		}
		for _, l := range []net.Listener{ls.HTTP, ls.GRPC, ls.Framed} {
			if l != nil {
				_ = l.Close()
			}
		}
	}()
	for _, t := range []struct {
		addr string
		dst  *net.Listener
	}{
		{httpAddr, &ls.HTTP},
		{grpcAddr, &ls.GRPC},
		{framedAddr, &ls.Framed},
	} {
		if t.addr == "" {
			continue
		}
		l, lerr := lc.Listen(ctx, "tcp", t.addr)
		if lerr != nil {
			return ls, fmt.Errorf("listen %s: %w", t.addr, lerr)
		}
		*t.dst = l
	}
	if ls.HTTP == nil && ls.GRPC == nil && ls.Framed == nil {
		return ls, errors.New("no listen addresses")
	}
	return ls, nil
}
