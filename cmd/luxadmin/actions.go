// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/luxfi/admin"
	"github.com/luxfi/admin/transport"
)

func newActionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the actions the client can dispatch",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) (err error) {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := c.Close(); err == nil {
					err = cerr
				}
			}()

			names := c.Registry().Names()
			return opts.render(names, func(t table.Writer) {
				t.AppendHeader(table.Row{"Action"})
				for _, n := range names {
					t.AppendRow(table.Row{n})
				}
				t.AppendFooter(table.Row{"transport: " + c.Settings().String(admin.SettingTransportType, transport.DefaultType)})
			})
		},
	}
}
