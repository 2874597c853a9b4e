// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/luxfi/admin/cluster"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// render writes v as indented JSON, or as the table built by tbl.
func (o *globalOptions) render(v any, tbl func(table.Writer)) error {
	if o.output == outputJSON {
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	t := newTable(o.stdout)
	tbl(t)
	t.Render()
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func colorStatus(s cluster.HealthStatus) string {
	switch s {
	case cluster.StatusGreen:
		return text.FgGreen.Sprint(s)
	case cluster.StatusYellow:
		return text.FgYellow.Sprint(s)
	default:
		return text.FgRed.Sprint(s)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
