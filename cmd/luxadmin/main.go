// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command luxadmin runs cluster admin actions against a Lux cluster.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:]))
}
