// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// gomlx_interpret plots training metrics, renders Grad-CAM visualizations and composes image grids.
//
// See `gomlx_interpret help` for the subcommands. Options can also be given in a configuration file
// (see --config) or with environment variables prefixed with GOMLX_INTERPRET_, e.g.: GOMLX_INTERPRET_GRID_NCOL=4.
package main

import (
	"flag"
	"os"

	_ "github.com/gomlx/gomlx/backends/default"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	root := newRootCmd()
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	if err := root.Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
