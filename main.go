// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Ocular - Microscope Controller Toolkit
//
// A CLI tool for driving, monitoring and emulating Ocular microscope
// controllers over serial or WebSocket links.

package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/cmd"
)

func main() {
	// glog registers its flags on the standard set; cobra parses them
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if err := cmd.Execute(); err != nil {
		glog.Flush()
		os.Exit(1)
	}
}
