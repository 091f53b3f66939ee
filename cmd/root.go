// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ocular/pkg/controller"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Protocol flags
	protocolName       string
	acceptZeroChecksum bool
)

var rootCmd = &cobra.Command{
	Use:   "ocular",
	Short: "Ocular Microscope Controller Toolkit",
	Long: `Ocular - A CLI tool for talking to, monitoring and emulating Ocular
microscope controllers.

Speaks both wire formats: the framed v2 protocol (CRC-16, one response per
command) and the legacy 8-byte command protocol (CRC-8, periodic 24-byte
status messages).

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 2000000]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the OCULAR_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Logging uses glog; pass -v=2 or --logtostderr for protocol traces.`,
	Version: "2.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := protocol()
		return err
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 2000000, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Protocol flags
	rootCmd.PersistentFlags().StringVarP(&protocolName, "protocol", "P", controller.ProtocolV2, "Wire protocol (v2 or legacy)")
	rootCmd.PersistentFlags().BoolVar(&acceptZeroChecksum, "accept-zero-checksum", false, "Accept legacy status messages with a zero checksum byte")
	rootCmd.PersistentFlags().DurationVar(&cmdTimeout, "cmd-timeout", 0, "Per-command response timeout (0 = protocol default)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "Resend a timed out command this many times")

	// glog flags (-v, --logtostderr, ...)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// protocol returns the normalized --protocol value
func protocol() (string, error) {
	p := strings.ToLower(strings.TrimSpace(protocolName))
	switch p {
	case controller.ProtocolV2, controller.ProtocolLegacy:
		return p, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (expected %s or %s)", protocolName, controller.ProtocolV2, controller.ProtocolLegacy)
	}
}

func isLegacy() bool {
	p, _ := protocol()
	return p == controller.ProtocolLegacy
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
