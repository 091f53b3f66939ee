// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

var (
	packetTestTimeout int
	packetTestPoke    bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid Ocular packet",
	Long: `Wait for a valid Ocular packet on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
protocol packet. It ignores invalid bytes and waits for a complete, valid
packet (passing the CRC check).

A v2 controller only speaks when spoken to, so in v2 mode a GET_STATE is sent
first (disable with --poke=false to listen passively). Legacy controllers
send status messages on their own.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
	packetTestCmd.Flags().BoolVar(&packetTestPoke, "poke", true, "Send GET_STATE first (v2 only)")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Ocular - Packet Test\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, protocolName)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid packet...\n\n")

	if packetTestPoke && !isLegacy() {
		frame, err := ocular.NewGetStateCommand(1).Encode()
		if err == nil {
			_, err = conn.Write(frame)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
	}

	monitor := newStreamMonitor()
	buf := make([]byte, 128)

	// Channel for packet reception
	eventChan := make(chan *monitorEvent, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				// Decode errors before sync are absorbed by the monitor
				ev := monitor.Feed(buf[i])
				if ev != nil && ev.kind == eventSync {
					if ev.invalidBytes > 0 {
						fmt.Printf("(skipped %d invalid bytes before sync)\n", ev.invalidBytes)
					}
					eventChan <- ev
					return
				}
			}
		}
	}()

	// Wait for packet or timeout
	select {
	case ev := <-eventChan:
		fmt.Printf("SUCCESS: Received valid packet\n")
		fmt.Printf("  %s\n", ev.summary)
		fmt.Print(ev.detail)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
