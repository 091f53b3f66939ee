// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Continuously decode and display Ocular protocol traffic as it arrives.

In v2 mode every frame is shown, commands and responses alike, with its
decoded fields. In legacy mode the periodic 24-byte status messages are shown.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Ocular - Raw Packet Log\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, protocolName)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	monitor := newStreamMonitor()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if isClosed(err) {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			ev := monitor.Feed(buf[i])
			if ev == nil {
				continue
			}
			switch ev.kind {
			case eventDecodeError:
				fmt.Printf("[ERROR] %v\n", ev.decodeErr)
			default:
				fmt.Print(ev.detail)
			}
		}
	}
}
