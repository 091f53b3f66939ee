// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var soakDuration int

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Test link stability without sending commands",
	Long: `Hold a serial or WebSocket link open and watch what arrives.

Nothing is written to the link. Every chunk received is logged in hex and fed
through the decoder for --protocol (hex dumps need -v=1), and the decoder statistics are reported at
the end. Useful for debugging bridges that drop connections or corrupt bytes.

Exit codes:
  0 - Test completed normally
  1 - Link dropped or decode errors seen
  2 - Connection error`,
	RunE: runSoak,
}

func init() {
	rootCmd.AddCommand(soakCmd)
	soakCmd.Flags().IntVar(&soakDuration, "duration", 30, "Test duration in seconds")
}

func runSoak(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Link Stability Test\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, protocolName)
	fmt.Printf("Duration: %d seconds\n\n", soakDuration)

	monitor := newStreamMonitor()
	chunks := readChunks(conn)

	start := time.Now()
	endTime := start.Add(time.Duration(soakDuration) * time.Second)
	bytesReceived := 0
	chunksReceived := 0
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	fmt.Printf("Listening for data...\n\n")

	dropped := false
loop:
	for time.Now().Before(endTime) {
		select {
		case data, ok := <-chunks:
			if !ok {
				fmt.Printf("\n[%s] Link closed\n", time.Now().Format("15:04:05.000"))
				dropped = true
				break loop
			}
			bytesReceived += len(data)
			chunksReceived++
			if glog.V(1) {
				fmt.Printf("[%s] Received %d bytes: %x\n",
					time.Now().Format("15:04:05.000"), len(data), data)
			}
			for _, b := range data {
				if ev := monitor.Feed(b); ev != nil && ev.kind == eventDecodeError {
					printDecodeError(ev)
				}
			}

		case <-heartbeat.C:
			c := monitor.Counters()
			fmt.Printf("[%s] Still connected... %d packets, %d errors (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), c.total, c.errors(), time.Until(endTime).Seconds())
		}
	}

	c := monitor.Counters()
	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Chunks received: %d\n", chunksReceived)
	fmt.Printf("Bytes received: %d\n", bytesReceived)
	fmt.Print(monitor.String())

	switch {
	case dropped:
		fmt.Printf("Result: FAILED (link dropped)\n")
		os.Exit(1)
	case c.errors() > 0:
		fmt.Printf("Result: FAILED (%d decode errors)\n", c.errors())
		os.Exit(1)
	}
	fmt.Printf("Result: PASSED (link stable)\n")
	return nil
}
