// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure command round trips to a controller",
	Long: `Send harmless commands to a controller and time the responses.

In v2 mode each ping is a GET_VERSION; the reply carries the firmware
version. Legacy controllers have no query command, so each ping is an
ACK_JOYSTICK_BUTTON_PRESSED, timed until a status message reports it complete.

This is useful for verifying:
  - The serial link or WebSocket bridge is up
  - HTTP Basic authentication works
  - The controller is parsing commands and checksums
  - Bidirectional packet flow works

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	if cmdTimeout == 0 {
		cmdTimeout = time.Duration(pingTimeout) * time.Second
	}

	// Open connection (serial or WebSocket)
	link, connInfo, err := openLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	fmt.Printf("Ocular - Ping Test\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, protocolName)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	probe := actions["version"]
	if isLegacy() {
		probe = actions["ack"]
	}

	successCount := 0
	failCount := 0
	var total, best, worst time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(pingTimeout)*time.Second)
		res, err := link.Run(ctx, probe, nil)
		cancel()

		switch {
		case err != nil:
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		case res.failed:
			fmt.Printf("%s, rtt=%v\n", res.summary, res.elapsed.Round(time.Microsecond))
			failCount++
		default:
			rtt := res.elapsed
			fmt.Printf("%s from controller%s, rtt=%v\n", res.summary, pingExtra(res), rtt.Round(time.Microsecond))
			successCount++
			total += rtt
			if best == 0 || rtt < best {
				best = rtt
			}
			if rtt > worst {
				worst = rtt
			}
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% packet loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)
	if successCount > 0 {
		avg := total / time.Duration(successCount)
		fmt.Printf("rtt min/avg/max = %v/%v/%v\n", best.Round(time.Microsecond), avg.Round(time.Microsecond), worst.Round(time.Microsecond))
	}

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// pingExtra describes what a ping reply carried beyond its status
func pingExtra(res *linkResult) string {
	if res.version == "" {
		return ""
	}
	return ", firmware " + res.version
}
