// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed packets and errors",
	Long: `Track packet errors, malformed data, and anomalous values with statistics.

This command validates each packet and detects:
  - Malformed packets (length mismatches, truncated parameters)
  - CRC errors and decode failures
  - Anomalous values (unknown status or error codes, invalid axis states,
    inconsistent status/error pairs, position jumps, reserved bits set)
  - Statistics and trends (packet rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid packets too.

Packets are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// readChunks copies connection reads onto a channel until the link closes
func readChunks(conn Connection) <-chan []byte {
	out := make(chan []byte, 10)
	go func() {
		defer close(out)
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if isClosed(err) {
					return
				}
				log.Printf("Read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			out <- data
		}
	}()
	return out
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(ev *monitorEvent) {
	timestamp := ev.timestamp.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, ev.decodeErr)
	fmt.Printf("  >>> DECODE FAILED <<<\n\n")
}

// printValidationErrors prints validation errors for a packet
func printValidationErrors(ev *monitorEvent) {
	timestamp := ev.timestamp.Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, ev.summary)
	fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")
	for i, msg := range ev.anomalies {
		fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, msg)
	}

	// Print packet for context
	fmt.Print(ev.detail)
	fmt.Printf("  >>> PACKET REJECTED <<<\n\n")
}

// printFailedStatus prints a device status that reports a failed command
func printFailedStatus(ev *monitorEvent) {
	timestamp := ev.timestamp.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mCOMMAND FAILED:\033[0m %s\n", timestamp, ev.summary)
	fmt.Print(ev.detail)
	fmt.Println()
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(conn Connection, connInfo string) error {
	monitor := newStreamMonitor()

	// Create TUI program
	m := initialModel(connInfo, monitor, statsInterval, showAll)
	p := tea.NewProgram(m)

	// Reader goroutine
	go func() {
		for data := range readChunks(conn) {
			for _, b := range data {
				if ev := monitor.Feed(b); ev != nil {
					p.Send(streamEventMsg{event: ev})
				}
			}
		}
		p.Send(linkClosedMsg{})
	}()

	// Run TUI
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("Ocular - Error Detection Mode\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, protocolName)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All packets\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	monitor := newStreamMonitor()

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Legacy controllers repeat the last status until the next command
	lastFailure := ""

	chunks := readChunks(conn)
	for {
		select {
		case data, ok := <-chunks:
			if !ok {
				fmt.Printf("Connection closed\n\n")
				fmt.Print(monitor.String())
				return nil
			}
			for _, b := range data {
				ev := monitor.Feed(b)
				if ev == nil {
					continue
				}

				switch ev.kind {
				case eventDecodeError:
					printDecodeError(ev)
					continue
				case eventSync:
					if ev.invalidBytes > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", ev.invalidBytes)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				// Print packet or error based on mode
				switch {
				case len(ev.anomalies) > 0:
					printValidationErrors(ev)
				case ev.status != nil && ev.status.failed:
					// Always print failed commands, once
					if ev.summary != lastFailure {
						printFailedStatus(ev)
						lastFailure = ev.summary
					}
				case showAll:
					fmt.Print(ev.detail)
				}
			}

		case <-statsTicker.C:
			// Print statistics
			fmt.Println()
			fmt.Print(monitor.String())
			fmt.Println()
		}
	}
}
