// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ocular/pkg/capture"
)

var (
	replayDirection string
	replayRealtime  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Decode or resend a captured link",
	Long: `Read a capture written by "ocular emulate" (capture.path).

Without --port or --url the chosen direction is decoded and printed, using the
protocol recorded in the capture. With a connection, the recorded bytes are
written to it, paced by their original timing when --realtime is set.

Directions:
  tx  bytes the controller sent (responses, status messages)
  rx  bytes the controller received (commands)`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayDirection, "direction", "d", "tx", "Direction to replay (tx or rx)")
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Pace writes by the recorded timing")
}

func parseCaptureDirection(s string) (capture.Direction, error) {
	switch strings.ToLower(s) {
	case "tx", "device", "out":
		return capture.DeviceToHost, nil
	case "rx", "host", "in":
		return capture.HostToDevice, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (expected tx or rx)", s)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	dir, err := parseCaptureDirection(replayDirection)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}
	h := r.Header()
	fmt.Printf("Capture: %s, %s protocol, started %s\n", args[0], h.Protocol, h.StartTime().Format("2006-01-02 15:04:05"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if portName == "" && wsURL == "" {
		// decode with the protocol the capture was made with
		protocolName = h.Protocol
		if _, err := protocol(); err != nil {
			return err
		}
		monitor := newStreamMonitor()
		n, err := capture.Replay(ctx, r, dir, &monitorWriter{monitor: monitor}, replayRealtime)
		fmt.Printf("\n%d %s records\n", n, dir)
		fmt.Print(monitor.String())
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Replaying %s records to %s\n", dir, connInfo)
	n, err := capture.Replay(ctx, r, dir, conn, replayRealtime)
	fmt.Printf("%d records written\n", n)
	return err
}

// monitorWriter prints every event a monitor produces from written bytes
type monitorWriter struct {
	monitor streamMonitor
}

var _ io.Writer = (*monitorWriter)(nil)

func (w *monitorWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		ev := w.monitor.Feed(b)
		if ev == nil {
			continue
		}
		switch ev.kind {
		case eventDecodeError:
			printDecodeError(ev)
		default:
			if len(ev.anomalies) > 0 {
				printValidationErrors(ev)
				continue
			}
			fmt.Print(ev.detail)
		}
	}
	return len(p), nil
}
