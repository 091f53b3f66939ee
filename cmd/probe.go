// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

var (
	probeTimeout int
	probeListen  time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Identify the protocol and variant of a controller",
	Long: `Work out what is on the other end of a serial port or WebSocket bridge.

The probe first listens without sending anything. Legacy controllers stream a
24-byte status message every few milliseconds, so a legacy device is found
passively and its reporting interval measured.

If nothing arrives, the probe sends GET_VERSION as a v2 packet. A v2
controller answers with its firmware version. A STOP_AXIS for a nonexistent
axis then tells the variants apart: the full controller rejects it with
INVALID_AXIS, the reduced (TTL-only) board acknowledges it.

The probe never moves an axis or switches a light source.

Exit codes:
  0 - Controller identified
  1 - No controller answered
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 2, "Timeout in seconds for each v2 probe")
	probeCmd.Flags().DurationVar(&probeListen, "listen", 500*time.Millisecond, "How long to listen for legacy status messages")
}

// probeAxis is outside every axis range
const probeAxis ocular.Axis = 0xEE

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Ocular - Controller Probe\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	p := &prober{chunks: readChunks(conn), conn: conn}

	fmt.Printf("Listening for legacy status messages (%v)...\n", probeListen)
	if status, interval, n := p.listenLegacy(probeListen); n >= 2 {
		fmt.Printf("\nController found:\n")
		fmt.Printf("  Protocol: legacy\n")
		fmt.Printf("  Status messages: %d, every %v\n", n, interval.Round(10*time.Microsecond))
		fmt.Print(indent(legacy_protocol.FormatResponse(status)))
		return nil
	}

	fmt.Printf("Sending GET_VERSION...\n")
	version, err := p.request(ocular.NewGetVersionCommand(1))
	if err != nil {
		fmt.Printf("\nNo controller answered: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sending STOP_AXIS for axis 0x%02X...\n", uint8(probeAxis))
	variant := "unknown"
	if resp, err := p.request(ocular.NewStopAxisCommand(2, probeAxis)); err == nil {
		switch {
		case resp.Status == ocular.StatusRejected && resp.Error == ocular.ErrInvalidAxis:
			variant = "full"
		case resp.Status == ocular.StatusOK:
			variant = "reduced"
		}
	}

	fmt.Printf("\nController found:\n")
	fmt.Printf("  Protocol: v2\n")
	fmt.Printf("  Firmware: %d.%d\n", version.Reserved[0], version.Reserved[1])
	fmt.Printf("  Variant: %s\n", variant)
	fmt.Printf("  Mode: %s\n", ocular.FormatMode(version.Mode))
	return nil
}

type prober struct {
	chunks <-chan []byte
	conn   Connection
}

// listenLegacy decodes legacy status messages for d and returns the last one,
// the mean interval between them and how many arrived
func (p *prober) listenLegacy(d time.Duration) (*legacy_protocol.Response, time.Duration, int) {
	receiver := legacy_protocol.NewResponseReceiver()
	receiver.AcceptZeroChecksum = acceptZeroChecksum

	var first, last *legacy_protocol.Response
	count := 0
	deadline := time.After(d)
	for {
		select {
		case <-deadline:
			if count < 2 {
				return last, 0, count
			}
			return last, last.Timestamp.Sub(first.Timestamp) / time.Duration(count-1), count
		case data, ok := <-p.chunks:
			if !ok {
				return last, 0, 0
			}
			for _, b := range data {
				resp, err := receiver.DecodeByte(b)
				if err != nil || resp == nil {
					continue
				}
				if first == nil {
					first = resp
				}
				last = resp
				count++
			}
		}
	}
}

// request sends a v2 command and waits for the response carrying its id
func (p *prober) request(cmd *ocular.Command) (*ocular.ResponsePacket, error) {
	wire, err := cmd.Encode()
	if err != nil {
		return nil, err
	}
	if _, err := p.conn.Write(wire); err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}

	decoder := ocular.NewDecoder()
	timeout := time.After(time.Duration(probeTimeout) * time.Second)
	for {
		select {
		case <-timeout:
			return nil, fmt.Errorf("no response in %ds", probeTimeout)
		case data, ok := <-p.chunks:
			if !ok {
				return nil, ErrConnectionClosed
			}
			for _, b := range data {
				packet, err := decoder.DecodeByte(b)
				if err != nil || packet == nil || !packet.IsResponse() {
					continue
				}
				resp, err := packet.Response()
				if err == nil && resp.CommandID == cmd.ID {
					return resp, nil
				}
			}
		}
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ") + "\n"
}
