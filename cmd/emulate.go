// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Thermoquad/ocular/pkg/capture"
	"github.com/Thermoquad/ocular/pkg/config"
	"github.com/Thermoquad/ocular/pkg/controller"
	"github.com/Thermoquad/ocular/pkg/telemetry"
	"github.com/Thermoquad/ocular/pkg/transport"
)

var (
	emulateConfigPath string
	emulateVariant    variantValue
	emulateListen     string
	emulatePTY        string
	emulateInterlock  bool
	emulateSave       bool
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Run a simulated microscope controller",
	Long: `Emulate an Ocular microscope controller on a serial port, a pseudo
terminal or a WebSocket endpoint.

The emulator runs the same command dispatcher as the firmware against simulated
stages, light sources, DACs and GPIO. Settings come from a YAML file
(--config), a .env file next to it, and OCULAR_* environment variables; the
flags below override all of them.

Endpoints, first match wins:
  --port /dev/ttyS1     serve a real serial port
  --listen :8080        serve WebSocket clients at websocket.path
  --pty /tmp/ocular0    create a pseudo terminal (Linux only)

With telemetry enabled the device state is published to MQTT. With
capture.path set every byte in both directions is recorded for replay.`,
	RunE: runEmulate,
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().StringVarP(&emulateConfigPath, "config", "c", config.DefaultPath, "Emulator config file")
	emulateCmd.Flags().Var(&emulateVariant, "variant", "Controller variant (full or reduced)")
	emulateCmd.Flags().StringVar(&emulateListen, "listen", "", "Serve WebSocket clients on this address")
	emulateCmd.Flags().StringVar(&emulatePTY, "pty", "", "Create a pseudo terminal linked at this path")
	emulateCmd.Flags().BoolVar(&emulateInterlock, "interlock", false, "Start with the laser interlock engaged")
	emulateCmd.Flags().BoolVar(&emulateSave, "save-config", false, "Write the effective config back to --config and exit")
}

// variantValue is a pflag.Value for controller variants
type variantValue struct {
	set     bool
	variant controller.Variant
}

var _ pflag.Value = (*variantValue)(nil)

func (v *variantValue) String() string {
	if !v.set {
		return ""
	}
	return v.variant.String()
}

func (v *variantValue) Set(s string) error {
	parsed, err := controller.ParseVariant(s)
	if err != nil {
		return err
	}
	v.variant, v.set = parsed, true
	return nil
}

func (v *variantValue) Type() string {
	return "variant"
}

// emulatorConfig loads the config file and applies the command line on top
func emulatorConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(emulateConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if emulateVariant.set {
		cfg.Device.Variant = emulateVariant.String()
	}
	if flags.Changed("protocol") {
		cfg.Device.Protocol, _ = protocol()
	}
	if flags.Changed("port") {
		cfg.Serial.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.BaudRate = baudRate
	}
	if emulateListen != "" {
		cfg.WebSocket.ListenAddr = emulateListen
	}
	if emulatePTY != "" {
		cfg.PTY.Enabled = true
		cfg.PTY.Link = emulatePTY
	}
	if flags.Changed("interlock") {
		cfg.Illumination.Interlock = emulateInterlock
	}
	return cfg, cfg.Validate()
}

func runEmulate(cmd *cobra.Command, args []string) error {
	cfg, err := emulatorConfig(cmd)
	if err != nil {
		return err
	}
	if emulateSave {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Config written to %s\n", cfg.Path())
		return nil
	}

	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	sim := controller.NewSimulator(cfg.Motion.Speed)
	sim.SetInterlock(cfg.Illumination.Interlock)
	ctrl := controller.New(sim.Hardware(), cfg.ControllerOptions())
	engine := controller.NewEngine(ctrl, codec, cfg.EngineOptions())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		pub, err := telemetry.New(telemetry.Options{
			Broker:   cfg.Telemetry.Broker,
			Topic:    cfg.Telemetry.Topic,
			Interval: time.Duration(cfg.Telemetry.IntervalMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer pub.Close()

		states := make(chan controller.DeviceState, 4)
		engine.Subscribe(states)
		go pub.Run(ctx, states)
		glog.Infof("emulate: publishing state to %s as %s", cfg.Telemetry.Broker, telemetry.InstanceID())
	}

	var rec *capture.Recorder
	if cfg.Capture.Path != "" {
		f, err := os.Create(cfg.Capture.Path)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		defer f.Close()
		if rec, err = capture.NewRecorder(f, codec.Name(), nil); err != nil {
			return err
		}
		glog.Infof("emulate: capturing to %s", cfg.Capture.Path)
	}
	serve := func(rw io.ReadWriter) error {
		if rec != nil {
			rw = capture.Tap(rw, rec)
		}
		return engine.Run(ctx, rw)
	}

	fmt.Printf("Ocular - Controller Emulator\n")
	fmt.Printf("Variant: %s, protocol: %s\n", ctrl.Variant(), codec.Name())

	switch {
	case cfg.Serial.Port != "":
		err = emulateSerial(cfg, serve)
	case cfg.WebSocket.ListenAddr != "":
		err = emulateWebSocket(ctx, cfg, serve)
	case cfg.PTY.Enabled:
		err = emulatePseudoTerminal(cfg, serve)
	default:
		return fmt.Errorf("no endpoint configured (set --port, --listen or --pty)")
	}

	s := engine.Stats()
	glog.Infof("emulate: %d chunks, %d requests, %d checksum failures, %d responses, %d dropped snapshots",
		s.Chunks, s.Requests, s.ChecksumFailures, s.Responses, s.DroppedSnapshots)
	if rec != nil {
		fmt.Printf("Captured %d records to %s\n", rec.Count(), cfg.Capture.Path)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func emulateSerial(cfg *config.Config, serve func(io.ReadWriter) error) error {
	conn, err := transport.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Serving %s at %d baud\n", cfg.Serial.Port, cfg.Serial.BaudRate)
	return serve(conn)
}

func emulatePseudoTerminal(cfg *config.Config, serve func(io.ReadWriter) error) error {
	pty, err := transport.OpenPTY(cfg.PTY.Link)
	if err != nil {
		return err
	}
	defer pty.Close()

	fmt.Printf("Serving pseudo terminal %s", pty.Name())
	if pty.Path() != "" {
		fmt.Printf(" (linked at %s)", pty.Path())
	}
	fmt.Println()
	return serve(pty)
}

// emulateWebSocket serves one client at a time until ctx is done
func emulateWebSocket(ctx context.Context, cfg *config.Config, serve func(io.ReadWriter) error) error {
	password := ""
	if wsUsername != "" {
		var err error
		if password, err = GetPassword(); err != nil {
			return err
		}
	}
	ws := transport.NewWSServer(wsUsername, password)

	mux := http.NewServeMux()
	mux.Handle(cfg.WebSocket.Path, ws)
	srv := &http.Server{Addr: cfg.WebSocket.ListenAddr, Handler: mux}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe()
		cancel()
	}()
	defer srv.Close()

	fmt.Printf("Serving ws://%s%s\n", cfg.WebSocket.ListenAddr, cfg.WebSocket.Path)

	for {
		conn, err := ws.Accept(ctx)
		if err != nil {
			select {
			case err := <-srvErr:
				return err
			default:
			}
			return err
		}

		err = serve(conn)
		conn.Close()
		ws.Release()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil && !isClosed(err):
			glog.Warningf("emulate: client session ended: %v", err)
		default:
			glog.Info("emulate: client disconnected")
		}
	}
}
