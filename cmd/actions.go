// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

// errNotInProtocol is returned for actions the selected wire format lacks
var errNotInProtocol = errors.New("not available in this protocol")

// action is one user-level operation with its encoding in each protocol.
// A nil builder means the protocol has no such command. A legacy builder
// returning (nil, nil) reports the latest status instead of sending.
type action struct {
	name    string
	usage   string
	help    string
	minArgs int

	v2     func(args []string) (*ocular.Command, error)
	legacy func(args []string) (*legacy_protocol.Command, error)
}

// available reports whether the selected protocol has this action
func (a *action) available() bool {
	if isLegacy() {
		return a.legacy != nil
	}
	return a.v2 != nil
}

// actions is the command table shared by send, shell and control
var actions = map[string]*action{
	"move": {
		name: "move", usage: "move <axis> <usteps>", help: "Move an axis to an absolute position", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			axis, err := parseAxis(args[0])
			if err != nil {
				return nil, err
			}
			target, err := parseInt32(args[1])
			if err != nil {
				return nil, err
			}
			return ocular.NewMoveAxisCommand(0, axis, target), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			codes := map[ocular.Axis]uint8{
				ocular.AxisX: legacy_protocol.MOVETO_X,
				ocular.AxisY: legacy_protocol.MOVETO_Y,
				ocular.AxisZ: legacy_protocol.MOVETO_Z,
				ocular.AxisW: legacy_protocol.MOVETO_W,
			}
			code, target, err := legacyAxisMove(args, codes)
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewMoveToCommand(0, code, target), nil
		},
	},
	"rmove": {
		name: "rmove", usage: "rmove <axis> <usteps>", help: "Move an axis by a relative distance", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			axis, err := parseAxis(args[0])
			if err != nil {
				return nil, err
			}
			delta, err := parseInt32(args[1])
			if err != nil {
				return nil, err
			}
			return ocular.NewMoveRelativeCommand(0, axis, delta), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			codes := map[ocular.Axis]uint8{
				ocular.AxisX:      legacy_protocol.MOVE_X,
				ocular.AxisY:      legacy_protocol.MOVE_Y,
				ocular.AxisZ:      legacy_protocol.MOVE_Z,
				ocular.AxisTurret: legacy_protocol.MOVE_THETA,
				ocular.AxisW:      legacy_protocol.MOVE_W,
			}
			code, delta, err := legacyAxisMove(args, codes)
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewMoveCommand(0, code, delta), nil
		},
	},
	"home": {
		name: "home", usage: "home <axis> [fwd|back]", help: "Run an axis homing sequence", minArgs: 1,
		v2: func(args []string) (*ocular.Command, error) {
			axis, err := parseAxis(args[0])
			if err != nil {
				return nil, err
			}
			return ocular.NewHomeAxisCommand(0, axis, parseDirection(args[1:])), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			axis, err := parseLegacyAxis(args[0])
			if err != nil {
				return nil, err
			}
			dir := uint8(legacy_protocol.HOME_POSITIVE)
			if parseDirection(args[1:]) == ocular.HomingBackward {
				dir = legacy_protocol.HOME_NEGATIVE
			}
			return legacy_protocol.NewHomeCommand(0, axis, dir), nil
		},
	},
	"zero": {
		name: "zero", usage: "zero <axis>", help: "Declare the current position of an axis zero", minArgs: 1,
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			axis, err := parseLegacyAxis(args[0])
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewZeroCommand(0, axis), nil
		},
	},
	"stop": {
		name: "stop", usage: "stop [axis]", help: "Stop one axis, or all of them",
		v2: func(args []string) (*ocular.Command, error) {
			if len(args) == 0 {
				return ocular.NewStopAllCommand(0), nil
			}
			axis, err := parseAxis(args[0])
			if err != nil {
				return nil, err
			}
			return ocular.NewStopAxisCommand(0, axis), nil
		},
	},
	"enable": {
		name: "enable", usage: "enable <axis> on|off", help: "Enable or disable an axis driver", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			axis, err := parseAxis(args[0])
			if err != nil {
				return nil, err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return nil, err
			}
			return ocular.NewEnableAxisCommand(0, axis, on), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			axis, err := parseLegacyAxis(args[0])
			if err != nil {
				return nil, err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetAxisEnableCommand(0, axis, on), nil
		},
	},
	"filter": {
		name: "filter", usage: "filter [axis]", help: "Initialize a filter wheel (default W)",
		v2: func(args []string) (*ocular.Command, error) {
			axis := ocular.AxisW
			if len(args) > 0 {
				var err error
				if axis, err = parseAxis(args[0]); err != nil {
					return nil, err
				}
			}
			return ocular.NewInitFilterWheelCommand(0, axis), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			return legacy_protocol.NewInitFilterWheelCommand(0), nil
		},
	},
	"light": {
		name: "light", usage: "light <source> <intensity> [on|off|keep]", help: "Select an illumination source and intensity", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			source, intensity, err := parseIllumination(args)
			if err != nil {
				return nil, err
			}
			sw := ocular.SwitchKeep
			if len(args) > 2 {
				switch strings.ToLower(args[2]) {
				case "on":
					sw = ocular.SwitchOn
				case "off":
					sw = ocular.SwitchOff
				case "keep":
				default:
					return nil, fmt.Errorf("switch must be on, off or keep")
				}
			}
			return ocular.NewSetIlluminationCommand(0, source, intensity, sw), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			source, intensity, err := parseIllumination(args)
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetIlluminationCommand(0, source, intensity), nil
		},
	},
	"on": {
		name: "on", usage: "on", help: "Turn the selected illumination source on",
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			return legacy_protocol.NewTurnOnIlluminationCommand(0), nil
		},
	},
	"off": {
		name: "off", usage: "off", help: "Turn the selected illumination source off",
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			return legacy_protocol.NewTurnOffIlluminationCommand(0), nil
		},
	},
	"led": {
		name: "led", usage: "led <pattern> <r> <g> <b>", help: "Light an LED matrix pattern", minArgs: 4,
		v2: func(args []string) (*ocular.Command, error) {
			v, err := parseBytes(args[:4])
			if err != nil {
				return nil, err
			}
			return ocular.NewSetLEDMatrixCommand(0, v[0], v[1], v[2], v[3]), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			v, err := parseBytes(args[:4])
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetIlluminationLEDMatrixCommand(0, v[0], v[1], v[2], v[3]), nil
		},
	},
	"factor": {
		name: "factor", usage: "factor <percent>", help: "Scale illumination intensity", minArgs: 1,
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			v, err := parseBytes(args[:1])
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetIntensityFactorCommand(0, v[0]), nil
		},
	},
	"dac": {
		name: "dac", usage: "dac <channel> <value>", help: "Write a raw DAC value", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			ch, value, err := parseChannelValue(args)
			if err != nil {
				return nil, err
			}
			return ocular.NewSetDACCommand(0, ch, value), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			ch, value, err := parseChannelValue(args)
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewAnalogWriteDACCommand(0, ch, value), nil
		},
	},
	"gain": {
		name: "gain", usage: "gain <div> <gains>", help: "Set the DAC reference divider and gain bits", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			v, err := parseBytes(args[:2])
			if err != nil {
				return nil, err
			}
			return ocular.NewSetDACGainCommand(0, v[0], v[1]), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			v, err := parseBytes(args[:2])
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetDACGainCommand(0, v[0], v[1]), nil
		},
	},
	"ttl": {
		name: "ttl", usage: "ttl <channel> on|off", help: "Drive a camera trigger line", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			v, err := parseBytes(args[:1])
			if err != nil {
				return nil, err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return nil, err
			}
			return ocular.NewSetTTLCommand(0, v[0], on), nil
		},
	},
	"pin": {
		name: "pin", usage: "pin <pin> on|off", help: "Set a GPIO pin level", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			v, err := parseBytes(args[:1])
			if err != nil {
				return nil, err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return nil, err
			}
			return ocular.NewWriteGPIOCommand(0, v[0], on), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			v, err := parseBytes(args[:1])
			if err != nil {
				return nil, err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetPinLevelCommand(0, v[0], on), nil
		},
	},
	"strobe": {
		name: "strobe", usage: "strobe <channel> <delay-us>", help: "Set the illumination strobe delay of a camera channel", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			ch, us, err := parseChannelMicros(args)
			if err != nil {
				return nil, err
			}
			return ocular.NewSetCameraParamsCommand(0, ch, us), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			ch, us, err := parseChannelMicros(args)
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSetStrobeDelayCommand(0, ch, us), nil
		},
	},
	"trigger": {
		name: "trigger", usage: "trigger <channel> <on-us> [illum]", help: "Trigger a camera, optionally gating illumination", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			ch, us, err := parseChannelMicros(args)
			if err != nil {
				return nil, err
			}
			return ocular.NewTriggerCameraCommand(0, ch, hasFlag(args[2:], "illum"), us), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			ch, us, err := parseChannelMicros(args)
			if err != nil {
				return nil, err
			}
			return legacy_protocol.NewSendHardwareTriggerCommand(0, ch, hasFlag(args[2:], "illum"), us), nil
		},
	},
	"pulse": {
		name: "pulse", usage: "pulse <laser> <on-us>", help: "Pulse a laser channel", minArgs: 2,
		v2: func(args []string) (*ocular.Command, error) {
			ch, us, err := parseChannelMicros(args)
			if err != nil {
				return nil, err
			}
			return ocular.NewPulseIlluminationCommand(0, ch, us), nil
		},
	},
	"state": {
		name: "state", usage: "state", help: "Report the controller state",
		v2: func(args []string) (*ocular.Command, error) {
			return ocular.NewGetStateCommand(0), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			return nil, nil
		},
	},
	"version": {
		name: "version", usage: "version", help: "Report the firmware version",
		v2: func(args []string) (*ocular.Command, error) {
			return ocular.NewGetVersionCommand(0), nil
		},
	},
	"ack": {
		name: "ack", usage: "ack", help: "Acknowledge an error (v2) or the joystick button (legacy)",
		v2: func(args []string) (*ocular.Command, error) {
			return ocular.NewAckErrorCommand(0), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			return legacy_protocol.NewAckJoystickButtonCommand(0), nil
		},
	},
	"init": {
		name: "init", usage: "init", help: "Initialize the controller peripherals",
		v2: func(args []string) (*ocular.Command, error) {
			return ocular.NewInitializeCommand(0), nil
		},
		legacy: func(args []string) (*legacy_protocol.Command, error) {
			return legacy_protocol.NewInitializeCommand(0), nil
		},
	},
}

// actionNames returns the table keys in order
func actionNames() []string {
	names := make([]string, 0, len(actions)+1)
	for name := range actions {
		names = append(names, name)
	}
	names = append(names, "reset")
	sort.Strings(names)
	return names
}

// lookupAction splits a command line into its action and arguments
func lookupAction(words []string) (*action, []string, error) {
	if len(words) == 0 {
		return nil, nil, errors.New("empty command")
	}
	a, ok := actions[strings.ToLower(words[0])]
	if !ok {
		return nil, nil, fmt.Errorf("unknown command %q", words[0])
	}
	args := words[1:]
	if len(args) < a.minArgs {
		return nil, nil, fmt.Errorf("usage: %s", a.usage)
	}
	return a, args, nil
}

// axisNames accepts the names FormatAxis prints plus common aliases
var axisNames = map[string]ocular.Axis{
	"x":       ocular.AxisX,
	"y":       ocular.AxisY,
	"z":       ocular.AxisZ,
	"filter1": ocular.AxisFilter1,
	"turret":  ocular.AxisTurret,
	"theta":   ocular.AxisTurret,
	"w":       ocular.AxisW,
	"filter2": ocular.AxisFilter2,
	"aux1":    ocular.AxisAux1,
	"aux2":    ocular.AxisAux2,
}

func parseAxis(s string) (ocular.Axis, error) {
	if axis, ok := axisNames[strings.ToLower(s)]; ok {
		return axis, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown axis %q", s)
	}
	return ocular.Axis(n), nil
}

// parseLegacyAxis maps an axis name onto the legacy axis codes
func parseLegacyAxis(s string) (uint8, error) {
	axis, err := parseAxis(s)
	if err != nil {
		return 0, err
	}
	switch axis {
	case ocular.AxisX:
		return legacy_protocol.AXIS_X, nil
	case ocular.AxisY:
		return legacy_protocol.AXIS_Y, nil
	case ocular.AxisZ:
		return legacy_protocol.AXIS_Z, nil
	case ocular.AxisTurret:
		return legacy_protocol.AXIS_THETA, nil
	case ocular.AxisW:
		return legacy_protocol.AXIS_W, nil
	}
	return 0, fmt.Errorf("axis %s: %w", ocular.FormatAxis(axis), errNotInProtocol)
}

func legacyAxisMove(args []string, codes map[ocular.Axis]uint8) (uint8, int32, error) {
	axis, err := parseAxis(args[0])
	if err != nil {
		return 0, 0, err
	}
	code, ok := codes[axis]
	if !ok {
		return 0, 0, fmt.Errorf("axis %s: %w", ocular.FormatAxis(axis), errNotInProtocol)
	}
	usteps, err := parseInt32(args[1])
	return code, usteps, err
}

func parseDirection(args []string) ocular.HomingDirection {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "back", "backward", "neg", "-":
			return ocular.HomingBackward
		}
	}
	return ocular.HomingForward
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true", "high":
		return true, nil
	case "off", "0", "false", "low":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int32(v), nil
}

func parseBytes(args []string) ([]uint8, error) {
	out := make([]uint8, len(args))
	for i, s := range args {
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q", s)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

func parseChannelValue(args []string) (uint8, uint16, error) {
	ch, err := parseBytes(args[:1])
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", args[1])
	}
	return ch[0], uint16(v), nil
}

func parseChannelMicros(args []string) (uint8, uint32, error) {
	ch, err := parseBytes(args[:1])
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid duration %q", args[1])
	}
	return ch[0], uint32(v), nil
}

// sourceNames accepts wavelengths with or without the nm suffix
var sourceNames = map[string]uint8{
	"405": ocular.Source405nm,
	"488": ocular.Source488nm,
	"561": ocular.Source561nm,
	"638": ocular.Source638nm,
	"730": ocular.Source730nm,
	"led": ocular.SourceLEDArrayFull,
}

func parseIllumination(args []string) (uint8, uint16, error) {
	name := strings.TrimSuffix(strings.ToLower(args[0]), "nm")
	source, ok := sourceNames[name]
	if !ok {
		v, err := parseBytes([]string{args[0]})
		if err != nil {
			return 0, 0, fmt.Errorf("unknown source %q", args[0])
		}
		source = v[0]
	}
	intensity, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid intensity %q", args[1])
	}
	return source, uint16(intensity), nil
}
