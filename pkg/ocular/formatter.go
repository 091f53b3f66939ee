// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")

	if p.IsResponse() {
		resp, err := ParseResponse(p.payload)
		if err == nil {
			result := fmt.Sprintf("[%s] RESPONSE id=%d len=%d\n", timestamp, resp.CommandID, p.length)
			return result + FormatResponse(resp)
		}
	}

	cmdType := FormatCommandType(p.CommandType())
	result := fmt.Sprintf("[%s] %s (0x%02X) id=%d len=%d\n", timestamp, cmdType, p.CommandType(), p.CommandID(), p.length)
	if len(p.payload) >= 2 {
		result += FormatParams(p.CommandType(), p.Params())
	}
	return result
}

// FormatCommandType returns the human-readable name for a command type
func FormatCommandType(cmdType uint8) string {
	switch cmdType {
	// Motion (0x01-0x0F)
	case CmdMoveAxis:
		return "MOVE_AXIS"
	case CmdMoveRelative:
		return "MOVE_RELATIVE"
	case CmdHomeAxis:
		return "HOME_AXIS"
	case CmdStopAxis:
		return "STOP_AXIS"
	case CmdStopAll:
		return "STOP_ALL"
	case CmdEnableAxis:
		return "ENABLE_AXIS"
	case CmdInitFilterWheel:
		return "INIT_FILTER_WHEEL"

	// Configuration (0x10-0x1F)
	case CmdSetAxisParams:
		return "SET_AXIS_PARAMS"
	case CmdGetAxisParams:
		return "GET_AXIS_PARAMS"
	case CmdSetCameraParams:
		return "SET_CAMERA_PARAMS"
	case CmdSetPIDParams:
		return "SET_PID_PARAMS"
	case CmdEnablePID:
		return "ENABLE_PID"
	case CmdDisablePID:
		return "DISABLE_PID"

	// I/O (0x20-0x2F)
	case CmdSetDAC:
		return "SET_DAC"
	case CmdSetTTL:
		return "SET_TTL"
	case CmdConfigGPIO:
		return "CONFIG_GPIO"
	case CmdWriteGPIO:
		return "WRITE_GPIO"
	case CmdReadGPIO:
		return "READ_GPIO"
	case CmdSetDACGain:
		return "SET_DAC_GAIN"

	// Illumination (0x30-0x3F)
	case CmdSetIllumination:
		return "SET_ILLUMINATION"
	case CmdSetLEDMatrix:
		return "SET_LED_MATRIX"
	case CmdPulseIllumination:
		return "PULSE_ILLUMINATION"

	// Camera (0x40-0x4F)
	case CmdTriggerCamera:
		return "TRIGGER_CAMERA"

	// Sequence upload (0x50-0x5F)
	case CmdHSAUploadHeader:
		return "HSA_UPLOAD_HEADER"
	case CmdHSAUploadActions:
		return "HSA_UPLOAD_ACTIONS"
	case CmdHSAUploadTriggerProfile:
		return "HSA_UPLOAD_TRIGGER_PROFILE"
	case CmdHSAUploadIntensity:
		return "HSA_UPLOAD_INTENSITY"
	case CmdHSAStart:
		return "HSA_START"
	case CmdHSACancel:
		return "HSA_CANCEL"

	// System (0xF0-0xFF)
	case CmdGetState:
		return "GET_STATE"
	case CmdAckError:
		return "ACK_ERROR"
	case CmdGetVersion:
		return "GET_VERSION"
	case CmdInitialize:
		return "INITIALIZE"
	case CmdReset:
		return "RESET"

	default:
		return "UNKNOWN"
	}
}

// FormatParams formats command parameters based on command type
func FormatParams(cmdType uint8, params []byte) string {
	le := binary.LittleEndian

	switch cmdType {
	case CmdStopAll, CmdGetState, CmdAckError, CmdGetVersion, CmdInitialize, CmdReset:
		return "  (no params)\n"

	case CmdMoveAxis, CmdMoveRelative:
		if len(params) >= 5 {
			label := "Target"
			if cmdType == CmdMoveRelative {
				label = "Delta"
			}
			return fmt.Sprintf("  Axis: %s, %s: %d\n", FormatAxis(Axis(params[0])), label, int32(le.Uint32(params[1:5])))
		}

	case CmdHomeAxis:
		if len(params) >= 2 {
			dir := "FORWARD"
			if HomingDirection(params[1]) == HomingBackward {
				dir = "BACKWARD"
			}
			return fmt.Sprintf("  Axis: %s, Direction: %s\n", FormatAxis(Axis(params[0])), dir)
		}

	case CmdStopAxis, CmdInitFilterWheel, CmdGetAxisParams, CmdEnablePID, CmdDisablePID:
		if len(params) >= 1 {
			return fmt.Sprintf("  Axis: %s\n", FormatAxis(Axis(params[0])))
		}

	case CmdEnableAxis:
		if len(params) >= 2 {
			return fmt.Sprintf("  Axis: %s, Enable: %t\n", FormatAxis(Axis(params[0])), params[1] != 0)
		}

	case CmdSetAxisParams:
		if len(params) >= 18 {
			return fmt.Sprintf("  Axis: %s, MaxVel: %d, Accel: %d, Limits: [%d, %d], RequireHomed: %t\n",
				FormatAxis(Axis(params[0])), le.Uint32(params[1:5]), le.Uint32(params[5:9]),
				int32(le.Uint32(params[9:13])), int32(le.Uint32(params[13:17])), params[17]&0x01 != 0)
		}

	case CmdSetCameraParams:
		if len(params) >= 5 {
			return fmt.Sprintf("  Channel: %d, Strobe Delay: %d us\n", params[0], le.Uint32(params[1:5]))
		}

	case CmdSetPIDParams:
		if len(params) >= 5 {
			return fmt.Sprintf("  Axis: %s, P: %d, I: %d, D: %d\n", FormatAxis(Axis(params[0])), le.Uint16(params[1:3]), params[3], params[4])
		}

	case CmdSetDAC:
		if len(params) >= 3 {
			return fmt.Sprintf("  Channel: %d, Value: %d\n", params[0], le.Uint16(params[1:3]))
		}

	case CmdSetTTL, CmdWriteGPIO:
		if len(params) >= 2 {
			return fmt.Sprintf("  Pin: %d, Level: %d\n", params[0], params[1])
		}

	case CmdConfigGPIO:
		if len(params) >= 2 {
			return fmt.Sprintf("  Pin: %d, Mode: %d\n", params[0], params[1])
		}

	case CmdReadGPIO:
		if len(params) >= 1 {
			return fmt.Sprintf("  Pin: %d\n", params[0])
		}

	case CmdSetDACGain:
		if len(params) >= 2 {
			return fmt.Sprintf("  Div: 0x%02X, Gains: 0x%02X\n", params[0], params[1])
		}

	case CmdSetIllumination:
		if len(params) >= 4 {
			return fmt.Sprintf("  Source: %s, Intensity: %d, Switch: %s\n",
				FormatSource(params[0]), le.Uint16(params[1:3]), formatSwitch(IlluminationSwitch(params[3])))
		}

	case CmdSetLEDMatrix:
		if len(params) >= 4 {
			return fmt.Sprintf("  Pattern: %d, RGB: (%d, %d, %d)\n", params[0], params[1], params[2], params[3])
		}

	case CmdPulseIllumination:
		if len(params) >= 5 {
			return fmt.Sprintf("  Channel: %d, On Time: %d us\n", params[0], le.Uint32(params[1:5]))
		}

	case CmdTriggerCamera:
		if len(params) >= 6 {
			return fmt.Sprintf("  Channel: %d, Illumination: %t, On Time: %d us\n", params[0], params[1] != 0, le.Uint32(params[2:6]))
		}
	}

	if len(params) == 0 {
		return "  (no params)\n"
	}
	return fmt.Sprintf("  Params: % X\n", params)
}

// FormatResponse formats a decoded status response
func FormatResponse(r *ResponsePacket) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  Status: %s, Error: %s, Mode: %s\n", FormatStatus(r.Status), FormatError(r.Error), FormatMode(r.Mode))
	for i, axis := range r.Axes {
		homed := ""
		if axis.Homed {
			homed = " homed"
		}
		fmt.Fprintf(&b, "    %-8s pos=%d target=%d %s%s", FormatAxis(ResponseAxisSlots[i]), axis.Position, axis.Target, FormatAxisState(axis.State), homed)
		if axis.Error != ErrNone {
			fmt.Fprintf(&b, " err=%s", FormatError(axis.Error))
		}
		b.WriteString("\n")
	}

	dac := make([]string, len(r.DAC))
	for i, v := range r.DAC {
		dac[i] = fmt.Sprintf("%d", v)
	}
	fmt.Fprintf(&b, "  DAC: [%s]\n", strings.Join(dac, " "))
	fmt.Fprintf(&b, "  Illumination: mask=0x%02X pattern=%d\n", r.IllumOnMask, r.LEDPattern)
	fmt.Fprintf(&b, "  Joystick: dx=%d dy=%d buttons=0x%02X\n", r.JoystickDX, r.JoystickDY, r.Buttons)

	return b.String()
}

// FormatStatus returns the human-readable name for a status byte
func FormatStatus(s Status) string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusRejected:
		return "REJECTED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(s))
	}
}

// FormatError returns the human-readable name for an error code
func FormatError(e ErrorCode) string {
	switch e {
	case ErrNone:
		return "NONE"
	case ErrInvalidCmd:
		return "INVALID_CMD"
	case ErrInvalidAxis:
		return "INVALID_AXIS"
	case ErrAxisBusy:
		return "AXIS_BUSY"
	case ErrAxisNotHomed:
		return "AXIS_NOT_HOMED"
	case ErrLimitReached:
		return "LIMIT_REACHED"
	case ErrChecksum:
		return "CHECKSUM"
	case ErrPacketTooShort:
		return "PACKET_TOO_SHORT"
	case ErrPacketTooLong:
		return "PACKET_TOO_LONG"
	case ErrSystemInError:
		return "SYSTEM_IN_ERROR"
	case ErrHSARunning:
		return "HSA_RUNNING"
	case ErrInterlock:
		return "INTERLOCK"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(e))
	}
}

// FormatMode returns the human-readable name for a system mode
func FormatMode(m SystemMode) string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeHSA:
		return "HSA"
	case ModeError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(m))
	}
}

// FormatAxisState returns the human-readable name for an axis state
func FormatAxisState(s AxisState) string {
	switch s {
	case AxisIdle:
		return "IDLE"
	case AxisMoving:
		return "MOVING"
	case AxisHoming:
		return "HOMING"
	case AxisError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(s))
	}
}

// FormatAxis returns the human-readable name for an axis identifier
func FormatAxis(a Axis) string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	case AxisFilter1:
		return "FILTER1"
	case AxisTurret:
		return "TURRET"
	case AxisFilter2:
		return "W"
	case AxisAux1:
		return "AUX1"
	case AxisAux2:
		return "AUX2"
	default:
		return fmt.Sprintf("AXIS(%d)", uint8(a))
	}
}

// FormatSource returns the human-readable name for an illumination source
func FormatSource(source uint8) string {
	switch source {
	case Source405nm:
		return "405nm"
	case Source488nm:
		return "488nm"
	case Source561nm:
		return "561nm"
	case Source638nm:
		return "638nm"
	case Source730nm:
		return "730nm"
	}
	if source <= MaxLEDSource {
		return fmt.Sprintf("LED(%d)", source)
	}
	return fmt.Sprintf("UNKNOWN(%d)", source)
}

func formatSwitch(sw IlluminationSwitch) string {
	switch sw {
	case SwitchKeep:
		return "KEEP"
	case SwitchOn:
		return "ON"
	case SwitchOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}
