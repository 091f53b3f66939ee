// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import "fmt"

// FormatCommand formats a command into a human-readable string
func FormatCommand(c *Command) string {
	timestamp := c.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (%d) id=%d\n", timestamp, FormatCommandCode(c.code), c.code, c.id)
	return result + FormatParams(c)
}

// FormatCommandCode returns the human-readable name for a command code
func FormatCommandCode(code uint8) string {
	switch code {
	// Motion
	case MOVE_X:
		return "MOVE_X"
	case MOVE_Y:
		return "MOVE_Y"
	case MOVE_Z:
		return "MOVE_Z"
	case MOVE_THETA:
		return "MOVE_THETA"
	case MOVE_W:
		return "MOVE_W"
	case HOME_OR_ZERO:
		return "HOME_OR_ZERO"
	case MOVETO_X:
		return "MOVETO_X"
	case MOVETO_Y:
		return "MOVETO_Y"
	case MOVETO_Z:
		return "MOVETO_Z"
	case MOVETO_W:
		return "MOVETO_W"
	case SET_LIM:
		return "SET_LIM"

	// Illumination and I/O
	case TURN_ON_ILLUMINATION:
		return "TURN_ON_ILLUMINATION"
	case TURN_OFF_ILLUMINATION:
		return "TURN_OFF_ILLUMINATION"
	case SET_ILLUMINATION:
		return "SET_ILLUMINATION"
	case SET_ILLUMINATION_LED_MATRIX:
		return "SET_ILLUMINATION_LED_MATRIX"
	case ACK_JOYSTICK_BUTTON_PRESSED:
		return "ACK_JOYSTICK_BUTTON_PRESSED"
	case ANALOG_WRITE_ONBOARD_DAC:
		return "ANALOG_WRITE_ONBOARD_DAC"
	case SET_DAC80508_REFDIV_GAIN:
		return "SET_DAC80508_REFDIV_GAIN"
	case SET_ILLUMINATION_INTENSITY_FACTOR:
		return "SET_ILLUMINATION_INTENSITY_FACTOR"

	// Stage configuration
	case SET_LIM_SWITCH_POLARITY:
		return "SET_LIM_SWITCH_POLARITY"
	case CONFIGURE_STEPPER_DRIVER:
		return "CONFIGURE_STEPPER_DRIVER"
	case SET_MAX_VELOCITY_ACCELERATION:
		return "SET_MAX_VELOCITY_ACCELERATION"
	case SET_LEAD_SCREW_PITCH:
		return "SET_LEAD_SCREW_PITCH"
	case SET_OFFSET_VELOCITY:
		return "SET_OFFSET_VELOCITY"
	case CONFIGURE_STAGE_PID:
		return "CONFIGURE_STAGE_PID"
	case ENABLE_STAGE_PID:
		return "ENABLE_STAGE_PID"
	case DISABLE_STAGE_PID:
		return "DISABLE_STAGE_PID"
	case SET_HOME_SAFETY_MERGIN:
		return "SET_HOME_SAFETY_MERGIN"
	case SET_PID_ARGUMENTS:
		return "SET_PID_ARGUMENTS"

	// Camera and system
	case SEND_HARDWARE_TRIGGER:
		return "SEND_HARDWARE_TRIGGER"
	case SET_STROBE_DELAY:
		return "SET_STROBE_DELAY"
	case SET_AXIS_DISABLE_ENABLE:
		return "SET_AXIS_DISABLE_ENABLE"
	case SET_TRIGGER_MODE:
		return "SET_TRIGGER_MODE"
	case SET_PIN_LEVEL:
		return "SET_PIN_LEVEL"
	case INITFILTERWHEEL:
		return "INITFILTERWHEEL"
	case INITIALIZE:
		return "INITIALIZE"
	case RESET:
		return "RESET"

	default:
		return "UNKNOWN"
	}
}

// FormatParams formats the parameters of a command based on its code
func FormatParams(c *Command) string {
	switch c.code {
	case MOVE_X, MOVE_Y, MOVE_Z, MOVE_THETA, MOVE_W:
		return fmt.Sprintf("  Delta: %d usteps\n", c.ParamInt32(0))

	case MOVETO_X, MOVETO_Y, MOVETO_Z, MOVETO_W:
		return fmt.Sprintf("  Target: %d usteps\n", c.ParamInt32(0))

	case HOME_OR_ZERO:
		axis := c.Param(0)
		if axis == AXIS_XY {
			return fmt.Sprintf("  Axis: XY, Directions: %s/%s\n", formatHomeMode(c.Param(1)), formatHomeMode(c.Param(2)))
		}
		return fmt.Sprintf("  Axis: %s, Mode: %s\n", FormatAxis(axis), formatHomeMode(c.Param(1)))

	case SET_LIM:
		return fmt.Sprintf("  Limit: %s, Position: %d usteps\n", formatLimitCode(c.Param(0)), c.ParamInt32(1))

	case SET_ILLUMINATION:
		return fmt.Sprintf("  Source: %d, Intensity: %d\n", c.Param(0), c.ParamUint16(1))

	case SET_ILLUMINATION_LED_MATRIX:
		return fmt.Sprintf("  Pattern: %d, RGB: (%d, %d, %d)\n", c.Param(0), c.Param(1), c.Param(2), c.Param(3))

	case ANALOG_WRITE_ONBOARD_DAC:
		return fmt.Sprintf("  Channel: %d, Value: %d\n", c.Param(0), c.ParamUint16(1))

	case SET_DAC80508_REFDIV_GAIN:
		return fmt.Sprintf("  Div: 0x%02X, Gains: 0x%02X\n", c.Param(0), c.Param(1))

	case SET_ILLUMINATION_INTENSITY_FACTOR:
		return fmt.Sprintf("  Factor: %d%%\n", c.Param(0))

	case SEND_HARDWARE_TRIGGER:
		trigger := c.Param(0)
		return fmt.Sprintf("  Channel: %d, Illumination: %t, On Time: %d us\n",
			trigger&TRIGGER_CHANNEL_MASK, trigger&TRIGGER_CONTROL_ILLUMINATION != 0, c.ParamUint32(1))

	case SET_STROBE_DELAY:
		return fmt.Sprintf("  Channel: %d, Delay: %d us\n", c.Param(0), c.ParamUint32(1))

	case SET_OFFSET_VELOCITY:
		return fmt.Sprintf("  Axis: %s, Velocity: %d\n", FormatAxis(c.Param(0)), c.ParamInt32(1))

	case SET_MAX_VELOCITY_ACCELERATION:
		return fmt.Sprintf("  Axis: %s, Velocity: %d, Acceleration: %d\n", FormatAxis(c.Param(0)), c.ParamUint16(1), c.ParamUint16(3))

	case SET_PIN_LEVEL:
		return fmt.Sprintf("  Pin: %d, Level: %d\n", c.Param(0), c.Param(1))

	case TURN_ON_ILLUMINATION, TURN_OFF_ILLUMINATION, ACK_JOYSTICK_BUTTON_PRESSED, INITFILTERWHEEL, INITIALIZE, RESET:
		return "  (no params)\n"
	}

	return fmt.Sprintf("  Params: % X\n", c.params[:])
}

// FormatResponse formats a status message into a human-readable string
func FormatResponse(r *Response) string {
	timestamp := r.Timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] STATUS id=%d %s\n", timestamp, r.CommandID, FormatStatus(r.Status))
	result += fmt.Sprintf("  X=%d Y=%d Z=%d W=%d\n", r.X, r.Y, r.Z, r.W)
	result += fmt.Sprintf("  Joystick: %t, Switch: %t\n", r.JoystickPressed(), r.SwitchOn())
	return result
}

// FormatStatus returns the human-readable name for an execution status
func FormatStatus(status uint8) string {
	switch status {
	case COMPLETED_WITHOUT_ERRORS:
		return "COMPLETED_WITHOUT_ERRORS"
	case IN_PROGRESS:
		return "IN_PROGRESS"
	case CMD_CHECKSUM_ERROR:
		return "CMD_CHECKSUM_ERROR"
	case CMD_INVALID:
		return "CMD_INVALID"
	case CMD_EXECUTION_ERROR:
		return "CMD_EXECUTION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// FormatAxis returns the human-readable name for a legacy axis code
func FormatAxis(axis uint8) string {
	switch axis {
	case AXIS_X:
		return "X"
	case AXIS_Y:
		return "Y"
	case AXIS_Z:
		return "Z"
	case AXIS_THETA:
		return "THETA"
	case AXIS_XY:
		return "XY"
	case AXIS_W:
		return "W"
	default:
		return fmt.Sprintf("AXIS(%d)", axis)
	}
}

func formatHomeMode(mode uint8) string {
	switch mode {
	case HOME_POSITIVE:
		return "POSITIVE"
	case HOME_NEGATIVE:
		return "NEGATIVE"
	case HOME_ZERO:
		return "ZERO"
	default:
		return "UNKNOWN"
	}
}

func formatLimitCode(code uint8) string {
	switch code {
	case LIM_CODE_X_POSITIVE:
		return "X+"
	case LIM_CODE_X_NEGATIVE:
		return "X-"
	case LIM_CODE_Y_POSITIVE:
		return "Y+"
	case LIM_CODE_Y_NEGATIVE:
		return "Y-"
	case LIM_CODE_Z_POSITIVE:
		return "Z+"
	case LIM_CODE_Z_NEGATIVE:
		return "Z-"
	default:
		return "UNKNOWN"
	}
}
