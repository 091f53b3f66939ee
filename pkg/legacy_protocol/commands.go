// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import "encoding/binary"

// Command builder functions create 8-byte commands ready for transmission.
// Multi-byte parameters are big-endian.

func be16(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// NewMoveCommand creates a relative MOVE_X/Y/Z/THETA/W command (0-4)
func NewMoveCommand(id uint8, code uint8, usteps int32) *Command {
	return NewCommand(id, code, be32(uint32(usteps)))
}

// NewMoveToCommand creates an absolute MOVETO_X/Y/Z/W command (6-8, 18)
func NewMoveToCommand(id uint8, code uint8, usteps int32) *Command {
	return NewCommand(id, code, be32(uint32(usteps)))
}

// NewHomeCommand creates a HOME_OR_ZERO command (5) homing one axis
func NewHomeCommand(id uint8, axis uint8, direction uint8) *Command {
	return NewCommand(id, HOME_OR_ZERO, []byte{axis, direction})
}

// NewHomeXYCommand creates a HOME_OR_ZERO command (5) homing X and Y together
func NewHomeXYCommand(id uint8, directionX, directionY uint8) *Command {
	return NewCommand(id, HOME_OR_ZERO, []byte{AXIS_XY, directionX, directionY})
}

// NewZeroCommand creates a HOME_OR_ZERO command (5) that zeroes an axis position
func NewZeroCommand(id uint8, axis uint8) *Command {
	return NewCommand(id, HOME_OR_ZERO, []byte{axis, HOME_ZERO})
}

// NewSetLimCommand creates a SET_LIM command (9)
func NewSetLimCommand(id uint8, limitCode uint8, usteps int32) *Command {
	return NewCommand(id, SET_LIM, append([]byte{limitCode}, be32(uint32(usteps))...))
}

// NewTurnOnIlluminationCommand creates a TURN_ON_ILLUMINATION command (10)
func NewTurnOnIlluminationCommand(id uint8) *Command {
	return NewCommand(id, TURN_ON_ILLUMINATION, nil)
}

// NewTurnOffIlluminationCommand creates a TURN_OFF_ILLUMINATION command (11)
func NewTurnOffIlluminationCommand(id uint8) *Command {
	return NewCommand(id, TURN_OFF_ILLUMINATION, nil)
}

// NewSetIlluminationCommand creates a SET_ILLUMINATION command (12)
func NewSetIlluminationCommand(id uint8, source uint8, intensity uint16) *Command {
	return NewCommand(id, SET_ILLUMINATION, append([]byte{source}, be16(intensity)...))
}

// NewSetIlluminationLEDMatrixCommand creates a SET_ILLUMINATION_LED_MATRIX command (13)
func NewSetIlluminationLEDMatrixCommand(id uint8, pattern, r, g, b uint8) *Command {
	return NewCommand(id, SET_ILLUMINATION_LED_MATRIX, []byte{pattern, r, g, b})
}

// NewAckJoystickButtonCommand creates an ACK_JOYSTICK_BUTTON_PRESSED command (14)
func NewAckJoystickButtonCommand(id uint8) *Command {
	return NewCommand(id, ACK_JOYSTICK_BUTTON_PRESSED, nil)
}

// NewAnalogWriteDACCommand creates an ANALOG_WRITE_ONBOARD_DAC command (15)
func NewAnalogWriteDACCommand(id uint8, channel uint8, value uint16) *Command {
	return NewCommand(id, ANALOG_WRITE_ONBOARD_DAC, append([]byte{channel}, be16(value)...))
}

// NewSetDACGainCommand creates a SET_DAC80508_REFDIV_GAIN command (16)
func NewSetDACGainCommand(id uint8, div, gains uint8) *Command {
	return NewCommand(id, SET_DAC80508_REFDIV_GAIN, []byte{div, gains})
}

// NewSetIntensityFactorCommand creates a SET_ILLUMINATION_INTENSITY_FACTOR command (17).
// The controller clamps percent to 100.
func NewSetIntensityFactorCommand(id uint8, percent uint8) *Command {
	return NewCommand(id, SET_ILLUMINATION_INTENSITY_FACTOR, []byte{percent})
}

// NewSetLimSwitchPolarityCommand creates a SET_LIM_SWITCH_POLARITY command (20)
func NewSetLimSwitchPolarityCommand(id uint8, axis, polarity uint8) *Command {
	return NewCommand(id, SET_LIM_SWITCH_POLARITY, []byte{axis, polarity})
}

// NewConfigureStepperDriverCommand creates a CONFIGURE_STEPPER_DRIVER command (21)
func NewConfigureStepperDriverCommand(id uint8, axis, microstepping uint8, currentRMS uint16, holdCurrent uint8) *Command {
	params := append([]byte{axis, microstepping}, be16(currentRMS)...)
	return NewCommand(id, CONFIGURE_STEPPER_DRIVER, append(params, holdCurrent))
}

// NewSetMaxVelocityAccelerationCommand creates a SET_MAX_VELOCITY_ACCELERATION command (22)
func NewSetMaxVelocityAccelerationCommand(id uint8, axis uint8, velocity, acceleration uint16) *Command {
	params := append([]byte{axis}, be16(velocity)...)
	return NewCommand(id, SET_MAX_VELOCITY_ACCELERATION, append(params, be16(acceleration)...))
}

// NewSetLeadScrewPitchCommand creates a SET_LEAD_SCREW_PITCH command (23)
func NewSetLeadScrewPitchCommand(id uint8, axis uint8, pitch uint16) *Command {
	return NewCommand(id, SET_LEAD_SCREW_PITCH, append([]byte{axis}, be16(pitch)...))
}

// NewSetOffsetVelocityCommand creates a SET_OFFSET_VELOCITY command (24)
func NewSetOffsetVelocityCommand(id uint8, axis uint8, velocity int32) *Command {
	return NewCommand(id, SET_OFFSET_VELOCITY, append([]byte{axis}, be32(uint32(velocity))...))
}

// NewConfigureStagePIDCommand creates a CONFIGURE_STAGE_PID command (25)
func NewConfigureStagePIDCommand(id uint8, axis uint8, flip bool, transitions uint16) *Command {
	return NewCommand(id, CONFIGURE_STAGE_PID, append([]byte{axis, boolByte(flip)}, be16(transitions)...))
}

// NewEnableStagePIDCommand creates an ENABLE_STAGE_PID (26) or DISABLE_STAGE_PID (27) command
func NewEnableStagePIDCommand(id uint8, axis uint8, enable bool) *Command {
	if enable {
		return NewCommand(id, ENABLE_STAGE_PID, []byte{axis})
	}
	return NewCommand(id, DISABLE_STAGE_PID, []byte{axis})
}

// NewSetHomeSafetyMarginCommand creates a SET_HOME_SAFETY_MERGIN command (28)
func NewSetHomeSafetyMarginCommand(id uint8, axis uint8, margin uint16) *Command {
	return NewCommand(id, SET_HOME_SAFETY_MERGIN, append([]byte{axis}, be16(margin)...))
}

// NewSetPIDArgumentsCommand creates a SET_PID_ARGUMENTS command (29)
func NewSetPIDArgumentsCommand(id uint8, axis uint8, p uint16, i, d uint8) *Command {
	params := append([]byte{axis}, be16(p)...)
	return NewCommand(id, SET_PID_ARGUMENTS, append(params, i, d))
}

// NewSendHardwareTriggerCommand creates a SEND_HARDWARE_TRIGGER command (30)
func NewSendHardwareTriggerCommand(id uint8, channel uint8, controlIllumination bool, onTimeUs uint32) *Command {
	trigger := channel & TRIGGER_CHANNEL_MASK
	if controlIllumination {
		trigger |= TRIGGER_CONTROL_ILLUMINATION
	}
	return NewCommand(id, SEND_HARDWARE_TRIGGER, append([]byte{trigger}, be32(onTimeUs)...))
}

// NewSetStrobeDelayCommand creates a SET_STROBE_DELAY command (31)
func NewSetStrobeDelayCommand(id uint8, channel uint8, delayUs uint32) *Command {
	return NewCommand(id, SET_STROBE_DELAY, append([]byte{channel}, be32(delayUs)...))
}

// NewSetAxisEnableCommand creates a SET_AXIS_DISABLE_ENABLE command (32)
func NewSetAxisEnableCommand(id uint8, axis uint8, enable bool) *Command {
	return NewCommand(id, SET_AXIS_DISABLE_ENABLE, []byte{axis, boolByte(enable)})
}

// NewSetTriggerModeCommand creates a SET_TRIGGER_MODE command (33)
func NewSetTriggerModeCommand(id uint8, mode uint8) *Command {
	return NewCommand(id, SET_TRIGGER_MODE, []byte{mode})
}

// NewSetPinLevelCommand creates a SET_PIN_LEVEL command (41)
func NewSetPinLevelCommand(id uint8, pin uint8, level bool) *Command {
	return NewCommand(id, SET_PIN_LEVEL, []byte{pin, boolByte(level)})
}

// NewInitFilterWheelCommand creates an INITFILTERWHEEL command (253)
func NewInitFilterWheelCommand(id uint8) *Command {
	return NewCommand(id, INITFILTERWHEEL, nil)
}

// NewInitializeCommand creates an INITIALIZE command (254)
func NewInitializeCommand(id uint8) *Command {
	return NewCommand(id, INITIALIZE, nil)
}

// NewResetCommand creates a RESET command (255)
func NewResetCommand(id uint8) *Command {
	return NewCommand(id, RESET, nil)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
