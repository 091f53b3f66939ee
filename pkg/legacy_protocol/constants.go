// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package legacy_protocol implements the fixed-length command protocol spoken
// by first-generation microscope controllers: 8-byte commands and 24-byte
// periodic status messages, both protected by a trailing CRC-8.
package legacy_protocol

// Packet Sizes
const (
	CMD_LENGTH     = 8
	MSG_LENGTH     = 24
	CMD_PARAM_SIZE = 5
)

// CRC-8 Configuration
const (
	CRC8_POLYNOMIAL = 0x07
	CRC8_INITIAL    = 0x00
)

// Command Codes - Motion
const (
	MOVE_X       = 0
	MOVE_Y       = 1
	MOVE_Z       = 2
	MOVE_THETA   = 3
	MOVE_W       = 4
	HOME_OR_ZERO = 5
	MOVETO_X     = 6
	MOVETO_Y     = 7
	MOVETO_Z     = 8
	SET_LIM      = 9
	MOVETO_W     = 18
)

// Command Codes - Illumination and I/O
const (
	TURN_ON_ILLUMINATION              = 10
	TURN_OFF_ILLUMINATION             = 11
	SET_ILLUMINATION                  = 12
	SET_ILLUMINATION_LED_MATRIX       = 13
	ACK_JOYSTICK_BUTTON_PRESSED       = 14
	ANALOG_WRITE_ONBOARD_DAC          = 15
	SET_DAC80508_REFDIV_GAIN          = 16
	SET_ILLUMINATION_INTENSITY_FACTOR = 17
)

// Command Codes - Stage Configuration
const (
	SET_LIM_SWITCH_POLARITY       = 20
	CONFIGURE_STEPPER_DRIVER      = 21
	SET_MAX_VELOCITY_ACCELERATION = 22
	SET_LEAD_SCREW_PITCH          = 23
	SET_OFFSET_VELOCITY           = 24
	CONFIGURE_STAGE_PID           = 25
	ENABLE_STAGE_PID              = 26
	DISABLE_STAGE_PID             = 27
	SET_HOME_SAFETY_MERGIN        = 28
	SET_PID_ARGUMENTS             = 29
)

// Command Codes - Camera and System
const (
	SEND_HARDWARE_TRIGGER   = 30
	SET_STROBE_DELAY        = 31
	SET_AXIS_DISABLE_ENABLE = 32
	SET_TRIGGER_MODE        = 33
	SET_PIN_LEVEL           = 41
	INITFILTERWHEEL         = 253
	INITIALIZE              = 254
	RESET                   = 255
)

// Execution Status
const (
	COMPLETED_WITHOUT_ERRORS = 0
	IN_PROGRESS              = 1
	CMD_CHECKSUM_ERROR       = 2
	CMD_INVALID              = 3
	CMD_EXECUTION_ERROR      = 4
)

// Axis Codes
const (
	AXIS_X     = 0
	AXIS_Y     = 1
	AXIS_Z     = 2
	AXIS_THETA = 3
	AXIS_XY    = 4
	AXIS_W     = 5
)

// HOME_OR_ZERO Modes
const (
	HOME_POSITIVE = 0
	HOME_NEGATIVE = 1
	HOME_ZERO     = 2
)

// SET_LIM Limit Codes
const (
	LIM_CODE_X_POSITIVE = 0
	LIM_CODE_X_NEGATIVE = 1
	LIM_CODE_Y_POSITIVE = 2
	LIM_CODE_Y_NEGATIVE = 3
	LIM_CODE_Z_POSITIVE = 4
	LIM_CODE_Z_NEGATIVE = 5
)

// Button and Switch Bits
const (
	BIT_POS_JOYSTICK_BUTTON = 0
	BIT_POS_SWITCH          = 1
)

// Illumination Sources
const (
	ILLUMINATION_SOURCE_LED_ARRAY_FULL = 0
	ILLUMINATION_SOURCE_405NM          = 11
	ILLUMINATION_SOURCE_488NM          = 12
	ILLUMINATION_SOURCE_638NM          = 13
	ILLUMINATION_SOURCE_561NM          = 14
	ILLUMINATION_SOURCE_730NM          = 15
)

// Camera trigger byte of SEND_HARDWARE_TRIGGER: MSB requests illumination control
const (
	TRIGGER_CONTROL_ILLUMINATION = 0x80
	TRIGGER_CHANNEL_MASK         = 0x7F
)

// MAX_INTENSITY_FACTOR_PERCENT is the clamp applied to SET_ILLUMINATION_INTENSITY_FACTOR
const MAX_INTENSITY_FACTOR_PERCENT = 100
