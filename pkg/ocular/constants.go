// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ocular provides a Go implementation of the Ocular v2 serial protocol.
//
// Ocular v2 is the variable-length binary protocol spoken between acquisition
// hosts and microscope controllers. Frames carry a 16-bit length, an opaque
// payload and a CRC-16-CCITT trailer. This package provides frame encoding and
// decoding, CRC validation, the fixed 78-byte status response layout and
// human-readable formatting.
package ocular

// Frame header bytes
const (
	HeaderByte0 = 0xAA
	HeaderByte1 = 0xBB
)

// Frame size limits
const (
	MaxPayloadSize = 506
	MaxPacketSize  = 512 // header(2) + length(2) + payload + crc(2)
	PacketOverhead = 6
	HeaderSize     = 2
	LengthSize     = 2
	CRCSize        = 2
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Command types - Motion 0x01-0x0F
const (
	CmdMoveAxis        = 0x01
	CmdMoveRelative    = 0x02
	CmdHomeAxis        = 0x03
	CmdStopAxis        = 0x04
	CmdStopAll         = 0x05
	CmdEnableAxis      = 0x06
	CmdInitFilterWheel = 0x07
)

// Command types - Configuration 0x10-0x1F
const (
	CmdSetAxisParams   = 0x10
	CmdGetAxisParams   = 0x11
	CmdSetCameraParams = 0x12
	CmdSetPIDParams    = 0x13
	CmdEnablePID       = 0x14
	CmdDisablePID      = 0x15
)

// Command types - Analog/digital I/O 0x20-0x2F
const (
	CmdSetDAC     = 0x20
	CmdSetTTL     = 0x21
	CmdConfigGPIO = 0x22
	CmdWriteGPIO  = 0x23
	CmdReadGPIO   = 0x24
	CmdSetDACGain = 0x25
)

// Command types - Illumination 0x30-0x3F
const (
	CmdSetIllumination   = 0x30
	CmdSetLEDMatrix      = 0x31
	CmdPulseIllumination = 0x32
)

// Command types - Camera 0x40-0x4F
const (
	CmdTriggerCamera = 0x40
)

// Command types - Sequence upload 0x50-0x5F (reserved)
const (
	CmdHSAUploadHeader         = 0x50
	CmdHSAUploadActions        = 0x51
	CmdHSAUploadTriggerProfile = 0x52
	CmdHSAUploadIntensity      = 0x53
	CmdHSAStart                = 0x54
	CmdHSACancel               = 0x55
)

// Command types - System 0xF0-0xFF
const (
	CmdGetState   = 0xF0
	CmdAckError   = 0xF1
	CmdGetVersion = 0xF2
	CmdInitialize = 0xFE
	CmdReset      = 0xFF
)

// Decoder states (internal)
const (
	stateWaitHeader0 = iota
	stateWaitHeader1
	stateLengthLow
	stateLengthHigh
	statePayload
	stateCRCLow
	stateCRCHigh
)

// Status is the response status byte
type Status uint8

// Status values
const (
	StatusOK       Status = 0x00
	StatusAccepted Status = 0x01
	StatusRejected Status = 0x02
	StatusError    Status = 0x03
)

// ErrorCode is the response error byte
type ErrorCode uint8

// Error code values
const (
	ErrNone           ErrorCode = 0x00
	ErrInvalidCmd     ErrorCode = 0x01
	ErrInvalidAxis    ErrorCode = 0x02
	ErrAxisBusy       ErrorCode = 0x03
	ErrAxisNotHomed   ErrorCode = 0x04
	ErrLimitReached   ErrorCode = 0x05
	ErrChecksum       ErrorCode = 0x06
	ErrPacketTooShort ErrorCode = 0x07
	ErrPacketTooLong  ErrorCode = 0x08
	ErrSystemInError  ErrorCode = 0x09
	ErrHSARunning     ErrorCode = 0x0A
	ErrInterlock      ErrorCode = 0x0B
)

// Axis identifies a controllable axis
type Axis uint8

// Axis identifiers
const (
	AxisX       Axis = 0
	AxisY       Axis = 1
	AxisZ       Axis = 2
	AxisFilter1 Axis = 3
	AxisTurret  Axis = 4
	AxisFilter2 Axis = 5 // W axis
	AxisAux1    Axis = 6
	AxisAux2    Axis = 7

	NumAxes = 8
)

// AxisW is the name the stage firmware uses for the second filter wheel
const AxisW = AxisFilter2

// ResponseAxes is the number of axis slots carried in a response.
// Slots are X, Y, Z and W in that order.
const ResponseAxes = 4

// ResponseAxisSlots maps response slots to axis identifiers
var ResponseAxisSlots = [ResponseAxes]Axis{AxisX, AxisY, AxisZ, AxisW}

// AxisState is the reported state of an axis
type AxisState uint8

// Axis state values
const (
	AxisIdle   AxisState = 0
	AxisMoving AxisState = 1
	AxisHoming AxisState = 2
	AxisError  AxisState = 3
)

// SystemMode is the controller operating mode
type SystemMode uint8

// System mode values
const (
	ModeNormal SystemMode = 0
	ModeHSA    SystemMode = 1
	ModeError  SystemMode = 2
)

// HomingDirection selects the direction of a homing run
type HomingDirection uint8

// Homing direction values
const (
	HomingForward  HomingDirection = 0
	HomingBackward HomingDirection = 1
)

// IlluminationSwitch is the switch byte of SET_ILLUMINATION
type IlluminationSwitch uint8

// Illumination switch values
const (
	SwitchKeep IlluminationSwitch = 0
	SwitchOn   IlluminationSwitch = 1
	SwitchOff  IlluminationSwitch = 2
)

// Illumination sources shared by both wire formats.
// Sources up to MaxLEDSource select LED matrix patterns.
const (
	SourceLEDArrayFull        = 0
	SourceLEDArrayLeftHalf    = 1
	SourceLEDArrayRightHalf   = 2
	SourceLEDArrayLeftBRightR = 3
	SourceLEDArrayLow         = 4
	SourceLEDArrayDarkField   = 5
	SourceLEDArrayTopHalf     = 7
	SourceLEDArrayBottomHalf  = 8
	MaxLEDSource              = 10

	Source405nm = 11
	Source488nm = 12
	Source638nm = 13
	Source561nm = 14
	Source730nm = 15
)

// Peripheral counts
const (
	NumLaserChannels  = 5
	NumDACChannels    = 8
	NumCameraChannels = 6
)

// DefaultDACGain is the DAC gain register after init: REFDIV off, 2x gain on channel 7
const DefaultDACGain uint16 = 0x0080

// Response payload layout
const (
	ResponseSize    = 78
	axisStatusSize  = 12
	responseAxisOff = 4
	responseDACOff  = responseAxisOff + ResponseAxes*axisStatusSize
	responseIllum   = responseDACOff + NumDACChannels*2
	responseLED     = responseIllum + 1
	responseJoyX    = responseLED + 1
	responseJoyY    = responseJoyX + 2
	responseButtons = responseJoyY + 2
	responseReserve = responseButtons + 1
)

// IllumMaskLEDMatrix is the on-mask bit reported when an LED matrix source is lit
const IllumMaskLEDMatrix = 0x80
