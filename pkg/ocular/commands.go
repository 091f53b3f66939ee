// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"encoding/binary"
	"fmt"
)

// Command is a host-to-controller command payload: [cmd_id][cmd_type][params...]
type Command struct {
	ID     uint8
	Type   uint8
	Params []byte
}

// Payload returns the unframed command payload
func (c *Command) Payload() []byte {
	payload := make([]byte, 0, 2+len(c.Params))
	payload = append(payload, c.ID, c.Type)
	return append(payload, c.Params...)
}

// Encode frames the command for transmission
func (c *Command) Encode() ([]byte, error) {
	return EncodeFrame(c.Payload())
}

// WithID returns a copy of the command carrying a new correlation tag
func (c *Command) WithID(id uint8) *Command {
	return &Command{ID: id, Type: c.Type, Params: c.Params}
}

// ParseCommand splits a command payload into its fields
func ParseCommand(payload []byte) (*Command, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("command payload too short: %d bytes", len(payload))
	}
	return &Command{ID: payload[0], Type: payload[1], Params: payload[2:]}, nil
}

// Command builder functions create Command structs ready for encoding.
// Multi-byte parameters are little-endian.

func newCommand(id, cmdType uint8, params ...byte) *Command {
	return &Command{ID: id, Type: cmdType, Params: params}
}

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// NewMoveAxisCommand creates a MOVE_AXIS command (0x01) to an absolute target in µsteps
func NewMoveAxisCommand(id uint8, axis Axis, target int32) *Command {
	return newCommand(id, CmdMoveAxis, append([]byte{byte(axis)}, le32(uint32(target))...)...)
}

// NewMoveRelativeCommand creates a MOVE_RELATIVE command (0x02)
func NewMoveRelativeCommand(id uint8, axis Axis, delta int32) *Command {
	return newCommand(id, CmdMoveRelative, append([]byte{byte(axis)}, le32(uint32(delta))...)...)
}

// NewHomeAxisCommand creates a HOME_AXIS command (0x03).
// The controller answers ACCEPTED and reports HOMING until the run completes.
func NewHomeAxisCommand(id uint8, axis Axis, direction HomingDirection) *Command {
	return newCommand(id, CmdHomeAxis, byte(axis), byte(direction))
}

// NewStopAxisCommand creates a STOP_AXIS command (0x04)
func NewStopAxisCommand(id uint8, axis Axis) *Command {
	return newCommand(id, CmdStopAxis, byte(axis))
}

// NewStopAllCommand creates a STOP_ALL command (0x05)
func NewStopAllCommand(id uint8) *Command {
	return newCommand(id, CmdStopAll)
}

// NewEnableAxisCommand creates an ENABLE_AXIS command (0x06)
func NewEnableAxisCommand(id uint8, axis Axis, enable bool) *Command {
	return newCommand(id, CmdEnableAxis, byte(axis), boolByte(enable))
}

// NewInitFilterWheelCommand creates an INIT_FILTER_WHEEL command (0x07)
func NewInitFilterWheelCommand(id uint8, axis Axis) *Command {
	return newCommand(id, CmdInitFilterWheel, byte(axis))
}

// AxisParams are the motion parameters carried by SET_AXIS_PARAMS.
// Soft limits are enforced only when MinPosition < MaxPosition.
type AxisParams struct {
	MaxVelocity  uint32
	Acceleration uint32
	MinPosition  int32
	MaxPosition  int32
	RequireHomed bool
}

// NewSetAxisParamsCommand creates a SET_AXIS_PARAMS command (0x10)
func NewSetAxisParamsCommand(id uint8, axis Axis, p AxisParams) *Command {
	params := []byte{byte(axis)}
	params = append(params, le32(p.MaxVelocity)...)
	params = append(params, le32(p.Acceleration)...)
	params = append(params, le32(uint32(p.MinPosition))...)
	params = append(params, le32(uint32(p.MaxPosition))...)
	params = append(params, boolByte(p.RequireHomed))
	return newCommand(id, CmdSetAxisParams, params...)
}

// NewGetAxisParamsCommand creates a GET_AXIS_PARAMS command (0x11)
func NewGetAxisParamsCommand(id uint8, axis Axis) *Command {
	return newCommand(id, CmdGetAxisParams, byte(axis))
}

// NewSetCameraParamsCommand creates a SET_CAMERA_PARAMS command (0x12).
// The strobe delay is applied to illumination windows on that camera channel.
func NewSetCameraParamsCommand(id uint8, channel uint8, strobeDelayUs uint32) *Command {
	return newCommand(id, CmdSetCameraParams, append([]byte{channel}, le32(strobeDelayUs)...)...)
}

// NewSetPIDParamsCommand creates a SET_PID_PARAMS command (0x13)
func NewSetPIDParamsCommand(id uint8, axis Axis, p uint16, i, d uint8) *Command {
	params := append([]byte{byte(axis)}, le16(p)...)
	return newCommand(id, CmdSetPIDParams, append(params, i, d)...)
}

// NewEnablePIDCommand creates an ENABLE_PID (0x14) or DISABLE_PID (0x15) command
func NewEnablePIDCommand(id uint8, axis Axis, enable bool) *Command {
	if enable {
		return newCommand(id, CmdEnablePID, byte(axis))
	}
	return newCommand(id, CmdDisablePID, byte(axis))
}

// NewSetDACCommand creates a SET_DAC command (0x20)
func NewSetDACCommand(id uint8, channel uint8, value uint16) *Command {
	return newCommand(id, CmdSetDAC, append([]byte{channel}, le16(value)...)...)
}

// NewSetTTLCommand creates a SET_TTL command (0x21)
func NewSetTTLCommand(id uint8, channel uint8, level bool) *Command {
	return newCommand(id, CmdSetTTL, channel, boolByte(level))
}

// NewConfigGPIOCommand creates a CONFIG_GPIO command (0x22)
func NewConfigGPIOCommand(id uint8, pin uint8, mode uint8) *Command {
	return newCommand(id, CmdConfigGPIO, pin, mode)
}

// NewWriteGPIOCommand creates a WRITE_GPIO command (0x23)
func NewWriteGPIOCommand(id uint8, pin uint8, level bool) *Command {
	return newCommand(id, CmdWriteGPIO, pin, boolByte(level))
}

// NewReadGPIOCommand creates a READ_GPIO command (0x24)
func NewReadGPIOCommand(id uint8, pin uint8) *Command {
	return newCommand(id, CmdReadGPIO, pin)
}

// NewSetDACGainCommand creates a SET_DAC_GAIN command (0x25).
// The register value written is (div << 8) + gains.
func NewSetDACGainCommand(id uint8, div, gains uint8) *Command {
	return newCommand(id, CmdSetDACGain, div, gains)
}

// NewSetIlluminationCommand creates a SET_ILLUMINATION command (0x30).
// Intensity is scaled by the controller's intensity factor before reaching the DAC.
func NewSetIlluminationCommand(id uint8, source uint8, intensity uint16, sw IlluminationSwitch) *Command {
	params := append([]byte{source}, le16(intensity)...)
	return newCommand(id, CmdSetIllumination, append(params, byte(sw))...)
}

// NewSetLEDMatrixCommand creates a SET_LED_MATRIX command (0x31)
func NewSetLEDMatrixCommand(id uint8, pattern, r, g, b uint8) *Command {
	return newCommand(id, CmdSetLEDMatrix, pattern, r, g, b)
}

// NewPulseIlluminationCommand creates a PULSE_ILLUMINATION command (0x32)
func NewPulseIlluminationCommand(id uint8, channel uint8, onTimeUs uint32) *Command {
	return newCommand(id, CmdPulseIllumination, append([]byte{channel}, le32(onTimeUs)...)...)
}

// NewTriggerCameraCommand creates a TRIGGER_CAMERA command (0x40).
// With controlIllumination set, the current source is strobed for onTimeUs
// after the channel's strobe delay.
func NewTriggerCameraCommand(id uint8, channel uint8, controlIllumination bool, onTimeUs uint32) *Command {
	params := []byte{channel, boolByte(controlIllumination)}
	return newCommand(id, CmdTriggerCamera, append(params, le32(onTimeUs)...)...)
}

// NewGetStateCommand creates a GET_STATE command (0xF0)
func NewGetStateCommand(id uint8) *Command {
	return newCommand(id, CmdGetState)
}

// NewAckErrorCommand creates an ACK_ERROR command (0xF1)
func NewAckErrorCommand(id uint8) *Command {
	return newCommand(id, CmdAckError)
}

// NewGetVersionCommand creates a GET_VERSION command (0xF2)
func NewGetVersionCommand(id uint8) *Command {
	return newCommand(id, CmdGetVersion)
}

// NewInitializeCommand creates an INITIALIZE command (0xFE)
func NewInitializeCommand(id uint8) *Command {
	return newCommand(id, CmdInitialize)
}

// NewResetCommand creates a RESET command (0xFF)
func NewResetCommand(id uint8) *Command {
	return newCommand(id, CmdReset)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
