// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"encoding/binary"
	"fmt"
)

// AxisStatus is one axis slot of a status response
type AxisStatus struct {
	Position int32 // µsteps
	Target   int32 // µsteps
	State    AxisState
	Error    ErrorCode
	Homed    bool
}

// ResponsePacket is the fixed-size status response sent by the controller.
// Every response carries the full device snapshot, so GET_STATE is just a
// command with no side effects.
type ResponsePacket struct {
	CommandID   uint8
	Status      Status
	Error       ErrorCode
	Mode        SystemMode
	Axes        [ResponseAxes]AxisStatus
	DAC         [NumDACChannels]uint16
	IllumOnMask uint8
	LEDPattern  uint8
	JoystickDX  int16
	JoystickDY  int16
	Buttons     uint8
	Reserved    [3]uint8
}

// Bytes serializes the response to its packed little-endian payload
func (r *ResponsePacket) Bytes() []byte {
	buf := make([]byte, ResponseSize)
	buf[0] = r.CommandID
	buf[1] = uint8(r.Status)
	buf[2] = uint8(r.Error)
	buf[3] = uint8(r.Mode)

	for i, axis := range r.Axes {
		off := responseAxisOff + i*axisStatusSize
		binary.LittleEndian.PutUint32(buf[off:], uint32(axis.Position))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(axis.Target))
		buf[off+8] = uint8(axis.State)
		buf[off+9] = uint8(axis.Error)
		if axis.Homed {
			buf[off+10] = 1
		}
	}

	for i, v := range r.DAC {
		binary.LittleEndian.PutUint16(buf[responseDACOff+i*2:], v)
	}

	buf[responseIllum] = r.IllumOnMask
	buf[responseLED] = r.LEDPattern
	binary.LittleEndian.PutUint16(buf[responseJoyX:], uint16(r.JoystickDX))
	binary.LittleEndian.PutUint16(buf[responseJoyY:], uint16(r.JoystickDY))
	buf[responseButtons] = r.Buttons
	copy(buf[responseReserve:], r.Reserved[:])

	return buf
}

// Encode serializes and frames the response for transmission
func (r *ResponsePacket) Encode() ([]byte, error) {
	return EncodeFrame(r.Bytes())
}

// ParseResponse decodes a status response payload
func ParseResponse(payload []byte) (*ResponsePacket, error) {
	if len(payload) != ResponseSize {
		return nil, fmt.Errorf("response payload length %d (expected %d)", len(payload), ResponseSize)
	}

	r := &ResponsePacket{
		CommandID: payload[0],
		Status:    Status(payload[1]),
		Error:     ErrorCode(payload[2]),
		Mode:      SystemMode(payload[3]),
	}

	for i := range r.Axes {
		off := responseAxisOff + i*axisStatusSize
		r.Axes[i] = AxisStatus{
			Position: int32(binary.LittleEndian.Uint32(payload[off:])),
			Target:   int32(binary.LittleEndian.Uint32(payload[off+4:])),
			State:    AxisState(payload[off+8]),
			Error:    ErrorCode(payload[off+9]),
			Homed:    payload[off+10] != 0,
		}
	}

	for i := range r.DAC {
		r.DAC[i] = binary.LittleEndian.Uint16(payload[responseDACOff+i*2:])
	}

	r.IllumOnMask = payload[responseIllum]
	r.LEDPattern = payload[responseLED]
	r.JoystickDX = int16(binary.LittleEndian.Uint16(payload[responseJoyX:]))
	r.JoystickDY = int16(binary.LittleEndian.Uint16(payload[responseJoyY:]))
	r.Buttons = payload[responseButtons]
	copy(r.Reserved[:], payload[responseReserve:])

	return r, nil
}

// Response decodes the packet payload as a status response
func (p *Packet) Response() (*ResponsePacket, error) {
	return ParseResponse(p.payload)
}

// Axis returns the response slot holding axis, if the axis is reported
func (r *ResponsePacket) Axis(axis Axis) (AxisStatus, bool) {
	for i, a := range ResponseAxisSlots {
		if a == axis {
			return r.Axes[i], true
		}
	}
	return AxisStatus{}, false
}
