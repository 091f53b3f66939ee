// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Response is the 24-byte status message a legacy controller sends on a
// fixed cadence. Positions are big-endian two's complement µsteps.
type Response struct {
	CommandID uint8
	Status    uint8
	X         int32
	Y         int32
	Z         int32
	W         int32
	Buttons   uint8
	Reserved  [4]uint8

	Timestamp time.Time
}

// JoystickPressed reports the joystick button bit
func (r *Response) JoystickPressed() bool {
	return r.Buttons&(1<<BIT_POS_JOYSTICK_BUTTON) != 0
}

// SwitchOn reports the switch bit
func (r *Response) SwitchOn() bool {
	return r.Buttons&(1<<BIT_POS_SWITCH) != 0
}

// Bytes serializes the response including its trailing CRC-8
func (r *Response) Bytes() []byte {
	buf := make([]byte, MSG_LENGTH)
	buf[0] = r.CommandID
	buf[1] = r.Status
	binary.BigEndian.PutUint32(buf[2:], uint32(r.X))
	binary.BigEndian.PutUint32(buf[6:], uint32(r.Y))
	binary.BigEndian.PutUint32(buf[10:], uint32(r.Z))
	binary.BigEndian.PutUint32(buf[14:], uint32(r.W))
	buf[18] = r.Buttons
	copy(buf[19:23], r.Reserved[:])
	buf[MSG_LENGTH-1] = CalculateCRC8(buf[:MSG_LENGTH-1])
	return buf
}

// ParseResponse decodes a 24-byte status message and verifies its CRC-8
func ParseResponse(msg []byte) (*Response, error) {
	if len(msg) != MSG_LENGTH {
		return nil, fmt.Errorf("response length %d (expected %d)", len(msg), MSG_LENGTH)
	}
	expected := CalculateCRC8(msg[:MSG_LENGTH-1])
	if expected != msg[MSG_LENGTH-1] {
		return nil, &ChecksumError{ID: msg[0], Expected: expected, Received: msg[MSG_LENGTH-1]}
	}
	return parseResponse(msg), nil
}

func parseResponse(msg []byte) *Response {
	r := &Response{
		CommandID: msg[0],
		Status:    msg[1],
		X:         int32(binary.BigEndian.Uint32(msg[2:])),
		Y:         int32(binary.BigEndian.Uint32(msg[6:])),
		Z:         int32(binary.BigEndian.Uint32(msg[10:])),
		W:         int32(binary.BigEndian.Uint32(msg[14:])),
		Buttons:   msg[18],
		Timestamp: time.Now(),
	}
	copy(r.Reserved[:], msg[19:23])
	return r
}

// ResponseReceiver finds status messages in a host-side byte stream.
// It holds a 24-byte window; when the window's CRC does not match, the
// oldest byte is dropped and the search continues with the next byte.
type ResponseReceiver struct {
	window []byte

	// AcceptZeroChecksum accepts a trailing 0x00 as a valid checksum.
	// Older firmware sent no CRC and left the last byte zero.
	AcceptZeroChecksum bool
}

// NewResponseReceiver creates a new response receiver
func NewResponseReceiver() *ResponseReceiver {
	return &ResponseReceiver{window: make([]byte, 0, MSG_LENGTH)}
}

// Reset discards buffered bytes
func (r *ResponseReceiver) Reset() {
	r.window = r.window[:0]
}

// DecodeByte adds a byte to the window
// Returns a response when the window holds a valid message, or a
// *ChecksumError when the oldest byte had to be dropped
func (r *ResponseReceiver) DecodeByte(b byte) (*Response, error) {
	r.window = append(r.window, b)
	if len(r.window) < MSG_LENGTH {
		return nil, nil
	}

	expected := CalculateCRC8(r.window[:MSG_LENGTH-1])
	received := r.window[MSG_LENGTH-1]
	if expected == received || (r.AcceptZeroChecksum && received == 0) {
		resp := parseResponse(r.window)
		r.window = r.window[:0]
		return resp, nil
	}

	err := &ChecksumError{ID: r.window[0], Expected: expected, Received: received}
	copy(r.window, r.window[1:])
	r.window = r.window[:MSG_LENGTH-1]
	return nil, err
}
