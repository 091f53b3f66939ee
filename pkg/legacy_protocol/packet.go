// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import (
	"encoding/binary"
	"time"
)

// Command represents a decoded 8-byte legacy command
type Command struct {
	id        uint8
	code      uint8
	params    [CMD_PARAM_SIZE]byte
	crc       uint8
	timestamp time.Time
}

// NewCommand creates a command with the given fields and computes its CRC.
// Params longer than CMD_PARAM_SIZE are truncated.
func NewCommand(id uint8, code uint8, params []byte) *Command {
	c := &Command{id: id, code: code, timestamp: time.Now()}
	copy(c.params[:], params)
	c.crc = CalculateCRC8(c.Bytes()[:CMD_LENGTH-1])
	return c
}

// ID returns the command's correlation id
func (c *Command) ID() uint8 {
	return c.id
}

// Code returns the command code
func (c *Command) Code() uint8 {
	return c.code
}

// Params returns a copy of the five parameter bytes
func (c *Command) Params() []byte {
	return append([]byte(nil), c.params[:]...)
}

// CRC returns the command's CRC-8
func (c *Command) CRC() uint8 {
	return c.crc
}

// Timestamp returns the command's decode timestamp
func (c *Command) Timestamp() time.Time {
	return c.timestamp
}

// Bytes returns the 8-byte wire form of the command
func (c *Command) Bytes() []byte {
	buf := make([]byte, CMD_LENGTH)
	buf[0] = c.id
	buf[1] = c.code
	copy(buf[2:], c.params[:])
	buf[CMD_LENGTH-1] = c.crc
	return buf
}

// Param returns parameter byte i (wire byte i+2)
func (c *Command) Param(i int) uint8 {
	if i < 0 || i >= CMD_PARAM_SIZE {
		return 0
	}
	return c.params[i]
}

// ParamUint16 returns the big-endian uint16 starting at parameter byte i
func (c *Command) ParamUint16(i int) uint16 {
	if i < 0 || i+2 > CMD_PARAM_SIZE {
		return 0
	}
	return binary.BigEndian.Uint16(c.params[i:])
}

// ParamUint32 returns the big-endian uint32 starting at parameter byte i
func (c *Command) ParamUint32(i int) uint32 {
	if i < 0 || i+4 > CMD_PARAM_SIZE {
		return 0
	}
	return binary.BigEndian.Uint32(c.params[i:])
}

// ParamInt32 returns the big-endian two's complement int32 starting at parameter byte i
func (c *Command) ParamInt32(i int) int32 {
	return int32(c.ParamUint32(i))
}
