// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import "time"

// Packet represents a decoded Ocular v2 frame
type Packet struct {
	length    uint16
	payload   []byte
	crc       uint16
	timestamp time.Time
}

// NewPacket creates a new packet with the given fields
func NewPacket(payload []byte, crc uint16) *Packet {
	return &Packet{
		length:    uint16(len(payload)),
		payload:   payload,
		crc:       crc,
		timestamp: time.Now(),
	}
}

// Length returns the packet's payload length
func (p *Packet) Length() uint16 {
	return p.length
}

// Payload returns the packet's payload bytes
func (p *Packet) Payload() []byte {
	return p.payload
}

// CRC returns the packet's CRC value
func (p *Packet) CRC() uint16 {
	return p.crc
}

// Timestamp returns the packet's decode timestamp
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// IsResponse returns true if the payload has the size of a status response.
// Commands and responses share the framing, so this is how a monitor on a
// shared line tells them apart.
func (p *Packet) IsResponse() bool {
	return len(p.payload) == ResponseSize
}

// CommandID returns the correlation tag of a command or response payload
func (p *Packet) CommandID() uint8 {
	if len(p.payload) == 0 {
		return 0
	}
	return p.payload[0]
}

// CommandType returns the command type of a command payload
func (p *Packet) CommandType() uint8 {
	if len(p.payload) < 2 {
		return 0
	}
	return p.payload[1]
}

// Params returns the parameter bytes of a command payload
func (p *Packet) Params() []byte {
	if len(p.payload) < 2 {
		return nil
	}
	return p.payload[2:]
}
