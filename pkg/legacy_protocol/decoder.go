// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import (
	"fmt"
	"time"
)

// ChecksumError is returned when a complete legacy packet fails its CRC-8
// check. ID is the first byte of the rejected packet, which the controller
// echoes in its next status message.
type ChecksumError struct {
	ID       uint8
	Expected uint8
	Received uint8
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("CRC-8 mismatch for id %d: expected 0x%02X, got 0x%02X", e.ID, e.Expected, e.Received)
}

// Decoder accumulates 8-byte command windows.
// There is no framing: the decoder relies on the host never splitting a
// command, and on the receiver flushing its input after a checksum error.
type Decoder struct {
	buffer      [CMD_LENGTH]byte
	bufferIndex int
}

// NewDecoder creates a new command decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset discards a partially received command
func (d *Decoder) Reset() {
	d.bufferIndex = 0
}

// Pending returns the number of bytes of the command being received
func (d *Decoder) Pending() int {
	return d.bufferIndex
}

// DecodeByte adds a byte to the current window
// Returns the command once 8 bytes have arrived, or a *ChecksumError
func (d *Decoder) DecodeByte(b byte) (*Command, error) {
	d.buffer[d.bufferIndex] = b
	d.bufferIndex++
	if d.bufferIndex < CMD_LENGTH {
		return nil, nil
	}
	d.bufferIndex = 0

	expected := CalculateCRC8(d.buffer[:CMD_LENGTH-1])
	if expected != d.buffer[CMD_LENGTH-1] {
		return nil, &ChecksumError{ID: d.buffer[0], Expected: expected, Received: d.buffer[CMD_LENGTH-1]}
	}

	c := &Command{
		id:        d.buffer[0],
		code:      d.buffer[1],
		crc:       d.buffer[CMD_LENGTH-1],
		timestamp: time.Now(),
	}
	copy(c.params[:], d.buffer[2:CMD_LENGTH-1])
	return c, nil
}
