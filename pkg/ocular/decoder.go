// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidLength is returned when a frame declares a length of 0 or more
// than MaxPayloadSize. The decoder is back to header scanning when it is returned.
var ErrInvalidLength = errors.New("invalid length")

// CRCError is returned when a complete frame fails its CRC check
type CRCError struct {
	Expected uint16
	Received uint16
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("CRC mismatch: expected 0x%04X, got 0x%04X", e.Expected, e.Received)
}

// Decoder implements the Ocular v2 frame receiver state machine
type Decoder struct {
	state       int
	length      uint16
	buffer      [MaxPayloadSize]byte
	bufferIndex int
	crc         uint16
	rawBuffer   []byte // Accumulate raw bytes including framing
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateWaitHeader0,
		rawBuffer: make([]byte, 0, MaxPacketSize),
	}
}

// Reset resets the decoder state to header scanning
func (d *Decoder) Reset() {
	d.state = stateWaitHeader0
	d.length = 0
	d.bufferIndex = 0
	d.crc = 0
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the raw bytes of the frame currently being received,
// or of the last completed frame until the next header arrives
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine
// Returns a completed packet, or nil if the packet is incomplete
// Returns an error if the frame was rejected
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	switch d.state {
	case stateWaitHeader0:
		if b == HeaderByte0 {
			d.rawBuffer = append(d.rawBuffer[:0], b)
			d.state = stateWaitHeader1
		}
		return nil, nil

	case stateWaitHeader1:
		switch b {
		case HeaderByte1:
			d.rawBuffer = append(d.rawBuffer, b)
			d.state = stateLengthLow
		case HeaderByte0:
			// Repeated first header byte: the earlier one was noise
			d.rawBuffer = append(d.rawBuffer[:0], b)
		default:
			d.Reset()
		}
		return nil, nil

	case stateLengthLow:
		d.rawBuffer = append(d.rawBuffer, b)
		d.length = uint16(b)
		d.state = stateLengthHigh
		return nil, nil

	case stateLengthHigh:
		d.rawBuffer = append(d.rawBuffer, b)
		d.length |= uint16(b) << 8
		if d.length == 0 || d.length > MaxPayloadSize {
			length := d.length
			d.Reset()
			return nil, fmt.Errorf("%w: %d (valid 1-%d)", ErrInvalidLength, length, MaxPayloadSize)
		}
		d.bufferIndex = 0
		d.state = statePayload
		return nil, nil

	case statePayload:
		// Length was validated against the buffer size before any copy
		d.rawBuffer = append(d.rawBuffer, b)
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if d.bufferIndex >= int(d.length) {
			d.state = stateCRCLow
		}
		return nil, nil

	case stateCRCLow:
		d.rawBuffer = append(d.rawBuffer, b)
		d.crc = uint16(b)
		d.state = stateCRCHigh
		return nil, nil

	case stateCRCHigh:
		d.rawBuffer = append(d.rawBuffer, b)
		d.crc |= uint16(b) << 8

		payload := d.buffer[:d.length]
		calculatedCRC := frameCRC(payload)
		received := d.crc
		d.state = stateWaitHeader0

		if received != calculatedCRC {
			return nil, &CRCError{Expected: calculatedCRC, Received: received}
		}

		packet := &Packet{
			length:    d.length,
			payload:   append([]byte(nil), payload...),
			crc:       received,
			timestamp: time.Now(),
		}
		return packet, nil

	default:
		state := d.state
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", state)
	}
}
