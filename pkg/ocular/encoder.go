// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"fmt"
)

// EncodeFrame creates a complete wire-formatted frame around payload.
// Returns the frame bytes ready for transmission as one contiguous buffer.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	frame := make([]byte, 0, PacketOverhead+len(payload))
	frame = append(frame, HeaderByte0, HeaderByte1)
	frame = append(frame, byte(len(payload)), byte(len(payload)>>8))
	frame = append(frame, payload...)

	// CRC covers the length field and payload, little-endian on the wire
	crc := frameCRC(payload)
	frame = append(frame, byte(crc), byte(crc>>8))

	return frame, nil
}

// MustEncodeFrame encodes payload to wire format.
// Panics on encoding error (use EncodeFrame for error handling).
func MustEncodeFrame(payload []byte) []byte {
	data, err := EncodeFrame(payload)
	if err != nil {
		panic(fmt.Sprintf("ocular: encode error: %v", err))
	}
	return data
}

// EncodeCommand frames a command payload: [cmd_id][cmd_type][params...]
func EncodeCommand(cmdID, cmdType uint8, params []byte) ([]byte, error) {
	payload := make([]byte, 0, 2+len(params))
	payload = append(payload, cmdID, cmdType)
	payload = append(payload, params...)
	return EncodeFrame(payload)
}
