// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrParamsTooShort is wrapped by Malformed.Err when a command's parameters
// are shorter than its layout
var ErrParamsTooShort = errors.New("parameters too short")

// Request is one decoded command
type Request struct {
	ID      uint8
	Command Command

	// ChecksumFailed marks a frame whose checksum did not match. Command is
	// nil; ID is whatever arrived in the id position.
	ChecksumFailed bool
}

// Reply is what a codec encodes: the echoed id, the outcome and the state
// snapshot it reports
type Reply struct {
	ID      uint8
	Outcome Outcome
	State   *DeviceState
}

// Codec translates between a wire format and Requests/Replies
type Codec interface {
	// Name identifies the wire format ("v2" or "legacy")
	Name() string

	// Decode feeds a chunk of received bytes and returns the complete
	// requests found in it. Partial frames are kept for the next chunk.
	Decode(chunk []byte) []Request

	// Encode produces the complete wire form of a response
	Encode(reply Reply) ([]byte, error)

	// Checksum is the integrity function of the format
	Checksum(data []byte) uint16

	// Cadence is the periodic response interval, or 0 when the format
	// answers each command individually
	Cadence() time.Duration

	// Reset discards partial input
	Reset()
}

// Protocol names accepted by NewCodec
const (
	ProtocolV2     = "v2"
	ProtocolLegacy = "legacy"
)

// NewCodec returns the codec for a protocol name. interval is the legacy
// response cadence; 0 selects the default.
func NewCodec(protocol string, interval time.Duration) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", ProtocolV2:
		return NewV2Codec(), nil
	case ProtocolLegacy:
		return NewLegacyCodec(interval), nil
	default:
		return nil, fmt.Errorf("unknown protocol %q (expected %s or %s)", protocol, ProtocolV2, ProtocolLegacy)
	}
}
