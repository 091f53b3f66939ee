// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package host implements the host side of a controller link: it numbers
// outgoing commands, matches responses to them by the echoed command id and
// times out when the controller stays silent.
package host

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when no matching response arrived in time.
	// A v2 controller answers a corrupted frame with silence, so a CRC
	// error on the wire also surfaces as a timeout.
	ErrTimeout = errors.New("host: command timed out")

	// ErrClosed is returned once the connection has failed or closed
	ErrClosed = errors.New("host: connection closed")

	// ErrChecksumRejected is returned when a legacy controller reports
	// that the command arrived with a bad checksum
	ErrChecksumRejected = errors.New("host: controller reported checksum error")
)

// Defaults
const (
	DefaultTimeout       = 500 * time.Millisecond
	DefaultLegacyTimeout = 5 * time.Second

	readBufferSize = 512
)

// Options configures a client
type Options struct {
	// Timeout bounds the wait for each attempt
	Timeout time.Duration

	// Retries resends a timed out command with a fresh id
	Retries int
}

func (o Options) withDefaults(timeout time.Duration) Options {
	if o.Timeout <= 0 {
		o.Timeout = timeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return o
}

// nextID advances a command id, wrapping at 256
func nextID(id uint8) uint8 {
	return uint8((int(id) + 1) % 256)
}
