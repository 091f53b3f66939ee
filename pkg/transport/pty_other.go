// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !linux

package transport

import "errors"

// ErrPTYUnsupported is returned by OpenPTY outside Linux
var ErrPTYUnsupported = errors.New("pty: not supported on this platform")

// PTY is unavailable on this platform
type PTY struct{}

// OpenPTY is only implemented on Linux
func OpenPTY(link string) (*PTY, error) {
	return nil, ErrPTYUnsupported
}

func (p *PTY) Name() string                { return "" }
func (p *PTY) Path() string                { return "" }
func (p *PTY) Read(b []byte) (int, error)  { return 0, ErrPTYUnsupported }
func (p *PTY) Write(b []byte) (int, error) { return 0, ErrPTYUnsupported }
func (p *PTY) Close() error                { return nil }
