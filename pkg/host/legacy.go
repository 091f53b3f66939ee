// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
)

// LegacyClient speaks the legacy protocol. Responses arrive on a fixed
// cadence; a command is complete when a status message echoes its id with
// a status other than IN_PROGRESS.
type LegacyClient struct {
	conn io.ReadWriter
	opts Options

	sendMu sync.Mutex

	mu      sync.Mutex
	id      uint8
	match   func(*legacy_protocol.Response) bool
	waitCh  chan *legacy_protocol.Response
	last    *legacy_protocol.Response
	dropped uint64
	err     error

	done chan struct{}
}

// NewLegacyClient starts reading status messages from conn. acceptZero
// accepts status messages whose checksum byte is zero (older firmware).
func NewLegacyClient(conn io.ReadWriter, opts Options, acceptZero bool) *LegacyClient {
	c := &LegacyClient{
		conn: conn,
		opts: opts.withDefaults(DefaultLegacyTimeout),
		done: make(chan struct{}),
	}
	receiver := legacy_protocol.NewResponseReceiver()
	receiver.AcceptZeroChecksum = acceptZero
	go c.readLoop(receiver)
	return c
}

func (c *LegacyClient) readLoop(receiver *legacy_protocol.ResponseReceiver) {
	defer close(c.done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		for _, b := range buf[:n] {
			resp, derr := receiver.DecodeByte(b)
			if derr != nil {
				c.mu.Lock()
				c.dropped++
				c.mu.Unlock()
				glog.V(2).Infof("host: %v", derr)
				continue
			}
			if resp != nil {
				c.handle(resp)
			}
		}
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
	}
}

func (c *LegacyClient) handle(resp *legacy_protocol.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = resp
	if c.waitCh != nil && c.match(resp) {
		c.waitCh <- resp
		c.waitCh = nil
	}
}

// Send transmits cmd under a fresh id and waits until the controller reports
// it complete. A reported checksum error is retried like a timeout.
func (c *LegacyClient) Send(ctx context.Context, cmd *legacy_protocol.Command) (*legacy_protocol.Response, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	for attempt := 0; ; attempt++ {
		resp, err := c.roundTrip(ctx, cmd.Code(), cmd.Params(), false)
		retryable := errors.Is(err, ErrTimeout) || errors.Is(err, ErrChecksumRejected)
		if retryable && attempt < c.opts.Retries {
			glog.V(1).Infof("host: %s: %v, retrying", legacy_protocol.FormatCommandCode(cmd.Code()), err)
			continue
		}
		return resp, err
	}
}

func (c *LegacyClient) roundTrip(ctx context.Context, code uint8, params []byte, reset bool) (*legacy_protocol.Response, error) {
	ch := make(chan *legacy_protocol.Response, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, c.err)
	}
	c.id = nextID(c.id)
	id := c.id
	c.match = func(r *legacy_protocol.Response) bool {
		if r.Status == legacy_protocol.IN_PROGRESS {
			return false
		}
		// A reduced controller zeroes its id on RESET
		return r.CommandID == id || (reset && r.CommandID == 0)
	}
	c.waitCh = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.waitCh == ch {
			c.waitCh = nil
		}
		c.mu.Unlock()
	}()

	if _, err := c.conn.Write(legacy_protocol.NewCommand(id, code, params).Bytes()); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Status == legacy_protocol.CMD_CHECKSUM_ERROR {
			return resp, ErrChecksumRejected
		}
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s id %d after %v", ErrTimeout, legacy_protocol.FormatCommandCode(code), id, c.opts.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Reset sends RESET and restarts command numbering
func (c *LegacyClient) Reset(ctx context.Context) (*legacy_protocol.Response, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	resp, err := c.roundTrip(ctx, legacy_protocol.RESET, nil, true)
	c.mu.Lock()
	c.id = 0
	c.mu.Unlock()
	return resp, err
}

// Last returns the most recent status message, or nil
func (c *LegacyClient) Last() *legacy_protocol.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Dropped returns the number of bytes skipped while resynchronizing
func (c *LegacyClient) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Done is closed when the read loop ends
func (c *LegacyClient) Done() <-chan struct{} {
	return c.done
}
