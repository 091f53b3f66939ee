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

	"github.com/Thermoquad/ocular/pkg/ocular"
)

// Client speaks the v2 protocol. Commands are serialized: one is in flight
// at a time.
type Client struct {
	conn io.ReadWriter
	opts Options

	sendMu sync.Mutex

	mu         sync.Mutex
	id         uint8
	waiting    uint8
	waitCh     chan *ocular.ResponsePacket
	last       *ocular.ResponsePacket
	lastButton bool
	listeners  []func(pressed bool)
	stats      *ocular.Statistics
	err        error

	done chan struct{}
}

// NewClient starts reading responses from conn
func NewClient(conn io.ReadWriter, opts Options) *Client {
	c := &Client{
		conn:  conn,
		opts:  opts.withDefaults(DefaultTimeout),
		stats: ocular.NewStatistics(),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)

	decoder := ocular.NewDecoder()
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		for _, b := range buf[:n] {
			packet, derr := decoder.DecodeByte(b)
			if derr != nil {
				c.mu.Lock()
				c.stats.Update(nil, derr, nil)
				c.mu.Unlock()
				glog.V(2).Infof("host: %v", derr)
				continue
			}
			if packet != nil {
				c.handle(packet)
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

func (c *Client) handle(packet *ocular.Packet) {
	resp, err := packet.Response()

	c.mu.Lock()
	c.stats.Update(packet, nil, ocular.ValidatePacket(packet))
	if err != nil {
		c.mu.Unlock()
		glog.V(1).Infof("host: %v", err)
		return
	}

	c.last = resp
	if c.waitCh != nil && resp.CommandID == c.waiting {
		c.waitCh <- resp
		c.waitCh = nil
	}

	pressed := resp.Buttons&0x01 != 0
	var listeners []func(bool)
	if pressed != c.lastButton {
		c.lastButton = pressed
		listeners = append(listeners, c.listeners...)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(pressed)
	}
}

// Send transmits cmd under a fresh id and waits for the matching response
func (c *Client) Send(ctx context.Context, cmd *ocular.Command) (*ocular.ResponsePacket, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	for attempt := 0; ; attempt++ {
		resp, err := c.roundTrip(ctx, cmd)
		if errors.Is(err, ErrTimeout) && attempt < c.opts.Retries {
			glog.V(1).Infof("host: %s timed out, retrying", ocular.FormatCommandType(cmd.Type))
			continue
		}
		return resp, err
	}
}

func (c *Client) roundTrip(ctx context.Context, cmd *ocular.Command) (*ocular.ResponsePacket, error) {
	ch := make(chan *ocular.ResponsePacket, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, c.err)
	}
	c.id = nextID(c.id)
	id := c.id
	c.waiting = id
	c.waitCh = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.waitCh == ch {
			c.waitCh = nil
		}
		c.mu.Unlock()
	}()

	frame, err := cmd.WithID(id).Encode()
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s id %d after %v", ErrTimeout, ocular.FormatCommandType(cmd.Type), id, c.opts.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Reset sends RESET and restarts command numbering, as the controller does
func (c *Client) Reset(ctx context.Context) (*ocular.ResponsePacket, error) {
	resp, err := c.Send(ctx, ocular.NewResetCommand(0))
	c.mu.Lock()
	c.id = 0
	c.mu.Unlock()
	return resp, err
}

// Last returns the most recent response, or nil
func (c *Client) Last() *ocular.ResponsePacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// OnJoystickButton registers fn for joystick button edges
func (c *Client) OnJoystickButton(fn func(pressed bool)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Stats renders the receive statistics
func (c *Client) Stats() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.CalculateRates()
	return c.stats.String()
}

// Done is closed when the read loop ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
