// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
)

// Engine defaults
const (
	DefaultPollInterval     = time.Millisecond
	DefaultStrobeResolution = 20 * time.Microsecond
	DefaultObserveInterval  = 100 * time.Millisecond

	readBufferSize = 512
	chunkQueueSize = 16
)

// EngineOptions configures an Engine
type EngineOptions struct {
	// PollInterval is the motion polling period
	PollInterval time.Duration

	// StrobeResolution is how early a strobe event may fire
	StrobeResolution time.Duration

	// ObserveInterval is how often subscribers receive a snapshot
	ObserveInterval time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// EngineStats counts engine traffic
type EngineStats struct {
	Chunks           uint64
	Requests         uint64
	ChecksumFailures uint64
	Responses        uint64
	DroppedSnapshots uint64
}

// Engine runs a Controller against a byte stream through a Codec.
// Run owns the controller; Feed and Tick are the same steps driven by the
// caller, for tests and replays.
type Engine struct {
	ctrl  *Controller
	codec Codec
	opts  EngineOptions

	lastPeriodic time.Time
	lastObserved time.Time
	observers    []chan<- DeviceState
	stats        EngineStats
}

// NewEngine creates an engine
func NewEngine(ctrl *Controller, codec Codec, opts EngineOptions) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StrobeResolution <= 0 {
		opts.StrobeResolution = DefaultStrobeResolution
	}
	if opts.ObserveInterval <= 0 {
		opts.ObserveInterval = DefaultObserveInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{ctrl: ctrl, codec: codec, opts: opts}
}

// Controller returns the engine's controller
func (e *Engine) Controller() *Controller {
	return e.ctrl
}

// Codec returns the engine's codec
func (e *Engine) Codec() Codec {
	return e.codec
}

// Stats returns a copy of the traffic counters
func (e *Engine) Stats() EngineStats {
	return e.stats
}

// Subscribe registers ch to receive state snapshots. Sends never block: a
// full channel misses that snapshot. Call before Run.
func (e *Engine) Subscribe(ch chan<- DeviceState) {
	e.observers = append(e.observers, ch)
}

// Feed decodes a chunk of input, dispatches every command in it and returns
// the response frames to transmit, one per frame.
func (e *Engine) Feed(chunk []byte) ([][]byte, error) {
	e.stats.Chunks++

	var frames [][]byte
	for _, req := range e.codec.Decode(chunk) {
		e.stats.Requests++
		if req.ChecksumFailed {
			e.stats.ChecksumFailures++
		}

		outcome := e.ctrl.Handle(req)
		if e.codec.Cadence() > 0 || req.ChecksumFailed {
			continue
		}

		frame, err := e.codec.Encode(Reply{ID: req.ID, Outcome: outcome, State: &e.ctrl.state})
		if err != nil {
			return frames, fmt.Errorf("encode response to %d: %w", req.ID, err)
		}
		frames = append(frames, frame)
		e.stats.Responses++
	}
	return frames, nil
}

// Tick applies due strobe events, polls motion and returns the periodic
// status message when the codec's cadence has elapsed
func (e *Engine) Tick(now time.Time) ([]byte, error) {
	e.ctrl.Advance(now)
	return e.tick(now)
}

func (e *Engine) tick(now time.Time) ([]byte, error) {
	e.ctrl.Poll()
	e.publish(now)

	cadence := e.codec.Cadence()
	if cadence <= 0 || now.Sub(e.lastPeriodic) < cadence {
		return nil, nil
	}
	e.lastPeriodic = now

	s := &e.ctrl.state
	frame, err := e.codec.Encode(Reply{ID: s.LastCommandID, Outcome: s.LastOutcome, State: s})
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	e.stats.Responses++
	return frame, nil
}

func (e *Engine) publish(now time.Time) {
	if len(e.observers) == 0 || now.Sub(e.lastObserved) < e.opts.ObserveInterval {
		return
	}
	e.lastObserved = now

	snapshot := e.ctrl.state
	for _, ch := range e.observers {
		select {
		case ch <- snapshot:
		default:
			e.stats.DroppedSnapshots++
		}
	}
}

// Run serves rw until ctx is done or the stream fails. Reaching EOF ends
// Run without error.
func (e *Engine) Run(ctx context.Context, rw io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan []byte, chunkQueueSize)
	readErr := make(chan error, 1)
	go e.readLoop(ctx, rw, chunks, readErr)
	go e.ctrl.strobe.run(ctx, e.opts.Now, e.opts.StrobeResolution)

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	glog.Infof("engine: serving %s protocol, %s variant", e.codec.Name(), e.ctrl.Variant())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				glog.Info("engine: input closed")
				return nil
			}
			return fmt.Errorf("read: %w", err)

		case chunk := <-chunks:
			frames, err := e.Feed(chunk)
			for _, frame := range frames {
				if _, werr := rw.Write(frame); werr != nil {
					return fmt.Errorf("write: %w", werr)
				}
			}
			if err != nil {
				glog.Errorf("engine: %v", err)
			}

		case ev := <-e.ctrl.strobe.out:
			e.ctrl.applyStrobe(ev)

		case <-ticker.C:
			frame, err := e.tick(e.opts.Now())
			if err != nil {
				glog.Errorf("engine: %v", err)
				continue
			}
			if frame != nil {
				if _, err := rw.Write(frame); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
		}
	}
}

func (e *Engine) readLoop(ctx context.Context, r io.Reader, chunks chan<- []byte, errs chan<- error) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errs <- err
			return
		}
	}
}
