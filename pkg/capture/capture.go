// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records the raw byte stream of a controller link to a CBOR
// sequence file and reads it back for replay.
//
// A capture is a header item followed by one item per chunk:
//
//	{1: "ocular-capture", 2: version, 3: protocol, 4: start (unix ns)}
//	{1: direction, 2: offset (ns since start), 3: bytes}
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Magic identifies a capture file
const Magic = "ocular-capture"

// Version is the capture format version
const Version = 1

// Direction of a captured chunk
type Direction uint8

const (
	// HostToDevice is a chunk the controller received
	HostToDevice Direction = 0
	// DeviceToHost is a chunk the controller sent
	DeviceToHost Direction = 1
)

func (d Direction) String() string {
	switch d {
	case HostToDevice:
		return "RX"
	case DeviceToHost:
		return "TX"
	default:
		return fmt.Sprintf("DIR(%d)", uint8(d))
	}
}

// Header is the first item of a capture
type Header struct {
	Magic    string `cbor:"1,keyasint"`
	Version  uint   `cbor:"2,keyasint"`
	Protocol string `cbor:"3,keyasint"`
	Start    int64  `cbor:"4,keyasint"`
}

// StartTime returns the capture start as a time
func (h Header) StartTime() time.Time {
	return time.Unix(0, h.Start)
}

// Record is one captured chunk
type Record struct {
	Direction Direction     `cbor:"1,keyasint"`
	Offset    time.Duration `cbor:"2,keyasint"`
	Data      []byte        `cbor:"3,keyasint"`
}

// ErrNotCapture is returned when a stream does not start with a capture header
var ErrNotCapture = errors.New("not an ocular capture")

// Recorder appends records to a capture stream. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	enc   *cbor.Encoder
	start time.Time
	now   func() time.Time
	count int
}

// NewRecorder writes the capture header to w. now defaults to time.Now.
func NewRecorder(w io.Writer, protocol string, now func() time.Time) (*Recorder, error) {
	if now == nil {
		now = time.Now
	}
	r := &Recorder{enc: cbor.NewEncoder(w), start: now(), now: now}
	h := Header{Magic: Magic, Version: Version, Protocol: protocol, Start: r.start.UnixNano()}
	if err := r.enc.Encode(h); err != nil {
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return r, nil
}

// Record appends one chunk
func (r *Recorder) Record(dir Direction, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{Direction: dir, Offset: r.now().Sub(r.start), Data: data}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of records written
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// tap records a stream as it passes through
type tap struct {
	rw  io.ReadWriter
	rec *Recorder
}

// Tap wraps rw so that reads are recorded as HostToDevice and writes as
// DeviceToHost. A failed record does not fail the stream.
func Tap(rw io.ReadWriter, rec *Recorder) io.ReadWriter {
	return &tap{rw: rw, rec: rec}
}

func (t *tap) Read(p []byte) (int, error) {
	n, err := t.rw.Read(p)
	if n > 0 {
		_ = t.rec.Record(HostToDevice, append([]byte(nil), p[:n]...))
	}
	return n, err
}

func (t *tap) Write(p []byte) (int, error) {
	n, err := t.rw.Write(p)
	if n > 0 {
		_ = t.rec.Record(DeviceToHost, append([]byte(nil), p[:n]...))
	}
	return n, err
}

// Reader reads a capture stream
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the capture header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if h.Magic != Magic {
		return nil, ErrNotCapture
	}
	if h.Version != Version {
		return nil, fmt.Errorf("unsupported capture version %d", h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the capture header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the capture
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read capture record: %w", err)
	}
	return rec, nil
}

// Replay writes the data of every record in direction dir to w. With
// realtime set, writes are paced by the recorded offsets.
func Replay(ctx context.Context, r *Reader, dir Direction, w io.Writer, realtime bool) (int, error) {
	start := time.Now()
	records := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		if rec.Direction != dir {
			continue
		}

		if realtime {
			if wait := rec.Offset - time.Since(start); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return records, ctx.Err()
				case <-timer.C:
				}
			}
		} else if err := ctx.Err(); err != nil {
			return records, err
		}

		if _, err := w.Write(rec.Data); err != nil {
			return records, fmt.Errorf("replay write: %w", err)
		}
		records++
	}
}
