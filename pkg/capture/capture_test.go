// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func TestRecordAndRead(t *testing.T) {
	var buf bytes.Buffer
	clk := &stepClock{t: time.Unix(1700000000, 0)}

	rec, err := NewRecorder(&buf, "legacy", clk.now)
	require.NoError(t, err)
	require.NoError(t, rec.Record(HostToDevice, []byte{0x01, 0x02}))
	require.NoError(t, rec.Record(DeviceToHost, []byte{0xAA}))
	require.Equal(t, 2, rec.Count())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	require.Equal(t, "legacy", r.Header().Protocol)
	require.True(t, r.Header().StartTime().Equal(time.Unix(1700000000, 0).Add(time.Millisecond)))

	first, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Record{Direction: HostToDevice, Offset: time.Millisecond, Data: []byte{0x01, 0x02}}, first)

	second, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, DeviceToHost, second.Direction)
	require.Equal(t, 2*time.Millisecond, second.Offset)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderRejectsForeignData(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrNotCapture)

	data, err := cbor.Marshal(Header{Magic: "something-else", Version: Version})
	require.NoError(t, err)
	_, err = NewReader(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrNotCapture)

	data, err = cbor.Marshal(Header{Magic: Magic, Version: Version + 1})
	require.NoError(t, err)
	_, err = NewReader(bytes.NewReader(data))
	require.Error(t, err)
}

func TestTruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "v2", nil)
	require.NoError(t, err)
	require.NoError(t, rec.Record(HostToDevice, []byte{1, 2, 3, 4}))

	data := buf.Bytes()
	r, err := NewReader(bytes.NewReader(data[:len(data)-2]))
	require.NoError(t, err)
	_, err = r.Next()
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

// loopback is a ReadWriter whose reads come from in and writes go to out
type loopback struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.in.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.out.Write(p) }

func TestTapRecordsBothDirections(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "v2", nil)
	require.NoError(t, err)

	lb := &loopback{in: bytes.NewReader([]byte("request"))}
	rw := Tap(lb, rec)

	p := make([]byte, 16)
	n, err := rw.Read(p)
	require.NoError(t, err)
	require.Equal(t, "request", string(p[:n]))

	_, err = rw.Write([]byte("response"))
	require.NoError(t, err)
	require.Equal(t, "response", lb.out.String())

	// EOF reads record nothing
	_, err = rw.Read(p)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, rec.Count())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	var rx bytes.Buffer
	n1, err := Replay(context.Background(), r, HostToDevice, &rx, false)
	require.NoError(t, err)
	require.Equal(t, 1, n1)
	require.Equal(t, "request", rx.String())
}

func TestReplayDirectionAndPacing(t *testing.T) {
	var buf bytes.Buffer
	clk := &stepClock{t: time.Unix(0, 0)}
	rec, err := NewRecorder(&buf, "v2", clk.now)
	require.NoError(t, err)
	require.NoError(t, rec.Record(HostToDevice, []byte("a")))
	require.NoError(t, rec.Record(DeviceToHost, []byte("x")))
	require.NoError(t, rec.Record(HostToDevice, []byte("b")))
	data := buf.Bytes()

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	var out bytes.Buffer
	started := time.Now()
	n, err := Replay(context.Background(), r, HostToDevice, &out, true)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "ab", out.String())
	require.GreaterOrEqual(t, time.Since(started), 2*time.Millisecond)

	r, err = NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out.Reset()
	n, err = Replay(context.Background(), r, DeviceToHost, &out, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "x", out.String())
}

func TestReplayCancelled(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "v2", nil)
	require.NoError(t, err)
	require.NoError(t, rec.Record(HostToDevice, []byte("a")))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Replay(ctx, r, HostToDevice, io.Discard, false)
	require.ErrorIs(t, err, context.Canceled)
}
