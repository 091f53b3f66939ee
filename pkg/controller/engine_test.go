// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

func newTestEngine(variant Variant, codec Codec) (*Engine, *Simulator, *fakeClock) {
	c, sim, clk := newTestController(variant)
	return NewEngine(c, codec, EngineOptions{Now: clk.Now}), sim, clk
}

func encodeV2(t *testing.T, cmds ...*ocular.Command) []byte {
	t.Helper()
	var out []byte
	for _, cmd := range cmds {
		frame, err := cmd.Encode()
		require.NoError(t, err)
		out = append(out, frame...)
	}
	return out
}

func decodeV2Responses(t *testing.T, frames [][]byte) []*ocular.ResponsePacket {
	t.Helper()
	d := ocular.NewDecoder()
	var out []*ocular.ResponsePacket
	for _, frame := range frames {
		for _, b := range frame {
			p, err := d.DecodeByte(b)
			require.NoError(t, err)
			if p != nil {
				r, err := p.Response()
				require.NoError(t, err)
				out = append(out, r)
			}
		}
	}
	return out
}

// ============================================================================
// v2
// ============================================================================

func TestEngineV2AnswersEachCommand(t *testing.T) {
	eng, _, _ := newTestEngine(VariantFull, NewV2Codec())

	frames, err := eng.Feed(encodeV2(t,
		ocular.NewMoveAxisCommand(5, ocular.AxisX, 1000),
		ocular.NewMoveAxisCommand(6, 9, 1000),
	))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	responses := decodeV2Responses(t, frames)
	require.Len(t, responses, 2)
	require.Equal(t, uint8(5), responses[0].CommandID)
	require.Equal(t, ocular.StatusAccepted, responses[0].Status)
	require.Equal(t, ocular.AxisMoving, responses[0].Axes[0].State)
	require.Equal(t, int32(1000), responses[0].Axes[0].Target)

	require.Equal(t, uint8(6), responses[1].CommandID)
	require.Equal(t, ocular.StatusRejected, responses[1].Status)
	require.Equal(t, ocular.ErrInvalidAxis, responses[1].Error)
}

func TestEngineV2SilentOnCorruption(t *testing.T) {
	eng, _, _ := newTestEngine(VariantFull, NewV2Codec())

	frame := encodeV2(t, ocular.NewResetCommand(1))
	frame[len(frame)-1] ^= 0x80

	frames, err := eng.Feed(frame)
	require.NoError(t, err)
	require.Empty(t, frames)
	require.Zero(t, eng.Stats().Requests)

	tick, err := eng.Tick(time.Now())
	require.NoError(t, err)
	require.Nil(t, tick)
}

func TestEngineV2ShortPayload(t *testing.T) {
	eng, _, _ := newTestEngine(VariantFull, NewV2Codec())
	frame, err := ocular.EncodeFrame([]byte{0x42})
	require.NoError(t, err)

	frames, err := eng.Feed(frame)
	require.NoError(t, err)
	responses := decodeV2Responses(t, frames)
	require.Len(t, responses, 1)
	require.Zero(t, responses[0].CommandID)
	require.Equal(t, ocular.StatusRejected, responses[0].Status)
	require.Equal(t, ocular.ErrPacketTooShort, responses[0].Error)
}

func TestEngineV2Version(t *testing.T) {
	eng, _, _ := newTestEngine(VariantReduced, NewV2Codec())
	frames, err := eng.Feed(encodeV2(t, ocular.NewGetVersionCommand(77)))
	require.NoError(t, err)

	responses := decodeV2Responses(t, frames)
	require.Len(t, responses, 1)
	require.Equal(t, uint8(DefaultFirmwareMajor), responses[0].Reserved[0])
	require.Equal(t, uint8(DefaultFirmwareMinor), responses[0].Reserved[1])
}

func TestEngineV2IlluminationReport(t *testing.T) {
	eng, _, _ := newTestEngine(VariantFull, NewV2Codec())
	frames, err := eng.Feed(encodeV2(t,
		ocular.NewSetIlluminationCommand(1, ocular.Source405nm, 30000, ocular.SwitchKeep),
		ocular.NewGetStateCommand(2),
	))
	require.NoError(t, err)
	responses := decodeV2Responses(t, frames)
	require.Len(t, responses, 2)
	require.Equal(t, uint16(18000), responses[1].DAC[0])
	require.Zero(t, responses[1].IllumOnMask)

	frames, err = eng.Feed(encodeV2(t, ocular.NewSetIlluminationCommand(3, ocular.Source405nm, 30000, ocular.SwitchOn)))
	require.NoError(t, err)
	responses = decodeV2Responses(t, frames)
	require.Equal(t, uint8(0x01), responses[0].IllumOnMask)
}

func TestEngineReducedUnimplementedCommandsSucceed(t *testing.T) {
	eng, _, _ := newTestEngine(VariantReduced, NewV2Codec())
	frames, err := eng.Feed(encodeV2(t,
		ocular.NewMoveAxisCommand(1, ocular.AxisX, 5000),
		ocular.NewHomeAxisCommand(2, ocular.AxisY, ocular.HomingForward),
		&ocular.Command{ID: 3, Type: 0x99},
	))
	require.NoError(t, err)

	for _, r := range decodeV2Responses(t, frames) {
		require.Equal(t, ocular.StatusOK, r.Status)
		require.Equal(t, ocular.ErrNone, r.Error)
		for _, axis := range r.Axes {
			require.Equal(t, ocular.AxisStatus{}, axis)
		}
	}
}

// ============================================================================
// Legacy
// ============================================================================

func legacyStatusAt(t *testing.T, eng *Engine, now time.Time) *legacy_protocol.Response {
	t.Helper()
	frame, err := eng.Tick(now)
	require.NoError(t, err)
	require.NotNil(t, frame)
	r, err := legacy_protocol.ParseResponse(frame)
	require.NoError(t, err)
	return r
}

func TestEngineLegacyCadence(t *testing.T) {
	eng, _, clk := newTestEngine(VariantFull, NewLegacyCodec(10*time.Millisecond))

	frames, err := eng.Feed(legacy_protocol.NewTurnOnIlluminationCommand(4).Bytes())
	require.NoError(t, err)
	require.Empty(t, frames)

	r := legacyStatusAt(t, eng, clk.Now())
	require.Equal(t, uint8(4), r.CommandID)
	require.Equal(t, uint8(legacy_protocol.COMPLETED_WITHOUT_ERRORS), r.Status)

	frame, err := eng.Tick(clk.Add(5 * time.Millisecond))
	require.NoError(t, err)
	require.Nil(t, frame)

	r = legacyStatusAt(t, eng, clk.Add(5*time.Millisecond))
	require.Equal(t, uint8(4), r.CommandID)
}

func TestEngineLegacyChecksumLatch(t *testing.T) {
	eng, _, clk := newTestEngine(VariantFull, NewLegacyCodec(0))

	bad := legacy_protocol.NewTurnOnIlluminationCommand(33).Bytes()
	bad[2] ^= 0x10
	trailing := legacy_protocol.NewResetCommand(34).Bytes()

	_, err := eng.Feed(append(bad, trailing...))
	require.NoError(t, err)

	r := legacyStatusAt(t, eng, clk.Now())
	require.Equal(t, uint8(33), r.CommandID)
	require.Equal(t, uint8(legacy_protocol.CMD_CHECKSUM_ERROR), r.Status)
	require.Equal(t, uint64(1), eng.Stats().ChecksumFailures)

	_, err = eng.Feed(legacy_protocol.NewTurnOffIlluminationCommand(35).Bytes())
	require.NoError(t, err)
	r = legacyStatusAt(t, eng, clk.Add(DefaultLegacyInterval))
	require.Equal(t, uint8(35), r.CommandID)
	require.Equal(t, uint8(legacy_protocol.COMPLETED_WITHOUT_ERRORS), r.Status)
}

func TestEngineLegacyMotionProgress(t *testing.T) {
	eng, _, clk := newTestEngine(VariantFull, NewLegacyCodec(0))

	_, err := eng.Feed(legacy_protocol.NewMoveToCommand(7, legacy_protocol.MOVETO_X, 10000).Bytes())
	require.NoError(t, err)

	r := legacyStatusAt(t, eng, clk.Now())
	require.Equal(t, uint8(legacy_protocol.IN_PROGRESS), r.Status)
	require.Equal(t, int32(2000), r.X)

	for i := 0; i < 4; i++ {
		r = legacyStatusAt(t, eng, clk.Add(DefaultLegacyInterval))
	}
	require.Equal(t, uint8(legacy_protocol.COMPLETED_WITHOUT_ERRORS), r.Status)
	require.Equal(t, int32(10000), r.X)
	require.Equal(t, uint8(7), r.CommandID)
}

func TestEngineLegacyWSlot(t *testing.T) {
	eng, _, clk := newTestEngine(VariantFull, NewLegacyCodec(0))
	_, err := eng.Feed(legacy_protocol.NewMoveToCommand(1, legacy_protocol.MOVETO_W, -1500).Bytes())
	require.NoError(t, err)

	r := legacyStatusAt(t, eng, clk.Now())
	require.Equal(t, int32(-1500), r.W)
	require.Zero(t, r.X)
}

func TestEngineLegacyInvalidCommand(t *testing.T) {
	eng, _, clk := newTestEngine(VariantFull, NewLegacyCodec(0))
	_, err := eng.Feed(legacy_protocol.NewCommand(9, 40, nil).Bytes())
	require.NoError(t, err)

	r := legacyStatusAt(t, eng, clk.Now())
	require.Equal(t, uint8(legacy_protocol.CMD_INVALID), r.Status)
}

func TestEngineLegacyReducedCompatibility(t *testing.T) {
	eng, _, clk := newTestEngine(VariantReduced, NewLegacyCodec(0))
	_, err := eng.Feed(legacy_protocol.NewMoveToCommand(12, legacy_protocol.MOVETO_X, 10000).Bytes())
	require.NoError(t, err)

	r := legacyStatusAt(t, eng, clk.Now())
	require.Equal(t, uint8(12), r.CommandID)
	require.Equal(t, uint8(legacy_protocol.COMPLETED_WITHOUT_ERRORS), r.Status)
	require.Zero(t, r.X)

	_, err = eng.Feed(legacy_protocol.NewResetCommand(13).Bytes())
	require.NoError(t, err)
	r = legacyStatusAt(t, eng, clk.Add(DefaultLegacyInterval))
	require.Zero(t, r.CommandID)
}

// ============================================================================
// Observers
// ============================================================================

func TestEnginePublishesSnapshots(t *testing.T) {
	eng, _, clk := newTestEngine(VariantFull, NewV2Codec())
	ch := make(chan DeviceState, 1)
	eng.Subscribe(ch)

	_, err := eng.Feed(encodeV2(t, ocular.NewSetDACCommand(1, 2, 999)))
	require.NoError(t, err)
	_, err = eng.Tick(clk.Now())
	require.NoError(t, err)

	s := <-ch
	require.Equal(t, uint16(999), s.DAC[2])

	_, err = eng.Tick(clk.Add(time.Millisecond))
	require.NoError(t, err)
	require.Empty(t, ch)

	_, err = eng.Tick(clk.Add(DefaultObserveInterval))
	require.NoError(t, err)
	_, err = eng.Tick(clk.Add(DefaultObserveInterval))
	require.NoError(t, err)
	require.Len(t, ch, 1)
	require.Equal(t, uint64(1), eng.Stats().DroppedSnapshots)
}

// ============================================================================
// Run
// ============================================================================

func TestEngineRunServesStream(t *testing.T) {
	sim := NewSimulator(0)
	eng := NewEngine(New(sim.Hardware(), Options{}), NewV2Codec(), EngineOptions{})

	device, host := net.Pipe()
	defer host.Close()
	defer device.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx, device) }()

	require.NoError(t, host.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := host.Write(encodeV2(t, ocular.NewGetVersionCommand(21)))
	require.NoError(t, err)

	d := ocular.NewDecoder()
	buf := make([]byte, 128)
	var resp *ocular.ResponsePacket
	for resp == nil {
		n, err := host.Read(buf)
		require.NoError(t, err)
		for _, b := range buf[:n] {
			p, err := d.DecodeByte(b)
			require.NoError(t, err)
			if p != nil {
				resp, err = p.Response()
				require.NoError(t, err)
			}
		}
	}
	require.Equal(t, uint8(21), resp.CommandID)
	require.Equal(t, uint8(DefaultFirmwareMajor), resp.Reserved[0])

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestEngineRunEndsAtEOF(t *testing.T) {
	sim := NewSimulator(0)
	eng := NewEngine(New(sim.Hardware(), Options{}), NewV2Codec(), EngineOptions{})

	rw := struct {
		io.Reader
		io.Writer
	}{bytes.NewReader(nil), io.Discard}

	require.NoError(t, eng.Run(context.Background(), rw))
}
