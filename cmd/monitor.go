// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

type eventKind int

const (
	eventPacket eventKind = iota
	eventDecodeError
	eventSync
)

// monitorEvent is one decoded unit of a byte stream, protocol independent
type monitorEvent struct {
	kind      eventKind
	timestamp time.Time

	// summary is a one-line name for the event log, detail the full dump
	summary string
	detail  string

	decodeErr    error
	anomalies    []string
	invalidBytes int // eventSync only

	// status is set for device status messages
	status *statusView
}

// statusView is the part of a device status the TUI displays
type statusView struct {
	commandID uint8
	status    string
	failed    bool
	mode      string
	axes      []axisView
	lights    string
	buttons   string
}

type axisView struct {
	name     string
	position int32
	target   int32
	state    string
	homed    bool
}

// monitorCounters is the protocol independent view of the statistics
type monitorCounters struct {
	total, valid                 uint64
	checksumErrors, decodeErrors uint64
	malformed, anomalous         uint64
	packetRate, errorRate        float64
}

func (c monitorCounters) errors() uint64 {
	return c.checksumErrors + c.decodeErrors + c.malformed + c.anomalous
}

// streamMonitor decodes and validates one direction of a link
type streamMonitor interface {
	// Feed consumes one byte and returns an event when one completes.
	// Decode errors before the first good packet are folded into the
	// eventSync that reports synchronization.
	Feed(b byte) *monitorEvent

	Counters() monitorCounters
	String() string
}

// newStreamMonitor returns the monitor for the --protocol flag
func newStreamMonitor() streamMonitor {
	if isLegacy() {
		return newLegacyMonitor(acceptZeroChecksum)
	}
	return newV2Monitor()
}

// syncTracker ignores decode errors until the first good packet
type syncTracker struct {
	synchronized bool
	invalidBytes int
}

// good marks a decoded packet and returns the sync event, if this was the
// first one
func (s *syncTracker) good() *monitorEvent {
	if s.synchronized {
		return nil
	}
	s.synchronized = true
	return &monitorEvent{kind: eventSync, timestamp: time.Now(), invalidBytes: s.invalidBytes}
}

// bad reports whether a decode error should be surfaced
func (s *syncTracker) bad() bool {
	if !s.synchronized {
		s.invalidBytes++
		return false
	}
	return true
}

// v2Monitor watches a framed v2 stream in either direction
type v2Monitor struct {
	decoder *ocular.Decoder
	stats   *ocular.Statistics
	sync    syncTracker
}

func newV2Monitor() *v2Monitor {
	return &v2Monitor{decoder: ocular.NewDecoder(), stats: ocular.NewStatistics()}
}

func (m *v2Monitor) Feed(b byte) *monitorEvent {
	packet, err := m.decoder.DecodeByte(b)
	if err != nil {
		if !m.sync.bad() {
			return nil
		}
		m.stats.Update(nil, err, nil)
		return &monitorEvent{kind: eventDecodeError, timestamp: time.Now(), summary: "DECODE ERROR", decodeErr: err}
	}
	if packet == nil {
		return nil
	}

	validation := ocular.ValidatePacket(packet)
	m.stats.Update(packet, nil, validation)

	ev := &monitorEvent{
		kind:      eventPacket,
		timestamp: packet.Timestamp(),
		summary:   v2Summary(packet),
		detail:    ocular.FormatPacket(packet),
	}
	for _, v := range validation {
		ev.anomalies = append(ev.anomalies, v.Message)
	}
	if packet.IsResponse() {
		if resp, err := packet.Response(); err == nil {
			ev.status = v2Status(resp)
		}
	}

	if sync := m.sync.good(); sync != nil {
		// the sync notice goes first; the packet rides along in detail
		sync.summary = ev.summary
		sync.detail = ev.detail
		sync.anomalies = ev.anomalies
		sync.status = ev.status
		return sync
	}
	return ev
}

func v2Summary(p *ocular.Packet) string {
	if p.IsResponse() {
		if resp, err := p.Response(); err == nil {
			return fmt.Sprintf("RESPONSE id=%d %s %s", resp.CommandID, ocular.FormatStatus(resp.Status), ocular.FormatError(resp.Error))
		}
	}
	return fmt.Sprintf("%s id=%d", ocular.FormatCommandType(p.CommandType()), p.CommandID())
}

func v2Status(r *ocular.ResponsePacket) *statusView {
	v := &statusView{
		commandID: r.CommandID,
		status:    ocular.FormatStatus(r.Status),
		failed:    r.Status == ocular.StatusRejected || r.Status == ocular.StatusError,
		mode:      ocular.FormatMode(r.Mode),
		lights:    fmt.Sprintf("mask=0x%02X pattern=%d", r.IllumOnMask, r.LEDPattern),
		buttons:   fmt.Sprintf("0x%02X joystick=(%d,%d)", r.Buttons, r.JoystickDX, r.JoystickDY),
	}
	if r.Error != ocular.ErrNone {
		v.status += " " + ocular.FormatError(r.Error)
	}
	for i, a := range r.Axes {
		v.axes = append(v.axes, axisView{
			name:     ocular.FormatAxis(ocular.ResponseAxisSlots[i]),
			position: a.Position,
			target:   a.Target,
			state:    ocular.FormatAxisState(a.State),
			homed:    a.Homed,
		})
	}
	return v
}

func (m *v2Monitor) Counters() monitorCounters {
	s := m.stats
	s.CalculateRates()
	return monitorCounters{
		total:          s.TotalPackets,
		valid:          s.ValidPackets,
		checksumErrors: s.CRCErrors,
		decodeErrors:   s.DecodeErrors + s.LengthErrors,
		malformed:      s.MalformedPackets + s.UnknownCommands,
		anomalous:      s.AnomalousValues,
		packetRate:     s.PacketRate,
		errorRate:      s.ErrorRate,
	}
}

func (m *v2Monitor) String() string {
	return m.stats.String()
}

// legacyMonitor watches the device side of a legacy link: periodic 24-byte
// status messages
type legacyMonitor struct {
	receiver *legacy_protocol.ResponseReceiver
	stats    *legacy_protocol.Statistics
	sync     syncTracker
	prev     *legacy_protocol.Response
}

func newLegacyMonitor(acceptZero bool) *legacyMonitor {
	receiver := legacy_protocol.NewResponseReceiver()
	receiver.AcceptZeroChecksum = acceptZero
	return &legacyMonitor{receiver: receiver, stats: legacy_protocol.NewStatistics()}
}

func (m *legacyMonitor) Feed(b byte) *monitorEvent {
	resp, err := m.receiver.DecodeByte(b)
	if err != nil {
		if !m.sync.bad() {
			return nil
		}
		m.stats.Update(nil, err, nil)
		return &monitorEvent{kind: eventDecodeError, timestamp: time.Now(), summary: "CHECKSUM ERROR", decodeErr: err}
	}
	if resp == nil {
		return nil
	}

	validation := legacy_protocol.ValidateResponse(resp, m.prev)
	m.prev = resp
	m.stats.Update(resp, nil, validation)

	ev := &monitorEvent{
		kind:      eventPacket,
		timestamp: resp.Timestamp,
		summary:   fmt.Sprintf("STATUS id=%d %s", resp.CommandID, legacy_protocol.FormatStatus(resp.Status)),
		detail:    legacy_protocol.FormatResponse(resp),
		status:    legacyStatus(resp),
	}
	for _, v := range validation {
		ev.anomalies = append(ev.anomalies, v.Message)
	}

	if sync := m.sync.good(); sync != nil {
		sync.summary = ev.summary
		sync.detail = ev.detail
		sync.anomalies = ev.anomalies
		sync.status = ev.status
		return sync
	}
	return ev
}

func legacyStatus(r *legacy_protocol.Response) *statusView {
	v := &statusView{
		commandID: r.CommandID,
		status:    legacy_protocol.FormatStatus(r.Status),
		failed:    r.Status >= legacy_protocol.CMD_CHECKSUM_ERROR,
		lights:    fmt.Sprintf("switch=%t", r.SwitchOn()),
		buttons:   fmt.Sprintf("joystick=%t", r.JoystickPressed()),
	}
	for _, a := range []struct {
		name string
		pos  int32
	}{{"X", r.X}, {"Y", r.Y}, {"Z", r.Z}, {"W", r.W}} {
		v.axes = append(v.axes, axisView{name: a.name, position: a.pos, target: a.pos})
	}
	return v
}

func (m *legacyMonitor) Counters() monitorCounters {
	s := m.stats
	s.CalculateRates()
	return monitorCounters{
		total:          s.TotalMessages,
		valid:          s.ValidMessages,
		checksumErrors: s.ChecksumErrors,
		decodeErrors:   s.OtherErrors,
		anomalous:      s.AnomalousValues,
		packetRate:     s.MessageRate,
		errorRate:      s.ErrorRate,
	}
}

func (m *legacyMonitor) String() string {
	return m.stats.String()
}
