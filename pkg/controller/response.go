// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

// BuildResponse builds the v2 status response for one command
func BuildResponse(id uint8, out Outcome, s *DeviceState) *ocular.ResponsePacket {
	r := &ocular.ResponsePacket{
		CommandID:   id,
		Status:      out.Status,
		Error:       out.Error,
		Mode:        s.Mode,
		DAC:         s.DAC,
		IllumOnMask: s.IllumOnMask(),
		LEDPattern:  s.Illumination.LEDPattern,
		JoystickDX:  s.Joystick.DX,
		JoystickDY:  s.Joystick.DY,
		Reserved:    out.Data,
	}
	for slot, axis := range ocular.ResponseAxisSlots {
		r.Axes[slot] = s.Axes[axis].Status()
	}
	if s.Joystick.Pressed {
		r.Buttons |= 1 << 0
	}
	return r
}

// legacyStatus derives the legacy status byte. A latched checksum error
// wins, then motion in progress, then the last outcome.
func legacyStatus(out Outcome, s *DeviceState) uint8 {
	switch {
	case s.ChecksumError:
		return legacy_protocol.CMD_CHECKSUM_ERROR
	case s.AnyAxisBusy():
		return legacy_protocol.IN_PROGRESS
	}

	switch out.Status {
	case ocular.StatusOK, ocular.StatusAccepted:
		return legacy_protocol.COMPLETED_WITHOUT_ERRORS
	case ocular.StatusRejected:
		if out.Error == ocular.ErrInvalidCmd {
			return legacy_protocol.CMD_INVALID
		}
	}
	return legacy_protocol.CMD_EXECUTION_ERROR
}

// BuildLegacyResponse builds the periodic legacy status message
func BuildLegacyResponse(reply Reply) *legacy_protocol.Response {
	s := reply.State
	r := &legacy_protocol.Response{
		CommandID: reply.ID,
		Status:    legacyStatus(reply.Outcome, s),
		X:         s.Axes[ocular.AxisX].Position,
		Y:         s.Axes[ocular.AxisY].Position,
		Z:         s.Axes[ocular.AxisZ].Position,
		W:         s.Axes[ocular.AxisW].Position,
	}
	if s.Joystick.Pressed {
		r.Buttons |= 1 << legacy_protocol.BIT_POS_JOYSTICK_BUTTON
	}
	if s.Joystick.Switch {
		r.Buttons |= 1 << legacy_protocol.BIT_POS_SWITCH
	}
	return r
}
