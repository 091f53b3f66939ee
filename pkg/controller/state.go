// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package controller implements the device side of the microscope controller
// protocol: the DeviceState aggregate, the command dispatcher with its full
// and reduced variants, the wire codecs and the engine loop that ties them
// to a byte stream.
package controller

import "github.com/Thermoquad/ocular/pkg/ocular"

// NumGPIOPins is the size of the GPIO shadow
const NumGPIOPins = 64

// AxisConfig holds per-axis configuration set by the host
type AxisConfig struct {
	MaxVelocity  uint32
	Acceleration uint32
	MinPosition  int32
	MaxPosition  int32
	RequireHomed bool

	LimitSwitchPolarity uint8
	Microstepping       uint8
	CurrentRMS          uint16
	HoldCurrent         uint8
	LeadScrewPitch      uint16
	OffsetVelocity      int32
	HomeSafetyMargin    uint16

	PIDEnabled     bool
	PIDFlip        bool
	PIDTransitions uint16
	PIDP           uint16
	PIDI           uint8
	PIDD           uint8
}

// HasSoftLimits reports whether soft limits are enforced
func (c *AxisConfig) HasSoftLimits() bool {
	return c.MinPosition < c.MaxPosition
}

// AxisRecord is the controller's view of one axis
type AxisRecord struct {
	Position int32
	Target   int32

	Moving          bool
	Homing          bool
	PreparingHoming bool
	Homed           bool
	Enabled         bool
	Error           ocular.ErrorCode

	Config AxisConfig
}

// State derives the reported axis state. HOMING wins over MOVING so the two
// are never reported together.
func (a *AxisRecord) State() ocular.AxisState {
	switch {
	case a.Homing || a.PreparingHoming:
		return ocular.AxisHoming
	case a.Moving:
		return ocular.AxisMoving
	case a.Error != ocular.ErrNone:
		return ocular.AxisError
	default:
		return ocular.AxisIdle
	}
}

// Busy reports whether the axis has motion in progress
func (a *AxisRecord) Busy() bool {
	return a.Moving || a.Homing || a.PreparingHoming
}

// Status converts the record to its wire form
func (a *AxisRecord) Status() ocular.AxisStatus {
	return ocular.AxisStatus{
		Position: a.Position,
		Target:   a.Target,
		State:    a.State(),
		Error:    a.Error,
		Homed:    a.Homed,
	}
}

// Illumination is the illumination subsystem state
type Illumination struct {
	Source    uint8
	Intensity uint16 // after the intensity factor
	On        bool
	Factor    float64

	LEDPattern uint8
	LEDOn      bool
	R, G, B    uint8

	LaserOn [ocular.NumLaserChannels]bool
}

// Joystick is the last joystick reading
type Joystick struct {
	DX      int16
	DY      int16
	Pressed bool // latched until ACK_JOYSTICK_BUTTON_PRESSED
	Switch  bool
}

// DeviceState is the complete controller state. It holds only values and
// fixed-size arrays, so assigning it produces an independent snapshot.
type DeviceState struct {
	Axes         [ocular.NumAxes]AxisRecord
	Illumination Illumination
	DAC          [ocular.NumDACChannels]uint16
	DACGain      uint16
	Joystick     Joystick
	Mode         ocular.SystemMode

	ChecksumError bool
	TriggerMode   uint8
	StrobeDelayUs [ocular.NumCameraChannels]uint32
	CameraTrigger [ocular.NumCameraChannels]bool

	GPIO     [NumGPIOPins]bool
	GPIOMode [NumGPIOPins]uint8

	LastCommandID uint8
	LastOutcome   Outcome
}

// newDeviceState returns the boot-time state
func newDeviceState(factor float64) DeviceState {
	s := DeviceState{DACGain: ocular.DefaultDACGain}
	for i := range s.Axes {
		s.Axes[i].Enabled = true
	}
	s.Illumination.Factor = factor
	return s
}

// AnyAxisBusy reports whether any axis has motion in progress
func (s DeviceState) AnyAxisBusy() bool {
	for i := range s.Axes {
		if s.Axes[i].Busy() {
			return true
		}
	}
	return false
}

// IllumOnMask returns the on-mask reported in responses: bit n for the laser
// on DAC channel n, IllumMaskLEDMatrix while an LED matrix source is lit
func (s DeviceState) IllumOnMask() uint8 {
	var mask uint8
	for ch, on := range s.Illumination.LaserOn {
		if on {
			mask |= 1 << ch
		}
	}
	if s.Illumination.LEDOn {
		mask |= ocular.IllumMaskLEDMatrix
	}
	return mask
}
