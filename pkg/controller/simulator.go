// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"sync"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

// DefaultSimulatorSpeed is the simulated axis speed in µsteps per poll
const DefaultSimulatorSpeed = 2000

type simAxis struct {
	position int32
	target   int32
	busy     bool
	enabled  bool
}

// Simulator is an in-memory stand-in for every peripheral. Axes move toward
// their target by Speed µsteps each time Busy is polled.
type Simulator struct {
	mu sync.Mutex

	speed int32
	axes  [ocular.NumAxes]simAxis

	lasers     [ocular.NumLaserChannels]bool
	ledOn      bool
	ledPattern uint8
	ledRGB     [3]uint8

	dac       [ocular.NumDACChannels]uint16
	dacGain   uint16
	dacInits  int
	dacWrites int

	pins          [NumGPIOPins]bool
	pinModes      [NumGPIOPins]uint8
	cameraTrigger [ocular.NumCameraChannels]bool
	triggerCount  [ocular.NumCameraChannels]int

	interlock  bool
	joyDX      int16
	joyDY      int16
	joyPressed bool
}

// NewSimulator creates a simulator moving speed µsteps per poll
func NewSimulator(speed int32) *Simulator {
	if speed <= 0 {
		speed = DefaultSimulatorSpeed
	}
	s := &Simulator{speed: speed, dacGain: ocular.DefaultDACGain}
	for i := range s.axes {
		s.axes[i].enabled = true
	}
	return s
}

func (s *Simulator) axis(axis ocular.Axis) *simAxis {
	if int(axis) >= len(s.axes) {
		return nil
	}
	return &s.axes[axis]
}

// MoveTo starts a move toward target
func (s *Simulator) MoveTo(axis ocular.Axis, target int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		a.target = target
		a.busy = a.position != target
	}
}

// Stop halts the axis where it is
func (s *Simulator) Stop(axis ocular.Axis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		a.target = a.position
		a.busy = false
	}
}

// Home drives the axis to position zero. The direction only matters on
// real hardware.
func (s *Simulator) Home(axis ocular.Axis, _ ocular.HomingDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		a.target = 0
		a.busy = true
	}
}

// SetPosition redefines the current position without moving
func (s *Simulator) SetPosition(axis ocular.Axis, position int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		a.position = position
		a.target = position
		a.busy = false
	}
}

// Position returns the current position
func (s *Simulator) Position(axis ocular.Axis) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		return a.position
	}
	return 0
}

// Busy advances a moving axis by one step and reports whether it is still moving
func (s *Simulator) Busy(axis ocular.Axis) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.axis(axis)
	if a == nil || !a.busy {
		return false
	}

	delta := int64(a.target) - int64(a.position)
	switch {
	case delta > int64(s.speed):
		a.position += s.speed
	case delta < -int64(s.speed):
		a.position -= s.speed
	default:
		a.position = a.target
		a.busy = false
	}
	return a.busy
}

// Enable powers the axis driver on or off
func (s *Simulator) Enable(axis ocular.Axis, enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		a.enabled = enable
		if !enable {
			a.target = a.position
			a.busy = false
		}
	}
}

// SetLaser drives a laser TTL line
func (s *Simulator) SetLaser(channel int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel >= 0 && channel < len(s.lasers) {
		s.lasers[channel] = on
	}
}

// SetLEDMatrix lights an LED matrix pattern
func (s *Simulator) SetLEDMatrix(pattern, r, g, b uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledOn = true
	s.ledPattern = pattern
	s.ledRGB = [3]uint8{r, g, b}
}

// ClearLEDMatrix turns the LED matrix off
func (s *Simulator) ClearLEDMatrix() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledOn = false
}

// InitDAC restores the power-on DAC configuration
func (s *Simulator) InitDAC() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dac = [ocular.NumDACChannels]uint16{}
	s.dacGain = ocular.DefaultDACGain
	s.dacInits++
}

// WriteDAC sets one DAC output
func (s *Simulator) WriteDAC(channel uint8, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(channel) < len(s.dac) {
		s.dac[channel] = value
		s.dacWrites++
	}
}

// SetDACGain writes the DAC gain register
func (s *Simulator) SetDACGain(value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dacGain = value
}

// ConfigurePin sets a pin mode
func (s *Simulator) ConfigurePin(pin, mode uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(pin) < len(s.pinModes) {
		s.pinModes[pin] = mode
	}
}

// WritePin drives a pin
func (s *Simulator) WritePin(pin uint8, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(pin) < len(s.pins) {
		s.pins[pin] = level
	}
}

// ReadPin samples a pin
func (s *Simulator) ReadPin(pin uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(pin) < len(s.pins) {
		return s.pins[pin]
	}
	return false
}

// SetCameraTrigger drives a camera trigger output
func (s *Simulator) SetCameraTrigger(channel uint8, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(channel) < len(s.cameraTrigger) {
		if level && !s.cameraTrigger[channel] {
			s.triggerCount[channel]++
		}
		s.cameraTrigger[channel] = level
	}
}

// InterlockEngaged reports the simulated interlock
func (s *Simulator) InterlockEngaged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interlock
}

// Joystick reports the simulated joystick
func (s *Simulator) Joystick() (int16, int16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joyDX, s.joyDY, s.joyPressed
}

// Inputs

// SetInterlock engages or releases the simulated interlock
func (s *Simulator) SetInterlock(engaged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interlock = engaged
}

// SetJoystick sets the simulated joystick reading
func (s *Simulator) SetJoystick(dx, dy int16, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joyDX, s.joyDY, s.joyPressed = dx, dy, pressed
}

// Observations

// Laser reports a laser TTL line
func (s *Simulator) Laser(channel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel >= 0 && channel < len(s.lasers) {
		return s.lasers[channel]
	}
	return false
}

// LEDMatrix returns the LED matrix output
func (s *Simulator) LEDMatrix() (on bool, pattern uint8, rgb [3]uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledOn, s.ledPattern, s.ledRGB
}

// DACValue returns one DAC output
func (s *Simulator) DACValue(channel uint8) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(channel) < len(s.dac) {
		return s.dac[channel]
	}
	return 0
}

// DACGain returns the DAC gain register
func (s *Simulator) DACGain() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dacGain
}

// DACInits returns how many times the DAC was initialised
func (s *Simulator) DACInits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dacInits
}

// Pin returns the level of a pin
func (s *Simulator) Pin(pin uint8) bool {
	return s.ReadPin(pin)
}

// PinMode returns the configured mode of a pin
func (s *Simulator) PinMode(pin uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(pin) < len(s.pinModes) {
		return s.pinModes[pin]
	}
	return 0
}

// CameraTrigger returns the level of a camera trigger output and how many
// rising edges it has seen
func (s *Simulator) CameraTrigger(channel uint8) (level bool, pulses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(channel) < len(s.cameraTrigger) {
		return s.cameraTrigger[channel], s.triggerCount[channel]
	}
	return false, 0
}

// AxisEnabled reports whether the axis driver is powered
func (s *Simulator) AxisEnabled(axis ocular.Axis) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.axis(axis); a != nil {
		return a.enabled
	}
	return false
}
