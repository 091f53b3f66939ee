// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import "github.com/Thermoquad/ocular/pkg/ocular"

// MotionDriver is the stepper motion controller. Calls must not block;
// progress is observed through Busy and Position.
type MotionDriver interface {
	MoveTo(axis ocular.Axis, target int32)
	Stop(axis ocular.Axis)
	Home(axis ocular.Axis, direction ocular.HomingDirection)
	SetPosition(axis ocular.Axis, position int32)
	Position(axis ocular.Axis) int32
	Busy(axis ocular.Axis) bool
	Enable(axis ocular.Axis, enable bool)
}

// Illuminator drives the laser TTL lines and the LED matrix
type Illuminator interface {
	SetLaser(channel int, on bool)
	SetLEDMatrix(pattern, r, g, b uint8)
	ClearLEDMatrix()
}

// DAC is the onboard analog output converter
type DAC interface {
	InitDAC()
	WriteDAC(channel uint8, value uint16)
	SetDACGain(value uint16)
}

// DigitalIO covers GPIO pins and camera trigger outputs
type DigitalIO interface {
	ConfigurePin(pin, mode uint8)
	WritePin(pin uint8, level bool)
	ReadPin(pin uint8) bool
	SetCameraTrigger(channel uint8, level bool)
}

// Interlock reports the laser safety interlock
type Interlock interface {
	InterlockEngaged() bool
}

// JoystickSource reports the manual joystick
type JoystickSource interface {
	Joystick() (dx, dy int16, pressed bool)
}

// Hardware bundles the peripherals a Controller drives. All fields are required.
type Hardware struct {
	Motion      MotionDriver
	Illuminator Illuminator
	DAC         DAC
	IO          DigitalIO
	Interlock   Interlock
	Joystick    JoystickSource
}

// Hardware returns a Hardware bundle backed entirely by the simulator
func (s *Simulator) Hardware() Hardware {
	return Hardware{
		Motion:      s,
		Illuminator: s,
		DAC:         s,
		IO:          s,
		Interlock:   s,
		Joystick:    s,
	}
}
