// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import "github.com/Thermoquad/ocular/pkg/ocular"

// Command is a decoded host command. The set of implementations is closed:
// codecs produce them, Controller.Dispatch consumes them.
type Command interface {
	command()
}

// Motion

type MoveAxis struct {
	Axis   ocular.Axis
	Target int32
}

type MoveRelative struct {
	Axis  ocular.Axis
	Delta int32
}

type HomeAxis struct {
	Axis      ocular.Axis
	Direction ocular.HomingDirection
}

// HomeXY homes X and Y together (legacy HOME_OR_ZERO with the XY axis code)
type HomeXY struct {
	DirectionX ocular.HomingDirection
	DirectionY ocular.HomingDirection
}

type ZeroAxis struct {
	Axis ocular.Axis
}

type StopAxis struct {
	Axis ocular.Axis
}

type StopAll struct{}

type EnableAxis struct {
	Axis   ocular.Axis
	Enable bool
}

type InitFilterWheel struct {
	Axis ocular.Axis
}

// Configuration

type SetAxisParams struct {
	Axis         ocular.Axis
	MaxVelocity  uint32
	Acceleration uint32
	MinPosition  int32
	MaxPosition  int32
	RequireHomed bool
}

// SetAxisLimit sets one soft limit (legacy SET_LIM)
type SetAxisLimit struct {
	Axis     ocular.Axis
	Positive bool
	Position int32
}

type SetVelocityAcceleration struct {
	Axis         ocular.Axis
	MaxVelocity  uint32
	Acceleration uint32
}

type SetLimitSwitchPolarity struct {
	Axis     ocular.Axis
	Polarity uint8
}

type ConfigureDriver struct {
	Axis          ocular.Axis
	Microstepping uint8
	CurrentRMS    uint16
	HoldCurrent   uint8
}

type SetLeadScrewPitch struct {
	Axis  ocular.Axis
	Pitch uint16
}

type SetOffsetVelocity struct {
	Axis     ocular.Axis
	Velocity int32
}

type SetHomeSafetyMargin struct {
	Axis   ocular.Axis
	Margin uint16
}

type GetAxisParams struct {
	Axis ocular.Axis
}

type SetCameraParams struct {
	Channel       uint8
	StrobeDelayUs uint32
}

type SetPIDParams struct {
	Axis ocular.Axis
	P    uint16
	I    uint8
	D    uint8
}

type ConfigurePID struct {
	Axis        ocular.Axis
	Flip        bool
	Transitions uint16
}

type EnablePID struct {
	Axis   ocular.Axis
	Enable bool
}

// I/O

type SetDAC struct {
	Channel uint8
	Value   uint16
}

type SetTTL struct {
	Channel uint8
	Level   bool
}

type ConfigureGPIO struct {
	Pin  uint8
	Mode uint8
}

type WriteGPIO struct {
	Pin   uint8
	Level bool
}

type ReadGPIO struct {
	Pin uint8
}

type SetDACGain struct {
	Div   uint8
	Gains uint8
}

// Illumination

type SetIllumination struct {
	Source    uint8
	Intensity uint16
	Switch    ocular.IlluminationSwitch
}

type SwitchIllumination struct {
	On bool
}

type SetLEDMatrix struct {
	Pattern uint8
	R, G, B uint8
}

// SetIntensityFactor scales later intensities by Percent/100 (clamped to 100)
type SetIntensityFactor struct {
	Percent uint8
}

type PulseIllumination struct {
	Channel  uint8
	OnTimeUs uint32
}

// Camera

type TriggerCamera struct {
	Channel             uint8
	ControlIllumination bool
	OnTimeUs            uint32
}

type SetTriggerMode struct {
	Mode uint8
}

type AckJoystickButton struct{}

// SequenceUpload is one of the reserved hardware sequence opcodes
type SequenceUpload struct {
	Code uint8
}

// System

type GetState struct{}

type AckError struct{}

type GetVersion struct{}

type Initialize struct{}

type Reset struct{}

// Unsupported is a command code the codec does not know
type Unsupported struct {
	Code uint8
}

// Malformed is a command whose parameters are shorter than its layout.
// Intended holds the zero value of the command it would have been, or nil
// when even the command code was missing.
type Malformed struct {
	Code     uint8
	Err      error
	Intended Command
}

func (MoveAxis) command()                {}
func (MoveRelative) command()            {}
func (HomeAxis) command()                {}
func (HomeXY) command()                  {}
func (ZeroAxis) command()                {}
func (StopAxis) command()                {}
func (StopAll) command()                 {}
func (EnableAxis) command()              {}
func (InitFilterWheel) command()         {}
func (SetAxisParams) command()           {}
func (SetAxisLimit) command()            {}
func (SetVelocityAcceleration) command() {}
func (SetLimitSwitchPolarity) command()  {}
func (ConfigureDriver) command()         {}
func (SetLeadScrewPitch) command()       {}
func (SetOffsetVelocity) command()       {}
func (SetHomeSafetyMargin) command()     {}
func (GetAxisParams) command()           {}
func (SetCameraParams) command()         {}
func (SetPIDParams) command()            {}
func (ConfigurePID) command()            {}
func (EnablePID) command()               {}
func (SetDAC) command()                  {}
func (SetTTL) command()                  {}
func (ConfigureGPIO) command()           {}
func (WriteGPIO) command()               {}
func (ReadGPIO) command()                {}
func (SetDACGain) command()              {}
func (SetIllumination) command()         {}
func (SwitchIllumination) command()      {}
func (SetLEDMatrix) command()            {}
func (SetIntensityFactor) command()      {}
func (PulseIllumination) command()       {}
func (TriggerCamera) command()           {}
func (SetTriggerMode) command()          {}
func (AckJoystickButton) command()       {}
func (SequenceUpload) command()          {}
func (GetState) command()                {}
func (AckError) command()                {}
func (GetVersion) command()              {}
func (Initialize) command()              {}
func (Reset) command()                   {}
func (Unsupported) command()             {}
func (Malformed) command()               {}
