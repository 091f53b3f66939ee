// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

// Firmware version reported by GET_VERSION
const (
	DefaultFirmwareMajor = 2
	DefaultFirmwareMinor = 0
)

// DefaultTriggerPulseWidth is how long a camera trigger output stays high
const DefaultTriggerPulseWidth = 50 * time.Microsecond

// Outcome is the result of dispatching one command
type Outcome struct {
	Status ocular.Status
	Error  ocular.ErrorCode
	Data   [3]uint8 // copied into the response reserved bytes
}

func ok() Outcome {
	return Outcome{Status: ocular.StatusOK}
}

func accepted() Outcome {
	return Outcome{Status: ocular.StatusAccepted}
}

func rejected(code ocular.ErrorCode) Outcome {
	return Outcome{Status: ocular.StatusRejected, Error: code}
}

// outcomeFor is OK unless code is set
func outcomeFor(code ocular.ErrorCode) Outcome {
	if code != ocular.ErrNone {
		return rejected(code)
	}
	return ok()
}

// Options configures a Controller
type Options struct {
	Variant Variant

	// IntensityFactor is the boot and INITIALIZE factor; 0 selects the variant default
	IntensityFactor float64

	FirmwareMajor uint8
	FirmwareMinor uint8

	TriggerPulseWidth time.Duration

	// Now is the strobe clock; defaults to time.Now
	Now func() time.Time
}

// Controller owns the DeviceState and dispatches commands against it.
// It is not safe for concurrent use: one goroutine (normally Engine.Run)
// calls Handle, Poll and Advance.
type Controller struct {
	variant Variant
	opts    Options
	hw      Hardware
	state   DeviceState

	strobe    *strobeScheduler
	strobeGen uint64

	unhandled int
}

// New creates a controller in its boot state
func New(hw Hardware, opts Options) *Controller {
	if opts.IntensityFactor <= 0 {
		opts.IntensityFactor = opts.Variant.DefaultIntensityFactor()
	}
	if opts.FirmwareMajor == 0 && opts.FirmwareMinor == 0 {
		opts.FirmwareMajor = DefaultFirmwareMajor
		opts.FirmwareMinor = DefaultFirmwareMinor
	}
	if opts.TriggerPulseWidth <= 0 {
		opts.TriggerPulseWidth = DefaultTriggerPulseWidth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		variant: opts.Variant,
		opts:    opts,
		hw:      hw,
		state:   newDeviceState(opts.IntensityFactor),
		strobe:  newStrobeScheduler(),
	}
}

// Variant returns the controller variant
func (c *Controller) Variant() Variant {
	return c.variant
}

// Snapshot returns a copy of the device state
func (c *Controller) Snapshot() DeviceState {
	return c.state
}

// Handle processes one decoded request and records it as the most recent
// command. A request that failed its checksum latches the checksum error
// without dispatching; any good request clears the latch.
func (c *Controller) Handle(req Request) Outcome {
	c.state.LastCommandID = req.ID

	if req.ChecksumFailed {
		c.state.ChecksumError = true
		out := rejected(ocular.ErrChecksum)
		c.state.LastOutcome = out
		glog.V(1).Infof("controller: checksum error on command %d", req.ID)
		return out
	}

	c.state.ChecksumError = false
	out := c.Dispatch(req.Command)
	c.state.LastOutcome = out

	if glog.V(2) {
		glog.Infof("controller: cmd %d %T -> %s/%s", req.ID, req.Command,
			ocular.FormatStatus(out.Status), ocular.FormatError(out.Error))
	}
	return out
}

// Dispatch runs the handler for cmd. A panic in a hardware callback is
// logged and answered with ERROR.
func (c *Controller) Dispatch(cmd Command) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("controller: recovered panic handling %T: %v", cmd, r)
			out = Outcome{Status: ocular.StatusError}
		}
	}()

	if c.variant == VariantReduced {
		return c.dispatchReduced(cmd)
	}
	return c.dispatchFull(cmd)
}

func (c *Controller) dispatchFull(cmd Command) Outcome {
	switch cmd := cmd.(type) {
	// Motion
	case MoveAxis:
		return c.moveAxis(cmd.Axis, int64(cmd.Target), true)
	case MoveRelative:
		return c.moveRelative(cmd)
	case HomeAxis:
		return c.homeAxis(cmd.Axis, cmd.Direction)
	case HomeXY:
		return c.homeXY(cmd)
	case ZeroAxis:
		return c.zeroAxis(cmd.Axis)
	case StopAxis:
		return c.stop(cmd.Axis)
	case StopAll:
		for i := range c.state.Axes {
			c.stopAxis(ocular.Axis(i))
		}
		return ok()
	case EnableAxis:
		return c.enableAxis(cmd)
	case InitFilterWheel:
		return c.homeAxis(cmd.Axis, ocular.HomingForward)

	// Configuration
	case SetAxisParams:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) {
			cfg.MaxVelocity = cmd.MaxVelocity
			cfg.Acceleration = cmd.Acceleration
			cfg.MinPosition = cmd.MinPosition
			cfg.MaxPosition = cmd.MaxPosition
			cfg.RequireHomed = cmd.RequireHomed
		})
	case SetAxisLimit:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) {
			if cmd.Positive {
				cfg.MaxPosition = cmd.Position
			} else {
				cfg.MinPosition = cmd.Position
			}
		})
	case SetVelocityAcceleration:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) {
			cfg.MaxVelocity = cmd.MaxVelocity
			cfg.Acceleration = cmd.Acceleration
		})
	case SetLimitSwitchPolarity:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) { cfg.LimitSwitchPolarity = cmd.Polarity })
	case ConfigureDriver:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) {
			cfg.Microstepping = cmd.Microstepping
			cfg.CurrentRMS = cmd.CurrentRMS
			cfg.HoldCurrent = cmd.HoldCurrent
		})
	case SetLeadScrewPitch:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) { cfg.LeadScrewPitch = cmd.Pitch })
	case SetOffsetVelocity:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) { cfg.OffsetVelocity = cmd.Velocity })
	case SetHomeSafetyMargin:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) { cfg.HomeSafetyMargin = cmd.Margin })
	case GetAxisParams:
		return c.configure(cmd.Axis, func(*AxisConfig) {})
	case SetCameraParams:
		if cmd.Channel >= ocular.NumCameraChannels {
			return rejected(ocular.ErrInvalidCmd)
		}
		c.state.StrobeDelayUs[cmd.Channel] = cmd.StrobeDelayUs
		return ok()
	case SetPIDParams:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) {
			cfg.PIDP, cfg.PIDI, cfg.PIDD = cmd.P, cmd.I, cmd.D
		})
	case ConfigurePID:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) {
			cfg.PIDFlip = cmd.Flip
			cfg.PIDTransitions = cmd.Transitions
		})
	case EnablePID:
		return c.configure(cmd.Axis, func(cfg *AxisConfig) { cfg.PIDEnabled = cmd.Enable })

	// I/O
	case SetDAC:
		return c.setDAC(cmd)
	case SetTTL:
		return c.setTTL(cmd)
	case ConfigureGPIO:
		if int(cmd.Pin) >= NumGPIOPins {
			return rejected(ocular.ErrInvalidCmd)
		}
		c.state.GPIOMode[cmd.Pin] = cmd.Mode
		c.hw.IO.ConfigurePin(cmd.Pin, cmd.Mode)
		return ok()
	case WriteGPIO:
		if int(cmd.Pin) >= NumGPIOPins {
			return rejected(ocular.ErrInvalidCmd)
		}
		c.state.GPIO[cmd.Pin] = cmd.Level
		c.hw.IO.WritePin(cmd.Pin, cmd.Level)
		return ok()
	case ReadGPIO:
		if int(cmd.Pin) >= NumGPIOPins {
			return rejected(ocular.ErrInvalidCmd)
		}
		level := c.hw.IO.ReadPin(cmd.Pin)
		c.state.GPIO[cmd.Pin] = level
		out := ok()
		out.Data[0] = boolByte(level)
		return out
	case SetDACGain:
		c.setDACGain(cmd)
		return ok()

	// Illumination
	case SetIllumination:
		return c.setIlluminationCommand(cmd)
	case SwitchIllumination:
		return c.switchIllumination(cmd.On)
	case SetLEDMatrix:
		return c.setLEDMatrix(cmd)
	case SetIntensityFactor:
		c.setIntensityFactor(cmd.Percent)
		return ok()
	case PulseIllumination:
		return c.pulseIllumination(cmd)

	// Camera
	case TriggerCamera:
		return c.triggerCamera(cmd)
	case SetTriggerMode:
		c.state.TriggerMode = cmd.Mode
		return ok()
	case AckJoystickButton:
		c.state.Joystick.Pressed = false
		return ok()
	case SequenceUpload:
		return rejected(ocular.ErrInvalidCmd)

	// System
	case GetState:
		return ok()
	case AckError:
		c.ackError()
		return ok()
	case GetVersion:
		return c.version()
	case Initialize:
		c.initialize()
		return ok()
	case Reset:
		c.reset()
		return ok()

	case Unsupported:
		return rejected(ocular.ErrInvalidCmd)
	case Malformed:
		return rejected(ocular.ErrPacketTooShort)

	default:
		c.unhandled++
		glog.Errorf("controller: no handler for %T", cmd)
		return rejected(ocular.ErrInvalidCmd)
	}
}

func (c *Controller) dispatchReduced(cmd Command) Outcome {
	switch cmd := cmd.(type) {
	case SetIllumination:
		return c.setIlluminationCommand(cmd)
	case SwitchIllumination:
		return c.switchIllumination(cmd.On)
	case SetIntensityFactor:
		c.setIntensityFactor(cmd.Percent)
		return ok()
	case SetDAC:
		return c.setDAC(cmd)
	case SetDACGain:
		c.setDACGain(cmd)
		return ok()
	case GetState:
		return ok()
	case GetVersion:
		return c.version()
	case AckError:
		c.ackError()
		return ok()
	case Initialize:
		c.initializeReduced()
		return ok()
	case Reset:
		c.resetReduced()
		return ok()
	case Malformed:
		if cmd.Intended == nil || reducedImplements(cmd.Intended) {
			return rejected(ocular.ErrPacketTooShort)
		}
		return ok()
	default:
		// Commands the board has no hardware for are acknowledged so hosts
		// written for the full controller keep working.
		return ok()
	}
}

// Poll updates axis progress from the motion driver and samples the
// joystick. The reduced variant has neither.
func (c *Controller) Poll() {
	if c.variant == VariantReduced {
		return
	}

	for i := range c.state.Axes {
		axis := ocular.Axis(i)
		a := &c.state.Axes[i]

		switch {
		case a.PreparingHoming:
			a.PreparingHoming = false
			a.Homing = true
		case a.Homing:
			if !c.hw.Motion.Busy(axis) {
				a.Homing = false
				a.Homed = true
				a.Position = c.hw.Motion.Position(axis)
				a.Target = a.Position
				glog.V(1).Infof("controller: axis %s homed", ocular.FormatAxis(axis))
			}
		case a.Moving:
			if !c.hw.Motion.Busy(axis) {
				a.Moving = false
			}
		}
		a.Position = c.hw.Motion.Position(axis)
	}

	dx, dy, pressed := c.hw.Joystick.Joystick()
	c.state.Joystick.DX = dx
	c.state.Joystick.DY = dy
	if pressed {
		c.state.Joystick.Pressed = true
	}
}

// Advance applies every strobe event due at now. It is the synchronous
// counterpart of the scheduler goroutine.
func (c *Controller) Advance(now time.Time) int {
	events := c.strobe.popDue(now)
	for _, ev := range events {
		c.applyStrobe(ev)
	}
	return len(events)
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
