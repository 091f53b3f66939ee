// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"math"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

// axisRecord returns the record for an addressable, enabled axis
func (c *Controller) axisRecord(axis ocular.Axis) (*AxisRecord, ocular.ErrorCode) {
	if int(axis) >= ocular.NumAxes {
		return nil, ocular.ErrInvalidAxis
	}
	a := &c.state.Axes[axis]
	if !a.Enabled {
		return nil, ocular.ErrInvalidAxis
	}
	return a, ocular.ErrNone
}

func (c *Controller) modeError() ocular.ErrorCode {
	switch c.state.Mode {
	case ocular.ModeError:
		return ocular.ErrSystemInError
	case ocular.ModeHSA:
		return ocular.ErrHSARunning
	}
	return ocular.ErrNone
}

// motionAxis applies the checks every motion command shares
func (c *Controller) motionAxis(axis ocular.Axis) (*AxisRecord, ocular.ErrorCode) {
	a, code := c.axisRecord(axis)
	if code != ocular.ErrNone {
		return nil, code
	}
	if code := c.modeError(); code != ocular.ErrNone {
		return nil, code
	}
	return a, ocular.ErrNone
}

func (c *Controller) moveAxis(axis ocular.Axis, target int64, absolute bool) Outcome {
	a, code := c.motionAxis(axis)
	if code != ocular.ErrNone {
		return rejected(code)
	}
	if a.Homing || a.PreparingHoming {
		return rejected(ocular.ErrAxisBusy)
	}
	if absolute && a.Config.RequireHomed && !a.Homed {
		return rejected(ocular.ErrAxisNotHomed)
	}
	if target < math.MinInt32 || target > math.MaxInt32 {
		return rejected(ocular.ErrLimitReached)
	}
	if a.Config.HasSoftLimits() &&
		(target < int64(a.Config.MinPosition) || target > int64(a.Config.MaxPosition)) {
		return rejected(ocular.ErrLimitReached)
	}

	a.Target = int32(target)
	a.Moving = true
	a.Error = ocular.ErrNone
	c.hw.Motion.MoveTo(axis, a.Target)
	return accepted()
}

// moveRelative offsets the current target so consecutive relative moves
// accumulate even while the axis is still moving
func (c *Controller) moveRelative(cmd MoveRelative) Outcome {
	if _, code := c.axisRecord(cmd.Axis); code != ocular.ErrNone {
		return rejected(code)
	}
	base := c.state.Axes[cmd.Axis].Target
	return c.moveAxis(cmd.Axis, int64(base)+int64(cmd.Delta), false)
}

func (c *Controller) homeAxis(axis ocular.Axis, direction ocular.HomingDirection) Outcome {
	a, code := c.motionAxis(axis)
	if code != ocular.ErrNone {
		return rejected(code)
	}
	if a.Homing || a.PreparingHoming {
		return rejected(ocular.ErrAxisBusy)
	}
	c.startHoming(axis, direction)
	return accepted()
}

func (c *Controller) startHoming(axis ocular.Axis, direction ocular.HomingDirection) {
	a := &c.state.Axes[axis]
	a.Moving = false
	a.PreparingHoming = true
	a.Homed = false
	a.Error = ocular.ErrNone
	c.hw.Motion.Home(axis, direction)
}

func (c *Controller) homeXY(cmd HomeXY) Outcome {
	for _, axis := range []ocular.Axis{ocular.AxisX, ocular.AxisY} {
		a, code := c.motionAxis(axis)
		if code != ocular.ErrNone {
			return rejected(code)
		}
		if a.Homing || a.PreparingHoming {
			return rejected(ocular.ErrAxisBusy)
		}
	}
	c.startHoming(ocular.AxisX, cmd.DirectionX)
	c.startHoming(ocular.AxisY, cmd.DirectionY)
	return accepted()
}

func (c *Controller) zeroAxis(axis ocular.Axis) Outcome {
	a, code := c.motionAxis(axis)
	if code != ocular.ErrNone {
		return rejected(code)
	}
	if a.Busy() {
		return rejected(ocular.ErrAxisBusy)
	}
	c.hw.Motion.SetPosition(axis, 0)
	a.Position = 0
	a.Target = 0
	return ok()
}

// stop is always allowed on an addressable axis, enabled or not
func (c *Controller) stop(axis ocular.Axis) Outcome {
	if int(axis) >= ocular.NumAxes {
		return rejected(ocular.ErrInvalidAxis)
	}
	c.stopAxis(axis)
	return ok()
}

func (c *Controller) stopAxis(axis ocular.Axis) {
	a := &c.state.Axes[axis]
	c.hw.Motion.Stop(axis)
	a.Moving = false
	a.Homing = false
	a.PreparingHoming = false
	a.Position = c.hw.Motion.Position(axis)
	a.Target = a.Position
}

func (c *Controller) enableAxis(cmd EnableAxis) Outcome {
	if int(cmd.Axis) >= ocular.NumAxes {
		return rejected(ocular.ErrInvalidAxis)
	}
	if !cmd.Enable {
		c.stopAxis(cmd.Axis)
	}
	c.state.Axes[cmd.Axis].Enabled = cmd.Enable
	c.hw.Motion.Enable(cmd.Axis, cmd.Enable)
	return ok()
}

// configure applies fn to the configuration of an enabled axis
func (c *Controller) configure(axis ocular.Axis, fn func(*AxisConfig)) Outcome {
	a, code := c.axisRecord(axis)
	if code != ocular.ErrNone {
		return rejected(code)
	}
	fn(&a.Config)
	return ok()
}
