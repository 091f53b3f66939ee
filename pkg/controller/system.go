// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

func (c *Controller) version() Outcome {
	out := ok()
	out.Data[0] = c.opts.FirmwareMajor
	out.Data[1] = c.opts.FirmwareMinor
	return out
}

func (c *Controller) ackError() {
	if c.state.Mode == ocular.ModeError {
		c.state.Mode = ocular.ModeNormal
	}
	for i := range c.state.Axes {
		c.state.Axes[i].Error = ocular.ErrNone
	}
}

// reset stops every axis and returns illumination, triggers and mode to
// their boot values. It does not wait for anything in flight.
func (c *Controller) reset() {
	for i := range c.state.Axes {
		c.stopAxis(ocular.Axis(i))
		c.state.Axes[i].Homed = false
		c.state.Axes[i].Error = ocular.ErrNone
	}
	c.state.TriggerMode = 0
	c.resetIllumination()
	c.cancelStrobes()
	c.state.Mode = ocular.ModeNormal
	glog.Info("controller: reset")
}

// initialize is reset plus DAC re-init and the configured intensity factor
func (c *Controller) initialize() {
	c.reset()
	c.initDAC()
	c.state.Illumination.Factor = c.opts.IntensityFactor
	glog.Info("controller: initialized")
}

func (c *Controller) initializeReduced() {
	c.resetIllumination()
	c.initDAC()
	glog.Info("controller: initialized")
}

// resetReduced also clears the echoed command id
func (c *Controller) resetReduced() {
	c.state.LastCommandID = 0
	c.resetIllumination()
	glog.Info("controller: reset")
}
