// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

// laserChannel maps a laser source to its DAC channel and TTL line
func laserChannel(source uint8) (int, bool) {
	switch source {
	case ocular.Source405nm:
		return 0, true
	case ocular.Source488nm:
		return 1, true
	case ocular.Source561nm:
		return 2, true
	case ocular.Source638nm:
		return 3, true
	case ocular.Source730nm:
		return 4, true
	}
	return 0, false
}

// scaleIntensity applies the factor in hundredths of a percent so whole
// percentages scale exactly
func scaleIntensity(intensity uint16, factor float64) uint16 {
	if factor <= 0 {
		return 0
	}
	bp := uint64(math.Round(factor * 10000))
	v := uint64(intensity) * bp / 10000
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

func (c *Controller) interlockEngaged() bool {
	return c.variant == VariantFull && c.hw.Interlock.InterlockEngaged()
}

func (c *Controller) setIlluminationCommand(cmd SetIllumination) Outcome {
	code := c.setIllumination(cmd.Source, cmd.Intensity)
	switch cmd.Switch {
	case ocular.SwitchOn:
		if code == ocular.ErrNone {
			code = c.turnOnIllumination()
		}
	case ocular.SwitchOff:
		c.turnOffIllumination()
		code = ocular.ErrNone
	}
	return outcomeFor(code)
}

// setIllumination selects the source and writes the scaled intensity. A lit
// output is switched over to the new source.
func (c *Controller) setIllumination(source uint8, intensity uint16) ocular.ErrorCode {
	il := &c.state.Illumination
	wasOn := il.On
	if wasOn {
		c.turnOffIllumination()
	}

	il.Source = source
	il.Intensity = scaleIntensity(intensity, il.Factor)
	if ch, ok := laserChannel(source); ok {
		c.writeDAC(uint8(ch), il.Intensity)
	}

	if wasOn {
		return c.turnOnIllumination()
	}
	return ocular.ErrNone
}

func (c *Controller) switchIllumination(on bool) Outcome {
	if on {
		return outcomeFor(c.turnOnIllumination())
	}
	c.turnOffIllumination()
	return ok()
}

func (c *Controller) turnOnIllumination() ocular.ErrorCode {
	il := &c.state.Illumination
	if ch, ok := laserChannel(il.Source); ok {
		if c.interlockEngaged() {
			glog.Warningf("controller: interlock engaged, %s stays off", ocular.FormatSource(il.Source))
			return ocular.ErrInterlock
		}
		il.LaserOn[ch] = true
		c.hw.Illuminator.SetLaser(ch, true)
	} else if il.Source <= ocular.MaxLEDSource && c.variant == VariantFull {
		c.hw.Illuminator.SetLEDMatrix(il.Source, il.R, il.G, il.B)
		il.LEDOn = true
		il.LEDPattern = il.Source
	}
	il.On = true
	return ocular.ErrNone
}

func (c *Controller) turnOffIllumination() {
	il := &c.state.Illumination
	if ch, ok := laserChannel(il.Source); ok {
		il.LaserOn[ch] = false
		c.hw.Illuminator.SetLaser(ch, false)
	} else if il.LEDOn {
		c.hw.Illuminator.ClearLEDMatrix()
		il.LEDOn = false
	}
	il.On = false
}

func (c *Controller) turnOffAllLasers() {
	for ch := range c.state.Illumination.LaserOn {
		c.state.Illumination.LaserOn[ch] = false
		c.hw.Illuminator.SetLaser(ch, false)
	}
}

// resetIllumination returns to source 0, intensity 0, everything dark.
// The intensity factor is kept.
func (c *Controller) resetIllumination() {
	c.turnOffAllLasers()
	if c.variant == VariantFull {
		c.hw.Illuminator.ClearLEDMatrix()
	}

	il := &c.state.Illumination
	il.Source = 0
	il.Intensity = 0
	il.On = false
	il.LEDPattern = 0
	il.LEDOn = false
	il.R, il.G, il.B = 0, 0, 0
}

func (c *Controller) setLEDMatrix(cmd SetLEDMatrix) Outcome {
	if cmd.Pattern > ocular.MaxLEDSource {
		return rejected(ocular.ErrInvalidCmd)
	}

	il := &c.state.Illumination
	wasOn := il.On
	if wasOn {
		c.turnOffIllumination()
	}
	il.Source = cmd.Pattern
	il.LEDPattern = cmd.Pattern
	il.R, il.G, il.B = cmd.R, cmd.G, cmd.B
	if wasOn {
		return outcomeFor(c.turnOnIllumination())
	}
	return ok()
}

func (c *Controller) setIntensityFactor(percent uint8) {
	if percent > 100 {
		percent = 100
	}
	c.state.Illumination.Factor = float64(percent) / 100
}

func (c *Controller) setDAC(cmd SetDAC) Outcome {
	if cmd.Channel >= ocular.NumDACChannels {
		return rejected(ocular.ErrInvalidCmd)
	}
	c.writeDAC(cmd.Channel, cmd.Value)
	return ok()
}

func (c *Controller) writeDAC(channel uint8, value uint16) {
	c.state.DAC[channel] = value
	c.hw.DAC.WriteDAC(channel, value)
}

func (c *Controller) setDACGain(cmd SetDACGain) {
	v := uint16(cmd.Div)<<8 | uint16(cmd.Gains)
	c.state.DACGain = v
	c.hw.DAC.SetDACGain(v)
}

func (c *Controller) initDAC() {
	c.hw.DAC.InitDAC()
	c.state.DAC = [ocular.NumDACChannels]uint16{}
	c.state.DACGain = ocular.DefaultDACGain
}

func (c *Controller) setTTL(cmd SetTTL) Outcome {
	if cmd.Channel >= ocular.NumLaserChannels {
		return rejected(ocular.ErrInvalidCmd)
	}
	if cmd.Level && c.interlockEngaged() {
		return rejected(ocular.ErrInterlock)
	}
	c.state.Illumination.LaserOn[cmd.Channel] = cmd.Level
	c.hw.Illuminator.SetLaser(int(cmd.Channel), cmd.Level)
	return ok()
}

// Strobe

func microseconds(us uint32) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// scheduleIlluminationWindow lights the current source after the channel's
// strobe delay for onTimeUs
func (c *Controller) scheduleIlluminationWindow(now time.Time, channel uint8, onTimeUs uint32) {
	start := now.Add(microseconds(c.state.StrobeDelayUs[channel]))
	c.strobe.schedule(start, strobeEvent{kind: strobeIlluminationOn, channel: channel, generation: c.strobeGen})
	c.strobe.schedule(start.Add(microseconds(onTimeUs)), strobeEvent{kind: strobeIlluminationOff, channel: channel, generation: c.strobeGen})
}

func (c *Controller) pulseIllumination(cmd PulseIllumination) Outcome {
	if cmd.Channel >= ocular.NumCameraChannels {
		return rejected(ocular.ErrInvalidCmd)
	}
	c.scheduleIlluminationWindow(c.opts.Now(), cmd.Channel, cmd.OnTimeUs)
	return ok()
}

func (c *Controller) triggerCamera(cmd TriggerCamera) Outcome {
	if cmd.Channel >= ocular.NumCameraChannels {
		return rejected(ocular.ErrInvalidCmd)
	}

	now := c.opts.Now()
	c.hw.IO.SetCameraTrigger(cmd.Channel, true)
	c.state.CameraTrigger[cmd.Channel] = true
	c.strobe.schedule(now.Add(c.opts.TriggerPulseWidth),
		strobeEvent{kind: strobeTriggerRelease, channel: cmd.Channel, generation: c.strobeGen})

	if cmd.ControlIllumination {
		c.scheduleIlluminationWindow(now, cmd.Channel, cmd.OnTimeUs)
	}
	return ok()
}

func (c *Controller) applyStrobe(ev strobeEvent) {
	if ev.generation != c.strobeGen {
		glog.V(2).Infof("controller: dropping stale strobe %s", ev.kind)
		return
	}

	switch ev.kind {
	case strobeIlluminationOn:
		if code := c.turnOnIllumination(); code != ocular.ErrNone {
			glog.Warningf("controller: strobe on channel %d: %s", ev.channel, ocular.FormatError(code))
		}
	case strobeIlluminationOff:
		c.turnOffIllumination()
	case strobeTriggerRelease:
		c.hw.IO.SetCameraTrigger(ev.channel, false)
		c.state.CameraTrigger[ev.channel] = false
	}
}

// cancelStrobes drops scheduled events and releases every camera trigger
func (c *Controller) cancelStrobes() {
	c.strobeGen++
	c.strobe.cancel()
	for ch, high := range c.state.CameraTrigger {
		if high {
			c.hw.IO.SetCameraTrigger(uint8(ch), false)
			c.state.CameraTrigger[ch] = false
		}
	}
}
