// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

// DefaultLegacyInterval is the legacy status message cadence
const DefaultLegacyInterval = 10 * time.Millisecond

// invalidAxis is what unknown legacy axis codes decode to; dispatch
// rejects it as INVALID_AXIS
const invalidAxis ocular.Axis = 0xFF

// LegacyCodec speaks the fixed-length legacy protocol: 8-byte commands in,
// a 24-byte status message every Cadence
type LegacyCodec struct {
	decoder  *legacy_protocol.Decoder
	interval time.Duration
}

// NewLegacyCodec creates a legacy codec; interval 0 selects DefaultLegacyInterval
func NewLegacyCodec(interval time.Duration) *LegacyCodec {
	if interval <= 0 {
		interval = DefaultLegacyInterval
	}
	return &LegacyCodec{decoder: legacy_protocol.NewDecoder(), interval: interval}
}

func (c *LegacyCodec) Name() string { return ProtocolLegacy }

func (c *LegacyCodec) Cadence() time.Duration { return c.interval }

func (c *LegacyCodec) Reset() { c.decoder.Reset() }

func (c *LegacyCodec) Checksum(data []byte) uint16 {
	return uint16(legacy_protocol.CalculateCRC8(data))
}

// Decode returns the commands in chunk. After a checksum failure the rest
// of the chunk is discarded, since without framing the following bytes
// cannot be trusted to start a command.
func (c *LegacyCodec) Decode(chunk []byte) []Request {
	var requests []Request
	for i, b := range chunk {
		cmd, err := c.decoder.DecodeByte(b)
		if err != nil {
			var csErr *legacy_protocol.ChecksumError
			if errors.As(err, &csErr) {
				glog.V(1).Infof("legacy: %v, flushing %d bytes", err, len(chunk)-i-1)
				c.decoder.Reset()
				return append(requests, Request{ID: csErr.ID, ChecksumFailed: true})
			}
			continue
		}
		if cmd != nil {
			requests = append(requests, Request{ID: cmd.ID(), Command: decodeLegacyCommand(cmd)})
		}
	}
	return requests
}

func (c *LegacyCodec) Encode(reply Reply) ([]byte, error) {
	return BuildLegacyResponse(reply).Bytes(), nil
}

// legacyAxis maps a legacy axis code to an axis identifier
func legacyAxis(code uint8) ocular.Axis {
	switch code {
	case legacy_protocol.AXIS_X:
		return ocular.AxisX
	case legacy_protocol.AXIS_Y:
		return ocular.AxisY
	case legacy_protocol.AXIS_Z:
		return ocular.AxisZ
	case legacy_protocol.AXIS_THETA:
		return ocular.AxisTurret
	case legacy_protocol.AXIS_W:
		return ocular.AxisW
	}
	return invalidAxis
}

func decodeLegacyHome(c *legacy_protocol.Command) Command {
	axisCode, mode := c.Param(0), c.Param(1)
	if axisCode == legacy_protocol.AXIS_XY {
		return HomeXY{
			DirectionX: ocular.HomingDirection(c.Param(1)),
			DirectionY: ocular.HomingDirection(c.Param(2)),
		}
	}

	axis := legacyAxis(axisCode)
	switch mode {
	case legacy_protocol.HOME_ZERO:
		return ZeroAxis{Axis: axis}
	case legacy_protocol.HOME_NEGATIVE:
		return HomeAxis{Axis: axis, Direction: ocular.HomingBackward}
	default:
		return HomeAxis{Axis: axis, Direction: ocular.HomingForward}
	}
}

func decodeLegacyLimit(c *legacy_protocol.Command) Command {
	code := c.Param(0)
	limit := SetAxisLimit{Axis: invalidAxis, Position: c.ParamInt32(1)}
	switch code {
	case legacy_protocol.LIM_CODE_X_POSITIVE, legacy_protocol.LIM_CODE_X_NEGATIVE:
		limit.Axis = ocular.AxisX
	case legacy_protocol.LIM_CODE_Y_POSITIVE, legacy_protocol.LIM_CODE_Y_NEGATIVE:
		limit.Axis = ocular.AxisY
	case legacy_protocol.LIM_CODE_Z_POSITIVE, legacy_protocol.LIM_CODE_Z_NEGATIVE:
		limit.Axis = ocular.AxisZ
	}
	limit.Positive = code%2 == 0
	return limit
}

// decodeLegacyCommand maps a legacy command onto a command variant.
// Parameters are big-endian; every layout fits the fixed 5 parameter bytes.
func decodeLegacyCommand(c *legacy_protocol.Command) Command {
	switch c.Code() {
	case legacy_protocol.MOVE_X:
		return MoveRelative{Axis: ocular.AxisX, Delta: c.ParamInt32(0)}
	case legacy_protocol.MOVE_Y:
		return MoveRelative{Axis: ocular.AxisY, Delta: c.ParamInt32(0)}
	case legacy_protocol.MOVE_Z:
		return MoveRelative{Axis: ocular.AxisZ, Delta: c.ParamInt32(0)}
	case legacy_protocol.MOVE_THETA:
		return MoveRelative{Axis: ocular.AxisTurret, Delta: c.ParamInt32(0)}
	case legacy_protocol.MOVE_W:
		return MoveRelative{Axis: ocular.AxisW, Delta: c.ParamInt32(0)}
	case legacy_protocol.MOVETO_X:
		return MoveAxis{Axis: ocular.AxisX, Target: c.ParamInt32(0)}
	case legacy_protocol.MOVETO_Y:
		return MoveAxis{Axis: ocular.AxisY, Target: c.ParamInt32(0)}
	case legacy_protocol.MOVETO_Z:
		return MoveAxis{Axis: ocular.AxisZ, Target: c.ParamInt32(0)}
	case legacy_protocol.MOVETO_W:
		return MoveAxis{Axis: ocular.AxisW, Target: c.ParamInt32(0)}
	case legacy_protocol.HOME_OR_ZERO:
		return decodeLegacyHome(c)
	case legacy_protocol.SET_LIM:
		return decodeLegacyLimit(c)

	case legacy_protocol.TURN_ON_ILLUMINATION:
		return SwitchIllumination{On: true}
	case legacy_protocol.TURN_OFF_ILLUMINATION:
		return SwitchIllumination{On: false}
	case legacy_protocol.SET_ILLUMINATION:
		return SetIllumination{Source: c.Param(0), Intensity: c.ParamUint16(1), Switch: ocular.SwitchKeep}
	case legacy_protocol.SET_ILLUMINATION_LED_MATRIX:
		return SetLEDMatrix{Pattern: c.Param(0), R: c.Param(1), G: c.Param(2), B: c.Param(3)}
	case legacy_protocol.ACK_JOYSTICK_BUTTON_PRESSED:
		return AckJoystickButton{}
	case legacy_protocol.ANALOG_WRITE_ONBOARD_DAC:
		return SetDAC{Channel: c.Param(0), Value: c.ParamUint16(1)}
	case legacy_protocol.SET_DAC80508_REFDIV_GAIN:
		return SetDACGain{Div: c.Param(0), Gains: c.Param(1)}
	case legacy_protocol.SET_ILLUMINATION_INTENSITY_FACTOR:
		return SetIntensityFactor{Percent: c.Param(0)}

	case legacy_protocol.SET_LIM_SWITCH_POLARITY:
		return SetLimitSwitchPolarity{Axis: legacyAxis(c.Param(0)), Polarity: c.Param(1)}
	case legacy_protocol.CONFIGURE_STEPPER_DRIVER:
		return ConfigureDriver{
			Axis:          legacyAxis(c.Param(0)),
			Microstepping: c.Param(1),
			CurrentRMS:    c.ParamUint16(2),
			HoldCurrent:   c.Param(4),
		}
	case legacy_protocol.SET_MAX_VELOCITY_ACCELERATION:
		return SetVelocityAcceleration{
			Axis:         legacyAxis(c.Param(0)),
			MaxVelocity:  uint32(c.ParamUint16(1)),
			Acceleration: uint32(c.ParamUint16(3)),
		}
	case legacy_protocol.SET_LEAD_SCREW_PITCH:
		return SetLeadScrewPitch{Axis: legacyAxis(c.Param(0)), Pitch: c.ParamUint16(1)}
	case legacy_protocol.SET_OFFSET_VELOCITY:
		return SetOffsetVelocity{Axis: legacyAxis(c.Param(0)), Velocity: c.ParamInt32(1)}
	case legacy_protocol.CONFIGURE_STAGE_PID:
		return ConfigurePID{Axis: legacyAxis(c.Param(0)), Flip: c.Param(1) != 0, Transitions: c.ParamUint16(2)}
	case legacy_protocol.ENABLE_STAGE_PID:
		return EnablePID{Axis: legacyAxis(c.Param(0)), Enable: true}
	case legacy_protocol.DISABLE_STAGE_PID:
		return EnablePID{Axis: legacyAxis(c.Param(0)), Enable: false}
	case legacy_protocol.SET_HOME_SAFETY_MERGIN:
		return SetHomeSafetyMargin{Axis: legacyAxis(c.Param(0)), Margin: c.ParamUint16(1)}
	case legacy_protocol.SET_PID_ARGUMENTS:
		return SetPIDParams{Axis: legacyAxis(c.Param(0)), P: c.ParamUint16(1), I: c.Param(3), D: c.Param(4)}

	case legacy_protocol.SEND_HARDWARE_TRIGGER:
		b := c.Param(0)
		return TriggerCamera{
			Channel:             b & legacy_protocol.TRIGGER_CHANNEL_MASK,
			ControlIllumination: b&legacy_protocol.TRIGGER_CONTROL_ILLUMINATION != 0,
			OnTimeUs:            c.ParamUint32(1),
		}
	case legacy_protocol.SET_STROBE_DELAY:
		return SetCameraParams{Channel: c.Param(0), StrobeDelayUs: c.ParamUint32(1)}
	case legacy_protocol.SET_AXIS_DISABLE_ENABLE:
		return EnableAxis{Axis: legacyAxis(c.Param(0)), Enable: c.Param(1) != 0}
	case legacy_protocol.SET_TRIGGER_MODE:
		return SetTriggerMode{Mode: c.Param(0)}
	case legacy_protocol.SET_PIN_LEVEL:
		return WriteGPIO{Pin: c.Param(0), Level: c.Param(1) != 0}

	case legacy_protocol.INITFILTERWHEEL:
		return InitFilterWheel{Axis: ocular.AxisW}
	case legacy_protocol.INITIALIZE:
		return Initialize{}
	case legacy_protocol.RESET:
		return Reset{}
	}
	return Unsupported{Code: c.Code()}
}
