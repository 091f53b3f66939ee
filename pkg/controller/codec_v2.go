// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

// V2Codec speaks the framed v2 protocol: one response per command, CRC
// failures dropped silently
type V2Codec struct {
	decoder *ocular.Decoder
}

// NewV2Codec creates a v2 codec
func NewV2Codec() *V2Codec {
	return &V2Codec{decoder: ocular.NewDecoder()}
}

func (c *V2Codec) Name() string { return ProtocolV2 }

func (c *V2Codec) Cadence() time.Duration { return 0 }

func (c *V2Codec) Reset() { c.decoder.Reset() }

func (c *V2Codec) Checksum(data []byte) uint16 {
	return ocular.CalculateCRC(data)
}

func (c *V2Codec) Decode(chunk []byte) []Request {
	var requests []Request
	for _, b := range chunk {
		packet, err := c.decoder.DecodeByte(b)
		if err != nil {
			var crcErr *ocular.CRCError
			if errors.As(err, &crcErr) {
				glog.V(1).Infof("v2: dropped frame: %v", err)
			} else {
				glog.V(2).Infof("v2: resync: %v", err)
			}
			continue
		}
		if packet != nil {
			requests = append(requests, decodeV2Payload(packet.Payload()))
		}
	}
	return requests
}

func (c *V2Codec) Encode(reply Reply) ([]byte, error) {
	return BuildResponse(reply.ID, reply.Outcome, reply.State).Encode()
}

// decodeV2Payload turns a verified frame payload into a request. A payload
// without a command code is answered with id 0.
func decodeV2Payload(payload []byte) Request {
	cmd, err := ocular.ParseCommand(payload)
	if err != nil {
		return Request{ID: 0, Command: Malformed{Err: fmt.Errorf("%w: %v", ErrParamsTooShort, err)}}
	}

	if need, known := ocular.MinParamSize(cmd.Type); known && len(cmd.Params) < need {
		return Request{ID: cmd.ID, Command: Malformed{
			Code:     cmd.Type,
			Err:      fmt.Errorf("%s: %w (%d bytes, need %d)", ocular.FormatCommandType(cmd.Type), ErrParamsTooShort, len(cmd.Params), need),
			Intended: buildV2Command(cmd.Type, make([]byte, need)),
		}}
	}
	return Request{ID: cmd.ID, Command: buildV2Command(cmd.Type, cmd.Params)}
}

// buildV2Command decodes parameters already checked against MinParamSize
func buildV2Command(code uint8, p []byte) Command {
	le16 := func(off int) uint16 { return binary.LittleEndian.Uint16(p[off:]) }
	le32 := func(off int) uint32 { return binary.LittleEndian.Uint32(p[off:]) }

	switch code {
	case ocular.CmdMoveAxis:
		return MoveAxis{Axis: ocular.Axis(p[0]), Target: int32(le32(1))}
	case ocular.CmdMoveRelative:
		return MoveRelative{Axis: ocular.Axis(p[0]), Delta: int32(le32(1))}
	case ocular.CmdHomeAxis:
		return HomeAxis{Axis: ocular.Axis(p[0]), Direction: ocular.HomingDirection(p[1])}
	case ocular.CmdStopAxis:
		return StopAxis{Axis: ocular.Axis(p[0])}
	case ocular.CmdStopAll:
		return StopAll{}
	case ocular.CmdEnableAxis:
		return EnableAxis{Axis: ocular.Axis(p[0]), Enable: p[1] != 0}
	case ocular.CmdInitFilterWheel:
		return InitFilterWheel{Axis: ocular.Axis(p[0])}

	case ocular.CmdSetAxisParams:
		return SetAxisParams{
			Axis:         ocular.Axis(p[0]),
			MaxVelocity:  le32(1),
			Acceleration: le32(5),
			MinPosition:  int32(le32(9)),
			MaxPosition:  int32(le32(13)),
			RequireHomed: p[17]&0x01 != 0,
		}
	case ocular.CmdGetAxisParams:
		return GetAxisParams{Axis: ocular.Axis(p[0])}
	case ocular.CmdSetCameraParams:
		return SetCameraParams{Channel: p[0], StrobeDelayUs: le32(1)}
	case ocular.CmdSetPIDParams:
		return SetPIDParams{Axis: ocular.Axis(p[0]), P: le16(1), I: p[3], D: p[4]}
	case ocular.CmdEnablePID:
		return EnablePID{Axis: ocular.Axis(p[0]), Enable: true}
	case ocular.CmdDisablePID:
		return EnablePID{Axis: ocular.Axis(p[0]), Enable: false}

	case ocular.CmdSetDAC:
		return SetDAC{Channel: p[0], Value: le16(1)}
	case ocular.CmdSetTTL:
		return SetTTL{Channel: p[0], Level: p[1] != 0}
	case ocular.CmdConfigGPIO:
		return ConfigureGPIO{Pin: p[0], Mode: p[1]}
	case ocular.CmdWriteGPIO:
		return WriteGPIO{Pin: p[0], Level: p[1] != 0}
	case ocular.CmdReadGPIO:
		return ReadGPIO{Pin: p[0]}
	case ocular.CmdSetDACGain:
		return SetDACGain{Div: p[0], Gains: p[1]}

	case ocular.CmdSetIllumination:
		return SetIllumination{Source: p[0], Intensity: le16(1), Switch: ocular.IlluminationSwitch(p[3])}
	case ocular.CmdSetLEDMatrix:
		return SetLEDMatrix{Pattern: p[0], R: p[1], G: p[2], B: p[3]}
	case ocular.CmdPulseIllumination:
		return PulseIllumination{Channel: p[0], OnTimeUs: le32(1)}

	case ocular.CmdTriggerCamera:
		return TriggerCamera{Channel: p[0], ControlIllumination: p[1] != 0, OnTimeUs: le32(2)}

	case ocular.CmdHSAUploadHeader, ocular.CmdHSAUploadActions, ocular.CmdHSAUploadTriggerProfile,
		ocular.CmdHSAUploadIntensity, ocular.CmdHSAStart, ocular.CmdHSACancel:
		return SequenceUpload{Code: code}

	case ocular.CmdGetState:
		return GetState{}
	case ocular.CmdAckError:
		return AckError{}
	case ocular.CmdGetVersion:
		return GetVersion{}
	case ocular.CmdInitialize:
		return Initialize{}
	case ocular.CmdReset:
		return Reset{}
	}
	return Unsupported{Code: code}
}
