// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"encoding/binary"
	"fmt"
)

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyInvalidStatus
	AnomalyInvalidError
	AnomalyInvalidMode
	AnomalyInvalidAxisState
	AnomalyInconsistentStatus
	AnomalyInvalidValue
	AnomalyUnknownCommand
	AnomalyCRCError
	AnomalyDecodeError
)

// ValidationError represents a packet validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket validates packet structure and detects anomalies
// Returns a slice of validation errors (empty if packet is valid)
func ValidatePacket(p *Packet) []ValidationError {
	if p.IsResponse() {
		return validateResponse(p)
	}
	return validateCommand(p)
}

// validateResponse validates a 78-byte status response
func validateResponse(p *Packet) []ValidationError {
	errors := []ValidationError{}

	resp, err := ParseResponse(p.payload)
	if err != nil {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: err.Error(),
			Details: map[string]interface{}{"length": len(p.payload), "expected": ResponseSize},
		}}
	}

	if resp.Status > StatusError {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidStatus,
			Message: fmt.Sprintf("Invalid status=%d (max %d)", resp.Status, StatusError),
			Details: map[string]interface{}{"status": resp.Status, "max": StatusError},
		})
	}

	if resp.Error > ErrInterlock {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidError,
			Message: fmt.Sprintf("Invalid error code=%d (max %d)", resp.Error, ErrInterlock),
			Details: map[string]interface{}{"error": resp.Error, "max": ErrInterlock},
		})
	}

	if resp.Mode > ModeError {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidMode,
			Message: fmt.Sprintf("Invalid system mode=%d (max %d)", resp.Mode, ModeError),
			Details: map[string]interface{}{"mode": resp.Mode, "max": ModeError},
		})
	}

	// OK and ACCEPTED never carry an error code
	if (resp.Status == StatusOK || resp.Status == StatusAccepted) && resp.Error != ErrNone {
		errors = append(errors, ValidationError{
			Type:    AnomalyInconsistentStatus,
			Message: fmt.Sprintf("Status %s with error %s", FormatStatus(resp.Status), FormatError(resp.Error)),
			Details: map[string]interface{}{"status": resp.Status, "error": resp.Error},
		})
	}

	if resp.Status == StatusRejected && resp.Error == ErrNone {
		errors = append(errors, ValidationError{
			Type:    AnomalyInconsistentStatus,
			Message: "REJECTED without an error code",
			Details: map[string]interface{}{"status": resp.Status},
		})
	}

	for i, axis := range resp.Axes {
		if axis.State > AxisError {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidAxisState,
				Message: fmt.Sprintf("Axis %s: invalid state=%d", FormatAxis(ResponseAxisSlots[i]), axis.State),
				Details: map[string]interface{}{"slot": i, "state": axis.State},
			})
		}
		homedByte := p.payload[responseAxisOff+i*axisStatusSize+10]
		if homedByte > 1 {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Axis %s: homed flag=%d (expected 0 or 1)", FormatAxis(ResponseAxisSlots[i]), homedByte),
				Details: map[string]interface{}{"slot": i, "homed": homedByte},
			})
		}
	}

	return errors
}

// commandParamSizes are the minimum parameter lengths per command type
var commandParamSizes = map[uint8]int{
	CmdMoveAxis:          5,
	CmdMoveRelative:      5,
	CmdHomeAxis:          2,
	CmdStopAxis:          1,
	CmdStopAll:           0,
	CmdEnableAxis:        2,
	CmdInitFilterWheel:   1,
	CmdSetAxisParams:     18,
	CmdGetAxisParams:     1,
	CmdSetCameraParams:   5,
	CmdSetPIDParams:      5,
	CmdEnablePID:         1,
	CmdDisablePID:        1,
	CmdSetDAC:            3,
	CmdSetTTL:            2,
	CmdConfigGPIO:        2,
	CmdWriteGPIO:         2,
	CmdReadGPIO:          1,
	CmdSetDACGain:        2,
	CmdSetIllumination:   4,
	CmdSetLEDMatrix:      4,
	CmdPulseIllumination: 5,
	CmdTriggerCamera:     6,
	CmdGetState:          0,
	CmdAckError:          0,
	CmdGetVersion:        0,
	CmdInitialize:        0,
	CmdReset:             0,
}

// MinParamSize returns the minimum parameter length for a command type
// and whether the type is known
func MinParamSize(cmdType uint8) (int, bool) {
	size, ok := commandParamSizes[cmdType]
	return size, ok
}

// validateCommand validates a host command payload
func validateCommand(p *Packet) []ValidationError {
	if len(p.payload) < 2 {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("Command payload too short (%d bytes, minimum 2)", len(p.payload)),
			Details: map[string]interface{}{"length": len(p.payload), "minimum": 2},
		}}
	}

	cmdType := p.CommandType()
	size, known := MinParamSize(cmdType)
	if !known {
		if cmdType >= CmdHSAUploadHeader && cmdType <= CmdHSACancel {
			return nil
		}
		return []ValidationError{{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("Unknown command type 0x%02X", cmdType),
			Details: map[string]interface{}{"type": cmdType},
		}}
	}

	errors := []ValidationError{}
	params := p.Params()
	if len(params) < size {
		return append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s params too short (%d bytes, expected %d)", FormatCommandType(cmdType), len(params), size),
			Details: map[string]interface{}{"type": cmdType, "length": len(params), "expected": size},
		})
	}

	switch cmdType {
	case CmdSetDAC:
		if params[0] >= NumDACChannels {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("DAC channel %d out of range (max %d)", params[0], NumDACChannels-1),
				Details: map[string]interface{}{"channel": params[0], "max": NumDACChannels - 1},
			})
		}
	case CmdSetAxisParams:
		minPos := int32(binary.LittleEndian.Uint32(params[9:13]))
		maxPos := int32(binary.LittleEndian.Uint32(params[13:17]))
		if minPos > maxPos {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Soft limits inverted (min=%d > max=%d)", minPos, maxPos),
				Details: map[string]interface{}{"min": minPos, "max": maxPos},
			})
		}
	case CmdTriggerCamera, CmdSetCameraParams, CmdPulseIllumination:
		if params[0] >= NumCameraChannels {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Camera channel %d out of range (max %d)", params[0], NumCameraChannels-1),
				Details: map[string]interface{}{"channel": params[0], "max": NumCameraChannels - 1},
			})
		}
	}

	return errors
}
