// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import "fmt"

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	ANOMALY_INVALID_STATUS AnomalyType = iota
	ANOMALY_RESERVED_SET
	ANOMALY_UNKNOWN_BITS
	ANOMALY_POSITION_JUMP
	ANOMALY_UNKNOWN_COMMAND
	ANOMALY_INVALID_VALUE
)

// MAX_POSITION_STEP is the largest position change between two consecutive
// status messages that is not reported as a jump
const MAX_POSITION_STEP = 1 << 20

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

// ValidateResponse validates a status message against the previous one
// (prev may be nil) and returns any anomalies
func ValidateResponse(r *Response, prev *Response) []ValidationError {
	errors := []ValidationError{}

	if r.Status > CMD_EXECUTION_ERROR {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_INVALID_STATUS,
			Message: fmt.Sprintf("Invalid status=%d (max %d)", r.Status, CMD_EXECUTION_ERROR),
			Details: map[string]interface{}{"status": r.Status, "max": CMD_EXECUTION_ERROR},
		})
	}

	if r.Reserved != [4]uint8{} {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_RESERVED_SET,
			Message: fmt.Sprintf("Reserved bytes set: % X", r.Reserved[:]),
			Details: map[string]interface{}{"reserved": r.Reserved},
		})
	}

	knownBits := uint8(1<<BIT_POS_JOYSTICK_BUTTON | 1<<BIT_POS_SWITCH)
	if r.Buttons&^knownBits != 0 {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_UNKNOWN_BITS,
			Message: fmt.Sprintf("Unknown button bits set: 0x%02X", r.Buttons),
			Details: map[string]interface{}{"buttons": r.Buttons},
		})
	}

	if prev != nil {
		positions := []struct {
			name      string
			cur, last int32
		}{
			{"X", r.X, prev.X}, {"Y", r.Y, prev.Y}, {"Z", r.Z, prev.Z}, {"W", r.W, prev.W},
		}
		for _, p := range positions {
			step := int64(p.cur) - int64(p.last)
			if step > MAX_POSITION_STEP || step < -MAX_POSITION_STEP {
				errors = append(errors, ValidationError{
					Type:    ANOMALY_POSITION_JUMP,
					Message: fmt.Sprintf("%s position jumped by %d usteps", p.name, step),
					Details: map[string]interface{}{"axis": p.name, "from": p.last, "to": p.cur},
				})
			}
		}
	}

	return errors
}

// ValidateCommand checks a command for unknown codes and out-of-range parameters
func ValidateCommand(c *Command) []ValidationError {
	errors := []ValidationError{}

	if FormatCommandCode(c.code) == "UNKNOWN" {
		return append(errors, ValidationError{
			Type:    ANOMALY_UNKNOWN_COMMAND,
			Message: fmt.Sprintf("Unknown command code %d", c.code),
			Details: map[string]interface{}{"code": c.code},
		})
	}

	switch c.code {
	case HOME_OR_ZERO:
		if c.Param(0) > AXIS_W {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_INVALID_VALUE,
				Message: fmt.Sprintf("Invalid axis %d", c.Param(0)),
				Details: map[string]interface{}{"axis": c.Param(0)},
			})
		}
		if c.Param(1) > HOME_ZERO {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_INVALID_VALUE,
				Message: fmt.Sprintf("Invalid home mode %d", c.Param(1)),
				Details: map[string]interface{}{"mode": c.Param(1)},
			})
		}
	case SET_LIM:
		if c.Param(0) > LIM_CODE_Z_NEGATIVE {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_INVALID_VALUE,
				Message: fmt.Sprintf("Invalid limit code %d", c.Param(0)),
				Details: map[string]interface{}{"limit_code": c.Param(0)},
			})
		}
	case SET_ILLUMINATION_INTENSITY_FACTOR:
		if c.Param(0) > MAX_INTENSITY_FACTOR_PERCENT {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_INVALID_VALUE,
				Message: fmt.Sprintf("Intensity factor %d%% will be clamped to 100%%", c.Param(0)),
				Details: map[string]interface{}{"factor": c.Param(0), "max": MAX_INTENSITY_FACTOR_PERCENT},
			})
		}
	}

	return errors
}
