// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"bytes"
	"testing"
)

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name       string
		cmd        *Command
		wantType   uint8
		wantParams []byte
	}{
		{"MoveAxis", NewMoveAxisCommand(1, AxisZ, -2), CmdMoveAxis, []byte{2, 0xFE, 0xFF, 0xFF, 0xFF}},
		{"MoveRelative", NewMoveRelativeCommand(1, AxisX, 256), CmdMoveRelative, []byte{0, 0x00, 0x01, 0x00, 0x00}},
		{"HomeAxis", NewHomeAxisCommand(1, AxisY, HomingBackward), CmdHomeAxis, []byte{1, 1}},
		{"StopAxis", NewStopAxisCommand(1, AxisW), CmdStopAxis, []byte{5}},
		{"StopAll", NewStopAllCommand(1), CmdStopAll, nil},
		{"EnableAxis", NewEnableAxisCommand(1, AxisTurret, true), CmdEnableAxis, []byte{4, 1}},
		{"InitFilterWheel", NewInitFilterWheelCommand(1, AxisFilter1), CmdInitFilterWheel, []byte{3}},
		{"GetAxisParams", NewGetAxisParamsCommand(1, AxisX), CmdGetAxisParams, []byte{0}},
		{"SetCameraParams", NewSetCameraParamsCommand(1, 2, 1000), CmdSetCameraParams, []byte{2, 0xE8, 0x03, 0, 0}},
		{"SetPIDParams", NewSetPIDParamsCommand(1, AxisZ, 0x0102, 3, 4), CmdSetPIDParams, []byte{2, 0x02, 0x01, 3, 4}},
		{"EnablePID", NewEnablePIDCommand(1, AxisX, true), CmdEnablePID, []byte{0}},
		{"DisablePID", NewEnablePIDCommand(1, AxisX, false), CmdDisablePID, []byte{0}},
		{"SetDAC", NewSetDACCommand(1, 7, 0xABCD), CmdSetDAC, []byte{7, 0xCD, 0xAB}},
		{"SetTTL", NewSetTTLCommand(1, 3, true), CmdSetTTL, []byte{3, 1}},
		{"ConfigGPIO", NewConfigGPIOCommand(1, 9, 2), CmdConfigGPIO, []byte{9, 2}},
		{"WriteGPIO", NewWriteGPIOCommand(1, 9, false), CmdWriteGPIO, []byte{9, 0}},
		{"ReadGPIO", NewReadGPIOCommand(1, 9), CmdReadGPIO, []byte{9}},
		{"SetDACGain", NewSetDACGainCommand(1, 0x00, 0x80), CmdSetDACGain, []byte{0x00, 0x80}},
		{"SetIllumination", NewSetIlluminationCommand(1, Source405nm, 30000, SwitchOn), CmdSetIllumination, []byte{11, 0x30, 0x75, 1}},
		{"SetLEDMatrix", NewSetLEDMatrixCommand(1, 0, 10, 20, 30), CmdSetLEDMatrix, []byte{0, 10, 20, 30}},
		{"PulseIllumination", NewPulseIlluminationCommand(1, 0, 500), CmdPulseIllumination, []byte{0, 0xF4, 0x01, 0, 0}},
		{"TriggerCamera", NewTriggerCameraCommand(1, 1, true, 2000), CmdTriggerCamera, []byte{1, 1, 0xD0, 0x07, 0, 0}},
		{"GetState", NewGetStateCommand(1), CmdGetState, nil},
		{"AckError", NewAckErrorCommand(1), CmdAckError, nil},
		{"GetVersion", NewGetVersionCommand(1), CmdGetVersion, nil},
		{"Initialize", NewInitializeCommand(1), CmdInitialize, nil},
		{"Reset", NewResetCommand(1), CmdReset, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd.Type != tt.wantType {
				t.Errorf("Type = 0x%02X, want 0x%02X", tt.cmd.Type, tt.wantType)
			}
			if !bytes.Equal(tt.cmd.Params, tt.wantParams) {
				t.Errorf("Params = % X, want % X", tt.cmd.Params, tt.wantParams)
			}
			if size, ok := MinParamSize(tt.wantType); !ok || size != len(tt.wantParams) {
				t.Errorf("MinParamSize = %d (%v), builder produced %d bytes", size, ok, len(tt.wantParams))
			}
		})
	}
}

func TestSetAxisParamsCommand(t *testing.T) {
	cmd := NewSetAxisParamsCommand(4, AxisX, AxisParams{
		MaxVelocity:  1000,
		Acceleration: 200,
		MinPosition:  -50,
		MaxPosition:  50,
		RequireHomed: true,
	})
	if len(cmd.Params) != 18 {
		t.Fatalf("len(Params) = %d, want 18", len(cmd.Params))
	}
	if cmd.Params[17] != 1 {
		t.Errorf("flags = 0x%02X, want 0x01", cmd.Params[17])
	}
	if !bytes.Equal(cmd.Params[9:13], []byte{0xCE, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("min bytes = % X", cmd.Params[9:13])
	}
}

func TestCommand_EncodeDecode(t *testing.T) {
	cmd := NewMoveAxisCommand(200, AxisY, 12345)
	frame, err := cmd.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	packets, errs := decodeAll(frame)
	if len(errs) != 0 || len(packets) != 1 {
		t.Fatalf("got %d packets, %d errors", len(packets), len(errs))
	}
	parsed, err := ParseCommand(packets[0].Payload())
	if err != nil {
		t.Fatalf("ParseCommand error: %v", err)
	}
	if parsed.ID != 200 || parsed.Type != CmdMoveAxis || !bytes.Equal(parsed.Params, cmd.Params) {
		t.Errorf("parsed = %+v, want %+v", parsed, cmd)
	}
}

func TestCommand_WithID(t *testing.T) {
	cmd := NewGetStateCommand(1)
	other := cmd.WithID(9)
	if cmd.ID != 1 || other.ID != 9 || other.Type != CmdGetState {
		t.Errorf("WithID changed the original or lost the type: %+v %+v", cmd, other)
	}
}

func TestParseCommand_TooShort(t *testing.T) {
	if _, err := ParseCommand([]byte{1}); err == nil {
		t.Error("expected error for 1-byte payload")
	}
}
