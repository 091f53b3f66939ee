// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// decodeAll feeds data through a fresh decoder and collects packets and errors
func decodeAll(data []byte) ([]*Packet, []error) {
	d := NewDecoder()
	var packets []*Packet
	var errs []error
	for _, b := range data {
		p, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
		}
		if p != nil {
			packets = append(packets, p)
		}
	}
	return packets, errs
}

// sampleResponse returns a response with every field populated
func sampleResponse() *ResponsePacket {
	r := &ResponsePacket{
		CommandID:   42,
		Status:      StatusRejected,
		Error:       ErrLimitReached,
		Mode:        ModeNormal,
		IllumOnMask: 0x01 | IllumMaskLEDMatrix,
		LEDPattern:  3,
		JoystickDX:  -120,
		JoystickDY:  300,
		Buttons:     0x01,
		Reserved:    [3]uint8{1, 2, 0},
	}
	r.Axes[0] = AxisStatus{Position: -1000, Target: 2000, State: AxisMoving, Homed: true}
	r.Axes[1] = AxisStatus{Position: 123456, Target: 123456, State: AxisIdle, Homed: true}
	r.Axes[2] = AxisStatus{Position: 7, Target: 0, State: AxisHoming}
	r.Axes[3] = AxisStatus{Position: -2147483648, Target: 2147483647, State: AxisError, Error: ErrAxisBusy}
	for i := range r.DAC {
		r.DAC[i] = uint16(i*1000 + 1)
	}
	return r
}

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC_Empty(t *testing.T) {
	crc := CalculateCRC([]byte{})
	if crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%04X", crc)
	}
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0x29B1, // CRC-16/CCITT-FALSE check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0xE1F0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CalculateCRC(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", tt.expected, crc)
			}
		})
	}
}

func TestFrameCRC_CoversLength(t *testing.T) {
	payload := []byte{0x01, 0xF0}
	want := CalculateCRC([]byte{0x02, 0x00, 0x01, 0xF0})
	if got := frameCRC(payload); got != want {
		t.Errorf("frameCRC = 0x%04X, want 0x%04X", got, want)
	}
}

// ============================================================
// Encoder Tests
// ============================================================

func TestEncodeFrame_Layout(t *testing.T) {
	frame, err := EncodeFrame([]byte{0x07, CmdGetState})
	if err != nil {
		t.Fatalf("EncodeFrame error: %v", err)
	}
	if len(frame) != 2+PacketOverhead {
		t.Fatalf("frame length = %d, want %d", len(frame), 2+PacketOverhead)
	}
	if frame[0] != HeaderByte0 || frame[1] != HeaderByte1 {
		t.Errorf("header = % X, want AA BB", frame[:2])
	}
	if frame[2] != 0x02 || frame[3] != 0x00 {
		t.Errorf("length bytes = % X, want 02 00", frame[2:4])
	}
	crc := CalculateCRC(frame[2:6])
	if frame[6] != byte(crc) || frame[7] != byte(crc>>8) {
		t.Errorf("CRC bytes = % X, want little-endian 0x%04X", frame[6:8], crc)
	}
}

func TestEncodeFrame_Bounds(t *testing.T) {
	if _, err := EncodeFrame(nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := EncodeFrame(make([]byte, MaxPayloadSize+1)); err == nil {
		t.Error("expected error for oversized payload")
	}
	frame, err := EncodeFrame(make([]byte, MaxPayloadSize))
	if err != nil {
		t.Fatalf("max payload rejected: %v", err)
	}
	if len(frame) != MaxPacketSize {
		t.Errorf("max frame length = %d, want %d", len(frame), MaxPacketSize)
	}
}

func TestMustEncodeFrame_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for empty payload")
		}
	}()
	MustEncodeFrame(nil)
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_RoundTripAllLengths(t *testing.T) {
	for length := 1; length <= MaxPayloadSize; length++ {
		payload := make([]byte, length)
		for i := range payload {
			payload[i] = byte(i*7 + length)
		}
		packets, errs := decodeAll(MustEncodeFrame(payload))
		if len(errs) != 0 {
			t.Fatalf("length %d: unexpected errors %v", length, errs)
		}
		if len(packets) != 1 {
			t.Fatalf("length %d: got %d packets, want 1", length, len(packets))
		}
		if !bytes.Equal(packets[0].Payload(), payload) {
			t.Fatalf("length %d: payload mismatch", length)
		}
		if packets[0].Length() != uint16(length) {
			t.Errorf("length %d: Length() = %d", length, packets[0].Length())
		}
	}
}

func TestDecoder_SingleBitCorruption(t *testing.T) {
	payload := []byte{0x11, CmdMoveAxis, 0x00, 0x10, 0x27, 0x00, 0x00}
	frame := MustEncodeFrame(payload)

	for byteIdx := HeaderSize + LengthSize; byteIdx < HeaderSize+LengthSize+len(payload); byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), frame...)
			corrupted[byteIdx] ^= 1 << bit

			packets, errs := decodeAll(corrupted)
			if len(packets) != 0 {
				t.Fatalf("byte %d bit %d: corrupted frame was accepted", byteIdx, bit)
			}
			if len(errs) != 1 {
				t.Fatalf("byte %d bit %d: got %d errors, want 1", byteIdx, bit, len(errs))
			}
			var crcErr *CRCError
			if !errors.As(errs[0], &crcErr) {
				t.Fatalf("byte %d bit %d: error %v is not a CRCError", byteIdx, bit, errs[0])
			}
		}
	}
}

func TestDecoder_RepeatedHeaderByte(t *testing.T) {
	frame := MustEncodeFrame([]byte{0x01, CmdGetState})
	stream := append([]byte{HeaderByte0}, frame...) // AA AA BB ...

	packets, errs := decodeAll(stream)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(packets))
	}
	if packets[0].CommandType() != CmdGetState {
		t.Errorf("CommandType() = 0x%02X, want 0x%02X", packets[0].CommandType(), CmdGetState)
	}
}

func TestDecoder_NoiseBeforeFrame(t *testing.T) {
	frame := MustEncodeFrame([]byte{0x05, CmdReset})
	stream := append([]byte{0x00, 0x13, HeaderByte0, 0x42, 0xBB, 0xFF}, frame...)

	packets, errs := decodeAll(stream)
	if len(errs) != 0 {
		t.Fatalf("noise should be silent, got errors: %v", errs)
	}
	if len(packets) != 1 || packets[0].CommandID() != 0x05 {
		t.Fatalf("expected one RESET packet with id 5, got %d packets", len(packets))
	}
}

func TestDecoder_InvalidLengths(t *testing.T) {
	tests := []struct {
		name   string
		lenLo  byte
		lenHi  byte
		length int
	}{
		{"zero", 0x00, 0x00, 0},
		{"507", 0xFB, 0x01, 507},
		{"65535", 0xFF, 0xFF, 65535},
	}

	valid := MustEncodeFrame([]byte{0x09, CmdGetVersion})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := []byte{HeaderByte0, HeaderByte1, tt.lenLo, tt.lenHi}
			stream = append(stream, valid...)

			packets, errs := decodeAll(stream)
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1", len(errs))
			}
			if !errors.Is(errs[0], ErrInvalidLength) {
				t.Errorf("error %v is not ErrInvalidLength", errs[0])
			}
			if len(packets) != 1 {
				t.Fatalf("following frame not parsed: got %d packets", len(packets))
			}
			if packets[0].CommandID() != 0x09 {
				t.Errorf("CommandID() = %d, want 9", packets[0].CommandID())
			}
		})
	}
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	var stream []byte
	for id := 0; id < 10; id++ {
		stream = append(stream, MustEncodeFrame([]byte{byte(id), CmdGetState})...)
	}
	packets, errs := decodeAll(stream)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(packets) != 10 {
		t.Fatalf("got %d packets, want 10", len(packets))
	}
	for i, p := range packets {
		if p.CommandID() != uint8(i) {
			t.Errorf("packet %d: CommandID() = %d", i, p.CommandID())
		}
	}
}

func TestDecoder_PayloadIsCopied(t *testing.T) {
	d := NewDecoder()
	var first *Packet
	for _, b := range MustEncodeFrame([]byte{0x01, 0xAA, 0xAA}) {
		if p, _ := d.DecodeByte(b); p != nil {
			first = p
		}
	}
	for _, b := range MustEncodeFrame([]byte{0x02, 0xBB, 0xBB}) {
		d.DecodeByte(b)
	}
	if first == nil || !bytes.Equal(first.Payload(), []byte{0x01, 0xAA, 0xAA}) {
		t.Fatalf("first packet payload was overwritten: %v", first)
	}
}

func TestDecoder_GetRawBytes(t *testing.T) {
	frame := MustEncodeFrame([]byte{0x03, CmdAckError})
	d := NewDecoder()
	for _, b := range frame {
		d.DecodeByte(b)
	}
	if !bytes.Equal(d.GetRawBytes(), frame) {
		t.Errorf("GetRawBytes() = % X, want % X", d.GetRawBytes(), frame)
	}
}

// ============================================================
// Response Tests
// ============================================================

func TestResponse_Layout(t *testing.T) {
	r := sampleResponse()
	buf := r.Bytes()

	if len(buf) != ResponseSize {
		t.Fatalf("len = %d, want %d", len(buf), ResponseSize)
	}
	if buf[0] != 42 || buf[1] != byte(StatusRejected) || buf[2] != byte(ErrLimitReached) || buf[3] != byte(ModeNormal) {
		t.Errorf("header = % X", buf[:4])
	}
	// X position -1000 little-endian at offset 4
	if !bytes.Equal(buf[4:8], []byte{0x18, 0xFC, 0xFF, 0xFF}) {
		t.Errorf("X position bytes = % X", buf[4:8])
	}
	if buf[12] != byte(AxisMoving) || buf[14] != 1 {
		t.Errorf("X state/homed = %d/%d", buf[12], buf[14])
	}
	// DAC channel 1 = 1001 at offset 54
	if buf[54] != 0xE9 || buf[55] != 0x03 {
		t.Errorf("DAC[1] bytes = % X", buf[54:56])
	}
	if buf[68] != 0x81 || buf[69] != 3 {
		t.Errorf("illum mask/pattern = 0x%02X/%d", buf[68], buf[69])
	}
	if buf[74] != 0x01 {
		t.Errorf("buttons = 0x%02X", buf[74])
	}
	if buf[75] != 1 || buf[76] != 2 || buf[77] != 0 {
		t.Errorf("reserved = % X", buf[75:])
	}
}

func TestResponse_ParseMatchesBytes(t *testing.T) {
	r := sampleResponse()
	parsed, err := ParseResponse(r.Bytes())
	if err != nil {
		t.Fatalf("ParseResponse error: %v", err)
	}
	if *parsed != *r {
		t.Errorf("parsed response differs:\n got %+v\nwant %+v", parsed, r)
	}
}

func TestResponse_ParseRejectsWrongSize(t *testing.T) {
	for _, size := range []int{0, 2, ResponseSize - 1, ResponseSize + 1} {
		if _, err := ParseResponse(make([]byte, size)); err == nil {
			t.Errorf("size %d: expected error", size)
		}
	}
}

func TestResponse_AxisLookup(t *testing.T) {
	r := sampleResponse()
	w, ok := r.Axis(AxisW)
	if !ok {
		t.Fatal("W axis not found in response")
	}
	if w.State != AxisError {
		t.Errorf("W state = %d, want %d", w.State, AxisError)
	}
	if _, ok := r.Axis(AxisTurret); ok {
		t.Error("TURRET is not carried in a response")
	}
}

func TestResponse_ThroughDecoder(t *testing.T) {
	frame, err := sampleResponse().Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	packets, errs := decodeAll(frame)
	if len(errs) != 0 || len(packets) != 1 {
		t.Fatalf("got %d packets, %d errors", len(packets), len(errs))
	}
	if !packets[0].IsResponse() {
		t.Fatal("IsResponse() = false")
	}
	resp, err := packets[0].Response()
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	if resp.CommandID != 42 {
		t.Errorf("CommandID = %d, want 42", resp.CommandID)
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatCommandType(t *testing.T) {
	tests := map[uint8]string{
		CmdMoveAxis:        "MOVE_AXIS",
		CmdSetIllumination: "SET_ILLUMINATION",
		CmdTriggerCamera:   "TRIGGER_CAMERA",
		CmdHSAStart:        "HSA_START",
		CmdReset:           "RESET",
		0x99:               "UNKNOWN",
	}
	for cmdType, want := range tests {
		if got := FormatCommandType(cmdType); got != want {
			t.Errorf("FormatCommandType(0x%02X) = %q, want %q", cmdType, got, want)
		}
	}
}

func TestFormatPacket_Command(t *testing.T) {
	payload := NewSetIlluminationCommand(3, Source405nm, 30000, SwitchOn).Payload()
	out := FormatPacket(NewPacket(payload, 0))
	for _, want := range []string{"SET_ILLUMINATION", "id=3", "405nm", "30000", "ON"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatPacket_Response(t *testing.T) {
	out := FormatPacket(NewPacket(sampleResponse().Bytes(), 0))
	for _, want := range []string{"RESPONSE", "REJECTED", "LIMIT_REACHED", "MOVING", "homed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// ============================================================
// Validator Tests
// ============================================================

func TestValidatePacket_CleanResponse(t *testing.T) {
	r := sampleResponse()
	r.Axes[3].State = AxisIdle
	if errs := ValidatePacket(NewPacket(r.Bytes(), 0)); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestValidatePacket_InconsistentStatus(t *testing.T) {
	r := sampleResponse()
	r.Status = StatusOK
	errs := ValidatePacket(NewPacket(r.Bytes(), 0))
	if len(errs) != 1 || errs[0].Type != AnomalyInconsistentStatus {
		t.Errorf("got %v, want one AnomalyInconsistentStatus", errs)
	}
}

func TestValidatePacket_BadEnums(t *testing.T) {
	buf := sampleResponse().Bytes()
	buf[1] = 9    // status
	buf[3] = 7    // mode
	buf[12] = 200 // X axis state

	types := map[AnomalyType]bool{}
	for _, e := range ValidatePacket(NewPacket(buf, 0)) {
		types[e.Type] = true
	}
	for _, want := range []AnomalyType{AnomalyInvalidStatus, AnomalyInvalidMode, AnomalyInvalidAxisState} {
		if !types[want] {
			t.Errorf("missing anomaly %d", want)
		}
	}
}

func TestValidatePacket_Commands(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    []AnomalyType
	}{
		{"valid move", NewMoveAxisCommand(1, AxisX, 100).Payload(), nil},
		{"short move", []byte{1, CmdMoveAxis, 0}, []AnomalyType{AnomalyLengthMismatch}},
		{"unknown", []byte{1, 0x99}, []AnomalyType{AnomalyUnknownCommand}},
		{"reserved sequence opcode", []byte{1, CmdHSAStart}, nil},
		{"DAC channel", NewSetDACCommand(1, 9, 10).Payload(), []AnomalyType{AnomalyInvalidValue}},
		{"inverted limits", NewSetAxisParamsCommand(1, AxisY, AxisParams{MinPosition: 10, MaxPosition: -10}).Payload(), []AnomalyType{AnomalyInvalidValue}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePacket(NewPacket(tt.payload, 0))
			if len(errs) != len(tt.want) {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(tt.want))
			}
			for i, want := range tt.want {
				if errs[i].Type != want {
					t.Errorf("error %d type = %d, want %d", i, errs[i].Type, want)
				}
			}
		})
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Classification(t *testing.T) {
	s := NewStatistics()

	s.Update(nil, &CRCError{Expected: 1, Received: 2}, nil)
	s.Update(nil, ErrInvalidLength, nil)
	s.Update(nil, errors.New("something else"), nil)
	s.Update(NewPacket(NewGetStateCommand(1).Payload(), 0), nil, nil)
	s.Update(NewPacket(sampleResponse().Bytes(), 0), nil, nil)
	s.Update(NewPacket([]byte{1, 0x99}, 0), nil, []ValidationError{{Type: AnomalyUnknownCommand}})

	if s.TotalPackets != 6 {
		t.Errorf("TotalPackets = %d, want 6", s.TotalPackets)
	}
	if s.CRCErrors != 1 || s.LengthErrors != 1 || s.DecodeErrors != 1 {
		t.Errorf("CRC/Length/Decode = %d/%d/%d, want 1/1/1", s.CRCErrors, s.LengthErrors, s.DecodeErrors)
	}
	if s.ValidPackets != 2 {
		t.Errorf("ValidPackets = %d, want 2", s.ValidPackets)
	}
	if s.Responses != 1 || s.Rejected != 1 {
		t.Errorf("Responses/Rejected = %d/%d, want 1/1", s.Responses, s.Rejected)
	}
	if s.UnknownCommands != 1 {
		t.Errorf("UnknownCommands = %d, want 1", s.UnknownCommands)
	}
	if s.ErrorCount() != 4 {
		t.Errorf("ErrorCount() = %d, want 4", s.ErrorCount())
	}
	if !strings.Contains(s.String(), "CRC Errors") {
		t.Error("String() should include CRC errors")
	}

	s.Reset()
	if s.TotalPackets != 0 || s.CRCErrors != 0 {
		t.Error("Reset() did not clear counters")
	}
}
