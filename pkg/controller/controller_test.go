// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ocular/pkg/ocular"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Add(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func newTestController(variant Variant) (*Controller, *Simulator, *fakeClock) {
	sim := NewSimulator(2000)
	clk := newFakeClock()
	c := New(sim.Hardware(), Options{Variant: variant, Now: clk.Now})
	return c, sim, clk
}

// allCommands holds one value of every command variant
func allCommands() []Command {
	return []Command{
		MoveAxis{Axis: ocular.AxisX, Target: 100},
		MoveRelative{Axis: ocular.AxisY, Delta: -50},
		HomeAxis{Axis: ocular.AxisZ},
		HomeXY{},
		ZeroAxis{Axis: ocular.AxisFilter1},
		StopAxis{Axis: ocular.AxisX},
		StopAll{},
		EnableAxis{Axis: ocular.AxisAux1, Enable: true},
		InitFilterWheel{Axis: ocular.AxisW},
		SetAxisParams{Axis: ocular.AxisX, MaxVelocity: 1000},
		SetAxisLimit{Axis: ocular.AxisY, Positive: true, Position: 1000},
		SetVelocityAcceleration{Axis: ocular.AxisZ, MaxVelocity: 10, Acceleration: 5},
		SetLimitSwitchPolarity{Axis: ocular.AxisX, Polarity: 1},
		ConfigureDriver{Axis: ocular.AxisX, Microstepping: 16, CurrentRMS: 800, HoldCurrent: 50},
		SetLeadScrewPitch{Axis: ocular.AxisZ, Pitch: 300},
		SetOffsetVelocity{Axis: ocular.AxisX, Velocity: -20},
		SetHomeSafetyMargin{Axis: ocular.AxisY, Margin: 100},
		GetAxisParams{Axis: ocular.AxisX},
		SetCameraParams{Channel: 1, StrobeDelayUs: 100},
		SetPIDParams{Axis: ocular.AxisX, P: 10, I: 2, D: 1},
		ConfigurePID{Axis: ocular.AxisX, Flip: true, Transitions: 2000},
		EnablePID{Axis: ocular.AxisX, Enable: true},
		SetDAC{Channel: 6, Value: 1000},
		SetTTL{Channel: 2, Level: false},
		ConfigureGPIO{Pin: 4, Mode: 1},
		WriteGPIO{Pin: 4, Level: true},
		ReadGPIO{Pin: 4},
		SetDACGain{Div: 0, Gains: 0x80},
		SetIllumination{Source: ocular.Source488nm, Intensity: 100},
		SwitchIllumination{On: false},
		SetLEDMatrix{Pattern: 1, R: 1, G: 2, B: 3},
		SetIntensityFactor{Percent: 60},
		PulseIllumination{Channel: 0, OnTimeUs: 100},
		TriggerCamera{Channel: 0, OnTimeUs: 100},
		SetTriggerMode{Mode: 1},
		AckJoystickButton{},
		SequenceUpload{Code: ocular.CmdHSAStart},
		GetState{},
		AckError{},
		GetVersion{},
		Initialize{},
		Reset{},
		Unsupported{Code: 0x99},
		Malformed{Code: ocular.CmdMoveAxis, Err: ErrParamsTooShort, Intended: MoveAxis{}},
	}
}

// ============================================================================
// Dispatch coverage
// ============================================================================

func TestAllCommandsAreDistinctVariants(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range allCommands() {
		name := fmt.Sprintf("%T", cmd)
		require.False(t, seen[name], "duplicate variant %s", name)
		seen[name] = true
	}
	require.Len(t, seen, 44)
}

func TestFullDispatchHandlesEveryVariant(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	for _, cmd := range allCommands() {
		c.Dispatch(cmd)
		require.Zero(t, c.unhandled, "no handler for %T", cmd)
	}
}

// ============================================================================
// Semantic checks
// ============================================================================

func TestFullSemanticChecks(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Controller)
		cmd   Command
		want  Outcome
	}{
		{"move accepted", nil, MoveAxis{Axis: ocular.AxisX, Target: 1000}, accepted()},
		{"axis out of range", nil, MoveAxis{Axis: 8, Target: 1}, rejected(ocular.ErrInvalidAxis)},
		{"disabled axis", func(c *Controller) {
			c.Dispatch(EnableAxis{Axis: ocular.AxisX, Enable: false})
		}, MoveAxis{Axis: ocular.AxisX, Target: 1}, rejected(ocular.ErrInvalidAxis)},
		{"system in error", func(c *Controller) {
			c.state.Mode = ocular.ModeError
		}, MoveAxis{Axis: ocular.AxisX, Target: 1}, rejected(ocular.ErrSystemInError)},
		{"sequence running", func(c *Controller) {
			c.state.Mode = ocular.ModeHSA
		}, HomeAxis{Axis: ocular.AxisX}, rejected(ocular.ErrHSARunning)},
		{"move while homing", func(c *Controller) {
			c.Dispatch(HomeAxis{Axis: ocular.AxisZ})
		}, MoveAxis{Axis: ocular.AxisZ, Target: 1}, rejected(ocular.ErrAxisBusy)},
		{"home while homing", func(c *Controller) {
			c.Dispatch(HomeAxis{Axis: ocular.AxisZ})
		}, HomeAxis{Axis: ocular.AxisZ}, rejected(ocular.ErrAxisBusy)},
		{"not homed", func(c *Controller) {
			c.Dispatch(SetAxisParams{Axis: ocular.AxisY, RequireHomed: true})
		}, MoveAxis{Axis: ocular.AxisY, Target: 1}, rejected(ocular.ErrAxisNotHomed)},
		{"relative move ignores require homed", func(c *Controller) {
			c.Dispatch(SetAxisParams{Axis: ocular.AxisY, RequireHomed: true})
		}, MoveRelative{Axis: ocular.AxisY, Delta: 1}, accepted()},
		{"above soft limit", func(c *Controller) {
			c.Dispatch(SetAxisParams{Axis: ocular.AxisX, MinPosition: -100, MaxPosition: 100})
		}, MoveAxis{Axis: ocular.AxisX, Target: 101}, rejected(ocular.ErrLimitReached)},
		{"relative below soft limit", func(c *Controller) {
			c.Dispatch(SetAxisParams{Axis: ocular.AxisX, MinPosition: -100, MaxPosition: 100})
		}, MoveRelative{Axis: ocular.AxisX, Delta: -101}, rejected(ocular.ErrLimitReached)},
		{"limits disabled when min equals max", nil, MoveAxis{Axis: ocular.AxisX, Target: 1 << 30}, accepted()},
		{"relative overflow", func(c *Controller) {
			c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 2147483000})
		}, MoveRelative{Axis: ocular.AxisX, Delta: 1000}, rejected(ocular.ErrLimitReached)},
		{"zero while moving", func(c *Controller) {
			c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 100000})
		}, ZeroAxis{Axis: ocular.AxisX}, rejected(ocular.ErrAxisBusy)},
		{"stop on disabled axis", func(c *Controller) {
			c.Dispatch(EnableAxis{Axis: ocular.AxisX, Enable: false})
		}, StopAxis{Axis: ocular.AxisX}, ok()},
		{"config on bad axis", nil, SetLeadScrewPitch{Axis: 9, Pitch: 1}, rejected(ocular.ErrInvalidAxis)},
		{"dac channel", nil, SetDAC{Channel: ocular.NumDACChannels}, rejected(ocular.ErrInvalidCmd)},
		{"camera channel", nil, TriggerCamera{Channel: ocular.NumCameraChannels}, rejected(ocular.ErrInvalidCmd)},
		{"led pattern", nil, SetLEDMatrix{Pattern: ocular.MaxLEDSource + 1}, rejected(ocular.ErrInvalidCmd)},
		{"gpio pin", nil, WriteGPIO{Pin: NumGPIOPins}, rejected(ocular.ErrInvalidCmd)},
		{"unknown code", nil, Unsupported{Code: 0x77}, rejected(ocular.ErrInvalidCmd)},
		{"sequence upload", nil, SequenceUpload{Code: ocular.CmdHSAUploadHeader}, rejected(ocular.ErrInvalidCmd)},
		{"malformed", nil, Malformed{Code: ocular.CmdSetDAC, Err: ErrParamsTooShort, Intended: SetDAC{}}, rejected(ocular.ErrPacketTooShort)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(VariantFull)
			if tt.setup != nil {
				tt.setup(c)
			}
			require.Equal(t, tt.want, c.Dispatch(tt.cmd))
		})
	}
}

func TestAckErrorClearsErrorMode(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	c.state.Mode = ocular.ModeError
	c.state.Axes[ocular.AxisY].Error = ocular.ErrLimitReached
	require.Equal(t, ocular.AxisError, c.state.Axes[ocular.AxisY].State())

	require.Equal(t, ok(), c.Dispatch(AckError{}))
	s := c.Snapshot()
	require.Equal(t, ocular.ModeNormal, s.Mode)
	require.Equal(t, ocular.AxisIdle, s.Axes[ocular.AxisY].State())
}

// ============================================================================
// Motion
// ============================================================================

func TestMoveProgressesThroughPolls(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	require.Equal(t, accepted(), c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 5000}))
	require.Equal(t, ocular.AxisMoving, c.state.Axes[ocular.AxisX].State())

	c.Poll()
	require.Equal(t, int32(2000), c.state.Axes[ocular.AxisX].Position)
	require.Equal(t, ocular.AxisMoving, c.state.Axes[ocular.AxisX].State())

	c.Poll()
	c.Poll()
	a := c.state.Axes[ocular.AxisX]
	require.Equal(t, int32(5000), a.Position)
	require.Equal(t, int32(5000), a.Target)
	require.Equal(t, ocular.AxisIdle, a.State())
	require.Equal(t, int32(5000), sim.Position(ocular.AxisX))
}

func TestRelativeMovesAccumulate(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	require.Equal(t, accepted(), c.Dispatch(MoveRelative{Axis: ocular.AxisZ, Delta: 300}))
	require.Equal(t, accepted(), c.Dispatch(MoveRelative{Axis: ocular.AxisZ, Delta: -100}))
	require.Equal(t, int32(200), c.state.Axes[ocular.AxisZ].Target)
}

func TestHomingSequence(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	sim.SetPosition(ocular.AxisY, 3000)

	require.Equal(t, accepted(), c.Dispatch(HomeAxis{Axis: ocular.AxisY, Direction: ocular.HomingBackward}))
	a := &c.state.Axes[ocular.AxisY]
	require.True(t, a.PreparingHoming)
	require.Equal(t, ocular.AxisHoming, a.State())

	c.Poll()
	require.True(t, a.Homing)
	require.False(t, a.Moving)

	for i := 0; i < 5 && a.Homing; i++ {
		c.Poll()
	}
	require.False(t, a.Homing)
	require.True(t, a.Homed)
	require.Equal(t, int32(0), a.Position)
	require.Equal(t, ocular.AxisIdle, a.State())
}

func TestHomeXYHomesBothAxes(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	require.Equal(t, accepted(), c.Dispatch(HomeXY{}))
	require.True(t, c.state.Axes[ocular.AxisX].PreparingHoming)
	require.True(t, c.state.Axes[ocular.AxisY].PreparingHoming)
	require.False(t, c.state.Axes[ocular.AxisZ].PreparingHoming)
}

func TestStopAllHaltsMotion(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 100000})
	c.Dispatch(MoveAxis{Axis: ocular.AxisY, Target: -100000})
	c.Poll()

	require.Equal(t, ok(), c.Dispatch(StopAll{}))
	require.False(t, c.state.AnyAxisBusy())
	require.Equal(t, int32(2000), c.state.Axes[ocular.AxisX].Target)
	require.False(t, sim.Busy(ocular.AxisX))
}

func TestEnableAxisDrivesHardware(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	require.Equal(t, ok(), c.Dispatch(EnableAxis{Axis: ocular.AxisAux2, Enable: false}))
	require.False(t, sim.AxisEnabled(ocular.AxisAux2))
	require.False(t, c.state.Axes[ocular.AxisAux2].Enabled)

	require.Equal(t, ok(), c.Dispatch(EnableAxis{Axis: ocular.AxisAux2, Enable: true}))
	require.True(t, sim.AxisEnabled(ocular.AxisAux2))
}

func TestConfigurationIsStored(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	c.Dispatch(SetAxisLimit{Axis: ocular.AxisY, Positive: true, Position: 900})
	c.Dispatch(SetAxisLimit{Axis: ocular.AxisY, Positive: false, Position: -900})
	c.Dispatch(ConfigureDriver{Axis: ocular.AxisY, Microstepping: 8, CurrentRMS: 1000, HoldCurrent: 25})
	c.Dispatch(SetPIDParams{Axis: ocular.AxisY, P: 100, I: 3, D: 4})
	c.Dispatch(EnablePID{Axis: ocular.AxisY, Enable: true})

	cfg := c.Snapshot().Axes[ocular.AxisY].Config
	require.Equal(t, int32(900), cfg.MaxPosition)
	require.Equal(t, int32(-900), cfg.MinPosition)
	require.True(t, cfg.HasSoftLimits())
	require.Equal(t, uint8(8), cfg.Microstepping)
	require.Equal(t, uint16(1000), cfg.CurrentRMS)
	require.Equal(t, uint16(100), cfg.PIDP)
	require.True(t, cfg.PIDEnabled)
}

// ============================================================================
// Illumination
// ============================================================================

func TestIlluminationScalesByVariantFactor(t *testing.T) {
	tests := []struct {
		variant Variant
		want    uint16
	}{
		{VariantFull, 18000},
		{VariantReduced, 30000},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			c, sim, _ := newTestController(tt.variant)
			require.Equal(t, ok(), c.Dispatch(SetIllumination{Source: ocular.Source405nm, Intensity: 30000}))
			require.Equal(t, ok(), c.Dispatch(SwitchIllumination{On: true}))

			s := c.Snapshot()
			require.Equal(t, tt.want, s.DAC[0])
			require.Equal(t, tt.want, s.Illumination.Intensity)
			require.True(t, s.Illumination.On)
			require.Equal(t, uint8(0x01), s.IllumOnMask())
			require.Equal(t, tt.want, sim.DACValue(0))
			require.True(t, sim.Laser(0))

			require.Equal(t, ok(), c.Dispatch(SwitchIllumination{On: false}))
			require.False(t, sim.Laser(0))
			require.Zero(t, c.Snapshot().IllumOnMask())
		})
	}
}

func TestLaserChannelMapping(t *testing.T) {
	sources := map[uint8]int{
		ocular.Source405nm: 0,
		ocular.Source488nm: 1,
		ocular.Source561nm: 2,
		ocular.Source638nm: 3,
		ocular.Source730nm: 4,
	}
	for source, want := range sources {
		c, sim, _ := newTestController(VariantFull)
		c.Dispatch(SetIllumination{Source: source, Intensity: 1000, Switch: ocular.SwitchOn})
		require.True(t, sim.Laser(want), "source %d", source)
		require.Equal(t, uint16(600), sim.DACValue(uint8(want)))
	}

	_, found := laserChannel(ocular.SourceLEDArrayFull)
	require.False(t, found)
}

func TestSetIlluminationSwitchesLitSource(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	c.Dispatch(SetIllumination{Source: ocular.Source405nm, Intensity: 1000, Switch: ocular.SwitchOn})
	require.True(t, sim.Laser(0))

	require.Equal(t, ok(), c.Dispatch(SetIllumination{Source: ocular.Source638nm, Intensity: 1000}))
	require.False(t, sim.Laser(0))
	require.True(t, sim.Laser(3))
	require.Equal(t, uint8(1<<3), c.Snapshot().IllumOnMask())
}

func TestLEDMatrixIllumination(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	require.Equal(t, ok(), c.Dispatch(SetLEDMatrix{Pattern: ocular.SourceLEDArrayDarkField, R: 10, G: 20, B: 30}))
	require.Equal(t, ok(), c.Dispatch(SwitchIllumination{On: true}))

	on, pattern, rgb := sim.LEDMatrix()
	require.True(t, on)
	require.Equal(t, uint8(ocular.SourceLEDArrayDarkField), pattern)
	require.Equal(t, [3]uint8{10, 20, 30}, rgb)

	s := c.Snapshot()
	require.Equal(t, uint8(ocular.IllumMaskLEDMatrix), s.IllumOnMask())
	require.Equal(t, uint8(ocular.SourceLEDArrayDarkField), s.Illumination.LEDPattern)

	c.Dispatch(SwitchIllumination{On: false})
	on, _, _ = sim.LEDMatrix()
	require.False(t, on)
}

func TestInterlockBlocksLaser(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	sim.SetInterlock(true)

	out := c.Dispatch(SetIllumination{Source: ocular.Source488nm, Intensity: 10000, Switch: ocular.SwitchOn})
	require.Equal(t, rejected(ocular.ErrInterlock), out)

	s := c.Snapshot()
	require.False(t, sim.Laser(1))
	require.False(t, s.Illumination.On)
	require.Equal(t, uint16(6000), s.DAC[1], "intensity shadow is still written")

	require.Equal(t, rejected(ocular.ErrInterlock), c.Dispatch(SetTTL{Channel: 1, Level: true}))
	require.Equal(t, ok(), c.Dispatch(SetTTL{Channel: 1, Level: false}))

	sim.SetInterlock(false)
	require.Equal(t, ok(), c.Dispatch(SwitchIllumination{On: true}))
	require.True(t, sim.Laser(1))
}

func TestReducedIgnoresInterlock(t *testing.T) {
	c, sim, _ := newTestController(VariantReduced)
	sim.SetInterlock(true)
	out := c.Dispatch(SetIllumination{Source: ocular.Source488nm, Intensity: 10000, Switch: ocular.SwitchOn})
	require.Equal(t, ok(), out)
	require.True(t, sim.Laser(1))
}

func TestIntensityFactorClamp(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	c.Dispatch(SetIntensityFactor{Percent: 250})
	require.Equal(t, 1.0, c.Snapshot().Illumination.Factor)

	c.Dispatch(SetIllumination{Source: ocular.Source730nm, Intensity: 30000})
	require.Equal(t, uint16(30000), sim.DACValue(4))

	c.Dispatch(SetIntensityFactor{Percent: 50})
	c.Dispatch(SetIllumination{Source: ocular.Source730nm, Intensity: 30000})
	require.Equal(t, uint16(15000), sim.DACValue(4))
}

func TestIntensityFactorWholePercents(t *testing.T) {
	for percent := uint8(1); percent <= 100; percent++ {
		t.Run(fmt.Sprintf("%d%%", percent), func(t *testing.T) {
			c, sim, _ := newTestController(VariantFull)
			c.Dispatch(SetIntensityFactor{Percent: percent})
			require.Equal(t, ok(), c.Dispatch(SetIllumination{Source: ocular.Source405nm, Intensity: 100}))
			require.Equal(t, uint16(percent), c.Snapshot().DAC[0])
			require.Equal(t, uint16(percent), sim.DACValue(0))
		})
	}
}

func TestScaleIntensity(t *testing.T) {
	tests := []struct {
		intensity uint16
		factor    float64
		want      uint16
	}{
		{30000, DefaultFullIntensityFactor, 18000},
		{65535, 1.0, 65535},
		{65535, 2.0, 65535},
		{1000, 0, 0},
		{1000, -1, 0},
		{100, 0.57, 57},
		{100, 0.29, 29},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, scaleIntensity(tt.intensity, tt.factor), "%d x %v", tt.intensity, tt.factor)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	require.Zero(t, c.Snapshot().IllumOnMask())
	require.False(t, c.Snapshot().AnyAxisBusy())

	c.Dispatch(SetIllumination{Source: ocular.Source561nm, Intensity: 1000, Switch: ocular.SwitchOn})
	c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 5000})
	require.Equal(t, uint8(1<<2), c.Snapshot().IllumOnMask())
	require.True(t, c.Snapshot().AnyAxisBusy())
}

func TestDACGain(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	require.Equal(t, ok(), c.Dispatch(SetDACGain{Div: 0x01, Gains: 0xFF}))
	require.Equal(t, uint16(0x01FF), c.Snapshot().DACGain)
	require.Equal(t, uint16(0x01FF), sim.DACGain())
}

// ============================================================================
// I/O and system
// ============================================================================

func TestReadGPIOReportsLevel(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	sim.WritePin(7, true)

	out := c.Dispatch(ReadGPIO{Pin: 7})
	require.Equal(t, ocular.StatusOK, out.Status)
	require.Equal(t, uint8(1), out.Data[0])
	require.True(t, c.Snapshot().GPIO[7])
}

func TestGPIOWrites(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	require.Equal(t, ok(), c.Dispatch(ConfigureGPIO{Pin: 12, Mode: 2}))
	require.Equal(t, ok(), c.Dispatch(WriteGPIO{Pin: 12, Level: true}))
	require.Equal(t, uint8(2), sim.PinMode(12))
	require.True(t, sim.Pin(12))
}

func TestGetVersion(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	out := c.Dispatch(GetVersion{})
	require.Equal(t, ocular.StatusOK, out.Status)
	require.Equal(t, [3]uint8{DefaultFirmwareMajor, DefaultFirmwareMinor, 0}, out.Data)

	sim := NewSimulator(0)
	c = New(sim.Hardware(), Options{FirmwareMajor: 3, FirmwareMinor: 7})
	require.Equal(t, [3]uint8{3, 7, 0}, c.Dispatch(GetVersion{}).Data)
}

func TestJoystickButtonLatch(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	sim.SetJoystick(-5, 9, true)
	c.Poll()
	sim.SetJoystick(0, 0, false)
	c.Poll()

	s := c.Snapshot()
	require.True(t, s.Joystick.Pressed)
	require.Equal(t, int16(0), s.Joystick.DX)

	require.Equal(t, ok(), c.Dispatch(AckJoystickButton{}))
	require.False(t, c.Snapshot().Joystick.Pressed)
}

func TestResetReturnsToIdle(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)

	c.Dispatch(HomeAxis{Axis: ocular.AxisZ})
	for i := 0; i < 3; i++ {
		c.Poll()
	}
	require.True(t, c.state.Axes[ocular.AxisZ].Homed)

	c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 50000})
	c.Dispatch(HomeAxis{Axis: ocular.AxisY})
	c.Dispatch(SetTriggerMode{Mode: 2})
	c.Dispatch(SetIllumination{Source: ocular.Source561nm, Intensity: 40000, Switch: ocular.SwitchOn})
	c.Poll()
	require.True(t, sim.Laser(2))

	require.Equal(t, ok(), c.Dispatch(Reset{}))
	require.Equal(t, ok(), c.Dispatch(GetState{}))

	s := c.Snapshot()
	for i, a := range s.Axes {
		require.Equal(t, ocular.AxisIdle, a.State(), "axis %d", i)
		require.False(t, a.Homed, "axis %d", i)
		require.False(t, a.Busy(), "axis %d", i)
	}
	require.False(t, s.Illumination.On)
	require.Zero(t, s.Illumination.Intensity)
	require.Zero(t, s.Illumination.Source)
	require.Zero(t, s.IllumOnMask())
	require.Zero(t, s.TriggerMode)
	require.Equal(t, ocular.ModeNormal, s.Mode)
	for ch := 0; ch < ocular.NumLaserChannels; ch++ {
		require.False(t, sim.Laser(ch))
	}
	require.False(t, sim.Busy(ocular.AxisX))

	r := BuildResponse(1, ok(), &s)
	for _, axis := range r.Axes {
		require.Equal(t, ocular.AxisIdle, axis.State)
		require.False(t, axis.Homed)
	}
}

func TestInitializeRestoresDACAndFactor(t *testing.T) {
	c, sim, _ := newTestController(VariantFull)
	c.Dispatch(SetDAC{Channel: 5, Value: 1234})
	c.Dispatch(SetDACGain{Div: 1, Gains: 0})
	c.Dispatch(SetIntensityFactor{Percent: 100})

	require.Equal(t, ok(), c.Dispatch(Initialize{}))
	s := c.Snapshot()
	require.Zero(t, s.DAC[5])
	require.Equal(t, ocular.DefaultDACGain, s.DACGain)
	require.Equal(t, DefaultFullIntensityFactor, s.Illumination.Factor)
	require.Equal(t, 1, sim.DACInits())
	require.Equal(t, ocular.DefaultDACGain, sim.DACGain())
}

// ============================================================================
// Reduced variant
// ============================================================================

func TestReducedAcknowledgesUnimplementedCommands(t *testing.T) {
	c, sim, _ := newTestController(VariantReduced)
	for _, cmd := range allCommands() {
		if reducedImplements(cmd) {
			continue
		}
		require.Equal(t, ok(), c.Dispatch(cmd), "%T", cmd)
	}

	c.Poll()
	s := c.Snapshot()
	for i, a := range s.Axes {
		require.Zero(t, a.Position, "axis %d", i)
		require.Zero(t, a.Target, "axis %d", i)
		require.Equal(t, ocular.AxisIdle, a.State(), "axis %d", i)
	}
	require.Zero(t, sim.Position(ocular.AxisX))
	require.False(t, sim.Busy(ocular.AxisX))
}

func TestReducedMalformedImplementedCommand(t *testing.T) {
	c, _, _ := newTestController(VariantReduced)
	out := c.Dispatch(Malformed{Code: ocular.CmdSetDAC, Err: ErrParamsTooShort, Intended: SetDAC{}})
	require.Equal(t, rejected(ocular.ErrPacketTooShort), out)
}

func TestReducedResetClearsCommandID(t *testing.T) {
	c, sim, _ := newTestController(VariantReduced)
	c.Handle(Request{ID: 9, Command: SetIllumination{Source: ocular.Source405nm, Intensity: 500, Switch: ocular.SwitchOn}})
	require.True(t, sim.Laser(0))

	require.Equal(t, ok(), c.Handle(Request{ID: 42, Command: Reset{}}))
	s := c.Snapshot()
	require.Zero(t, s.LastCommandID)
	require.False(t, s.Illumination.On)
	require.False(t, sim.Laser(0))
}

func TestReducedInitialize(t *testing.T) {
	c, sim, _ := newTestController(VariantReduced)
	c.Dispatch(SetDAC{Channel: 0, Value: 100})
	c.Dispatch(SwitchIllumination{On: true})

	require.Equal(t, ok(), c.Handle(Request{ID: 3, Command: Initialize{}}))
	s := c.Snapshot()
	require.Equal(t, uint8(3), s.LastCommandID)
	require.Zero(t, s.DAC[0])
	require.False(t, s.Illumination.On)
	require.Equal(t, 1, sim.DACInits())
}

// ============================================================================
// Handle
// ============================================================================

func TestHandleLatchesChecksumError(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	out := c.Handle(Request{ID: 17, ChecksumFailed: true})
	require.Equal(t, rejected(ocular.ErrChecksum), out)

	s := c.Snapshot()
	require.True(t, s.ChecksumError)
	require.Equal(t, uint8(17), s.LastCommandID)

	c.Handle(Request{ID: 18, Command: GetState{}})
	s = c.Snapshot()
	require.False(t, s.ChecksumError)
	require.Equal(t, uint8(18), s.LastCommandID)
	require.Equal(t, ok(), s.LastOutcome)
}

type panickingMotion struct {
	*Simulator
}

func (panickingMotion) MoveTo(ocular.Axis, int32) {
	panic("driver fault")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	sim := NewSimulator(0)
	hw := sim.Hardware()
	hw.Motion = panickingMotion{sim}
	c := New(hw, Options{})

	out := c.Dispatch(MoveAxis{Axis: ocular.AxisX, Target: 10})
	require.Equal(t, ocular.StatusError, out.Status)
	require.Equal(t, ok(), c.Dispatch(GetState{}))
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _, _ := newTestController(VariantFull)
	s := c.Snapshot()
	c.Dispatch(SetDAC{Channel: 0, Value: 77})
	require.Zero(t, s.DAC[0])
	require.Equal(t, uint16(77), c.Snapshot().DAC[0])
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("reduced")
	require.NoError(t, err)
	require.Equal(t, VariantReduced, v)

	v, err = ParseVariant("Full")
	require.NoError(t, err)
	require.Equal(t, VariantFull, v)

	_, err = ParseVariant("tiny")
	require.Error(t, err)
}
