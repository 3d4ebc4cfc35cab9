// effect_test.go
package sfx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const gainScript = `desc:Stereo gain
slider1:0.5<0,1,0.01>Gain
@sample
spl0 = spl0 * slider1;
spl1 = spl1 * slider1;
`

func onesBlock(frames int) *Block {
	b := NewBlock(2, frames)
	for i := 0; i < frames; i++ {
		b.Channels[0][i] = 1
		b.Channels[1][i] = 1
	}
	return b
}

func Test_Effect_GainAppliesSliderDefault(t *testing.T) {
	e := newEffect(t, gainScript)
	l, r := e.ProcessSample(1, -1)
	require.Equal(t, 0.5, l)
	require.Equal(t, -0.5, r)
}

func Test_Effect_ParameterChangeAppliesBeforeNextSample(t *testing.T) {
	e := newEffect(t, gainScript)
	e.SetParameter(0, 0.25)
	l, _ := e.ProcessSample(1, 1)
	require.Equal(t, 0.25, l)
	require.Equal(t, 0.25, e.Parameter(0))
}

func Test_Effect_SliderSectionRerunsOnChange(t *testing.T) {
	e := newEffect(t, `slider1:1<0,2,0.01>Gain
@slider
g = slider1 * 2;
@sample
spl0 = g;
`)
	l, _ := e.ProcessSample(0, 0)
	require.Equal(t, 2.0, l)

	e.SetParameter(0, 0.25)
	l, _ = e.ProcessSample(0, 0)
	require.Equal(t, 0.5, l)
}

func Test_Effect_IdentityScript(t *testing.T) {
	e := newEffect(t, "@sample\nspl0 = spl0;\nspl1 = spl1;")
	for _, in := range []float64{0, 1, -1, 0.5, 1e-12, 1e12} {
		l, r := e.ProcessSample(in, -in)
		require.Equal(t, in, l)
		require.Equal(t, -in, r)
	}
}

func Test_Effect_SetParameterIdempotent(t *testing.T) {
	s := compile(t, gainScript)
	once := s.Instantiate(48000, 64)
	twice := s.Instantiate(48000, 64)

	once.SetParameter(0, 0.3)
	twice.SetParameter(0, 0.3)
	twice.SetParameter(0, 0.3)

	ol, _ := once.ProcessSample(1, 1)
	tl, _ := twice.ProcessSample(1, 1)
	require.Equal(t, ol, tl)
	require.Equal(t, 0.3, ol)
}

func Test_Effect_NoSampleSectionPassesThrough(t *testing.T) {
	e := newEffect(t, "@init\nx = 1;")
	l, r := e.ProcessSample(0.3, -0.7)
	require.Equal(t, 0.3, l)
	require.Equal(t, -0.7, r)
}

func Test_Effect_OutOfRangeParameterIsNoOp(t *testing.T) {
	e := newEffect(t, gainScript)
	e.SetParameter(-1, 9)
	e.SetParameter(NumParams, 9)
	require.Equal(t, 0.0, e.Parameter(-1))
	require.Equal(t, 0.0, e.Parameter(NumParams))
	l, _ := e.ProcessSample(1, 1)
	require.Equal(t, 0.5, l)
}

func Test_Effect_BypassPreservesState(t *testing.T) {
	e := newEffect(t, "@sample\nn += 1;\nspl0 = n;")
	l, _ := e.ProcessSample(0, 0)
	require.Equal(t, 1.0, l)

	e.SetBypassed(true)
	require.True(t, e.Bypassed())
	l, r := e.ProcessSample(9, -9)
	require.Equal(t, 9.0, l)
	require.Equal(t, -9.0, r)
	wantSlot(t, e, "n", 1)

	e.SetBypassed(false)
	l, _ = e.ProcessSample(0, 0)
	require.Equal(t, 2.0, l)
}

func Test_Effect_InstancesAreIsolated(t *testing.T) {
	s := compile(t, gainScript)
	a := s.Instantiate(48000, 64)
	b := s.Instantiate(48000, 64)
	require.NotEqual(t, a.ID, b.ID)

	b.SetParameter(0, 1.0)
	al, _ := a.ProcessSample(1, 1)
	bl, _ := b.ProcessSample(1, 1)
	require.Equal(t, 0.5, al)
	require.Equal(t, 1.0, bl)
}

func Test_Effect_Deterministic(t *testing.T) {
	src := `@init
phase = 0;
@sample
phase += 440 / srate;
if (phase >= 1) phase -= 1;
spl0 = spl0 * phase;
spl1 = spl1 * phase;
`
	s := compile(t, src)
	a := s.Instantiate(48000, 64)
	b := s.Instantiate(48000, 64)
	for i := 0; i < 256; i++ {
		in := math.Sin(float64(i) / 10)
		al, ar := a.ProcessSample(in, -in)
		bl, br := b.ProcessSample(in, -in)
		require.Equal(t, al, bl, "frame %d", i)
		require.Equal(t, ar, br, "frame %d", i)
	}
}

func Test_Effect_DivisionByZeroDoesNotPoisonStream(t *testing.T) {
	e := newEffect(t, "@sample\nspl0 = 1 / spl0;\nspl1 = spl1;")
	l, _ := e.ProcessSample(0, 0)
	require.True(t, math.IsInf(l, 1))
	require.Nil(t, e.LastError())

	l, _ = e.ProcessSample(2, 2)
	require.Equal(t, 0.5, l)
}

func Test_Effect_RuntimeErrorBypassesRestOfBlock(t *testing.T) {
	e := newEffect(t, `@init
alloc(buf, 4);
@sample
i += 1;
buf[i - 1] = spl0;
spl0 = 0.5;
spl1 = 0.5;
`)
	blk := onesBlock(8)
	e.ProcessBlock(blk)

	// Frames 0..3 process (i = 1..4), frame 4 indexes buf[4] and fails; it
	// and every later frame keep their input values.
	for i := 0; i < 4; i++ {
		require.Equal(t, 0.5, blk.Channels[0][i], "frame %d", i)
	}
	for i := 4; i < 8; i++ {
		require.Equal(t, 1.0, blk.Channels[0][i], "frame %d", i)
	}
	wantRuntimeError(t, e, ErrOutOfBounds)

	// Reset clears the error and the counter; the next block works again.
	e.Reset()
	require.Nil(t, e.LastError())
	blk2 := onesBlock(4)
	e.ProcessBlock(blk2)
	require.Nil(t, e.LastError())
	for i := 0; i < 4; i++ {
		require.Equal(t, 0.5, blk2.Channels[0][i], "frame %d", i)
	}
}

func Test_Effect_BlockSectionRunsOncePerBlock(t *testing.T) {
	e := newEffect(t, `@block
blocks += 1;
@sample
spl0 = blocks;
spl1 = blocks;
`)
	for want := 1.0; want <= 3; want++ {
		blk := onesBlock(4)
		e.ProcessBlock(blk)
		require.Equal(t, want, blk.Channels[0][0])
		require.Equal(t, want, blk.Channels[0][3])
	}
	wantSlot(t, e, "blocks", 3)
}

func Test_Effect_AutomationStepsPerBlock(t *testing.T) {
	e := newEffect(t, `slider1:0<0,1,0.01>Level
@sample
spl0 = slider1;
spl1 = slider1;
`)
	e.SetParameterAutomation(0, []float64{0.25, 0.5})

	for _, want := range []float64{0.25, 0.5, 0.5} { // ramp holds after the end
		blk := onesBlock(4)
		e.ProcessBlock(blk)
		require.Equal(t, want, blk.Channels[0][0])
	}

	// Clearing the ramp leaves the last value in place.
	e.SetParameterAutomation(0, nil)
	blk := onesBlock(4)
	e.ProcessBlock(blk)
	require.Equal(t, 0.5, blk.Channels[0][0])
}

func Test_Effect_BypassedBlockIsUntouched(t *testing.T) {
	e := newEffect(t, gainScript)
	e.SetBypassed(true)
	blk := onesBlock(4)
	e.ProcessBlock(blk)
	for i := 0; i < 4; i++ {
		require.Equal(t, 1.0, blk.Channels[0][i])
	}
}

func Test_Effect_MonoBlockFallsBackToChannelZero(t *testing.T) {
	e := newEffect(t, gainScript)
	blk := NewBlock(1, 4)
	for i := range blk.Channels[0] {
		blk.Channels[0][i] = 1
	}
	e.ProcessBlock(blk)
	for i := 0; i < 4; i++ {
		require.Equal(t, 0.5, blk.Channels[0][i])
	}
}

func Test_Effect_ResetRerunsInit(t *testing.T) {
	e := newEffect(t, "@init\nseed = 42;")
	addr := e.script.lay.scalars["seed"]
	e.mem.slots[addr] = 7
	e.Reset()
	wantSlot(t, e, "seed", 42)
}

func Test_Effect_TransportVisibleToScript(t *testing.T) {
	e := newEffect(t, "@block\nbpm = tempo;\nst = play_state;\n@sample\nspl0 = spl0;")
	e.Context().SetTransport(140, 16, 3, 4)
	e.Context().SetPlayState(PlayStatePlaying)
	e.ProcessBlock(onesBlock(4))
	wantSlot(t, e, "bpm", 140)
	wantSlot(t, e, "st", PlayStatePlaying)
}

func Test_Effect_CPUUsageTracked(t *testing.T) {
	e := newEffect(t, gainScript)
	for i := 0; i < 8; i++ {
		e.ProcessBlock(onesBlock(64))
	}
	require.GreaterOrEqual(t, e.CPUUsage(), 0.0)
}

func Test_Effect_HeaderOnlyScriptPassesThrough(t *testing.T) {
	e := newEffect(t, "desc:No code at all\n")
	l, r := e.ProcessSample(0.1, 0.2)
	require.Equal(t, 0.1, l)
	require.Equal(t, 0.2, r)
}
