// context.go — per-instance host-exposed execution state.
//
// The original runtime kept one implicit global set of registers; here the
// context is an explicit value owned by each effect instance and passed to
// every evaluation, which is what makes concurrent instances safe.
//
// Threading: exactly one audio thread reads/writes regs and params. A
// separate control thread may call SetParameter concurrently; the handoff
// goes through per-index atomic cells plus a dirty bitmask, drained by the
// audio thread before the next per-sample or per-block call. No locks, no
// read-modify-write races.
package sfx

import (
	"math"
	"sync/atomic"
)

// NumParams is the size of the host-automatable parameter array
// (slider1..slider64 in script code).
const NumParams = 64

// Context register ids. The binder rewrites the corresponding variable names
// to these indices, so the hot path indexes regs directly.
const (
	RegSpl0 = iota // left sample in/out
	RegSpl1        // right sample in/out
	RegSpl2        // extra channel
	RegSpl3        // extra channel
	RegSrate
	RegTempo
	RegBeatPos
	RegTSNum
	RegTSDenom
	RegPlayState
	RegTailSize
	numRegs
)

// registerNames maps script identifiers to register ids.
var registerNames = map[string]int32{
	"spl0":          RegSpl0,
	"spl1":          RegSpl1,
	"spl2":          RegSpl2,
	"spl3":          RegSpl3,
	"srate":         RegSrate,
	"tempo":         RegTempo,
	"beat_position": RegBeatPos,
	"ts_num":        RegTSNum,
	"ts_denom":      RegTSDenom,
	"play_state":    RegPlayState,
	"ext_tail_size": RegTailSize,
}

// Transport states as seen by play_state.
const (
	PlayStateStopped   = 0.0
	PlayStatePlaying   = 1.0
	PlayStatePaused    = 2.0
	PlayStateRecording = 5.0
)

// Context is the per-instance execution context.
type Context struct {
	regs   [numRegs]float64
	params [NumParams]float64 // audio-thread view

	// control-thread → audio-thread parameter handoff
	pending [NumParams]atomic.Uint64 // float64 bit patterns
	dirty   atomic.Uint64            // bitmask over pending
}

// NewContext returns a context with sensible transport defaults.
func NewContext(sampleRate float64) *Context {
	c := &Context{}
	c.regs[RegSrate] = sampleRate
	c.regs[RegTempo] = 120
	c.regs[RegTSNum] = 4
	c.regs[RegTSDenom] = 4
	c.regs[RegTailSize] = -1
	return c
}

// SampleRate returns the context's sample rate.
func (c *Context) SampleRate() float64 { return c.regs[RegSrate] }

// SetTransport updates tempo, beat position and time signature. Call it from
// the audio thread between blocks.
func (c *Context) SetTransport(tempo, beatPos, tsNum, tsDenom float64) {
	c.regs[RegTempo] = tempo
	c.regs[RegBeatPos] = beatPos
	c.regs[RegTSNum] = tsNum
	c.regs[RegTSDenom] = tsDenom
}

// SetPlayState updates the transport state (PlayState* constants).
func (c *Context) SetPlayState(state float64) {
	c.regs[RegPlayState] = state
}

// setParam publishes a parameter value from the control thread. The store
// of the bits happens before the dirty bit is raised, so the audio thread
// always drains a value at least as new as the flag it observed.
func (c *Context) setParam(index int, value float64) {
	if index < 0 || index >= NumParams {
		return // permissive by contract
	}
	c.pending[index].Store(math.Float64bits(value))
	c.dirty.Or(1 << uint(index))
}

// param returns the current control-side value for index, or 0 when out of
// range.
func (c *Context) param(index int) float64 {
	if index < 0 || index >= NumParams {
		return 0
	}
	return math.Float64frombits(c.pending[index].Load())
}

// seedParam installs a default without marking it dirty; used once at
// instantiate time before the first init run.
func (c *Context) seedParam(index int, value float64) {
	if index < 0 || index >= NumParams {
		return
	}
	c.pending[index].Store(math.Float64bits(value))
	c.params[index] = value
}

// drainParams applies every pending parameter write and reports whether any
// value changed hands. Audio thread only.
func (c *Context) drainParams() bool {
	mask := c.dirty.Swap(0)
	if mask == 0 {
		return false
	}
	for i := 0; mask != 0; i++ {
		if mask&1 != 0 {
			c.params[i] = math.Float64frombits(c.pending[i].Load())
		}
		mask >>= 1
	}
	return true
}
